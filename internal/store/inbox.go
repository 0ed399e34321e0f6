// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

// InboxStatus is the lifecycle state of a received message.
type InboxStatus string

const (
	InboxUnread   InboxStatus = "unread"
	InboxRead     InboxStatus = "read"
	InboxArchived InboxStatus = "archived"
	InboxDeleted  InboxStatus = "deleted"
)

// InboxMessage is a single received-message record.
type InboxMessage struct {
	MessageID   string      `json:"message_id"`
	SwarmID     string      `json:"swarm_id"`
	SenderID    string      `json:"sender_id"`
	RecipientID string      `json:"recipient_id,omitempty"`
	MessageType string      `json:"message_type"`
	Content     string      `json:"content"`
	ReceivedAt  time.Time   `json:"received_at"`
	ReadAt      *time.Time  `json:"read_at,omitempty"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
	Status      InboxStatus `json:"status"`
}

// InboxRepository manages the inbox table and its unread/read/archived/
// deleted state machine.
type InboxRepository struct {
	db *sql.DB
}

// NewInboxRepository creates an InboxRepository over db.
func NewInboxRepository(db *sql.DB) *InboxRepository {
	return &InboxRepository{db: db}
}

// Insert records a newly-received message as unread.
func (r *InboxRepository) Insert(ctx context.Context, msg InboxMessage) error {
	if msg.Status == "" {
		msg.Status = InboxUnread
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inbox (message_id, swarm_id, sender_id, recipient_id, message_type, content, received_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.SwarmID, msg.SenderID, nullableString(msg.RecipientID),
		msg.MessageType, msg.Content, formatTime(msg.ReceivedAt), string(msg.Status),
	)
	if err != nil {
		return fmt.Errorf("store: insert inbox message %s: %w", msg.MessageID, err)
	}
	return nil
}

// GetByID loads a single inbox message.
func (r *InboxRepository) GetByID(ctx context.Context, messageID string) (*InboxMessage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT message_id, swarm_id, sender_id, recipient_id, message_type, content,
		        received_at, read_at, deleted_at, status
		 FROM inbox WHERE message_id = ?`,
		messageID,
	)
	msg, err := scanInboxMessage(row)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.KindNotFound, "inbox message %s not found", messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get inbox message %s: %w", messageID, err)
	}
	return msg, nil
}

// MarkRead transitions unread -> read, setting read_at. It is a no-op
// (not an error) if the message is not currently unread.
func (r *InboxRepository) MarkRead(ctx context.Context, messageID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE inbox SET status = 'read', read_at = ? WHERE message_id = ? AND status = 'unread'`,
		formatTime(at), messageID,
	)
	if err != nil {
		return false, fmt.Errorf("store: mark read %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkArchived transitions unread|read -> archived.
func (r *InboxRepository) MarkArchived(ctx context.Context, messageID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE inbox SET status = 'archived' WHERE message_id = ? AND status IN ('unread', 'read')`,
		messageID,
	)
	if err != nil {
		return false, fmt.Errorf("store: archive %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkDeleted soft-deletes a message from any status except deleted.
func (r *InboxRepository) MarkDeleted(ctx context.Context, messageID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE inbox SET status = 'deleted', deleted_at = ? WHERE message_id = ? AND status != 'deleted'`,
		formatTime(at), messageID,
	)
	if err != nil {
		return false, fmt.Errorf("store: delete %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListByStatus returns up to limit messages in the given status, newest
// first.
func (r *InboxRepository) ListByStatus(ctx context.Context, status InboxStatus, limit int) ([]InboxMessage, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, swarm_id, sender_id, recipient_id, message_type, content,
		        received_at, read_at, deleted_at, status
		 FROM inbox WHERE status = ? ORDER BY received_at DESC LIMIT ?`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list inbox by status %s: %w", status, err)
	}
	return scanInboxRows(rows)
}

// ListVisible lists non-deleted messages (or, if status is "all", every
// message including deleted), optionally filtered by swarm and sender.
func (r *InboxRepository) ListVisible(ctx context.Context, status, swarmID, senderID string, limit int) ([]InboxMessage, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}

	query := `SELECT message_id, swarm_id, sender_id, recipient_id, message_type, content,
	                 received_at, read_at, deleted_at, status FROM inbox WHERE 1=1`
	var args []any

	switch status {
	case "", "all":
		// no status filter
	default:
		query += " AND status = ?"
		args = append(args, status)
	}
	if status == "" {
		query += " AND status != 'deleted'"
	}
	if swarmID != "" {
		query += " AND swarm_id = ?"
		args = append(args, swarmID)
	}
	if senderID != "" {
		query += " AND sender_id = ?"
		args = append(args, senderID)
	}
	query += " ORDER BY received_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list visible inbox messages: %w", err)
	}
	return scanInboxRows(rows)
}

// ListRecent returns the most recently received messages across all
// statuses except deleted.
func (r *InboxRepository) ListRecent(ctx context.Context, limit int) ([]InboxMessage, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, swarm_id, sender_id, recipient_id, message_type, content,
		        received_at, read_at, deleted_at, status
		 FROM inbox WHERE status != 'deleted' ORDER BY received_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list recent inbox messages: %w", err)
	}
	return scanInboxRows(rows)
}

// DumpAll returns every inbox row regardless of status or list limits,
// for full-state export.
func (r *InboxRepository) DumpAll(ctx context.Context) ([]InboxMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, swarm_id, sender_id, recipient_id, message_type, content,
		        received_at, read_at, deleted_at, status
		 FROM inbox ORDER BY received_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: dump inbox: %w", err)
	}
	return scanInboxRows(rows)
}

// CountByStatus returns the number of messages in each status.
func (r *InboxRepository) CountByStatus(ctx context.Context) (map[InboxStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM inbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("store: count inbox by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[InboxStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("store: scan status count: %w", err)
		}
		counts[InboxStatus(status)] = n
	}
	return counts, rows.Err()
}

// BatchUpdateStatus applies a guarded transition to every message ID in
// the batch, returning the number actually transitioned.
func (r *InboxRepository) BatchUpdateStatus(ctx context.Context, messageIDs []string, from []InboxStatus, to InboxStatus, at time.Time) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(messageIDs)+len(from)+2)
	setClause := "status = ?"
	args = append(args, string(to))
	if to == InboxRead {
		setClause += ", read_at = ?"
		args = append(args, formatTime(at))
	}
	if to == InboxDeleted {
		setClause += ", deleted_at = ?"
		args = append(args, formatTime(at))
	}

	query := fmt.Sprintf(`UPDATE inbox SET %s WHERE message_id IN (%s)`, setClause, placeholders(len(messageIDs)))
	for _, id := range messageIDs {
		args = append(args, id)
	}
	if len(from) > 0 {
		fromStrs := make([]any, len(from))
		for i, s := range from {
			fromStrs[i] = string(s)
		}
		query += fmt.Sprintf(" AND status IN (%s)", placeholders(len(from)))
		args = append(args, fromStrs...)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: batch update inbox status: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PurgeDeleted permanently removes every message already in the deleted
// status, returning the number of rows removed.
func (r *InboxRepository) PurgeDeleted(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inbox WHERE status = 'deleted'`)
	if err != nil {
		return 0, fmt.Errorf("store: purge deleted inbox messages: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PurgeOlderThan permanently removes deleted messages (and, if
// includeArchived is set, archived ones too) older than cutoff. Deleted
// messages are aged off deleted_at; archived messages have no separate
// archive timestamp so received_at is used instead.
func (r *InboxRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time, includeArchived bool) (int, error) {
	cutoffStr := formatTime(cutoff)
	query := `DELETE FROM inbox WHERE status = 'deleted' AND deleted_at IS NOT NULL AND deleted_at < ?`
	args := []any{cutoffStr}
	if includeArchived {
		query = `DELETE FROM inbox WHERE (status = 'deleted' AND deleted_at IS NOT NULL AND deleted_at < ?) OR (status = 'archived' AND received_at < ?)`
		args = append(args, cutoffStr)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: purge aged inbox messages: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanInboxRows(rows *sql.Rows) ([]InboxMessage, error) {
	defer rows.Close()
	var out []InboxMessage
	for rows.Next() {
		msg, err := scanInboxMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan inbox row: %w", err)
		}
		out = append(out, *msg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInboxMessage(row rowScanner) (*InboxMessage, error) {
	var msg InboxMessage
	var recipientID, readAt, deletedAt sql.NullString
	var receivedAt, status string

	if err := row.Scan(&msg.MessageID, &msg.SwarmID, &msg.SenderID, &recipientID,
		&msg.MessageType, &msg.Content, &receivedAt, &readAt, &deletedAt, &status); err != nil {
		return nil, err
	}

	t, err := parseTime(receivedAt)
	if err != nil {
		return nil, fmt.Errorf("parse received_at: %w", err)
	}
	msg.ReceivedAt = t
	msg.Status = InboxStatus(status)
	if recipientID.Valid {
		msg.RecipientID = recipientID.String
	}
	if readAt.Valid {
		t, err := parseTime(readAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse read_at: %w", err)
		}
		msg.ReadAt = &t
	}
	if deletedAt.Valid {
		t, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse deleted_at: %w", err)
		}
		msg.DeletedAt = &t
	}
	return &msg, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
