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

// OutboxStatus is the delivery lifecycle state of a sent message.
type OutboxStatus string

const (
	OutboxSent      OutboxStatus = "sent"
	OutboxDelivered OutboxStatus = "delivered"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxMessage is a single sent-message record.
type OutboxMessage struct {
	MessageID   string       `json:"message_id"`
	SwarmID     string       `json:"swarm_id"`
	RecipientID string       `json:"recipient_id"`
	MessageType string       `json:"message_type"`
	Content     string       `json:"content"`
	SentAt      time.Time    `json:"sent_at"`
	DeliveredAt *time.Time   `json:"delivered_at,omitempty"`
	Status      OutboxStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
}

// OutboxRepository manages the outbox table and its sent -> delivered|failed
// state machine.
type OutboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates an OutboxRepository over db.
func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Insert records a newly-sent message.
func (r *OutboxRepository) Insert(ctx context.Context, msg OutboxMessage) error {
	if msg.Status == "" {
		msg.Status = OutboxSent
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox (message_id, swarm_id, recipient_id, message_type, content, sent_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.SwarmID, msg.RecipientID, msg.MessageType, msg.Content,
		formatTime(msg.SentAt), string(msg.Status),
	)
	if err != nil {
		return fmt.Errorf("store: insert outbox message %s: %w", msg.MessageID, err)
	}
	return nil
}

// GetByID loads a single outbox message.
func (r *OutboxRepository) GetByID(ctx context.Context, messageID string) (*OutboxMessage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT message_id, swarm_id, recipient_id, message_type, content, sent_at, delivered_at, status, error
		 FROM outbox WHERE message_id = ?`,
		messageID,
	)
	msg, err := scanOutboxMessage(row)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.KindNotFound, "outbox message %s not found", messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get outbox message %s: %w", messageID, err)
	}
	return msg, nil
}

// ListBySwarm returns up to limit messages sent to a swarm, newest first.
func (r *OutboxRepository) ListBySwarm(ctx context.Context, swarmID string, limit int) ([]OutboxMessage, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, swarm_id, recipient_id, message_type, content, sent_at, delivered_at, status, error
		 FROM outbox WHERE swarm_id = ? ORDER BY sent_at DESC LIMIT ?`,
		swarmID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list outbox by swarm %s: %w", swarmID, err)
	}
	return scanOutboxRows(rows)
}

// ListAll returns up to limit sent messages across all swarms, newest first.
func (r *OutboxRepository) ListAll(ctx context.Context, limit int) ([]OutboxMessage, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, swarm_id, recipient_id, message_type, content, sent_at, delivered_at, status, error
		 FROM outbox ORDER BY sent_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list all outbox messages: %w", err)
	}
	return scanOutboxRows(rows)
}

// DumpAll returns every outbox row regardless of list limits, for
// full-state export.
func (r *OutboxRepository) DumpAll(ctx context.Context) ([]OutboxMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, swarm_id, recipient_id, message_type, content, sent_at, delivered_at, status, error
		 FROM outbox ORDER BY sent_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: dump outbox: %w", err)
	}
	return scanOutboxRows(rows)
}

// CountBySwarm returns the number of sent messages for a swarm.
func (r *OutboxRepository) CountBySwarm(ctx context.Context, swarmID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE swarm_id = ?`, swarmID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count outbox for swarm %s: %w", swarmID, err)
	}
	return n, nil
}

// MarkDelivered transitions sent -> delivered, setting delivered_at.
func (r *OutboxRepository) MarkDelivered(ctx context.Context, messageID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET status = 'delivered', delivered_at = ? WHERE message_id = ? AND status = 'sent'`,
		formatTime(at), messageID,
	)
	if err != nil {
		return false, fmt.Errorf("store: mark delivered %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkFailed transitions sent -> failed, recording the delivery error.
func (r *OutboxRepository) MarkFailed(ctx context.Context, messageID, errMsg string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET status = 'failed', error = ? WHERE message_id = ? AND status = 'sent'`,
		errMsg, messageID,
	)
	if err != nil {
		return false, fmt.Errorf("store: mark failed %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanOutboxRows(rows *sql.Rows) ([]OutboxMessage, error) {
	defer rows.Close()
	var out []OutboxMessage
	for rows.Next() {
		msg, err := scanOutboxMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan outbox row: %w", err)
		}
		out = append(out, *msg)
	}
	return out, rows.Err()
}

func scanOutboxMessage(row rowScanner) (*OutboxMessage, error) {
	var msg OutboxMessage
	var deliveredAt, errMsg sql.NullString
	var sentAt, status string

	if err := row.Scan(&msg.MessageID, &msg.SwarmID, &msg.RecipientID, &msg.MessageType,
		&msg.Content, &sentAt, &deliveredAt, &status, &errMsg); err != nil {
		return nil, err
	}

	t, err := parseTime(sentAt)
	if err != nil {
		return nil, fmt.Errorf("parse sent_at: %w", err)
	}
	msg.SentAt = t
	msg.Status = OutboxStatus(status)
	if deliveredAt.Valid {
		t, err := parseTime(deliveredAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse delivered_at: %w", err)
		}
		msg.DeliveredAt = &t
	}
	if errMsg.Valid {
		msg.Error = errMsg.String
	}
	return &msg, nil
}
