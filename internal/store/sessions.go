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
)

// SessionState is the lifecycle state of an SDK session record.
type SessionState string

const (
	SessionActive SessionState = "active"
	SessionClosed SessionState = "closed"
)

// DefaultSessionTimeout is the idle timeout after which GetActive treats a
// session as expired and purges it.
const DefaultSessionTimeout = 30 * time.Minute

// SDKSession tracks a continuity session between this agent and a peer
// within a swarm, keyed by (swarm_id, peer_id).
type SDKSession struct {
	SwarmID    string       `json:"swarm_id"`
	PeerID     string       `json:"peer_id"`
	SessionID  string       `json:"session_id"`
	LastActive time.Time    `json:"last_active"`
	State      SessionState `json:"state"`
}

// SessionRepository manages the sdk_sessions table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a SessionRepository over db.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert creates or refreshes a session record for (swarm_id, peer_id).
func (r *SessionRepository) Upsert(ctx context.Context, s SDKSession) error {
	if s.State == "" {
		s.State = SessionActive
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sdk_sessions (swarm_id, peer_id, session_id, last_active, state)
		 VALUES (?, ?, ?, ?, ?)`,
		s.SwarmID, s.PeerID, s.SessionID, formatTime(s.LastActive), string(s.State),
	)
	if err != nil {
		return fmt.Errorf("store: upsert session %s/%s: %w", s.SwarmID, s.PeerID, err)
	}
	return nil
}

// Get returns the session record for (swarm_id, peer_id) regardless of
// expiry, or nil if none exists.
func (r *SessionRepository) Get(ctx context.Context, swarmID, peerID string) (*SDKSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT swarm_id, peer_id, session_id, last_active, state
		 FROM sdk_sessions WHERE swarm_id = ? AND peer_id = ?`,
		swarmID, peerID,
	)
	s, err := scanSDKSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session %s/%s: %w", swarmID, peerID, err)
	}
	return s, nil
}

// GetActive returns the session for (swarm_id, peer_id) if it is still
// within timeout of its last activity. If it has gone idle past timeout it
// is deleted and nil is returned instead of the stale record.
func (r *SessionRepository) GetActive(ctx context.Context, swarmID, peerID string, timeout time.Duration) (*SDKSession, error) {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	s, err := r.Get(ctx, swarmID, peerID)
	if err != nil || s == nil {
		return nil, err
	}
	if time.Since(s.LastActive) > timeout {
		if _, err := r.Delete(ctx, swarmID, peerID); err != nil {
			return nil, fmt.Errorf("store: purge expired session %s/%s: %w", swarmID, peerID, err)
		}
		return nil, nil
	}
	return s, nil
}

// Delete removes a session record, reporting whether one existed.
func (r *SessionRepository) Delete(ctx context.Context, swarmID, peerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sdk_sessions WHERE swarm_id = ? AND peer_id = ?`,
		swarmID, peerID,
	)
	if err != nil {
		return false, fmt.Errorf("store: delete session %s/%s: %w", swarmID, peerID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// PurgeExpired removes every session whose last activity is older than
// timeout, returning the number of rows removed.
func (r *SessionRepository) PurgeExpired(ctx context.Context, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	cutoff := formatTime(timeNow().Add(-timeout))
	res, err := r.db.ExecContext(ctx, `DELETE FROM sdk_sessions WHERE last_active < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanSDKSession(row rowScanner) (*SDKSession, error) {
	var s SDKSession
	var lastActive, state string
	if err := row.Scan(&s.SwarmID, &s.PeerID, &s.SessionID, &lastActive, &state); err != nil {
		return nil, err
	}
	t, err := parseTime(lastActive)
	if err != nil {
		return nil, fmt.Errorf("parse last_active: %w", err)
	}
	s.LastActive = t
	s.State = SessionState(state)
	return &s, nil
}
