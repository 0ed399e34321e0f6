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

// Package store provides the embedded, file-based relational state store
// for swarmmesh: swarm membership, inbox/outbox, mute lists, a public key
// cache, and SDK session continuity, all in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Manager owns the database connection and its schema lifecycle: one
// value with Initialize, a connection accessor, and Close.
type Manager struct {
	db   *sql.DB
	path string
}

// NewManager opens (without initializing) the SQLite file at path.
func NewManager(path string) (*Manager, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: creating directory for %s: %w", path, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY

	return &Manager{db: db, path: path}, nil
}

// Initialize creates any missing tables/indexes and runs the one-shot
// legacy message_queue projection.
func (m *Manager) Initialize(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("store: applying schema: %w", err)
	}
	if err := projectLegacyMessageQueue(ctx, m.db); err != nil {
		return fmt.Errorf("store: projecting legacy message_queue: %w", err)
	}
	return nil
}

// Conn returns the underlying connection pool. Repositories take it
// directly rather than a single dedicated connection, since
// modernc.org/sqlite handles its own connection pooling.
func (m *Manager) Conn() *sql.DB {
	return m.db
}

// Path returns the database file path this Manager was opened with.
func (m *Manager) Path() string {
	return m.path
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	return m.db.Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_versions (
	version TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS swarms (
	swarm_id TEXT PRIMARY KEY,
	name TEXT NOT NULL CHECK (length(name) <= 256),
	master TEXT NOT NULL,
	joined_at TEXT NOT NULL,
	allow_member_invite INTEGER NOT NULL DEFAULT 0,
	require_approval INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS swarm_members (
	agent_id TEXT NOT NULL,
	swarm_id TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	public_key TEXT NOT NULL,
	joined_at TEXT NOT NULL,
	PRIMARY KEY (agent_id, swarm_id),
	FOREIGN KEY (swarm_id) REFERENCES swarms(swarm_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_members_swarm ON swarm_members(swarm_id);

CREATE TABLE IF NOT EXISTS inbox (
	message_id TEXT PRIMARY KEY,
	swarm_id TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	recipient_id TEXT,
	message_type TEXT NOT NULL,
	content TEXT NOT NULL,
	received_at TEXT NOT NULL,
	read_at TEXT,
	deleted_at TEXT,
	status TEXT NOT NULL DEFAULT 'unread'
		CHECK (status IN ('unread', 'read', 'archived', 'deleted'))
);
CREATE INDEX IF NOT EXISTS idx_inbox_status ON inbox(status);
CREATE INDEX IF NOT EXISTS idx_inbox_swarm ON inbox(swarm_id);
CREATE INDEX IF NOT EXISTS idx_inbox_sender ON inbox(sender_id);

CREATE TABLE IF NOT EXISTS outbox (
	message_id TEXT PRIMARY KEY,
	swarm_id TEXT NOT NULL,
	recipient_id TEXT NOT NULL,
	message_type TEXT NOT NULL,
	content TEXT NOT NULL,
	sent_at TEXT NOT NULL,
	delivered_at TEXT,
	status TEXT NOT NULL DEFAULT 'sent'
		CHECK (status IN ('sent', 'delivered', 'failed')),
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_swarm ON outbox(swarm_id);
CREATE INDEX IF NOT EXISTS idx_outbox_sent_at ON outbox(sent_at);

CREATE TABLE IF NOT EXISTS muted_agents (
	agent_id TEXT PRIMARY KEY,
	muted_at TEXT NOT NULL,
	reason TEXT
);

CREATE TABLE IF NOT EXISTS muted_swarms (
	swarm_id TEXT PRIMARY KEY,
	muted_at TEXT NOT NULL,
	reason TEXT
);

CREATE TABLE IF NOT EXISTS public_keys (
	agent_id TEXT PRIMARY KEY,
	public_key TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	endpoint TEXT
);

CREATE TABLE IF NOT EXISTS sdk_sessions (
	swarm_id TEXT NOT NULL,
	peer_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	last_active TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT 'active',
	PRIMARY KEY (swarm_id, peer_id)
);
CREATE INDEX IF NOT EXISTS idx_sessions_last_active ON sdk_sessions(last_active);

INSERT OR IGNORE INTO schema_versions (version, applied_at) VALUES ('2.0.0', datetime('now'));
`

// projectLegacyMessageQueue projects a pre-existing legacy message_queue
// table into inbox exactly once, tracked by the presence of the
// '2-legacy-projected' schema_versions marker. The legacy table itself is
// never dropped.
func projectLegacyMessageQueue(ctx context.Context, db *sql.DB) error {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'message_queue'`,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	var alreadyProjected int
	err = db.QueryRowContext(ctx,
		`SELECT 1 FROM schema_versions WHERE version = '2-legacy-projected'`,
	).Scan(&alreadyProjected)
	if err == nil {
		return nil // already projected
	}
	if err != sql.ErrNoRows {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT message_id, swarm_id, sender_id, message_type, content, received_at, status
		 FROM message_queue`,
	)
	if err != nil {
		return err
	}

	type legacyRow struct {
		messageID, swarmID, senderID, messageType, content, receivedAt, status string
	}
	var legacy []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.messageID, &r.swarmID, &r.senderID, &r.messageType, &r.content, &r.receivedAt, &r.status); err != nil {
			rows.Close()
			return err
		}
		legacy = append(legacy, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, r := range legacy {
		status := "read"
		if r.status == "pending" {
			status = "unread"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO inbox
			 (message_id, swarm_id, sender_id, recipient_id, message_type, content, received_at, status)
			 VALUES (?, ?, ?, NULL, ?, ?, ?, ?)`,
			r.messageID, r.swarmID, r.senderID, r.messageType, r.content, r.receivedAt, status,
		); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_versions (version, applied_at) VALUES ('2-legacy-projected', datetime('now'))`,
	); err != nil {
		return err
	}

	return tx.Commit()
}
