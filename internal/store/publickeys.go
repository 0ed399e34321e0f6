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

// PublicKeyEntry is a cached public key for a known agent.
type PublicKeyEntry struct {
	AgentID   string    `json:"agent_id"`
	PublicKey string    `json:"public_key"`
	FetchedAt time.Time `json:"fetched_at"`
	Endpoint  string    `json:"endpoint,omitempty"`
}

// DefaultPublicKeyTTLHours is the default staleness threshold applied when
// callers don't specify one.
const DefaultPublicKeyTTLHours = 24

// PublicKeyRepository caches agent public keys discovered via handshake or
// directory lookup.
type PublicKeyRepository struct {
	db *sql.DB
}

// NewPublicKeyRepository creates a PublicKeyRepository over db.
func NewPublicKeyRepository(db *sql.DB) *PublicKeyRepository {
	return &PublicKeyRepository{db: db}
}

// Store upserts a cached public key entry.
func (r *PublicKeyRepository) Store(ctx context.Context, entry PublicKeyEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO public_keys (agent_id, public_key, fetched_at, endpoint)
		 VALUES (?, ?, ?, ?)`,
		entry.AgentID, entry.PublicKey, formatTime(entry.FetchedAt), nullableString(entry.Endpoint),
	)
	if err != nil {
		return fmt.Errorf("store: store public key for %s: %w", entry.AgentID, err)
	}
	return nil
}

// Get returns a cached entry, or nil if the agent's key is not cached.
func (r *PublicKeyRepository) Get(ctx context.Context, agentID string) (*PublicKeyEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT agent_id, public_key, fetched_at, endpoint FROM public_keys WHERE agent_id = ?`,
		agentID,
	)
	entry, err := scanPublicKeyEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get public key for %s: %w", agentID, err)
	}
	return entry, nil
}

// Delete removes a cached entry, reporting whether one existed.
func (r *PublicKeyRepository) Delete(ctx context.Context, agentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM public_keys WHERE agent_id = ?`, agentID)
	if err != nil {
		return false, fmt.Errorf("store: delete public key for %s: %w", agentID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetAll returns every cached public key entry.
func (r *PublicKeyRepository) GetAll(ctx context.Context) ([]PublicKeyEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT agent_id, public_key, fetched_at, endpoint FROM public_keys`)
	if err != nil {
		return nil, fmt.Errorf("store: list public keys: %w", err)
	}
	defer rows.Close()

	var out []PublicKeyEntry
	for rows.Next() {
		entry, err := scanPublicKeyEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan public key entry: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

// GetStale returns every cached entry last fetched more than ttlHours ago.
// A ttlHours of 0 or less uses DefaultPublicKeyTTLHours.
func (r *PublicKeyRepository) GetStale(ctx context.Context, ttlHours int) ([]PublicKeyEntry, error) {
	if ttlHours <= 0 {
		ttlHours = DefaultPublicKeyTTLHours
	}
	cutoff := formatTime(timeNow().Add(-time.Duration(ttlHours) * time.Hour))

	rows, err := r.db.QueryContext(ctx,
		`SELECT agent_id, public_key, fetched_at, endpoint FROM public_keys WHERE fetched_at < ?`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list stale public keys: %w", err)
	}
	defer rows.Close()

	var out []PublicKeyEntry
	for rows.Next() {
		entry, err := scanPublicKeyEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan stale public key entry: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func scanPublicKeyEntry(row rowScanner) (*PublicKeyEntry, error) {
	var entry PublicKeyEntry
	var fetchedAt string
	var endpoint sql.NullString
	if err := row.Scan(&entry.AgentID, &entry.PublicKey, &fetchedAt, &endpoint); err != nil {
		return nil, err
	}
	t, err := parseTime(fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}
	entry.FetchedAt = t
	if endpoint.Valid {
		entry.Endpoint = endpoint.String
	}
	return &entry, nil
}

// timeNow is a seam so tests can be confident about staleness math without
// depending on wall-clock timing; production code always calls time.Now.
var timeNow = time.Now
