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

// MutedAgent is a single muted-agent record.
type MutedAgent struct {
	AgentID string    `json:"agent_id"`
	MutedAt time.Time `json:"muted_at"`
	Reason  string    `json:"reason,omitempty"`
}

// MutedSwarm is a single muted-swarm record.
type MutedSwarm struct {
	SwarmID string    `json:"swarm_id"`
	MutedAt time.Time `json:"muted_at"`
	Reason  string    `json:"reason,omitempty"`
}

// MuteRepository manages the muted_agents and muted_swarms allow/deny lists.
type MuteRepository struct {
	db *sql.DB
}

// NewMuteRepository creates a MuteRepository over db.
func NewMuteRepository(db *sql.DB) *MuteRepository {
	return &MuteRepository{db: db}
}

// MuteAgent mutes an agent, replacing any prior mute record for it.
func (r *MuteRepository) MuteAgent(ctx context.Context, agentID string, at time.Time, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO muted_agents (agent_id, muted_at, reason) VALUES (?, ?, ?)`,
		agentID, formatTime(at), nullableString(reason),
	)
	if err != nil {
		return fmt.Errorf("store: mute agent %s: %w", agentID, err)
	}
	return nil
}

// UnmuteAgent removes an agent's mute record, reporting whether one existed.
func (r *MuteRepository) UnmuteAgent(ctx context.Context, agentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM muted_agents WHERE agent_id = ?`, agentID)
	if err != nil {
		return false, fmt.Errorf("store: unmute agent %s: %w", agentID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// IsAgentMuted reports whether an agent is currently muted.
func (r *MuteRepository) IsAgentMuted(ctx context.Context, agentID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM muted_agents WHERE agent_id = ?`, agentID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check agent mute %s: %w", agentID, err)
	}
	return true, nil
}

// GetMutedAgent returns a single agent's mute record, or nil if not muted.
func (r *MuteRepository) GetMutedAgent(ctx context.Context, agentID string) (*MutedAgent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT agent_id, muted_at, reason FROM muted_agents WHERE agent_id = ?`, agentID)
	var m MutedAgent
	var mutedAt string
	var reason sql.NullString
	if err := row.Scan(&m.AgentID, &mutedAt, &reason); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get muted agent %s: %w", agentID, err)
	}
	t, err := parseTime(mutedAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse muted_at: %w", err)
	}
	m.MutedAt = t
	if reason.Valid {
		m.Reason = reason.String
	}
	return &m, nil
}

// GetAllMutedAgents returns every muted agent.
func (r *MuteRepository) GetAllMutedAgents(ctx context.Context) ([]MutedAgent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT agent_id, muted_at, reason FROM muted_agents`)
	if err != nil {
		return nil, fmt.Errorf("store: list muted agents: %w", err)
	}
	defer rows.Close()

	var out []MutedAgent
	for rows.Next() {
		var m MutedAgent
		var mutedAt string
		var reason sql.NullString
		if err := rows.Scan(&m.AgentID, &mutedAt, &reason); err != nil {
			return nil, fmt.Errorf("store: scan muted agent: %w", err)
		}
		t, err := parseTime(mutedAt)
		if err != nil {
			return nil, fmt.Errorf("store: parse muted_at: %w", err)
		}
		m.MutedAt = t
		if reason.Valid {
			m.Reason = reason.String
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MuteSwarm mutes a swarm, replacing any prior mute record for it.
func (r *MuteRepository) MuteSwarm(ctx context.Context, swarmID string, at time.Time, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO muted_swarms (swarm_id, muted_at, reason) VALUES (?, ?, ?)`,
		swarmID, formatTime(at), nullableString(reason),
	)
	if err != nil {
		return fmt.Errorf("store: mute swarm %s: %w", swarmID, err)
	}
	return nil
}

// UnmuteSwarm removes a swarm's mute record, reporting whether one existed.
func (r *MuteRepository) UnmuteSwarm(ctx context.Context, swarmID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM muted_swarms WHERE swarm_id = ?`, swarmID)
	if err != nil {
		return false, fmt.Errorf("store: unmute swarm %s: %w", swarmID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// IsSwarmMuted reports whether a swarm is currently muted.
func (r *MuteRepository) IsSwarmMuted(ctx context.Context, swarmID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM muted_swarms WHERE swarm_id = ?`, swarmID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check swarm mute %s: %w", swarmID, err)
	}
	return true, nil
}

// GetMutedSwarm returns a single swarm's mute record, or nil if not muted.
func (r *MuteRepository) GetMutedSwarm(ctx context.Context, swarmID string) (*MutedSwarm, error) {
	row := r.db.QueryRowContext(ctx, `SELECT swarm_id, muted_at, reason FROM muted_swarms WHERE swarm_id = ?`, swarmID)
	var m MutedSwarm
	var mutedAt string
	var reason sql.NullString
	if err := row.Scan(&m.SwarmID, &mutedAt, &reason); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get muted swarm %s: %w", swarmID, err)
	}
	t, err := parseTime(mutedAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse muted_at: %w", err)
	}
	m.MutedAt = t
	if reason.Valid {
		m.Reason = reason.String
	}
	return &m, nil
}

// GetAllMutedSwarms returns every muted swarm.
func (r *MuteRepository) GetAllMutedSwarms(ctx context.Context) ([]MutedSwarm, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT swarm_id, muted_at, reason FROM muted_swarms`)
	if err != nil {
		return nil, fmt.Errorf("store: list muted swarms: %w", err)
	}
	defer rows.Close()

	var out []MutedSwarm
	for rows.Next() {
		var m MutedSwarm
		var mutedAt string
		var reason sql.NullString
		if err := rows.Scan(&m.SwarmID, &mutedAt, &reason); err != nil {
			return nil, fmt.Errorf("store: scan muted swarm: %w", err)
		}
		t, err := parseTime(mutedAt)
		if err != nil {
			return nil, fmt.Errorf("store: parse muted_at: %w", err)
		}
		m.MutedAt = t
		if reason.Valid {
			m.Reason = reason.String
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
