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

// SwarmSettings are the per-swarm policy flags.
type SwarmSettings struct {
	AllowMemberInvite bool `json:"allow_member_invite"`
	RequireApproval   bool `json:"require_approval"`
}

// Member is a single agent's membership record within a swarm.
type Member struct {
	AgentID   string    `json:"agent_id"`
	Endpoint  string    `json:"endpoint"`
	PublicKey string    `json:"public_key"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Swarm is a swarm and its full member list.
type Swarm struct {
	SwarmID  string        `json:"swarm_id"`
	Name     string        `json:"name"`
	Master   string        `json:"master"`
	Members  []Member      `json:"members"`
	JoinedAt time.Time     `json:"joined_at"`
	Settings SwarmSettings `json:"settings"`
}

// SwarmRepository manages swarms and their membership rosters.
type SwarmRepository struct {
	db *sql.DB
}

// NewSwarmRepository creates a SwarmRepository over db.
func NewSwarmRepository(db *sql.DB) *SwarmRepository {
	return &SwarmRepository{db: db}
}

// CreateSwarm inserts a new swarm along with its initial member list
// (normally just the master) in a single transaction.
func (r *SwarmRepository) CreateSwarm(ctx context.Context, s Swarm) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin create swarm: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO swarms (swarm_id, name, master, joined_at, allow_member_invite, require_approval)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.SwarmID, s.Name, s.Master, formatTime(s.JoinedAt),
		boolToInt(s.Settings.AllowMemberInvite), boolToInt(s.Settings.RequireApproval),
	)
	if err != nil {
		return fmt.Errorf("store: insert swarm: %w", err)
	}

	for _, m := range s.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO swarm_members (agent_id, swarm_id, endpoint, public_key, joined_at)
			 VALUES (?, ?, ?, ?, ?)`,
			m.AgentID, s.SwarmID, m.Endpoint, m.PublicKey, formatTime(m.JoinedAt),
		); err != nil {
			return fmt.Errorf("store: insert initial member %s: %w", m.AgentID, err)
		}
	}

	return tx.Commit()
}

// AddMember inserts a new member into an existing swarm.
func (r *SwarmRepository) AddMember(ctx context.Context, swarmID string, m Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO swarm_members (agent_id, swarm_id, endpoint, public_key, joined_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.AgentID, swarmID, m.Endpoint, m.PublicKey, formatTime(m.JoinedAt),
	)
	if err != nil {
		return fmt.Errorf("store: add member %s to %s: %w", m.AgentID, swarmID, err)
	}
	return nil
}

// RemoveMember deletes a member from a swarm, reporting whether a row was
// removed.
func (r *SwarmRepository) RemoveMember(ctx context.Context, swarmID, agentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM swarm_members WHERE swarm_id = ? AND agent_id = ?`,
		swarmID, agentID,
	)
	if err != nil {
		return false, fmt.Errorf("store: remove member %s from %s: %w", agentID, swarmID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// FindMember returns a single member's record within a swarm.
func (r *SwarmRepository) FindMember(ctx context.Context, swarmID, agentID string) (*Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT agent_id, endpoint, public_key, joined_at
		 FROM swarm_members WHERE swarm_id = ? AND agent_id = ?`,
		swarmID, agentID,
	)
	var m Member
	var joinedAt string
	if err := row.Scan(&m.AgentID, &m.Endpoint, &m.PublicKey, &joinedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find member %s in %s: %w", agentID, swarmID, err)
	}
	t, err := parseTime(joinedAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse joined_at: %w", err)
	}
	m.JoinedAt = t
	return &m, nil
}

// GetSwarm loads a swarm and its full member roster.
func (r *SwarmRepository) GetSwarm(ctx context.Context, swarmID string) (*Swarm, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT swarm_id, name, master, joined_at, allow_member_invite, require_approval
		 FROM swarms WHERE swarm_id = ?`,
		swarmID,
	)

	var s Swarm
	var joinedAt string
	var allowInvite, requireApproval int
	if err := row.Scan(&s.SwarmID, &s.Name, &s.Master, &joinedAt, &allowInvite, &requireApproval); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.Newf(errs.KindSwarmNotFound, "swarm %s not found", swarmID)
		}
		return nil, fmt.Errorf("store: get swarm %s: %w", swarmID, err)
	}
	t, err := parseTime(joinedAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse joined_at: %w", err)
	}
	s.JoinedAt = t
	s.Settings = SwarmSettings{
		AllowMemberInvite: allowInvite != 0,
		RequireApproval:   requireApproval != 0,
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT agent_id, endpoint, public_key, joined_at FROM swarm_members WHERE swarm_id = ?`,
		swarmID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list members of %s: %w", swarmID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Member
		var mJoinedAt string
		if err := rows.Scan(&m.AgentID, &m.Endpoint, &m.PublicKey, &mJoinedAt); err != nil {
			return nil, fmt.Errorf("store: scan member: %w", err)
		}
		t, err := parseTime(mJoinedAt)
		if err != nil {
			return nil, fmt.Errorf("store: parse member joined_at: %w", err)
		}
		m.JoinedAt = t
		s.Members = append(s.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate members: %w", err)
	}

	return &s, nil
}

// ListSwarms returns every swarm with its full roster.
func (r *SwarmRepository) ListSwarms(ctx context.Context) ([]Swarm, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT swarm_id FROM swarms`)
	if err != nil {
		return nil, fmt.Errorf("store: list swarms: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan swarm id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	swarms := make([]Swarm, 0, len(ids))
	for _, id := range ids {
		s, err := r.GetSwarm(ctx, id)
		if err != nil {
			return nil, err
		}
		swarms = append(swarms, *s)
	}
	return swarms, nil
}

// DeleteSwarm removes a swarm; member rows cascade via the foreign key.
func (r *SwarmRepository) DeleteSwarm(ctx context.Context, swarmID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM swarms WHERE swarm_id = ?`, swarmID)
	if err != nil {
		return false, fmt.Errorf("store: delete swarm %s: %w", swarmID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
