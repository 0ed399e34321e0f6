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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionUpsertAndGet(t *testing.T) {
	m := newTestManager(t)
	repo := NewSessionRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, SDKSession{
		SwarmID: "swarm-1", PeerID: "peer-1", SessionID: "sess-abc", LastActive: now,
	}))

	got, err := repo.Get(ctx, "swarm-1", "peer-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess-abc", got.SessionID)
	assert.Equal(t, SessionActive, got.State)
}

func TestSessionUpsertRefreshesExisting(t *testing.T) {
	m := newTestManager(t)
	repo := NewSessionRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, SDKSession{SwarmID: "s", PeerID: "p", SessionID: "old", LastActive: now}))
	require.NoError(t, repo.Upsert(ctx, SDKSession{SwarmID: "s", PeerID: "p", SessionID: "new", LastActive: now.Add(time.Minute)}))

	got, err := repo.Get(ctx, "s", "p")
	require.NoError(t, err)
	assert.Equal(t, "new", got.SessionID)
}

func TestSessionGetActiveExpiresIdleSession(t *testing.T) {
	m := newTestManager(t)
	repo := NewSessionRepository(m.Conn())
	ctx := context.Background()

	stale := time.Now().Add(-5 * time.Hour)
	require.NoError(t, repo.Upsert(ctx, SDKSession{
		SwarmID: "swarm-2", PeerID: "peer-2", SessionID: "sess-stale", LastActive: stale,
	}))

	active, err := repo.GetActive(ctx, "swarm-2", "peer-2", DefaultSessionTimeout)
	require.NoError(t, err)
	assert.Nil(t, active, "idle past timeout should be treated as expired")

	// the expired row should have been purged
	got, err := repo.Get(ctx, "swarm-2", "peer-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionGetActiveWithinTimeout(t *testing.T) {
	m := newTestManager(t)
	repo := NewSessionRepository(m.Conn())
	ctx := context.Background()

	recent := time.Now().Add(-10 * time.Minute)
	require.NoError(t, repo.Upsert(ctx, SDKSession{
		SwarmID: "swarm-3", PeerID: "peer-3", SessionID: "sess-fresh", LastActive: recent,
	}))

	active, err := repo.GetActive(ctx, "swarm-3", "peer-3", DefaultSessionTimeout)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "sess-fresh", active.SessionID)
}

func TestSessionDeleteAndPurgeExpired(t *testing.T) {
	m := newTestManager(t)
	repo := NewSessionRepository(m.Conn())
	ctx := context.Background()

	old := timeNow
	fixedNow := time.Now()
	timeNow = func() time.Time { return fixedNow }
	defer func() { timeNow = old }()

	require.NoError(t, repo.Upsert(ctx, SDKSession{
		SwarmID: "s1", PeerID: "p1", SessionID: "a", LastActive: fixedNow.Add(-10 * time.Hour),
	}))
	require.NoError(t, repo.Upsert(ctx, SDKSession{
		SwarmID: "s2", PeerID: "p2", SessionID: "b", LastActive: fixedNow,
	}))

	n, err := repo.PurgeExpired(ctx, DefaultSessionTimeout)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	removed, err := repo.Delete(ctx, "s2", "p2")
	require.NoError(t, err)
	assert.True(t, removed)
}
