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

func TestPublicKeyStoreAndGet(t *testing.T) {
	m := newTestManager(t)
	repo := NewPublicKeyRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Store(ctx, PublicKeyEntry{
		AgentID: "agent-a", PublicKey: "pk-a", FetchedAt: now, Endpoint: "http://a",
	}))

	got, err := repo.Get(ctx, "agent-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pk-a", got.PublicKey)
}

func TestPublicKeyStoreUpserts(t *testing.T) {
	m := newTestManager(t)
	repo := NewPublicKeyRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Store(ctx, PublicKeyEntry{AgentID: "agent-b", PublicKey: "old", FetchedAt: now}))
	require.NoError(t, repo.Store(ctx, PublicKeyEntry{AgentID: "agent-b", PublicKey: "new", FetchedAt: now}))

	got, err := repo.Get(ctx, "agent-b")
	require.NoError(t, err)
	assert.Equal(t, "new", got.PublicKey)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPublicKeyDelete(t *testing.T) {
	m := newTestManager(t)
	repo := NewPublicKeyRepository(m.Conn())
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, PublicKeyEntry{AgentID: "agent-c", PublicKey: "pk-c", FetchedAt: time.Now()}))

	removed, err := repo.Delete(ctx, "agent-c")
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := repo.Get(ctx, "agent-c")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPublicKeyGetStale(t *testing.T) {
	m := newTestManager(t)
	repo := NewPublicKeyRepository(m.Conn())
	ctx := context.Background()

	fixedNow := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	old := timeNow
	timeNow = func() time.Time { return fixedNow }
	defer func() { timeNow = old }()

	require.NoError(t, repo.Store(ctx, PublicKeyEntry{
		AgentID: "stale-agent", PublicKey: "pk", FetchedAt: fixedNow.Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.Store(ctx, PublicKeyEntry{
		AgentID: "fresh-agent", PublicKey: "pk", FetchedAt: fixedNow.Add(-1 * time.Hour),
	}))

	stale, err := repo.GetStale(ctx, DefaultPublicKeyTTLHours)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "stale-agent", stale[0].AgentID)
}
