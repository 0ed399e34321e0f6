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

func seedOutboxMessage(t *testing.T, repo *OutboxRepository, id, swarmID string, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), OutboxMessage{
		MessageID:   id,
		SwarmID:     swarmID,
		RecipientID: "agent-b",
		MessageType: "task",
		Content:     `{"hello":"world"}`,
		SentAt:      at,
	}))
}

func TestOutboxInsertAndGet(t *testing.T) {
	m := newTestManager(t)
	repo := NewOutboxRepository(m.Conn())
	now := time.Now()
	seedOutboxMessage(t, repo, "out-1", "swarm-1", now)

	got, err := repo.GetByID(context.Background(), "out-1")
	require.NoError(t, err)
	assert.Equal(t, OutboxSent, got.Status)
	assert.Nil(t, got.DeliveredAt)
}

func TestOutboxMarkDeliveredGuardsTransition(t *testing.T) {
	m := newTestManager(t)
	repo := NewOutboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()
	seedOutboxMessage(t, repo, "out-2", "swarm-1", now)

	changed, err := repo.MarkDelivered(ctx, "out-2", now)
	require.NoError(t, err)
	assert.True(t, changed)

	// already delivered, can't also mark failed
	changed, err = repo.MarkFailed(ctx, "out-2", "timeout")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestOutboxMarkFailedRecordsError(t *testing.T) {
	m := newTestManager(t)
	repo := NewOutboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()
	seedOutboxMessage(t, repo, "out-3", "swarm-1", now)

	changed, err := repo.MarkFailed(ctx, "out-3", "connection refused")
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := repo.GetByID(ctx, "out-3")
	require.NoError(t, err)
	assert.Equal(t, OutboxFailed, got.Status)
	assert.Equal(t, "connection refused", got.Error)
}

func TestOutboxListBySwarmAndCount(t *testing.T) {
	m := newTestManager(t)
	repo := NewOutboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	seedOutboxMessage(t, repo, "out-4", "swarm-a", now)
	seedOutboxMessage(t, repo, "out-5", "swarm-a", now.Add(time.Second))
	seedOutboxMessage(t, repo, "out-6", "swarm-b", now)

	list, err := repo.ListBySwarm(ctx, "swarm-a", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "out-5", list[0].MessageID, "newest first")

	count, err := repo.CountBySwarm(ctx, "swarm-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	all, err := repo.ListAll(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
