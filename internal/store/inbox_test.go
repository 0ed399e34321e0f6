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

func seedInboxMessage(t *testing.T, repo *InboxRepository, id string, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), InboxMessage{
		MessageID:   id,
		SwarmID:     "swarm-1",
		SenderID:    "agent-a",
		MessageType: "task",
		Content:     `{"hello":"world"}`,
		ReceivedAt:  at,
	}))
}

func TestInboxInsertAndGet(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	now := time.Now()
	seedInboxMessage(t, repo, "msg-1", now)

	got, err := repo.GetByID(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.Equal(t, InboxUnread, got.Status)
	assert.Nil(t, got.ReadAt)
}

func TestInboxMarkReadGuardsTransition(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()
	seedInboxMessage(t, repo, "msg-2", now)

	changed, err := repo.MarkRead(ctx, "msg-2", now)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := repo.GetByID(ctx, "msg-2")
	require.NoError(t, err)
	assert.Equal(t, InboxRead, got.Status)
	require.NotNil(t, got.ReadAt)

	// already read: second call is a no-op, not an error
	changedAgain, err := repo.MarkRead(ctx, "msg-2", now)
	require.NoError(t, err)
	assert.False(t, changedAgain)
}

func TestInboxArchiveAndDelete(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()
	seedInboxMessage(t, repo, "msg-3", now)

	archived, err := repo.MarkArchived(ctx, "msg-3")
	require.NoError(t, err)
	assert.True(t, archived)

	deleted, err := repo.MarkDeleted(ctx, "msg-3", now)
	require.NoError(t, err)
	assert.True(t, deleted)

	// already deleted: further deletes are no-ops
	deletedAgain, err := repo.MarkDeleted(ctx, "msg-3", now)
	require.NoError(t, err)
	assert.False(t, deletedAgain)
}

func TestInboxListVisibleExcludesDeletedByDefault(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	seedInboxMessage(t, repo, "msg-4", now)
	seedInboxMessage(t, repo, "msg-5", now.Add(time.Second))
	_, err := repo.MarkDeleted(ctx, "msg-4", now)
	require.NoError(t, err)

	visible, err := repo.ListVisible(ctx, "", "", "", 10)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "msg-5", visible[0].MessageID)

	all, err := repo.ListVisible(ctx, "all", "", "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInboxCountByStatus(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	seedInboxMessage(t, repo, "msg-6", now)
	seedInboxMessage(t, repo, "msg-7", now)
	_, err := repo.MarkRead(ctx, "msg-7", now)
	require.NoError(t, err)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[InboxUnread])
	assert.Equal(t, 1, counts[InboxRead])
}

func TestInboxBatchUpdateStatus(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	seedInboxMessage(t, repo, "msg-8", now)
	seedInboxMessage(t, repo, "msg-9", now)

	n, err := repo.BatchUpdateStatus(ctx, []string{"msg-8", "msg-9"}, []InboxStatus{InboxUnread}, InboxRead, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// second pass: already read, guarded 'from' excludes them
	n, err = repo.BatchUpdateStatus(ctx, []string{"msg-8", "msg-9"}, []InboxStatus{InboxUnread}, InboxRead, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInboxPurgeDeleted(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	seedInboxMessage(t, repo, "msg-10", now)
	_, err := repo.MarkDeleted(ctx, "msg-10", now)
	require.NoError(t, err)

	n, err := repo.PurgeDeleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetByID(ctx, "msg-10")
	assert.Error(t, err)
}

func TestInboxPurgeOlderThan(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	seedInboxMessage(t, repo, "msg-old-deleted", old)
	_, err := repo.MarkDeleted(ctx, "msg-old-deleted", old)
	require.NoError(t, err)

	seedInboxMessage(t, repo, "msg-recent-deleted", recent)
	_, err = repo.MarkDeleted(ctx, "msg-recent-deleted", recent)
	require.NoError(t, err)

	seedInboxMessage(t, repo, "msg-old-archived", old)
	_, err = repo.MarkArchived(ctx, "msg-old-archived")
	require.NoError(t, err)

	cutoff := time.Now().Add(-24 * time.Hour)

	n, err := repo.PurgeOlderThan(ctx, cutoff, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = repo.GetByID(ctx, "msg-old-deleted")
	assert.Error(t, err)
	_, err = repo.GetByID(ctx, "msg-recent-deleted")
	assert.NoError(t, err)

	n, err = repo.PurgeOlderThan(ctx, cutoff, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = repo.GetByID(ctx, "msg-old-archived")
	assert.Error(t, err)
}

func TestInboxListByStatusLimitValidation(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())

	_, err := repo.ListByStatus(context.Background(), InboxUnread, 0)
	assert.Error(t, err)
}

func TestInboxDumpAllIncludesDeletedRows(t *testing.T) {
	m := newTestManager(t)
	repo := NewInboxRepository(m.Conn())
	ctx := context.Background()
	now := time.Now()

	seedInboxMessage(t, repo, "msg-keep", now)
	seedInboxMessage(t, repo, "msg-gone", now)
	deleted, err := repo.MarkDeleted(ctx, "msg-gone", now)
	require.NoError(t, err)
	require.True(t, deleted)

	// ListRecent hides deleted rows; a full dump keeps them.
	visible, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := repo.DumpAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
