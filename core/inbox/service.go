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

// Package inbox implements the received-message lifecycle operations
// exposed at /api/inbox, wrapping internal/store's guarded status
// transitions with the list/get/batch semantics of the API layer.
package inbox

import (
	"context"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/store"
)

// ContentPreviewLength caps how much of a message body is surfaced in
// list views, matching the API layer's content_preview truncation.
const ContentPreviewLength = 200

// ValidStatusFilters are the accepted values for the status query
// parameter on List, "all" meaning "every non-deleted status".
var ValidStatusFilters = map[string]bool{
	"unread": true, "read": true, "archived": true, "all": true,
}

// Service exposes the inbox API's operations over a store.InboxRepository.
type Service struct {
	repo *store.InboxRepository
}

// NewService creates an inbox Service over repo.
func NewService(repo *store.InboxRepository) *Service {
	return &Service{repo: repo}
}

// List returns messages in statusFilter (defaulting to "unread" at the
// API boundary), optionally narrowed to a swarm and/or sender.
func (s *Service) List(ctx context.Context, statusFilter, swarmID, senderID string, limit int) ([]store.InboxMessage, error) {
	if statusFilter == "" {
		statusFilter = "unread"
	}
	if !ValidStatusFilters[statusFilter] {
		return nil, errs.Newf(errs.KindValidation, "invalid inbox status filter %q", statusFilter)
	}
	return s.repo.ListVisible(ctx, statusFilter, swarmID, senderID, limit)
}

// Get loads a single message, auto-marking it read if it was unread.
func (s *Service) Get(ctx context.Context, messageID string, now time.Time) (*store.InboxMessage, error) {
	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Status == store.InboxUnread {
		if _, err := s.repo.MarkRead(ctx, messageID, now); err != nil {
			return nil, err
		}
		msg, err = s.repo.GetByID(ctx, messageID)
		if err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// MarkRead explicitly marks a message read, reporting whether a row
// actually transitioned. A blocked transition (archived, deleted) is not
// an error; it reports false.
func (s *Service) MarkRead(ctx context.Context, messageID string, now time.Time) (bool, error) {
	if _, err := s.repo.GetByID(ctx, messageID); err != nil {
		return false, err
	}
	return s.repo.MarkRead(ctx, messageID, now)
}

// Archive transitions a message to archived. Only a deleted message
// rejects the archive outright; re-archiving an archived message reports
// zero rows updated.
func (s *Service) Archive(ctx context.Context, messageID string) (bool, error) {
	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.Status == store.InboxDeleted {
		return false, errs.Newf(errs.KindValidation, "cannot archive deleted message %s", messageID)
	}
	return s.repo.MarkArchived(ctx, messageID)
}

// Delete soft-deletes a message, reporting whether a row transitioned; a
// second delete reports false.
func (s *Service) Delete(ctx context.Context, messageID string, now time.Time) (bool, error) {
	if _, err := s.repo.GetByID(ctx, messageID); err != nil {
		return false, err
	}
	return s.repo.MarkDeleted(ctx, messageID, now)
}

// BatchAction is the set of actions the batch endpoint accepts, mapped
// to the status each message transitions to.
var BatchAction = map[string]store.InboxStatus{
	"read":    store.InboxRead,
	"archive": store.InboxArchived,
	"delete":  store.InboxDeleted,
}

// Batch applies action to every message ID, returning how many actually
// transitioned (IDs already in the target status, or not found, are
// silently skipped rather than erroring the whole batch).
func (s *Service) Batch(ctx context.Context, messageIDs []string, action string, now time.Time) (int, error) {
	target, ok := BatchAction[action]
	if !ok {
		return 0, errs.Newf(errs.KindValidation, "invalid inbox batch action %q", action)
	}
	return s.repo.BatchUpdateStatus(ctx, messageIDs, nil, target, now)
}

// CountByStatus reports the number of messages in each inbox status.
func (s *Service) CountByStatus(ctx context.Context) (map[store.InboxStatus]int, error) {
	return s.repo.CountByStatus(ctx)
}

// Preview truncates a message's content for list-view display.
func Preview(content string) string {
	r := []rune(content)
	if len(r) <= ContentPreviewLength {
		return content
	}
	return string(r[:ContentPreviewLength])
}
