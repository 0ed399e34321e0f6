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

// Package outbox implements the sent-message listing operations exposed
// at /api/outbox over internal/store's outbox repository.
package outbox

import (
	"context"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/store"
)

// Service exposes the outbox API's operations over a store.OutboxRepository.
type Service struct {
	repo *store.OutboxRepository
}

// NewService creates an outbox Service over repo.
func NewService(repo *store.OutboxRepository) *Service {
	return &Service{repo: repo}
}

// List returns sent messages, optionally narrowed to a single swarm.
func (s *Service) List(ctx context.Context, swarmID string, limit int) ([]store.OutboxMessage, error) {
	if swarmID != "" {
		return s.repo.ListBySwarm(ctx, swarmID, limit)
	}
	return s.repo.ListAll(ctx, limit)
}

// CountBySwarm reports the total number of sent messages for a swarm.
func (s *Service) CountBySwarm(ctx context.Context, swarmID string) (int, error) {
	return s.repo.CountBySwarm(ctx, swarmID)
}

// CountBySwarmAndStatus breaks a swarm's outbox counts down by status
// (sent/delivered/failed), for the richer /api/outbox/count response.
func (s *Service) CountBySwarmAndStatus(ctx context.Context, swarmID string) (map[store.OutboxStatus]int, error) {
	msgs, err := s.repo.DumpAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[store.OutboxStatus]int)
	for _, m := range msgs {
		if m.SwarmID != swarmID {
			continue
		}
		counts[m.Status]++
	}
	return counts, nil
}

// Record inserts a newly-sent message into the outbox.
func (s *Service) Record(ctx context.Context, msg store.OutboxMessage) error {
	return s.repo.Insert(ctx, msg)
}

// MarkDelivered records successful delivery of a previously-sent message.
func (s *Service) MarkDelivered(ctx context.Context, messageID string, at time.Time) (bool, error) {
	return s.repo.MarkDelivered(ctx, messageID, at)
}

// MarkFailed records a delivery failure for a previously-sent message.
func (s *Service) MarkFailed(ctx context.Context, messageID, reason string) (bool, error) {
	return s.repo.MarkFailed(ctx, messageID, reason)
}
