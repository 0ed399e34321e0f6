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

package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/swarmmesh/internal/store"
)

// lifecycleAction names a membership event recorded as a system
// notification in the local inbox and broadcast to the swarm's other
// members.
type lifecycleAction string

const (
	lifecycleMemberJoined  lifecycleAction = "member_joined"
	lifecycleMemberLeft    lifecycleAction = "member_left"
	lifecycleMemberKicked  lifecycleAction = "member_kicked"
	lifecycleMemberMuted   lifecycleAction = "member_muted"
	lifecycleMemberUnmuted lifecycleAction = "member_unmuted"
)

type lifecycleContent struct {
	Type        string `json:"type"`
	Action      string `json:"action"`
	SwarmID     string `json:"swarm_id"`
	AgentID     string `json:"agent_id"`
	InitiatedBy string `json:"initiated_by,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// notifyLifecycle records one system notification in the local inbox
// reporting a membership change. It is fire-and-forget: a failure here is
// logged by the caller and never fails the originating membership
// operation. Delivery to the swarm's other members is the wire fan-out's
// job, not this record's.
func (s *Service) notifyLifecycle(ctx context.Context, swarmID string, action lifecycleAction, agentID, initiatedBy, reason string, now time.Time) error {
	content, err := json.Marshal(lifecycleContent{
		Type:        "system",
		Action:      string(action),
		SwarmID:     swarmID,
		AgentID:     agentID,
		InitiatedBy: initiatedBy,
		Reason:      reason,
	})
	if err != nil {
		return fmt.Errorf("membership: marshal lifecycle notification: %w", err)
	}

	sender := initiatedBy
	if sender == "" {
		sender = agentID
	}
	msg := store.InboxMessage{
		MessageID:   uuid.NewString(),
		SwarmID:     swarmID,
		SenderID:    sender,
		MessageType: "system",
		Content:     string(content),
		ReceivedAt:  now,
		Status:      store.InboxUnread,
	}
	if err := s.inbox.Insert(ctx, msg); err != nil {
		return fmt.Errorf("membership: persist %s notification: %w", action, err)
	}
	return nil
}
