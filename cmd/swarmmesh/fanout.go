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

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/swarmmesh/core/message"
	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/sage-x-project/swarmmesh/internal/logger"
	"github.com/sage-x-project/swarmmesh/internal/store"
)

// systemContent is the content body of a membership system message
// delivered over the wire during leave/kick fan-out.
type systemContent struct {
	Action  string `json:"action"`
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason,omitempty"`
}

// buildSystemWire constructs and signs one system-typed wire message,
// returning its canonical JSON form ready to POST.
func (a *app) buildSystemWire(kp identity.KeyPair, recipient, swarmID string, content systemContent) ([]byte, error) {
	body, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	wire := message.Wire{
		ProtocolVersion: "1.0.0",
		MessageID:       uuid.NewString(),
		Timestamp:       time.Now(),
		Sender:          message.Sender{AgentID: a.cfg.Identity.AgentID, Endpoint: a.cfg.Identity.Endpoint},
		Recipient:       recipient,
		SwarmID:         swarmID,
		Type:            message.TypeSystem,
		Content:         string(body),
	}
	wire.Signature = identity.Sign(kp.PrivateKey, wire.SigningPayload())
	return wire.ToWireJSON()
}

// deliverSystemMessage signs a system message for one recipient and POSTs
// it to that member's ingress endpoint.
func (a *app) deliverSystemMessage(ctx context.Context, kp identity.KeyPair, target store.Member, swarmID string, content systemContent) error {
	raw, err := a.buildSystemWire(kp, target.AgentID, swarmID, content)
	if err != nil {
		return err
	}
	_, err = a.client.PostRaw(ctx, target.Endpoint+"/swarm/message", raw)
	return err
}

// fanOutSystemBroadcast signs one broadcast system message and POSTs it to
// every member of the swarm except this agent and any excluded IDs.
// Per-recipient failures are logged, never raised; the number of
// successful deliveries is returned.
func (a *app) fanOutSystemBroadcast(ctx context.Context, kp identity.KeyPair, swarm *store.Swarm, content systemContent, exclude ...string) int {
	skip := map[string]bool{a.cfg.Identity.AgentID: true}
	for _, id := range exclude {
		skip[id] = true
	}

	raw, err := a.buildSystemWire(kp, message.BroadcastRecipient, swarm.SwarmID, content)
	if err != nil {
		logger.Warn("failed to build lifecycle broadcast", logger.String("action", content.Action), logger.Err(err))
		return 0
	}

	delivered := 0
	for _, m := range swarm.Members {
		if skip[m.AgentID] {
			continue
		}
		if _, err := a.client.PostRaw(ctx, m.Endpoint+"/swarm/message", raw); err != nil {
			logger.Warn("lifecycle broadcast delivery failed",
				logger.String("action", content.Action),
				logger.String("agent_id", m.AgentID),
				logger.Err(err))
			continue
		}
		delivered++
	}
	return delivered
}
