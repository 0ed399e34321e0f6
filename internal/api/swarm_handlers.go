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

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sage-x-project/swarmmesh/core/membership"
	"github.com/sage-x-project/swarmmesh/core/message"
	"github.com/sage-x-project/swarmmesh/core/wake"
	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/logger"
	"github.com/sage-x-project/swarmmesh/internal/metrics"
	"github.com/sage-x-project/swarmmesh/internal/store"
)

// degradedThreshold is the fraction of queue capacity in use at which
// /swarm/health reports "degraded" rather than "healthy".
const degradedThreshold = 0.8

func (s *Server) handleSwarmMessage(w http.ResponseWriter, r *http.Request) {
	var wire message.Wire
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON body", Code: "INVALID_FORMAT"})
		return
	}
	if err := wire.Validate(); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()

	if existing, err := s.deps.Inboxes.GetByID(ctx, wire.MessageID); err == nil && existing != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "queued", "message_id": wire.MessageID})
		return
	}

	// The inbox keeps the complete wire document, not just the content
	// field, so later consumers can re-verify the signature.
	raw, err := wire.ToWireJSON()
	if err != nil {
		logger.Error("failed to serialize inbound message", logger.String("message_id", wire.MessageID), logger.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to record message", Code: "INTERNAL_ERROR"})
		return
	}

	if err := s.deps.Inboxes.Insert(ctx, store.InboxMessage{
		MessageID:   wire.MessageID,
		SwarmID:     wire.SwarmID,
		SenderID:    wire.Sender.AgentID,
		RecipientID: wire.Recipient,
		MessageType: string(wire.Type),
		Content:     string(raw),
		ReceivedAt:  timeNow(),
	}); err != nil {
		logger.Error("failed to record inbound message", logger.String("message_id", wire.MessageID), logger.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to record message", Code: "STORAGE_ERROR"})
		return
	}

	metrics.Global().RecordMessageReceived()

	accepted := s.queue.enqueue(queuedMessage{
		messageID: wire.MessageID,
		wakeCtx: wake.Context{
			SenderID:        wire.Sender.AgentID,
			SwarmID:         wire.SwarmID,
			Content:         wire.Content,
			IsDirectMention: wire.Recipient == s.deps.Identity.AgentID,
			IsSystemMessage: wire.Type == message.TypeSystem,
			IsHighPriority:  wire.Priority == message.PriorityHigh,
		},
	})
	if accepted {
		metrics.Global().RecordMessageQueued()
	} else {
		metrics.Global().RecordMessageDropped()
		logger.Warn("ingress queue full, dropping wake evaluation", logger.String("message_id", wire.MessageID))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "queued", "message_id": wire.MessageID})
}

type joinRequest struct {
	InviteURL      string `json:"invite_url"`
	AgentID        string `json:"agent_id"`
	AgentEndpoint  string `json:"agent_endpoint"`
	AgentPublicKey string `json:"agent_public_key"`
}

// swarmID recovers the swarm the request targets from its invite token,
// for response bodies produced before a full join completes.
func (j joinRequest) swarmID() string {
	_, rawToken, err := identity.UnwrapInviteURL(j.InviteURL)
	if err != nil {
		return ""
	}
	id, err := membership.ExtractSwarmIDFromToken(rawToken)
	if err != nil {
		return ""
	}
	return id
}

func (s *Server) handleSwarmJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON body", Code: "INVALID_TOKEN"})
		return
	}

	swarm, err := s.deps.Membership.Join(r.Context(), req.InviteURL, req.AgentID, req.AgentEndpoint, req.AgentPublicKey, timeNow())
	if err == nil {
		master, _ := s.deps.Swarms.FindMember(r.Context(), swarm.SwarmID, swarm.Master)
		masterEndpoint, masterPublicKey := "", ""
		if master != nil {
			masterEndpoint, masterPublicKey = master.Endpoint, master.PublicKey
		}
		members := make([]string, len(swarm.Members))
		for i, m := range swarm.Members {
			members[i] = m.AgentID
		}
		metrics.Global().RecordJoinAccepted()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "accepted",
			"swarm_id":          swarm.SwarmID,
			"swarm_name":        swarm.Name,
			"members":           members,
			"master":            swarm.Master,
			"master_endpoint":   masterEndpoint,
			"master_public_key": masterPublicKey,
		})
		return
	}

	var appErr *errs.Error
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL_ERROR"})
		return
	}

	switch appErr.Kind {
	case errs.KindApprovalNeeded:
		metrics.Global().RecordJoinPending()
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":   "pending",
			"swarm_id": req.swarmID(),
			"message":  appErr.Message,
		})
	case errs.KindSwarmNotFound:
		metrics.Global().RecordJoinRejected()
		writeJSON(w, http.StatusNotFound, errorBody{Error: appErr.Message, Code: "SWARM_NOT_FOUND"})
	case errs.KindSignature, errs.KindExpired:
		metrics.Global().RecordJoinRejected()
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: appErr.Message, Code: "INVALID_SIGNATURE"})
	default:
		metrics.Global().RecordJoinRejected()
		writeJSON(w, http.StatusBadRequest, errorBody{Error: appErr.Message, Code: "INVALID_TOKEN"})
	}
}

func (s *Server) handleSwarmHealth(w http.ResponseWriter, r *http.Request) {
	used, capacity := s.queue.occupancy()
	status := "healthy"
	if capacity > 0 && float64(used)/float64(capacity) >= degradedThreshold {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"agent_id":         s.deps.Identity.AgentID,
		"protocol_version": ProtocolVersion,
		"timestamp":        timeNow().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

func (s *Server) handleSwarmInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":         s.deps.Identity.AgentID,
		"endpoint":         s.deps.Identity.Endpoint,
		"public_key":       s.deps.Identity.PublicKey,
		"protocol_version": ProtocolVersion,
		"capabilities":     []string{"message", "wake"},
		"metadata": map[string]string{
			"name":        s.deps.Identity.Name,
			"description": s.deps.Identity.Description,
		},
	})
}
