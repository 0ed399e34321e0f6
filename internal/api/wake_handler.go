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
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sage-x-project/swarmmesh/core/wake"
	"github.com/sage-x-project/swarmmesh/internal/logger"
	"github.com/sage-x-project/swarmmesh/internal/metrics"
	"github.com/sage-x-project/swarmmesh/internal/store"
)

type wakeRequest struct {
	MessageID         string `json:"message_id"`
	SwarmID           string `json:"swarm_id"`
	SenderID          string `json:"sender_id"`
	NotificationLevel string `json:"notification_level"`
}

// handleAPIWake implements the safeguarded /api/wake contract: authenticate
// the caller, suppress the call if a local agent session is already
// active, consult sdk_sessions for a resumable continuity session, take the
// invocation lock so at most one invocation runs at a time, dispatch, and
// persist the resulting session state.
func (s *Server) handleAPIWake(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Wake.Enabled || s.deps.WakeSessions == nil || s.deps.WakeLock == nil || s.deps.WakeInvoker == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "wake endpoint disabled", Code: "WAKE_ENDPOINT_DISABLED"})
		return
	}
	if !authenticateWake(r, s.deps.Wake.Secret) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "missing or invalid X-Wake-Secret", Code: "FORBIDDEN"})
		return
	}

	var req wakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON body", Code: "INVALID_FORMAT"})
		return
	}

	now := timeNow()
	timeout := s.deps.Wake.SessionTimeout
	if timeout <= 0 {
		timeout = store.DefaultSessionTimeout
	}

	resumable, err := s.deps.WakeSessions.ShouldResume()
	if err != nil {
		logger.Warn("wake session lookup failed", logger.Err(err))
	}
	if resumable {
		metrics.Global().RecordWakeSuppression()
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_active"})
		return
	}

	// Conversation continuity: a still-fresh sdk_sessions row for this
	// swarm/peer pair becomes a resume hint; GetActive drops a stale one.
	var resumeSessionID string
	if s.deps.Sessions != nil && req.SwarmID != "" && req.SenderID != "" {
		if sdk, err := s.deps.Sessions.GetActive(r.Context(), req.SwarmID, req.SenderID, timeout); err == nil && sdk != nil {
			resumeSessionID = sdk.SessionID
		}
	}

	if !s.deps.WakeLock.TryAcquire() {
		metrics.Global().RecordWakeSuppression()
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_active"})
		return
	}

	// The 202 goes out before the invoker runs: an invoker may take
	// arbitrarily long, and failures past this point are logged, never
	// returned. The lock is held until the invocation finishes.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "invoked"})

	payload := wake.WakePayload{
		MessageID:         req.MessageID,
		SwarmID:           req.SwarmID,
		SenderID:          req.SenderID,
		NotificationLevel: req.NotificationLevel,
	}
	go s.invokeAndPersist(payload, resumeSessionID, now)
}

// invokeAndPersist runs the invoker under the invocation lock and records
// the resulting session state. It runs detached from the originating
// request, which has already been answered.
func (s *Server) invokeAndPersist(payload wake.WakePayload, resumeSessionID string, now time.Time) {
	defer s.deps.WakeLock.Release()
	if s.wakeDone != nil {
		defer s.wakeDone()
	}

	ctx := context.Background()
	newSessionID, err := s.deps.WakeInvoker.Invoke(ctx, payload)
	if err != nil {
		logger.Error("wake invocation failed", logger.String("message_id", payload.MessageID), logger.Err(err))
		return
	}
	metrics.Global().RecordWakeInvocation()

	sessionID := newSessionID
	if sessionID == "" {
		sessionID = resumeSessionID
	}
	// The local session file always records the invocation, even for
	// strategies that yield no resumable session identifier.
	localSessionID := sessionID
	if localSessionID == "" {
		localSessionID = payload.MessageID
	}
	if err := s.deps.WakeSessions.Start(localSessionID, payload.SwarmID, now); err != nil {
		logger.Warn("failed to persist wake session state", logger.Err(err))
	}
	if sessionID != "" && s.deps.Sessions != nil && payload.SwarmID != "" && payload.SenderID != "" {
		if err := s.deps.Sessions.Upsert(ctx, store.SDKSession{
			SwarmID:    payload.SwarmID,
			PeerID:     payload.SenderID,
			SessionID:  sessionID,
			LastActive: now,
			State:      store.SessionActive,
		}); err != nil {
			logger.Warn("failed to persist sdk session continuity record", logger.Err(err))
		}
	}
}

// authenticateWake reports whether the request carries the configured
// X-Wake-Secret. A constant-time comparison avoids leaking the secret's
// length through response timing.
func authenticateWake(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	got := r.Header.Get("X-Wake-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}
