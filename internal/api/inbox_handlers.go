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
	"net/http"
	"strconv"

	"github.com/sage-x-project/swarmmesh/core/inbox"
	"github.com/sage-x-project/swarmmesh/internal/metrics"
	"github.com/sage-x-project/swarmmesh/internal/store"
)

const defaultListLimit = 50

// maxBatchSize caps how many message IDs one batch request may carry.
const maxBatchSize = 100

func messageView(msg store.InboxMessage) map[string]any {
	return map[string]any{
		"message_id":      msg.MessageID,
		"swarm_id":        msg.SwarmID,
		"sender_id":       msg.SenderID,
		"recipient_id":    msg.RecipientID,
		"message_type":    msg.MessageType,
		"content_preview": inbox.Preview(msg.Content),
		"status":          msg.Status,
		"received_at":     msg.ReceivedAt,
	}
}

func messageDetailView(msg store.InboxMessage) map[string]any {
	v := messageView(msg)
	v["content"] = msg.Content
	delete(v, "content_preview")
	return v
}

func (s *Server) handleInboxList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := s.deps.Inbox.List(r.Context(), q.Get("status"), q.Get("swarm_id"), q.Get("sender_id"), parseLimit(q.Get("limit")))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		views[i] = messageView(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views, "count": len(views)})
}

func (s *Server) handleInboxCount(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.Inbox.CountByStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleInboxGet(w http.ResponseWriter, r *http.Request) {
	msg, err := s.deps.Inbox.Get(r.Context(), r.PathValue("id"), timeNow())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageDetailView(*msg))
}

func (s *Server) handleInboxMarkRead(w http.ResponseWriter, r *http.Request) {
	updated, err := s.deps.Inbox.MarkRead(r.Context(), r.PathValue("id"), timeNow())
	if err != nil {
		writeError(w, err)
		return
	}
	if updated {
		metrics.Global().RecordInboxTransition("unread", "read")
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "updated": boolToCount(updated)})
}

func (s *Server) handleInboxArchive(w http.ResponseWriter, r *http.Request) {
	updated, err := s.deps.Inbox.Archive(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if updated {
		metrics.Global().RecordInboxTransition("visible", "archived")
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "updated": boolToCount(updated)})
}

func (s *Server) handleInboxDelete(w http.ResponseWriter, r *http.Request) {
	updated, err := s.deps.Inbox.Delete(r.Context(), r.PathValue("id"), timeNow())
	if err != nil {
		writeError(w, err)
		return
	}
	if updated {
		metrics.Global().RecordInboxTransition("visible", "deleted")
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "updated": boolToCount(updated)})
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

type batchRequest struct {
	MessageIDs []string `json:"message_ids"`
	Action     string   `json:"action"`
}

func (s *Server) handleInboxBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON body", Code: "INVALID_FORMAT"})
		return
	}
	if len(req.MessageIDs) > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "too many message_ids in one batch", Code: "VALIDATION_ERROR"})
		return
	}
	n, err := s.deps.Inbox.Batch(r.Context(), req.MessageIDs, req.Action, timeNow())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"action": req.Action, "updated": n, "total": len(req.MessageIDs)})
}

func (s *Server) handleOutboxList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := s.deps.Outbox.List(r.Context(), q.Get("swarm_id"), parseLimit(q.Get("limit")))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		views[i] = map[string]any{
			"message_id":   m.MessageID,
			"swarm_id":     m.SwarmID,
			"recipient_id": m.RecipientID,
			"message_type": m.MessageType,
			"status":       m.Status,
			"sent_at":      m.SentAt,
			"delivered_at": m.DeliveredAt,
			"error":        m.Error,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views, "count": len(views)})
}

func (s *Server) handleOutboxCount(w http.ResponseWriter, r *http.Request) {
	swarmID := r.URL.Query().Get("swarm_id")
	if swarmID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "swarm_id is required", Code: "VALIDATION_ERROR"})
		return
	}
	counts, err := s.deps.Outbox.CountBySwarmAndStatus(r.Context(), swarmID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return n
}
