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

package message

import (
	"crypto/sha256"
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/swarmmesh/internal/errs"
)

var protocolVersionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Validate checks that every required field of the wire message is
// structurally well-formed. It does not verify the signature — that
// requires a resolved public key and is the caller's responsibility.
func (w *Wire) Validate() error {
	if !protocolVersionPattern.MatchString(w.ProtocolVersion) {
		return errs.Newf(errs.KindFormat, "protocol_version %q is not X.Y.Z", w.ProtocolVersion)
	}
	if _, err := uuid.Parse(w.MessageID); err != nil {
		return errs.Newf(errs.KindFormat, "message_id %q is not a valid UUID", w.MessageID)
	}
	if _, err := uuid.Parse(w.SwarmID); err != nil {
		return errs.Newf(errs.KindFormat, "swarm_id %q is not a valid UUID", w.SwarmID)
	}
	if w.Timestamp.IsZero() {
		return errs.New(errs.KindFormat, "timestamp is required")
	}
	if w.Sender.AgentID == "" {
		return errs.New(errs.KindFormat, "sender.agent_id is required")
	}
	if !httpsEndpointPattern.MatchString(w.Sender.Endpoint) {
		return errs.Newf(errs.KindFormat, "sender.endpoint %q must begin with https://", w.Sender.Endpoint)
	}
	if w.Recipient == "" {
		return errs.New(errs.KindFormat, "recipient is required")
	}
	switch w.Type {
	case TypeMessage, TypeSystem, TypeNotification:
	default:
		return errs.Newf(errs.KindFormat, "type %q is not one of message|system|notification", w.Type)
	}
	if len([]rune(w.Content)) > MaxContentLength {
		return errs.Newf(errs.KindFormat, "content exceeds %d characters", MaxContentLength)
	}
	switch w.Priority {
	case "", PriorityLow, PriorityNormal, PriorityHigh:
	default:
		return errs.Newf(errs.KindFormat, "priority %q is not one of low|normal|high", w.Priority)
	}
	if w.InReplyTo != "" {
		if _, err := uuid.Parse(w.InReplyTo); err != nil {
			return errs.Newf(errs.KindFormat, "in_reply_to %q is not a valid UUID", w.InReplyTo)
		}
	}
	if w.ThreadID != "" {
		if _, err := uuid.Parse(w.ThreadID); err != nil {
			return errs.Newf(errs.KindFormat, "thread_id %q is not a valid UUID", w.ThreadID)
		}
	}
	return nil
}

var httpsEndpointPattern = regexp.MustCompile(`^https://`)

// timestampMillisZ formats t as millisecond-precision UTC with a literal Z
// suffix, the exact representation the signing payload and wire format use.
func timestampMillisZ(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// SigningPayload computes the canonical SHA-256 digest that a message's
// signature authenticates: message_id || ts_millis_z || swarm_id ||
// recipient || type || content.
func (w *Wire) SigningPayload() []byte {
	buf := w.MessageID + timestampMillisZ(w.Timestamp) + w.SwarmID + w.Recipient + string(w.Type) + w.Content
	sum := sha256.Sum256([]byte(buf))
	return sum[:]
}

// wireDoc is the JSON shape written to the network, distinct from Wire so
// that zero-valued optional fields can be omitted by construction rather
// than relying on encoding/json's omitempty heuristics for structs.
type wireDoc struct {
	ProtocolVersion string                 `json:"protocol_version"`
	MessageID       string                 `json:"message_id"`
	Timestamp       string                 `json:"timestamp"`
	Sender          Sender                 `json:"sender"`
	Recipient       string                 `json:"recipient"`
	SwarmID         string                 `json:"swarm_id"`
	Type            Type                   `json:"type"`
	Content         string                 `json:"content"`
	Signature       string                 `json:"signature"`
	InReplyTo       string                 `json:"in_reply_to,omitempty"`
	ThreadID        string                 `json:"thread_id,omitempty"`
	Priority        Priority               `json:"priority,omitempty"`
	ExpiresAt       string                 `json:"expires_at,omitempty"`
	Attachments     []Attachment           `json:"attachments,omitempty"`
	References      []Reference            `json:"references,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// ToWireJSON renders the message in its canonical on-the-wire JSON form,
// omitting optional fields that equal their defaults (priority == normal,
// empty attachments/references/metadata).
func (w *Wire) ToWireJSON() ([]byte, error) {
	doc := wireDoc{
		ProtocolVersion: w.ProtocolVersion,
		MessageID:       w.MessageID,
		Timestamp:       timestampMillisZ(w.Timestamp),
		Sender:          w.Sender,
		Recipient:       w.Recipient,
		SwarmID:         w.SwarmID,
		Type:            w.Type,
		Content:         w.Content,
		Signature:       w.Signature,
		InReplyTo:       w.InReplyTo,
		ThreadID:        w.ThreadID,
		Attachments:     w.Attachments,
		References:      w.References,
		Metadata:        w.Metadata,
	}
	if w.Priority != "" && w.Priority != PriorityNormal {
		doc.Priority = w.Priority
	}
	if w.ExpiresAt != nil {
		doc.ExpiresAt = timestampMillisZ(*w.ExpiresAt)
	}
	return json.Marshal(doc)
}
