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

// Package message defines the swarmmesh wire message format: the shape
// exchanged between agents over the ingress HTTP boundary, its validation
// rules and its canonical signing payload.
package message

import (
	"time"
)

// Type enumerates the recognized wire message categories.
type Type string

const (
	TypeMessage      Type = "message"
	TypeSystem       Type = "system"
	TypeNotification Type = "notification"
)

// Priority is the delivery priority hint carried on a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// BroadcastRecipient is the literal recipient value meaning "every member
// of the swarm" rather than a single agent_id.
const BroadcastRecipient = "broadcast"

// MaxContentLength is the maximum allowed length, in runes, of a message's
// content field.
const MaxContentLength = 65536

// Sender identifies the originating agent of a message.
type Sender struct {
	AgentID  string `json:"agent_id"`
	Endpoint string `json:"endpoint"`
}

// AttachmentType enumerates the supported attachment kinds.
type AttachmentType string

// Attachment is a small inline payload carried alongside a message.
type Attachment struct {
	Type     AttachmentType `json:"type"`
	MimeType string         `json:"mime_type"`
	Content  string         `json:"content"`
}

// ReferenceType enumerates what a Reference points at.
type ReferenceType string

// ReferenceAction is an optional action annotation on a Reference.
type ReferenceAction string

// Reference links a message to an external artifact (a repo, a PR, a
// commit, an arbitrary URL).
type Reference struct {
	Type   ReferenceType    `json:"type"`
	Repo   string           `json:"repo,omitempty"`
	Number int              `json:"number,omitempty"`
	SHA    string           `json:"sha,omitempty"`
	URL    string           `json:"url,omitempty"`
	Action *ReferenceAction `json:"action,omitempty"`
}

// Wire is the canonical, on-the-wire message representation exchanged
// between swarm members.
type Wire struct {
	ProtocolVersion string                 `json:"protocol_version"`
	MessageID       string                 `json:"message_id"`
	Timestamp       time.Time              `json:"timestamp"`
	Sender          Sender                 `json:"sender"`
	Recipient       string                 `json:"recipient"`
	SwarmID         string                 `json:"swarm_id"`
	Type            Type                   `json:"type"`
	Content         string                 `json:"content"`
	Signature       string                 `json:"signature"`
	InReplyTo       string                 `json:"in_reply_to,omitempty"`
	ThreadID        string                 `json:"thread_id,omitempty"`
	Priority        Priority               `json:"priority,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	Attachments     []Attachment           `json:"attachments,omitempty"`
	References      []Reference            `json:"references,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}
