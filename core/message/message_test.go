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
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWire() Wire {
	return Wire{
		ProtocolVersion: "0.1.0",
		MessageID:       uuid.NewString(),
		Timestamp:       time.Date(2026, 1, 15, 10, 30, 0, 123000000, time.UTC),
		Sender:          Sender{AgentID: "agent-a", Endpoint: "https://agent-a.example.com"},
		Recipient:       "agent-b",
		SwarmID:         uuid.NewString(),
		Type:            TypeMessage,
		Content:         "hello",
	}
}

func TestValidateAcceptsWellFormedMessage(t *testing.T) {
	w := validWire()
	assert.NoError(t, w.Validate())
}

func TestValidateRejectsBadProtocolVersion(t *testing.T) {
	w := validWire()
	w.ProtocolVersion = "v1"
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindFormat))
}

func TestValidateRejectsNonHTTPSEndpoint(t *testing.T) {
	w := validWire()
	w.Sender.Endpoint = "http://agent-a.example.com"
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindFormat))
}

func TestValidateRejectsBadType(t *testing.T) {
	w := validWire()
	w.Type = "broadcast-storm"
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindFormat))
}

func TestValidateRejectsOversizedContent(t *testing.T) {
	w := validWire()
	huge := make([]byte, MaxContentLength+1)
	for i := range huge {
		huge[i] = 'a'
	}
	w.Content = string(huge)
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindFormat))
}

func TestValidateAllowsBroadcastRecipient(t *testing.T) {
	w := validWire()
	w.Recipient = BroadcastRecipient
	assert.NoError(t, w.Validate())
}

func TestSigningPayloadIsDeterministicAndBindsFields(t *testing.T) {
	w := validWire()
	p1 := w.SigningPayload()
	p2 := w.SigningPayload()
	assert.Equal(t, p1, p2)

	tampered := w
	tampered.Content = "goodbye"
	assert.NotEqual(t, p1, tampered.SigningPayload())
}

func TestToWireJSONOmitsDefaultPriority(t *testing.T) {
	w := validWire()
	w.Priority = PriorityNormal

	out, err := w.ToWireJSON()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	_, hasPriority := doc["priority"]
	assert.False(t, hasPriority, "default priority should be omitted")
}

func TestToWireJSONIncludesNonDefaultPriority(t *testing.T) {
	w := validWire()
	w.Priority = PriorityHigh

	out, err := w.ToWireJSON()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "high", doc["priority"])
}

func TestToWireJSONFormatsTimestampWithMillisecondZSuffix(t *testing.T) {
	w := validWire()
	out, err := w.ToWireJSON()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "2026-01-15T10:30:00.123Z", doc["timestamp"])
}
