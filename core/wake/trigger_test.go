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

package wake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMutes struct {
	mutedAgents map[string]bool
	mutedSwarms map[string]bool
}

func (f fakeMutes) IsAgentMuted(_ context.Context, agentID string) (bool, error) {
	return f.mutedAgents[agentID], nil
}

func (f fakeMutes) IsSwarmMuted(_ context.Context, swarmID string) (bool, error) {
	return f.mutedSwarms[swarmID], nil
}

type recordingInvoker struct {
	invoked []WakePayload
}

func (r *recordingInvoker) Invoke(_ context.Context, payload WakePayload) (string, error) {
	r.invoked = append(r.invoked, payload)
	return "", nil
}

func TestTriggerSkipsMutedSender(t *testing.T) {
	mutes := fakeMutes{mutedAgents: map[string]bool{"agent-spammer": true}}
	invoker := &recordingInvoker{}
	trigger := NewTrigger(DefaultPreferences(), mutes, invoker)

	event, err := trigger.Process(context.Background(), Context{SenderID: "agent-spammer", SwarmID: "swarm-1"}, "msg-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, DecisionSkip, event.Decision)
	assert.Empty(t, invoker.invoked)
}

func TestTriggerWakesOnNormalMessage(t *testing.T) {
	mutes := fakeMutes{}
	invoker := &recordingInvoker{}
	trigger := NewTrigger(DefaultPreferences(), mutes, invoker)

	event, err := trigger.Process(context.Background(), Context{SenderID: "agent-a", SwarmID: "swarm-1"}, "msg-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, DecisionWake, event.Decision)
	require.Len(t, invoker.invoked, 1)
	assert.Equal(t, "msg-1", invoker.invoked[0].MessageID)
}

func TestTriggerQueuesWhenDisabled(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.Enabled = false
	mutes := fakeMutes{}
	invoker := &recordingInvoker{}
	trigger := NewTrigger(prefs, mutes, invoker)

	event, err := trigger.Process(context.Background(), Context{SenderID: "agent-a", SwarmID: "swarm-1"}, "msg-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, DecisionQueue, event.Decision)
	assert.Empty(t, invoker.invoked)
}

func TestTriggerInvokesCallbacks(t *testing.T) {
	mutes := fakeMutes{}
	invoker := &recordingInvoker{}
	trigger := NewTrigger(DefaultPreferences(), mutes, invoker)

	var seen []Event
	trigger.AddCallback(func(e Event) { seen = append(seen, e) })

	_, err := trigger.Process(context.Background(), Context{SenderID: "agent-a", SwarmID: "swarm-1"}, "msg-1", time.Now())
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "msg-1", seen[0].MessageID)
}
