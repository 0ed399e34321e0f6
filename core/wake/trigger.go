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
	"fmt"
	"time"
)

// Decision is how an incoming message should be handled once evaluated
// against Preferences and mute state.
type Decision string

const (
	DecisionWake  Decision = "wake"
	DecisionQueue Decision = "queue"
	DecisionSkip  Decision = "skip"
)

// Event records the outcome of evaluating one message for a wake.
type Event struct {
	MessageID         string
	SwarmID           string
	SenderID          string
	Decision          Decision
	NotificationLevel Level
}

// Callback observes every processed Event, win or not.
type Callback func(Event)

// MuteChecker reports whether a sender or swarm is currently muted,
// short-circuiting Preferences entirely (mirroring the reference's
// is_sender_muted/is_swarm_muted context fields).
type MuteChecker interface {
	IsAgentMuted(ctx context.Context, agentID string) (bool, error)
	IsSwarmMuted(ctx context.Context, swarmID string) (bool, error)
}

// Trigger decides, for each incoming message, whether to wake the
// invoker, queue it silently, or skip it outright, and dispatches the
// wake through an Invoker.
type Trigger struct {
	preferences Preferences
	mutes       MuteChecker
	invoker     Invoker
	callbacks   []Callback
}

// NewTrigger creates a Trigger over the given preferences, mute lookup,
// and invocation strategy.
func NewTrigger(preferences Preferences, mutes MuteChecker, invoker Invoker) *Trigger {
	return &Trigger{preferences: preferences, mutes: mutes, invoker: invoker}
}

// AddCallback registers a callback invoked after every processed message.
func (t *Trigger) AddCallback(cb Callback) {
	t.callbacks = append(t.callbacks, cb)
}

// Process evaluates a message and, if warranted, invokes the agent.
func (t *Trigger) Process(ctx context.Context, msgCtx Context, messageID string, now time.Time) (Event, error) {
	senderMuted, err := t.mutes.IsAgentMuted(ctx, msgCtx.SenderID)
	if err != nil {
		return Event{}, fmt.Errorf("wake: check sender mute: %w", err)
	}
	swarmMuted, err := t.mutes.IsSwarmMuted(ctx, msgCtx.SwarmID)
	if err != nil {
		return Event{}, fmt.Errorf("wake: check swarm mute: %w", err)
	}

	msgCtx.CurrentHour = now.UTC().Hour()
	level := t.preferences.Evaluate(msgCtx)

	decision := DecisionQueue
	switch {
	case senderMuted || swarmMuted:
		decision = DecisionSkip
	case level != LevelSilent:
		decision = DecisionWake
	}

	event := Event{
		MessageID:         messageID,
		SwarmID:           msgCtx.SwarmID,
		SenderID:          msgCtx.SenderID,
		Decision:          decision,
		NotificationLevel: level,
	}

	if decision == DecisionWake {
		payload := WakePayload{
			MessageID:         messageID,
			SwarmID:           msgCtx.SwarmID,
			SenderID:          msgCtx.SenderID,
			NotificationLevel: level.String(),
		}
		if _, err := t.invoker.Invoke(ctx, payload); err != nil {
			return event, fmt.Errorf("wake: invoke: %w", err)
		}
	}

	for _, cb := range t.callbacks {
		cb(event)
	}
	return event, nil
}
