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

// Package wake implements the wake-vs-queue decision, idle-session
// continuity tracking, and pluggable agent invocation behind the
// /api/wake endpoint.
package wake

import (
	"strconv"
	"strings"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

// Level is a notification urgency level, ordered by priority so the
// highest level among several matched conditions wins.
type Level int

const (
	LevelSilent Level = iota // queue without waking
	LevelNormal              // wake on next poll cycle
	LevelUrgent              // immediate wake
)

// Condition is a rule that can raise a message's wake Level.
type Condition string

const (
	ConditionAnyMessage         Condition = "any_message"
	ConditionDirectMention      Condition = "direct_mention"
	ConditionHighPriority       Condition = "high_priority"
	ConditionFromSpecificAgent  Condition = "from_specific_agent"
	ConditionKeywordMatch       Condition = "keyword_match"
	ConditionSwarmSystemMessage Condition = "swarm_system_message"
)

// QuietHours is a UTC hour range, inclusive of start, exclusive of end,
// wrapping past midnight when Start > End (e.g. 22-6).
type QuietHours struct {
	Start int
	End   int
}

// Preferences controls when an agent should be woken for an incoming
// message versus having it queued silently.
type Preferences struct {
	Enabled         bool
	DefaultLevel    Level
	WakeConditions  []Condition
	WatchedAgents   []string
	WatchedKeywords []string
	MutedSwarms     []string
	QuietHours      *QuietHours
}

// DefaultPreferences mirrors the reference client's defaults: enabled,
// normal-level wake on any message, no quiet hours.
func DefaultPreferences() Preferences {
	return Preferences{
		Enabled:        true,
		DefaultLevel:   LevelNormal,
		WakeConditions: []Condition{ConditionAnyMessage},
	}
}

// Validate checks QuietHours bounds, matching the reference's
// __post_init__ validation.
func (p Preferences) Validate() error {
	if p.QuietHours == nil {
		return nil
	}
	if p.QuietHours.Start < 0 || p.QuietHours.Start > 23 || p.QuietHours.End < 0 || p.QuietHours.End > 23 {
		return errs.New(errs.KindValidation, "quiet hours must be within 0-23")
	}
	return nil
}

// Context is the subset of a message's shape Evaluate needs to make a
// wake decision, independent of the wire message type.
type Context struct {
	SenderID        string
	SwarmID         string
	Content         string
	IsDirectMention bool
	IsHighPriority  bool
	IsSystemMessage bool
	CurrentHour     int
}

// Evaluate determines the notification Level for an incoming message,
// ported close to line-for-line from should_wake.
func (p Preferences) Evaluate(ctx Context) Level {
	if !p.Enabled {
		return LevelSilent
	}
	if containsString(p.MutedSwarms, ctx.SwarmID) {
		return LevelSilent
	}
	if p.isQuietHours(ctx.CurrentHour) {
		if ctx.IsHighPriority || ctx.IsSystemMessage {
			return LevelUrgent
		}
		return LevelSilent
	}

	level := LevelSilent
	for _, cond := range p.WakeConditions {
		switch cond {
		case ConditionAnyMessage:
			level = maxLevel(level, p.DefaultLevel)
		case ConditionDirectMention:
			if ctx.IsDirectMention {
				level = LevelUrgent
			}
		case ConditionHighPriority:
			if ctx.IsHighPriority {
				level = LevelUrgent
			}
		case ConditionFromSpecificAgent:
			if containsString(p.WatchedAgents, ctx.SenderID) {
				level = LevelUrgent
			}
		case ConditionKeywordMatch:
			if p.matchesKeywords(ctx.Content) {
				level = LevelUrgent
			}
		case ConditionSwarmSystemMessage:
			if ctx.IsSystemMessage {
				level = LevelUrgent
			}
		}
	}
	return level
}

func (p Preferences) isQuietHours(hour int) bool {
	if p.QuietHours == nil {
		return false
	}
	start, end := p.QuietHours.Start, p.QuietHours.End
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func (p Preferences) matchesKeywords(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range p.WatchedKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func maxLevel(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}

// String renders a Level the way it appears in wake payloads ("silent",
// "normal", "urgent").
func (l Level) String() string {
	switch l {
	case LevelSilent:
		return "silent"
	case LevelNormal:
		return "normal"
	case LevelUrgent:
		return "urgent"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}
