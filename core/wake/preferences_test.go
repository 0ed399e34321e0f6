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

import "testing"

func TestEvaluateDisabledIsSilent(t *testing.T) {
	p := Preferences{Enabled: false}
	if level := p.Evaluate(Context{}); level != LevelSilent {
		t.Fatalf("expected silent, got %v", level)
	}
}

func TestEvaluateMutedSwarmIsSilent(t *testing.T) {
	p := DefaultPreferences()
	p.MutedSwarms = []string{"swarm-1"}
	if level := p.Evaluate(Context{SwarmID: "swarm-1"}); level != LevelSilent {
		t.Fatalf("expected silent for muted swarm, got %v", level)
	}
}

func TestEvaluateQuietHoursOnlyWakesForUrgent(t *testing.T) {
	p := DefaultPreferences()
	p.QuietHours = &QuietHours{Start: 22, End: 6}

	if level := p.Evaluate(Context{CurrentHour: 23}); level != LevelSilent {
		t.Fatalf("expected silent during quiet hours for ordinary message, got %v", level)
	}
	if level := p.Evaluate(Context{CurrentHour: 23, IsHighPriority: true}); level != LevelUrgent {
		t.Fatalf("expected urgent during quiet hours for high priority, got %v", level)
	}
	if level := p.Evaluate(Context{CurrentHour: 2, IsSystemMessage: true}); level != LevelUrgent {
		t.Fatalf("expected urgent during wrapped quiet hours for system message, got %v", level)
	}
}

func TestEvaluateDirectMentionAndKeywordConditions(t *testing.T) {
	p := Preferences{
		Enabled: true,
		WakeConditions: []Condition{
			ConditionDirectMention, ConditionKeywordMatch, ConditionFromSpecificAgent,
		},
		WatchedAgents:   []string{"agent-watched"},
		WatchedKeywords: []string{"urgent-keyword"},
	}

	if level := p.Evaluate(Context{IsDirectMention: true}); level != LevelUrgent {
		t.Fatalf("expected urgent for direct mention, got %v", level)
	}
	if level := p.Evaluate(Context{Content: "this has an URGENT-Keyword in it"}); level != LevelUrgent {
		t.Fatalf("expected urgent for keyword match, got %v", level)
	}
	if level := p.Evaluate(Context{SenderID: "agent-watched"}); level != LevelUrgent {
		t.Fatalf("expected urgent for watched agent, got %v", level)
	}
	if level := p.Evaluate(Context{SenderID: "agent-unrelated"}); level != LevelSilent {
		t.Fatalf("expected silent when no condition matches, got %v", level)
	}
}

func TestValidateRejectsOutOfRangeQuietHours(t *testing.T) {
	p := Preferences{QuietHours: &QuietHours{Start: 24, End: 6}}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for out-of-range quiet hours")
	}
}
