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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

// SessionState is a local agent session's lifecycle state.
type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionActive    SessionState = "active"
	SessionSuspended SessionState = "suspended"
)

// DefaultSessionTimeout is how long an active/suspended session may sit
// idle before should_resume gives up on it.
const DefaultSessionTimeout = 30 * time.Minute

// SessionData is the persisted record of a local agent session.
type SessionData struct {
	SessionID         string
	State             SessionState
	StartedAt         time.Time
	LastActive        time.Time
	MessagesProcessed int
	CurrentSwarm      string
	ContextSummary    string
}

type sessionFile struct {
	SessionID         string    `json:"session_id"`
	State             string    `json:"state"`
	StartedAt         time.Time `json:"started_at"`
	LastActive        time.Time `json:"last_active"`
	MessagesProcessed int       `json:"messages_processed"`
	CurrentSwarm      string    `json:"current_swarm,omitempty"`
	ContextSummary    string    `json:"context_summary,omitempty"`
}

// SessionManager tracks whether an idle-but-recent local agent
// session should be resumed rather than starting fresh, persisting its
// state to disk via write-temp-then-rename so a crash never leaves a
// half-written session file. A mutex-guarded in-memory mirror holds the
// current state between saves.
type SessionManager struct {
	mu      sync.RWMutex
	path    string
	timeout time.Duration
	current *SessionData
	loaded  bool
}

// NewSessionManager creates a SessionManager backed by the session file
// at path, using timeout (DefaultSessionTimeout if zero) as the idle
// cutoff for should_resume.
func NewSessionManager(path string, timeout time.Duration) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &SessionManager{path: path, timeout: timeout}
}

// Current returns the current session, loading it from disk on first
// access.
func (m *SessionManager) Current() (*SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		if err := m.load(); err != nil {
			return nil, err
		}
	}
	return m.current, nil
}

// ShouldResume reports whether the current session is active or
// suspended and was last active within the timeout.
func (m *SessionManager) ShouldResume() (bool, error) {
	session, err := m.Current()
	if err != nil {
		return false, err
	}
	if session == nil || session.State == SessionIdle {
		return false, nil
	}
	return time.Since(session.LastActive) <= m.timeout, nil
}

// Start begins a new session, overwriting any existing one.
func (m *SessionManager) Start(sessionID, swarmID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &SessionData{
		SessionID:    sessionID,
		State:        SessionActive,
		StartedAt:    now,
		LastActive:   now,
		CurrentSwarm: swarmID,
	}
	m.loaded = true
	return m.save()
}

// UpdateActivity records recent message activity against the current
// session.
func (m *SessionManager) UpdateActivity(messagesProcessed int, contextSummary string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return errs.New(errs.KindSession, "no active session to update")
	}
	m.current.State = SessionActive
	m.current.LastActive = now
	m.current.MessagesProcessed += messagesProcessed
	if contextSummary != "" {
		m.current.ContextSummary = contextSummary
	}
	return m.save()
}

// Suspend marks the current session suspended, recording a context
// summary so a later resume can pick up where it left off.
func (m *SessionManager) Suspend(contextSummary string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return errs.New(errs.KindSession, "no active session to suspend")
	}
	m.current.State = SessionSuspended
	m.current.LastActive = now
	m.current.ContextSummary = contextSummary
	return m.save()
}

// End terminates the current session and removes its file.
func (m *SessionManager) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.loaded = true
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("wake: remove session file: %w", err)
	}
	return nil
}

func (m *SessionManager) load() error {
	m.loaded = true
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.current = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("wake: read session file: %w", err)
	}

	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		_ = os.Remove(m.path)
		return errs.Wrap(errs.KindSession, err, "corrupted session file")
	}
	m.current = &SessionData{
		SessionID:         f.SessionID,
		State:             SessionState(f.State),
		StartedAt:         f.StartedAt,
		LastActive:        f.LastActive,
		MessagesProcessed: f.MessagesProcessed,
		CurrentSwarm:      f.CurrentSwarm,
		ContextSummary:    f.ContextSummary,
	}
	return nil
}

func (m *SessionManager) save() error {
	if m.current == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("wake: creating session directory: %w", err)
	}

	f := sessionFile{
		SessionID:         m.current.SessionID,
		State:             string(m.current.State),
		StartedAt:         m.current.StartedAt,
		LastActive:        m.current.LastActive,
		MessagesProcessed: m.current.MessagesProcessed,
		CurrentSwarm:      m.current.CurrentSwarm,
		ContextSummary:    m.current.ContextSummary,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("wake: marshal session: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("wake: write temp session file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("wake: rename session file into place: %w", err)
	}
	return nil
}
