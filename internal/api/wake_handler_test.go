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
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/sage-x-project/swarmmesh/core/wake"
	"github.com/sage-x-project/swarmmesh/internal/config"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInvoker struct {
	sessionID string
	calls     int
}

func (s *stubInvoker) Invoke(_ context.Context, _ wake.WakePayload) (string, error) {
	s.calls++
	return s.sessionID, nil
}

func newWakeHarness(t *testing.T, secret string, invoker wake.Invoker) (*testHarness, *wake.SessionManager) {
	t.Helper()
	h := newTestHarness(t, 0)

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	sessions := wake.NewSessionManager(sessionFile, 30*time.Minute)

	h.server.deps.Wake = config.WakeEndpoint{
		Enabled:        true,
		Secret:         secret,
		SessionTimeout: 30 * time.Minute,
	}
	h.server.deps.WakeSessions = sessions
	h.server.deps.WakeLock = &wake.InvocationLock{}
	h.server.deps.WakeInvoker = invoker
	return h, sessions
}

func waitForWake(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for background wake invocation")
	}
}

func wakeBody() map[string]string {
	return map[string]string{
		"message_id":         "msg-1",
		"swarm_id":           "swarm-1",
		"sender_id":          "agent-a",
		"notification_level": "urgent",
	}
}

func TestWakeDisabledReturns503(t *testing.T) {
	h := newTestHarness(t, 0)
	rec := h.do(t, http.MethodPost, "/api/wake", wakeBody())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWakeRejectsBadSecret(t *testing.T) {
	inv := &stubInvoker{}
	h, _ := newWakeHarness(t, "s3cret", inv)

	rec := h.do(t, http.MethodPost, "/api/wake", wakeBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, inv.calls)
}

func TestWakeInvokesAndPersistsSession(t *testing.T) {
	inv := &stubInvoker{sessionID: "sdk-session-42"}
	h, _ := newWakeHarness(t, "", inv)
	done := make(chan struct{}, 1)
	h.server.wakeDone = func() { done <- struct{}{} }

	rec := h.do(t, http.MethodPost, "/api/wake", wakeBody())
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForWake(t, done)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invoked", body["status"])
	assert.Equal(t, 1, inv.calls)

	sdk, err := h.server.deps.Sessions.Get(context.Background(), "swarm-1", "agent-a")
	require.NoError(t, err)
	require.NotNil(t, sdk)
	assert.Equal(t, "sdk-session-42", sdk.SessionID)
	assert.Equal(t, store.SessionActive, sdk.State)
}

func TestWakeSuppressedWhileSessionActive(t *testing.T) {
	inv := &stubInvoker{}
	h, sessions := newWakeHarness(t, "", inv)

	// A session that went active one minute ago is still inside the
	// 30-minute timeout, so the wake is suppressed.
	require.NoError(t, sessions.Start("live-session", "swarm-1", time.Now().Add(-time.Minute)))

	rec := h.do(t, http.MethodPost, "/api/wake", wakeBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "already_active", body["status"])
	assert.Zero(t, inv.calls)

	// Once the session has idled past the timeout, the next wake invokes.
	require.NoError(t, sessions.Start("stale-session", "swarm-1", time.Now().Add(-time.Hour)))
	done := make(chan struct{}, 1)
	h.server.wakeDone = func() { done <- struct{}{} }

	rec2 := h.do(t, http.MethodPost, "/api/wake", wakeBody())
	require.Equal(t, http.StatusAccepted, rec2.Code)
	waitForWake(t, done)
	assert.Equal(t, 1, inv.calls)
}

func TestWakeSkipsWhenInvocationLockHeld(t *testing.T) {
	inv := &stubInvoker{}
	h, _ := newWakeHarness(t, "", inv)

	require.True(t, h.server.deps.WakeLock.TryAcquire())
	defer h.server.deps.WakeLock.Release()

	rec := h.do(t, http.MethodPost, "/api/wake", wakeBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "already_active", body["status"])
	assert.Zero(t, inv.calls)
}

func TestWakeResumesExistingSDKSession(t *testing.T) {
	inv := &stubInvoker{} // yields no new session id
	h, _ := newWakeHarness(t, "", inv)
	done := make(chan struct{}, 1)
	h.server.wakeDone = func() { done <- struct{}{} }

	require.NoError(t, h.server.deps.Sessions.Upsert(context.Background(), store.SDKSession{
		SwarmID: "swarm-1", PeerID: "agent-a", SessionID: "resume-me",
		LastActive: time.Now(), State: store.SessionActive,
	}))

	rec := h.do(t, http.MethodPost, "/api/wake", wakeBody())
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForWake(t, done)
	assert.Equal(t, 1, inv.calls)

	sdk, err := h.server.deps.Sessions.Get(context.Background(), "swarm-1", "agent-a")
	require.NoError(t, err)
	require.NotNil(t, sdk)
	assert.Equal(t, "resume-me", sdk.SessionID)
}
