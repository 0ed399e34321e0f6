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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopInvokerNeverErrors(t *testing.T) {
	var inv NoopInvoker
	sessionID, err := inv.Invoke(context.Background(), WakePayload{MessageID: "msg-1"})
	require.NoError(t, err)
	assert.Empty(t, sessionID)
}

func TestNewTmuxInvokerRejectsEmptyTarget(t *testing.T) {
	_, err := NewTmuxInvoker("")
	require.Error(t, err)
}

func TestTmuxInvokerRunsFormattedCommand(t *testing.T) {
	inv, err := NewTmuxInvoker("main:0")
	require.NoError(t, err)

	var capturedCmd string
	inv.runCommand = func(_ context.Context, shellCmd string) error {
		capturedCmd = shellCmd
		return nil
	}

	_, err = inv.Invoke(context.Background(), WakePayload{MessageID: "msg-1", SenderID: "agent-a"})
	require.NoError(t, err)
	assert.Contains(t, capturedCmd, "tmux send-keys -t main:0")
	assert.Contains(t, capturedCmd, "agent-a")
	assert.Contains(t, capturedCmd, "C-m")
}

func TestTmuxInvokerPropagatesCommandFailure(t *testing.T) {
	inv, err := NewTmuxInvoker("main:0")
	require.NoError(t, err)
	inv.runCommand = func(_ context.Context, _ string) error {
		return errors.New("boom")
	}

	_, err = inv.Invoke(context.Background(), WakePayload{MessageID: "msg-1"})
	require.Error(t, err)
}
