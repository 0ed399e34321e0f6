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
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/logger"
)

// WakePayload is the metadata delivered to an Invoker when a message
// warrants waking the agent.
type WakePayload struct {
	MessageID         string
	SwarmID           string
	SenderID          string
	NotificationLevel string
}

// Invoker is a pluggable agent-activation strategy ("noop", "tmux").
// Invoke returns an opaque session identifier when the strategy starts a
// resumable agent session, or "" when it does not.
type Invoker interface {
	Invoke(ctx context.Context, payload WakePayload) (sessionID string, err error)
}

// NoopInvoker discards every wake, for tests and dry-run deployments.
type NoopInvoker struct{}

// Invoke implements Invoker by doing nothing but logging.
func (NoopInvoker) Invoke(_ context.Context, payload WakePayload) (string, error) {
	logger.Debug("noop invoker: skipping invocation", logger.String("message_id", payload.MessageID))
	return "", nil
}

// TmuxInvoker delivers a wake notification into a running tmux session
// via two `tmux send-keys` calls: one for the text, one for Enter. A
// single combined call does not reliably deliver the Enter keystroke.
type TmuxInvoker struct {
	Target string // tmux session/window/pane target, e.g. "main:0"

	// runCommand executes a shell command; overridden in tests.
	runCommand func(ctx context.Context, shellCmd string) error
}

// NewTmuxInvoker creates a TmuxInvoker targeting the given tmux pane.
func NewTmuxInvoker(target string) (*TmuxInvoker, error) {
	if target == "" {
		return nil, errs.New(errs.KindValidation, "tmux invoker requires a non-empty target")
	}
	return &TmuxInvoker{Target: target}, nil
}

// Invoke sends a one-line notification into the configured tmux pane. It
// never yields a session identifier; tmux delivery is one-way.
func (t *TmuxInvoker) Invoke(ctx context.Context, payload WakePayload) (string, error) {
	notification := formatNotification(payload)
	logger.Info("sending tmux wake notification", logger.String("target", t.Target))

	shellCmd := fmt.Sprintf(
		"tmux send-keys -t %s '%s' && sleep 0.3 && tmux send-keys -t %s C-m",
		t.Target, notification, t.Target,
	)

	run := t.runCommand
	if run == nil {
		run = runShell
	}
	if err := run(ctx, shellCmd); err != nil {
		return "", errs.Wrap(errs.KindInvocation, err, "tmux send-keys failed")
	}
	logger.Info("tmux wake notification sent")
	return "", nil
}

func formatNotification(payload WakePayload) string {
	sender := payload.SenderID
	if sender == "" {
		sender = "unknown"
	}
	return fmt.Sprintf("Wake: new message from %s. Read and process.", sender)
}

func runShell(ctx context.Context, shellCmd string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", shellCmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, stderr.String())
		}
		return err
	}
	return nil
}
