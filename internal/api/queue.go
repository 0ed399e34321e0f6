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
	"sync/atomic"

	"github.com/sage-x-project/swarmmesh/internal/logger"
	"github.com/sage-x-project/swarmmesh/core/wake"
)

// queuedMessage is the unit of work handed from the HTTP handler to the
// async wake-evaluation consumer, after a message has been durably
// recorded in the inbox.
type queuedMessage struct {
	messageID string
	wakeCtx   wake.Context
}

// ingressQueue is a bounded hand-off between request handling and wake
// evaluation. A full queue drops the newest message rather than blocking
// the HTTP response, per the protocol's drop-on-full backpressure policy;
// the dropped count is kept on the queue (/swarm/health's degraded status
// is decided by occupancy alone).
type ingressQueue struct {
	ch      chan queuedMessage
	dropped atomic.Int64
}

func newIngressQueue(size int) *ingressQueue {
	if size <= 0 {
		size = 1
	}
	return &ingressQueue{ch: make(chan queuedMessage, size)}
}

// enqueue attempts a non-blocking send, reporting whether the message was
// accepted onto the queue.
func (q *ingressQueue) enqueue(msg queuedMessage) bool {
	select {
	case q.ch <- msg:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

func (q *ingressQueue) occupancy() (used, capacity int) {
	return len(q.ch), cap(q.ch)
}

// run drains the queue until ctx is cancelled, evaluating each message
// against the wake trigger. Evaluation failures are logged, never
// propagated — the HTTP response for the originating request has already
// been sent.
func (q *ingressQueue) run(ctx context.Context, trigger *wake.Trigger, onEvent func(wake.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q.ch:
			event, err := trigger.Process(ctx, msg.wakeCtx, msg.messageID, timeNow())
			if err != nil {
				logger.Warn("wake trigger evaluation failed",
					logger.String("message_id", msg.messageID), logger.Err(err))
				continue
			}
			if onEvent != nil {
				onEvent(event)
			}
		}
	}
}
