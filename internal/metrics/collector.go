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

// Package metrics collects process-wide counters for swarmmesh, exposed
// as a JSON snapshot.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates swarmmesh operation counters.
type Collector struct {
	mu sync.RWMutex

	messagesReceived int64
	messagesQueued   int64
	messagesDropped  int64

	joinAccepted int64
	joinPending  int64
	joinRejected int64

	wakeInvocations  int64
	wakeSuppressions int64

	inboxTransitions map[string]int64

	rateLimitRejections int64

	startTime time.Time
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		inboxTransitions: make(map[string]int64),
		startTime:        time.Now(),
	}
}

// RecordMessageReceived counts one message accepted at the ingress boundary.
func (c *Collector) RecordMessageReceived() {
	atomic.AddInt64(&c.messagesReceived, 1)
}

// RecordMessageQueued counts one message admitted to the ingress queue.
func (c *Collector) RecordMessageQueued() {
	atomic.AddInt64(&c.messagesQueued, 1)
}

// RecordMessageDropped counts one message dropped because the ingress
// queue was full.
func (c *Collector) RecordMessageDropped() {
	atomic.AddInt64(&c.messagesDropped, 1)
}

// RecordJoinAccepted counts one membership join that completed immediately.
func (c *Collector) RecordJoinAccepted() {
	atomic.AddInt64(&c.joinAccepted, 1)
}

// RecordJoinPending counts one membership join left awaiting approval.
func (c *Collector) RecordJoinPending() {
	atomic.AddInt64(&c.joinPending, 1)
}

// RecordJoinRejected counts one membership join rejected (bad token,
// unknown swarm, and so on).
func (c *Collector) RecordJoinRejected() {
	atomic.AddInt64(&c.joinRejected, 1)
}

// RecordWakeInvocation counts one invoker dispatch.
func (c *Collector) RecordWakeInvocation() {
	atomic.AddInt64(&c.wakeInvocations, 1)
}

// RecordWakeSuppression counts one /api/wake call skipped because a local
// session is already active or the invocation lock is held.
func (c *Collector) RecordWakeSuppression() {
	atomic.AddInt64(&c.wakeSuppressions, 1)
}

// RecordInboxTransition counts one inbox status transition, keyed
// "from->to" (e.g. "unread->read").
func (c *Collector) RecordInboxTransition(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inboxTransitions[from+"->"+to]++
}

// RecordRateLimitRejection counts one request rejected by the per-IP
// sliding window limiter.
func (c *Collector) RecordRateLimitRejection() {
	atomic.AddInt64(&c.rateLimitRejections, 1)
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`

	MessagesReceived int64 `json:"messages_received"`
	MessagesQueued   int64 `json:"messages_queued"`
	MessagesDropped  int64 `json:"messages_dropped"`

	JoinAccepted int64 `json:"join_accepted"`
	JoinPending  int64 `json:"join_pending"`
	JoinRejected int64 `json:"join_rejected"`

	WakeInvocations  int64 `json:"wake_invocations"`
	WakeSuppressions int64 `json:"wake_suppressions"`

	InboxTransitions map[string]int64 `json:"inbox_transitions"`

	RateLimitRejections int64 `json:"rate_limit_rejections"`
}

// Snapshot returns a consistent copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	transitions := make(map[string]int64, len(c.inboxTransitions))
	for k, v := range c.inboxTransitions {
		transitions[k] = v
	}

	return Snapshot{
		Timestamp:           time.Now(),
		Uptime:              time.Since(c.startTime).String(),
		MessagesReceived:    atomic.LoadInt64(&c.messagesReceived),
		MessagesQueued:      atomic.LoadInt64(&c.messagesQueued),
		MessagesDropped:     atomic.LoadInt64(&c.messagesDropped),
		JoinAccepted:        atomic.LoadInt64(&c.joinAccepted),
		JoinPending:         atomic.LoadInt64(&c.joinPending),
		JoinRejected:        atomic.LoadInt64(&c.joinRejected),
		WakeInvocations:     atomic.LoadInt64(&c.wakeInvocations),
		WakeSuppressions:    atomic.LoadInt64(&c.wakeSuppressions),
		InboxTransitions:    transitions,
		RateLimitRejections: atomic.LoadInt64(&c.rateLimitRejections),
	}
}

// Reset zeroes every counter; used only by tests.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.messagesReceived, 0)
	atomic.StoreInt64(&c.messagesQueued, 0)
	atomic.StoreInt64(&c.messagesDropped, 0)
	atomic.StoreInt64(&c.joinAccepted, 0)
	atomic.StoreInt64(&c.joinPending, 0)
	atomic.StoreInt64(&c.joinRejected, 0)
	atomic.StoreInt64(&c.wakeInvocations, 0)
	atomic.StoreInt64(&c.wakeSuppressions, 0)
	atomic.StoreInt64(&c.rateLimitRejections, 0)
	c.inboxTransitions = make(map[string]int64)
	c.startTime = time.Now()
}

// global is the process-wide collector every component shares unless a
// test supplies its own via NewCollector.
var global = NewCollector()

// Global returns the process-wide Collector.
func Global() *Collector {
	return global
}
