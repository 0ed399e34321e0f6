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
	"net/http"
	"time"

	"github.com/sage-x-project/swarmmesh/core/inbox"
	"github.com/sage-x-project/swarmmesh/core/membership"
	"github.com/sage-x-project/swarmmesh/core/outbox"
	"github.com/sage-x-project/swarmmesh/core/wake"
	"github.com/sage-x-project/swarmmesh/internal/config"
	"github.com/sage-x-project/swarmmesh/internal/logger"
	"github.com/sage-x-project/swarmmesh/internal/metrics"
	"github.com/sage-x-project/swarmmesh/internal/ratelimit"
	"github.com/sage-x-project/swarmmesh/internal/store"
)

// ProtocolVersion is the swarmmesh wire protocol version this server
// advertises in /swarm/health and /swarm/info.
const ProtocolVersion = "1.0.0"

// Deps bundles every component the ingress server dispatches into. All
// fields are required except WakeEndpoint-related ones, which may be left
// nil to run with wake invocation disabled.
type Deps struct {
	Identity   config.Identity
	Ingress    config.Ingress
	Wake       config.WakeEndpoint
	Swarms     *store.SwarmRepository
	Inboxes    *store.InboxRepository
	Sessions   *store.SessionRepository
	Membership *membership.Service
	Inbox      *inbox.Service
	Outbox     *outbox.Service
	Trigger    *wake.Trigger

	// WakeSessions and WakeLock back the /api/wake handler's own
	// safeguards; WakeInvoker is the invocation strategy it dispatches to.
	WakeSessions *wake.SessionManager
	WakeLock     *wake.InvocationLock
	WakeInvoker  wake.Invoker
}

// Server is the ingress HTTP server: one net/http.ServeMux, one bounded
// message queue feeding the wake trigger, and an http.Server with
// explicit read/write/idle timeouts.
type Server struct {
	deps    Deps
	limiter *ratelimit.Limiter
	queue   *ingressQueue

	mux    *http.ServeMux
	server *http.Server

	cancelQueue context.CancelFunc

	// wakeDone, when set, is called after a background wake invocation
	// finishes; a test seam over the detached goroutine.
	wakeDone func()
}

// NewServer builds a Server listening on addr (e.g. ":8443") with the given
// dependencies wired in.
func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		deps:    deps,
		limiter: ratelimit.New(deps.Ingress.RateLimitPerMinute),
		queue:   newIngressQueue(deps.Ingress.QueueMaxSize),
		mux:     http.NewServeMux(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           chain(s.mux, withLogging, withRateLimit(s.limiter)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /swarm/message", s.handleSwarmMessage)
	s.mux.HandleFunc("POST /swarm/join", s.handleSwarmJoin)
	s.mux.HandleFunc("GET /swarm/health", s.handleSwarmHealth)
	s.mux.HandleFunc("GET /swarm/info", s.handleSwarmInfo)
	s.mux.HandleFunc("POST /api/wake", s.handleAPIWake)

	s.mux.HandleFunc("GET /api/inbox", s.handleInboxList)
	s.mux.HandleFunc("GET /api/inbox/count", s.handleInboxCount)
	s.mux.HandleFunc("GET /api/inbox/{id}", s.handleInboxGet)
	s.mux.HandleFunc("POST /api/inbox/{id}/read", s.handleInboxMarkRead)
	s.mux.HandleFunc("POST /api/inbox/{id}/archive", s.handleInboxArchive)
	s.mux.HandleFunc("POST /api/inbox/{id}/delete", s.handleInboxDelete)
	s.mux.HandleFunc("POST /api/inbox/batch", s.handleInboxBatch)

	s.mux.HandleFunc("GET /api/outbox", s.handleOutboxList)
	s.mux.HandleFunc("GET /api/outbox/count", s.handleOutboxCount)

	s.mux.Handle("GET /metrics", metrics.Handler(metrics.Global()))
}

// Start begins serving in the background and starts the wake-evaluation
// consumer loop. It returns once both are running; errors from either are
// logged asynchronously rather than returned.
func (s *Server) Start() error {
	queueCtx, cancel := context.WithCancel(context.Background())
	s.cancelQueue = cancel

	if s.deps.Trigger != nil {
		go s.queue.run(queueCtx, s.deps.Trigger, nil)
	}

	logger.Info("starting ingress server", logger.String("addr", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ingress server error", logger.Err(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server and stops the queue consumer.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancelQueue != nil {
		s.cancelQueue()
	}
	return s.server.Shutdown(ctx)
}
