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

// Command swarmmeshd is the long-running agent daemon: it opens the state
// store, wires the membership, inbox, outbox and wake services together,
// and serves the ingress HTTP surface until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sage-x-project/swarmmesh/core/inbox"
	"github.com/sage-x-project/swarmmesh/core/membership"
	"github.com/sage-x-project/swarmmesh/core/outbox"
	"github.com/sage-x-project/swarmmesh/core/wake"
	"github.com/sage-x-project/swarmmesh/internal/api"
	"github.com/sage-x-project/swarmmesh/internal/config"
	"github.com/sage-x-project/swarmmesh/internal/logger"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/sage-x-project/swarmmesh/internal/version"
)

// janitorInterval is how often expired sdk_sessions are swept.
const janitorInterval = 10 * time.Minute

func main() {
	var (
		addr       = flag.String("addr", ":8420", "listen address for the ingress HTTP server")
		configPath = flag.String("config", "", "optional YAML config file (environment variables win)")
	)
	flag.Parse()

	if err := run(*addr, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "swarmmeshd: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.GetDefaultLogger().SetLevel(logger.ParseLevel(cfg.LogLevel))

	if cfg.Identity.AgentID == "" || cfg.Identity.Endpoint == "" {
		return fmt.Errorf("AGENT_ID and AGENT_ENDPOINT must be set")
	}

	mgr, err := store.NewManager(cfg.Store.DBPath)
	if err != nil {
		return err
	}
	defer mgr.Close()
	if err := mgr.Initialize(context.Background()); err != nil {
		return err
	}

	swarms := store.NewSwarmRepository(mgr.Conn())
	inboxes := store.NewInboxRepository(mgr.Conn())
	outboxes := store.NewOutboxRepository(mgr.Conn())
	mutes := store.NewMuteRepository(mgr.Conn())
	sessions := store.NewSessionRepository(mgr.Conn())
	keys := store.NewPublicKeyRepository(mgr.Conn())

	mship := membership.NewService(swarms, inboxes).
		WithPublicKeyCache(membership.NewPublicKeyCache(keys))

	invoker, err := buildInvoker(cfg.WakeEndpoint)
	if err != nil {
		return err
	}

	trigger, err := buildTrigger(cfg.Wake, cfg.WakeEndpoint, mutes, invoker)
	if err != nil {
		return err
	}

	srv := api.NewServer(addr, api.Deps{
		Identity:     cfg.Identity,
		Ingress:      cfg.Ingress,
		Wake:         cfg.WakeEndpoint,
		Swarms:       swarms,
		Inboxes:      inboxes,
		Sessions:     sessions,
		Membership:   mship,
		Inbox:        inbox.NewService(inboxes),
		Outbox:       outbox.NewService(outboxes),
		Trigger:      trigger,
		WakeSessions: wake.NewSessionManager(cfg.WakeEndpoint.SessionFile, cfg.WakeEndpoint.SessionTimeout),
		WakeLock:     &wake.InvocationLock{},
		WakeInvoker:  invoker,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		return err
	}
	logger.Info("swarmmeshd started",
		logger.String("version", version.Short()),
		logger.String("agent_id", cfg.Identity.AgentID),
		logger.String("addr", addr))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return janitor(gctx, sessions, cfg.WakeEndpoint.SessionTimeout)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("swarmmeshd stopped")
	return err
}

// buildInvoker maps the configured invoke method onto a wake.Invoker.
// An unrecognised method falls back to noop with a warning rather than
// refusing to start.
func buildInvoker(cfg config.WakeEndpoint) (wake.Invoker, error) {
	switch cfg.InvokeMethod {
	case "", "noop":
		return wake.NoopInvoker{}, nil
	case "tmux":
		inv, err := wake.NewTmuxInvoker(cfg.TmuxTarget)
		if err != nil {
			return nil, err
		}
		return inv, nil
	default:
		logger.Warn("unrecognised invoke method, falling back to noop",
			logger.String("invoke_method", cfg.InvokeMethod))
		return wake.NoopInvoker{}, nil
	}
}

// buildTrigger assembles the wake trigger fed by the ingress queue. With
// the trigger disabled, preferences evaluate everything to silent so
// messages are queued but never dispatched; with an endpoint configured,
// dispatch POSTs there, otherwise it invokes in-process.
func buildTrigger(wakeCfg config.Wake, epCfg config.WakeEndpoint, mutes *store.MuteRepository, local wake.Invoker) (*wake.Trigger, error) {
	prefs := wake.DefaultPreferences()
	if !wakeCfg.Enabled {
		prefs.Enabled = false
		return wake.NewTrigger(prefs, mutes, wake.NoopInvoker{}), nil
	}

	dispatch := local
	if wakeCfg.Endpoint != "" {
		ep, err := wake.NewEndpointInvoker(wakeCfg.Endpoint, epCfg.Secret, wakeCfg.Timeout)
		if err != nil {
			return nil, err
		}
		dispatch = ep
	}
	return wake.NewTrigger(prefs, mutes, dispatch), nil
}

// janitor periodically sweeps expired sdk_sessions so continuity records
// don't accumulate past their usefulness.
func janitor(ctx context.Context, sessions *store.SessionRepository, sessionTimeout time.Duration) error {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := sessions.PurgeExpired(ctx, sessionTimeout); err != nil {
				logger.Warn("session sweep failed", logger.Err(err))
			} else if n > 0 {
				logger.Info("swept expired sdk sessions", logger.Int("purged", n))
			}
		}
	}
}
