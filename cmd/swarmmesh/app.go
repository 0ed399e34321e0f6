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

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sage-x-project/swarmmesh/core/inbox"
	"github.com/sage-x-project/swarmmesh/core/membership"
	"github.com/sage-x-project/swarmmesh/core/outbox"
	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/sage-x-project/swarmmesh/internal/config"
	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/output"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/sage-x-project/swarmmesh/internal/transport"
)

// keyFilePath is where the local agent's Ed25519 identity is persisted,
// alongside the sqlite store.
const keyFilePath = "swarmmesh-identity.key"

// app bundles everything a subcommand needs: the loaded config, an open
// store, the domain services built over it, and the output printer.
type app struct {
	cfg    config.Config
	mgr    *store.Manager
	swarms   *store.SwarmRepository
	inboxR   *store.InboxRepository
	outR     *store.OutboxRepository
	mutes    *store.MuteRepository
	sessions *store.SessionRepository
	mship  *membership.Service
	inbox  *inbox.Service
	outbox *outbox.Service
	client *transport.Client
	out    *output.Printer
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	mgr, err := store.NewManager(cfg.Store.DBPath)
	if err != nil {
		return nil, err
	}
	if err := mgr.Initialize(context.Background()); err != nil {
		return nil, err
	}

	swarms := store.NewSwarmRepository(mgr.Conn())
	inboxes := store.NewInboxRepository(mgr.Conn())
	outboxes := store.NewOutboxRepository(mgr.Conn())
	mutes := store.NewMuteRepository(mgr.Conn())
	sessions := store.NewSessionRepository(mgr.Conn())

	return &app{
		cfg:      cfg,
		mgr:      mgr,
		swarms:   swarms,
		inboxR:   inboxes,
		outR:     outboxes,
		mutes:    mutes,
		sessions: sessions,
		mship:    membership.NewService(swarms, inboxes),
		inbox:    inbox.NewService(inboxes),
		outbox:   outbox.NewService(outboxes),
		client:   transport.NewClient(cfg.Identity.AgentID),
		out:      output.NewPrinter(jsonOutput),
	}, nil
}

func (a *app) close() {
	_ = a.mgr.Close()
}

// loadIdentityKeys loads the local agent's Ed25519 keypair from disk; run
// `swarmmesh init` first if this fails with a not-found error.
func (a *app) loadIdentityKeys() (identity.KeyPair, error) {
	kp, err := identity.LoadKeyFile(keyFilePath)
	if err != nil {
		return identity.KeyPair{}, fmt.Errorf("loading agent identity key (run `swarmmesh init` first): %w", err)
	}
	return kp, nil
}

// exitCodeFor maps a returned error to the CLI's documented exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var appErr *errs.Error
	if !errors.As(err, &appErr) {
		return exitGeneric
	}
	switch appErr.Kind {
	case errs.KindFormat, errs.KindValidation, errs.KindImport:
		return exitValidation
	case errs.KindTransport, errs.KindRateLimited:
		return exitTransport
	case errs.KindSignature, errs.KindExpired, errs.KindNotMaster:
		return exitAuth
	case errs.KindSwarmNotFound, errs.KindNotFound, errs.KindNotMember, errs.KindApprovalNeeded:
		return exitBusinessErr
	default:
		return exitGeneric
	}
}

// reportErr prints err via the app's printer and returns the process exit
// code cobra should use.
func (a *app) reportErr(err error) error {
	var appErr *errs.Error
	if errors.As(err, &appErr) {
		a.out.Error(appErr.Message, "")
	} else {
		a.out.Error(err.Error(), "")
	}
	return err
}
