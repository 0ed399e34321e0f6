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

// Package membership implements swarm creation, invitation, joining,
// leaving and kicking: the full swarm lifecycle state machine.
package membership

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/logger"
	"github.com/sage-x-project/swarmmesh/internal/store"
)

// Service wraps the swarm/member and inbox repositories with the
// membership protocol's state machine and lifecycle notifications.
type Service struct {
	swarms   *store.SwarmRepository
	inbox    *store.InboxRepository
	keyCache *PublicKeyCache
}

// NewService creates a membership Service over the given repositories.
func NewService(swarms *store.SwarmRepository, inbox *store.InboxRepository) *Service {
	return &Service{swarms: swarms, inbox: inbox}
}

// WithPublicKeyCache attaches a PublicKeyCache the service opportunistically
// populates as it resolves master keys, so other components (e.g. a later
// signature-verification pass over delivered inbox messages) can look an
// agent's key up without re-scanning swarm rosters. Optional; a Service
// with no cache attached skips this bookkeeping entirely.
func (s *Service) WithPublicKeyCache(cache *PublicKeyCache) *Service {
	s.keyCache = cache
	return s
}

// CreateSwarm registers a new swarm with its master as the sole initial
// member.
func (s *Service) CreateSwarm(ctx context.Context, name, masterID, masterEndpoint, masterPublicKey string, allowMemberInvite, requireApproval bool, now time.Time) (*store.Swarm, error) {
	swarm := store.Swarm{
		SwarmID: uuid.NewString(),
		Name:    name,
		Master:  masterID,
		Members: []store.Member{
			{AgentID: masterID, Endpoint: masterEndpoint, PublicKey: masterPublicKey, JoinedAt: now},
		},
		JoinedAt: now,
		Settings: store.SwarmSettings{
			AllowMemberInvite: allowMemberInvite,
			RequireApproval:   requireApproval,
		},
	}
	if err := s.swarms.CreateSwarm(ctx, swarm); err != nil {
		return nil, err
	}
	return &swarm, nil
}

// Invite mints an invite token for swarmID, signed by the invoking
// agent's own key. Only the master, or any member when the swarm's
// allow_member_invite setting is true, may call this. The token's
// "master" claim and endpoint always name the swarm's recorded master,
// so a non-master-signed token is rejected by Join/VerifyInvite
// regardless of who minted it — see the resolved Open Question in
// DESIGN.md.
func (s *Service) Invite(ctx context.Context, swarmID, invokerID string, invokerPriv ed25519.PrivateKey, expiresAt time.Time, maxUses int, now time.Time) (string, error) {
	swarm, err := s.swarms.GetSwarm(ctx, swarmID)
	if err != nil {
		return "", err
	}

	if invokerID != swarm.Master && !swarm.Settings.AllowMemberInvite {
		return "", errs.Newf(errs.KindNotMaster, "only the swarm master may invite to %s", swarmID)
	}

	masterEndpoint := swarm.Master
	for _, m := range swarm.Members {
		if m.AgentID == swarm.Master {
			masterEndpoint = m.Endpoint
			break
		}
	}

	token, err := identity.MakeInvite(invokerPriv, swarm.SwarmID, swarm.Master, masterEndpoint, expiresAt, maxUses, now)
	if err != nil {
		return "", err
	}
	return identity.WrapInviteURL(swarm.SwarmID, masterEndpoint, token)
}

// ExtractSwarmIDFromToken decodes a raw invite token's payload without
// verifying its signature, solely to discover which swarm's master key
// to resolve before the real, signature-checked Join call.
func ExtractSwarmIDFromToken(rawToken string) (string, error) {
	claims, err := identity.PeekInviteClaims(rawToken)
	if err != nil {
		return "", err
	}
	if claims.SwarmID == "" {
		return "", errs.New(errs.KindFormat, "invite payload missing swarm_id claim")
	}
	return claims.SwarmID, nil
}

// FindMasterPublicKey locates the master's cached public key from a
// swarm's member list.
func FindMasterPublicKey(swarm *store.Swarm) (ed25519.PublicKey, error) {
	for _, m := range swarm.Members {
		if m.AgentID == swarm.Master {
			return identity.PublicKeyFromBase64(m.PublicKey)
		}
	}
	return nil, errs.Newf(errs.KindSwarmNotFound, "master %s not found in swarm member list", swarm.Master)
}

// Join validates an invite token against the swarm's recorded master
// public key and, on success, registers the joining agent as a member.
func (s *Service) Join(ctx context.Context, inviteURL, agentID, agentEndpoint, agentPublicKey string, now time.Time) (*store.Swarm, error) {
	_, rawToken, err := identity.UnwrapInviteURL(inviteURL)
	if err != nil {
		return nil, err
	}

	swarmID, err := ExtractSwarmIDFromToken(rawToken)
	if err != nil {
		return nil, err
	}

	swarm, err := s.swarms.GetSwarm(ctx, swarmID)
	if err != nil {
		return nil, err
	}

	masterPub, err := FindMasterPublicKey(swarm)
	if err != nil {
		return nil, err
	}

	if s.keyCache != nil {
		masterEndpoint := swarm.Master
		for _, m := range swarm.Members {
			if m.AgentID == swarm.Master {
				masterEndpoint = m.Endpoint
				break
			}
		}
		if _, err := s.keyCache.Resolve(ctx, swarm.Master, masterEndpoint, now, func() (string, error) {
			return identity.PublicKeyToBase64(masterPub), nil
		}); err != nil {
			logger.Warn("failed to populate public key cache", logger.String("agent_id", swarm.Master), logger.Err(err))
		}
	}

	claims, err := identity.VerifyInvite(rawToken, masterPub, swarmID, now)
	if err != nil {
		return nil, err
	}
	_ = claims

	existing, err := s.swarms.FindMember(ctx, swarmID, agentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Re-delivered join request: return the current membership without
		// inserting a duplicate member or notification.
		return swarm, nil
	}

	if swarm.Settings.RequireApproval {
		return nil, errs.Newf(errs.KindApprovalNeeded, "swarm %s requires master approval to join", swarmID)
	}

	if err := s.swarms.AddMember(ctx, swarmID, store.Member{
		AgentID:   agentID,
		Endpoint:  agentEndpoint,
		PublicKey: agentPublicKey,
		JoinedAt:  now,
	}); err != nil {
		return nil, err
	}

	updated, err := s.swarms.GetSwarm(ctx, swarmID)
	if err != nil {
		return nil, err
	}

	if err := s.notifyLifecycle(ctx, swarmID, lifecycleMemberJoined, agentID, "", "", now); err != nil {
		logger.Warn("failed to persist member_joined notification", logger.String("swarm_id", swarmID), logger.Err(err))
	}

	return updated, nil
}

// Leave removes the calling agent from a swarm. The master may not
// leave; it must delete the swarm instead.
func (s *Service) Leave(ctx context.Context, swarmID, agentID string, now time.Time) error {
	swarm, err := s.swarms.GetSwarm(ctx, swarmID)
	if err != nil {
		return err
	}
	if swarm.Master == agentID {
		return errs.New(errs.KindValidation, "the master cannot leave a swarm; delete it instead")
	}

	removed, err := s.swarms.RemoveMember(ctx, swarmID, agentID)
	if err != nil {
		return err
	}
	if !removed {
		return errs.Newf(errs.KindNotMember, "agent %s is not a member of swarm %s", agentID, swarmID)
	}

	if err := s.notifyLifecycle(ctx, swarmID, lifecycleMemberLeft, agentID, "", "", now); err != nil {
		logger.Warn("failed to persist member_left notification", logger.String("swarm_id", swarmID), logger.Err(err))
	}
	return nil
}

// Kick removes a target member from a swarm. Only the master may kick.
func (s *Service) Kick(ctx context.Context, swarmID, invokerID, targetID, reason string, now time.Time) error {
	swarm, err := s.swarms.GetSwarm(ctx, swarmID)
	if err != nil {
		return err
	}
	if invokerID != swarm.Master {
		return errs.Newf(errs.KindNotMaster, "only the swarm master may kick members of %s", swarmID)
	}
	if targetID == swarm.Master {
		return errs.New(errs.KindValidation, "the master cannot be kicked")
	}

	removed, err := s.swarms.RemoveMember(ctx, swarmID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return errs.Newf(errs.KindNotMember, "agent %s is not a member of swarm %s", targetID, swarmID)
	}

	if err := s.notifyLifecycle(ctx, swarmID, lifecycleMemberKicked, targetID, invokerID, reason, now); err != nil {
		logger.Warn("failed to persist member_kicked notification", logger.String("swarm_id", swarmID), logger.Err(err))
	}
	return nil
}

// DeleteSwarm dissolves a swarm; only the master may call this.
func (s *Service) DeleteSwarm(ctx context.Context, swarmID, invokerID string) error {
	swarm, err := s.swarms.GetSwarm(ctx, swarmID)
	if err != nil {
		return err
	}
	if invokerID != swarm.Master {
		return errs.Newf(errs.KindNotMaster, "only the swarm master may delete %s", swarmID)
	}
	_, err = s.swarms.DeleteSwarm(ctx, swarmID)
	return err
}
