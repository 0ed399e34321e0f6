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

package membership

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *store.Manager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swarmmesh.db")
	mgr, err := store.NewManager(path)
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize(context.Background()))
	t.Cleanup(func() { _ = mgr.Close() })
	return NewService(store.NewSwarmRepository(mgr.Conn()), store.NewInboxRepository(mgr.Conn())), mgr
}

func TestCreateSwarmRegistersMasterAsSoleMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	swarm, err := svc.CreateSwarm(ctx, "research", "agent-master", "https://master.example.com", "pubkey-master", false, false, now)
	require.NoError(t, err)
	require.Len(t, swarm.Members, 1)
	assert.Equal(t, "agent-master", swarm.Master)
}

func TestInviteAndJoinRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "research", "agent-master", "https://master.example.com", masterPub, false, false, now)
	require.NoError(t, err)

	inviteURL, err := svc.Invite(ctx, swarm.SwarmID, "agent-master", masterKP.PrivateKey, time.Time{}, 0, now)
	require.NoError(t, err)

	joined, err := svc.Join(ctx, inviteURL, "agent-newbie", "https://newbie.example.com", "pubkey-newbie", now)
	require.NoError(t, err)
	require.Len(t, joined.Members, 2)

	// The local inbox records one member_joined system notification.
	inboxMsgs, err := svc.inbox.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, inboxMsgs, 1)
	assert.Equal(t, "system", inboxMsgs[0].MessageType)
	assert.Equal(t, "agent-newbie", inboxMsgs[0].SenderID)
	assert.Contains(t, inboxMsgs[0].Content, `"type":"system"`)
	assert.Contains(t, inboxMsgs[0].Content, `"action":"member_joined"`)
	assert.Equal(t, "system", inboxMsgs[0].MessageType)
}

func TestJoinPopulatesPublicKeyCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swarmmesh.db")
	mgr, err := store.NewManager(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize(context.Background()))

	keys := store.NewPublicKeyRepository(mgr.Conn())
	svc := NewService(store.NewSwarmRepository(mgr.Conn()), store.NewInboxRepository(mgr.Conn())).
		WithPublicKeyCache(NewPublicKeyCache(keys))

	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "research", "agent-master", "https://master.example.com", masterPub, false, false, now)
	require.NoError(t, err)

	inviteURL, err := svc.Invite(ctx, swarm.SwarmID, "agent-master", masterKP.PrivateKey, time.Time{}, 0, now)
	require.NoError(t, err)

	_, err = svc.Join(ctx, inviteURL, "agent-newbie", "https://newbie.example.com", "pubkey-newbie", now)
	require.NoError(t, err)

	entry, err := keys.Get(ctx, "agent-master")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, masterPub, entry.PublicKey)
}

func TestInvite_MemberSignedTokenRejectedByVerify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "open-swarm", "agent-master", "https://master.example.com", masterPub, true, false, now)
	require.NoError(t, err)

	// A regular member (not the master) joins first, signed by the master.
	inviteURL, err := svc.Invite(ctx, swarm.SwarmID, "agent-master", masterKP.PrivateKey, time.Time{}, 0, now)
	require.NoError(t, err)
	memberPub := "pubkey-member"
	_, err = svc.Join(ctx, inviteURL, "agent-member", "https://member.example.com", memberPub, now)
	require.NoError(t, err)

	// The member now mints their own invite, since allow_member_invite is
	// true. Although the invoker is allowed to call Invite, the token's
	// signature is still the invoker's own key, while verification
	// always resolves the swarm's recorded master key, so a non-master-
	// signed invite must fail verification for anyone who checks it
	// against the swarm's real master key.
	memberKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	token, err := identity.MakeInvite(memberKP.PrivateKey, swarm.SwarmID, "agent-master", "https://master.example.com", time.Time{}, 0, now)
	require.NoError(t, err)

	_, err = identity.VerifyInvite(token, masterKP.PublicKey, swarm.SwarmID, now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSignature))
}

func TestInviteRejectsNonMasterWhenNotAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "closed-swarm", "agent-master", "https://master.example.com", masterPub, false, false, now)
	require.NoError(t, err)

	memberKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	_, err = svc.Invite(ctx, swarm.SwarmID, "agent-not-master", memberKP.PrivateKey, time.Time{}, 0, now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotMaster))
}

func TestJoinIsIdempotentForExistingMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "research", "agent-master", "https://master.example.com", masterPub, false, false, now)
	require.NoError(t, err)

	inviteURL, err := svc.Invite(ctx, swarm.SwarmID, "agent-master", masterKP.PrivateKey, time.Time{}, 0, now)
	require.NoError(t, err)

	first, err := svc.Join(ctx, inviteURL, "agent-newbie", "https://newbie.example.com", "pubkey-newbie", now)
	require.NoError(t, err)
	require.Len(t, first.Members, 2)

	// Re-delivering the same join request yields the same membership and
	// no second member_joined notification.
	again, err := svc.Join(ctx, inviteURL, "agent-newbie", "https://newbie.example.com", "pubkey-newbie", now)
	require.NoError(t, err)
	assert.Len(t, again.Members, 2)

	inboxMsgs, err := svc.inbox.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, inboxMsgs, 1)
}

func TestJoinRejectsWhenApprovalRequired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "moderated-swarm", "agent-master", "https://master.example.com", masterPub, false, true, now)
	require.NoError(t, err)

	inviteURL, err := svc.Invite(ctx, swarm.SwarmID, "agent-master", masterKP.PrivateKey, time.Time{}, 0, now)
	require.NoError(t, err)

	_, err = svc.Join(ctx, inviteURL, "agent-newbie", "https://newbie.example.com", "pubkey-newbie", now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindApprovalNeeded))
}

func TestLeaveRejectsMasterAndRemovesMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "research", "agent-master", "https://master.example.com", masterPub, false, false, now)
	require.NoError(t, err)

	inviteURL, err := svc.Invite(ctx, swarm.SwarmID, "agent-master", masterKP.PrivateKey, time.Time{}, 0, now)
	require.NoError(t, err)
	_, err = svc.Join(ctx, inviteURL, "agent-member", "https://member.example.com", "pubkey-member", now)
	require.NoError(t, err)

	err = svc.Leave(ctx, swarm.SwarmID, "agent-master", now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))

	err = svc.Leave(ctx, swarm.SwarmID, "agent-member", now)
	require.NoError(t, err)
}

func TestKickRequiresMasterAndCannotTargetMaster(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "research", "agent-master", "https://master.example.com", masterPub, false, false, now)
	require.NoError(t, err)

	inviteURL, err := svc.Invite(ctx, swarm.SwarmID, "agent-master", masterKP.PrivateKey, time.Time{}, 0, now)
	require.NoError(t, err)
	_, err = svc.Join(ctx, inviteURL, "agent-member", "https://member.example.com", "pubkey-member", now)
	require.NoError(t, err)

	err = svc.Kick(ctx, swarm.SwarmID, "agent-member", "agent-master", "", now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotMaster))

	err = svc.Kick(ctx, swarm.SwarmID, "agent-master", "agent-master", "", now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))

	err = svc.Kick(ctx, swarm.SwarmID, "agent-master", "agent-member", "spamming", now)
	require.NoError(t, err)
}

func TestDeleteSwarmRequiresMaster(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	masterKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	masterPub := identity.PublicKeyToBase64(masterKP.PublicKey)

	swarm, err := svc.CreateSwarm(ctx, "research", "agent-master", "https://master.example.com", masterPub, false, false, now)
	require.NoError(t, err)

	err = svc.DeleteSwarm(ctx, swarm.SwarmID, "agent-intruder")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotMaster))

	err = svc.DeleteSwarm(ctx, swarm.SwarmID, "agent-master")
	require.NoError(t, err)

	_, err = svc.swarms.GetSwarm(ctx, swarm.SwarmID)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSwarmNotFound))
}
