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

package identity

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAndVerifyInviteRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	now := time.Now()

	token, err := MakeInvite(kp.PrivateKey, "swarm-1", "agent-master", "https://master.example.com", time.Time{}, 0, now)
	require.NoError(t, err)

	claims, err := VerifyInvite(token, kp.PublicKey, "", now)
	require.NoError(t, err)
	assert.Equal(t, "swarm-1", claims.SwarmID)
	assert.Equal(t, "agent-master", claims.Master)
	assert.Equal(t, "https://master.example.com", claims.Endpoint)
}

func TestVerifyInviteRejectsWrongKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)
	now := time.Now()

	token, err := MakeInvite(kp.PrivateKey, "swarm-1", "agent-master", "https://m.example.com", time.Time{}, 0, now)
	require.NoError(t, err)

	_, err = VerifyInvite(token, other.PublicKey, "", now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSignature))
}

func TestVerifyInviteRejectsExpired(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	now := time.Now()
	expiresAt := now.Add(-time.Hour)

	token, err := MakeInvite(kp.PrivateKey, "swarm-1", "agent-master", "https://m.example.com", expiresAt, 0, now.Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = VerifyInvite(token, kp.PublicKey, "", now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindExpired))
}

func TestVerifyInviteRejectsSwarmIDMismatch(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	now := time.Now()

	token, err := MakeInvite(kp.PrivateKey, "swarm-1", "agent-master", "https://m.example.com", time.Time{}, 0, now)
	require.NoError(t, err)

	_, err = VerifyInvite(token, kp.PublicKey, "swarm-2", now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindFormat))
}

func TestVerifyInviteRejectsMalformedStructure(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = VerifyInvite("not.a.valid.token.here", kp.PublicKey, "", time.Now())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindFormat))
}

func TestVerifyInviteRejectsUnsupportedAlgorithm(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	badHeader := base64urlEncodeString(`{"alg":"HS256","typ":"JWT"}`)
	payload := base64urlEncodeString(`{"swarm_id":"s","master":"m","endpoint":"https://e","iat":1}`)
	signingInput := badHeader + "." + payload
	sig := base64urlEncode(ed25519.Sign(kp.PrivateKey, []byte(signingInput)))
	token := signingInput + "." + sig

	_, err = VerifyInvite(token, kp.PublicKey, "", time.Now())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindFormat))
}

func TestInviteURLRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	now := time.Now()

	token, err := MakeInvite(kp.PrivateKey, "swarm-9", "agent-master", "https://host.example.com:8443", time.Time{}, 0, now)
	require.NoError(t, err)

	wrapped, err := WrapInviteURL("swarm-9", "https://host.example.com:8443", token)
	require.NoError(t, err)
	assert.Contains(t, wrapped, "swarm://swarm-9@host.example.com:8443")

	swarmID, extractedToken, err := UnwrapInviteURL(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "swarm-9", swarmID)
	assert.Equal(t, token, extractedToken)
}
