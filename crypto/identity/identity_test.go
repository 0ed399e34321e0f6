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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	payload := []byte("hello swarm")
	sig := Sign(kp.PrivateKey, payload)
	assert.True(t, Verify(kp.PublicKey, payload, sig))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	sig := Sign(kp.PrivateKey, []byte("original"))
	assert.False(t, Verify(kp.PublicKey, []byte("tampered"), sig))
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, Verify(kp.PublicKey, []byte("x"), "not-base64!!"))
}

func TestPublicKeyBase64RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	encoded := PublicKeyToBase64(kp.PublicKey)
	decoded, err := PublicKeyFromBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, decoded)
}

func TestPublicKeyFromBase64RejectsWrongLength(t *testing.T) {
	_, err := PublicKeyFromBase64("dG9vc2hvcnQ=")
	assert.Error(t, err)
}
