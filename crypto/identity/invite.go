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
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

const inviteHeader = `{"alg":"EdDSA","typ":"JWT"}`

// InviteClaims is the validated claim set of an invite token.
type InviteClaims struct {
	SwarmID   string `json:"swarm_id"`
	Master    string `json:"master"`
	Endpoint  string `json:"endpoint"`
	IAT       int64  `json:"iat"`
	ExpiresAt string `json:"expires_at,omitempty"`
	MaxUses   int    `json:"max_uses,omitempty"`
}

// MakeInvite builds a compact Ed25519-signed invite token: three
// base64url segments (header.payload.signature), signed by the swarm's
// master key over "header.payload". expiresAt is omitted from the claims
// when zero; maxUses is omitted when zero.
func MakeInvite(priv ed25519.PrivateKey, swarmID, masterID, endpoint string, expiresAt time.Time, maxUses int, now time.Time) (string, error) {
	header := base64urlEncodeString(inviteHeader)

	claims := InviteClaims{
		SwarmID:  swarmID,
		Master:   masterID,
		Endpoint: endpoint,
		IAT:      now.Unix(),
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = expiresAt.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	if maxUses > 0 {
		claims.MaxUses = maxUses
	}

	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", errs.Wrap(errs.KindFormat, err, "marshaling invite claims")
	}
	payload := base64urlEncode(payloadBytes)

	signingInput := header + "." + payload
	sig := ed25519.Sign(priv, []byte(signingInput))
	signature := base64urlEncode(sig)

	return signingInput + "." + signature, nil
}

// VerifyInvite parses and verifies a raw "header.payload.signature" invite
// token against pub. If expectedSwarmID is non-empty, a mismatch fails
// with KindFormat. An expired token fails with KindExpired; anything else
// structurally wrong (bad base64, wrong segment count, unsupported alg,
// missing claim) fails with KindFormat; a bad signature fails with
// KindSignature.
func VerifyInvite(raw string, pub ed25519.PublicKey, expectedSwarmID string, now time.Time) (InviteClaims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return InviteClaims{}, errs.Newf(errs.KindFormat, "invite token has %d segments, expected 3", len(parts))
	}
	headerB64, payloadB64, sigB64 := parts[0], parts[1], parts[2]

	headerBytes, err := base64urlDecode(headerB64)
	if err != nil {
		return InviteClaims{}, errs.Wrap(errs.KindFormat, err, "decoding invite header")
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return InviteClaims{}, errs.Wrap(errs.KindFormat, err, "parsing invite header")
	}
	if header.Alg != "EdDSA" {
		return InviteClaims{}, errs.Newf(errs.KindFormat, "unsupported invite alg %q, expected EdDSA", header.Alg)
	}

	payloadBytes, err := base64urlDecode(payloadB64)
	if err != nil {
		return InviteClaims{}, errs.Wrap(errs.KindFormat, err, "decoding invite payload")
	}
	var claims InviteClaims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return InviteClaims{}, errs.Wrap(errs.KindFormat, err, "parsing invite payload")
	}
	if claims.SwarmID == "" || claims.Master == "" || claims.Endpoint == "" || claims.IAT == 0 {
		return InviteClaims{}, errs.New(errs.KindFormat, "invite payload missing required claims")
	}

	sig, err := base64urlDecode(sigB64)
	if err != nil {
		return InviteClaims{}, errs.Wrap(errs.KindFormat, err, "decoding invite signature")
	}
	signingInput := headerB64 + "." + payloadB64
	if !ed25519.Verify(pub, []byte(signingInput), sig) {
		return InviteClaims{}, errs.New(errs.KindSignature, "invite token signature verification failed")
	}

	if claims.ExpiresAt != "" {
		exp, err := time.Parse("2006-01-02T15:04:05.000Z", claims.ExpiresAt)
		if err != nil {
			return InviteClaims{}, errs.Wrap(errs.KindFormat, err, "parsing invite expires_at")
		}
		if now.After(exp) {
			return InviteClaims{}, errs.Newf(errs.KindExpired, "invite token expired at %s", claims.ExpiresAt)
		}
	}

	if expectedSwarmID != "" && claims.SwarmID != expectedSwarmID {
		return InviteClaims{}, errs.Newf(errs.KindFormat, "invite swarm_id %q does not match expected %q", claims.SwarmID, expectedSwarmID)
	}

	return claims, nil
}

// PeekInviteClaims decodes an invite token's payload claims without
// verifying its signature. It exists solely so a recipient can learn
// which swarm a token names before it has resolved that swarm's master
// key to verify the token for real; callers must still call VerifyInvite
// before trusting the claims.
func PeekInviteClaims(raw string) (InviteClaims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return InviteClaims{}, errs.Newf(errs.KindFormat, "invite token has %d segments, expected 3", len(parts))
	}
	payloadBytes, err := base64urlDecode(parts[1])
	if err != nil {
		return InviteClaims{}, errs.Wrap(errs.KindFormat, err, "decoding invite payload")
	}
	var claims InviteClaims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return InviteClaims{}, errs.Wrap(errs.KindFormat, err, "parsing invite payload")
	}
	return claims, nil
}

func base64urlEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func base64urlEncodeString(s string) string {
	return base64urlEncode([]byte(s))
}

func base64urlDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
