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

// Package identity provides the Ed25519 keypair and invite-token primitives
// an agent uses to establish and prove its swarm identity.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

// KeyPair holds an agent's Ed25519 identity keys.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 keypair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, errs.Wrap(errs.KindStorage, err, "generating Ed25519 keypair")
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Sign signs payload with the keypair's private key, returning a base64
// (standard, padded) encoded signature.
func Sign(priv ed25519.PrivateKey, payload []byte) string {
	sig := ed25519.Sign(priv, payload)
	return base64.StdEncoding.EncodeToString(sig)
}

// Verify checks a base64-encoded signature over payload against pub.
func Verify(pub ed25519.PublicKey, payload []byte, sigB64 string) bool {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}

// PublicKeyToBase64 encodes the raw 32-byte public key as standard base64.
func PublicKeyToBase64(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}

// PublicKeyFromBase64 decodes a standard-base64-encoded raw public key.
func PublicKeyFromBase64(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.KindFormat, err, "decoding base64 public key")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errs.Newf(errs.KindFormat, "public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
