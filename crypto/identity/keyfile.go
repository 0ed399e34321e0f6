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
	"os"
	"path/filepath"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

// keyFileData is the on-disk JSON shape of a persisted identity keypair:
// a JSON envelope of base64 key material, written with 0600 file / 0700
// directory permissions.
type keyFileData struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// SaveKeyFile writes kp to path as JSON, creating its parent directory if
// necessary. File permissions are 0600; the parent directory is 0700.
func SaveKeyFile(path string, kp KeyPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errs.Wrap(errs.KindStorage, err, "creating key directory")
	}
	data, err := json.MarshalIndent(keyFileData{
		PublicKey:  PublicKeyToBase64(kp.PublicKey),
		PrivateKey: base64.StdEncoding.EncodeToString(kp.PrivateKey),
	}, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindStorage, err, "marshaling key file")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errs.Wrap(errs.KindStorage, err, "writing key file")
	}
	return nil
}

// LoadKeyFile reads a keypair previously written by SaveKeyFile.
func LoadKeyFile(path string) (KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KeyPair{}, errs.Wrap(errs.KindStorage, err, "reading key file")
	}
	var fileData keyFileData
	if err := json.Unmarshal(data, &fileData); err != nil {
		return KeyPair{}, errs.Wrap(errs.KindFormat, err, "parsing key file")
	}
	pub, err := PublicKeyFromBase64(fileData.PublicKey)
	if err != nil {
		return KeyPair{}, err
	}
	rawPriv, err := base64.StdEncoding.DecodeString(fileData.PrivateKey)
	if err != nil {
		return KeyPair{}, errs.Wrap(errs.KindFormat, err, "decoding base64 private key")
	}
	if len(rawPriv) != ed25519.PrivateKeySize {
		return KeyPair{}, errs.Newf(errs.KindFormat, "private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(rawPriv))
	}
	return KeyPair{PublicKey: pub, PrivateKey: ed25519.PrivateKey(rawPriv)}, nil
}
