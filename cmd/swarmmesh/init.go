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
	"os"

	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/spf13/cobra"
)

var (
	initAgentID  string
	initEndpoint string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a local agent identity keypair",
	Long: `init generates a fresh Ed25519 keypair for this agent and writes it to
swarmmesh-identity.key. Run this once before create/join/invite/send and
the other commands that load this key: create and join publish its public
key, while invite and send sign with it.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initAgentID, "agent-id", "", "agent ID (accepted but not recorded by init; set AGENT_ID instead)")
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "this agent's https:// endpoint (accepted but not recorded by init)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing identity key")
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !initForce {
		if _, err := os.Stat(keyFilePath); err == nil {
			a.out.Error("identity key already exists", "pass --force to overwrite")
			return nil
		}
	}

	kp, err := identity.GenerateKeyPair()
	if err != nil {
		return a.reportErr(err)
	}
	if err := identity.SaveKeyFile(keyFilePath, kp); err != nil {
		return a.reportErr(err)
	}

	pub := identity.PublicKeyToBase64(kp.PublicKey)
	a.out.Data(map[string]string{
		"status":     "initialized",
		"public_key": pub,
		"key_file":   keyFilePath,
	}, func() {
		a.out.Success("generated agent identity, public key: " + pub)
	})
	return nil
}
