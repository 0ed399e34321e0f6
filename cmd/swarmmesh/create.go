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
	"time"

	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/spf13/cobra"
)

var (
	createName              string
	createAllowMemberInvite bool
	createRequireApproval   bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new swarm with this agent as master",
	RunE:  runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "swarm name (required)")
	createCmd.Flags().BoolVar(&createAllowMemberInvite, "allow-member-invite", false, "let any member mint invite tokens, not just the master")
	createCmd.Flags().BoolVar(&createRequireApproval, "require-approval", false, "require master approval before a join request is accepted")
	_ = createCmd.MarkFlagRequired("name")
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kp, err := a.loadIdentityKeys()
	if err != nil {
		return a.reportErr(err)
	}

	swarm, err := a.mship.CreateSwarm(cmd.Context(), createName, a.cfg.Identity.AgentID, a.cfg.Identity.Endpoint,
		identity.PublicKeyToBase64(kp.PublicKey), createAllowMemberInvite, createRequireApproval, time.Now())
	if err != nil {
		return a.reportErr(err)
	}

	a.out.Data(map[string]string{
		"status":   "created",
		"swarm_id": swarm.SwarmID,
		"name":     swarm.Name,
		"master":   swarm.Master,
	}, func() {
		a.out.Success("created swarm " + swarm.Name + " (" + swarm.SwarmID + ")")
	})
	return nil
}
