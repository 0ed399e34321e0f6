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

	"github.com/spf13/cobra"
)

var (
	inviteSwarmID   string
	inviteExpiresIn time.Duration
	inviteMaxUses   int
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Mint an invite URL for a swarm",
	RunE:  runInvite,
}

func init() {
	rootCmd.AddCommand(inviteCmd)
	inviteCmd.Flags().StringVar(&inviteSwarmID, "swarm-id", "", "swarm to invite to (required)")
	inviteCmd.Flags().DurationVar(&inviteExpiresIn, "expires-in", time.Hour, "how long the invite token remains valid")
	inviteCmd.Flags().IntVar(&inviteMaxUses, "max-uses", 0, "maximum number of joins this token may authorize (0 = unlimited)")
	_ = inviteCmd.MarkFlagRequired("swarm-id")
}

func runInvite(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kp, err := a.loadIdentityKeys()
	if err != nil {
		return a.reportErr(err)
	}

	now := time.Now()
	url, err := a.mship.Invite(cmd.Context(), inviteSwarmID, a.cfg.Identity.AgentID, kp.PrivateKey, now.Add(inviteExpiresIn), inviteMaxUses, now)
	if err != nil {
		return a.reportErr(err)
	}

	a.out.Data(map[string]string{"status": "created", "invite_url": url}, func() {
		a.out.Success("invite URL: " + url)
	})
	return nil
}
