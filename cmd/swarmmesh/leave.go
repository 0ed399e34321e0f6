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

var leaveSwarmID string

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave a swarm",
	RunE:  runLeave,
}

func init() {
	rootCmd.AddCommand(leaveCmd)
	leaveCmd.Flags().StringVar(&leaveSwarmID, "swarm-id", "", "swarm to leave (required)")
	_ = leaveCmd.MarkFlagRequired("swarm-id")
}

func runLeave(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kp, err := a.loadIdentityKeys()
	if err != nil {
		return a.reportErr(err)
	}

	// Snapshot the roster before the local row is deleted; the departure
	// broadcast goes to these members.
	swarm, err := a.swarms.GetSwarm(cmd.Context(), leaveSwarmID)
	if err != nil {
		return a.reportErr(err)
	}

	if err := a.mship.Leave(cmd.Context(), leaveSwarmID, a.cfg.Identity.AgentID, time.Now()); err != nil {
		return a.reportErr(err)
	}

	notified := a.fanOutSystemBroadcast(cmd.Context(), kp, swarm, systemContent{
		Action:  "member_left",
		AgentID: a.cfg.Identity.AgentID,
	})

	a.out.Data(map[string]any{"status": "left", "swarm_id": leaveSwarmID, "notified": notified}, func() {
		a.out.Success("left swarm " + leaveSwarmID)
	})
	return nil
}
