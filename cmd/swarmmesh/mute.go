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

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/spf13/cobra"
)

var (
	muteAgentID string
	muteSwarmID string
	muteReason  string
)

var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Mute an agent or swarm; muted sources are ignored by the wake trigger",
	RunE:  runMute,
}

func init() {
	rootCmd.AddCommand(muteCmd)
	muteCmd.Flags().StringVarP(&muteAgentID, "agent", "a", "", "agent ID to mute")
	muteCmd.Flags().StringVarP(&muteSwarmID, "swarm", "s", "", "swarm ID to mute")
	muteCmd.Flags().StringVarP(&muteReason, "reason", "r", "", "reason for muting")
}

func runMute(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if muteAgentID == "" && muteSwarmID == "" {
		return a.reportErr(errs.New(errs.KindValidation, "must specify --agent or --swarm"))
	}
	if muteAgentID != "" && muteSwarmID != "" {
		return a.reportErr(errs.New(errs.KindValidation, "specify only one of --agent or --swarm"))
	}

	targetType, targetID := "agent", muteAgentID
	var muteErr error
	if muteAgentID != "" {
		muteErr = a.mutes.MuteAgent(cmd.Context(), muteAgentID, time.Now(), muteReason)
	} else {
		targetType, targetID = "swarm", muteSwarmID
		muteErr = a.mutes.MuteSwarm(cmd.Context(), muteSwarmID, time.Now(), muteReason)
	}
	if muteErr != nil {
		return a.reportErr(muteErr)
	}

	a.out.Data(map[string]string{"status": "muted", "type": targetType, "id": targetID}, func() {
		a.out.Success("muted " + targetType + " '" + targetID + "'")
	})
	return nil
}
