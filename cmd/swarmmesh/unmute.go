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
	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/spf13/cobra"
)

var (
	unmuteAgentID string
	unmuteSwarmID string
)

var unmuteCmd = &cobra.Command{
	Use:   "unmute",
	Short: "Unmute a previously muted agent or swarm",
	RunE:  runUnmute,
}

func init() {
	rootCmd.AddCommand(unmuteCmd)
	unmuteCmd.Flags().StringVarP(&unmuteAgentID, "agent", "a", "", "agent ID to unmute")
	unmuteCmd.Flags().StringVarP(&unmuteSwarmID, "swarm", "s", "", "swarm ID to unmute")
}

func runUnmute(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if unmuteAgentID == "" && unmuteSwarmID == "" {
		return a.reportErr(errs.New(errs.KindValidation, "must specify --agent or --swarm"))
	}
	if unmuteAgentID != "" && unmuteSwarmID != "" {
		return a.reportErr(errs.New(errs.KindValidation, "specify only one of --agent or --swarm"))
	}

	targetType, targetID := "agent", unmuteAgentID
	var wasMuted bool
	var unmuteErr error
	if unmuteAgentID != "" {
		wasMuted, unmuteErr = a.mutes.UnmuteAgent(cmd.Context(), unmuteAgentID)
	} else {
		targetType, targetID = "swarm", unmuteSwarmID
		wasMuted, unmuteErr = a.mutes.UnmuteSwarm(cmd.Context(), unmuteSwarmID)
	}
	if unmuteErr != nil {
		return a.reportErr(unmuteErr)
	}

	a.out.Data(map[string]any{"status": "unmuted", "type": targetType, "id": targetID, "was_muted": wasMuted}, func() {
		if wasMuted {
			a.out.Success("unmuted " + targetType + " '" + targetID + "'")
		} else {
			a.out.Success(targetType + " '" + targetID + "' was not muted")
		}
	})
	return nil
}
