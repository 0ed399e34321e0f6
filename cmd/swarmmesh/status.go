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
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent configuration and connection status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "show per-swarm and per-mute detail")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	swarms, err := a.swarms.ListSwarms(ctx)
	if err != nil {
		return a.reportErr(err)
	}
	mutedAgents, err := a.mutes.GetAllMutedAgents(ctx)
	if err != nil {
		return a.reportErr(err)
	}
	mutedSwarms, err := a.mutes.GetAllMutedSwarms(ctx)
	if err != nil {
		return a.reportErr(err)
	}

	status := map[string]any{
		"agent_id":     a.cfg.Identity.AgentID,
		"endpoint":     a.cfg.Identity.Endpoint,
		"public_key":   a.cfg.Identity.PublicKey,
		"db_path":      a.cfg.Store.DBPath,
		"swarm_count":  len(swarms),
		"muted_agents": len(mutedAgents),
		"muted_swarms": len(mutedSwarms),
	}
	if statusVerbose {
		swarmViews := make([]map[string]any, len(swarms))
		for i, s := range swarms {
			swarmViews[i] = map[string]any{
				"swarm_id":     s.SwarmID,
				"name":         s.Name,
				"master":       s.Master,
				"is_master":    s.Master == a.cfg.Identity.AgentID,
				"member_count": len(s.Members),
			}
		}
		status["swarms"] = swarmViews
	}

	a.out.Data(status, func() {
		fmt.Fprintln(os.Stdout, "Agent ID:    ", a.cfg.Identity.AgentID)
		fmt.Fprintln(os.Stdout, "Endpoint:    ", a.cfg.Identity.Endpoint)
		fmt.Fprintln(os.Stdout, "Database:    ", a.cfg.Store.DBPath)
		fmt.Fprintln(os.Stdout, "Swarms:      ", strconv.Itoa(len(swarms)))
		fmt.Fprintln(os.Stdout, "Muted Agents:", strconv.Itoa(len(mutedAgents)))
		fmt.Fprintln(os.Stdout, "Muted Swarms:", strconv.Itoa(len(mutedSwarms)))

		if statusVerbose && len(swarms) > 0 {
			rows := make([][]string, len(swarms))
			for i, s := range swarms {
				isMaster := "No"
				if s.Master == a.cfg.Identity.AgentID {
					isMaster = "Yes"
				}
				rows[i] = []string{s.SwarmID, s.Name, isMaster, strconv.Itoa(len(s.Members))}
			}
			a.out.Table("Swarm Memberships", []string{"ID", "NAME", "MASTER", "MEMBERS"}, rows)
		}
	})
	return nil
}
