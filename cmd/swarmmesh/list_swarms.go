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
	"strconv"

	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/spf13/cobra"
)

var (
	listSwarmsFilter  string
	listSwarmsMembers bool
)

var listSwarmsCmd = &cobra.Command{
	Use:   "list-swarms",
	Short: "List swarms this agent belongs to",
	RunE:  runListSwarms,
}

func init() {
	rootCmd.AddCommand(listSwarmsCmd)
	listSwarmsCmd.Flags().StringVarP(&listSwarmsFilter, "swarm", "s", "", "filter by swarm ID")
	listSwarmsCmd.Flags().BoolVarP(&listSwarmsMembers, "members", "m", false, "show member details")
}

func runListSwarms(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var swarms []store.Swarm
	if listSwarmsFilter != "" {
		swarm, err := a.swarms.GetSwarm(cmd.Context(), listSwarmsFilter)
		if err != nil {
			return a.reportErr(err)
		}
		swarms = []store.Swarm{*swarm}
	} else {
		swarms, err = a.swarms.ListSwarms(cmd.Context())
		if err != nil {
			return a.reportErr(err)
		}
	}

	a.out.Data(swarmsView(swarms, listSwarmsMembers), func() {
		if len(swarms) == 0 {
			a.out.Success("no swarms found. Create one with `swarmmesh create`.")
			return
		}
		rows := make([][]string, len(swarms))
		for i, s := range swarms {
			rows[i] = []string{s.SwarmID, s.Name, s.Master, strconv.Itoa(len(s.Members)), s.JoinedAt.Format("2006-01-02")}
		}
		a.out.Table("Swarms", []string{"ID", "NAME", "MASTER", "MEMBERS", "JOINED"}, rows)

		if listSwarmsMembers {
			for _, s := range swarms {
				memberRows := make([][]string, len(s.Members))
				for i, m := range s.Members {
					memberRows[i] = []string{m.AgentID, m.Endpoint, m.JoinedAt.Format("2006-01-02 15:04")}
				}
				a.out.Table("Members of "+s.Name, []string{"AGENT ID", "ENDPOINT", "JOINED"}, memberRows)
			}
		}
	})
	return nil
}

func swarmsView(swarms []store.Swarm, withMembers bool) map[string]any {
	views := make([]map[string]any, len(swarms))
	for i, s := range swarms {
		v := map[string]any{
			"swarm_id":     s.SwarmID,
			"name":         s.Name,
			"master":       s.Master,
			"member_count": len(s.Members),
			"joined_at":    s.JoinedAt,
		}
		if withMembers {
			members := make([]map[string]any, len(s.Members))
			for j, m := range s.Members {
				members[j] = map[string]any{"agent_id": m.AgentID, "endpoint": m.Endpoint, "joined_at": m.JoinedAt}
			}
			v["members"] = members
		}
		views[i] = v
	}
	return map[string]any{"swarms": views}
}
