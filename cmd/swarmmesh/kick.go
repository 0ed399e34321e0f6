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
	"github.com/sage-x-project/swarmmesh/internal/logger"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/spf13/cobra"
)

var (
	kickSwarmID string
	kickTarget  string
	kickReason  string
)

var kickCmd = &cobra.Command{
	Use:   "kick",
	Short: "Remove a member from a swarm (master only)",
	RunE:  runKick,
}

func init() {
	rootCmd.AddCommand(kickCmd)
	kickCmd.Flags().StringVar(&kickSwarmID, "swarm-id", "", "swarm to kick from (required)")
	kickCmd.Flags().StringVar(&kickTarget, "target", "", "agent ID to remove (required)")
	kickCmd.Flags().StringVarP(&kickReason, "reason", "r", "", "reason recorded in the lifecycle notification")
	_ = kickCmd.MarkFlagRequired("swarm-id")
	_ = kickCmd.MarkFlagRequired("target")
}

func runKick(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kp, err := a.loadIdentityKeys()
	if err != nil {
		return a.reportErr(err)
	}

	swarm, err := a.swarms.GetSwarm(cmd.Context(), kickSwarmID)
	if err != nil {
		return a.reportErr(err)
	}
	if swarm.Master != a.cfg.Identity.AgentID {
		return a.reportErr(errs.Newf(errs.KindNotMaster, "only the master of swarm %s may kick members", kickSwarmID))
	}
	var target *store.Member
	for i := range swarm.Members {
		if swarm.Members[i].AgentID == kickTarget {
			target = &swarm.Members[i]
			break
		}
	}
	if target == nil {
		return a.reportErr(errs.Newf(errs.KindNotMember, "agent %s is not a member of swarm %s", kickTarget, kickSwarmID))
	}

	// Tell the target it was kicked, then broadcast to the remaining
	// members, then drop the row; per-recipient failures are ignored.
	if err := a.deliverSystemMessage(cmd.Context(), kp, *target, kickSwarmID, systemContent{
		Action:  "kicked",
		AgentID: kickTarget,
		Reason:  kickReason,
	}); err != nil {
		logger.Warn("kicked notification delivery failed", logger.String("agent_id", kickTarget), logger.Err(err))
	}
	notified := a.fanOutSystemBroadcast(cmd.Context(), kp, swarm, systemContent{
		Action:  "member_kicked",
		AgentID: kickTarget,
		Reason:  kickReason,
	}, kickTarget)

	if err := a.mship.Kick(cmd.Context(), kickSwarmID, a.cfg.Identity.AgentID, kickTarget, kickReason, time.Now()); err != nil {
		return a.reportErr(err)
	}

	a.out.Data(map[string]any{"status": "kicked", "swarm_id": kickSwarmID, "target": kickTarget, "notified": notified}, func() {
		a.out.Success("kicked " + kickTarget + " from " + kickSwarmID)
	})
	return nil
}
