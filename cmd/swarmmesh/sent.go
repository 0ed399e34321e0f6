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
	sentSwarmID string
	sentLimit   int
)

var sentCmd = &cobra.Command{
	Use:   "sent",
	Short: "List sent messages from the local outbox",
	RunE:  runSent,
}

func init() {
	rootCmd.AddCommand(sentCmd)
	sentCmd.Flags().StringVarP(&sentSwarmID, "swarm", "s", "", "swarm ID to list sent messages for (required)")
	sentCmd.Flags().IntVarP(&sentLimit, "limit", "l", 50, "maximum number of messages to return")
	_ = sentCmd.MarkFlagRequired("swarm")
}

func runSent(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if sentSwarmID == "" {
		return a.reportErr(errs.New(errs.KindValidation, "swarm ID is required"))
	}

	msgs, err := a.outbox.List(cmd.Context(), sentSwarmID, sentLimit)
	if err != nil {
		return a.reportErr(err)
	}

	a.out.Data(map[string]any{"swarm_id": sentSwarmID, "count": len(msgs)}, func() {
		rows := make([][]string, len(msgs))
		for i, m := range msgs {
			rows[i] = []string{short(m.MessageID), m.RecipientID, string(m.Status), m.SentAt.Format("2006-01-02T15:04:05"), truncate(m.Content, 60)}
		}
		a.out.Table("Sent", []string{"ID", "RECIPIENT", "STATUS", "SENT", "CONTENT"}, rows)
	})
	return nil
}
