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
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/swarmmesh/core/message"
	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/spf13/cobra"
)

var (
	sendSwarmID   string
	sendRecipient string
	sendContent   string
	sendPriority  string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message into a swarm",
	Long: `send delivers a signed message to one recipient, or to every member of
the swarm when --recipient is omitted or set to "broadcast".`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendSwarmID, "swarm-id", "", "swarm to send into (required)")
	sendCmd.Flags().StringVar(&sendRecipient, "recipient", message.BroadcastRecipient, "agent ID to send to, or \"broadcast\" for every member")
	sendCmd.Flags().StringVarP(&sendContent, "message", "m", "", "message content (required)")
	sendCmd.Flags().StringVar(&sendPriority, "priority", string(message.PriorityNormal), "low|normal|high")
	_ = sendCmd.MarkFlagRequired("swarm-id")
	_ = sendCmd.MarkFlagRequired("message")
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kp, err := a.loadIdentityKeys()
	if err != nil {
		return a.reportErr(err)
	}

	swarm, err := a.swarms.GetSwarm(cmd.Context(), sendSwarmID)
	if err != nil {
		return a.reportErr(err)
	}

	targets := recipientsFor(swarm, a.cfg.Identity.AgentID, sendRecipient)
	if len(targets) == 0 {
		err := errs.New(errs.KindNotMember, "no deliverable recipients found in swarm")
		return a.reportErr(err)
	}

	failures := 0
	for _, target := range targets {
		wire := message.Wire{
			ProtocolVersion: "1.0.0",
			MessageID:       uuid.NewString(),
			Timestamp:       time.Now(),
			Sender:          message.Sender{AgentID: a.cfg.Identity.AgentID, Endpoint: a.cfg.Identity.Endpoint},
			Recipient:       sendRecipient,
			SwarmID:         sendSwarmID,
			Type:            message.TypeMessage,
			Content:         sendContent,
			Priority:        message.Priority(sendPriority),
		}
		wire.Signature = identity.Sign(kp.PrivateKey, wire.SigningPayload())

		body, err := wire.ToWireJSON()
		if err != nil {
			return a.reportErr(err)
		}

		status := store.OutboxSent
		sendErr := ""
		if _, err := a.client.PostRaw(cmd.Context(), target.Endpoint+"/swarm/message", body); err != nil {
			failures++
			status = store.OutboxFailed
			sendErr = err.Error()
		}

		if err := a.outbox.Record(cmd.Context(), store.OutboxMessage{
			MessageID:   wire.MessageID,
			SwarmID:     sendSwarmID,
			RecipientID: target.AgentID,
			MessageType: string(message.TypeMessage),
			Content:     sendContent,
			SentAt:      time.Now(),
			Status:      status,
			Error:       sendErr,
		}); err != nil {
			return a.reportErr(err)
		}
	}

	a.out.Data(map[string]any{"status": "sent", "recipients": len(targets), "failed": failures}, func() {
		a.out.Success("sent to " + strconv.Itoa(len(targets)-failures) + "/" + strconv.Itoa(len(targets)) + " recipients")
	})
	return nil
}

// recipientsFor resolves the wire recipients for a send: either the single
// named member, or every other member of the swarm for a broadcast.
func recipientsFor(swarm *store.Swarm, selfID, recipient string) []store.Member {
	if recipient != message.BroadcastRecipient {
		for _, m := range swarm.Members {
			if m.AgentID == recipient {
				return []store.Member{m}
			}
		}
		return nil
	}
	var out []store.Member
	for _, m := range swarm.Members {
		if m.AgentID != selfID {
			out = append(out, m)
		}
	}
	return out
}
