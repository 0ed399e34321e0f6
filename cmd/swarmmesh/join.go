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
	"strings"
	"time"

	"github.com/sage-x-project/swarmmesh/crypto/identity"
	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/spf13/cobra"
)

var joinInviteURL string

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a swarm using an invite URL",
	RunE:  runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)
	joinCmd.Flags().StringVarP(&joinInviteURL, "invite-url", "i", "", "invite URL received from a swarm member (required)")
	_ = joinCmd.MarkFlagRequired("invite-url")
}

// masterEndpointHost extracts the bare host (no scheme) embedded between
// "@" and "?" in a swarm://<swarm_id>@<host>?token=... invite URL.
func masterEndpointHost(inviteURL string) (string, error) {
	const prefix = identity.InviteURLScheme + "://"
	if !strings.HasPrefix(inviteURL, prefix) {
		return "", errs.New(errs.KindFormat, "malformed invite URL")
	}
	rest := inviteURL[len(prefix):]
	at := strings.Index(rest, "@")
	q := strings.Index(rest, "?")
	if at < 0 || q < 0 || q < at {
		return "", errs.New(errs.KindFormat, "malformed invite URL")
	}
	return rest[at+1 : q], nil
}

func runJoin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kp, err := a.loadIdentityKeys()
	if err != nil {
		return a.reportErr(err)
	}

	host, err := masterEndpointHost(joinInviteURL)
	if err != nil {
		return a.reportErr(err)
	}

	resp, err := a.client.Post(cmd.Context(), "https://"+host+"/swarm/join", map[string]string{
		"invite_url":       joinInviteURL,
		"agent_id":         a.cfg.Identity.AgentID,
		"agent_endpoint":   a.cfg.Identity.Endpoint,
		"agent_public_key": identity.PublicKeyToBase64(kp.PublicKey),
	})
	if err != nil {
		return a.reportErr(err)
	}

	if resp.StatusCode == 202 {
		a.out.Data(map[string]string{"status": "pending"}, func() {
			a.out.Success("join request sent, awaiting master approval")
		})
		return nil
	}
	if resp.StatusCode != 200 {
		msg, _ := resp.Body["error"].(string)
		if msg == "" {
			msg = "join request rejected"
		}
		a.out.Error(msg, "")
		return errs.New(errs.KindSwarmNotFound, msg)
	}

	swarmID, _ := resp.Body["swarm_id"].(string)
	name, _ := resp.Body["swarm_name"].(string)
	master, _ := resp.Body["master"].(string)
	masterEndpoint, _ := resp.Body["master_endpoint"].(string)
	masterPublicKey, _ := resp.Body["master_public_key"].(string)

	now := time.Now()
	if err := a.swarms.CreateSwarm(cmd.Context(), store.Swarm{
		SwarmID: swarmID,
		Name:    name,
		Master:  master,
		Members: []store.Member{
			{AgentID: master, Endpoint: masterEndpoint, PublicKey: masterPublicKey, JoinedAt: now},
			{AgentID: a.cfg.Identity.AgentID, Endpoint: a.cfg.Identity.Endpoint, PublicKey: identity.PublicKeyToBase64(kp.PublicKey), JoinedAt: now},
		},
		JoinedAt: now,
	}); err != nil {
		return a.reportErr(err)
	}

	a.out.Data(map[string]string{"status": "accepted", "swarm_id": swarmID, "name": name}, func() {
		a.out.Success("joined swarm " + name + " (" + swarmID + ")")
	})
	return nil
}
