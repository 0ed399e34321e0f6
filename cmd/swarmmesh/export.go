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
	"encoding/json"
	"os"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/spf13/cobra"
)

// stateSnapshot is the full, portable on-disk state of one agent: every
// swarm it belongs to (with rosters), its inbox/outbox history, and its
// mute lists. Produced by `export` and consumed by `import`.
type stateSnapshot struct {
	SchemaVersion string                          `json:"schema_version"`
	ExportedAt    time.Time                       `json:"exported_at"`
	AgentID       string                          `json:"agent_id"`
	Swarms        map[string]store.Swarm          `json:"swarms"`
	Inbox         []store.InboxMessage            `json:"inbox"`
	Outbox        []store.OutboxMessage           `json:"outbox"`
	MutedAgents   []store.MutedAgent              `json:"muted_agents"`
	MutedSwarms   []store.MutedSwarm              `json:"muted_swarms"`
	PublicKeys    map[string]store.PublicKeyEntry `json:"public_keys"`
}

// stateSnapshotVersion is the schema version written by export. Import
// additionally accepts 1.0.0 snapshots, which simply predate the
// public_keys section.
const stateSnapshotVersion = "2.0.0"

var supportedSnapshotVersions = map[string]bool{"1.0.0": true, "2.0.0": true}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export this agent's swarms, messages, and mutes to a JSON file",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path (default swarmmesh-export-<timestamp>.json)")
}

func runExport(cmd *cobra.Command, args []string) error {
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
	inboxMsgs, err := a.inboxR.DumpAll(ctx)
	if err != nil {
		return a.reportErr(err)
	}
	outboxMsgs, err := a.outR.DumpAll(ctx)
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
	publicKeys, err := store.NewPublicKeyRepository(a.mgr.Conn()).GetAll(ctx)
	if err != nil {
		return a.reportErr(err)
	}

	swarmsByID := make(map[string]store.Swarm, len(swarms))
	for _, s := range swarms {
		swarmsByID[s.SwarmID] = s
	}
	keysByAgent := make(map[string]store.PublicKeyEntry, len(publicKeys))
	for _, k := range publicKeys {
		keysByAgent[k.AgentID] = k
	}

	snapshot := stateSnapshot{
		SchemaVersion: stateSnapshotVersion,
		ExportedAt:    time.Now(),
		AgentID:       a.cfg.Identity.AgentID,
		Swarms:        swarmsByID,
		Inbox:         inboxMsgs,
		Outbox:        outboxMsgs,
		MutedAgents:   mutedAgents,
		MutedSwarms:   mutedSwarms,
		PublicKeys:    keysByAgent,
	}

	path := exportOutput
	if path == "" {
		path = "swarmmesh-export-" + snapshot.ExportedAt.Format("20060102-150405") + ".json"
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return a.reportErr(errs.Wrap(errs.KindImport, err, "marshaling state snapshot"))
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return a.reportErr(errs.Wrap(errs.KindStorage, err, "writing export file"))
	}

	a.out.Data(map[string]any{
		"status":       "exported",
		"path":         path,
		"swarm_count":  len(swarms),
		"inbox_count":  len(inboxMsgs),
		"outbox_count": len(outboxMsgs),
	}, func() {
		a.out.Success("exported state to " + path)
	})
	return nil
}
