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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/store"
	"github.com/spf13/cobra"
)

var (
	importMerge bool
	importYes   bool
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import a previously exported state snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importMerge, "merge", false, "add to existing state instead of replacing it")
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "skip the confirmation prompt")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return a.reportErr(errs.Newf(errs.KindSwarmNotFound, "import file not found: %s", path))
		}
		return a.reportErr(errs.Wrap(errs.KindStorage, err, "reading import file"))
	}

	var snapshot stateSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return a.reportErr(errs.Wrap(errs.KindImport, err, "parsing state snapshot"))
	}
	if !supportedSnapshotVersions[snapshot.SchemaVersion] {
		return a.reportErr(errs.Newf(errs.KindImport, "unsupported snapshot version %q", snapshot.SchemaVersion))
	}

	if !importMerge && !importYes && !a.out.JSON {
		if !confirmImport() {
			a.out.Success("import cancelled")
			return nil
		}
	}

	if !importMerge {
		if err := clearLocalState(ctx, a); err != nil {
			return a.reportErr(err)
		}
	}

	imported := map[string]int{"swarms": 0, "inbox": 0, "outbox": 0, "muted_agents": 0, "muted_swarms": 0, "public_keys": 0}

	for _, s := range snapshot.Swarms {
		if err := a.swarms.CreateSwarm(ctx, s); err != nil {
			continue
		}
		imported["swarms"]++
	}
	for _, m := range snapshot.Inbox {
		if err := a.inboxR.Insert(ctx, m); err != nil {
			continue
		}
		imported["inbox"]++
	}
	for _, m := range snapshot.Outbox {
		if err := a.outR.Insert(ctx, m); err != nil {
			continue
		}
		imported["outbox"]++
	}
	for _, m := range snapshot.MutedAgents {
		if err := a.mutes.MuteAgent(ctx, m.AgentID, m.MutedAt, m.Reason); err != nil {
			continue
		}
		imported["muted_agents"]++
	}
	for _, m := range snapshot.MutedSwarms {
		if err := a.mutes.MuteSwarm(ctx, m.SwarmID, m.MutedAt, m.Reason); err != nil {
			continue
		}
		imported["muted_swarms"]++
	}
	keys := store.NewPublicKeyRepository(a.mgr.Conn())
	for _, k := range snapshot.PublicKeys {
		if err := keys.Store(ctx, k); err != nil {
			continue
		}
		imported["public_keys"]++
	}

	a.out.Data(map[string]any{"status": "imported", "path": path, "counts": imported}, func() {
		a.out.Success(fmt.Sprintf("imported %d swarms, %d inbox messages, %d outbox messages, %d muted agents, %d muted swarms",
			imported["swarms"], imported["inbox"], imported["outbox"], imported["muted_agents"], imported["muted_swarms"]))
	})
	return nil
}

// clearLocalState wipes every table that import replaces when --merge is
// not set, so a replacing import starts from a clean slate.
func clearLocalState(ctx context.Context, a *app) error {
	tables := []string{"swarm_members", "swarms", "inbox", "outbox", "muted_agents", "muted_swarms", "public_keys"}
	for _, table := range tables {
		if _, err := a.mgr.Conn().ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errs.Wrap(errs.KindStorage, err, "clearing local state before import")
		}
	}
	return nil
}

func confirmImport() bool {
	fmt.Fprint(os.Stderr, "This will replace all local state. Continue? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}
