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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/spf13/cobra"
)

var (
	purgeMessages       bool
	purgeSessions       bool
	purgeIncludeArchive bool
	purgeTimeoutMinutes int
	purgeRetentionHours int
	purgeForce          bool
	purgeYes            bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently remove aged-out messages and stale sessions",
	RunE:  runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().BoolVar(&purgeMessages, "messages", false, "purge deleted (and optionally archived) inbox messages")
	purgeCmd.Flags().BoolVar(&purgeSessions, "sessions", false, "purge expired SDK sessions")
	purgeCmd.Flags().BoolVar(&purgeIncludeArchive, "include-archived", false, "also purge archived messages, not just deleted ones")
	purgeCmd.Flags().IntVar(&purgeTimeoutMinutes, "timeout-minutes", 60, "session inactivity timeout in minutes")
	purgeCmd.Flags().IntVar(&purgeRetentionHours, "retention-hours", 24, "keep messages younger than this many hours")
	purgeCmd.Flags().BoolVar(&purgeForce, "force", false, "ignore retention and purge everything eligible")
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "skip the confirmation prompt")
}

func runPurge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !purgeMessages && !purgeSessions {
		return a.reportErr(errs.New(errs.KindValidation, "specify at least one of --messages or --sessions"))
	}

	if !purgeYes && !a.out.JSON {
		if !confirmPurge() {
			a.out.Success("purge cancelled")
			return nil
		}
	}

	result := map[string]any{}

	if purgeMessages {
		cutoff := time.Now()
		if !purgeForce {
			cutoff = time.Now().Add(-time.Duration(purgeRetentionHours) * time.Hour)
		}
		n, err := a.inboxR.PurgeOlderThan(cmd.Context(), cutoff, purgeIncludeArchive)
		if err != nil {
			return a.reportErr(err)
		}
		result["messages_purged"] = n
	}

	if purgeSessions {
		n, err := a.sessions.PurgeExpired(cmd.Context(), time.Duration(purgeTimeoutMinutes)*time.Minute)
		if err != nil {
			return a.reportErr(err)
		}
		result["sessions_purged"] = n
	}

	a.out.Data(result, func() {
		parts := make([]string, 0, 2)
		if n, ok := result["messages_purged"]; ok {
			parts = append(parts, strconv.Itoa(n.(int))+" messages")
		}
		if n, ok := result["sessions_purged"]; ok {
			parts = append(parts, strconv.Itoa(n.(int))+" sessions")
		}
		a.out.Success("purged " + strings.Join(parts, ", "))
	})
	return nil
}

func confirmPurge() bool {
	fmt.Fprint(os.Stderr, "This will permanently delete data. Continue? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}
