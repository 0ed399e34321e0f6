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

	"github.com/sage-x-project/swarmmesh/internal/version"
	"github.com/spf13/cobra"
)

// Exit codes: 0 success, 1 generic, 2 validation, 3 transport,
// 4 authorization, 5 not-found/business-rule.
const (
	exitOK          = 0
	exitGeneric     = 1
	exitValidation  = 2
	exitTransport   = 3
	exitAuth        = 4
	exitBusinessErr = 5
)

var (
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:     "swarmmesh",
	Version: version.String(),
	Short:   "swarmmesh CLI - manage swarm membership, messages and mutes",
	Long: `swarmmesh is the control-plane CLI for a swarmmesh agent: create and
join swarms, send and inspect messages, and manage the wake-on-message
notification preferences of the local agent.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (env vars always take precedence)")

	// Commands are registered in their own files:
	// init.go, create.go, invite.go, join.go, leave.go, kick.go, send.go,
	// messages.go, sent.go, mute.go, unmute.go, purge.go, export.go,
	// import.go, list_swarms.go, status.go
}
