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

// Package output renders CLI results either as human-readable text/tables
// or as JSON, selected by a global flag.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// Printer renders command output in either JSON or plain-text mode.
type Printer struct {
	JSON bool
	out  io.Writer
	err  io.Writer
}

// NewPrinter creates a Printer writing to stdout/stderr.
func NewPrinter(jsonMode bool) *Printer {
	return &Printer{JSON: jsonMode, out: os.Stdout, err: os.Stderr}
}

// Success prints a plain confirmation line, or {"status":"ok","message":...}
// in JSON mode.
func (p *Printer) Success(message string) {
	if p.JSON {
		_ = p.emit(map[string]string{"status": "ok", "message": message})
		return
	}
	fmt.Fprintln(p.out, message)
}

// Error prints a failure to stderr, with an optional hint in text mode.
func (p *Printer) Error(message, hint string) {
	if p.JSON {
		body := map[string]string{"status": "error", "message": message}
		if hint != "" {
			body["hint"] = hint
		}
		data, _ := json.MarshalIndent(body, "", "  ")
		fmt.Fprintln(p.err, string(data))
		return
	}
	fmt.Fprintf(p.err, "Error: %s\n", message)
	if hint != "" {
		fmt.Fprintf(p.err, "Hint: %s\n", hint)
	}
}

// Warning prints a non-fatal warning line to stderr in text mode, or is
// folded into JSON output by the caller (JSON mode has no separate warning
// channel — callers attach warnings to their result struct instead).
func (p *Printer) Warning(message string) {
	if p.JSON {
		return
	}
	fmt.Fprintf(p.err, "Warning: %s\n", message)
}

// Data renders data as indented JSON in JSON mode, or invokes renderText to
// print the human-readable form.
func (p *Printer) Data(data any, renderText func()) {
	if p.JSON {
		_ = p.emit(data)
		return
	}
	renderText()
}

func (p *Printer) emit(data any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Table prints a titled, tab-aligned table (2-space padding, a dashed
// header rule).
func (p *Printer) Table(title string, columns []string, rows [][]string) {
	if title != "" {
		fmt.Fprintln(p.out, title)
	}
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprint(w, "\n")
	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, dashes(len(col)))
	}
	fmt.Fprint(w, "\n")
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, cell)
		}
		fmt.Fprint(w, "\n")
	}
	_ = w.Flush()
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
