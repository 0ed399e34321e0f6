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
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/spf13/cobra"
)

var (
	messagesSwarmID    string
	messagesLimit      int
	messagesStatus     string
	messagesArchive    string
	messagesDelete     string
	messagesArchiveAll bool
	messagesCount      bool
	messagesNoMarkRead bool
)

var validStatusFilters = map[string]bool{"unread": true, "read": true, "archived": true, "all": true}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List and manage inbox messages",
	RunE:  runMessages,
}

func init() {
	rootCmd.AddCommand(messagesCmd)
	messagesCmd.Flags().StringVarP(&messagesSwarmID, "swarm", "s", "", "swarm ID to list messages from")
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "l", 50, "maximum number of messages to return")
	messagesCmd.Flags().StringVar(&messagesStatus, "status", "unread", "unread|read|archived|all")
	messagesCmd.Flags().StringVar(&messagesArchive, "archive", "", "archive the message with this ID")
	messagesCmd.Flags().StringVar(&messagesDelete, "delete", "", "delete the message with this ID")
	messagesCmd.Flags().BoolVar(&messagesArchiveAll, "archive-all", false, "archive every read message in --swarm")
	messagesCmd.Flags().BoolVarP(&messagesCount, "count", "c", false, "print unread/read/total counts instead of listing")
	messagesCmd.Flags().BoolVar(&messagesNoMarkRead, "no-mark-read", false, "don't mark listed unread messages as read")
}

func runMessages(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	if messagesArchive != "" {
		if _, err := a.inbox.Archive(ctx, messagesArchive); err != nil {
			return a.reportErr(err)
		}
		a.out.Data(map[string]string{"status": "archived", "message_id": messagesArchive}, func() {
			a.out.Success("message " + short(messagesArchive) + " archived")
		})
		return nil
	}

	if messagesDelete != "" {
		if _, err := a.inbox.Delete(ctx, messagesDelete, time.Now()); err != nil {
			return a.reportErr(err)
		}
		a.out.Data(map[string]string{"status": "deleted", "message_id": messagesDelete}, func() {
			a.out.Success("message " + short(messagesDelete) + " deleted")
		})
		return nil
	}

	if messagesArchiveAll {
		if messagesSwarmID == "" {
			return a.reportErr(errs.New(errs.KindValidation, "swarm ID is required for --archive-all"))
		}
		updated, total := 0, 0
		for {
			read, err := a.inbox.List(ctx, "read", messagesSwarmID, "", 100)
			if err != nil {
				return a.reportErr(err)
			}
			if len(read) == 0 {
				break
			}
			ids := make([]string, len(read))
			for i, m := range read {
				ids[i] = m.MessageID
			}
			n, err := a.inbox.Batch(ctx, ids, "archive", time.Now())
			if err != nil {
				return a.reportErr(err)
			}
			updated += n
			total += len(ids)
			if n == 0 {
				break
			}
		}
		a.out.Data(map[string]int{"archived": updated, "total": total}, func() {
			a.out.Success("archived all read messages in swarm")
		})
		return nil
	}

	if !validStatusFilters[messagesStatus] {
		return a.reportErr(errs.Newf(errs.KindValidation, "invalid status %q, must be one of unread|read|archived|all", messagesStatus))
	}
	if messagesSwarmID == "" {
		return a.reportErr(errs.New(errs.KindValidation, "swarm ID is required for listing messages"))
	}

	if messagesCount {
		counts, err := a.inbox.CountByStatus(ctx)
		if err != nil {
			return a.reportErr(err)
		}
		a.out.Data(counts, func() {
			a.out.Success("inbox counts retrieved")
		})
		return nil
	}

	msgs, err := a.inbox.List(ctx, messagesStatus, messagesSwarmID, "", messagesLimit)
	if err != nil {
		return a.reportErr(err)
	}

	markedRead := 0
	if messagesStatus == "unread" && !messagesNoMarkRead && len(msgs) > 0 {
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, m.MessageID)
		}
		markedRead, err = a.inbox.Batch(ctx, ids, "read", time.Now())
		if err != nil {
			return a.reportErr(err)
		}
	}

	a.out.Data(map[string]any{"swarm_id": messagesSwarmID, "count": len(msgs), "marked_read": markedRead}, func() {
		rows := make([][]string, len(msgs))
		for i, m := range msgs {
			rows[i] = []string{short(m.MessageID), m.SenderID, string(m.Status), m.ReceivedAt.Format("2006-01-02T15:04:05"), truncate(displayContent(m.Content), 60)}
		}
		a.out.Table("Inbox", []string{"ID", "SENDER", "STATUS", "RECEIVED", "CONTENT"}, rows)
	})
	return nil
}

func short(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}

// displayContent unwraps a stored wire document down to its content
// field for human-readable listing; non-wire content is shown as-is.
func displayContent(content string) string {
	var doc struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &doc); err == nil && doc.Content != "" {
		return doc.Content
	}
	return content
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
