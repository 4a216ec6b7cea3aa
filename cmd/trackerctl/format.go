// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/mutation"
)

const unset = "-"

func printRecord(w io.Writer, record issue.Record) error {
	fmt.Fprintf(w, "#%d %s\n", record.ID, record.Title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  status:\t%s\n", record.Status)
	fmt.Fprintf(tw, "  priority:\t%s\n", record.Priority)
	fmt.Fprintf(tw, "  assignee:\t%s\n", userOrUnset(record.Assignee))
	fmt.Fprintf(tw, "  description:\t%s\n", stringOrUnset(record.Description))
	fmt.Fprintf(tw, "  created:\t%s by %s\n", formatTime(record.CreatedAt), record.CreatedBy)
	fmt.Fprintf(tw, "  updated:\t%s\n", formatTime(record.UpdatedAt))
	if record.ResolvedAt != nil {
		fmt.Fprintf(tw, "  resolved:\t%s\n", formatTime(*record.ResolvedAt))
	}
	fmt.Fprintf(tw, "  version:\t%d\n", record.Version)
	return tw.Flush()
}

func printRecordTable(w io.Writer, records []issue.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tSTATUS\tPRIORITY\tASSIGNEE\tTITLE")
	for _, record := range records {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			record.ID, record.Version, record.Status, record.Priority,
			userOrUnset(record.Assignee), record.Title)
	}
	return tw.Flush()
}

func printEventTable(w io.Writer, events []issue.ChangeEvent) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tVERSION\tTIME\tACTOR\tFIELD\tOLD\tNEW")
	for _, event := range events {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			event.Sequence, event.Version, formatTime(event.Timestamp), event.Actor,
			event.Field, stringOrUnset(event.Old), stringOrUnset(event.New))
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func stringOrUnset(value *string) string {
	if value == nil {
		return unset
	}
	return fmt.Sprintf("%q", *value)
}

func userOrUnset(value *issue.UserID) string {
	if value == nil {
		return unset
	}
	return string(*value)
}

func printBulkTable(w io.Writer, results []mutation.BulkResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOUTCOME\tVERSION\tERROR")
	for _, result := range results {
		version := unset
		if result.Record != nil {
			version = strconv.FormatUint(result.Record.Version, 10)
		}
		message := result.Error
		if message == "" {
			message = unset
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", result.RecordID, result.Outcome, version, message)
	}
	return tw.Flush()
}

func printAssigneeTable(w io.Writer, loads []mutation.AssigneeLoad) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSIGNEE\tISSUES")
	for _, load := range loads {
		fmt.Fprintf(tw, "%s\t%d\n", load.Assignee, load.Issues)
	}
	return tw.Flush()
}
