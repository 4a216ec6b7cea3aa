// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/md-786910/heaven-assignment/cmd/trackerctl/cli"
	"github.com/md-786910/heaven-assignment/lib/mutation"
)

// --- report ---

func reportCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "report",
		Summary: "Summaries over all issues",
		Subcommands: []*cli.Command{
			latencyCommand(a),
			topAssigneesCommand(a),
		},
	}
}

func latencyCommand(a *app) *cli.Command {
	var params connection

	return &cli.Command{
		Name:    "latency",
		Summary: "Average time from creation to resolution",
		Description: `Average resolved_at - created_at over issues whose status is
currently resolved. Issues resolved and later reopened are not counted.`,
		Usage: "trackerctl report latency [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("latency", pflag.ContinueOnError)
			params.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			var report mutation.ResolutionReport
			if err := params.call("report-latency", nil, &report); err != nil {
				return err
			}
			if params.OutputJSON {
				return cli.WriteJSON(a.out, report)
			}
			fmt.Fprintf(a.out, "%d resolved issues, average resolution %.2fh\n",
				report.ResolvedIssues, report.AverageResolutionHours)
			return nil
		},
	}
}

type topAssigneesParams struct {
	connection
	Limit int
}

func topAssigneesCommand(a *app) *cli.Command {
	var params topAssigneesParams

	return &cli.Command{
		Name:    "top-assignees",
		Summary: "Assignees ranked by number of assigned issues",
		Usage:   "trackerctl report top-assignees [--limit N] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("top-assignees", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.IntVar(&params.Limit, "limit", mutation.DefaultTopAssignees, "number of assignees to show")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			var loads []mutation.AssigneeLoad
			if err := params.call("report-top-assignees", map[string]any{"limit": params.Limit}, &loads); err != nil {
				return err
			}
			if params.OutputJSON {
				return cli.WriteJSON(a.out, loads)
			}
			if len(loads) == 0 {
				fmt.Fprintln(a.out, "no assigned issues")
				return nil
			}
			return printAssigneeTable(a.out, loads)
		},
	}
}
