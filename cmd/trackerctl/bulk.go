// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/md-786910/heaven-assignment/cmd/trackerctl/cli"
	"github.com/md-786910/heaven-assignment/lib/mutation"
)

// --- bulk-status ---

type bulkStatusParams struct {
	connection
	Status string
	Actor  string
}

func bulkStatusCommand(a *app) *cli.Command {
	var params bulkStatusParams

	return &cli.Command{
		Name:    "bulk-status",
		Summary: "Set the status of several issues",
		Description: `Move several issues to one status. Each argument is ID:VERSION, the
issue and the version you last saw. Every issue is checked and
committed on its own: a stale version fails only that issue.

Exits 3 if any history write failed, 2 if any issue had a conflict,
1 for any other per-issue failure.`,
		Usage: "trackerctl bulk-status --status STATUS ID:VERSION... [flags]",
		Examples: []cli.Example{
			{Description: "Close two issues", Command: "trackerctl bulk-status --status closed 12:3 15:1"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("bulk-status", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.StringVar(&params.Status, "status", "", "new status (open, in_progress, resolved, closed)")
			flagSet.StringVar(&params.Actor, "actor", defaultActor(), "acting user (env TRACKER_ACTOR)")
			return flagSet
		},
		Run: func(args []string) error {
			if params.Status == "" {
				return errors.New("--status is required")
			}
			if params.Actor == "" {
				return errors.New("--actor is required (or set TRACKER_ACTOR)")
			}
			items, err := parseBulkItems(args)
			if err != nil {
				return err
			}

			var results []mutation.BulkResult
			err = params.call("bulk-status", map[string]any{
				"status": params.Status,
				"actor":  params.Actor,
				"items":  items,
			}, &results)
			if err != nil {
				return err
			}

			if params.OutputJSON {
				if err := cli.WriteJSON(a.out, results); err != nil {
					return err
				}
			} else if err := printBulkTable(a.out, results); err != nil {
				return err
			}
			return bulkExit(results)
		},
	}
}

// parseBulkItems parses ID:VERSION arguments.
func parseBulkItems(args []string) ([]map[string]any, error) {
	if len(args) == 0 {
		return nil, errors.New("expected at least one ID:VERSION")
	}
	items := make([]map[string]any, 0, len(args))
	for _, arg := range args {
		idText, versionText, found := strings.Cut(arg, ":")
		if !found {
			return nil, fmt.Errorf("invalid item %q: want ID:VERSION", arg)
		}
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid issue id in %q", arg)
		}
		version, err := strconv.ParseUint(versionText, 10, 64)
		if err != nil || version == 0 {
			return nil, fmt.Errorf("invalid version in %q", arg)
		}
		items = append(items, map[string]any{"id": id, "expected_version": version})
	}
	return items, nil
}

// bulkExit maps the worst per-item outcome to an exit status.
func bulkExit(results []mutation.BulkResult) error {
	code := 0
	for _, result := range results {
		switch result.Outcome {
		case mutation.OutcomeCommitted, mutation.OutcomeUnchanged:
		case mutation.OutcomeAuditWriteFailed:
			code = exitAuditFailed
		case mutation.OutcomeConflict:
			if code != exitAuditFailed {
				code = exitConflict
			}
		default:
			if code == 0 {
				code = 1
			}
		}
	}
	if code == 0 {
		return nil
	}
	return &cli.ExitError{Code: code}
}
