// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/md-786910/heaven-assignment/cmd/trackerctl/cli"
	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/mutation"
	"github.com/md-786910/heaven-assignment/lib/service"
)

// --- create ---

type createParams struct {
	connection
	Title       string
	Description string
	Status      string
	Priority    string
	Assignee    string
	Actor       string
}

func createCommand(a *app) *cli.Command {
	var params createParams
	var flagSet *pflag.FlagSet

	return &cli.Command{
		Name:    "create",
		Summary: "Create an issue",
		Description: `Create an issue at version 1. Status defaults to "open" and priority
to "medium". Creation has no history entry; history starts with the
first update.`,
		Usage: "trackerctl create --title TITLE [flags]",
		Examples: []cli.Example{
			{Description: "Create a high-priority bug", Command: `trackerctl create --title "Login broken" --priority high`},
		},
		Flags: func() *pflag.FlagSet {
			flagSet = pflag.NewFlagSet("create", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.StringVar(&params.Title, "title", "", "issue title (required, 1-255 characters)")
			flagSet.StringVar(&params.Description, "description", "", "issue description")
			flagSet.StringVar(&params.Status, "status", "", "initial status (open, in_progress, resolved, closed)")
			flagSet.StringVar(&params.Priority, "priority", "", "priority (low, medium, high, critical)")
			flagSet.StringVar(&params.Assignee, "assignee", "", "assignee user id")
			flagSet.StringVar(&params.Actor, "actor", defaultActor(), "creating user (env TRACKER_ACTOR)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if params.Title == "" {
				return errors.New("--title is required")
			}
			if params.Actor == "" {
				return errors.New("--actor is required (or set TRACKER_ACTOR)")
			}

			fields := map[string]any{
				"title":      params.Title,
				"created_by": params.Actor,
			}
			if flagSet.Changed("description") {
				fields["description"] = params.Description
			}
			if params.Status != "" {
				fields["status"] = params.Status
			}
			if params.Priority != "" {
				fields["priority"] = params.Priority
			}
			if params.Assignee != "" {
				fields["assignee"] = params.Assignee
			}

			var record issue.Record
			if err := params.call("create", fields, &record); err != nil {
				return err
			}
			if params.OutputJSON {
				return cli.WriteJSON(a.out, record)
			}
			fmt.Fprintf(a.out, "created issue %d\n", record.ID)
			return nil
		},
	}
}

// --- show ---

func showCommand(a *app) *cli.Command {
	var params connection

	return &cli.Command{
		Name:    "show",
		Summary: "Show an issue",
		Usage:   "trackerctl show <id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			params.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			var record issue.Record
			if err := params.call("show", map[string]any{"id": id}, &record); err != nil {
				return err
			}
			if params.OutputJSON {
				return cli.WriteJSON(a.out, record)
			}
			return printRecord(a.out, record)
		},
	}
}

// --- list ---

type listParams struct {
	connection
	Status    string
	Assignee  string
	CreatedBy string
	Skip      int
	Limit     int
}

func listCommand(a *app) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List issues",
		Usage:   "trackerctl list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.StringVar(&params.Status, "status", "", "only issues with this status")
			flagSet.StringVar(&params.Assignee, "assignee", "", "only issues assigned to this user")
			flagSet.StringVar(&params.CreatedBy, "created-by", "", "only issues created by this user")
			flagSet.IntVar(&params.Skip, "skip", 0, "skip this many matching issues")
			flagSet.IntVar(&params.Limit, "limit", 0, "return at most this many issues (default 100)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			fields := map[string]any{}
			if params.Status != "" {
				fields["status"] = params.Status
			}
			if params.Assignee != "" {
				fields["assignee"] = params.Assignee
			}
			if params.CreatedBy != "" {
				fields["created_by"] = params.CreatedBy
			}
			if params.Skip != 0 {
				fields["skip"] = params.Skip
			}
			if params.Limit != 0 {
				fields["limit"] = params.Limit
			}

			var records []issue.Record
			if err := params.call("list", fields, &records); err != nil {
				return err
			}
			if params.OutputJSON {
				return cli.WriteJSON(a.out, records)
			}
			return printRecordTable(a.out, records)
		},
	}
}

// --- update ---

type updateParams struct {
	connection
	ExpectedVersion  uint64
	Actor            string
	Title            string
	Description      string
	ClearDescription bool
	Status           string
	Priority         string
	Assignee         string
	Unassign         bool
	ChangesFile      string
}

func updateCommand(a *app) *cli.Command {
	var params updateParams
	var flagSet *pflag.FlagSet

	return &cli.Command{
		Name:    "update",
		Summary: "Change fields of an issue",
		Description: `Change one or more fields of an issue. --expected-version is the
version you read; if the issue has moved on, nothing is changed, the
current issue is printed, and the exit status is 2.

Changes may also come from a JSON file (comments and trailing commas
allowed) mapping field names to values, with null clearing description
or assignee. Flags override the file.`,
		Usage: "trackerctl update <id> --expected-version N [flags]",
		Examples: []cli.Example{
			{Description: "Claim an issue", Command: "trackerctl update 12 --expected-version 3 --status in_progress --assignee bob"},
			{Description: "Apply changes from a file", Command: "trackerctl update 12 --expected-version 4 --changes-file edit.jsonc"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet = pflag.NewFlagSet("update", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.Uint64Var(&params.ExpectedVersion, "expected-version", 0, "version the change is based on (required)")
			flagSet.StringVar(&params.Actor, "actor", defaultActor(), "user making the change (env TRACKER_ACTOR)")
			flagSet.StringVar(&params.Title, "title", "", "new title")
			flagSet.StringVar(&params.Description, "description", "", "new description")
			flagSet.BoolVar(&params.ClearDescription, "clear-description", false, "remove the description")
			flagSet.StringVar(&params.Status, "status", "", "new status (open, in_progress, resolved, closed)")
			flagSet.StringVar(&params.Priority, "priority", "", "new priority (low, medium, high, critical)")
			flagSet.StringVar(&params.Assignee, "assignee", "", "new assignee")
			flagSet.BoolVar(&params.Unassign, "unassign", false, "remove the assignee")
			flagSet.StringVar(&params.ChangesFile, "changes-file", "", "JSON or JSONC file of field changes")
			return flagSet
		},
		Run: func(args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			if params.ExpectedVersion == 0 {
				return errors.New("--expected-version is required")
			}
			if params.Actor == "" {
				return errors.New("--actor is required (or set TRACKER_ACTOR)")
			}
			changes, err := params.changes(flagSet)
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				return errors.New("no changes given")
			}

			var record issue.Record
			err = params.call("update", map[string]any{
				"id":               id,
				"expected_version": params.ExpectedVersion,
				"actor":            params.Actor,
				"changes":          changes,
			}, &record)
			if err != nil {
				return a.updateFailed(id, params, err)
			}
			if params.OutputJSON {
				return cli.WriteJSON(a.out, record)
			}
			fmt.Fprintf(a.out, "issue %d updated to version %d\n", record.ID, record.Version)
			return nil
		},
	}
}

// changes merges the changes file with the field flags.
func (params *updateParams) changes(flagSet *pflag.FlagSet) (map[string]any, error) {
	changes := map[string]any{}
	if params.ChangesFile != "" {
		fromFile, err := readChangesFile(params.ChangesFile)
		if err != nil {
			return nil, err
		}
		changes = fromFile
	}

	if params.ClearDescription && flagSet.Changed("description") {
		return nil, errors.New("--description and --clear-description are mutually exclusive")
	}
	if params.Unassign && flagSet.Changed("assignee") {
		return nil, errors.New("--assignee and --unassign are mutually exclusive")
	}

	setIfChanged := func(flag string, field issue.Field, value string) {
		if flagSet.Changed(flag) {
			changes[string(field)] = value
		}
	}
	setIfChanged("title", issue.FieldTitle, params.Title)
	setIfChanged("description", issue.FieldDescription, params.Description)
	setIfChanged("status", issue.FieldStatus, params.Status)
	setIfChanged("priority", issue.FieldPriority, params.Priority)
	setIfChanged("assignee", issue.FieldAssignee, params.Assignee)
	if params.ClearDescription {
		changes[string(issue.FieldDescription)] = nil
	}
	if params.Unassign {
		changes[string(issue.FieldAssignee)] = nil
	}
	return changes, nil
}

// readChangesFile reads a JSON object of field changes. Comments and
// trailing commas are allowed.
func readChangesFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading changes file: %w", err)
	}
	var changes map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &changes); err != nil {
		return nil, fmt.Errorf("parsing changes file %s: %w", path, err)
	}
	if changes == nil {
		return nil, fmt.Errorf("changes file %s must contain a JSON object", path)
	}
	return changes, nil
}

// updateFailed reports a conflict or a lost history write and turns
// it into the matching exit status. Other errors pass through.
func (a *app) updateFailed(id int64, params updateParams, err error) error {
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		return err
	}

	switch mutation.Category(serviceErr.Category) {
	case mutation.CategoryConflict:
		var current issue.Record
		if found, decodeErr := serviceErr.DecodeData(&current); decodeErr != nil || !found {
			return err
		}
		fmt.Fprintf(a.errOut, "conflict: issue %d is at version %d, not %d; nothing was changed\n",
			id, current.Version, params.ExpectedVersion)
		if err := a.writeRecord(params.OutputJSON, current); err != nil {
			return err
		}
		return &cli.ExitError{Code: exitConflict}

	case mutation.CategoryAuditWriteFailed:
		var committed issue.Record
		if found, decodeErr := serviceErr.DecodeData(&committed); decodeErr != nil || !found {
			return err
		}
		a.logger.Error("update committed but its history was not recorded",
			"record_id", id,
			"version", committed.Version,
			"error", serviceErr.Message,
		)
		if err := a.writeRecord(params.OutputJSON, committed); err != nil {
			return err
		}
		return &cli.ExitError{Code: exitAuditFailed}
	}
	return err
}

func (a *app) writeRecord(asJSON bool, record issue.Record) error {
	if asJSON {
		return cli.WriteJSON(a.out, record)
	}
	return printRecord(a.out, record)
}

// --- history ---

type historyParams struct {
	connection
	Reverse bool
}

func historyCommand(a *app) *cli.Command {
	var params historyParams

	return &cli.Command{
		Name:    "history",
		Summary: "Show the change history of an issue",
		Description: `Show every recorded field change of an issue, oldest first. Each
committed update contributes one entry per field it changed.`,
		Usage: "trackerctl history <id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.BoolVar(&params.Reverse, "reverse", false, "newest first")
			return flagSet
		},
		Run: func(args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			var events []issue.ChangeEvent
			if err := params.call("history", map[string]any{"id": id}, &events); err != nil {
				return err
			}
			if params.Reverse {
				slices.Reverse(events)
			}
			if params.OutputJSON {
				return cli.WriteJSON(a.out, events)
			}
			if len(events) == 0 {
				fmt.Fprintf(a.out, "issue %d has no recorded changes\n", id)
				return nil
			}
			return printEventTable(a.out, events)
		},
	}
}

// --- verify ---

func verifyCommand(a *app) *cli.Command {
	var params connection

	return &cli.Command{
		Name:    "verify",
		Summary: "Check the integrity of an issue's history",
		Description: `Recompute the hash chain over an issue's history and check that it
accounts for every committed version. Exits 1 if the history is
damaged.`,
		Usage: "trackerctl verify <id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			params.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			var verification mutation.Verification
			if err := params.call("verify", map[string]any{"id": id}, &verification); err != nil {
				return err
			}
			if params.OutputJSON {
				if err := cli.WriteJSON(a.out, verification); err != nil {
					return err
				}
			} else if verification.Intact {
				fmt.Fprintf(a.out, "issue %d: history intact (%d events, version %d)\n",
					id, verification.Events, verification.Version)
			} else {
				fmt.Fprintf(a.out, "issue %d: history damaged: %s\n", id, verification.Problem)
			}
			if !verification.Intact {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// parseID expects exactly one positional argument: a positive issue id.
func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one issue id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id %q", args[0])
	}
	return id, nil
}
