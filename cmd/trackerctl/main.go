// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/md-786910/heaven-assignment/cmd/trackerctl/cli"
	"github.com/md-786910/heaven-assignment/lib/config"
	"github.com/md-786910/heaven-assignment/lib/service"
	"github.com/md-786910/heaven-assignment/lib/version"
)

// Exit statuses beyond the generic 1.
const (
	exitConflict    = 2
	exitAuditFailed = 3
)

const callTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return rootCommand(&app{
		out:    os.Stdout,
		errOut: os.Stderr,
		logger: cli.NewCommandLogger(),
	}).Execute(args)
}

// app carries the output streams and logger shared by every command.
type app struct {
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func rootCommand(a *app) *cli.Command {
	var showVersion bool
	return &cli.Command{
		Name:        "trackerctl",
		Summary:     "Issue tracker client",
		Description: "Create, inspect, and update issues held by tracker-service.",
		HelpOutput:  a.errOut,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("trackerctl", pflag.ContinueOnError)
			flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
			return flagSet
		},
		Subcommands: []*cli.Command{
			createCommand(a),
			showCommand(a),
			listCommand(a),
			updateCommand(a),
			historyCommand(a),
			verifyCommand(a),
			bulkStatusCommand(a),
			reportCommand(a),
		},
		Run: func(args []string) error {
			if showVersion {
				fmt.Fprintf(a.out, "trackerctl %s\n", version.Info())
				return nil
			}
			return errors.New("subcommand required; run 'trackerctl --help' for usage")
		},
	}
}

// connection holds the flags every command uses to reach the service.
type connection struct {
	SocketPath string
	OutputJSON bool
}

func (c *connection) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.SocketPath, "socket", defaultSocketPath(), "tracker-service socket (env TRACKER_SOCKET)")
	flagSet.BoolVar(&c.OutputJSON, "json", false, "output as JSON")
}

// call runs one socket action with a bounded timeout.
func (c *connection) call(action string, fields map[string]any, result any) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return service.NewServiceClient(c.SocketPath).Call(ctx, action, fields, result)
}

func defaultSocketPath() string {
	if path := os.Getenv("TRACKER_SOCKET"); path != "" {
		return path
	}
	return config.Default().Socket.Path
}

func defaultActor() string {
	if actor := os.Getenv("TRACKER_ACTOR"); actor != "" {
		return actor
	}
	return os.Getenv("USER")
}
