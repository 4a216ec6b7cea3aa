// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func testTree(ran *[]string, reverse *bool) *Command {
	return &Command{
		Name: "trackerctl",
		Subcommands: []*Command{
			{
				Name:    "history",
				Summary: "Show history",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
					flagSet.BoolVar(reverse, "reverse", false, "newest first")
					return flagSet
				},
				Run: func(args []string) error {
					*ran = append(*ran, "history:"+strings.Join(args, ","))
					return nil
				},
			},
			{
				Name:    "show",
				Summary: "Show an issue",
				Run: func(args []string) error {
					*ran = append(*ran, "show:"+strings.Join(args, ","))
					return nil
				},
			},
		},
	}
}

func TestExecuteDispatch(t *testing.T) {
	var ran []string
	var reverse bool
	root := testTree(&ran, &reverse)

	if err := root.Execute([]string{"history", "--reverse", "7"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := root.Execute([]string{"show", "3"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ran) != 2 || ran[0] != "history:7" || ran[1] != "show:3" {
		t.Errorf("ran = %v", ran)
	}
	if !reverse {
		t.Error("--reverse not parsed")
	}
}

func TestExecuteSuggestions(t *testing.T) {
	var ran []string
	var reverse bool
	root := testTree(&ran, &reverse)

	err := root.Execute([]string{"histroy"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "history"`) {
		t.Errorf("unknown command error = %v", err)
	}

	err = root.Execute([]string{"history", "--revers", "7"})
	if err == nil || !strings.Contains(err.Error(), "did you mean --reverse") {
		t.Errorf("unknown flag error = %v", err)
	}

	if err := root.Execute(nil); err == nil {
		t.Error("bare group command should require a subcommand")
	}
	if len(ran) != 0 {
		t.Errorf("commands ran on bad input: %v", ran)
	}
}

func TestHelpOutput(t *testing.T) {
	var ran []string
	var reverse bool
	root := testTree(&ran, &reverse)
	var help bytes.Buffer
	root.HelpOutput = &help

	if err := root.Execute([]string{"history", "--help"}); err != nil {
		t.Fatalf("Execute --help: %v", err)
	}
	if !strings.Contains(help.String(), "trackerctl history [flags]") || !strings.Contains(help.String(), "--reverse") {
		t.Errorf("help = %q", help.String())
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"show", "show", 0},
		{"shwo", "show", 2},
		{"histroy", "history", 2},
		{"abc", "xyz", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestWriteJSONNilSlice(t *testing.T) {
	var buffer bytes.Buffer
	var empty []string
	if err := WriteJSON(&buffer, empty); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if strings.TrimSpace(buffer.String()) != "[]" {
		t.Errorf("WriteJSON(nil slice) = %q", buffer.String())
	}
}
