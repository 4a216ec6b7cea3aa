// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mutation

import "log/slog"

// Stage is how far one Submit call progressed. It lives only for the
// duration of the call and is reported in the outcome log line.
type Stage int

const (
	StageStart Stage = iota
	StageVersionChecked
	StageDiffed
	StageAppended
	StageCommitted
	StageRejected
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageVersionChecked:
		return "version_checked"
	case StageDiffed:
		return "diffed"
	case StageAppended:
		return "appended"
	case StageCommitted:
		return "committed"
	case StageRejected:
		return "rejected"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// LogValue renders the stage by name in structured logs.
func (s Stage) LogValue() slog.Value {
	return slog.StringValue(s.String())
}
