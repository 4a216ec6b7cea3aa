// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"errors"
	"fmt"

	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/recordstore"
)

// ErrNotFound is returned when the requested record does not exist.
// Not retryable.
var ErrNotFound = recordstore.ErrNotFound

// ErrVersionConflict is matched by *ConflictError. The caller should
// show the current record before resubmitting; Submit never retries.
var ErrVersionConflict = recordstore.ErrVersionConflict

// ErrAuditWriteFailed is matched by *AuditWriteError.
var ErrAuditWriteFailed = errors.New("audit write failed")

// ConflictError carries the current record so the caller can
// reconcile without another read.
type ConflictError = recordstore.ConflictError

// AuditWriteError reports that a mutation committed but its
// ChangeEvents were not appended. The record is not rolled back:
// Record is the committed state, and Events are the events that
// are missing from the history.
type AuditWriteError struct {
	Record issue.Record
	Events []issue.ChangeEvent
	Err    error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("record %d committed at version %d but %d audit events were not written: %v",
		e.Record.ID, e.Record.Version, len(e.Events), e.Err)
}

// Unwrap exposes both ErrAuditWriteFailed and the underlying cause
// (for example context.Canceled) to errors.Is.
func (e *AuditWriteError) Unwrap() []error {
	return []error{ErrAuditWriteFailed, e.Err}
}
