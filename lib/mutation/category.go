// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"errors"

	"github.com/md-786910/heaven-assignment/lib/issue"
)

// Category classifies an error by how the caller should react. Both
// transports send it on the wire so clients can branch without
// parsing messages.
type Category string

const (
	// CategoryNotFound: the record does not exist. Do not retry.
	CategoryNotFound Category = "not_found"

	// CategoryConflict: another writer committed first. Re-fetch,
	// show the current state, and resubmit.
	CategoryConflict Category = "conflict"

	// CategoryValidation: the input is malformed. Fix it and resubmit.
	CategoryValidation Category = "validation"

	// CategoryAuditWriteFailed: the mutation committed but its
	// history entry did not. Report to operators; do not resubmit.
	CategoryAuditWriteFailed Category = "audit_write_failed"

	// CategoryInternal: anything else.
	CategoryInternal Category = "internal"
)

// Classify returns the category of err. AuditWriteFailed is checked
// first because an audit failure may also wrap a context error.
func Classify(err error) Category {
	switch {
	case errors.Is(err, ErrAuditWriteFailed):
		return CategoryAuditWriteFailed
	case errors.Is(err, ErrVersionConflict):
		return CategoryConflict
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, issue.ErrValidation):
		return CategoryValidation
	}
	return CategoryInternal
}

// Detail returns the structured payload a transport should attach to
// a failure response: the current record for a conflict, the
// committed record for an audit failure, nil otherwise.
func Detail(err error) any {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.Current
	}
	var auditErr *AuditWriteError
	if errors.As(err, &auditErr) {
		return auditErr.Record
	}
	return nil
}
