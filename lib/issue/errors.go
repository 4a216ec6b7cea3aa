// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issue

import "errors"

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports malformed caller input. It is local to the
// request: resubmitting with corrected input fixes it, and it never
// indicates a concurrency problem.
type ValidationError struct {
	// Field is the offending field or request attribute name. Empty
	// when the problem is not tied to one field.
	Field string

	// Reason is a human-readable description of the problem.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return "invalid " + e.Field + ": " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
