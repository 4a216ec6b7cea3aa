// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recordstore holds the current state of every issue record
// and is the only place records change.
//
// All mutation goes through CompareAndSwap, which checks the caller's
// expected version against the stored one and, only on an exact
// match, applies a pure Mutator and bumps the version by one. There is
// no field merge and no retry: a stale version is a *ConflictError
// carrying the current record so the caller can reconcile.
//
// Two backends implement Store. MemoryStore keeps each record in its
// own cell with its own mutex, so CAS on one record never waits for
// another. SQLiteStore performs the check and the conditional UPDATE
// inside one BEGIN IMMEDIATE transaction.
package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-786910/heaven-assignment/lib/issue"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is matched by every *ConflictError.
var ErrVersionConflict = errors.New("version conflict")

// ErrImmutableField is returned when a Mutator's result alters the
// record's ID, creator, creation time, or version.
var ErrImmutableField = errors.New("mutator altered an immutable attribute")

// ConflictError reports that the caller's expected version is stale.
// Current is the record as stored when the check failed.
type ConflictError struct {
	Expected uint64
	Current  issue.Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version mismatch on record %d: expected %d, current %d",
		e.Current.ID, e.Expected, e.Current.Version)
}

// Is makes errors.Is(err, ErrVersionConflict) true.
func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// Mutator computes the next state of a record from its current state.
// It must be pure: no I/O, no blocking, no retained references to
// current. Returning changed=false leaves the record and its version
// untouched. A non-nil error aborts the swap with nothing persisted.
//
// The store sets the version of the result itself; a Mutator that
// changes ID, CreatedBy, CreatedAt, or Version is rejected with
// ErrImmutableField.
type Mutator func(current issue.Record) (next issue.Record, changed bool, err error)

// CommitResult says what CompareAndSwap did after the version check
// passed.
type CommitResult int

const (
	// Unchanged means the mutator reported no change. Nothing was
	// written and the version did not move.
	Unchanged CommitResult = iota

	// Committed means the mutator's result was persisted with the
	// version incremented by one.
	Committed
)

func (r CommitResult) String() string {
	switch r {
	case Committed:
		return "committed"
	case Unchanged:
		return "unchanged"
	}
	return fmt.Sprintf("CommitResult(%d)", int(r))
}

// Store is the record store contract shared by both backends.
type Store interface {
	// Create assigns the next ID to record and stores it. The record
	// must be at issue.InitialVersion; its ID is ignored.
	Create(ctx context.Context, record issue.Record) (issue.Record, error)

	// Get returns the current record. The bool is false when the ID
	// does not exist, in which case the error is nil.
	Get(ctx context.Context, id int64) (issue.Record, bool, error)

	// List returns records matching filter in ascending ID order,
	// after skipping filter.Skip matches and up to filter.Limit
	// records. The filter must already be normalized.
	List(ctx context.Context, filter issue.Filter) ([]issue.Record, error)

	// CompareAndSwap atomically checks that the stored version equals
	// expected and, if so, applies fn. It returns the record as stored
	// afterwards: the new record on Committed, the unchanged current
	// record on Unchanged. A missing ID returns ErrNotFound and a
	// version mismatch returns a *ConflictError; fn is not called in
	// either case.
	CompareAndSwap(ctx context.Context, id int64, expected uint64, fn Mutator) (issue.Record, CommitResult, error)

	// Close releases the store's resources.
	Close() error
}

// checkImmutable rejects a mutator result that altered an attribute
// fixed at creation.
func checkImmutable(current, next issue.Record) error {
	switch {
	case next.ID != current.ID:
		return fmt.Errorf("%w: id %d -> %d", ErrImmutableField, current.ID, next.ID)
	case next.CreatedBy != current.CreatedBy:
		return fmt.Errorf("%w: created_by", ErrImmutableField)
	case !next.CreatedAt.Equal(current.CreatedAt):
		return fmt.Errorf("%w: created_at", ErrImmutableField)
	case next.Version != current.Version:
		return fmt.Errorf("%w: version %d -> %d", ErrImmutableField, current.Version, next.Version)
	}
	return nil
}

// swap runs the shared CAS logic once the backend has loaded current
// under its lock. It returns the record to persist (version already
// incremented) when the result is Committed.
func swap(current issue.Record, expected uint64, fn Mutator) (issue.Record, CommitResult, error) {
	if current.Version != expected {
		return issue.Record{}, Unchanged, &ConflictError{Expected: expected, Current: current.Clone()}
	}
	next, changed, err := fn(current.Clone())
	if err != nil {
		return issue.Record{}, Unchanged, err
	}
	if !changed {
		return current, Unchanged, nil
	}
	if err := checkImmutable(current, next); err != nil {
		return issue.Record{}, Unchanged, err
	}
	next = next.Clone()
	next.Version = current.Version + 1
	return next, Committed, nil
}
