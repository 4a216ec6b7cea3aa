// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package changediff computes field-level ChangeEvents between the
// current fields of a record and a proposed set of Changes.
//
// Diff is a pure function: it performs no I/O, reads no clock, and
// its output depends only on its arguments. Events come out in
// issue.FieldOrder regardless of how the caller's request was
// ordered, so the same inputs always encode to the same bytes.
package changediff

import (
	"fmt"
	"time"

	"github.com/md-786910/heaven-assignment/lib/codec"
	"github.com/md-786910/heaven-assignment/lib/issue"
)

// Diff returns one ChangeEvent per field whose proposed value differs
// from its current value. Fields not Set in changes are never
// reported, and Set fields whose value is unchanged are skipped.
// An empty result means the mutation is a no-op.
//
// The events carry RecordID, Field, Old, New, Actor, and Timestamp.
// Version, Sequence, and Digest are assigned by the caller and the
// audit log.
func Diff(recordID int64, current issue.Fields, changes issue.Changes, actor issue.UserID, at time.Time) []issue.ChangeEvent {
	next := changes.Apply(current)

	var events []issue.ChangeEvent
	for _, field := range issue.FieldOrder {
		if !isSet(changes, field) {
			continue
		}
		old := current.Value(field)
		proposed := next.Value(field)
		if equal(old, proposed) {
			continue
		}
		events = append(events, issue.ChangeEvent{
			RecordID:  recordID,
			Field:     field,
			Old:       old,
			New:       proposed,
			Actor:     actor,
			Timestamp: at,
		})
	}
	return events
}

// Apply returns current with changes applied. It is the state Diff's
// events describe the transition to.
func Apply(current issue.Fields, changes issue.Changes) issue.Fields {
	return changes.Apply(current)
}

// Encode returns the canonical CBOR encoding of events. Identical
// event slices always produce identical bytes.
func Encode(events []issue.ChangeEvent) ([]byte, error) {
	data, err := codec.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("changediff: encoding %d events: %w", len(events), err)
	}
	return data, nil
}

func isSet(changes issue.Changes, field issue.Field) bool {
	switch field {
	case issue.FieldTitle:
		return changes.Title.Set
	case issue.FieldDescription:
		return changes.Description.Set
	case issue.FieldStatus:
		return changes.Status.Set
	case issue.FieldPriority:
		return changes.Priority.Set
	case issue.FieldAssignee:
		return changes.Assignee.Set
	}
	return false
}

// equal compares rendered values. nil equals only nil, so an unset
// field and an empty string are different values.
func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
