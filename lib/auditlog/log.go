// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditlog is the append-only, per-record timeline of
// ChangeEvents.
//
// Each record has its own stream. Append assigns every event in a
// batch the next dense, 1-based sequence number of its record's stream
// and links it into a BLAKE3 hash chain, then persists the whole batch
// atomically: Query never observes part of a batch. Streams of
// different records never share a lock.
//
// The log does not decide ordering between concurrent writers of one
// record; it appends in the order Append calls arrive. The mutation
// coordinator serializes commit and append per record so that stream
// order equals version order.
package auditlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-786910/heaven-assignment/lib/issue"
)

// ErrInvalidBatch is returned by Append for an empty batch or one
// whose events belong to more than one record.
var ErrInvalidBatch = errors.New("invalid event batch")

// Log is the audit log contract shared by both backends.
type Log interface {
	// Append stores events as one atomic batch at the end of their
	// record's stream and returns them with Sequence and Digest
	// assigned. Incoming Sequence and Digest values are ignored.
	Append(ctx context.Context, events []issue.ChangeEvent) ([]issue.ChangeEvent, error)

	// Query returns the record's full stream, oldest first. A record
	// with no events (or no such record) yields an empty slice.
	Query(ctx context.Context, recordID int64) ([]issue.ChangeEvent, error)

	// Close releases the log's resources.
	Close() error
}

// checkBatch validates the shape of an Append batch and returns its
// record ID.
func checkBatch(events []issue.ChangeEvent) (int64, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidBatch)
	}
	recordID := events[0].RecordID
	for _, event := range events[1:] {
		if event.RecordID != recordID {
			return 0, fmt.Errorf("%w: mixes records %d and %d", ErrInvalidBatch, recordID, event.RecordID)
		}
	}
	return recordID, nil
}

// seal assigns sequence numbers and digests to a batch that follows
// an existing stream ending at (lastSequence, lastDigest).
func seal(events []issue.ChangeEvent, lastSequence uint64, lastDigest string) ([]issue.ChangeEvent, error) {
	sealed := make([]issue.ChangeEvent, len(events))
	previous := lastDigest
	for i, event := range events {
		event.Sequence = lastSequence + uint64(i) + 1
		event.Timestamp = event.Timestamp.Round(0).UTC()
		event.Old = cloneString(event.Old)
		event.New = cloneString(event.New)
		digest, err := Link(previous, event)
		if err != nil {
			return nil, err
		}
		event.Digest = digest
		sealed[i] = event
		previous = digest
	}
	return sealed, nil
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneEvents(events []issue.ChangeEvent) []issue.ChangeEvent {
	clone := make([]issue.ChangeEvent, len(events))
	for i, event := range events {
		event.Old = cloneString(event.Old)
		event.New = cloneString(event.New)
		clone[i] = event
	}
	return clone
}
