// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"context"
	"sync"

	"github.com/md-786910/heaven-assignment/lib/issue"
)

// MemoryLog is an in-process Log. Each record's stream has its own
// lock; appends are amortized O(batch size).
type MemoryLog struct {
	streams sync.Map // int64 -> *stream
}

type stream struct {
	mu     sync.RWMutex
	events []issue.ChangeEvent
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append seals the batch against the end of its stream and appends it
// under the stream's write lock.
func (l *MemoryLog) Append(ctx context.Context, events []issue.ChangeEvent) ([]issue.ChangeEvent, error) {
	recordID, err := checkBatch(events)
	if err != nil {
		return nil, err
	}
	value, _ := l.streams.LoadOrStore(recordID, &stream{})
	s := value.(*stream)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var lastSequence uint64
	var lastDigest string
	if n := len(s.events); n > 0 {
		lastSequence = s.events[n-1].Sequence
		lastDigest = s.events[n-1].Digest
	}
	sealed, err := seal(events, lastSequence, lastDigest)
	if err != nil {
		return nil, err
	}
	s.events = append(s.events, sealed...)
	return cloneEvents(sealed), nil
}

// Query copies the stream under its read lock.
func (l *MemoryLog) Query(ctx context.Context, recordID int64) ([]issue.ChangeEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := l.streams.Load(recordID)
	if !ok {
		return []issue.ChangeEvent{}, nil
	}
	s := value.(*stream)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.events), nil
}

// Close is a no-op.
func (l *MemoryLog) Close() error { return nil }
