// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recordstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/md-786910/heaven-assignment/lib/issue"
)

// MemoryStore is an in-process Store. Each record lives in its own
// cell guarded by its own mutex; there is no store-wide lock on the
// Get or CompareAndSwap paths.
type MemoryStore struct {
	cells  sync.Map // int64 -> *cell
	nextID atomic.Int64
}

type cell struct {
	mu     sync.Mutex
	record issue.Record
}

// NewMemoryStore returns an empty store. IDs start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Create stores record under the next ID.
func (s *MemoryStore) Create(ctx context.Context, record issue.Record) (issue.Record, error) {
	if err := ctx.Err(); err != nil {
		return issue.Record{}, err
	}
	if record.Version != issue.InitialVersion {
		return issue.Record{}, fmt.Errorf("recordstore: new record has version %d, want %d", record.Version, issue.InitialVersion)
	}
	record = record.Clone()
	record.ID = s.nextID.Add(1)
	s.cells.Store(record.ID, &cell{record: record})
	return record.Clone(), nil
}

// Get returns a copy of the current record.
func (s *MemoryStore) Get(ctx context.Context, id int64) (issue.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return issue.Record{}, false, err
	}
	value, ok := s.cells.Load(id)
	if !ok {
		return issue.Record{}, false, nil
	}
	c := value.(*cell)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.Clone(), true, nil
}

// List snapshots every record, filters, and pages in ID order. Each
// record is read under its own lock, so the result is per-record
// consistent but not a point-in-time view of the whole store.
func (s *MemoryStore) List(ctx context.Context, filter issue.Filter) ([]issue.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var matched []issue.Record
	s.cells.Range(func(_, value any) bool {
		c := value.(*cell)
		c.mu.Lock()
		record := c.record.Clone()
		c.mu.Unlock()
		if filter.Matches(record) {
			matched = append(matched, record)
		}
		return true
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return page(matched, filter), nil
}

// CompareAndSwap holds the record's cell lock across the version
// check, fn, and the write.
func (s *MemoryStore) CompareAndSwap(ctx context.Context, id int64, expected uint64, fn Mutator) (issue.Record, CommitResult, error) {
	value, ok := s.cells.Load(id)
	if !ok {
		return issue.Record{}, Unchanged, fmt.Errorf("recordstore: record %d: %w", id, ErrNotFound)
	}
	c := value.(*cell)
	c.mu.Lock()
	defer c.mu.Unlock()

	// Last point at which cancellation leaves no trace.
	if err := ctx.Err(); err != nil {
		return issue.Record{}, Unchanged, err
	}

	next, result, err := swap(c.record, expected, fn)
	if err != nil {
		return issue.Record{}, Unchanged, err
	}
	if result == Committed {
		c.record = next
	}
	return c.record.Clone(), result, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func page(records []issue.Record, filter issue.Filter) []issue.Record {
	if filter.Skip >= len(records) {
		return []issue.Record{}
	}
	records = records[filter.Skip:]
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records
}
