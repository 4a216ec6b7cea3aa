// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"sync"
)

// lanes is a keyed lock: one single-slot semaphore per record ID.
// Holding a record's lane across commit and append keeps that
// record's audit order identical to its version order. Lanes of
// different records are independent.
//
// A lane exists only while some caller holds or waits for it, so the
// map tracks in-flight records, not every record ever mutated.
type lanes struct {
	mu    sync.Mutex
	slots map[int64]*lane
}

type lane struct {
	slot chan struct{}

	// users counts holders plus waiters. Guarded by lanes.mu.
	users int
}

// acquire blocks until the record's lane is free or ctx is done. The
// returned function releases the lane.
func (l *lanes) acquire(ctx context.Context, recordID int64) (func(), error) {
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[int64]*lane)
	}
	current, ok := l.slots[recordID]
	if !ok {
		current = &lane{slot: make(chan struct{}, 1)}
		l.slots[recordID] = current
	}
	current.users++
	l.mu.Unlock()

	select {
	case current.slot <- struct{}{}:
		return func() {
			<-current.slot
			l.leave(recordID, current)
		}, nil
	case <-ctx.Done():
		l.leave(recordID, current)
		return nil, ctx.Err()
	}
}

func (l *lanes) leave(recordID int64, current *lane) {
	l.mu.Lock()
	defer l.mu.Unlock()
	current.users--
	if current.users == 0 {
		delete(l.slots, recordID)
	}
}

// active returns the number of records with a live lane.
func (l *lanes) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
