// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Monotonic wraps inner so that Now never returns a time earlier than
// a previous reading. When inner goes backwards, the last returned
// value is repeated until inner catches up. Readings are stripped of
// Go's monotonic clock component and converted to UTC so they compare
// and serialize identically after a round trip through storage.
func Monotonic(inner Clock) Clock {
	return &monotonicClock{inner: inner}
}

type monotonicClock struct {
	inner Clock

	mu   sync.Mutex
	last time.Time
}

func (c *monotonicClock) Now() time.Time {
	now := c.inner.Now().Round(0).UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}
