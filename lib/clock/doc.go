// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable timestamp source used by the
// mutation pipeline.
//
// Production code accepts a Clock instead of calling time.Now
// directly. Real returns the wall clock; Fake returns a clock that only
// moves when the test tells it to. Monotonic wraps either one so that
// successive readings never go backwards, which is what the audit
// trail needs: ChangeEvent timestamps must be non-decreasing in
// sequence order even when the host clock is stepped back by NTP.
//
// # Wiring Pattern
//
//	coordinator, err := mutation.New(mutation.Config{
//	    Clock: clock.Monotonic(clock.Real()),
//	    // ...
//	})
//
// In tests:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	coordinator, err := mutation.New(mutation.Config{Clock: fake, ...})
//	fake.Advance(time.Second)
package clock
