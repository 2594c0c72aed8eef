// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for the storm pipeline: Now stamps entries
// and drives window and dedup arithmetic, NewTicker paces the flush
// and window loops. Production code uses Real; tests use Fake and
// advance it explicitly.
type Clock interface {
	Now() time.Time

	// After fires once d has elapsed, or immediately when d <= 0.
	After(d time.Duration) <-chan time.Time

	// NewTicker panics when d <= 0, as time.NewTicker does.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. C holds at most one tick, so a
// loop that falls behind sees one tick rather than a burst.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop halts the ticker without closing C. The flush and window loops
// defer it when they exit.
func (t *Ticker) Stop() { t.stopFunc() }
