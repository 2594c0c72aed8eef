// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import "time"

// circuitBreaker is the open/closed state of the error circuit.
// Guarded by Pipeline.mu.
type circuitBreaker struct {
	open     bool
	openedAt time.Time

	// dropped counts entries discarded while open. Reported and reset
	// when the breaker closes.
	dropped int
}

func (b *circuitBreaker) trip(now time.Time) {
	b.open = true
	b.openedAt = now
	b.dropped = 0
}

// coolingDown reports whether the breaker is open and its cooldown
// has not yet elapsed at now.
func (b *circuitBreaker) coolingDown(now time.Time, cooldown time.Duration) bool {
	return b.open && now.Sub(b.openedAt) < cooldown
}

// close closes the breaker and returns the number of entries dropped
// while it was open.
func (b *circuitBreaker) close() int {
	dropped := b.dropped
	b.open = false
	b.openedAt = time.Time{}
	b.dropped = 0
	return dropped
}

// minuteWindow holds the per-window counters. Guarded by Pipeline.mu.
type minuteWindow struct {
	startedAt  time.Time
	logs       int
	errors     int
	rateWarned bool
}

func (w *minuteWindow) reset(now time.Time) {
	*w = minuteWindow{startedAt: now}
}
