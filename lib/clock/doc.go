// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the log
// pipeline's gate, window manager, and flush loop.
//
// Production code holds a Clock field instead of calling time.Now or
// time.NewTicker directly. Real() returns the standard library
// behavior. Fake() returns a clock that moves only when Advance is
// called, so dedup windows, breaker cooldowns, and minute windows can
// be exercised deterministically:
//
//	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	pipeline, _ := storm.New(storm.Options{Clock: fakeClock, ...})
//	pipeline.Start()
//	fakeClock.WaitForTimers(2)         // flush ticker + window ticker
//	fakeClock.Advance(time.Minute)     // roll the minute window
//
// WaitForTimers closes the race between a goroutine registering a
// ticker and the test advancing past it.
package clock
