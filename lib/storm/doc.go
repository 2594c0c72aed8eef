// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package storm is the storm-protected front door between application
// code emitting diagnostic entries and the single persistence sink
// that stores them.
//
// A [Pipeline] owns all state. Every submitted entry passes the
// ingestion gate, which decides in this order (first match wins):
//
//  1. Circuit breaker open and cooling down: dropped (circuit_open).
//  2. Breaker open but cooldown elapsed: the breaker closes, a
//     recovery notice is emitted, and evaluation continues.
//  3. Minute window already holds MaxLogsPerMinute entries: dropped
//     (rate_limited). The first such drop in a window emits one WARN.
//  4. ERROR entries are fingerprinted. A fingerprint seen within
//     DedupWindow is suppressed and counted. Otherwise the dedup
//     record is refreshed, any pending suppression count is attached
//     to the entry, and the window error count is incremented; when it
//     reaches CircuitBreakerThreshold the breaker opens.
//  5. The entry is appended to the live buffer. Accepted.
//
// Synthetic notices (breaker open, breaker closed, rate limited,
// suppression summary) skip the gate entirely and never count toward
// the window counters, so operators always see them.
//
// # Delivery
//
// The live buffer holds at most MaxQueueSize entries. Reaching that
// size, a flush tick, or an urgent request ([Pipeline.RequestFlush])
// detaches the buffer into a batch and resets it before any I/O, so
// submission never waits on delivery. Detached batches wait in a
// bounded FIFO for a single delivery worker, which hands each one to
// the injected [BatchWriter]. A batch that fails delivery is handed to
// the [mirror.Mirror] and then discarded: it is never re-enqueued. If
// the FIFO overflows because the writer is stalled, the oldest pending
// batch is queued for the mirror with [ErrDeliveryBacklog]; a separate
// worker mirrors it, so submitters never perform mirror I/O. A
// Shutdown whose context ends before the final flush mirrors whatever
// is still buffered or queued.
//
// # Maintenance
//
// Every WindowInterval the window manager drains suppression counters
// into a single summary notice, sweeps dedup records older than twice
// DedupWindow, and resets the per-window counters. It is the only code
// that clears counters; the gate only increments them.
//
// # Concurrency
//
// Submit is synchronous and never blocks on I/O. Gate, buffer, and
// queue state sit behind one mutex held only for in-memory work. The
// flush loop, the window loop, and the eviction loop run on their own
// goroutines; the first two are driven by the injected clock. Shutdown
// stops all three, detaches any installed [Bridge], and performs one
// final flush.
package storm
