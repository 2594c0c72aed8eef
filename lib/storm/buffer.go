// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import "github.com/bureau-foundation/stormlog/lib/logentry"

// entryBuffer is the live buffer of accepted entries awaiting the next
// flush. Guarded by Pipeline.mu.
type entryBuffer struct {
	entries  []logentry.Entry
	capacity int
}

func newEntryBuffer(capacity int) *entryBuffer {
	return &entryBuffer{
		entries:  make([]logentry.Entry, 0, capacity),
		capacity: capacity,
	}
}

// push appends an entry and reports whether the buffer reached
// capacity.
func (b *entryBuffer) push(entry logentry.Entry) (full bool) {
	b.entries = append(b.entries, entry)
	return len(b.entries) >= b.capacity
}

// detach returns the buffered entries and replaces the buffer with a
// fresh one. The returned slice is owned by the caller. Returns nil
// when the buffer is empty.
func (b *entryBuffer) detach() []logentry.Entry {
	if len(b.entries) == 0 {
		return nil
	}
	batch := b.entries
	b.entries = make([]logentry.Entry, 0, b.capacity)
	return batch
}

func (b *entryBuffer) len() int {
	return len(b.entries)
}

// batchQueue is a bounded FIFO of detached batches. The pipeline keeps
// two: batches awaiting delivery, and batches evicted from that queue
// awaiting the mirror. When full, push evicts the oldest batch so the
// newest evidence survives a stalled writer. Guarded by Pipeline.mu; the notify
// channel is safe to use without it.
type batchQueue struct {
	batches    [][]logentry.Entry
	maxBatches int

	// notify is signaled (non-blocking, capacity 1) when a batch is
	// queued. The worker draining the queue selects on it.
	notify chan struct{}
}

func newBatchQueue(maxBatches int) *batchQueue {
	return &batchQueue{
		maxBatches: maxBatches,
		notify:     make(chan struct{}, 1),
	}
}

// push appends a batch. If the queue was already full, the oldest
// batch is removed and returned.
func (q *batchQueue) push(batch []logentry.Entry) (evicted []logentry.Entry) {
	if len(q.batches) >= q.maxBatches {
		evicted = q.batches[0]
		q.batches[0] = nil
		q.batches = q.batches[1:]
	}
	q.batches = append(q.batches, batch)
	return evicted
}

// pop removes and returns the oldest batch, or nil when empty.
func (q *batchQueue) pop() []logentry.Entry {
	if len(q.batches) == 0 {
		return nil
	}
	batch := q.batches[0]
	q.batches[0] = nil
	q.batches = q.batches[1:]
	return batch
}

// takeAll removes and returns every queued batch, oldest first.
func (q *batchQueue) takeAll() [][]logentry.Entry {
	batches := q.batches
	q.batches = nil
	return batches
}

func (q *batchQueue) len() int {
	return len(q.batches)
}

// entries returns the total number of entries across queued batches.
func (q *batchQueue) entries() int {
	total := 0
	for _, batch := range q.batches {
		total += len(batch)
	}
	return total
}

// signal wakes the draining worker without blocking.
func (q *batchQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
