// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/logentry"
)

// RequestFlush detaches the live buffer and wakes the delivery worker
// without waiting for delivery. Used for urgent entries (errors and
// divergences) so they reach the sink ahead of the next tick.
func (p *Pipeline) RequestFlush() {
	var effects admission
	p.mu.Lock()
	if !p.closed {
		p.detachLocked(&effects)
	}
	p.mu.Unlock()
	p.applyAdmission(effects)
}

// Flush detaches the live buffer and delivers every queued batch
// before returning. Batches that fail delivery are mirrored; Flush
// only returns an error when ctx ends before delivery could start.
func (p *Pipeline) Flush(ctx context.Context) error {
	p.detachForFlush(ctx)
	return p.drain(ctx)
}

// detachForFlush moves the live buffer into the delivery queue.
func (p *Pipeline) detachForFlush(ctx context.Context) {
	var effects admission
	p.mu.Lock()
	p.detachLocked(&effects)
	p.mu.Unlock()
	effects.wake = false
	p.applyAdmission(effects)
}

// drain mirrors any evicted batches, then delivers queued batches in
// FIFO order until the queue is empty. Only one drain delivers at a
// time.
func (p *Pipeline) drain(ctx context.Context) error {
	p.mirrorEvicted(ctx)
	select {
	case p.deliverSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.deliverSlot }()

	for {
		p.mu.Lock()
		batch := p.pending.pop()
		p.mu.Unlock()
		if batch == nil {
			return nil
		}
		p.deliver(ctx, batch)
	}
}

// deliver hands one batch to the writer, mirroring it on failure.
func (p *Pipeline) deliver(ctx context.Context, batch []logentry.Entry) {
	if err := p.writeBatch(ctx, batch); err != nil {
		p.logger.Warn("batch delivery failed, mirroring locally",
			"entries", len(batch),
			"error", err,
		)
		p.mirrorBatch(ctx, batch, err)
		return
	}
	p.deliveredEntries.Add(uint64(len(batch)))
}

// writeBatch calls the writer, converting a panic into an error.
func (p *Pipeline) writeBatch(ctx context.Context, batch []logentry.Entry) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("storm: writer panicked: %v", recovered)
		}
	}()
	return p.writer.WriteBatch(ctx, batch)
}

// mirrorBatch hands a batch to the mirror. A failing mirror drops the
// batch; the failure is logged but never surfaces to submitters.
func (p *Pipeline) mirrorBatch(ctx context.Context, batch []logentry.Entry, cause error) {
	err := func() (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("storm: mirror panicked: %v", recovered)
			}
		}()
		return p.mirror.MirrorBatch(ctx, batch, cause)
	}()
	if err != nil {
		p.discardedEntries.Add(uint64(len(batch)))
		p.logger.Error("mirror failed, discarding batch",
			"entries", len(batch),
			"cause", cause,
			"error", err,
		)
		return
	}
	p.mirroredEntries.Add(uint64(len(batch)))
}

// mirrorEvicted hands every batch evicted from the delivery queue to
// the mirror, oldest first.
func (p *Pipeline) mirrorEvicted(ctx context.Context) {
	for {
		p.mu.Lock()
		batch := p.evicted.pop()
		p.mu.Unlock()
		if batch == nil {
			return
		}
		p.logger.Warn("delivery backlog full, mirroring oldest batch",
			"entries", len(batch),
			"max_pending_batches", p.config.MaxPendingBatches,
		)
		p.mirrorBatch(ctx, batch, ErrDeliveryBacklog)
	}
}

// runEvictionLoop mirrors evicted batches as they appear. It runs apart
// from the flush loop so a stalled writer does not hold them back.
func (p *Pipeline) runEvictionLoop(ctx context.Context) {
	mirrorCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.evicted.notify:
			p.mirrorEvicted(mirrorCtx)
		}
	}
}

// runFlushLoop delivers on every tick and whenever a batch is queued.
// Deliveries started by the loop are not cancelled by ctx: a write in
// progress at shutdown completes, and Shutdown waits for it.
func (p *Pipeline) runFlushLoop(ctx context.Context, ticker *clock.Ticker) {
	deliveryCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.detachForFlush(deliveryCtx)
			p.drain(deliveryCtx)
		case <-p.pending.notify:
			p.drain(deliveryCtx)
		}
	}
}
