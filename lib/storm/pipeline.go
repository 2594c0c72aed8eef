// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/logentry"
	"github.com/bureau-foundation/stormlog/lib/mirror"
)

var (
	// ErrClosed is returned by operations on a pipeline after Shutdown.
	ErrClosed = errors.New("storm: pipeline closed")

	// ErrDeliveryBacklog is the cause passed to the mirror for a batch
	// evicted from a full delivery queue.
	ErrDeliveryBacklog = errors.New("storm: delivery backlog full")
)

// BatchWriter is the single persistence sink. WriteBatch receives
// batches in detach order, one call at a time. A returned error or a
// panic routes the batch to the mirror; it is never retried.
type BatchWriter interface {
	WriteBatch(ctx context.Context, batch []logentry.Entry) error
}

// BatchWriterFunc adapts a function to BatchWriter.
type BatchWriterFunc func(ctx context.Context, batch []logentry.Entry) error

// WriteBatch calls f.
func (f BatchWriterFunc) WriteBatch(ctx context.Context, batch []logentry.Entry) error {
	return f(ctx, batch)
}

// Options configures a Pipeline.
type Options struct {
	// Config holds thresholds. Zero fields take defaults.
	Config Config

	// Writer is the persistence sink. Required.
	Writer BatchWriter

	// Mirror receives undeliverable batches. cause is the delivery
	// error, ErrDeliveryBacklog for an evicted batch, or the Shutdown
	// context error for entries abandoned at shutdown. Defaults to a
	// console mirror writing through Logger.
	Mirror mirror.Mirror

	// Clock drives the flush and window loops and stamps entries.
	// Defaults to the real clock.
	Clock clock.Clock

	// Logger receives the pipeline's own operational messages. These
	// never pass back through the pipeline. Defaults to discarding.
	Logger *slog.Logger
}

// Pipeline is the storm-protected ingestion pipeline. Create with
// New, then call Start to run the flush and window loops. All methods
// are safe for concurrent use.
type Pipeline struct {
	config Config
	writer BatchWriter
	mirror mirror.Mirror
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	buffer  *entryBuffer
	pending *batchQueue
	evicted *batchQueue
	dedup   *dedupStore
	window  minuteWindow
	breaker circuitBreaker
	bridge  *Bridge
	started bool
	closed  bool

	// deliverSlot serializes batch delivery between the flush loop,
	// Flush, and Shutdown so the writer never sees concurrent calls
	// and batches arrive in detach order.
	deliverSlot chan struct{}

	deliveredEntries atomic.Uint64
	mirroredEntries  atomic.Uint64
	discardedEntries atomic.Uint64

	stop         context.CancelFunc
	loops        sync.WaitGroup
	shutdownOnce sync.Once
	shutdownErr  error

	// windowRolled receives each window summary after maintenance.
	// Nil in production; tests set it to synchronize with the window
	// loop.
	windowRolled chan WindowSummary
}

// New creates a Pipeline. The pipeline accepts submissions
// immediately; Start begins timer-driven flushing and window
// maintenance.
func New(options Options) (*Pipeline, error) {
	if options.Writer == nil {
		return nil, fmt.Errorf("storm: writer is required")
	}
	config := options.Config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	mirrorSink := options.Mirror
	if mirrorSink == nil {
		mirrorSink = mirror.NewConsole(logger)
	}

	pipeline := &Pipeline{
		config:      config,
		writer:      options.Writer,
		mirror:      mirrorSink,
		clock:       clk,
		logger:      logger,
		buffer:      newEntryBuffer(config.MaxQueueSize),
		pending:     newBatchQueue(config.MaxPendingBatches),
		evicted:     newBatchQueue(config.MaxPendingBatches),
		dedup:       newDedupStore(),
		deliverSlot: make(chan struct{}, 1),
	}
	pipeline.window.reset(clk.Now())
	return pipeline, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Start launches the flush loop, the window loop, and the loop that
// mirrors batches evicted from a full delivery queue. All three stop
// when ctx is cancelled or Shutdown is called. Calling Start more than once
// is a no-op.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.started {
		return nil
	}
	p.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	p.stop = cancel

	// Both tickers are registered with the clock before Start returns.
	flushTicker := p.clock.NewTicker(p.config.FlushInterval)
	windowTicker := p.clock.NewTicker(p.config.WindowInterval)

	p.loops.Add(3)
	go func() {
		defer p.loops.Done()
		defer flushTicker.Stop()
		p.runFlushLoop(loopCtx, flushTicker)
	}()
	go func() {
		defer p.loops.Done()
		p.runEvictionLoop(loopCtx)
	}()
	go func() {
		defer p.loops.Done()
		defer windowTicker.Stop()
		p.runWindowLoop(loopCtx, windowTicker)
	}()

	p.logger.Info("storm pipeline started",
		"flush_interval", p.config.FlushInterval,
		"window_interval", p.config.WindowInterval,
		"max_queue_size", p.config.MaxQueueSize,
	)
	return nil
}

// Shutdown stops the loops, detaches any installed bridge, and
// performs one final flush of everything buffered or queued. ctx
// bounds the wait for the loops and the final delivery. If ctx ends
// first, everything not yet handed to the writer goes to the mirror
// with the context error as cause. Calling Shutdown more than once
// returns the first result. Submissions after Shutdown are dropped.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.shutdownErr = p.shutdown(ctx)
	})
	return p.shutdownErr
}

func (p *Pipeline) shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	bridge := p.bridge
	p.bridge = nil
	stop := p.stop
	p.mu.Unlock()

	if bridge != nil {
		bridge.detach()
	}
	if stop != nil {
		stop()
	}

	done := make(chan struct{})
	go func() {
		p.loops.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.abandon(ctx)
		return fmt.Errorf("storm: waiting for loops to stop: %w", ctx.Err())
	}

	p.detachForFlush(ctx)
	if err := p.drain(ctx); err != nil {
		p.abandon(ctx)
		return fmt.Errorf("storm: final flush: %w", err)
	}
	p.logger.Info("storm pipeline stopped",
		"delivered_entries", p.deliveredEntries.Load(),
		"mirrored_entries", p.mirroredEntries.Load(),
	)
	return nil
}

// abandon empties the live buffer and both queues into the mirror
// after ctx ended before the final flush could run. A delivery already
// in progress keeps its batch.
func (p *Pipeline) abandon(ctx context.Context) {
	p.mu.Lock()
	evicted := p.evicted.takeAll()
	pending := p.pending.takeAll()
	if batch := p.buffer.detach(); batch != nil {
		pending = append(pending, batch)
	}
	p.mu.Unlock()

	mirrorCtx := context.WithoutCancel(ctx)
	for _, batch := range evicted {
		p.mirrorBatch(mirrorCtx, batch, ErrDeliveryBacklog)
	}
	entries := 0
	for _, batch := range pending {
		entries += len(batch)
		p.mirrorBatch(mirrorCtx, batch, ctx.Err())
	}
	if entries > 0 {
		p.logger.Warn("shutdown deadline passed, mirrored undelivered entries",
			"entries", entries,
			"error", ctx.Err(),
		)
	}
}

// attachBridge records the installed bridge so Shutdown can detach
// it. A previously attached bridge other than b is detached.
func (p *Pipeline) attachBridge(b *Bridge) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	previous := p.bridge
	p.bridge = b
	p.mu.Unlock()

	if previous != nil && previous != b {
		previous.detach()
	}
	return nil
}

func (p *Pipeline) releaseBridge(b *Bridge) {
	p.mu.Lock()
	if p.bridge == b {
		p.bridge = nil
	}
	p.mu.Unlock()
}

// Status is a point-in-time view of pipeline state.
type Status struct {
	QueueLength         int    `json:"queue_length"`
	LogsThisMinute      int    `json:"logs_this_minute"`
	ErrorsThisMinute    int    `json:"errors_this_minute"`
	CircuitBreakerOpen  bool   `json:"circuit_breaker_open"`
	DroppedDuringOutage int    `json:"dropped_during_outage"`
	DedupMapSize        int    `json:"dedup_map_size"`
	Config              Config `json:"config"`

	PendingBatches    int       `json:"pending_batches"`
	PendingEntries    int       `json:"pending_entries"`
	EvictedBatches    int       `json:"evicted_batches"`
	SuppressedPending int       `json:"suppressed_pending"`
	RateLimitWarned   bool      `json:"rate_limit_warned"`
	WindowStartedAt   time.Time `json:"window_started_at"`
	DeliveredEntries  uint64    `json:"delivered_entries"`
	MirroredEntries   uint64    `json:"mirrored_entries"`
	DiscardedEntries  uint64    `json:"discarded_entries"`
	Closed            bool      `json:"closed"`
}

// Status returns a snapshot of the pipeline's counters.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		QueueLength:         p.buffer.len(),
		LogsThisMinute:      p.window.logs,
		ErrorsThisMinute:    p.window.errors,
		CircuitBreakerOpen:  p.breaker.open,
		DroppedDuringOutage: p.breaker.dropped,
		DedupMapSize:        p.dedup.size(),
		Config:              p.config,
		PendingBatches:      p.pending.len(),
		PendingEntries:      p.pending.entries(),
		EvictedBatches:      p.evicted.len(),
		SuppressedPending:   p.dedup.pendingSuppressed(),
		RateLimitWarned:     p.window.rateWarned,
		WindowStartedAt:     p.window.startedAt,
		DeliveredEntries:    p.deliveredEntries.Load(),
		MirroredEntries:     p.mirroredEntries.Load(),
		DiscardedEntries:    p.discardedEntries.Load(),
		Closed:              p.closed,
	}
}
