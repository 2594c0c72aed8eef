// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/logentry"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testTimeout = 5 * time.Second

// fakeWriter records delivered batches and signals each call on
// called with the batch length. When block is set before the pipeline
// starts, each call waits for it to close after signaling.
type fakeWriter struct {
	mu         sync.Mutex
	batches    [][]logentry.Entry
	err        error
	panicValue any

	called chan int
	block  chan struct{}
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{called: make(chan int, 64)}
}

func (w *fakeWriter) WriteBatch(_ context.Context, batch []logentry.Entry) error {
	w.mu.Lock()
	w.batches = append(w.batches, append([]logentry.Entry(nil), batch...))
	err, panicValue := w.err, w.panicValue
	w.mu.Unlock()

	w.called <- len(batch)
	if w.block != nil {
		<-w.block
	}
	if panicValue != nil {
		panic(panicValue)
	}
	return err
}

func (w *fakeWriter) setErr(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

func (w *fakeWriter) batchSizes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	sizes := make([]int, len(w.batches))
	for i, batch := range w.batches {
		sizes[i] = len(batch)
	}
	return sizes
}

// delivered returns every delivered entry in delivery order.
func (w *fakeWriter) delivered() []logentry.Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	var entries []logentry.Entry
	for _, batch := range w.batches {
		entries = append(entries, batch...)
	}
	return entries
}

// fakeMirror records mirrored batches and their causes. Each call is
// signaled on called, when set and not full, with the batch length. When block is
// set, calls wait for it to close before recording.
type fakeMirror struct {
	mu      sync.Mutex
	batches [][]logentry.Entry
	causes  []error
	err     error

	called chan int
	block  chan struct{}
}

func (m *fakeMirror) MirrorBatch(_ context.Context, batch []logentry.Entry, cause error) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	m.batches = append(m.batches, append([]logentry.Entry(nil), batch...))
	m.causes = append(m.causes, cause)
	err := m.err
	m.mu.Unlock()

	if m.called != nil {
		select {
		case m.called <- len(batch):
		default:
		}
	}
	return err
}

func (m *fakeMirror) snapshot() ([][]logentry.Entry, []error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]logentry.Entry(nil), m.batches...), append([]error(nil), m.causes...)
}

// testPipeline bundles a pipeline with its fakes.
type testPipeline struct {
	*Pipeline
	clock  *clock.FakeClock
	writer *fakeWriter
	mirror *fakeMirror
}

// newTestPipeline creates an unstarted pipeline on a fake clock. The
// pipeline is shut down when the test completes.
func newTestPipeline(t *testing.T, config Config) *testPipeline {
	t.Helper()
	fakeClock := clock.Fake(epoch)
	writer := newFakeWriter()
	mirror := &fakeMirror{called: make(chan int, 64)}
	pipeline, err := New(Options{
		Config: config,
		Writer: writer,
		Mirror: mirror,
		Clock:  fakeClock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		pipeline.Shutdown(context.Background())
	})
	return &testPipeline{Pipeline: pipeline, clock: fakeClock, writer: writer, mirror: mirror}
}

// flush delivers everything pending and fails the test on error.
func (tp *testPipeline) flush(t *testing.T) {
	t.Helper()
	if err := tp.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func infoEntry(operation string) logentry.Entry {
	return logentry.Entry{Level: logentry.LevelInfo, Module: "chat", Operation: operation}
}

func errorEntry(operation, message string) logentry.Entry {
	return logentry.Entry{
		Level:     logentry.LevelError,
		Module:    "chat",
		Operation: operation,
		Data: logentry.Data{Fault: &logentry.Fault{
			Kind:     logentry.FaultUncaughtError,
			Message:  message,
			Location: "send.go:42",
		}},
	}
}

// stormNotices returns the synthetic entries among entries.
func stormNotices(entries []logentry.Entry) []logentry.Entry {
	var notices []logentry.Entry
	for _, entry := range entries {
		if entry.Module == StormModule {
			notices = append(notices, entry)
		}
	}
	return notices
}

func operations(entries []logentry.Entry) []string {
	ops := make([]string, len(entries))
	for i, entry := range entries {
		ops[i] = entry.Operation
	}
	return ops
}
