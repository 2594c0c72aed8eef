// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crashhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/logentry"
	"github.com/bureau-foundation/stormlog/lib/storm"
	"github.com/bureau-foundation/stormlog/lib/testutil"
)

const testTimeout = 5 * time.Second

// collect subscribes to kind and returns a channel receiving every
// notification.
func collect(hooks *Hooks, kind logentry.FaultKind) <-chan storm.Notification {
	received := make(chan storm.Notification, 16)
	hooks.Subscribe(kind, func(notification storm.Notification) {
		received <- notification
	})
	return received
}

func TestRecoverPublishesPanic(t *testing.T) {
	hooks := New(nil)
	received := collect(hooks, logentry.FaultUncaughtError)

	func() {
		defer hooks.Recover()
		var values []int
		_ = values[3]
	}()

	notification := testutil.RequireReceive(t, received, testTimeout, "waiting for panic notification")
	if !strings.Contains(notification.Message, "index out of range") {
		t.Errorf("Message = %q", notification.Message)
	}
	if !strings.Contains(notification.Location, "TestRecoverPublishesPanic") {
		t.Errorf("Location = %q, want the panicking function", notification.Location)
	}
	if !strings.Contains(notification.Stack, "goroutine") {
		t.Errorf("Stack = %q, want a stack trace", notification.Stack)
	}
}

func TestRecoverWithoutPanic(t *testing.T) {
	hooks := New(nil)
	received := collect(hooks, logentry.FaultUncaughtError)
	func() {
		defer hooks.Recover()
	}()
	if len(received) != 0 {
		t.Error("Recover published without a panic")
	}
}

func TestGoRecoversPanic(t *testing.T) {
	hooks := New(nil)
	received := collect(hooks, logentry.FaultUncaughtError)

	hooks.Go(func() { panic(errors.New("worker crashed")) })
	hooks.Wait()

	notification := testutil.RequireReceive(t, received, testTimeout, "waiting for goroutine panic")
	if notification.Message != "worker crashed" {
		t.Errorf("Message = %q, want %q", notification.Message, "worker crashed")
	}
}

func syncAccounts() error {
	return fmt.Errorf("syncing accounts: %w", errors.New("quota exceeded"))
}

func TestGoErrReportsReturnedError(t *testing.T) {
	hooks := New(nil)
	received := collect(hooks, logentry.FaultUnhandledRejection)

	hooks.GoErr(syncAccounts)
	hooks.GoErr(func() error { return nil })
	hooks.Wait()

	notification := testutil.RequireReceive(t, received, testTimeout, "waiting for rejection")
	if notification.Message != "syncing accounts: quota exceeded" {
		t.Errorf("Message = %q", notification.Message)
	}
	if notification.Reason != "quota exceeded" {
		t.Errorf("Reason = %q, want the innermost cause", notification.Reason)
	}
	if !strings.HasSuffix(notification.Location, "syncAccounts") {
		t.Errorf("Location = %q, want the function name", notification.Location)
	}
	if len(received) != 0 {
		t.Error("nil error should not be reported")
	}
}

func TestReport(t *testing.T) {
	hooks := New(nil)
	received := collect(hooks, logentry.FaultUnhandledRejection)

	hooks.Report(nil)
	hooks.Report(errors.New("flat error"))

	notification := testutil.RequireReceive(t, received, testTimeout, "waiting for report")
	if notification.Message != "flat error" || notification.Reason != "" {
		t.Errorf("notification = %+v", notification)
	}
	if !strings.Contains(notification.Location, "hooks_test.go") {
		t.Errorf("Location = %q, want the calling file", notification.Location)
	}
	if len(received) != 0 {
		t.Error("nil error should not be reported")
	}
}

func TestUnsubscribe(t *testing.T) {
	hooks := New(nil)
	calls := 0
	unsubscribe := hooks.Subscribe(logentry.FaultUnhandledRejection, func(storm.Notification) { calls++ })
	if got := hooks.Subscribers(logentry.FaultUnhandledRejection); got != 1 {
		t.Fatalf("Subscribers = %d, want 1", got)
	}

	unsubscribe()
	unsubscribe()
	hooks.Report(errors.New("after unsubscribe"))

	if calls != 0 {
		t.Errorf("handler called %d times after unsubscribe", calls)
	}
	if got := hooks.Subscribers(logentry.FaultUnhandledRejection); got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	hooks := New(nil)
	hooks.Subscribe(logentry.FaultUnhandledRejection, func(storm.Notification) { panic("bad subscriber") })
	received := collect(hooks, logentry.FaultUnhandledRejection)

	hooks.Report(errors.New("still delivered"))
	testutil.RequireReceive(t, received, testTimeout, "healthy subscriber should still run")
}

type recordingWriter struct {
	mu      sync.Mutex
	entries []logentry.Entry
}

func (w *recordingWriter) WriteBatch(_ context.Context, batch []logentry.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, batch...)
	return nil
}

func TestHooksFeedBridge(t *testing.T) {
	writer := &recordingWriter{}
	pipeline, err := storm.New(storm.Options{
		Writer: writer,
		Clock:  clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("storm.New: %v", err)
	}
	hooks := New(nil)
	bridge := storm.NewBridge(pipeline, hooks, nil)
	if err := bridge.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := bridge.Install(); err != nil {
		t.Fatalf("second Install: %v", err)
	}
	for _, kind := range []logentry.FaultKind{logentry.FaultUncaughtError, logentry.FaultUnhandledRejection} {
		if got := hooks.Subscribers(kind); got != 1 {
			t.Errorf("Subscribers(%s) = %d, want 1", kind, got)
		}
	}

	hooks.Go(func() { panic("render loop") })
	hooks.Report(errors.New("write tcp: broken pipe"))
	hooks.Wait()

	if err := pipeline.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := hooks.Subscribers(logentry.FaultUncaughtError); got != 0 {
		t.Errorf("Subscribers after Shutdown = %d, want 0", got)
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.entries) != 1 {
		t.Fatalf("delivered %d entries, want 1 (broken pipe excluded)", len(writer.entries))
	}
	entry := writer.entries[0]
	if entry.Module != storm.GlobalModule || entry.Data.Fault == nil || entry.Data.Fault.Message != "render loop" {
		t.Errorf("entry = %+v", entry)
	}
}
