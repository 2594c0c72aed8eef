// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crashhook

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/bureau-foundation/stormlog/lib/logentry"
	"github.com/bureau-foundation/stormlog/lib/storm"
)

// Hooks is a registry of fault subscribers. The zero value is not
// usable; create with New.
type Hooks struct {
	logger *slog.Logger

	mu          sync.Mutex
	nextID      uint64
	subscribers map[logentry.FaultKind]map[uint64]func(storm.Notification)

	goroutines sync.WaitGroup
}

var _ storm.HookProvider = (*Hooks)(nil)

// New creates an empty registry. A nil logger discards.
func New(logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hooks{
		logger:      logger,
		subscribers: make(map[logentry.FaultKind]map[uint64]func(storm.Notification)),
	}
}

// Subscribe registers handler for kind. The returned function removes
// it and is safe to call more than once.
func (h *Hooks) Subscribe(kind logentry.FaultKind, handler func(storm.Notification)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	if h.subscribers[kind] == nil {
		h.subscribers[kind] = make(map[uint64]func(storm.Notification))
	}
	h.subscribers[kind][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[kind], id)
		})
	}
}

// Subscribers returns the number of handlers registered for kind.
func (h *Hooks) Subscribers(kind logentry.FaultKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[kind])
}

// Recover must be deferred directly. It stops an escaping panic and
// publishes it as an uncaught_error.
//
//	defer hooks.Recover()
func (h *Hooks) Recover() {
	recovered := recover()
	if recovered == nil {
		return
	}
	h.publishPanic(recovered, debug.Stack())
}

// Go runs fn on a new goroutine with Recover deferred.
func (h *Hooks) Go(fn func()) {
	h.goroutines.Add(1)
	go func() {
		defer h.goroutines.Done()
		defer h.Recover()
		fn()
	}()
}

// GoErr runs fn on a new goroutine with Recover deferred. A non-nil
// error returned by fn is published as an unhandled_rejection whose
// location is fn's name.
func (h *Hooks) GoErr(fn func() error) {
	location := functionName(fn)
	h.goroutines.Add(1)
	go func() {
		defer h.goroutines.Done()
		defer h.Recover()
		if err := fn(); err != nil {
			h.publish(logentry.FaultUnhandledRejection, rejection(err, location, ""))
		}
	}()
}

// Wait blocks until every goroutine started by Go or GoErr returns.
func (h *Hooks) Wait() {
	h.goroutines.Wait()
}

// Report publishes err as an unhandled_rejection located at the
// caller. A nil err is ignored.
func (h *Hooks) Report(err error) {
	if err == nil {
		return
	}
	location := ""
	if _, file, line, ok := runtime.Caller(1); ok {
		location = fmt.Sprintf("%s:%d", file, line)
	}
	h.publish(logentry.FaultUnhandledRejection, rejection(err, location, string(debug.Stack())))
}

func (h *Hooks) publishPanic(recovered any, stack []byte) {
	message := fmt.Sprint(recovered)
	if err, ok := recovered.(error); ok {
		message = err.Error()
	}
	h.publish(logentry.FaultUncaughtError, storm.Notification{
		Message:  message,
		Location: panicLocation(),
		Stack:    string(stack),
	})
}

// publish delivers a notification to every subscriber of kind. A
// panicking subscriber is logged and skipped.
func (h *Hooks) publish(kind logentry.FaultKind, notification storm.Notification) {
	h.mu.Lock()
	handlers := make([]func(storm.Notification), 0, len(h.subscribers[kind]))
	for _, handler := range h.subscribers[kind] {
		handlers = append(handlers, handler)
	}
	h.mu.Unlock()

	if len(handlers) == 0 {
		h.logger.Warn("fault with no subscribers", "kind", kind, "message", notification.Message)
		return
	}
	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					h.logger.Error("fault subscriber panicked", "kind", kind, "panic", fmt.Sprint(r))
				}
			}()
			handler(notification)
		}()
	}
}

// rejection builds an unhandled_rejection notification. Reason is the
// innermost wrapped error when it differs from the full message.
func rejection(err error, location, stack string) storm.Notification {
	notification := storm.Notification{
		Message:  err.Error(),
		Location: location,
		Stack:    stack,
	}
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	if root != err && root.Error() != notification.Message {
		notification.Reason = root.Error()
	}
	return notification
}

// panicLocation returns "function (file:line)" for the frame that
// panicked: the first frame above runtime.gopanic that is not part of
// the runtime or this package.
func panicLocation() string {
	programCounters := make([]uintptr, 32)
	count := runtime.Callers(3, programCounters)
	frames := runtime.CallersFrames(programCounters[:count])
	sawPanic := false
	for {
		frame, more := frames.Next()
		if frame.Function == "runtime.gopanic" {
			sawPanic = true
		} else if sawPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line)
		}
		if !more {
			return ""
		}
	}
}

func functionName(fn any) string {
	if function := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); function != nil {
		return function.Name()
	}
	return ""
}
