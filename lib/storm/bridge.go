// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/bureau-foundation/stormlog/lib/logentry"
)

// GlobalModule is the module name of entries produced by the bridge.
const GlobalModule = "GLOBAL"

// DefaultExclusions are substrings of transport-level errors that are
// benign, frequent, and never actionable. Faults whose text contains
// one of them never reach the gate, so they cannot trip the breaker.
var DefaultExclusions = []string{
	"broken pipe",
	"connection reset by peer",
	"use of closed network connection",
	"context canceled",
	"http2: stream closed",
	"i/o timeout",
}

// Notification is one process-wide fault reported by a HookProvider.
type Notification struct {
	// Message is the error text.
	Message string

	// Location identifies where the fault surfaced (function, file
	// and line, or goroutine label). May be empty.
	Location string

	// Reason carries the rejection reason for unhandled rejections
	// when it differs from Message.
	Reason string

	// Stack is the captured stack trace, if any.
	Stack string
}

// HookProvider is the host's source of process-wide fault
// notifications. Subscribe registers handler for one kind and returns
// a function that removes it. Unsubscribing twice is harmless.
type HookProvider interface {
	Subscribe(kind logentry.FaultKind, handler func(Notification)) (unsubscribe func())
}

// Bridge feeds uncaught errors and unhandled rejections from a
// HookProvider into a Pipeline as GLOBAL ERROR entries.
type Bridge struct {
	pipeline   *Pipeline
	provider   HookProvider
	exclusions []string
	logger     *slog.Logger

	mu           sync.Mutex
	unsubscribes []func()
}

// NewBridge creates a bridge. extraExclusions are appended to
// DefaultExclusions. The bridge does nothing until Install.
func NewBridge(pipeline *Pipeline, provider HookProvider, extraExclusions []string) *Bridge {
	exclusions := make([]string, 0, len(DefaultExclusions)+len(extraExclusions))
	exclusions = append(exclusions, DefaultExclusions...)
	for _, exclusion := range extraExclusions {
		if exclusion != "" {
			exclusions = append(exclusions, exclusion)
		}
	}
	return &Bridge{
		pipeline:   pipeline,
		provider:   provider,
		exclusions: exclusions,
		logger:     pipeline.logger,
	}
}

// Install detaches any handlers this bridge previously attached, then
// subscribes one handler per fault kind. Installing twice leaves
// exactly one active handler pair. Installing a second bridge on the
// same pipeline detaches the first.
func (b *Bridge) Install() error {
	if err := b.pipeline.attachBridge(b); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked()
	for _, kind := range []logentry.FaultKind{logentry.FaultUncaughtError, logentry.FaultUnhandledRejection} {
		b.unsubscribes = append(b.unsubscribes, b.provider.Subscribe(kind, b.handler(kind)))
	}
	b.logger.Debug("exception bridge installed", "exclusions", len(b.exclusions))
	return nil
}

// Teardown detaches both handlers and performs a best-effort flush.
func (b *Bridge) Teardown(ctx context.Context) error {
	b.detach()
	b.pipeline.releaseBridge(b)
	return b.pipeline.Flush(ctx)
}

// Installed reports whether the bridge currently holds subscriptions.
func (b *Bridge) Installed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.unsubscribes) > 0
}

// Excluded reports whether text matches an exclusion substring.
func (b *Bridge) Excluded(text string) bool {
	for _, exclusion := range b.exclusions {
		if strings.Contains(text, exclusion) {
			return true
		}
	}
	return false
}

func (b *Bridge) detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked()
}

func (b *Bridge) detachLocked() {
	for _, unsubscribe := range b.unsubscribes {
		unsubscribe()
	}
	b.unsubscribes = nil
}

func (b *Bridge) handler(kind logentry.FaultKind) func(Notification) {
	return func(notification Notification) {
		if b.Excluded(notification.Message) || b.Excluded(notification.Reason) {
			return
		}
		result := b.pipeline.SubmitEntry(logentry.Entry{
			Level:     logentry.LevelError,
			Module:    GlobalModule,
			Operation: string(kind),
			Data: logentry.Data{Fault: &logentry.Fault{
				Kind:     kind,
				Message:  notification.Message,
				Location: notification.Location,
				Reason:   notification.Reason,
			}},
			StackTrace: notification.Stack,
		})
		if result.Outcome == Accepted {
			b.pipeline.RequestFlush()
		}
	}
}
