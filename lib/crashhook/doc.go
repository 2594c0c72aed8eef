// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package crashhook turns Go's process-wide failure modes into fault
// notifications for the storm pipeline's exception bridge.
//
// Go has no global uncaught-exception hook: a panic that escapes a
// goroutine kills the process, and an error returned by a goroutine
// nobody waits on is silently lost. [Hooks] closes both gaps for code
// that opts in:
//
//   - [Hooks.Recover], deferred at the top of a goroutine, converts an
//     escaping panic into an uncaught_error notification with the
//     panicking frame as location and the stack trace attached.
//   - [Hooks.Go] and [Hooks.GoErr] start goroutines with Recover
//     already deferred. GoErr additionally reports a non-nil returned
//     error as an unhandled_rejection.
//   - [Hooks.Report] publishes an error the caller cannot handle as an
//     unhandled_rejection.
//
// Hooks implements storm.HookProvider. Handlers run synchronously on
// the goroutine that failed.
package crashhook
