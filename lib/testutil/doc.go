// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for stormlog packages.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) so that individual tests do not
// need direct time.After calls. It is the only place in the test suite
// where a real wall-clock timeout is used. Everything else runs on
// clock.Fake. [RequireEmpty] is its non-blocking counterpart for
// asserting that nothing more was signaled.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it when entries need distinct fingerprints or
// sessions need distinct IDs.
//
// [TempPath] returns a path inside t.TempDir for databases and mirror
// files.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no stormlog-internal dependencies.
package testutil
