// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the stormlog
// binary.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//
// [Version] is set manually for releases. Unset variables default to
// "unknown" / "0.1.0-dev", which is what development builds and test
// runs report.
//
// [Info] formats the one-line string printed by --version; [Full]
// adds the Go toolchain and platform for the version subcommand.
package version
