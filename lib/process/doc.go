// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. It centralizes
// the one legitimate raw stderr write that exists outside the
// structured logger: reporting the error that ends main() when the
// logger may not be initialized, and choosing the exit code.
package process
