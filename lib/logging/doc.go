// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the operational [log/slog] logger used by the
// stormlog binary and injected into the pipeline, store, mirror and
// crash hooks.
//
// Operational messages never travel through the storm pipeline itself:
// a delivery failure logged back into the pipeline it describes would
// feed the storm it reports.
package logging
