// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logentry defines the record that flows through the storm
// protection pipeline.
//
// An [Entry] carries a timestamp, a [Level], the emitting module and
// operation, an optional correlation [Context], an optional stack
// trace, and a [Data] payload. Data is a closed union: exactly one of
// its variant pointers is set (or none, for bare entries). There is a
// variant for each category wrapper in lib/tracer, one for uncaught
// faults captured by the bridge, one for the pipeline's own synthetic
// notices, and [Opaque] for ad hoc callers that need to attach
// arbitrary JSON. Opaque values are validated and capped at
// [MaxOpaqueBytes] so a runaway payload cannot balloon a batch.
//
// Entries are values. Once accepted by the gate the only change an
// entry ever sees is the suppression annotation applied by
// [Entry.WithSuppressed], which returns a copy.
//
// All types carry only `json` struct tags; lib/codec encodes the same
// field names in CBOR.
package logentry
