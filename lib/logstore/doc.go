// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logstore is the SQLite persistence sink for the storm
// pipeline. [Store.WriteBatch] satisfies storm.BatchWriter.
//
// Write path: each batch is written in a single IMMEDIATE transaction
// and stamped with a random batch ID, so a batch is either entirely
// present or entirely absent. Every entry keeps its position within
// the batch, which together with the batch write time reproduces
// delivery order.
//
// Each row carries the columns queries filter on (timestamp, level,
// module, operation, session, fingerprint, fault message) plus the
// full entry as deterministic CBOR, so nothing in the payload is lost
// to the relational projection.
//
// Read path: [Store.Query] returns entries newest first. [Store.Stats]
// summarizes the table. [Store.RunRetention] deletes entries older
// than a cutoff and the batch rows they leave empty.
package logstore
