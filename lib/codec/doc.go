// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// pipeline's on-disk formats.
//
// JSON is used where a human or an external tool reads the data: the
// SQLite store's payload column, CLI output, configuration files. CBOR
// is used for the local mirror file, where compact deterministic bytes
// matter and nothing but stormlog reads them back.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same batch always produces identical bytes, which keeps compressed
// mirror frames stable across runs.
//
// # Struct Tag Rules
//
// Types that are serialized both as JSON and as CBOR (logentry.Entry
// and its payload variants) carry only `json` tags; fxamacker/cbor
// falls back to them when `cbor` tags are absent. Types that only ever
// live inside a mirror frame carry `cbor` tags. Never put both tags on
// one field.
package codec
