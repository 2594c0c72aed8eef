// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mirror is the secondary channel for batches the persistence
// sink could not accept. A mirrored batch is split into one [Group]
// per level, most severe first, and each group is handed to a mirror:
//
//   - [Console] writes groups through an slog.Logger, one summary
//     record per group followed by one record per entry.
//   - [File] appends groups to a local file as length-prefixed frames
//     holding compressed CBOR, so an outage leaves a replayable trail.
//     [ReadFile] and [Reader] decode them.
//   - [Multi] fans one batch out to several mirrors.
//
// Frame layout (big-endian):
//
//	[1 byte compression tag] [4 bytes raw length] [4 bytes stored length] [stored bytes]
//
// The raw bytes are the CBOR encoding of a Group. A frame whose header
// or payload cannot be decoded yields [ErrCorruptFrame].
package mirror
