// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracer provides the typed convenience callers of the storm
// pipeline. Each wrapper takes a domain-specific description, builds
// the matching logentry.Data variant, and submits it with a level
// chosen from the outcome:
//
//   - [Tracer.ChatRecord] audits a stored conversation against the
//     expected message sequence. A divergence is an ERROR.
//   - [Tracer.Retrieval] audits a retrieval result ordering. A
//     divergence is a WARN.
//   - [Tracer.StateChange] records a shallow key-by-key diff between
//     two state snapshots at DEBUG.
//   - [Tracer.StartStream] returns a [Stream] reporting start, chunk,
//     end, and error phases of a streamed response.
//   - [Tracer.APICall] records an outbound request: 5xx and transport
//     errors are ERROR, 4xx WARN, everything else DEBUG.
//
// ERROR entries and mismatches additionally request an urgent flush
// so they reach the sink ahead of the next timer tick.
package tracer
