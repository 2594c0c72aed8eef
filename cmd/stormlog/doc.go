// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// stormlog runs the storm-protected diagnostic log pipeline over
// newline-delimited JSON and inspects what it stored.
//
// Commands:
//
//	stormlog ingest [--config PATH] [--session ID]
//	    Read log entries from stdin, one JSON object per line, pass
//	    them through the ingestion gate (dedup, rate limit, circuit
//	    breaker) and deliver accepted batches to the SQLite store.
//	    Batches the store rejects are mirrored to the operational log
//	    and, when configured, to a compressed frame file. Panics and
//	    goroutine errors inside the process enter the pipeline as
//	    GLOBAL errors through the crash hook bridge. SIGINT and SIGTERM
//	    trigger a graceful shutdown with a final flush.
//
//	stormlog query [--module M] [--level L] [--since D] ...
//	    Print stored entries, newest first.
//
//	stormlog stats
//	    Print stored batch and entry counts and the stored time range.
//
//	stormlog mirror FILE
//	    Decode a mirror frame file back into entry groups.
//
// Configuration comes from --config, then STORMLOG_CONFIG, then the
// built-in defaults (see lib/config).
package main
