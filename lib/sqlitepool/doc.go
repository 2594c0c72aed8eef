// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool behind the
// stormlog log store.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies the same
// pragmas to every connection. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back, or use [Pool.WithConn] to do
// both. Connections are NOT safe for concurrent use.
//
// # Pragmas
//
//   - journal_mode=WAL: the delivery worker writes while the CLI
//     queries; readers never block the writer.
//   - synchronous=NORMAL: committed batches survive a process crash.
//     Not durable across power loss; the mirror file covers batches
//     that never committed.
//   - busy_timeout: wait for the write lock instead of failing with
//     SQLITE_BUSY. Defaults to 5 seconds.
//   - cache_size=-4096: 4 MB page cache per connection.
//   - temp_store=MEMORY: sorts for newest-first queries stay in memory.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/stormlog/logs.db",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.WithConn(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "SELECT 1", nil)
//	})
package sqlitepool
