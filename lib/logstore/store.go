// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/codec"
	"github.com/bureau-foundation/stormlog/lib/logentry"
	"github.com/bureau-foundation/stormlog/lib/sqlitepool"
	"github.com/bureau-foundation/stormlog/lib/storm"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	batch_id    TEXT PRIMARY KEY,
	written_at  INTEGER NOT NULL,
	entry_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	id               INTEGER PRIMARY KEY,
	batch_id         TEXT NOT NULL,
	position         INTEGER NOT NULL,
	timestamp        INTEGER NOT NULL,
	level            INTEGER NOT NULL,
	module           TEXT NOT NULL,
	operation        TEXT NOT NULL,
	kind             TEXT NOT NULL,
	session_id       TEXT,
	fingerprint      TEXT,
	message          TEXT,
	suppressed_count INTEGER NOT NULL DEFAULT 0,
	record           BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS entries_timestamp ON entries (timestamp);
CREATE INDEX IF NOT EXISTS entries_module ON entries (module, timestamp);
CREATE INDEX IF NOT EXISTS entries_fingerprint ON entries (fingerprint) WHERE fingerprint IS NOT NULL;
`

// Store persists delivered batches in SQLite. Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

var _ storm.BatchWriter = (*Store)(nil)

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize is the number of connections. Defaults to 4.
	PoolSize int

	// Clock stamps batch write times and drives retention. Defaults to
	// the real clock.
	Clock clock.Clock

	// Logger receives operational messages. Nil discards.
	Logger *slog.Logger
}

// Open opens or creates the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("logstore: %w", err)
	}
	return &Store{pool: pool, clock: clk, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// WriteBatch inserts batch in one IMMEDIATE transaction under a new
// batch ID. An empty batch is a no-op.
func (s *Store) WriteBatch(ctx context.Context, batch []logentry.Entry) (err error) {
	if len(batch) == 0 {
		return nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("logstore: write batch: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("logstore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	batchID := uuid.NewString()
	if err := sqlitex.Execute(conn,
		"INSERT INTO batches (batch_id, written_at, entry_count) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{batchID, s.clock.Now().UnixNano(), len(batch)}},
	); err != nil {
		return fmt.Errorf("logstore: insert batch %s: %w", batchID, err)
	}

	for position := range batch {
		if err := insertEntry(conn, batchID, position, &batch[position]); err != nil {
			return err
		}
	}

	s.logger.Debug("batch stored", "batch_id", batchID, "entries", len(batch))
	return nil
}

func insertEntry(conn *sqlite.Conn, batchID string, position int, entry *logentry.Entry) error {
	record, err := codec.Marshal(entry)
	if err != nil {
		return fmt.Errorf("logstore: encode entry %d of batch %s: %w", position, batchID, err)
	}

	var sessionID, fingerprint, message any
	if entry.Context != nil && entry.Context.SessionID != "" {
		sessionID = entry.Context.SessionID
	}
	if entry.Level == logentry.LevelError {
		fingerprint = storm.Fingerprint(*entry)
	}
	if text, _ := entry.FaultText(); text != "" {
		message = text
	}

	err = sqlitex.Execute(conn, `INSERT INTO entries
		(batch_id, position, timestamp, level, module, operation, kind,
		 session_id, fingerprint, message, suppressed_count, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			batchID,
			position,
			entry.Timestamp,
			int(entry.Level),
			entry.Module,
			entry.Operation,
			string(entry.Data.Kind()),
			sessionID,
			fingerprint,
			message,
			entry.SuppressedCount,
			record,
		}},
	)
	if err != nil {
		return fmt.Errorf("logstore: insert entry %d of batch %s: %w", position, batchID, err)
	}
	return nil
}

// Filter selects stored entries. Zero fields do not filter.
type Filter struct {
	Module      string         // Exact match on module.
	Operation   string         // Exact match on operation.
	MinLevel    logentry.Level // Minimum level.
	SessionID   string         // Exact match on context session ID.
	Fingerprint string         // Exact match on ERROR fingerprint.
	Search      string         // Substring match on fault message.
	Start       int64          // Earliest timestamp (Unix nanos).
	End         int64          // Latest timestamp (Unix nanos).
	Limit       int            // Maximum entries to return (default 100).
}

// Record is one stored entry with its batch.
type Record struct {
	BatchID  string         `json:"batch_id"`
	Position int            `json:"position"`
	Entry    logentry.Entry `json:"entry"`
}

// Query returns entries matching filter, newest first.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("logstore: query: %w", err)
	}
	defer s.pool.Put(conn)

	var conditions []string
	var args []any
	if filter.Module != "" {
		conditions = append(conditions, "module = ?")
		args = append(args, filter.Module)
	}
	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.MinLevel != 0 {
		conditions = append(conditions, "level >= ?")
		args = append(args, int(filter.MinLevel))
	}
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Fingerprint != "" {
		conditions = append(conditions, "fingerprint = ?")
		args = append(args, filter.Fingerprint)
	}
	if filter.Search != "" {
		conditions = append(conditions, "message LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Start > 0 {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Start)
	}
	if filter.End > 0 {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.End)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := "SELECT batch_id, position, record FROM entries"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var records []Record
	err = sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			record := Record{
				BatchID:  stmt.ColumnText(0),
				Position: stmt.ColumnInt(1),
			}
			raw := make([]byte, stmt.ColumnLen(2))
			stmt.ColumnBytes(2, raw)
			if err := codec.Unmarshal(raw, &record.Entry); err != nil {
				return fmt.Errorf("decode entry %d of batch %s: %w", record.Position, record.BatchID, err)
			}
			records = append(records, record)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("logstore: query entries: %w", err)
	}
	return records, nil
}

// Stats summarizes stored data.
type Stats struct {
	Batches int64 `json:"batches"`
	Entries int64 `json:"entries"`

	// Oldest and Newest are entry timestamps in Unix nanos, zero when
	// the store is empty.
	Oldest int64 `json:"oldest"`
	Newest int64 `json:"newest"`
}

// Stats returns row counts and the stored time range.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, "SELECT COUNT(*) FROM batches", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.Batches = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
			return err
		}
		return sqlitex.Execute(conn,
			"SELECT COUNT(*), COALESCE(MIN(timestamp), 0), COALESCE(MAX(timestamp), 0) FROM entries",
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					stats.Entries = stmt.ColumnInt64(0)
					stats.Oldest = stmt.ColumnInt64(1)
					stats.Newest = stmt.ColumnInt64(2)
					return nil
				},
			})
	})
	if err != nil {
		return Stats{}, fmt.Errorf("logstore: stats: %w", err)
	}
	return stats, nil
}

// RunRetention deletes entries whose timestamp is older than maxAge
// and batch rows left with no entries. Returns the number of entries
// deleted.
func (s *Store) RunRetention(ctx context.Context, maxAge time.Duration) (deleted int64, err error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("logstore: retention period must be positive, got %v", maxAge)
	}
	cutoff := s.clock.Now().Add(-maxAge).UnixNano()

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("logstore: retention: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("logstore: retention: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	if err := sqlitex.Execute(conn, "DELETE FROM entries WHERE timestamp < ?",
		&sqlitex.ExecOptions{Args: []any{cutoff}}); err != nil {
		return 0, fmt.Errorf("logstore: retention: delete entries: %w", err)
	}
	deleted = int64(conn.Changes())

	if err := sqlitex.Execute(conn,
		"DELETE FROM batches WHERE batch_id NOT IN (SELECT DISTINCT batch_id FROM entries)", nil); err != nil {
		return 0, fmt.Errorf("logstore: retention: delete batches: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("retention deleted entries", "deleted", deleted, "cutoff", time.Unix(0, cutoff).UTC())
	}
	return deleted, nil
}
