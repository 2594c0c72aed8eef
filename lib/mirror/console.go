// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/stormlog/lib/logentry"
)

// Console mirrors batches through an slog.Logger. Each level group
// produces one summary record at that level, followed by one record
// per entry. The record level carries the group level. Console never
// fails.
type Console struct {
	logger *slog.Logger
}

// NewConsole returns a console mirror. A nil logger discards.
func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Console{logger: logger}
}

// MirrorBatch writes batch to the logger grouped by level.
func (c *Console) MirrorBatch(ctx context.Context, batch []logentry.Entry, cause error) error {
	for _, group := range GroupByLevel(batch, cause) {
		level := group.Level.SlogLevel()
		c.logger.Log(ctx, level, "mirrored log group",
			"count", len(group.Entries),
			"cause", group.Cause,
		)
		for _, entry := range group.Entries {
			attrs := []any{
				"module", entry.Module,
				"operation", entry.Operation,
				"timestamp", entry.Time(),
				"kind", string(entry.Data.Kind()),
			}
			if entry.SuppressedCount > 0 {
				attrs = append(attrs, "suppressed_count", entry.SuppressedCount)
			}
			if message, location := entry.FaultText(); message != "" {
				attrs = append(attrs, "message", message)
				if location != "" {
					attrs = append(attrs, "location", location)
				}
			}
			c.logger.Log(ctx, level, "mirrored entry", attrs...)
		}
	}
	return nil
}
