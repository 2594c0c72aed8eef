// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/stormlog/lib/logentry"
	"github.com/bureau-foundation/stormlog/lib/logstore"
)

func runQuery(ctx context.Context, args []string, stdio streams) error {
	var (
		configPath string
		filter     logstore.Filter
		levelName  string
		since      time.Duration
		outputJSON bool
	)
	flagSet := pflag.NewFlagSet("stormlog query", pflag.ContinueOnError)
	flagSet.SetOutput(stdio.stderr)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $STORMLOG_CONFIG, else built-in defaults)")
	flagSet.StringVar(&filter.Module, "module", "", "only entries from this module")
	flagSet.StringVar(&filter.Operation, "operation", "", "only entries for this operation")
	flagSet.StringVar(&levelName, "level", "", "minimum level (trace, debug, info, warn, error)")
	flagSet.StringVar(&filter.SessionID, "session", "", "only entries from this session")
	flagSet.StringVar(&filter.Fingerprint, "fingerprint", "", "only ERROR entries with this fingerprint")
	flagSet.StringVar(&filter.Search, "search", "", "substring of the fault message")
	flagSet.DurationVar(&since, "since", 0, "only entries newer than this age (e.g. 15m)")
	flagSet.IntVar(&filter.Limit, "limit", 100, "maximum entries to print")
	flagSet.BoolVar(&outputJSON, "json", false, "print one JSON record per line")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return usagef("query: unexpected argument: %s", flagSet.Arg(0))
	}

	if levelName != "" {
		level, err := logentry.ParseLevel(levelName)
		if err != nil {
			return usagef("query: --level: %v", err)
		}
		filter.MinLevel = level
	}
	if since < 0 {
		return usagef("query: --since must not be negative")
	}
	if since > 0 {
		filter.Start = time.Now().Add(-since).UnixNano()
	}

	store, err := openStore(configPath, stdio)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(ctx, filter)
	if err != nil {
		return err
	}

	if outputJSON {
		encoder := json.NewEncoder(stdio.stdout)
		for _, record := range records {
			if err := encoder.Encode(record); err != nil {
				return err
			}
		}
		return nil
	}
	for _, record := range records {
		printEntry(stdio.stdout, record.Entry)
	}
	return nil
}

func runStats(ctx context.Context, args []string, stdio streams) error {
	var configPath string
	flagSet := pflag.NewFlagSet("stormlog stats", pflag.ContinueOnError)
	flagSet.SetOutput(stdio.stderr)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $STORMLOG_CONFIG, else built-in defaults)")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return usagef("stats: unexpected argument: %s", flagSet.Arg(0))
	}

	store, err := openStore(configPath, stdio)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdio.stdout, "batches: %d\nentries: %d\n", stats.Batches, stats.Entries)
	if stats.Entries > 0 {
		fmt.Fprintf(stdio.stdout, "oldest:  %s\nnewest:  %s\n",
			formatTimestamp(stats.Oldest), formatTimestamp(stats.Newest))
	}
	return nil
}

// openStore opens the configured store with a single connection.
func openStore(configPath string, stdio streams) (*logstore.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return logstore.Open(logstore.Config{
		Path:     cfg.Store.Path,
		PoolSize: 1,
		Logger:   newLogger(cfg, stdio.stderr),
	})
}

// printEntry writes one human-readable line:
// time LEVEL module operation [message @ location] [(+N suppressed)].
func printEntry(w io.Writer, entry logentry.Entry) {
	fmt.Fprintf(w, "%s %-5s %s %s", formatTimestamp(entry.Timestamp), entry.Level, entry.Module, entry.Operation)
	if message, location := entry.FaultText(); message != "" {
		fmt.Fprintf(w, " %q", message)
		if location != "" {
			fmt.Fprintf(w, " @ %s", location)
		}
	}
	if entry.SuppressedCount > 0 {
		fmt.Fprintf(w, " (+%d suppressed)", entry.SuppressedCount)
	}
	fmt.Fprintln(w)
}

func formatTimestamp(unixNanos int64) string {
	return time.Unix(0, unixNanos).UTC().Format(time.RFC3339Nano)
}
