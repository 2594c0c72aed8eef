// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/config"
	"github.com/bureau-foundation/stormlog/lib/crashhook"
	"github.com/bureau-foundation/stormlog/lib/logentry"
	"github.com/bureau-foundation/stormlog/lib/logstore"
	"github.com/bureau-foundation/stormlog/lib/mirror"
	"github.com/bureau-foundation/stormlog/lib/storm"
)

// maxLineBytes bounds one input line. An entry's opaque payload is
// capped well below this.
const maxLineBytes = 1 << 20

func runIngest(ctx context.Context, args []string, stdio streams) error {
	var (
		configPath      string
		sessionID       string
		shutdownTimeout time.Duration
	)
	flagSet := pflag.NewFlagSet("stormlog ingest", pflag.ContinueOnError)
	flagSet.SetOutput(stdio.stderr)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $STORMLOG_CONFIG, else built-in defaults)")
	flagSet.StringVar(&sessionID, "session", "", "session ID stamped on entries that carry none (default: random UUID)")
	flagSet.DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "bound on the final flush after input ends or a signal arrives")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return usagef("ingest: unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := newLogger(cfg, stdio.stderr).With("session", sessionID)

	store, err := logstore.Open(logstore.Config{
		Path:     cfg.Store.Path,
		PoolSize: cfg.Store.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	localMirror, closeMirror, err := openMirror(cfg.Mirror, logger)
	if err != nil {
		return err
	}
	defer closeMirror()

	pipeline, err := storm.New(storm.Options{
		Config: cfg.Storm.PipelineConfig(),
		Writer: store,
		Mirror: localMirror,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	hooks := crashhook.New(logger)
	bridge := storm.NewBridge(pipeline, hooks, cfg.Bridge.Exclusions)
	if err := bridge.Install(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := pipeline.Start(ctx); err != nil {
		return err
	}
	logger.Info("ingest started",
		"store", cfg.Store.Path,
		"mirror", cfg.Mirror.Path,
		"config", pipeline.Config(),
	)

	retentionDone := make(chan struct{})
	if cfg.Store.Retention > 0 {
		hooks.Go(func() {
			defer close(retentionDone)
			runRetention(ctx, store, cfg.Store, clock.Real(), logger)
		})
	} else {
		close(retentionDone)
	}

	readDone := make(chan ingestSummary, 1)
	hooks.Go(func() {
		defer close(readDone)
		summary := readEntries(stdio.stdin, pipeline, sessionID, logger)
		if summary.err != nil {
			hooks.Report(fmt.Errorf("reading input: %w", summary.err))
		}
		readDone <- summary
	})

	var summary ingestSummary
	select {
	case summary = <-readDone:
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}
	cancel()
	<-retentionDone

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := bridge.Teardown(shutdownCtx); err != nil {
		logger.Warn("bridge teardown flush incomplete", "error", err)
	}
	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ingest: shutdown: %w", err)
	}

	status := pipeline.Status()
	logger.Info("ingest finished",
		"lines", summary.lines,
		"malformed", summary.malformed,
		"accepted", summary.accepted,
		"suppressed", summary.suppressed,
		"dropped", summary.dropped,
		"delivered", status.DeliveredEntries,
		"mirrored", status.MirroredEntries,
		"discarded", status.DiscardedEntries,
	)
	return nil
}

// openMirror builds the console mirror plus the frame file mirror when
// a path is configured. The returned close function is always safe to
// call.
func openMirror(cfg config.MirrorConfig, logger *slog.Logger) (mirror.Mirror, func(), error) {
	console := mirror.NewConsole(logger)
	if cfg.Path == "" {
		return console, func() {}, nil
	}

	compression, err := mirror.ParseCompressionTag(cfg.Compression)
	if err != nil {
		return nil, nil, err
	}
	file, err := mirror.OpenFile(cfg.Path, mirror.FileOptions{Compression: compression})
	if err != nil {
		return nil, nil, err
	}
	closeFile := func() {
		if err := file.Close(); err != nil {
			logger.Error("closing mirror file", "path", file.Path(), "error", err)
		}
	}
	return mirror.Multi(console, file), closeFile, nil
}

// ingestSummary counts what readEntries did with its input.
type ingestSummary struct {
	lines      int
	malformed  int
	accepted   int
	suppressed int
	dropped    int
	err        error
}

// entrySubmitter is the part of the pipeline readEntries drives.
type entrySubmitter interface {
	SubmitEntry(entry logentry.Entry) storm.Result
}

// readEntries submits one entry per non-blank input line. Lines that
// are not a valid entry are counted and skipped. Entries without a
// session ID get sessionID.
func readEntries(input io.Reader, gate entrySubmitter, sessionID string, logger *slog.Logger) ingestSummary {
	var summary ingestSummary
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	for scanner.Scan() {
		summary.lines++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry logentry.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			summary.malformed++
			logger.Warn("skipping malformed line", "line", summary.lines, "error", err)
			continue
		}
		if entry.Context == nil {
			entry.Context = &logentry.Context{}
		}
		if entry.Context.SessionID == "" {
			entry.Context.SessionID = sessionID
		}

		switch result := gate.SubmitEntry(entry); result.Outcome {
		case storm.Accepted:
			summary.accepted++
		case storm.Suppressed:
			summary.suppressed++
		default:
			summary.dropped++
			if result.Reason == storm.ReasonInvalid {
				summary.malformed++
			}
		}
	}
	summary.err = scanner.Err()
	return summary
}

// runRetention deletes expired entries once at start and then every
// RetentionInterval until ctx is cancelled.
func runRetention(ctx context.Context, store *logstore.Store, cfg config.StoreConfig, clk clock.Clock, logger *slog.Logger) {
	ticker := clk.NewTicker(cfg.RetentionInterval)
	defer ticker.Stop()

	for {
		if _, err := store.RunRetention(ctx, cfg.Retention); err != nil && ctx.Err() == nil {
			logger.Error("retention pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
