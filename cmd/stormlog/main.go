// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/stormlog/lib/config"
	"github.com/bureau-foundation/stormlog/lib/logging"
	"github.com/bureau-foundation/stormlog/lib/process"
	"github.com/bureau-foundation/stormlog/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	err := run(ctx, os.Args[1:], streams{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr})
	stop()
	if err != nil {
		process.Fatal(err)
	}
}

// streams are the process standard streams, injected so commands can
// be driven from tests.
type streams struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// usageError marks a command-line mistake. It exits with code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }
func (e usageError) ExitCode() int { return 2 }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func run(ctx context.Context, args []string, stdio streams) error {
	if len(args) == 0 {
		printUsage(stdio.stderr)
		return usagef("no command given")
	}

	switch args[0] {
	case "--version":
		fmt.Fprintln(stdio.stdout, version.Info())
		return nil
	case "version":
		fmt.Fprintln(stdio.stdout, version.Full())
		return nil
	case "-h", "--help", "help":
		printUsage(stdio.stdout)
		return nil
	case "ingest":
		return runIngest(ctx, args[1:], stdio)
	case "query":
		return runQuery(ctx, args[1:], stdio)
	case "stats":
		return runStats(ctx, args[1:], stdio)
	case "mirror":
		return runMirror(args[1:], stdio)
	default:
		return usagef("unknown command %q (run 'stormlog help')", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `stormlog: storm-protected diagnostic log pipeline.

Usage:
  stormlog ingest [flags]     read NDJSON entries from stdin into the store
  stormlog query [flags]      print stored entries, newest first
  stormlog stats [flags]      print stored counts and time range
  stormlog mirror [flags] FILE
                              decode a mirror frame file
  stormlog --version          print the version
  stormlog version            print version, Go toolchain, and platform

Run 'stormlog COMMAND --help' for command flags.
`)
}

// parseFlags parses args into flagSet. done is true when --help was
// requested and the command should return without doing anything.
func parseFlags(flagSet *pflag.FlagSet, args []string) (done bool, err error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, usageError{err: err}
	}
	return false, nil
}

// loadConfig resolves and validates the configuration.
func loadConfig(flagPath string) (*config.Config, error) {
	cfg, err := config.Resolve(flagPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the operational logger from the logging section.
// Validate has already rejected unknown formats.
func newLogger(cfg *config.Config, output io.Writer) *slog.Logger {
	format, _ := logging.ParseFormat(cfg.Logging.Format)
	return logging.NewLoggerTo(output, logging.ParseLevel(cfg.Logging.Level), format)
}
