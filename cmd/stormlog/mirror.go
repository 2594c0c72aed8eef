// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/stormlog/lib/mirror"
)

func runMirror(args []string, stdio streams) error {
	var outputJSON bool
	flagSet := pflag.NewFlagSet("stormlog mirror", pflag.ContinueOnError)
	flagSet.SetOutput(stdio.stderr)
	flagSet.BoolVar(&outputJSON, "json", false, "print one JSON group per line")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return usagef("mirror: expected exactly one FILE argument, got %d", flagSet.NArg())
	}
	path := flagSet.Arg(0)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	defer file.Close()

	reader := mirror.NewReader(file)
	encoder := json.NewEncoder(stdio.stdout)
	for groups := 0; ; groups++ {
		group, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("mirror: %s: after %d groups: %w", path, groups, err)
		}

		if outputJSON {
			if err := encoder.Encode(group); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(stdio.stdout, "== %s x%d", group.Level, len(group.Entries))
		if group.MirroredAt != 0 {
			fmt.Fprintf(stdio.stdout, " at %s", formatTimestamp(group.MirroredAt))
		}
		if group.Cause != "" {
			fmt.Fprintf(stdio.stdout, ": %s", group.Cause)
		}
		fmt.Fprintln(stdio.stdout)
		for _, entry := range group.Entries {
			printEntry(stdio.stdout, entry)
		}
	}
}
