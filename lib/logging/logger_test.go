// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, test := range tests {
		if got := ParseLevel(test.input); got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestKnownLevel(t *testing.T) {
	for _, input := range []string{"", "debug", "INFO", "warning", "error"} {
		if !KnownLevel(input) {
			t.Errorf("KnownLevel(%q) = false, want true", input)
		}
	}
	if KnownLevel("verbose") {
		t.Error("KnownLevel(\"verbose\") = true, want false")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatAuto, false},
		{"auto", FormatAuto, false},
		{"TEXT", FormatText, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}
	for _, test := range tests {
		got, err := ParseFormat(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestNewLoggerToJSON(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLoggerTo(&buffer, slog.LevelInfo, FormatJSON)
	logger.Debug("hidden")
	logger.Info("delivered", "entries", 3)

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buffer.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "delivered" || record["entries"] != float64(3) {
		t.Errorf("record = %v", record)
	}
}

func TestNewLoggerToAutoWithoutTerminal(t *testing.T) {
	var buffer bytes.Buffer
	NewLoggerTo(&buffer, slog.LevelInfo, FormatAuto).Info("hello")
	if !strings.HasPrefix(buffer.String(), "{") {
		t.Errorf("auto format on a non-file writer = %q, want JSON", buffer.String())
	}
}

func TestNewLoggerToText(t *testing.T) {
	var buffer bytes.Buffer
	NewLoggerTo(&buffer, slog.LevelWarn, FormatText).Warn("slow", "batch", 7)
	if !strings.Contains(buffer.String(), "msg=slow") || !strings.Contains(buffer.String(), "batch=7") {
		t.Errorf("text output = %q", buffer.String())
	}
}
