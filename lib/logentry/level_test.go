// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logentry

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{" error ", LevelError},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.input)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.input, got, test.want)
		}
	}

	if _, err := ParseLevel("fatal"); err == nil {
		t.Error("ParseLevel(\"fatal\") succeeded, want error")
	}
}

func TestLevelOrdering(t *testing.T) {
	for i := 1; i < len(Levels); i++ {
		if Levels[i-1] >= Levels[i] {
			t.Fatalf("%v >= %v: levels must ascend in severity", Levels[i-1], Levels[i])
		}
	}
}

func TestLevelJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Level Level `json:"level"`
	}{LevelWarn})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"level":"WARN"}` {
		t.Fatalf("Marshal = %s", data)
	}

	var decoded struct {
		Level Level `json:"level"`
	}
	if err := json.Unmarshal([]byte(`{"level":"error"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Level != LevelError {
		t.Fatalf("decoded level = %v, want ERROR", decoded.Level)
	}

	if _, err := json.Marshal(Level(3)); err == nil {
		t.Error("marshaling an invalid level succeeded")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelTrace, slog.LevelDebug - 4},
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
	}
	for _, test := range tests {
		if got := test.level.SlogLevel(); got != test.want {
			t.Errorf("%v.SlogLevel() = %v, want %v", test.level, got, test.want)
		}
	}
}
