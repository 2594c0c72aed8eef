// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logentry

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is an entry's severity. Values follow the OpenTelemetry
// severity numbering (each level is the minimum of its range), so
// "level >= LevelWarn" selects WARN and ERROR.
type Level uint8

const (
	LevelTrace Level = 1
	LevelDebug Level = 5
	LevelInfo  Level = 9
	LevelWarn  Level = 13
	LevelError Level = 17
)

// Levels lists every valid level in ascending severity.
var Levels = []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError}

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", uint8(l))
	}
}

// Valid reports whether l is one of the five defined levels.
func (l Level) Valid() bool {
	switch l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// ParseLevel parses a level name, case-insensitively. "warning" is
// accepted as an alias for WARN.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", name)
	}
}

// SlogLevel maps l onto the nearest slog level. TRACE maps below
// slog.LevelDebug.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l >= LevelError:
		return slog.LevelError
	case l >= LevelWarn:
		return slog.LevelWarn
	case l >= LevelInfo:
		return slog.LevelInfo
	case l >= LevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelDebug - 4
	}
}

// MarshalText encodes the level as its name.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
