// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logentry

import (
	"fmt"
	"strings"
	"time"
)

// Context carries optional correlation identifiers. All fields are
// optional; a nil *Context on an Entry means none were supplied.
type Context struct {
	SessionID  string `json:"session_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	MistakeID  string `json:"mistake_id,omitempty"`
	StreamID   string `json:"stream_id,omitempty"`
	BusinessID string `json:"business_id,omitempty"`
}

// Entry is one diagnostic record.
type Entry struct {
	// Timestamp is Unix nanoseconds. The gate stamps entries that
	// arrive with a zero timestamp.
	Timestamp int64 `json:"timestamp"`

	Level     Level  `json:"level"`
	Module    string `json:"module"`
	Operation string `json:"operation"`
	Data      Data   `json:"data"`

	Context    *Context `json:"context,omitempty"`
	StackTrace string   `json:"stack_trace,omitempty"`

	// SuppressedCount and Note are set only on an ERROR entry whose
	// fingerprint was suppressed one or more times since it was last
	// let through.
	SuppressedCount int    `json:"_suppressedCount,omitempty"`
	Note            string `json:"_note,omitempty"`
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	return time.Unix(0, e.Timestamp)
}

// WithSuppressed returns a copy of e annotated with the number of
// duplicates suppressed since the fingerprint was last delivered.
// A non-positive count returns e unchanged.
func (e Entry) WithSuppressed(count int) Entry {
	if count <= 0 {
		return e
	}
	e.SuppressedCount = count
	e.Note = fmt.Sprintf("%d similar errors suppressed since last logged", count)
	return e
}

// FaultText returns the message and location used to fingerprint
// the entry. When the payload has no location, the first non-empty
// line of StackTrace stands in.
func (e Entry) FaultText() (message, location string) {
	message, location = e.Data.FaultText()
	if location == "" && e.StackTrace != "" {
		location = firstLine(e.StackTrace)
	}
	return message, location
}

// Validate checks the fields a caller controls.
func (e Entry) Validate() error {
	if !e.Level.Valid() {
		return fmt.Errorf("logentry: invalid level %d", uint8(e.Level))
	}
	if e.Module == "" {
		return fmt.Errorf("logentry: module is required")
	}
	if e.Operation == "" {
		return fmt.Errorf("logentry: operation is required")
	}
	return e.Data.Validate()
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
