// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"strings"
	"testing"

	"github.com/bureau-foundation/stormlog/lib/logentry"
)

func TestFingerprintStable(t *testing.T) {
	first := Fingerprint(errorEntry("send", "refused"))
	second := Fingerprint(errorEntry("send", "refused"))
	if first != second {
		t.Errorf("fingerprints differ for identical entries: %s vs %s", first, second)
	}
	if len(first) != 32 {
		t.Errorf("fingerprint length = %d, want 32 hex characters", len(first))
	}
}

func TestFingerprintDistinguishes(t *testing.T) {
	base := errorEntry("send", "refused")
	variants := map[string]logentry.Entry{
		"module":    {Level: base.Level, Module: "search", Operation: base.Operation, Data: base.Data},
		"operation": errorEntry("fetch", "refused"),
		"message":   errorEntry("send", "timeout"),
	}
	baseFingerprint := Fingerprint(base)
	for name, variant := range variants {
		if Fingerprint(variant) == baseFingerprint {
			t.Errorf("changing %s did not change the fingerprint", name)
		}
	}
}

func TestFingerprintTruncatesMessage(t *testing.T) {
	prefix := strings.Repeat("x", fingerprintMessageLimit)
	first := errorEntry("send", prefix+" request 1")
	second := errorEntry("send", prefix+" request 2")
	if Fingerprint(first) != Fingerprint(second) {
		t.Error("messages differing only past the limit should collide")
	}
}

func TestFingerprintUsesStackWhenNoLocation(t *testing.T) {
	entry := func(stack string) logentry.Entry {
		return logentry.Entry{
			Level:      logentry.LevelError,
			Module:     "GLOBAL",
			Operation:  "uncaught_error",
			Data:       logentry.Data{Fault: &logentry.Fault{Message: "boom"}},
			StackTrace: stack,
		}
	}
	a := Fingerprint(entry("at a.go:1\nat main.go:9"))
	b := Fingerprint(entry("at a.go:1\nat other.go:3"))
	c := Fingerprint(entry("at b.go:2"))
	if a != b {
		t.Error("only the first stack line should contribute")
	}
	if a == c {
		t.Error("different first stack lines should differ")
	}
}
