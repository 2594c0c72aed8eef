// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strings"
	"testing"
)

func TestUniqueIDDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := UniqueID("op")
		if !strings.HasPrefix(id, "op-") {
			t.Fatalf("UniqueID(op) = %q, want op- prefix", id)
		}
		if seen[id] {
			t.Fatalf("UniqueID returned %q twice", id)
		}
		seen[id] = true
	}
}
