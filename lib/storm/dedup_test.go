// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"testing"
	"time"
)

func TestDedupStoreObserve(t *testing.T) {
	store := newDedupStore()
	window := 5 * time.Second

	if prior, duplicate := store.observe("fp", epoch, window); duplicate || prior != 0 {
		t.Fatalf("first observe = %d, %v; want 0, false", prior, duplicate)
	}
	for i := 1; i <= 3; i++ {
		if _, duplicate := store.observe("fp", epoch.Add(time.Duration(i)*time.Second), window); !duplicate {
			t.Fatalf("observe at %ds should be a duplicate", i)
		}
	}
	if got := store.pendingSuppressed(); got != 3 {
		t.Errorf("pendingSuppressed = %d, want 3", got)
	}

	// Exactly one window after the last let-through is no longer a
	// duplicate.
	prior, duplicate := store.observe("fp", epoch.Add(window), window)
	if duplicate || prior != 3 {
		t.Errorf("observe after window = %d, %v; want 3, false", prior, duplicate)
	}
	if got := store.pendingSuppressed(); got != 0 {
		t.Errorf("pendingSuppressed after let-through = %d, want 0", got)
	}
}

func TestDedupStoreSweep(t *testing.T) {
	store := newDedupStore()
	store.observe("old", epoch, time.Second)
	store.observe("edge", epoch.Add(time.Second), time.Second)

	removed := store.sweep(epoch.Add(3*time.Second), 2*time.Second)
	if removed != 1 || store.size() != 1 {
		t.Errorf("sweep removed %d, size %d; want 1, 1", removed, store.size())
	}
}
