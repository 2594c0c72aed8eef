// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import "time"

// dedupStore tracks when each ERROR fingerprint was last let through
// and how many duplicates were suppressed since. Guarded by
// Pipeline.mu.
type dedupStore struct {
	lastLogged map[string]time.Time
	suppressed map[string]int
}

func newDedupStore() *dedupStore {
	return &dedupStore{
		lastLogged: make(map[string]time.Time),
		suppressed: make(map[string]int),
	}
}

// observe records one ERROR occurrence of fingerprint at now. A
// fingerprint let through less than window ago is a duplicate: its
// suppression counter grows and observe reports duplicate. Otherwise
// the record is refreshed and the pending suppression count, which
// the caller attaches to the entry, is returned and cleared.
func (d *dedupStore) observe(fingerprint string, now time.Time, window time.Duration) (suppressedBefore int, duplicate bool) {
	if last, ok := d.lastLogged[fingerprint]; ok && now.Sub(last) < window {
		d.suppressed[fingerprint]++
		return 0, true
	}
	d.lastLogged[fingerprint] = now
	suppressedBefore = d.suppressed[fingerprint]
	delete(d.suppressed, fingerprint)
	return suppressedBefore, false
}

// drainSuppressed returns the summed suppression counters and the
// number of fingerprints contributing, then clears them.
func (d *dedupStore) drainSuppressed() (total, fingerprints int) {
	for _, count := range d.suppressed {
		total += count
	}
	fingerprints = len(d.suppressed)
	clear(d.suppressed)
	return total, fingerprints
}

// pendingSuppressed returns the summed suppression counters without
// clearing them.
func (d *dedupStore) pendingSuppressed() int {
	total := 0
	for _, count := range d.suppressed {
		total += count
	}
	return total
}

// sweep removes records last let through more than maxAge before now
// and returns how many were removed.
func (d *dedupStore) sweep(now time.Time, maxAge time.Duration) int {
	removed := 0
	for fingerprint, last := range d.lastLogged {
		if now.Sub(last) > maxAge {
			delete(d.lastLogged, fingerprint)
			removed++
		}
	}
	return removed
}

func (d *dedupStore) size() int {
	return len(d.lastLogged)
}
