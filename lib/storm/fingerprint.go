// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/stormlog/lib/logentry"
)

const (
	fingerprintMessageLimit  = 100
	fingerprintLocationLimit = 200
)

// Fingerprint derives the dedup key of an entry from its module,
// operation, and truncated fault message and location. Two entries
// with different payloads can share a fingerprint when their truncated
// text matches; that collision only makes dedup more aggressive.
func Fingerprint(entry logentry.Entry) string {
	message, location := entry.FaultText()

	hasher := blake3.New()
	for _, part := range []string{
		entry.Module,
		entry.Operation,
		truncate(message, fingerprintMessageLimit),
		truncate(location, fingerprintLocationLimit),
	} {
		hasher.Write([]byte(part))
		hasher.Write([]byte{0})
	}
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// truncate cuts s to at most limit bytes.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
