// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"bytes"
	"slices"

	"github.com/bureau-foundation/stormlog/lib/logentry"
)

// maxDiffValueBytes caps each before/after value stored in a diff.
const maxDiffValueBytes = 2 << 10

// DivergenceIndex returns the first position at which expected and
// actual differ. When one is a prefix of the other the index is the
// shorter length. Identical sequences return -1.
func DivergenceIndex(expected, actual []string) int {
	shorter := min(len(expected), len(actual))
	for i := range shorter {
		if expected[i] != actual[i] {
			return i
		}
	}
	if len(expected) != len(actual) {
		return shorter
	}
	return -1
}

// ShallowDiff compares two snapshots key by key. Values are compared
// by their JSON encoding, so nested structures compare by content but
// are not descended into. Changes are sorted by key. A key present on
// one side only is a change with the other side empty.
func ShallowDiff(before, after map[string]any) (changes []logentry.FieldChange, unchanged int) {
	keys := make([]string, 0, len(before)+len(after))
	for key := range before {
		keys = append(keys, key)
	}
	for key := range after {
		if _, ok := before[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	for _, key := range keys {
		beforeValue, inBefore := before[key]
		afterValue, inAfter := after[key]

		var change logentry.FieldChange
		change.Key = key
		if inBefore {
			change.Before = logentry.TruncatedOpaque(beforeValue, maxDiffValueBytes)
		}
		if inAfter {
			change.After = logentry.TruncatedOpaque(afterValue, maxDiffValueBytes)
		}
		if inBefore && inAfter && bytes.Equal(change.Before, change.After) {
			unchanged++
			continue
		}
		changes = append(changes, change)
	}
	return changes, unchanged
}
