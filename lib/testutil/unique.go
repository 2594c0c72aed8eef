// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strconv"
	"sync/atomic"
)

var sequence atomic.Uint64

// UniqueID returns prefix joined to a process-wide sequence number,
// e.g. "op-7". Storm tests use it to give each ERROR entry a distinct
// fingerprint so deduplication does not collapse them.
func UniqueID(prefix string) string {
	return prefix + "-" + strconv.FormatUint(sequence.Add(1), 10)
}
