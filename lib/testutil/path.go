// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

// TempPath returns name joined to a fresh per-test temporary
// directory. The file itself is not created. The directory is removed
// when the test completes.
//
//	databasePath := testutil.TempPath(t, "logs.db")
func TempPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
