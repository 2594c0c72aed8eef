// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/bureau-foundation/stormlog/lib/version.GitCommit=...".
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Revision is GitCommit, suffixed with "-dirty" when the build tree
// had uncommitted changes.
func Revision() string {
	if GitDirty == "true" {
		return GitCommit + "-dirty"
	}
	return GitCommit
}

// Info is the line printed by stormlog --version.
func Info() string {
	return fmt.Sprintf("stormlog %s (%s, %s)", Version, Revision(), BuildTime)
}

// Full is printed by the version subcommand: Info followed by the
// toolchain and target platform, one per line.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
