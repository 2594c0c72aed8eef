// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the stormlog
// binary.
//
// Configuration comes from a single file named by the --config flag
// or the STORMLOG_CONFIG environment variable. There is no automatic
// file search: [Resolve] uses the flag, then the variable, and only
// when neither is set falls back to [Default]. Environment variables
// never override individual values.
//
// Files are YAML. A file ending in .json or .jsonc is first normalized
// with tidwall/jsonc (comments and trailing commas stripped) and then
// decoded by the same YAML decoder, so both spellings share one schema.
// Durations are Go duration strings ("5s", "168h").
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${STORMLOG_ROOT} (the configured root), and ${VAR:-default}
// patterns are expanded.
//
// Key exports:
//
//   - [Config] -- sections Storm, Store, Mirror, Bridge, Logging
//   - [Default] -- a Config that needs no file
//   - [Load], [LoadFile] and [Resolve] -- the entry points
//   - [Config.Validate] -- reports every invalid field at once
package config
