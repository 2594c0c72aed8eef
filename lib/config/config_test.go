// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/stormlog/lib/storm"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if !strings.HasSuffix(cfg.Root, filepath.Join(".cache", "stormlog")) {
		t.Errorf("expected root under .cache/stormlog, got %s", cfg.Root)
	}
	if cfg.Store.Path != filepath.Join(cfg.Root, "logs.db") {
		t.Errorf("expected store path under root, got %s", cfg.Store.Path)
	}
	if cfg.Mirror.Path != filepath.Join(cfg.Root, "mirror.frames") {
		t.Errorf("expected mirror path under root, got %s", cfg.Mirror.Path)
	}
	if cfg.Store.Retention != 168*time.Hour {
		t.Errorf("expected retention=168h, got %v", cfg.Store.Retention)
	}
	if cfg.Storm.PipelineConfig() != storm.DefaultConfig() {
		t.Errorf("expected pipeline defaults, got %+v", cfg.Storm.PipelineConfig())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when STORMLOG_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "STORMLOG_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, "stormlog.yaml", `
root: /test/root
storm:
  dedup_window: 10s
  max_logs_per_minute: 250
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Root != "/test/root" {
		t.Errorf("expected root=/test/root, got %s", cfg.Root)
	}
	if cfg.Store.Path != "/test/root/logs.db" {
		t.Errorf("expected store path to follow root, got %s", cfg.Store.Path)
	}

	pipeline := cfg.Storm.PipelineConfig()
	if pipeline.DedupWindow != 10*time.Second {
		t.Errorf("expected dedup_window=10s, got %v", pipeline.DedupWindow)
	}
	if pipeline.MaxLogsPerMinute != 250 {
		t.Errorf("expected max_logs_per_minute=250, got %d", pipeline.MaxLogsPerMinute)
	}
	if pipeline.CircuitBreakerThreshold != storm.DefaultConfig().CircuitBreakerThreshold {
		t.Errorf("unset threshold should keep default, got %d", pipeline.CircuitBreakerThreshold)
	}
}

func TestLoadFile_AllSections(t *testing.T) {
	path := writeConfig(t, "stormlog.yaml", `
root: /srv/stormlog
storm:
  circuit_breaker_threshold: 20
  circuit_breaker_cooldown: 30s
  flush_interval: 2s
store:
  path: /var/lib/stormlog/entries.db
  retention: 24h
  retention_interval: 10m
  pool_size: 2
mirror:
  path: ${STORMLOG_ROOT}/failed.frames
  compression: lz4
bridge:
  exclusions:
    - EOF while reading
    - tls handshake timeout
logging:
  level: debug
  format: json
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	if cfg.Storm.CircuitBreakerThreshold != 20 || cfg.Storm.CircuitBreakerCooldown != 30*time.Second {
		t.Errorf("storm section = %+v", cfg.Storm)
	}
	if cfg.Store.Path != "/var/lib/stormlog/entries.db" || cfg.Store.Retention != 24*time.Hour ||
		cfg.Store.RetentionInterval != 10*time.Minute || cfg.Store.PoolSize != 2 {
		t.Errorf("store section = %+v", cfg.Store)
	}
	if cfg.Mirror.Path != "/srv/stormlog/failed.frames" || cfg.Mirror.Compression != "lz4" {
		t.Errorf("mirror section = %+v", cfg.Mirror)
	}
	if len(cfg.Bridge.Exclusions) != 2 || cfg.Bridge.Exclusions[1] != "tls handshake timeout" {
		t.Errorf("bridge section = %+v", cfg.Bridge)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging section = %+v", cfg.Logging)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "stormlog.jsonc", `{
  // Lab machine.
  "root": "/lab/stormlog",
  "storm": {
    "dedup_window": "1s", /* tight for load tests */
    "max_queue_size": 25,
  },
  "mirror": {"compression": "none"},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Root != "/lab/stormlog" {
		t.Errorf("expected root=/lab/stormlog, got %s", cfg.Root)
	}
	if cfg.Storm.DedupWindow != time.Second || cfg.Storm.MaxQueueSize != 25 {
		t.Errorf("storm section = %+v", cfg.Storm)
	}
	if cfg.Mirror.Compression != "none" {
		t.Errorf("expected compression=none, got %s", cfg.Mirror.Compression)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeConfig(t, "broken.yaml", "storm: [unterminated\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestResolve(t *testing.T) {
	flagPath := writeConfig(t, "flag.yaml", "root: /from/flag\n")
	envPath := writeConfig(t, "env.yaml", "root: /from/env\n")

	t.Setenv(EnvironmentVariable, envPath)
	cfg, err := Resolve(flagPath)
	if err != nil {
		t.Fatalf("Resolve(flag) failed: %v", err)
	}
	if cfg.Root != "/from/flag" {
		t.Errorf("flag should win, got root=%s", cfg.Root)
	}

	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve(env) failed: %v", err)
	}
	if cfg.Root != "/from/env" {
		t.Errorf("environment should be used without flag, got root=%s", cfg.Root)
	}

	t.Setenv(EnvironmentVariable, "")
	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve(default) failed: %v", err)
	}
	if cfg.Root != Default().Root {
		t.Errorf("expected default root, got %s", cfg.Root)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("STORMLOG_TEST_VAR", "from-env")

	tests := []struct {
		input string
		vars  map[string]string
		want  string
	}{
		{"${STORMLOG_ROOT}/logs.db", map[string]string{"STORMLOG_ROOT": "/root"}, "/root/logs.db"},
		{"${STORMLOG_TEST_VAR}/x", nil, "from-env/x"},
		{"${STORMLOG_UNSET_VAR:-/fallback}/x", nil, "/fallback/x"},
		{"${STORMLOG_UNSET_VAR}/x", nil, "/x"},
		{"/plain/path", nil, "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, test.vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"empty root", func(c *Config) { c.Root = "" }, "root is required"},
		{"negative rate", func(c *Config) { c.Storm.MaxLogsPerMinute = -1 }, "max logs per minute"},
		{"negative cooldown", func(c *Config) { c.Storm.CircuitBreakerCooldown = -time.Second }, "cooldown"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "store.path is required"},
		{"negative retention", func(c *Config) { c.Store.Retention = -time.Hour }, "store.retention"},
		{"retention without interval", func(c *Config) { c.Store.RetentionInterval = 0 }, "retention_interval"},
		{"negative pool", func(c *Config) { c.Store.PoolSize = -2 }, "pool_size"},
		{"compression", func(c *Config) { c.Mirror.Compression = "gzip" }, "mirror.compression"},
		{"blank exclusion", func(c *Config) { c.Bridge.Exclusions = []string{"eof", " "} }, "bridge.exclusions[1]"},
		{"level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), test.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Root = ""
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "root") || !strings.Contains(err.Error(), "logging.format") {
		t.Errorf("expected both errors, got %q", err.Error())
	}
}

func TestEnsurePaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "stormlog")
	cfg := Default()
	cfg.Root = root
	cfg.Store.Path = filepath.Join(root, "db", "logs.db")
	cfg.Mirror.Path = filepath.Join(root, "mirror", "failed.frames")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths() failed: %v", err)
	}
	for _, dir := range []string{root, filepath.Dir(cfg.Store.Path), filepath.Dir(cfg.Mirror.Path)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s: %v", dir, err)
		}
	}
}
