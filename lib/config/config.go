// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/stormlog/lib/logging"
	"github.com/bureau-foundation/stormlog/lib/mirror"
	"github.com/bureau-foundation/stormlog/lib/storm"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "STORMLOG_CONFIG"

// Config is the master configuration for the stormlog binary.
type Config struct {
	// Root is the base directory for stormlog data. Available to other
	// path fields as ${STORMLOG_ROOT}.
	Root string `yaml:"root"`

	// Storm configures the protection thresholds and flush cadence.
	Storm StormConfig `yaml:"storm"`

	// Store configures the SQLite sink.
	Store StoreConfig `yaml:"store"`

	// Mirror configures the local mirror for failed deliveries.
	Mirror MirrorConfig `yaml:"mirror"`

	// Bridge configures the uncaught error bridge.
	Bridge BridgeConfig `yaml:"bridge"`

	// Logging configures the operational logger.
	Logging LoggingConfig `yaml:"logging"`
}

// StormConfig is the file form of storm.Config. Zero values take the
// pipeline defaults.
type StormConfig struct {
	DedupWindow             time.Duration `yaml:"dedup_window"`
	MaxLogsPerMinute        int           `yaml:"max_logs_per_minute"`
	CircuitBreakerThreshold int           `yaml:"circuit_breaker_threshold"`
	CircuitBreakerCooldown  time.Duration `yaml:"circuit_breaker_cooldown"`
	MaxQueueSize            int           `yaml:"max_queue_size"`
	FlushInterval           time.Duration `yaml:"flush_interval"`
	WindowInterval          time.Duration `yaml:"window_interval"`
	MaxPendingBatches       int           `yaml:"max_pending_batches"`
}

// PipelineConfig converts to the pipeline's form with defaults filled.
func (s StormConfig) PipelineConfig() storm.Config {
	return storm.Config{
		DedupWindow:             s.DedupWindow,
		MaxLogsPerMinute:        s.MaxLogsPerMinute,
		CircuitBreakerThreshold: s.CircuitBreakerThreshold,
		CircuitBreakerCooldown:  s.CircuitBreakerCooldown,
		MaxQueueSize:            s.MaxQueueSize,
		FlushInterval:           s.FlushInterval,
		WindowInterval:          s.WindowInterval,
		MaxPendingBatches:       s.MaxPendingBatches,
	}.WithDefaults()
}

// StoreConfig configures the SQLite sink.
type StoreConfig struct {
	// Path is the database file.
	// Default: ${STORMLOG_ROOT}/logs.db
	Path string `yaml:"path"`

	// Retention is how long delivered entries are kept. Zero keeps
	// everything.
	// Default: 168h
	Retention time.Duration `yaml:"retention"`

	// RetentionInterval is how often the retention pass runs while
	// ingesting.
	// Default: 1h
	RetentionInterval time.Duration `yaml:"retention_interval"`

	// PoolSize is the number of SQLite connections. Zero uses the
	// pool default.
	PoolSize int `yaml:"pool_size"`
}

// MirrorConfig configures the local mirror.
type MirrorConfig struct {
	// Path is the frame file failed batches are appended to. Empty
	// mirrors to the operational log only.
	// Default: ${STORMLOG_ROOT}/mirror.frames
	Path string `yaml:"path"`

	// Compression is none, lz4 or zstd.
	// Default: zstd
	Compression string `yaml:"compression"`
}

// BridgeConfig configures the uncaught error bridge.
type BridgeConfig struct {
	// Exclusions are extra substrings that mark a fault as transport
	// noise, on top of the built-in list.
	Exclusions []string `yaml:"exclusions"`
}

// LoggingConfig configures the operational logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is auto, text or json.
	// Default: auto
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := defaults()
	cfg.expandVariables()
	return cfg
}

// defaults returns the default configuration before variable expansion.
func defaults() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Root: filepath.Join(homeDir, ".cache", "stormlog"),
		Store: StoreConfig{
			Path:              "${STORMLOG_ROOT}/logs.db",
			Retention:         168 * time.Hour,
			RetentionInterval: time.Hour,
		},
		Mirror: MirrorConfig{
			Path:        "${STORMLOG_ROOT}/mirror.frames",
			Compression: "zstd",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logging.FormatAuto),
		},
	}
}

// Load loads configuration from the file named by STORMLOG_CONFIG.
// There is no fallback: if the variable is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your stormlog.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// Resolve loads flagPath if set, otherwise the file named by
// STORMLOG_CONFIG if set, otherwise returns Default.
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	return Default(), nil
}

// LoadFile loads configuration from a specific file path. Values
// absent from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	// Expansion runs after decoding so a file that only sets root
	// moves the default store and mirror paths too.
	cfg := defaults()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile decodes one file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Root = expandVars(c.Root, vars)
	vars["STORMLOG_ROOT"] = c.Root

	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Mirror.Path = expandVars(c.Mirror.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided
// vars take precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Root == "" {
		errs = append(errs, errors.New("root is required"))
	}

	if err := c.Storm.PipelineConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Store.Retention < 0 {
		errs = append(errs, fmt.Errorf("store.retention must not be negative, got %v", c.Store.Retention))
	}
	if c.Store.Retention > 0 && c.Store.RetentionInterval <= 0 {
		errs = append(errs, fmt.Errorf("store.retention_interval must be positive when retention is set, got %v", c.Store.RetentionInterval))
	}
	if c.Store.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("store.pool_size must not be negative, got %d", c.Store.PoolSize))
	}

	if _, err := mirror.ParseCompressionTag(c.Mirror.Compression); err != nil {
		errs = append(errs, fmt.Errorf("mirror.compression: %w", err))
	}

	for i, exclusion := range c.Bridge.Exclusions {
		if strings.TrimSpace(exclusion) == "" {
			errs = append(errs, fmt.Errorf("bridge.exclusions[%d] is empty", i))
		}
	}

	if !logging.KnownLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level))
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("logging.format: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the root directory and the parent directories of
// the store and mirror files.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Root}
	if c.Store.Path != "" {
		paths = append(paths, filepath.Dir(c.Store.Path))
	}
	if c.Mirror.Path != "" {
		paths = append(paths, filepath.Dir(c.Mirror.Path))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
