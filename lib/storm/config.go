// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the storm protection thresholds. Zero fields take the
// value from DefaultConfig when passed to New.
type Config struct {
	// DedupWindow is how long an ERROR fingerprint stays suppressed
	// after it was last let through.
	DedupWindow time.Duration `json:"dedup_window"`

	// MaxLogsPerMinute caps accepted entries per window.
	MaxLogsPerMinute int `json:"max_logs_per_minute"`

	// CircuitBreakerThreshold is the number of non-duplicate ERROR
	// entries within one window that opens the breaker.
	CircuitBreakerThreshold int `json:"circuit_breaker_threshold"`

	// CircuitBreakerCooldown is how long the breaker stays open.
	CircuitBreakerCooldown time.Duration `json:"circuit_breaker_cooldown"`

	// MaxQueueSize is the live buffer size that triggers a flush.
	MaxQueueSize int `json:"max_queue_size"`

	// FlushInterval is the period of the timer-driven flush.
	FlushInterval time.Duration `json:"flush_interval"`

	// WindowInterval is the period of the window manager.
	WindowInterval time.Duration `json:"window_interval"`

	// MaxPendingBatches bounds detached batches awaiting delivery.
	MaxPendingBatches int `json:"max_pending_batches"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DedupWindow:             5 * time.Second,
		MaxLogsPerMinute:        500,
		CircuitBreakerThreshold: 100,
		CircuitBreakerCooldown:  60 * time.Second,
		MaxQueueSize:            100,
		FlushInterval:           5 * time.Second,
		WindowInterval:          60 * time.Second,
		MaxPendingBatches:       16,
	}
}

// WithDefaults returns c with every zero field replaced by its default.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()
	if c.DedupWindow == 0 {
		c.DedupWindow = defaults.DedupWindow
	}
	if c.MaxLogsPerMinute == 0 {
		c.MaxLogsPerMinute = defaults.MaxLogsPerMinute
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = defaults.CircuitBreakerThreshold
	}
	if c.CircuitBreakerCooldown == 0 {
		c.CircuitBreakerCooldown = defaults.CircuitBreakerCooldown
	}
	if c.MaxQueueSize == 0 {
		c.MaxQueueSize = defaults.MaxQueueSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaults.FlushInterval
	}
	if c.WindowInterval == 0 {
		c.WindowInterval = defaults.WindowInterval
	}
	if c.MaxPendingBatches == 0 {
		c.MaxPendingBatches = defaults.MaxPendingBatches
	}
	return c
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	if c.DedupWindow < 0 {
		errs = append(errs, fmt.Errorf("dedup window must not be negative, got %v", c.DedupWindow))
	}
	if c.MaxLogsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("max logs per minute must be positive, got %d", c.MaxLogsPerMinute))
	}
	if c.CircuitBreakerThreshold <= 0 {
		errs = append(errs, fmt.Errorf("circuit breaker threshold must be positive, got %d", c.CircuitBreakerThreshold))
	}
	if c.CircuitBreakerCooldown < 0 {
		errs = append(errs, fmt.Errorf("circuit breaker cooldown must not be negative, got %v", c.CircuitBreakerCooldown))
	}
	if c.MaxQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("max queue size must be positive, got %d", c.MaxQueueSize))
	}
	if c.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("flush interval must be positive, got %v", c.FlushInterval))
	}
	if c.WindowInterval <= 0 {
		errs = append(errs, fmt.Errorf("window interval must be positive, got %v", c.WindowInterval))
	}
	if c.MaxPendingBatches <= 0 {
		errs = append(errs, fmt.Errorf("max pending batches must be positive, got %d", c.MaxPendingBatches))
	}
	if len(errs) > 0 {
		return fmt.Errorf("storm: invalid config: %w", errors.Join(errs...))
	}
	return nil
}
