// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.DedupWindow != 5*time.Second || config.MaxLogsPerMinute != 500 ||
		config.CircuitBreakerThreshold != 100 || config.CircuitBreakerCooldown != 60*time.Second {
		t.Errorf("DefaultConfig() = %+v", config)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	config := Config{MaxLogsPerMinute: 5}.WithDefaults()
	if config.MaxLogsPerMinute != 5 {
		t.Errorf("MaxLogsPerMinute = %d, want explicit 5 kept", config.MaxLogsPerMinute)
	}
	if config.DedupWindow != DefaultConfig().DedupWindow || config.MaxQueueSize != DefaultConfig().MaxQueueSize {
		t.Errorf("zero fields not defaulted: %+v", config)
	}
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	config.MaxLogsPerMinute = -1
	config.FlushInterval = -time.Second

	err := config.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"max logs per minute", "flush interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestNewRejectsMissingWriter(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New without writer should fail")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Options{Writer: newFakeWriter(), Config: Config{MaxQueueSize: -1}}); err == nil {
		t.Error("New with negative queue size should fail")
	}
}
