package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

// ============================================================================
// Defaults Tests
// ============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Limits.Global.RequestsPerMinute != DefaultGlobalRequestsPerMinute {
		t.Errorf("Unexpected global rpm default: %d", cfg.Limits.Global.RequestsPerMinute)
	}
	if cfg.Limits.Caller.BurstLimit != DefaultCallerBurstLimit {
		t.Errorf("Unexpected caller burst default: %d", cfg.Limits.Caller.BurstLimit)
	}
	if cfg.Windows.Backend != "memory" {
		t.Errorf("Expected memory backend default, got %q", cfg.Windows.Backend)
	}
	if cfg.Adaptive.MinAdaptationInterval != 30*time.Second {
		t.Errorf("Unexpected adaptation interval default: %v", cfg.Adaptive.MinAdaptationInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging defaults: %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Default configuration should validate: %v", err)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Limits.Global.RequestsPerMinute = 42
	cfg.Windows.Backend = "redis"

	ApplyDefaults(cfg)

	if cfg.Limits.Global.RequestsPerMinute != 42 {
		t.Errorf("Explicit value overwritten: %d", cfg.Limits.Global.RequestsPerMinute)
	}
	if cfg.Windows.Backend != "redis" {
		t.Errorf("Explicit backend overwritten: %q", cfg.Windows.Backend)
	}
	if cfg.Limits.Global.CostPerMinute != DefaultGlobalCostPerMinute {
		t.Errorf("Unset field not defaulted: %d", cfg.Limits.Global.CostPerMinute)
	}
}

// ============================================================================
// Validation Tests
// ============================================================================

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero global rpm", func(c *Config) { c.Limits.Global.RequestsPerMinute = -1 }},
		{"negative caller cost", func(c *Config) { c.Limits.Caller.CostPerMinute = -1 }},
		{"min above baseline", func(c *Config) { c.Limits.Min.RequestsPerMinute = 500 }},
		{"max below baseline", func(c *Config) { c.Limits.Max.RequestsPerMinute = 1 }},
		{"bad success rate", func(c *Config) { c.Adaptive.SuccessRateThreshold = 1.5 }},
		{"bad adaptation factor", func(c *Config) { c.Adaptive.AdaptationFactor = 1.0 }},
		{"tiny sample window", func(c *Config) { c.Adaptive.SampleWindow = 1 }},
		{"zero pool size", func(c *Config) { c.Connections.MaxSize = -1 }},
		{"unknown backend", func(c *Config) { c.Windows.Backend = "etcd" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation failure")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validation errors should wrap ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// ============================================================================
// Loading Tests
// ============================================================================

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
limits:
  global:
    requests_per_minute: 200
    cost_per_minute: 80000
  caller:
    requests_per_minute: 20
adaptive:
  enabled: true
windows:
  backend: sqlite
  sqlite:
    path: /tmp/gate-test.db
connections:
  max_size: 25
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Limits.Global.RequestsPerMinute != 200 {
		t.Errorf("Expected global rpm 200, got %d", cfg.Limits.Global.RequestsPerMinute)
	}
	if !cfg.Adaptive.Enabled {
		t.Error("Expected adaptive enabled")
	}
	if cfg.Windows.Backend != "sqlite" || cfg.Windows.SQLite.Path != "/tmp/gate-test.db" {
		t.Errorf("Unexpected windows config: %+v", cfg.Windows)
	}
	if cfg.Connections.MaxSize != 25 {
		t.Errorf("Expected pool size 25, got %d", cfg.Connections.MaxSize)
	}
	// Unset fields pick up defaults.
	if cfg.Limits.Global.BurstLimit != DefaultGlobalBurstLimit {
		t.Errorf("Expected default burst limit, got %d", cfg.Limits.Global.BurstLimit)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "limits: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	path := writeConfigFile(t, `
windows:
  backend: etcd
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("Expected a validation error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

// ============================================================================
// Environment Override Tests
// ============================================================================

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
limits:
  global:
    requests_per_minute: 200
`)

	t.Setenv("CHATTERBOT_GATE_GLOBAL_REQUESTS_PER_MINUTE", "300")
	t.Setenv("CHATTERBOT_GATE_ADAPTIVE_ENABLED", "true")
	t.Setenv("CHATTERBOT_GATE_WINDOWS_BACKEND", "redis")
	t.Setenv("CHATTERBOT_GATE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CHATTERBOT_GATE_CONNECTIONS_IDLE_TIMEOUT", "90s")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Limits.Global.RequestsPerMinute != 300 {
		t.Errorf("Environment should win over the file, got %d", cfg.Limits.Global.RequestsPerMinute)
	}
	if !cfg.Adaptive.Enabled {
		t.Error("Expected adaptive enabled via environment")
	}
	if cfg.Windows.Backend != "redis" || cfg.Windows.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Unexpected windows config: %+v", cfg.Windows)
	}
	if cfg.Connections.IdleTimeout != 90*time.Second {
		t.Errorf("Expected 90s idle timeout, got %v", cfg.Connections.IdleTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfigFile(t, "")

	t.Setenv("CHATTERBOT_GATE_WINDOWS_BACKEND", "etcd")

	if _, err := LoadConfigWithEnvOverrides(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Invalid override should fail validation, got %v", err)
	}
}
