package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention CHATTERBOT_GATE_SECTION_FIELD and always take precedence
// over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CHATTERBOT_GATE_* environment overrides.
func applyEnvOverrides(cfg *Config) {
	overrideInt64(&cfg.Limits.Global.RequestsPerMinute, "CHATTERBOT_GATE_GLOBAL_REQUESTS_PER_MINUTE")
	overrideInt64(&cfg.Limits.Global.CostPerMinute, "CHATTERBOT_GATE_GLOBAL_COST_PER_MINUTE")
	overrideInt64(&cfg.Limits.Global.BurstLimit, "CHATTERBOT_GATE_GLOBAL_BURST_LIMIT")
	overrideInt64(&cfg.Limits.Caller.RequestsPerMinute, "CHATTERBOT_GATE_CALLER_REQUESTS_PER_MINUTE")
	overrideInt64(&cfg.Limits.Caller.CostPerMinute, "CHATTERBOT_GATE_CALLER_COST_PER_MINUTE")
	overrideInt64(&cfg.Limits.Caller.BurstLimit, "CHATTERBOT_GATE_CALLER_BURST_LIMIT")

	if val := os.Getenv("CHATTERBOT_GATE_ADAPTIVE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Adaptive.Enabled = b
		}
	}
	overrideDuration(&cfg.Adaptive.MinAdaptationInterval, "CHATTERBOT_GATE_ADAPTIVE_MIN_INTERVAL")

	if val := os.Getenv("CHATTERBOT_GATE_CONNECTIONS_MAX_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Connections.MaxSize = n
		}
	}
	overrideDuration(&cfg.Connections.IdleTimeout, "CHATTERBOT_GATE_CONNECTIONS_IDLE_TIMEOUT")

	if val := os.Getenv("CHATTERBOT_GATE_WINDOWS_BACKEND"); val != "" {
		cfg.Windows.Backend = val
	}
	if val := os.Getenv("CHATTERBOT_GATE_REDIS_ADDR"); val != "" {
		cfg.Windows.Redis.Addr = val
	}
	if val := os.Getenv("CHATTERBOT_GATE_REDIS_PASSWORD"); val != "" {
		cfg.Windows.Redis.Password = val
	}
	if val := os.Getenv("CHATTERBOT_GATE_SQLITE_PATH"); val != "" {
		cfg.Windows.SQLite.Path = val
	}

	if val := os.Getenv("CHATTERBOT_GATE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("CHATTERBOT_GATE_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}

func overrideInt64(target *int64, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			*target = n
		}
	}
}

func overrideDuration(target *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*target = d
		}
	}
}
