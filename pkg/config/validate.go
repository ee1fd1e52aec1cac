package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel wrapped by all validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration for internal consistency.
// It assumes defaults have already been applied.
func Validate(cfg *Config) error {
	if err := validateLimits(&cfg.Limits); err != nil {
		return err
	}
	if err := validateAdaptive(&cfg.Adaptive); err != nil {
		return err
	}

	if cfg.Connections.MaxSize < 1 {
		return invalid("connections.max_size must be at least 1, got %d", cfg.Connections.MaxSize)
	}
	if cfg.Connections.IdleTimeout <= 0 {
		return invalid("connections.idle_timeout must be positive")
	}

	switch cfg.Windows.Backend {
	case "memory", "redis", "sqlite":
	default:
		return invalid("windows.backend must be one of memory, redis, sqlite, got %q", cfg.Windows.Backend)
	}
	if cfg.Windows.RetentionMinutes < 1 {
		return invalid("windows.retention_minutes must be at least 1, got %d", cfg.Windows.RetentionMinutes)
	}

	if cfg.Circuit.FailureThreshold < 1 {
		return invalid("circuit.failure_threshold must be at least 1, got %d", cfg.Circuit.FailureThreshold)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return invalid("retry.max_attempts must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level must be one of debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return invalid("logging.format must be json or text, got %q", cfg.Logging.Format)
	}

	return nil
}

func validateLimits(limits *LimitsConfig) error {
	if limits.Global.RequestsPerMinute < 1 {
		return invalid("limits.global.requests_per_minute must be at least 1")
	}
	if limits.Global.CostPerMinute < 1 {
		return invalid("limits.global.cost_per_minute must be at least 1")
	}
	if limits.Global.BurstLimit < 1 {
		return invalid("limits.global.burst_limit must be at least 1")
	}
	if limits.Caller.RequestsPerMinute < 0 || limits.Caller.CostPerMinute < 0 || limits.Caller.BurstLimit < 0 {
		return invalid("limits.caller values must not be negative")
	}

	// Explicit bounds must bracket the baseline.
	if limits.Min.RequestsPerMinute > 0 && limits.Min.RequestsPerMinute > limits.Global.RequestsPerMinute {
		return invalid("limits.min.requests_per_minute exceeds the global baseline")
	}
	if limits.Max.RequestsPerMinute > 0 && limits.Max.RequestsPerMinute < limits.Global.RequestsPerMinute {
		return invalid("limits.max.requests_per_minute is below the global baseline")
	}

	return nil
}

func validateAdaptive(adaptive *AdaptiveConfig) error {
	if adaptive.PerformanceThresholdMs <= 0 {
		return invalid("adaptive.performance_threshold_ms must be positive")
	}
	if adaptive.SuccessRateThreshold <= 0 || adaptive.SuccessRateThreshold > 1 {
		return invalid("adaptive.success_rate_threshold must be in (0, 1], got %v", adaptive.SuccessRateThreshold)
	}
	if adaptive.AdaptationFactor <= 0 || adaptive.AdaptationFactor >= 1 {
		return invalid("adaptive.adaptation_factor must be in (0, 1), got %v", adaptive.AdaptationFactor)
	}
	if adaptive.RecoveryFactor <= 0 || adaptive.RecoveryFactor >= 1 {
		return invalid("adaptive.recovery_factor must be in (0, 1), got %v", adaptive.RecoveryFactor)
	}
	if adaptive.MinAdaptationInterval <= 0 {
		return invalid("adaptive.min_adaptation_interval must be positive")
	}
	if adaptive.SampleWindow < 2 {
		return invalid("adaptive.sample_window must be at least 2, got %d", adaptive.SampleWindow)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
