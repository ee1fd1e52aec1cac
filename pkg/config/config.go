package config

import "time"

// Config is the root configuration for the admission subsystem.
type Config struct {
	// Limits holds the global and per-caller admission ceilings.
	Limits LimitsConfig `yaml:"limits"`

	// Adaptive holds the feedback-controller tuning knobs.
	Adaptive AdaptiveConfig `yaml:"adaptive"`

	// Connections configures the connection admission gate.
	Connections ConnectionsConfig `yaml:"connections"`

	// Windows configures rate-window storage and retention.
	Windows WindowsConfig `yaml:"windows"`

	// Circuit configures default circuit breaker behavior.
	Circuit CircuitConfig `yaml:"circuit"`

	// Retry configures default retry behavior.
	Retry RetryConfig `yaml:"retry"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`
}

// LimitValues is one set of admission ceilings.
type LimitValues struct {
	// RequestsPerMinute caps requests per minute. 0 means unlimited.
	RequestsPerMinute int64 `yaml:"requests_per_minute"`

	// CostPerMinute caps estimated cost (e.g. tokens) per minute.
	CostPerMinute int64 `yaml:"cost_per_minute"`

	// BurstLimit is the tighter ceiling for burst-kind requests.
	BurstLimit int64 `yaml:"burst_limit"`
}

// LimitsConfig holds the configured ceilings and adaptive bounds.
type LimitsConfig struct {
	// Global is the process-wide baseline, subject to adaptive tuning.
	Global LimitValues `yaml:"global"`

	// Caller is the smaller static per-caller ceiling, never tuned.
	Caller LimitValues `yaml:"caller"`

	// Min and Max clamp adaptive tuning of the global limits. Zero
	// fields default to a tenth and twice the baseline respectively.
	Min LimitValues `yaml:"min"`
	Max LimitValues `yaml:"max"`
}

// AdaptiveConfig holds the feedback controller knobs.
type AdaptiveConfig struct {
	// Enabled turns adaptive throttling on.
	Enabled bool `yaml:"enabled"`

	// PerformanceThresholdMs tightens limits when the recent average
	// latency exceeds it.
	PerformanceThresholdMs float64 `yaml:"performance_threshold_ms"`

	// SuccessRateThreshold tightens limits when the recent success rate
	// falls below it.
	SuccessRateThreshold float64 `yaml:"success_rate_threshold"`

	// AdaptationFactor is the fractional decrease per tightening.
	AdaptationFactor float64 `yaml:"adaptation_factor"`

	// RecoveryFactor is the fractional increase per loosening.
	RecoveryFactor float64 `yaml:"recovery_factor"`

	// MinAdaptationInterval gates how often adaptation may run.
	MinAdaptationInterval time.Duration `yaml:"min_adaptation_interval"`

	// TuneInterval is the background tuning cadence.
	TuneInterval time.Duration `yaml:"tune_interval"`

	// SampleWindow is how many recent samples each decision reads.
	SampleWindow int `yaml:"sample_window"`
}

// ConnectionsConfig configures the connection admission gate.
type ConnectionsConfig struct {
	// MaxSize is the concurrency ceiling.
	MaxSize int `yaml:"max_size"`

	// IdleTimeout is how long an unreleased slot survives.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MaintenanceInterval is the idle-sweep cadence.
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
}

// WindowsConfig configures rate-window storage.
type WindowsConfig struct {
	// Backend selects the window store: "memory", "redis", or "sqlite".
	Backend string `yaml:"backend"`

	// RetentionMinutes is how many minutes of stale windows are kept.
	RetentionMinutes int `yaml:"retention_minutes"`

	// PurgeInterval is the purge cadence.
	PurgeInterval time.Duration `yaml:"purge_interval"`

	// Redis configures the Redis backend.
	Redis RedisConfig `yaml:"redis"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// RedisConfig configures the shared Redis window backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SQLiteConfig configures the persistent SQLite window backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CircuitConfig configures default circuit breaker behavior.
type CircuitConfig struct {
	// FailureThreshold opens a circuit after this many failures within
	// the monitoring window.
	FailureThreshold int `yaml:"failure_threshold"`

	// ResetTimeout is how long a circuit stays open before a trial.
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// MonitoringWindow bounds failure counting.
	MonitoringWindow time.Duration `yaml:"monitoring_window"`
}

// RetryConfig configures default retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget including the first call.
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration `yaml:"base_delay"`

	// ExponentialBackoff doubles the delay after each failed attempt.
	ExponentialBackoff bool `yaml:"exponential_backoff"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	Format string `yaml:"format"`
}
