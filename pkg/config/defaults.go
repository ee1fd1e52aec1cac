package config

import "time"

// Default values for configuration fields.
const (
	// Global limit defaults
	DefaultGlobalRequestsPerMinute = int64(100)
	DefaultGlobalCostPerMinute     = int64(50000)
	DefaultGlobalBurstLimit        = int64(20)

	// Per-caller limit defaults
	DefaultCallerRequestsPerMinute = int64(10)
	DefaultCallerCostPerMinute     = int64(5000)
	DefaultCallerBurstLimit        = int64(3)

	// Adaptive defaults
	DefaultPerformanceThresholdMs = 2000.0
	DefaultSuccessRateThreshold   = 0.95
	DefaultAdaptationFactor       = 0.2
	DefaultRecoveryFactor         = 0.1
	DefaultMinAdaptationInterval  = 30 * time.Second
	DefaultTuneInterval           = 10 * time.Second
	DefaultSampleWindow           = 50

	// Connection gate defaults
	DefaultConnectionMaxSize     = 10
	DefaultConnectionIdleTimeout = 5 * time.Minute
	DefaultMaintenanceInterval   = 60 * time.Second

	// Window store defaults
	DefaultWindowBackend    = "memory"
	DefaultRetentionMinutes = 5
	DefaultPurgeInterval    = 60 * time.Second
	DefaultRedisAddr        = "127.0.0.1:6379"
	DefaultSQLitePath       = "data/gate.db"

	// Circuit breaker defaults
	DefaultCircuitFailureThreshold = 5
	DefaultCircuitResetTimeout     = 30 * time.Second
	DefaultCircuitMonitoringWindow = 60 * time.Second

	// Retry defaults
	DefaultRetryMaxAttempts = 3
	DefaultRetryBaseDelay   = 1 * time.Second

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills zero-valued fields with documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Limits.Global.RequestsPerMinute == 0 {
		cfg.Limits.Global.RequestsPerMinute = DefaultGlobalRequestsPerMinute
	}
	if cfg.Limits.Global.CostPerMinute == 0 {
		cfg.Limits.Global.CostPerMinute = DefaultGlobalCostPerMinute
	}
	if cfg.Limits.Global.BurstLimit == 0 {
		cfg.Limits.Global.BurstLimit = DefaultGlobalBurstLimit
	}
	if cfg.Limits.Caller.RequestsPerMinute == 0 {
		cfg.Limits.Caller.RequestsPerMinute = DefaultCallerRequestsPerMinute
	}
	if cfg.Limits.Caller.CostPerMinute == 0 {
		cfg.Limits.Caller.CostPerMinute = DefaultCallerCostPerMinute
	}
	if cfg.Limits.Caller.BurstLimit == 0 {
		cfg.Limits.Caller.BurstLimit = DefaultCallerBurstLimit
	}

	if cfg.Adaptive.PerformanceThresholdMs == 0 {
		cfg.Adaptive.PerformanceThresholdMs = DefaultPerformanceThresholdMs
	}
	if cfg.Adaptive.SuccessRateThreshold == 0 {
		cfg.Adaptive.SuccessRateThreshold = DefaultSuccessRateThreshold
	}
	if cfg.Adaptive.AdaptationFactor == 0 {
		cfg.Adaptive.AdaptationFactor = DefaultAdaptationFactor
	}
	if cfg.Adaptive.RecoveryFactor == 0 {
		cfg.Adaptive.RecoveryFactor = DefaultRecoveryFactor
	}
	if cfg.Adaptive.MinAdaptationInterval == 0 {
		cfg.Adaptive.MinAdaptationInterval = DefaultMinAdaptationInterval
	}
	if cfg.Adaptive.TuneInterval == 0 {
		cfg.Adaptive.TuneInterval = DefaultTuneInterval
	}
	if cfg.Adaptive.SampleWindow == 0 {
		cfg.Adaptive.SampleWindow = DefaultSampleWindow
	}

	if cfg.Connections.MaxSize == 0 {
		cfg.Connections.MaxSize = DefaultConnectionMaxSize
	}
	if cfg.Connections.IdleTimeout == 0 {
		cfg.Connections.IdleTimeout = DefaultConnectionIdleTimeout
	}
	if cfg.Connections.MaintenanceInterval == 0 {
		cfg.Connections.MaintenanceInterval = DefaultMaintenanceInterval
	}

	if cfg.Windows.Backend == "" {
		cfg.Windows.Backend = DefaultWindowBackend
	}
	if cfg.Windows.RetentionMinutes == 0 {
		cfg.Windows.RetentionMinutes = DefaultRetentionMinutes
	}
	if cfg.Windows.PurgeInterval == 0 {
		cfg.Windows.PurgeInterval = DefaultPurgeInterval
	}
	if cfg.Windows.Redis.Addr == "" {
		cfg.Windows.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Windows.SQLite.Path == "" {
		cfg.Windows.SQLite.Path = DefaultSQLitePath
	}

	if cfg.Circuit.FailureThreshold == 0 {
		cfg.Circuit.FailureThreshold = DefaultCircuitFailureThreshold
	}
	if cfg.Circuit.ResetTimeout == 0 {
		cfg.Circuit.ResetTimeout = DefaultCircuitResetTimeout
	}
	if cfg.Circuit.MonitoringWindow == 0 {
		cfg.Circuit.MonitoringWindow = DefaultCircuitMonitoringWindow
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = DefaultRetryBaseDelay
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}

// Default returns a fully-defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
