package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Giftedx/chatterbot-gate/pkg/admission"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/adaptive"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/connpool"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/window"
	"github.com/Giftedx/chatterbot-gate/pkg/config"
	"github.com/Giftedx/chatterbot-gate/pkg/resilience/circuit"
	"github.com/Giftedx/chatterbot-gate/pkg/resilience/retry"
	"github.com/Giftedx/chatterbot-gate/pkg/telemetry/health"
	"github.com/Giftedx/chatterbot-gate/pkg/telemetry/perf"
)

// Gate bundles the composed admission subsystem.
type Gate struct {
	// Controller is the admission entry point.
	Controller *admission.Controller

	// Maintenance owns the background purge/sweep/tune jobs.
	Maintenance *admission.Maintenance

	// Circuits hands out per-resource circuit breakers.
	Circuits *circuit.Registry

	// RetryOptions are the configured defaults for retry.Do.
	RetryOptions retry.Options

	// Monitor records per-operation performance stats.
	Monitor *perf.Monitor

	// Health aggregates component health probes.
	Health *health.Checker
}

// New composes a Gate from the configuration. Pass a nil registerer to
// skip Prometheus instrumentation (useful under test), or
// prometheus.DefaultRegisterer for the process-wide registry.
func New(cfg *config.Config, registerer prometheus.Registerer) (*Gate, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	backend, err := newBackend(&cfg.Windows)
	if err != nil {
		return nil, err
	}

	var opts []admission.Option
	if registerer != nil {
		opts = append(opts, admission.WithMetrics(admission.NewMetrics(registerer)))
	}

	controller := admission.New(admission.Config{
		Baseline: limitsOf(cfg.Limits.Global),
		Caller:   limitsOf(cfg.Limits.Caller),
		Bounds: adaptive.Bounds{
			Min: limitsOf(cfg.Limits.Min),
			Max: limitsOf(cfg.Limits.Max),
		},
		AdaptiveEnabled: cfg.Adaptive.Enabled,
		Adaptive: adaptive.Config{
			PerformanceThresholdMs: cfg.Adaptive.PerformanceThresholdMs,
			SuccessRateThreshold:   cfg.Adaptive.SuccessRateThreshold,
			AdaptationFactor:       cfg.Adaptive.AdaptationFactor,
			RecoveryFactor:         cfg.Adaptive.RecoveryFactor,
			MinInterval:            cfg.Adaptive.MinAdaptationInterval,
			SampleWindow:           cfg.Adaptive.SampleWindow,
		},
		Pool: connpool.Config{
			MaxSize:     cfg.Connections.MaxSize,
			IdleTimeout: cfg.Connections.IdleTimeout,
		},
		RetentionMinutes: cfg.Windows.RetentionMinutes,
		Backend:          backend,
	}, opts...)

	maintenance := admission.NewMaintenance(controller, admission.MaintenanceConfig{
		PurgeInterval: cfg.Windows.PurgeInterval,
		SweepInterval: cfg.Connections.MaintenanceInterval,
		TuneInterval:  cfg.Adaptive.TuneInterval,
	})

	circuits := circuit.NewRegistry(circuit.Config{
		FailureThreshold: cfg.Circuit.FailureThreshold,
		ResetTimeout:     cfg.Circuit.ResetTimeout,
		MonitoringWindow: cfg.Circuit.MonitoringWindow,
	})

	checker := health.New(0)
	checker.Register("connection-gate", func(ctx context.Context) error {
		metrics := controller.Pool().Metrics()
		if metrics.Utilization >= 1.0 {
			return fmt.Errorf("connection gate saturated (%d/%d)", metrics.Active, metrics.Max)
		}
		return nil
	})

	return &Gate{
		Controller:  controller,
		Maintenance: maintenance,
		Circuits:    circuits,
		RetryOptions: retry.Options{
			MaxAttempts:        cfg.Retry.MaxAttempts,
			BaseDelay:          cfg.Retry.BaseDelay,
			ExponentialBackoff: cfg.Retry.ExponentialBackoff,
		},
		Monitor: perf.NewMonitor(),
		Health:  checker,
	}, nil
}

// Start launches the background maintenance jobs.
func (g *Gate) Start(ctx context.Context) error {
	return g.Maintenance.Start(ctx)
}

// Close stops maintenance and releases the window backend.
func (g *Gate) Close() error {
	g.Maintenance.Stop()
	return g.Controller.Close()
}

// newBackend builds the configured window backend.
func newBackend(cfg *config.WindowsConfig) (window.Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		return window.NewMemoryBackend(), nil
	case "redis":
		backend, err := window.NewRedisBackend(window.RedisBackendConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      windowTTL(cfg.RetentionMinutes),
		})
		if err != nil {
			return nil, fmt.Errorf("redis window backend: %w", err)
		}
		return backend, nil
	case "sqlite":
		backend, err := window.NewSQLiteBackend(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite window backend: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown window backend %q", cfg.Backend)
	}
}

// windowTTL converts a retention horizon in minutes to a Redis TTL, one
// minute past retention so windows outlive the purge boundary.
func windowTTL(retentionMinutes int) time.Duration {
	if retentionMinutes <= 0 {
		retentionMinutes = window.DefaultRetentionMinutes
	}
	return time.Duration(retentionMinutes+1) * time.Minute
}

func limitsOf(v config.LimitValues) adaptive.Limits {
	return adaptive.Limits{
		RequestsPerMinute: v.RequestsPerMinute,
		CostPerMinute:     v.CostPerMinute,
		BurstLimit:        v.BurstLimit,
	}
}
