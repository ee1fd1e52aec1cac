package admission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Giftedx/chatterbot-gate/pkg/admission/window"
)

// Default maintenance intervals.
const (
	DefaultPurgeInterval = 60 * time.Second
	DefaultSweepInterval = 60 * time.Second
	DefaultTuneInterval  = 10 * time.Second
)

// MaintenanceConfig configures the background maintenance jobs.
type MaintenanceConfig struct {
	// PurgeInterval is how often stale rate windows are purged.
	// Default: DefaultPurgeInterval.
	PurgeInterval time.Duration

	// SweepInterval is how often idle connection slots are evicted.
	// Default: DefaultSweepInterval.
	SweepInterval time.Duration

	// TuneInterval is how often the adaptive tuner is prompted. The
	// tuner's own minimum-interval gate still applies.
	// Default: DefaultTuneInterval.
	TuneInterval time.Duration
}

// Maintenance owns the periodic jobs that keep the controller healthy:
// window purge, idle-slot sweep, and adaptive tuning. Each job runs on an
// independent schedule decoupled from the request path.
//
// The jobs run on cron-managed goroutines with an explicit Start/Stop
// lifecycle; they never keep the process alive on their own once Stop is
// called.
type Maintenance struct {
	controller *Controller
	cfg        MaintenanceConfig
	cron       *cron.Cron
	logger     *slog.Logger
	mu         sync.Mutex
	running    bool
}

// NewMaintenance creates the maintenance unit for a controller.
func NewMaintenance(controller *Controller, cfg MaintenanceConfig) *Maintenance {
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = DefaultPurgeInterval
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.TuneInterval <= 0 {
		cfg.TuneInterval = DefaultTuneInterval
	}

	return &Maintenance{
		controller: controller,
		cfg:        cfg,
		cron:       cron.New(cron.WithSeconds()),
		logger:     slog.Default().With("component", "admission.maintenance"),
	}
}

// Start schedules the maintenance jobs. The jobs stop when Stop is called
// or when ctx is cancelled.
func (m *Maintenance) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func()
	}{
		{"window-purge", m.cfg.PurgeInterval, func() { m.runPurge(ctx) }},
		{"idle-sweep", m.cfg.SweepInterval, m.runSweep},
		{"adaptive-tune", m.cfg.TuneInterval, m.runTune},
	}

	for _, job := range jobs {
		spec := fmt.Sprintf("@every %s", job.interval)
		if _, err := m.cron.AddFunc(spec, job.run); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}

	m.cron.Start()
	m.running = true

	m.logger.Info("maintenance started",
		"purge_interval", m.cfg.PurgeInterval,
		"sweep_interval", m.cfg.SweepInterval,
		"tune_interval", m.cfg.TuneInterval,
	)

	// Stop with the context so cancelled callers don't leak the cron.
	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	stopCtx := m.cron.Stop()
	<-stopCtx.Done()
	m.running = false
	m.logger.Info("maintenance stopped")
}

// IsRunning reports whether the scheduler is active.
func (m *Maintenance) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// runPurge drops rate windows older than the retention horizon.
func (m *Maintenance) runPurge(ctx context.Context) {
	cutoff := window.MinuteOf(time.Now()) - int64(m.controller.cfg.RetentionMinutes)

	purged, err := m.controller.Windows().PurgeOlderThan(ctx, cutoff)
	if err != nil {
		m.logger.Error("window purge failed", "error", err)
		return
	}
	if purged > 0 {
		m.logger.Debug("window purge completed", "purged", purged)
	}
}

// runSweep evicts connection slots idle past the timeout.
func (m *Maintenance) runSweep() {
	m.controller.Pool().EvictIdle()
}

// runTune prompts an adaptation cycle; the tuner's minimum-interval gate
// decides whether it actually runs.
func (m *Maintenance) runTune() {
	if !m.controller.cfg.AdaptiveEnabled {
		return
	}
	if record := m.controller.Tuner().MaybeAdapt(time.Now()); record != nil && m.controller.metrics != nil {
		m.controller.metrics.recordAdaptation(record)
		m.controller.metrics.observeLimits(m.controller.Tuner().Limits())
	}
}
