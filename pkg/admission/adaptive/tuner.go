package adaptive

import (
	"log/slog"
	"sync"
	"time"
)

// Default tuning parameters.
const (
	// DefaultPerformanceThresholdMs is the average latency above which
	// limits are tightened.
	DefaultPerformanceThresholdMs = 2000.0

	// DefaultSuccessRateThreshold is the success rate below which limits
	// are tightened.
	DefaultSuccessRateThreshold = 0.95

	// DefaultAdaptationFactor is the fractional decrease per tightening.
	DefaultAdaptationFactor = 0.2

	// DefaultRecoveryFactor is the fractional increase per loosening.
	DefaultRecoveryFactor = 0.1

	// DefaultMinInterval gates how often adaptation may run.
	DefaultMinInterval = 30 * time.Second

	// DefaultSampleWindow is how many recent samples each decision reads.
	DefaultSampleWindow = 50

	// DefaultSampleCapacity bounds the rolling sample buffer.
	DefaultSampleCapacity = 1000

	// DefaultHistoryCapacity bounds the adaptation record ring.
	DefaultHistoryCapacity = 100
)

// Adaptation reasons, stable strings surfaced in records and logs.
const (
	ReasonDegradation = "performance degradation detected"
	ReasonRecovery    = "excellent performance, increasing capacity"
)

// Config configures the Tuner.
type Config struct {
	// Baseline is the statically configured starting limits.
	Baseline Limits

	// Bounds is the hard [min, max] clamp per field.
	Bounds Bounds

	// PerformanceThresholdMs triggers tightening when exceeded by the
	// recent average latency. Default: DefaultPerformanceThresholdMs.
	PerformanceThresholdMs float64

	// SuccessRateThreshold triggers tightening when the recent success
	// rate falls below it. Default: DefaultSuccessRateThreshold.
	SuccessRateThreshold float64

	// AdaptationFactor is the fractional decrease on tightening.
	// Default: DefaultAdaptationFactor.
	AdaptationFactor float64

	// RecoveryFactor is the fractional increase on loosening.
	// Default: DefaultRecoveryFactor.
	RecoveryFactor float64

	// MinInterval is the minimum time between adaptations.
	// Default: DefaultMinInterval.
	MinInterval time.Duration

	// SampleWindow is how many recent samples each decision considers.
	// Default: DefaultSampleWindow.
	SampleWindow int

	// SampleCapacity bounds the rolling sample buffer.
	// Default: DefaultSampleCapacity.
	SampleCapacity int

	// HistoryCapacity bounds the adaptation record ring.
	// Default: DefaultHistoryCapacity.
	HistoryCapacity int
}

// applyDefaults fills zero-valued fields.
func (c *Config) applyDefaults() {
	if c.PerformanceThresholdMs <= 0 {
		c.PerformanceThresholdMs = DefaultPerformanceThresholdMs
	}
	if c.SuccessRateThreshold <= 0 {
		c.SuccessRateThreshold = DefaultSuccessRateThreshold
	}
	if c.AdaptationFactor <= 0 {
		c.AdaptationFactor = DefaultAdaptationFactor
	}
	if c.RecoveryFactor <= 0 {
		c.RecoveryFactor = DefaultRecoveryFactor
	}
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.SampleWindow <= 0 {
		c.SampleWindow = DefaultSampleWindow
	}
	if c.SampleCapacity <= 0 {
		c.SampleCapacity = DefaultSampleCapacity
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = DefaultHistoryCapacity
	}
}

// Tuner is the closed-loop controller that owns the effective limits.
//
// Tuner is thread-safe. Limits are mutated only by adaptation (and
// SetBaseline for config reload), never on the admission hot path.
type Tuner struct {
	cfg     Config
	limits  Limits
	state   State
	samples []Sample
	history []Record
	lastRun time.Time
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewTuner creates a tuner starting at the clamped baseline limits.
func NewTuner(cfg Config) *Tuner {
	cfg.applyDefaults()

	return &Tuner{
		cfg:     cfg,
		limits:  cfg.Baseline.clamp(cfg.Bounds),
		state:   StateOptimal,
		samples: make([]Sample, 0, cfg.SampleCapacity),
		history: make([]Record, 0, cfg.HistoryCapacity),
		logger:  slog.Default().With("component", "admission.adaptive"),
	}
}

// Limits returns the current effective limits.
func (t *Tuner) Limits() Limits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limits
}

// State returns the coarse performance label.
func (t *Tuner) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetBaseline replaces the baseline limits (config reload). The effective
// limits are reset to the new clamped baseline.
func (t *Tuner) SetBaseline(baseline Limits) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cfg.Baseline = baseline
	t.limits = baseline.clamp(t.cfg.Bounds)

	t.logger.Info("baseline limits replaced",
		"requests_per_minute", t.limits.RequestsPerMinute,
		"cost_per_minute", t.limits.CostPerMinute,
		"burst_limit", t.limits.BurstLimit,
	)
}

// AddSample appends a completion observation to the rolling buffer.
func (t *Tuner) AddSample(s Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = append(t.samples, s)
	if len(t.samples) > t.cfg.SampleCapacity {
		// Drop the oldest; shift is cheap relative to sample cadence.
		t.samples = t.samples[len(t.samples)-t.cfg.SampleCapacity:]
	}
}

// MaybeAdapt runs one adaptation cycle if at least MinInterval has elapsed
// since the previous one. Returns the adaptation record, or nil when the
// gate suppressed the run or no adaptation was warranted.
func (t *Tuner) MaybeAdapt(now time.Time) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastRun.IsZero() && now.Sub(t.lastRun) < t.cfg.MinInterval {
		return nil
	}
	t.lastRun = now

	return t.adaptLocked(now)
}

// History returns a copy of the adaptation record ring, oldest first.
func (t *Tuner) History() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := make([]Record, len(t.history))
	copy(history, t.history)
	return history
}

// RecentPerformance summarizes the samples the next decision would read.
func (t *Tuner) RecentPerformance() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// adaptLocked applies the decision rule. Caller must hold the mutex.
func (t *Tuner) adaptLocked(now time.Time) *Record {
	snap := t.snapshotLocked()
	if snap.SampleCount == 0 {
		return nil
	}

	var (
		reason string
		next   Limits
		state  State
	)

	switch {
	case snap.AvgLatencyMs > t.cfg.PerformanceThresholdMs || snap.SuccessRate < t.cfg.SuccessRateThreshold:
		reason = ReasonDegradation
		next = t.limits.scale(1 - t.cfg.AdaptationFactor)
		state = StateDegraded

	case snap.AvgLatencyMs < 0.5*t.cfg.PerformanceThresholdMs &&
		snap.SuccessRate > 0.98 &&
		snap.Trend == TrendImproving:
		reason = ReasonRecovery
		next = t.limits.scale(1 + t.cfg.RecoveryFactor)
		state = StateRecovering

	default:
		if t.state == StateDegraded || t.state == StateRecovering {
			t.state = StateOptimal
		}
		return nil
	}

	record := Record{
		Timestamp: now,
		Reason:    reason,
		OldLimits: t.limits,
		NewLimits: next.clamp(t.cfg.Bounds),
		Snapshot:  snap,
	}

	t.limits = record.NewLimits
	t.state = state

	t.history = append(t.history, record)
	if len(t.history) > t.cfg.HistoryCapacity {
		t.history = t.history[len(t.history)-t.cfg.HistoryCapacity:]
	}

	t.logger.Info("adapted effective limits",
		"reason", reason,
		"requests_per_minute", t.limits.RequestsPerMinute,
		"cost_per_minute", t.limits.CostPerMinute,
		"burst_limit", t.limits.BurstLimit,
		"avg_latency_ms", snap.AvgLatencyMs,
		"success_rate", snap.SuccessRate,
		"trend", snap.Trend,
	)

	return &record
}

// snapshotLocked computes the recent-performance summary over the last
// SampleWindow samples. Caller must hold the mutex.
func (t *Tuner) snapshotLocked() Snapshot {
	samples := t.samples
	if len(samples) > t.cfg.SampleWindow {
		samples = samples[len(samples)-t.cfg.SampleWindow:]
	}
	if len(samples) == 0 {
		return Snapshot{Trend: TrendStable}
	}

	var totalLatency float64
	successes := 0
	for _, s := range samples {
		totalLatency += s.LatencyMs
		if s.Success {
			successes++
		}
	}

	return Snapshot{
		SampleCount:  len(samples),
		AvgLatencyMs: totalLatency / float64(len(samples)),
		SuccessRate:  float64(successes) / float64(len(samples)),
		Trend:        trendOf(samples),
	}
}

// trendOf compares first-half vs second-half average latency.
func trendOf(samples []Sample) Trend {
	if len(samples) < 2 {
		return TrendStable
	}

	half := len(samples) / 2
	firstAvg := avgLatency(samples[:half])
	secondAvg := avgLatency(samples[half:])
	if firstAvg == 0 {
		return TrendStable
	}

	switch {
	case secondAvg <= 0.9*firstAvg:
		return TrendImproving
	case secondAvg >= 1.1*firstAvg:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func avgLatency(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var total float64
	for _, s := range samples {
		total += s.LatencyMs
	}
	return total / float64(len(samples))
}
