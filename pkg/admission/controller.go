package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/Giftedx/chatterbot-gate/pkg/admission/adaptive"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/connpool"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/window"
)

// Controller coordinates rate windows, effective limits, and the
// connection gate into a single admission decision.
//
// Construct one Controller per independent admission domain (per tenant,
// or per test); there is no ambient global instance. The rate window
// store, effective limits, and connection gate are mutated only through
// the Controller and its tuner.
type Controller struct {
	cfg     Config
	windows *window.Store
	pool    *connpool.Pool
	tuner   *adaptive.Tuner
	metrics *Metrics
	logger  *slog.Logger

	// nowFn is replaceable in tests to simulate minute rollover.
	nowFn func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger replaces the default component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New creates an admission controller from the given configuration.
func New(cfg Config, opts ...Option) *Controller {
	if cfg.RetentionMinutes <= 0 {
		cfg.RetentionMinutes = window.DefaultRetentionMinutes
	}
	cfg.Bounds = defaultBounds(cfg.Baseline, cfg.Bounds)

	tunerCfg := cfg.Adaptive
	tunerCfg.Baseline = cfg.Baseline
	tunerCfg.Bounds = cfg.Bounds

	c := &Controller{
		cfg:     cfg,
		windows: window.NewStore(cfg.Backend),
		pool:    connpool.New(cfg.Pool),
		tuner:   adaptive.NewTuner(tunerCfg),
		logger:  slog.Default().With("component", "admission.controller"),
		nowFn:   time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckRateLimit decides whether a prospective downstream call may
// proceed. Checks run in strict order and the first failure
// short-circuits: global burst, global rate, global cost, then the same
// three against the static per-caller ceiling, then the connection gate.
// On allow, the global and caller windows are incremented by one request
// and estimatedCost, and the acquired connection slot is returned in the
// decision.
//
// No cancellation token is threaded through the check; it performs no
// blocking I/O with the default backend, and callers needing cancellation
// wrap the downstream call itself.
func (c *Controller) CheckRateLimit(callerID string, estimatedCost int64, kind Kind) Decision {
	ctx := context.Background()
	now := c.nowFn()
	minute := window.MinuteOf(now)
	minuteRetry := time.Duration(window.SecondsRemaining(now)) * time.Second
	limits := c.tuner.Limits()

	// Global window checks against the effective limits.
	global, err := c.windows.Touch(ctx, window.GlobalScope, minute)
	if err != nil {
		// Fail open: availability over strict enforcement.
		c.logger.Warn("global window unavailable, admitting request", "error", err)
		global = nil
	}

	if global != nil {
		if d, denied := checkWindow(global, limits, estimatedCost, kind,
			ReasonGlobalBurst, ReasonGlobalRate, ReasonGlobalCost,
			globalBurstRetry, minuteRetry); denied {
			return c.deny(d, callerID)
		}
	}

	// Caller window checks against the static per-caller ceiling.
	caller, err := c.windows.Touch(ctx, callerID, minute)
	if err != nil {
		c.logger.Warn("caller window unavailable, admitting request",
			"caller_id", callerID,
			"error", err,
		)
		caller = nil
	}

	if caller != nil {
		if d, denied := checkWindow(caller, c.cfg.Caller, estimatedCost, kind,
			ReasonCallerBurst, ReasonCallerRate, ReasonCallerCost,
			callerBurstRetry, minuteRetry); denied {
			return c.deny(d, callerID)
		}
	}

	// Connection admission gate.
	slot, ok := c.pool.TryAcquire()
	if !ok {
		return c.deny(Decision{
			Reason:     ReasonConnectionExhausted,
			RetryAfter: connectionRetry,
		}, callerID)
	}

	// Admitted: consume from both windows.
	if err := c.windows.Increment(ctx, window.GlobalScope, minute, estimatedCost); err != nil {
		c.logger.Warn("failed to increment global window", "error", err)
	}
	if err := c.windows.Increment(ctx, callerID, minute, estimatedCost); err != nil {
		c.logger.Warn("failed to increment caller window",
			"caller_id", callerID,
			"error", err,
		)
	}

	if c.metrics != nil {
		c.metrics.recordAllowed()
		c.metrics.observePool(c.pool.Metrics())
	}

	return Decision{Allowed: true, SlotID: slot.ID}
}

// RecordCompletion folds a downstream outcome into the rate windows,
// releases the connection slot, and feeds the adaptive tuner. Completions
// are recorded in invocation order; no ordering is guaranteed across
// concurrently in-flight requests.
func (c *Controller) RecordCompletion(ctx context.Context, comp *Completion) {
	now := c.nowFn()
	minute := window.MinuteOf(now)

	if err := c.windows.UpdateOutcome(ctx, window.GlobalScope, minute, comp.LatencyMs, comp.Success); err != nil {
		c.logger.Warn("failed to record global outcome", "error", err)
	}
	if comp.CallerID != "" {
		if err := c.windows.UpdateOutcome(ctx, comp.CallerID, minute, comp.LatencyMs, comp.Success); err != nil {
			c.logger.Warn("failed to record caller outcome",
				"caller_id", comp.CallerID,
				"error", err,
			)
		}
	}

	if comp.SlotID != "" {
		c.pool.Release(comp.SlotID)
	}

	c.tuner.AddSample(adaptive.Sample{
		Timestamp: now,
		LatencyMs: comp.LatencyMs,
		Success:   comp.Success,
	})

	if c.metrics != nil {
		c.metrics.observeCompletion(comp)
		c.metrics.observePool(c.pool.Metrics())
	}

	if c.cfg.AdaptiveEnabled {
		if record := c.tuner.MaybeAdapt(now); record != nil && c.metrics != nil {
			c.metrics.recordAdaptation(record)
			c.metrics.observeLimits(c.tuner.Limits())
		}
	}
}

// GetMetrics returns a read-only snapshot of the controller state. It has
// no side effects: calling it twice with no intervening writes yields
// identical values.
func (c *Controller) GetMetrics() Snapshot {
	ctx := context.Background()
	now := c.nowFn()
	minute := window.MinuteOf(now)

	usage := GlobalUsage{Minute: minute, SuccessRate: 1.0}
	if global, err := c.windows.Peek(ctx, window.GlobalScope, minute); err == nil {
		usage = GlobalUsage{
			Minute:       minute,
			RequestCount: global.RequestCount,
			CostCount:    global.CostCount,
			ErrorCount:   global.ErrorCount,
			AvgLatencyMs: global.AvgLatencyMs,
			SuccessRate:  global.SuccessRate,
		}
	}

	history := c.tuner.History()
	adaptiveMetrics := AdaptiveMetrics{
		Enabled:         c.cfg.AdaptiveEnabled,
		State:           c.tuner.State(),
		AdaptationCount: len(history),
		History:         history,
	}
	if len(history) > 0 {
		adaptiveMetrics.LastAdaptationAt = history[len(history)-1].Timestamp
	}

	return Snapshot{
		CurrentLimits:     c.tuner.Limits(),
		GlobalUsage:       usage,
		AdaptiveMetrics:   adaptiveMetrics,
		ConnectionMetrics: c.pool.Metrics(),
		RecentPerformance: c.tuner.RecentPerformance(),
	}
}

// SetBaselineLimits replaces the static global baseline (config reload).
func (c *Controller) SetBaselineLimits(baseline adaptive.Limits) {
	c.tuner.SetBaseline(baseline)
	if c.metrics != nil {
		c.metrics.observeLimits(c.tuner.Limits())
	}
}

// Tuner exposes the adaptive tuner for the maintenance scheduler.
func (c *Controller) Tuner() *adaptive.Tuner { return c.tuner }

// Windows exposes the window store for the maintenance scheduler.
func (c *Controller) Windows() *window.Store { return c.windows }

// Pool exposes the connection gate for the maintenance scheduler.
func (c *Controller) Pool() *connpool.Pool { return c.pool }

// Close releases the window backend.
func (c *Controller) Close() error {
	return c.windows.Close()
}

// deny finalizes a deny decision with logging and metrics.
func (c *Controller) deny(d Decision, callerID string) Decision {
	d.Allowed = false

	c.logger.Debug("request denied",
		"caller_id", callerID,
		"reason", d.Reason,
		"retry_after", d.RetryAfter,
	)
	if c.metrics != nil {
		c.metrics.recordDenied(d.Reason)
	}

	return d
}

// checkWindow applies the three ceiling checks (burst, rate, cost) shared
// by the global and caller scopes.
func checkWindow(w *window.RateWindow, limits adaptive.Limits, estimatedCost int64, kind Kind,
	burstReason, rateReason, costReason Reason, burstRetry, minuteRetry time.Duration) (Decision, bool) {

	if kind == KindBurst && limits.BurstLimit > 0 && w.RequestCount >= limits.BurstLimit {
		return Decision{Reason: burstReason, RetryAfter: burstRetry}, true
	}
	if limits.RequestsPerMinute > 0 && w.RequestCount >= limits.RequestsPerMinute {
		return Decision{Reason: rateReason, RetryAfter: minuteRetry}, true
	}
	if limits.CostPerMinute > 0 && w.CostCount+estimatedCost >= limits.CostPerMinute {
		return Decision{Reason: costReason, RetryAfter: minuteRetry}, true
	}

	return Decision{}, false
}

// defaultBounds fills unset bound fields from the baseline: a floor of a
// tenth of each baseline field (minimum 1) and a ceiling of twice it.
func defaultBounds(baseline adaptive.Limits, bounds adaptive.Bounds) adaptive.Bounds {
	if bounds.Min.RequestsPerMinute <= 0 {
		bounds.Min.RequestsPerMinute = atLeastOne(baseline.RequestsPerMinute / 10)
	}
	if bounds.Min.CostPerMinute <= 0 {
		bounds.Min.CostPerMinute = atLeastOne(baseline.CostPerMinute / 10)
	}
	if bounds.Min.BurstLimit <= 0 {
		bounds.Min.BurstLimit = atLeastOne(baseline.BurstLimit / 10)
	}
	if bounds.Max.RequestsPerMinute <= 0 {
		bounds.Max.RequestsPerMinute = baseline.RequestsPerMinute * 2
	}
	if bounds.Max.CostPerMinute <= 0 {
		bounds.Max.CostPerMinute = baseline.CostPerMinute * 2
	}
	if bounds.Max.BurstLimit <= 0 {
		bounds.Max.BurstLimit = baseline.BurstLimit * 2
	}
	return bounds
}

func atLeastOne(v int64) int64 {
	if v < 1 {
		return 1
	}
	return v
}
