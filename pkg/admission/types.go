package admission

import (
	"time"

	"github.com/Giftedx/chatterbot-gate/pkg/admission/adaptive"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/connpool"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/window"
)

// Kind classifies a prospective request for admission purposes.
type Kind string

const (
	// KindStandard is a normal request, subject to rate and cost ceilings.
	KindStandard Kind = "standard"

	// KindBurst additionally checks the tighter burst ceiling, guarding
	// against sudden spikes.
	KindBurst Kind = "burst"
)

// Reason identifies which check denied a request.
type Reason string

const (
	ReasonGlobalBurst         Reason = "global-burst"
	ReasonGlobalRate          Reason = "global-rate"
	ReasonGlobalCost          Reason = "global-cost"
	ReasonCallerBurst         Reason = "caller-burst"
	ReasonCallerRate          Reason = "caller-rate"
	ReasonCallerCost          Reason = "caller-cost"
	ReasonConnectionExhausted Reason = "connection-exhausted"
)

// Retry hints for denials whose wait is not tied to the minute boundary.
const (
	globalBurstRetry = 60 * time.Second
	callerBurstRetry = 10 * time.Second
	connectionRetry  = 5 * time.Second
)

// Decision is the structured result of an admission check. Denial is a
// value, not an error: it carries the reason and a retry hint the caller
// is expected to surface upward.
type Decision struct {
	// Allowed indicates whether the downstream call may proceed.
	Allowed bool `json:"allowed"`

	// Reason identifies the failed check when Allowed is false.
	Reason Reason `json:"reason,omitempty"`

	// RetryAfter suggests how long to wait before retrying.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// SlotID is the acquired connection slot when Allowed is true. It must
	// be handed back via Completion.SlotID.
	SlotID string `json:"slot_id,omitempty"`
}

// RetryAfterSeconds returns the retry hint in whole seconds, for callers
// composing a "try again in N seconds" message.
func (d Decision) RetryAfterSeconds() int64 {
	return int64(d.RetryAfter / time.Second)
}

// Completion reports the outcome of a downstream call that was previously
// admitted.
type Completion struct {
	// CallerID is the identifier the check was made with.
	CallerID string `json:"caller_id"`

	// SlotID is the connection slot from the admitting Decision.
	SlotID string `json:"slot_id,omitempty"`

	// LatencyMs is the observed downstream latency.
	LatencyMs float64 `json:"latency_ms"`

	// Success indicates whether the call succeeded.
	Success bool `json:"success"`

	// Cost is the actual cost consumed (e.g. total tokens).
	Cost int64 `json:"cost"`
}

// GlobalUsage is the current-minute global window, exported read-only.
type GlobalUsage struct {
	Minute       int64   `json:"minute"`
	RequestCount int64   `json:"request_count"`
	CostCount    int64   `json:"cost_count"`
	ErrorCount   int64   `json:"error_count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	SuccessRate  float64 `json:"success_rate"`
}

// AdaptiveMetrics summarizes the tuner for observability.
type AdaptiveMetrics struct {
	Enabled          bool              `json:"enabled"`
	State            adaptive.State    `json:"state"`
	AdaptationCount  int               `json:"adaptation_count"`
	History          []adaptive.Record `json:"history"`
	LastAdaptationAt time.Time         `json:"last_adaptation_at,omitzero"`
}

// Snapshot is the JSON-serializable, side-effect-free view returned by
// Controller.GetMetrics.
type Snapshot struct {
	CurrentLimits     adaptive.Limits   `json:"current_limits"`
	GlobalUsage       GlobalUsage       `json:"global_usage"`
	AdaptiveMetrics   AdaptiveMetrics   `json:"adaptive_metrics"`
	ConnectionMetrics connpool.Metrics  `json:"connection_metrics"`
	RecentPerformance adaptive.Snapshot `json:"recent_performance"`
}

// Config configures the Controller.
type Config struct {
	// Baseline is the statically configured global ceiling, the starting
	// point for adaptive tuning.
	Baseline adaptive.Limits

	// Caller is the smaller static per-caller ceiling. Never adaptively
	// tuned.
	Caller adaptive.Limits

	// Bounds clamps adaptive tuning. Zero min/max fields default to
	// [baseline/10, baseline*2] per field.
	Bounds adaptive.Bounds

	// AdaptiveEnabled turns the feedback controller on.
	AdaptiveEnabled bool

	// Adaptive holds the tuner thresholds and factors. Baseline and
	// Bounds above take precedence over the same fields here.
	Adaptive adaptive.Config

	// Pool configures the connection admission gate.
	Pool connpool.Config

	// RetentionMinutes is how many minutes of stale windows are kept.
	// Default: window.DefaultRetentionMinutes.
	RetentionMinutes int

	// Backend is the window storage backend. Nil defaults to in-memory.
	Backend window.Backend
}
