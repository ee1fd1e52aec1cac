package adaptive

import "time"

// Limits is a set of admission ceilings. The Tuner maintains the live,
// adaptively-adjusted instance; the configured baseline never changes.
type Limits struct {
	// RequestsPerMinute caps admitted requests per minute.
	RequestsPerMinute int64 `json:"requests_per_minute"`

	// CostPerMinute caps admitted estimated cost (e.g. tokens) per minute.
	CostPerMinute int64 `json:"cost_per_minute"`

	// BurstLimit is the tighter ceiling applied to burst-kind requests.
	BurstLimit int64 `json:"burst_limit"`
}

// Bounds are the hard clamp applied to every adapted field.
type Bounds struct {
	Min Limits `json:"min"`
	Max Limits `json:"max"`
}

// Trend describes the latency direction across the recent sample slice.
type Trend string

const (
	// TrendImproving means second-half latency <= 0.9x first-half latency.
	TrendImproving Trend = "improving"

	// TrendStable means latency is neither improving nor degrading.
	TrendStable Trend = "stable"

	// TrendDegrading means second-half latency >= 1.1x first-half latency.
	TrendDegrading Trend = "degrading"
)

// State is a coarse performance label used only for observability.
type State string

const (
	StateOptimal    State = "optimal"
	StateDegraded   State = "degraded"
	StateRecovering State = "recovering"
)

// Sample is one completion observation.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	LatencyMs float64   `json:"latency_ms"`
	Success   bool      `json:"success"`
}

// Snapshot summarizes the sample slice an adaptation decision was based on.
type Snapshot struct {
	SampleCount  int     `json:"sample_count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	SuccessRate  float64 `json:"success_rate"`
	Trend        Trend   `json:"trend"`
}

// Record documents one adaptation for observability. Records are kept in a
// bounded ring and exported via metrics snapshots; the control logic never
// consults them.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	OldLimits Limits    `json:"old_limits"`
	NewLimits Limits    `json:"new_limits"`
	Snapshot  Snapshot  `json:"performance_snapshot"`
}

// clamp forces every field of l into [b.Min, b.Max], with a floor of 1.
func (l Limits) clamp(b Bounds) Limits {
	l.RequestsPerMinute = clampField(l.RequestsPerMinute, b.Min.RequestsPerMinute, b.Max.RequestsPerMinute)
	l.CostPerMinute = clampField(l.CostPerMinute, b.Min.CostPerMinute, b.Max.CostPerMinute)
	l.BurstLimit = clampField(l.BurstLimit, b.Min.BurstLimit, b.Max.BurstLimit)
	return l
}

func clampField(v, min, max int64) int64 {
	if min < 1 {
		min = 1
	}
	if v < min {
		v = min
	}
	if max >= min && v > max {
		v = max
	}
	return v
}

// scale multiplies every field by factor, flooring at 1.
func (l Limits) scale(factor float64) Limits {
	return Limits{
		RequestsPerMinute: scaleField(l.RequestsPerMinute, factor),
		CostPerMinute:     scaleField(l.CostPerMinute, factor),
		BurstLimit:        scaleField(l.BurstLimit, factor),
	}
}

func scaleField(v int64, factor float64) int64 {
	scaled := int64(float64(v) * factor)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}
