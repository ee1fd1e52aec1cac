package window

import (
	"context"
	"time"
)

// GlobalScope is the scope key used for the single process-wide window.
// Caller windows use the caller identifier as their scope.
const GlobalScope = "global"

// DefaultRetentionMinutes is how many minutes of stale windows are kept
// before purging.
const DefaultRetentionMinutes = 5

// RateWindow holds the counters for one (scope, minute) pair.
//
// AvgLatencyMs and SuccessRate are incremental weighted averages over the
// requests recorded in this window. SuccessRate starts at 1.0 so a window
// with no recorded outcomes reads as fully healthy.
type RateWindow struct {
	// Scope is the global scope or a caller identifier.
	Scope string `json:"scope"`

	// Minute is the window's minute key (Unix time / 60).
	Minute int64 `json:"minute"`

	// RequestCount is the number of requests admitted in this minute.
	RequestCount int64 `json:"request_count"`

	// CostCount is the estimated cost (e.g. tokens) admitted in this minute.
	CostCount int64 `json:"cost_count"`

	// ErrorCount is the number of failed completions in this minute.
	ErrorCount int64 `json:"error_count"`

	// AvgLatencyMs is the rolling average completion latency.
	AvgLatencyMs float64 `json:"avg_latency_ms"`

	// SuccessRate is the rolling success rate (0.0-1.0).
	SuccessRate float64 `json:"success_rate"`
}

// MinuteOf returns the minute key for a point in time.
func MinuteOf(t time.Time) int64 {
	return t.Unix() / 60
}

// SecondsRemaining returns how many seconds are left in t's minute.
// The result is always in [1, 60].
func SecondsRemaining(t time.Time) int64 {
	remaining := 60 - t.Unix()%60
	if remaining <= 0 {
		remaining = 60
	}
	return remaining
}

// newWindow creates an empty window for a scope and minute.
func newWindow(scope string, minute int64) *RateWindow {
	return &RateWindow{
		Scope:       scope,
		Minute:      minute,
		SuccessRate: 1.0,
	}
}

// clone returns a copy so callers cannot mutate stored state.
func (w *RateWindow) clone() *RateWindow {
	c := *w
	return &c
}

// Backend is the storage interface for rate windows.
//
// Implementations must be safe for concurrent use. Get returns nil (not an
// error) when no window exists for the key. List returns every stored
// window; it is only called from the purge path, never per-request.
type Backend interface {
	Get(ctx context.Context, scope string, minute int64) (*RateWindow, error)
	Set(ctx context.Context, w *RateWindow) error
	Delete(ctx context.Context, scope string, minute int64) error
	List(ctx context.Context) ([]*RateWindow, error)
	Close() error
}
