package perf

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Stats holds the rolling aggregates for one operation name.
type Stats struct {
	Count    int64   `json:"count"`
	Failures int64   `json:"failures"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
}

// Monitor records duration and outcome for named operations.
//
// Monitor is thread-safe and cheap enough to wrap every downstream call.
type Monitor struct {
	stats  map[string]*Stats
	logger *slog.Logger
	mu     sync.Mutex
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		stats:  make(map[string]*Stats),
		logger: slog.Default().With("component", "telemetry.perf"),
	}
}

// Track runs op, records its duration and outcome under name, emits a
// structured performance log entry, and returns op's error unchanged.
func (m *Monitor) Track(ctx context.Context, name string, op func(context.Context) error) error {
	start := time.Now()
	err := op(ctx)
	m.Record(name, time.Since(start), err == nil)
	return err
}

// Track runs an operation returning a value under monitor m, with the
// same recording semantics as Monitor.Track.
func Track[T any](ctx context.Context, m *Monitor, name string, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := m.Track(ctx, name, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

// Record folds one observation into the named rolling stats.
func (m *Monitor) Record(name string, duration time.Duration, success bool) {
	durationMs := float64(duration) / float64(time.Millisecond)

	m.mu.Lock()
	s, exists := m.stats[name]
	if !exists {
		s = &Stats{MinMs: durationMs, MaxMs: durationMs}
		m.stats[name] = s
	}

	s.Count++
	if !success {
		s.Failures++
	}
	if durationMs < s.MinMs {
		s.MinMs = durationMs
	}
	if durationMs > s.MaxMs {
		s.MaxMs = durationMs
	}
	s.AvgMs = (s.AvgMs*float64(s.Count-1) + durationMs) / float64(s.Count)
	m.mu.Unlock()

	m.logger.Debug("operation completed",
		"operation", name,
		"duration_ms", durationMs,
		"success", success,
	)
}

// Stats returns a copy of the aggregates for one operation name.
func (m *Monitor) Stats(name string) (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.stats[name]
	if !exists {
		return Stats{}, false
	}
	return *s, true
}

// Snapshot returns a copy of all per-name aggregates.
func (m *Monitor) Snapshot() map[string]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]Stats, len(m.stats))
	for name, s := range m.stats {
		snapshot[name] = *s
	}
	return snapshot
}
