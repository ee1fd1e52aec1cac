package window

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store provides the window-level operations used by the admission
// controller: create-if-absent touch, request/cost increments, outcome
// recording, and retention purging.
//
// Every mutation is a read-modify-write against the backend, serialized by
// an internal mutex. With the memory backend this is exact; with a shared
// backend (Redis) two processes can interleave between read and write, a
// known and accepted slack of the check-then-record design.
type Store struct {
	backend Backend
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewStore creates a store over the given backend.
// A nil backend defaults to in-memory storage.
func NewStore(backend Backend) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Store{
		backend: backend,
		logger:  slog.Default().With("component", "admission.window"),
	}
}

// Touch returns the window for (scope, minute), creating it if absent.
func (s *Store) Touch(ctx context.Context, scope string, minute int64) (*RateWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.touchLocked(ctx, scope, minute)
}

// Peek returns a copy of the window for (scope, minute) without creating
// it. A missing window is returned as an empty window rather than nil, so
// read-only callers (metrics snapshots) see zero usage.
func (s *Store) Peek(ctx context.Context, scope string, minute int64) (*RateWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.backend.Get(ctx, scope, minute)
	if err != nil {
		return nil, fmt.Errorf("window peek %s/%d: %w", scope, minute, err)
	}
	if w == nil {
		return newWindow(scope, minute), nil
	}
	return w.clone(), nil
}

// Increment adds one request and the estimated cost to (scope, minute).
func (s *Store) Increment(ctx context.Context, scope string, minute int64, cost int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.touchLocked(ctx, scope, minute)
	if err != nil {
		return err
	}

	w.RequestCount++
	w.CostCount += cost

	if err := s.backend.Set(ctx, w); err != nil {
		return fmt.Errorf("window increment %s/%d: %w", scope, minute, err)
	}
	return nil
}

// UpdateOutcome folds a completion outcome into the window's rolling
// averages. The incremental weighted update is
//
//	avg' = (avg*(n-1) + sample) / n
//
// where n is the window's request count at the time of the update
// (minimum 1).
func (s *Store) UpdateOutcome(ctx context.Context, scope string, minute int64, latencyMs float64, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.touchLocked(ctx, scope, minute)
	if err != nil {
		return err
	}

	n := float64(w.RequestCount)
	if n < 1 {
		n = 1
	}

	w.AvgLatencyMs = (w.AvgLatencyMs*(n-1) + latencyMs) / n

	sample := 0.0
	if success {
		sample = 1.0
	} else {
		w.ErrorCount++
	}
	w.SuccessRate = (w.SuccessRate*(n-1) + sample) / n

	if err := s.backend.Set(ctx, w); err != nil {
		return fmt.Errorf("window outcome %s/%d: %w", scope, minute, err)
	}
	return nil
}

// PurgeOlderThan deletes every window with a minute key strictly older
// than cutoffMinute, across all scopes. Returns the number purged.
//
// This runs on the maintenance schedule, not on the request path.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoffMinute int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	windows, err := s.backend.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("window purge list: %w", err)
	}

	purged := 0
	for _, w := range windows {
		if w.Minute < cutoffMinute {
			if err := s.backend.Delete(ctx, w.Scope, w.Minute); err != nil {
				s.logger.Warn("failed to purge window",
					"scope", w.Scope,
					"minute", w.Minute,
					"error", err,
				)
				continue
			}
			purged++
		}
	}

	if purged > 0 {
		s.logger.Debug("purged stale windows",
			"purged", purged,
			"cutoff_minute", cutoffMinute,
		)
	}

	return purged, nil
}

// Close releases the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// touchLocked is the create-if-absent lookup. Caller must hold the mutex.
func (s *Store) touchLocked(ctx context.Context, scope string, minute int64) (*RateWindow, error) {
	w, err := s.backend.Get(ctx, scope, minute)
	if err != nil {
		return nil, fmt.Errorf("window touch %s/%d: %w", scope, minute, err)
	}
	if w == nil {
		w = newWindow(scope, minute)
		if err := s.backend.Set(ctx, w); err != nil {
			return nil, fmt.Errorf("window create %s/%d: %w", scope, minute, err)
		}
	}
	return w, nil
}
