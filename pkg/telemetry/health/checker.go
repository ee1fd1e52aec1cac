package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Probe performs a health check for one component. It returns nil when the
// component is healthy, or an error describing the problem.
type Probe func(ctx context.Context) error

// Overall and per-check status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckResult is the outcome of a single probe.
type CheckResult struct {
	// Status is "healthy" or "unhealthy".
	Status string `json:"status"`

	// Error describes the failure for unhealthy checks.
	Error string `json:"error,omitempty"`

	// DurationMs is how long the probe took.
	DurationMs float64 `json:"duration_ms"`
}

// Status is the aggregated health of the system.
type Status struct {
	// Status is "healthy" only if every probe passed.
	Status string `json:"status"`

	// Checks contains the per-component results.
	Checks map[string]CheckResult `json:"checks"`

	// Timestamp is when the aggregation was performed.
	Timestamp time.Time `json:"timestamp"`
}

// DefaultProbeTimeout bounds each individual probe.
const DefaultProbeTimeout = 5 * time.Second

// Checker manages named health probes.
type Checker struct {
	probes       map[string]Probe
	probeTimeout time.Duration
	mu           sync.RWMutex
}

// New creates a checker with the given per-probe timeout.
// A zero timeout defaults to DefaultProbeTimeout.
func New(probeTimeout time.Duration) *Checker {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	return &Checker{
		probes:       make(map[string]Probe),
		probeTimeout: probeTimeout,
	}
}

// Register adds a probe for a named component, replacing any existing
// probe with the same name.
func (c *Checker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.probes[name] = probe
}

// Unregister removes the probe for a named component.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.probes, name)
}

// CheckAll runs every registered probe concurrently and aggregates the
// results. The overall status is unhealthy if any probe fails, times out,
// or panics. With no probes registered the system is healthy by default.
func (c *Checker) CheckAll(ctx context.Context) Status {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(probes))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe Probe) {
			defer wg.Done()

			result := c.runProbe(ctx, probe)

			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
		}(name, probe)
	}

	wg.Wait()

	status := StatusHealthy
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			status = StatusUnhealthy
		}
	}

	return Status{
		Status:    status,
		Checks:    results,
		Timestamp: time.Now(),
	}
}

// runProbe executes one probe with the configured timeout and panic
// recovery.
func (c *Checker) runProbe(ctx context.Context, probe Probe) (result CheckResult) {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = CheckResult{
				Status:     StatusUnhealthy,
				Error:      fmt.Sprintf("probe panicked: %v", r),
				DurationMs: float64(time.Since(start)) / float64(time.Millisecond),
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("probe panicked: %v", r)
			}
		}()
		done <- probe(probeCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-probeCtx.Done():
		err = fmt.Errorf("health probe timeout after %s", c.probeTimeout)
	}

	result = CheckResult{
		Status:     StatusHealthy,
		DurationMs: float64(time.Since(start)) / float64(time.Millisecond),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}

	return result
}
