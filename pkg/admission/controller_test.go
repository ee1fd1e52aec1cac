package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Giftedx/chatterbot-gate/pkg/admission/adaptive"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/connpool"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/window"
)

func newTestController(cfg Config) *Controller {
	if cfg.Baseline == (adaptive.Limits{}) {
		cfg.Baseline = adaptive.Limits{RequestsPerMinute: 100, CostPerMinute: 50000, BurstLimit: 20}
	}
	return New(cfg)
}

// ============================================================================
// Rate Ceiling Tests
// ============================================================================

func TestController_AllowsWithinLimits(t *testing.T) {
	c := newTestController(Config{})
	defer c.Close()

	d := c.CheckRateLimit("alice", 100, KindStandard)
	if !d.Allowed {
		t.Fatalf("Expected allow, got denial: %s", d.Reason)
	}
	if d.SlotID == "" {
		t.Error("Allowed decision should carry a connection slot")
	}
	if d.Reason != "" || d.RetryAfter != 0 {
		t.Errorf("Allowed decision should carry no denial fields: %+v", d)
	}
}

func TestController_GlobalRateExhaustion(t *testing.T) {
	c := newTestController(Config{
		Baseline: adaptive.Limits{RequestsPerMinute: 3, CostPerMinute: 50000, BurstLimit: 20},
	})
	defer c.Close()

	for i := 0; i < 3; i++ {
		if d := c.CheckRateLimit("alice", 1, KindStandard); !d.Allowed {
			t.Fatalf("Request %d should be admitted, denied: %s", i+1, d.Reason)
		}
	}

	d := c.CheckRateLimit("alice", 1, KindStandard)
	if d.Allowed {
		t.Fatal("Fourth request should be denied")
	}
	if d.Reason != ReasonGlobalRate {
		t.Errorf("Expected reason %s, got %s", ReasonGlobalRate, d.Reason)
	}
	if d.RetryAfter < time.Second || d.RetryAfter > time.Minute {
		t.Errorf("Retry hint should be the remainder of the minute, got %v", d.RetryAfter)
	}
	if d.SlotID != "" {
		t.Error("Denied decision must not hold a connection slot")
	}
}

func TestController_CallerRateExhaustion(t *testing.T) {
	c := newTestController(Config{
		Caller: adaptive.Limits{RequestsPerMinute: 2, CostPerMinute: 5000, BurstLimit: 3},
	})
	defer c.Close()

	for i := 0; i < 2; i++ {
		if d := c.CheckRateLimit("alice", 1, KindStandard); !d.Allowed {
			t.Fatalf("Request %d should be admitted, denied: %s", i+1, d.Reason)
		}
	}

	d := c.CheckRateLimit("alice", 1, KindStandard)
	if d.Allowed || d.Reason != ReasonCallerRate {
		t.Fatalf("Expected caller-rate denial, got %+v", d)
	}

	// Another caller is unaffected by alice's ceiling.
	if d := c.CheckRateLimit("bob", 1, KindStandard); !d.Allowed {
		t.Errorf("Other caller should still be admitted, denied: %s", d.Reason)
	}
}

func TestController_CostExhaustion(t *testing.T) {
	c := newTestController(Config{
		Baseline: adaptive.Limits{RequestsPerMinute: 100, CostPerMinute: 1000, BurstLimit: 20},
	})
	defer c.Close()

	if d := c.CheckRateLimit("alice", 600, KindStandard); !d.Allowed {
		t.Fatalf("First request should be admitted, denied: %s", d.Reason)
	}

	// 600 consumed; another 400 would hit the 1000 ceiling.
	d := c.CheckRateLimit("alice", 400, KindStandard)
	if d.Allowed || d.Reason != ReasonGlobalCost {
		t.Fatalf("Expected global-cost denial, got %+v", d)
	}

	// A smaller request still fits under the ceiling.
	if d := c.CheckRateLimit("alice", 300, KindStandard); !d.Allowed {
		t.Errorf("Smaller request should be admitted, denied: %s", d.Reason)
	}
}

func TestController_BurstCeiling(t *testing.T) {
	c := newTestController(Config{
		Baseline: adaptive.Limits{RequestsPerMinute: 100, CostPerMinute: 50000, BurstLimit: 2},
	})
	defer c.Close()

	for i := 0; i < 2; i++ {
		if d := c.CheckRateLimit("alice", 1, KindBurst); !d.Allowed {
			t.Fatalf("Burst request %d should be admitted, denied: %s", i+1, d.Reason)
		}
	}

	d := c.CheckRateLimit("alice", 1, KindBurst)
	if d.Allowed || d.Reason != ReasonGlobalBurst {
		t.Fatalf("Expected global-burst denial, got %+v", d)
	}
	if d.RetryAfter != 60*time.Second {
		t.Errorf("Global burst retry hint should be 60s, got %v", d.RetryAfter)
	}

	// Standard requests bypass the burst ceiling.
	if d := c.CheckRateLimit("alice", 1, KindStandard); !d.Allowed {
		t.Errorf("Standard request should bypass the burst ceiling, denied: %s", d.Reason)
	}
}

func TestController_CallerBurstRetryHint(t *testing.T) {
	c := newTestController(Config{
		Caller: adaptive.Limits{RequestsPerMinute: 100, CostPerMinute: 50000, BurstLimit: 1},
	})
	defer c.Close()

	if d := c.CheckRateLimit("alice", 1, KindBurst); !d.Allowed {
		t.Fatalf("First burst request should be admitted, denied: %s", d.Reason)
	}

	d := c.CheckRateLimit("alice", 1, KindBurst)
	if d.Reason != ReasonCallerBurst {
		t.Fatalf("Expected caller-burst denial, got %+v", d)
	}
	if d.RetryAfter != 10*time.Second {
		t.Errorf("Caller burst retry hint should be 10s, got %v", d.RetryAfter)
	}
	if d.RetryAfterSeconds() != 10 {
		t.Errorf("Expected 10 whole seconds, got %d", d.RetryAfterSeconds())
	}
}

func TestController_MinuteRollover(t *testing.T) {
	c := newTestController(Config{
		Baseline: adaptive.Limits{RequestsPerMinute: 1, CostPerMinute: 50000, BurstLimit: 20},
	})
	defer c.Close()

	now := time.Date(2025, 3, 14, 9, 26, 10, 0, time.UTC)
	c.nowFn = func() time.Time { return now }

	if d := c.CheckRateLimit("alice", 1, KindStandard); !d.Allowed {
		t.Fatalf("First request should be admitted, denied: %s", d.Reason)
	}
	if d := c.CheckRateLimit("alice", 1, KindStandard); d.Allowed {
		t.Fatal("Second request in the same minute should be denied")
	}

	// Counters reset at the minute boundary.
	now = now.Add(time.Minute)
	if d := c.CheckRateLimit("alice", 1, KindStandard); !d.Allowed {
		t.Errorf("Request in the next minute should be admitted, denied: %s", d.Reason)
	}
}

// ============================================================================
// Connection Gate Tests
// ============================================================================

func TestController_ConnectionExhaustion(t *testing.T) {
	c := newTestController(Config{
		Pool: connpool.Config{MaxSize: 1},
	})
	defer c.Close()

	first := c.CheckRateLimit("alice", 1, KindStandard)
	if !first.Allowed {
		t.Fatalf("First request should be admitted, denied: %s", first.Reason)
	}

	d := c.CheckRateLimit("bob", 1, KindStandard)
	if d.Allowed || d.Reason != ReasonConnectionExhausted {
		t.Fatalf("Expected connection-exhausted denial, got %+v", d)
	}
	if d.RetryAfter != 5*time.Second {
		t.Errorf("Connection retry hint should be 5s, got %v", d.RetryAfter)
	}

	// Completing the in-flight call frees the slot.
	c.RecordCompletion(context.Background(), &Completion{
		CallerID: "alice",
		SlotID:   first.SlotID,
		Success:  true,
	})
	if d := c.CheckRateLimit("bob", 1, KindStandard); !d.Allowed {
		t.Errorf("Request after release should be admitted, denied: %s", d.Reason)
	}
}

// ============================================================================
// Completion Feedback Tests
// ============================================================================

func TestController_RecordCompletionUpdatesWindows(t *testing.T) {
	c := newTestController(Config{})
	defer c.Close()
	ctx := context.Background()

	d := c.CheckRateLimit("alice", 100, KindStandard)
	if !d.Allowed {
		t.Fatalf("Expected allow, got %+v", d)
	}

	c.RecordCompletion(ctx, &Completion{
		CallerID:  "alice",
		SlotID:    d.SlotID,
		LatencyMs: 1200,
		Success:   false,
		Cost:      150,
	})

	snap := c.GetMetrics()
	if snap.GlobalUsage.RequestCount != 1 {
		t.Errorf("Expected 1 request recorded, got %d", snap.GlobalUsage.RequestCount)
	}
	if snap.GlobalUsage.ErrorCount != 1 {
		t.Errorf("Expected 1 error recorded, got %d", snap.GlobalUsage.ErrorCount)
	}
	if snap.GlobalUsage.AvgLatencyMs != 1200 {
		t.Errorf("Expected avg latency 1200, got %v", snap.GlobalUsage.AvgLatencyMs)
	}
	if snap.GlobalUsage.SuccessRate != 0 {
		t.Errorf("Expected success rate 0, got %v", snap.GlobalUsage.SuccessRate)
	}
	if snap.ConnectionMetrics.Active != 0 {
		t.Errorf("Slot should be released, %d active", snap.ConnectionMetrics.Active)
	}
	if snap.RecentPerformance.SampleCount != 1 {
		t.Errorf("Tuner should hold 1 sample, got %d", snap.RecentPerformance.SampleCount)
	}
}

func TestController_AdaptiveTightening(t *testing.T) {
	c := newTestController(Config{
		Baseline:        adaptive.Limits{RequestsPerMinute: 100, CostPerMinute: 50000, BurstLimit: 20},
		AdaptiveEnabled: true,
		Adaptive:        adaptive.Config{MinInterval: time.Nanosecond},
	})
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d := c.CheckRateLimit("alice", 1, KindStandard)
		if !d.Allowed {
			t.Fatalf("Request %d should be admitted, denied: %s", i+1, d.Reason)
		}
		c.RecordCompletion(ctx, &Completion{
			CallerID:  "alice",
			SlotID:    d.SlotID,
			LatencyMs: 5000,
			Success:   false,
		})
	}

	snap := c.GetMetrics()
	if snap.CurrentLimits.RequestsPerMinute >= 100 {
		t.Errorf("Effective limit should have tightened below 100, got %d",
			snap.CurrentLimits.RequestsPerMinute)
	}
	if snap.AdaptiveMetrics.AdaptationCount == 0 {
		t.Error("Expected at least one adaptation record")
	}
	if snap.AdaptiveMetrics.LastAdaptationAt.IsZero() {
		t.Error("Expected a last-adaptation timestamp")
	}
}

func TestController_AdaptiveDisabled(t *testing.T) {
	c := newTestController(Config{
		Adaptive: adaptive.Config{MinInterval: time.Nanosecond},
	})
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d := c.CheckRateLimit("alice", 1, KindStandard)
		c.RecordCompletion(ctx, &Completion{
			CallerID: "alice", SlotID: d.SlotID, LatencyMs: 5000, Success: false,
		})
	}

	if got := c.Tuner().Limits().RequestsPerMinute; got != 100 {
		t.Errorf("Limits must not move when adaptation is disabled, got %d", got)
	}
}

// ============================================================================
// Snapshot Tests
// ============================================================================

func TestController_GetMetricsIdempotent(t *testing.T) {
	c := newTestController(Config{})
	defer c.Close()

	c.CheckRateLimit("alice", 100, KindStandard)

	first := c.GetMetrics()
	second := c.GetMetrics()
	if first.GlobalUsage != second.GlobalUsage {
		t.Errorf("Snapshots diverged with no writes: %+v vs %+v",
			first.GlobalUsage, second.GlobalUsage)
	}
}

func TestController_GetMetricsEmpty(t *testing.T) {
	c := newTestController(Config{})
	defer c.Close()

	snap := c.GetMetrics()
	if snap.GlobalUsage.RequestCount != 0 {
		t.Errorf("Fresh controller should report zero usage, got %d", snap.GlobalUsage.RequestCount)
	}
	if snap.GlobalUsage.SuccessRate != 1.0 {
		t.Errorf("Empty window should read fully healthy, got %v", snap.GlobalUsage.SuccessRate)
	}
	if snap.CurrentLimits.RequestsPerMinute != 100 {
		t.Errorf("Expected baseline limits, got %+v", snap.CurrentLimits)
	}
}

// ============================================================================
// Fail-Open Tests
// ============================================================================

// brokenBackend fails every operation, simulating a storage outage.
type brokenBackend struct{}

func (brokenBackend) Get(ctx context.Context, scope string, minute int64) (*window.RateWindow, error) {
	return nil, errors.New("backend down")
}
func (brokenBackend) Set(ctx context.Context, w *window.RateWindow) error {
	return errors.New("backend down")
}
func (brokenBackend) Delete(ctx context.Context, scope string, minute int64) error {
	return errors.New("backend down")
}
func (brokenBackend) List(ctx context.Context) ([]*window.RateWindow, error) {
	return nil, errors.New("backend down")
}
func (brokenBackend) Close() error { return nil }

func TestController_FailsOpenOnBackendError(t *testing.T) {
	c := newTestController(Config{
		Baseline: adaptive.Limits{RequestsPerMinute: 1, CostPerMinute: 1, BurstLimit: 1},
		Backend:  brokenBackend{},
	})
	defer c.Close()

	// With storage down the rate checks cannot run; availability wins.
	for i := 0; i < 5; i++ {
		d := c.CheckRateLimit("alice", 1000, KindBurst)
		if !d.Allowed {
			t.Fatalf("Request %d should fail open, denied: %s", i+1, d.Reason)
		}
	}
}

// ============================================================================
// Default Bounds Tests
// ============================================================================

func TestDefaultBounds(t *testing.T) {
	baseline := adaptive.Limits{RequestsPerMinute: 100, CostPerMinute: 50000, BurstLimit: 20}

	b := defaultBounds(baseline, adaptive.Bounds{})
	if b.Min.RequestsPerMinute != 10 || b.Max.RequestsPerMinute != 200 {
		t.Errorf("Unexpected rpm bounds: [%d, %d]", b.Min.RequestsPerMinute, b.Max.RequestsPerMinute)
	}
	if b.Min.BurstLimit != 2 || b.Max.BurstLimit != 40 {
		t.Errorf("Unexpected burst bounds: [%d, %d]", b.Min.BurstLimit, b.Max.BurstLimit)
	}

	// Tiny baselines floor at 1.
	small := defaultBounds(adaptive.Limits{RequestsPerMinute: 5}, adaptive.Bounds{})
	if small.Min.RequestsPerMinute != 1 {
		t.Errorf("Expected floor of 1, got %d", small.Min.RequestsPerMinute)
	}

	// Explicit bounds are preserved.
	explicit := defaultBounds(baseline, adaptive.Bounds{
		Min: adaptive.Limits{RequestsPerMinute: 50, CostPerMinute: 1, BurstLimit: 1},
		Max: adaptive.Limits{RequestsPerMinute: 120, CostPerMinute: 1, BurstLimit: 1},
	})
	if explicit.Min.RequestsPerMinute != 50 || explicit.Max.RequestsPerMinute != 120 {
		t.Errorf("Explicit bounds overwritten: [%d, %d]",
			explicit.Min.RequestsPerMinute, explicit.Max.RequestsPerMinute)
	}
}
