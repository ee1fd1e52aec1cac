package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestChecker_NoProbes(t *testing.T) {
	c := New(0)

	status := c.CheckAll(context.Background())
	if status.Status != StatusHealthy {
		t.Errorf("Empty checker should be healthy, got %s", status.Status)
	}
	if len(status.Checks) != 0 {
		t.Errorf("Expected no check results, got %d", len(status.Checks))
	}
	if status.Timestamp.IsZero() {
		t.Error("Expected a timestamp")
	}
}

func TestChecker_AllHealthy(t *testing.T) {
	c := New(0)
	c.Register("windows", func(ctx context.Context) error { return nil })
	c.Register("pool", func(ctx context.Context) error { return nil })

	status := c.CheckAll(context.Background())
	if status.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Fatalf("Expected 2 check results, got %d", len(status.Checks))
	}
	for name, result := range status.Checks {
		if result.Status != StatusHealthy {
			t.Errorf("Check %s should be healthy: %+v", name, result)
		}
	}
}

func TestChecker_OneFailureIsUnhealthy(t *testing.T) {
	c := New(0)
	c.Register("ok", func(ctx context.Context) error { return nil })
	c.Register("broken", func(ctx context.Context) error {
		return errors.New("storage unreachable")
	})

	status := c.CheckAll(context.Background())
	if status.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", status.Status)
	}
	if status.Checks["ok"].Status != StatusHealthy {
		t.Error("Passing probe should still report healthy")
	}
	broken := status.Checks["broken"]
	if broken.Status != StatusUnhealthy || broken.Error != "storage unreachable" {
		t.Errorf("Unexpected failing check result: %+v", broken)
	}
}

func TestChecker_ProbeTimeout(t *testing.T) {
	c := New(50 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	status := c.CheckAll(context.Background())
	if status.Status != StatusUnhealthy {
		t.Fatalf("Slow probe should time out, got %s", status.Status)
	}
	if !strings.Contains(status.Checks["slow"].Error, "timeout") {
		t.Errorf("Expected a timeout error, got %q", status.Checks["slow"].Error)
	}
}

func TestChecker_ProbePanic(t *testing.T) {
	c := New(0)
	c.Register("panicky", func(ctx context.Context) error {
		panic("unexpected state")
	})

	status := c.CheckAll(context.Background())
	if status.Status != StatusUnhealthy {
		t.Fatalf("Panicking probe should be unhealthy, got %s", status.Status)
	}
	if !strings.Contains(status.Checks["panicky"].Error, "panicked") {
		t.Errorf("Expected a panic error, got %q", status.Checks["panicky"].Error)
	}
}

func TestChecker_RegisterReplacesAndUnregister(t *testing.T) {
	c := New(0)
	c.Register("component", func(ctx context.Context) error {
		return errors.New("old probe")
	})
	c.Register("component", func(ctx context.Context) error { return nil })

	if status := c.CheckAll(context.Background()); status.Status != StatusHealthy {
		t.Error("Re-registering should replace the probe")
	}

	c.Unregister("component")
	if status := c.CheckAll(context.Background()); len(status.Checks) != 0 {
		t.Error("Unregistered probe should not run")
	}
}
