package window

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "gate.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestSQLiteBackend_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteBackend(""); err == nil {
		t.Error("Expected an error for an empty path")
	}
}

func TestSQLiteBackend_SetGet(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()

	w := &RateWindow{
		Scope:        "caller-1",
		Minute:       100,
		RequestCount: 5,
		CostCount:    1200,
		ErrorCount:   1,
		AvgLatencyMs: 350.5,
		SuccessRate:  0.8,
	}
	if err := backend.Set(ctx, w); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := backend.Get(ctx, "caller-1", 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a stored window")
	}
	if *got != *w {
		t.Errorf("Round trip mismatch: stored %+v, got %+v", w, got)
	}
}

func TestSQLiteBackend_GetMissing(t *testing.T) {
	backend := newTestSQLiteBackend(t)

	got, err := backend.Get(context.Background(), GlobalScope, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("Expected nil for a missing window")
	}
}

func TestSQLiteBackend_Upsert(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()

	w := &RateWindow{Scope: GlobalScope, Minute: 50, RequestCount: 1, SuccessRate: 1.0}
	if err := backend.Set(ctx, w); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	w.RequestCount = 2
	if err := backend.Set(ctx, w); err != nil {
		t.Fatalf("Second Set failed: %v", err)
	}

	got, _ := backend.Get(ctx, GlobalScope, 50)
	if got.RequestCount != 2 {
		t.Errorf("Expected updated count 2, got %d", got.RequestCount)
	}
}

func TestSQLiteBackend_DeleteAndList(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()

	for _, minute := range []int64{10, 11, 12} {
		if err := backend.Set(ctx, &RateWindow{Scope: GlobalScope, Minute: minute, SuccessRate: 1.0}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := backend.Delete(ctx, GlobalScope, 11); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	windows, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(windows) != 2 {
		t.Errorf("Expected 2 windows after delete, got %d", len(windows))
	}
	for _, w := range windows {
		if w.Minute == 11 {
			t.Error("Deleted window still listed")
		}
	}
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.db")
	ctx := context.Background()

	first, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	if err := first.Set(ctx, &RateWindow{Scope: GlobalScope, Minute: 7, RequestCount: 3, SuccessRate: 1.0}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("Failed to reopen backend: %v", err)
	}
	defer second.Close()

	got, err := second.Get(ctx, GlobalScope, 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.RequestCount != 3 {
		t.Errorf("Counters should survive a restart, got %+v", got)
	}
}
