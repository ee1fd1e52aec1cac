package window

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend implements Backend using an in-process map.
// This is the default backend. All state is lost when the process exits.
//
// MemoryBackend is thread-safe using sync.RWMutex. Get and Set copy
// windows so callers never alias stored state.
type MemoryBackend struct {
	windows map[string]*RateWindow
	mu      sync.RWMutex
}

// NewMemoryBackend creates a new in-memory window backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		windows: make(map[string]*RateWindow),
	}
}

// Get retrieves the window for (scope, minute). Returns nil if absent.
func (m *MemoryBackend) Get(ctx context.Context, scope string, minute int64) (*RateWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, exists := m.windows[memoryKey(scope, minute)]
	if !exists {
		return nil, nil
	}
	return w.clone(), nil
}

// Set stores the window, overwriting any existing entry.
func (m *MemoryBackend) Set(ctx context.Context, w *RateWindow) error {
	if w == nil {
		return fmt.Errorf("window cannot be nil")
	}
	if w.Scope == "" {
		return fmt.Errorf("scope cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.windows[memoryKey(w.Scope, w.Minute)] = w.clone()
	return nil
}

// Delete removes the window for (scope, minute). No-op if absent.
func (m *MemoryBackend) Delete(ctx context.Context, scope string, minute int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.windows, memoryKey(scope, minute))
	return nil
}

// List returns copies of all stored windows.
func (m *MemoryBackend) List(ctx context.Context) ([]*RateWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	windows := make([]*RateWindow, 0, len(m.windows))
	for _, w := range m.windows {
		windows = append(windows, w.clone())
	}
	return windows, nil
}

// Close releases resources. No-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}

// Size returns the number of stored windows. Useful for tests and metrics.
func (m *MemoryBackend) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows)
}

// memoryKey creates the composite map key for a scope and minute.
func memoryKey(scope string, minute int64) string {
	return fmt.Sprintf("%s:%d", scope, minute)
}
