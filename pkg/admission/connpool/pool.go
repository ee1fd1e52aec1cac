package connpool

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSize is the default concurrency ceiling.
const DefaultMaxSize = 10

// DefaultIdleTimeout is how long a slot may sit unreleased before the
// sweep reclaims it.
const DefaultIdleTimeout = 5 * time.Minute

// Slot represents one admitted in-flight downstream call.
type Slot struct {
	// ID uniquely identifies the slot for release.
	ID string `json:"id"`

	// CreatedAt is when the slot was acquired.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is the last time the slot was touched.
	LastUsedAt time.Time `json:"last_used_at"`
}

// Config configures the pool.
type Config struct {
	// MaxSize is the concurrency ceiling. Default: DefaultMaxSize.
	MaxSize int

	// IdleTimeout is how long an unreleased slot survives before the
	// sweep evicts it. Default: DefaultIdleTimeout.
	IdleTimeout time.Duration
}

// Metrics is a read-only snapshot of pool state.
type Metrics struct {
	Active      int     `json:"active"`
	Max         int     `json:"max"`
	Utilization float64 `json:"utilization"`
}

// Pool tracks in-flight downstream calls against a concurrency ceiling.
//
// Pool is thread-safe. Mutation happens only through the admission
// controller; no other component writes to it.
type Pool struct {
	maxSize     int
	idleTimeout time.Duration
	slots       map[string]*Slot
	logger      *slog.Logger
	mu          sync.Mutex

	nowFn func() time.Time
}

// New creates a pool with the given configuration.
func New(cfg Config) *Pool {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	return &Pool{
		maxSize:     cfg.MaxSize,
		idleTimeout: cfg.IdleTimeout,
		slots:       make(map[string]*Slot),
		logger:      slog.Default().With("component", "admission.connpool"),
		nowFn:       time.Now,
	}
}

// TryAcquire attempts to admit a new in-flight call.
// Returns the slot and true, or nil and false when at the ceiling.
//
// On true, the caller MUST release the slot via Release when the call
// completes; the idle sweep eventually reclaims leaked slots.
func (p *Pool) TryAcquire() (*Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.slots) >= p.maxSize {
		return nil, false
	}

	now := p.nowFn()
	slot := &Slot{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastUsedAt: now,
	}
	p.slots[slot.ID] = slot

	return slot, true
}

// Release frees the slot with the given ID. No-op for unknown IDs, so a
// late release after an idle eviction is harmless.
func (p *Pool) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.slots, id)
}

// Touch refreshes a slot's LastUsedAt so long-running calls are not swept.
func (p *Pool) Touch(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot, exists := p.slots[id]; exists {
		slot.LastUsedAt = p.nowFn()
	}
}

// EvictIdle removes slots idle longer than the idle timeout and returns
// how many were evicted. Runs on the maintenance schedule.
func (p *Pool) EvictIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.nowFn().Add(-p.idleTimeout)
	evicted := 0
	for id, slot := range p.slots {
		if slot.LastUsedAt.Before(cutoff) {
			delete(p.slots, id)
			evicted++
		}
	}

	if evicted > 0 {
		p.logger.Warn("evicted idle connection slots",
			"evicted", evicted,
			"idle_timeout", p.idleTimeout,
		)
	}

	return evicted
}

// Active returns the number of in-flight slots.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Metrics returns a snapshot of pool utilization.
func (p *Pool) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Metrics{
		Active:      len(p.slots),
		Max:         p.maxSize,
		Utilization: float64(len(p.slots)) / float64(p.maxSize),
	}
}
