package circuit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation; calls pass through.
	StateOpen                  // Failing; calls are rejected immediately.
	StateHalfOpen              // Probing; one trial call tests recovery.
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Default breaker parameters.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 30 * time.Second
	DefaultMonitoringWindow = 60 * time.Second
)

// Config configures a Breaker.
type Config struct {
	// FailureThreshold is how many failures within the monitoring window
	// open the circuit. Default: DefaultFailureThreshold.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a half-open
	// trial. Default: DefaultResetTimeout.
	ResetTimeout time.Duration

	// MonitoringWindow bounds how long failures are counted toward the
	// threshold. Default: DefaultMonitoringWindow.
	MonitoringWindow time.Duration
}

// applyDefaults fills zero-valued fields.
func (c *Config) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.MonitoringWindow <= 0 {
		c.MonitoringWindow = DefaultMonitoringWindow
	}
}

// OpenError is returned when a call is attempted while the circuit is
// open or while a half-open trial is already in flight.
type OpenError struct {
	// Resource is the breaker's name.
	Resource string
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Resource)
}

// IsOpen reports whether err is a circuit-open rejection.
func IsOpen(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}

// Breaker is a failure-isolation state machine for one named resource.
//
// Breaker is thread-safe. All state transitions happen under a single
// mutex; the wrapped operation itself runs outside the lock.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger

	mu             sync.Mutex
	state          State
	failureCount   int
	firstFailureAt time.Time
	openedAt       time.Time
	trialInFlight  bool

	// nowFn is replaceable in tests.
	nowFn func() time.Time
}

// NewBreaker creates a closed breaker for the named resource.
func NewBreaker(name string, cfg Config) *Breaker {
	cfg.applyDefaults()

	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit", "resource", name),
		state:  StateClosed,
		nowFn:  time.Now,
	}
}

// Name returns the breaker's resource name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, applying any due open-to-half-open
// transition first.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.nowFn().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs op under the breaker. While open it returns *OpenError
// without invoking op. The operation's own error is passed through
// unchanged.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if !b.allow() {
		return &OpenError{Resource: b.name}
	}

	err := op(ctx)
	b.record(err == nil)
	return err
}

// Do runs an operation returning a value under the breaker b.
func Do[T any](ctx context.Context, b *Breaker, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

// Reset forces the breaker back to closed. For tests and manual recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
	b.firstFailureAt = time.Time{}
	b.trialInFlight = false
}

// allow decides whether a call may proceed, applying the open-to-half-open
// transition when the reset timeout has elapsed.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.nowFn().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		b.logger.Info("circuit half-open, admitting trial call")
		return true

	case StateHalfOpen:
		// Exactly one trial at a time; concurrent arrivals fail fast.
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true

	default:
		return false
	}
}

// record applies the outcome of an executed call.
func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFn()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
		if success {
			b.state = StateClosed
			b.failureCount = 0
			b.firstFailureAt = time.Time{}
			b.logger.Info("circuit closed after successful trial")
		} else {
			b.state = StateOpen
			b.openedAt = now
			b.logger.Warn("circuit re-opened after failed trial")
		}
		return
	}

	if success {
		b.failureCount = 0
		b.firstFailureAt = time.Time{}
		return
	}

	// Failures outside the monitoring window restart the count.
	if b.firstFailureAt.IsZero() || now.Sub(b.firstFailureAt) > b.cfg.MonitoringWindow {
		b.failureCount = 1
		b.firstFailureAt = now
	} else {
		b.failureCount++
	}

	if b.state == StateClosed && b.failureCount >= b.cfg.FailureThreshold {
		b.state = StateOpen
		b.openedAt = now
		b.logger.Warn("circuit opened",
			"failure_count", b.failureCount,
			"reset_timeout", b.cfg.ResetTimeout,
		)
	}
}
