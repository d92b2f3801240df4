package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without calling the guarded function while the
// breaker is open or its half-open probe budget is spent.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // requests pass through
	StateOpen                  // requests fail immediately
	StateHalfOpen              // a limited number of probes pass through
)

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

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold    int           // consecutive failures that open the circuit
	SuccessThreshold    int           // half-open successes needed to close it again
	OpenTimeout         time.Duration // time spent open before probing
	MaxRequestsHalfOpen int           // concurrent probes allowed while half-open
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		OpenTimeout:         30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

// Option customizes a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// WithFailurePredicate decides which errors count against the breaker.
// Errors it rejects are returned to the caller but recorded as successes.
func WithFailurePredicate(isFailure func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.isFailure = isFailure }
}

// WithStateChangeHook is called synchronously, outside the lock, after every transition.
func WithStateChangeHook(fn func(from, to State)) Option {
	return func(cb *CircuitBreaker) { cb.onStateChange = fn }
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	config        Config
	now           func() time.Time
	isFailure     func(error) bool
	onStateChange func(from, to State)

	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	halfOpenRequests int
	stateChangeTime  time.Time
}

func New(config Config, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		config:    config,
		now:       time.Now,
		isFailure: func(err error) bool { return err != nil },
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.stateChangeTime = cb.now()
	return cb
}

// Execute runs fn through the breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Execute runs fn through cb and returns its result. fn's error is
// returned unchanged so callers can keep matching on it.
func Execute[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	halfOpen, transition, ok := cb.admit()
	cb.notify(transition)
	if !ok {
		return zero, ErrOpen
	}

	result, err := fn(ctx)
	// Cancellation says nothing about the dependency's health.
	failed := err != nil && cb.isFailure(err) && ctx.Err() == nil
	cb.notify(cb.record(failed, halfOpen))
	return result, err
}

type transition struct {
	from, to State
	changed  bool
}

func (cb *CircuitBreaker) admit() (halfOpen bool, t transition, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.stateChangeTime) >= cb.config.OpenTimeout {
		t = cb.transitionTo(StateHalfOpen)
	}

	switch cb.state {
	case StateOpen:
		return false, t, false
	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.config.MaxRequestsHalfOpen {
			return false, t, false
		}
		cb.halfOpenRequests++
		return true, t, true
	default:
		return false, t, true
	}
}

func (cb *CircuitBreaker) record(failed, halfOpen bool) transition {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if halfOpen && cb.state == StateHalfOpen && cb.halfOpenRequests > 0 {
		cb.halfOpenRequests--
	}

	if failed {
		cb.successCount = 0
		cb.failureCount++
		switch {
		case cb.state == StateHalfOpen:
			return cb.transitionTo(StateOpen)
		case cb.state == StateClosed && cb.failureCount >= cb.config.FailureThreshold:
			return cb.transitionTo(StateOpen)
		}
		return transition{}
	}

	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			return cb.transitionTo(StateClosed)
		}
	}
	return transition{}
}

// transitionTo must be called with mu held.
func (cb *CircuitBreaker) transitionTo(next State) transition {
	if cb.state == next {
		return transition{}
	}
	t := transition{from: cb.state, to: next, changed: true}
	cb.state = next
	cb.stateChangeTime = cb.now()
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenRequests = 0
	return t
}

func (cb *CircuitBreaker) notify(t transition) {
	if t.changed && cb.onStateChange != nil {
		cb.onStateChange(t.from, t.to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats holds circuit breaker statistics
type Stats struct {
	State            State
	FailureCount     int
	SuccessCount     int
	HalfOpenRequests int
	StateChangeTime  time.Time
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		State:            cb.state,
		FailureCount:     cb.failureCount,
		SuccessCount:     cb.successCount,
		HalfOpenRequests: cb.halfOpenRequests,
		StateChangeTime:  cb.stateChangeTime,
	}
}

// Reset forces the breaker back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	t := cb.transitionTo(StateClosed)
	cb.mu.Unlock()
	cb.notify(t)
}
