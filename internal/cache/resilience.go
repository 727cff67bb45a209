package cache

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/facttools/factmemory/internal/telemetry"
)

// BreakerState represents the circuit breaker state.
type BreakerState string

const (
	// StateClosed means calls flow through normally.
	StateClosed BreakerState = "closed"

	// StateOpen means calls are rejected until the timeout elapses.
	StateOpen BreakerState = "open"

	// StateHalfOpen means a limited number of trial calls are allowed.
	StateHalfOpen BreakerState = "half-open"
)

// BreakerConfig holds circuit breaker tuning parameters.
type BreakerConfig struct {
	// FailureThreshold is how many consecutive failures open the breaker.
	FailureThreshold int

	// Timeout is how long the breaker stays open before allowing trials.
	Timeout time.Duration

	// SuccessThreshold is how many consecutive successes close the breaker
	// again from half-open.
	SuccessThreshold int
}

// DefaultBreakerConfig returns the default circuit breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		SuccessThreshold: 3,
	}
}

// CircuitBreaker protects the cache from repeated failures. After
// FailureThreshold consecutive failures it opens and rejects calls; after
// Timeout it lets trial calls through, and SuccessThreshold consecutive
// successes close it again. Any failure while half-open reopens it.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time

	collector *telemetry.MetricsCollector
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig, collector *telemetry.MetricsCollector) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBreakerConfig().Timeout
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultBreakerConfig().SuccessThreshold
	}
	if collector == nil {
		collector = telemetry.NewMetricsCollector()
	}

	return &CircuitBreaker{
		cfg:       cfg,
		state:     StateClosed,
		collector: collector,
	}
}

// State returns the current breaker state, applying the open→half-open
// transition when the timeout has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() BreakerState {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.cfg.Timeout {
		cb.state = StateHalfOpen
		cb.successes = 0
		slog.Info("Circuit breaker transitioned to half-open")
	}
	return cb.state
}

// Allow reports whether a call may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.stateLocked() == StateOpen {
		cb.collector.IncrementCounter(telemetry.MetricBreakerRejected, 1)
		return false
	}
	return true
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.stateLocked() == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.successes = 0
			slog.Info("Circuit breaker closed after successful trials")
		}
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.stateLocked()

	if state == StateHalfOpen {
		cb.openLocked()
		return
	}

	cb.failures++
	if cb.failures >= cb.cfg.FailureThreshold {
		cb.openLocked()
	}
}

func (cb *CircuitBreaker) openLocked() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.failures = 0
	cb.successes = 0
	cb.collector.IncrementCounter(telemetry.MetricBreakerOpened, 1)
	slog.Warn("Circuit breaker opened", "timeout", cb.cfg.Timeout)
}

// IsOpen reports whether the breaker is currently rejecting calls.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// IsClosed reports whether the breaker is fully closed.
func (cb *CircuitBreaker) IsClosed() bool {
	return cb.State() == StateClosed
}

// Backend is the cache surface the resilience wrapper protects.
// *Manager implements it; tests substitute failing backends.
type Backend interface {
	GenerateHash(query string) string
	Get(queryHash string) *Entry
	Store(queryHash, content string) (*Entry, error)
	GetMetrics() Metrics
}

// ResilientCache wraps a cache backend with a circuit breaker so cache
// failures degrade to misses instead of cascading.
type ResilientCache struct {
	manager Backend
	breaker *CircuitBreaker
}

// NewResilientCache creates a resilient cache wrapper.
func NewResilientCache(manager Backend, breaker *CircuitBreaker) *ResilientCache {
	return &ResilientCache{
		manager: manager,
		breaker: breaker,
	}
}

// GenerateHash delegates to the underlying manager.
func (r *ResilientCache) GenerateHash(query string) string {
	return r.manager.GenerateHash(query)
}

// Get retrieves an entry through the breaker. While the breaker is open it
// returns ErrCircuitOpen; a nil entry with nil error is an ordinary miss.
func (r *ResilientCache) Get(queryHash string) (*Entry, error) {
	if !r.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	entry := r.manager.Get(queryHash)
	r.breaker.RecordSuccess()
	return entry, nil
}

// Store stores content through the breaker. Rejections for content that is
// too small or a full cache are policy outcomes, not cache failures, so
// they do not trip the breaker.
func (r *ResilientCache) Store(queryHash, content string) (*Entry, error) {
	if !r.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	entry, err := r.manager.Store(queryHash, content)
	if err != nil {
		if errors.Is(err, ErrMinTokens) || errors.Is(err, ErrCacheFull) ||
			errors.Is(err, ErrEmptyPrefix) || errors.Is(err, ErrEmptyContent) {
			r.breaker.RecordSuccess()
		} else {
			r.breaker.RecordFailure()
		}
		return nil, err
	}

	r.breaker.RecordSuccess()
	return entry, nil
}

// Breaker exposes the circuit breaker for health reporting.
func (r *ResilientCache) Breaker() *CircuitBreaker {
	return r.breaker
}

// Manager exposes the underlying cache backend.
func (r *ResilientCache) Manager() Backend {
	return r.manager
}

// GetMetrics delegates to the underlying backend.
func (r *ResilientCache) GetMetrics() Metrics {
	return r.manager.GetMetrics()
}
