package llm

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is the circuit state of the provider breaker.
type BreakerState int

const (
	// BreakerClosed lets requests through.
	BreakerClosed BreakerState = iota
	// BreakerOpen blocks requests until the reset window passes.
	BreakerOpen
	// BreakerHalfOpen lets a single probe request through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker trips after a run of consecutive provider failures so a dead
// upstream fails fast instead of burning the request timeout every call.
type Breaker struct {
	mu          sync.RWMutex
	failures    int
	threshold   int
	resetAfter  time.Duration
	lastFailure time.Time
	state       BreakerState
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and probes again after resetAfter.
func NewBreaker(threshold int, resetAfter time.Duration) *Breaker {
	return &Breaker{
		threshold:  threshold,
		resetAfter: resetAfter,
		state:      BreakerClosed,
	}
}

// Allow reports whether a request may proceed. After the reset window the
// breaker moves to half-open and lets one probe through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if time.Since(b.lastFailure) > b.resetAfter {
			b.state = BreakerHalfOpen
			return nil
		}
		return fmt.Errorf("ai provider unavailable: %d consecutive failures, retrying after %s",
			b.failures, b.resetAfter)
	case BreakerHalfOpen:
		return fmt.Errorf("ai provider recovery probe in flight")
	default:
		return fmt.Errorf("breaker in unknown state %v", b.state)
	}
}

// RecordSuccess closes the breaker and clears the failure run.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = BreakerClosed
}

// RecordFailure counts a failure and opens the breaker at the threshold.
// A failed half-open probe reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failures
}
