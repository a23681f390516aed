package generation

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker's lifecycle position.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker guards the generation provider. After Threshold consecutive
// failures the breaker opens and rejects calls for Cooldown; it then admits a
// single probe call whose outcome decides whether the circuit closes again.
type CircuitBreaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	openedAt  time.Time
	probing   bool
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// NewCircuitBreaker creates a closed breaker. threshold is the number of
// consecutive failures that opens it; cooldown is how long it stays open
// before admitting a probe.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. When the breaker rejects, it
// returns a CircuitOpenError carrying the remaining cooldown.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return nil
	case stateOpen:
		remaining := b.cooldown - b.now().Sub(b.openedAt)
		if remaining > 0 {
			return &CircuitOpenError{RetryAfter: remaining}
		}
		// Cooldown elapsed: admit exactly one probe
		b.state = stateHalfOpen
		b.probing = true
		return nil
	default: // half-open
		if b.probing {
			return &CircuitOpenError{RetryAfter: b.cooldown}
		}
		b.probing = true
		return nil
	}
}

// Release returns an admitted call without recording an outcome, used when
// the call is abandoned before reaching the provider. Without this an
// abandoned half-open probe would block the circuit forever.
func (b *CircuitBreaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateHalfOpen {
		b.probing = false
	}
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.failures = 0
	b.probing = false
}

// RecordFailure counts one failed call. A failed probe reopens the circuit
// immediately; in the closed state the circuit opens once the threshold of
// consecutive failures is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.state = stateOpen
		b.openedAt = b.now()
		b.probing = false
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}
