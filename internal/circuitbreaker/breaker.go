// Package circuitbreaker implements a three-state breaker in front of the
// venue transport. Repeated failures open the circuit and shed requests
// until a cooldown passes; a probe period (half-open) then decides whether
// the venue has recovered.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the breaker state.
type State int32

const (
	// StateClosed passes all requests through.
	StateClosed State = iota
	// StateOpen sheds all requests until the timeout elapses.
	StateOpen
	// StateHalfOpen lets probes through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config sets the breaker thresholds.
type Config struct {
	// FailThreshold is the consecutive failure count that opens the
	// circuit.
	FailThreshold int `json:"fail_threshold"`
	// SuccessThreshold is the consecutive probe success count that
	// closes it again.
	SuccessThreshold int `json:"success_threshold"`
	// Timeout is the cooldown before an open circuit admits probes.
	Timeout time.Duration `json:"timeout"`
}

// Breaker is a mutex-guarded three-state circuit breaker.
type Breaker struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Allow reports whether a request may proceed, moving an expired open
// circuit to half-open.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.Timeout {
		b.state = StateHalfOpen
		b.successes = 0
	}
	return b.state != StateOpen
}

// Record feeds a request outcome into the state machine. An open circuit
// whose cooldown has elapsed is promoted to half-open first, so the
// outcome counts as a probe.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.Timeout {
		b.state = StateHalfOpen
		b.successes = 0
	}
	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailThreshold {
			b.open()
		}
	case StateHalfOpen:
		if !success {
			b.open()
			return
		}
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	case StateOpen:
		// Outcomes of requests admitted just before the circuit
		// opened; nothing to update.
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = time.Now()
	b.failures = 0
	b.successes = 0
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

// Failures returns the consecutive failure count in the closed state.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Successes returns the consecutive probe success count.
func (b *Breaker) Successes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.successes
}
