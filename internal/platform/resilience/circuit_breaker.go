package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker fails fast once an upstream keeps erroring. Both source
// clients wrap their fetches in one so a flapping feed doesn't burn the retry
// budget of every task in a refresh run.
//
// Closed counts consecutive failures; at the threshold it opens. An open
// breaker rejects everything until openTimeout has elapsed, then admits up to
// halfOpenMaxReq probe requests. All probes succeeding closes the breaker,
// any probe failing reopens it.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int

	state    CircuitState
	failures int       // consecutive failures while closed
	openedAt time.Time // set on every transition to open
	inFlight int       // admitted probes not yet resolved
	probeOK  int       // probes that succeeded this half-open round
	now      func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	if halfOpenMaxReq < 1 {
		halfOpenMaxReq = 1
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		halfOpenMaxReq:   halfOpenMaxReq,
		state:            CircuitStateClosed,
		now:              time.Now,
	}
}

// Allow reports whether a request may proceed, admitting it if so. Callers
// must pair every nil return with RecordSuccess or RecordFailure.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.timedOut() {
		b.reset(CircuitStateHalfOpen)
	}

	switch b.state {
	case CircuitStateOpen:
		return ErrCircuitOpen
	case CircuitStateHalfOpen:
		if b.inFlight >= b.halfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.inFlight++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		b.settleProbe()
		b.probeOK++
		if b.probeOK >= b.halfOpenMaxReq && b.inFlight == 0 {
			b.reset(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.reset(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.settleProbe()
		b.reset(CircuitStateOpen)
	case CircuitStateOpen:
		// A failure reported while already open restarts the timeout.
		b.openedAt = b.now()
	}
}

// State reports the effective state: an open breaker whose timeout has
// elapsed reads as half-open even before the next Allow transitions it.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.timedOut() {
		return CircuitStateHalfOpen
	}

	return b.state
}

func (b *CircuitBreaker) timedOut() bool {
	return b.now().Sub(b.openedAt) >= b.openTimeout
}

func (b *CircuitBreaker) settleProbe() {
	if b.inFlight > 0 {
		b.inFlight--
	}
}

func (b *CircuitBreaker) reset(to CircuitState) {
	b.state = to
	b.failures = 0
	b.inFlight = 0
	b.probeOK = 0
	if to == CircuitStateOpen {
		b.openedAt = b.now()
	} else {
		b.openedAt = time.Time{}
	}
}
