package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(3, 10*time.Second, 1)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("closed breaker rejected request %d: %v", i, err)
		}
		b.RecordFailure()
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("unexpected state below threshold: got=%s want=%s", state, CircuitStateClosed)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("unexpected state at threshold: got=%s want=%s", state, CircuitStateOpen)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker admitted a request: %v", err)
	}
}

func TestCircuitBreakerProbeRecovery(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(1, 30*time.Second, 1)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker admitted a request: %v", err)
	}

	// Before the timeout the breaker stays shut.
	now = now.Add(29 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("breaker admitted a request before timeout: %v", err)
	}

	now = now.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe rejected after timeout: %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("unexpected state during probe: got=%s want=%s", state, CircuitStateHalfOpen)
	}

	// A second concurrent probe exceeds the half-open budget.
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("breaker admitted a second probe: %v", err)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("unexpected state after successful probe: got=%s want=%s", state, CircuitStateClosed)
	}
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(1, 10*time.Second, 1)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(11 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe rejected after timeout: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("unexpected state after failed probe: got=%s want=%s", state, CircuitStateOpen)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("reopened breaker admitted a request: %v", err)
	}
}
