package infra

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1, time.Minute)

	if !cb.Allow() {
		t.Fatal("closed breaker must allow")
	}

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != BreakerClosed {
		t.Error("should stay closed below threshold")
	}

	cb.RecordFailure()
	if cb.State() != BreakerOpen {
		t.Error("should open at threshold")
	}
	if cb.Allow() {
		t.Error("open breaker must reject")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 1, time.Minute)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	if cb.State() != BreakerClosed {
		t.Error("intervening success must reset the failure count")
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1, 10*time.Millisecond)

	cb.RecordFailure()
	if cb.State() != BreakerOpen {
		t.Fatal("should be open")
	}

	time.Sleep(20 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("probe should be allowed after timeout")
	}
	if cb.State() != BreakerHalfOpen {
		t.Fatal("should be half-open")
	}

	cb.RecordSuccess()
	if cb.State() != BreakerClosed {
		t.Error("successful probe must close the breaker")
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	cb.Allow() // transition to half-open
	cb.RecordFailure()

	if cb.State() != BreakerOpen {
		t.Error("failed probe must reopen the breaker")
	}
}
