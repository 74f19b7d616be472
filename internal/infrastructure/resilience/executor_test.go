package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func testConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
			Multiplier:     2,
		},
		Breaker: BreakerPolicy{Enabled: false},
	}
}

func TestDoRetriesTransientFailure(t *testing.T) {
	exec := NewExecutor(testConfig(), nil)

	attempts := 0
	errTransient := errors.New("connection reset")
	err := exec.Do(context.Background(), "search", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	}, func(err error) Classification {
		return Classification{Retry: errors.Is(err, errTransient), TripBreaker: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDoFailsFastOnSemanticError(t *testing.T) {
	exec := NewExecutor(testConfig(), nil)

	attempts := 0
	errSemantic := errors.New("bad request")
	err := exec.Do(context.Background(), "generate", func(context.Context) error {
		attempts++
		return errSemantic
	}, func(error) Classification {
		return Classification{Retry: false, TripBreaker: false}
	})
	if !errors.Is(err, errSemantic) {
		t.Fatalf("expected semantic error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	exec := NewExecutor(testConfig(), nil)

	attempts := 0
	errTransient := errors.New("timeout")
	err := exec.Do(context.Background(), "search", func(context.Context) error {
		attempts++
		return errTransient
	}, func(error) Classification {
		return Classification{Retry: true, TripBreaker: true}
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error after budget, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDoOpensCircuitAfterFailures(t *testing.T) {
	cfg := Config{
		Retry: RetryPolicy{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      2,
			FailureRatio:     0.5,
			OpenTimeout:      50 * time.Millisecond,
			HalfOpenMaxCalls: 1,
		},
	}
	exec := NewExecutor(cfg, nil)

	errTransient := errors.New("connection refused")
	classify := func(error) Classification {
		return Classification{Retry: false, TripBreaker: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Do(context.Background(), "search", func(context.Context) error {
			return errTransient
		}, classify)
		if !errors.Is(err, errTransient) {
			t.Fatalf("iteration %d: expected transient error, got %v", i, err)
		}
	}

	err := exec.Do(context.Background(), "search", func(context.Context) error {
		t.Fatalf("open circuit must not call the operation")
		return nil
	}, classify)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if !IsCircuitOpen(err) {
		t.Fatalf("IsCircuitOpen(%v) = false", err)
	}
}

func TestDoBreakersArePerOperation(t *testing.T) {
	cfg := Config{
		Retry: RetryPolicy{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      2,
			FailureRatio:     0.5,
			OpenTimeout:      50 * time.Millisecond,
			HalfOpenMaxCalls: 1,
		},
	}
	exec := NewExecutor(cfg, nil)

	errTransient := errors.New("connection refused")
	classify := func(error) Classification {
		return Classification{Retry: false, TripBreaker: true}
	}

	for i := 0; i < 3; i++ {
		_ = exec.Do(context.Background(), "search", func(context.Context) error {
			return errTransient
		}, classify)
	}

	// A different operation keeps its own closed breaker.
	err := exec.Do(context.Background(), "generate", func(context.Context) error {
		return nil
	}, classify)
	if err != nil {
		t.Fatalf("independent operation failed: %v", err)
	}
}
