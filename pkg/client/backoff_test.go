package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultBackoffPolicy(t *testing.T) {
	policy := DefaultBackoffPolicy()

	if policy.Step != 15*time.Second {
		t.Errorf("Step = %v, want 15s", policy.Step)
	}
	if policy.Max != 60*time.Second {
		t.Errorf("Max = %v, want 60s", policy.Max)
	}
	if policy.MaxAttempts() != 5 {
		t.Errorf("MaxAttempts = %d, want 5", policy.MaxAttempts())
	}
}

func TestBackoffPolicy_Next(t *testing.T) {
	policy := DefaultBackoffPolicy()

	// The schedule is linear and deterministic: 0, 15, 30, 45, 60, abort.
	expected := []time.Duration{
		15 * time.Second,
		30 * time.Second,
		45 * time.Second,
		60 * time.Second,
	}

	delay := time.Duration(0)
	for i, want := range expected {
		next, ok := policy.Next(delay)
		if !ok {
			t.Fatalf("Step %d: schedule aborted early at delay %v", i, delay)
		}
		if next != want {
			t.Errorf("Step %d: next delay = %v, want %v", i, next, want)
		}
		delay = next
	}

	// Past 60s the budget is spent.
	if _, ok := policy.Next(delay); ok {
		t.Error("Expected schedule to abort after reaching the cap")
	}
}

func TestBackoffPolicy_ZeroStep(t *testing.T) {
	policy := BackoffPolicy{Step: 0, Max: 60 * time.Second}

	if _, ok := policy.Next(0); ok {
		t.Error("Zero step should never retry")
	}
	if policy.MaxAttempts() != 1 {
		t.Errorf("MaxAttempts = %d, want 1", policy.MaxAttempts())
	}
}

func TestWaitBackoff_ZeroDelay(t *testing.T) {
	start := time.Now()
	if err := waitBackoff(context.Background(), 0); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Zero delay waited %v", elapsed)
	}
}

func TestWaitBackoff_Waits(t *testing.T) {
	start := time.Now()
	if err := waitBackoff(context.Background(), 100*time.Millisecond); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Waited only %v, want >= 100ms", elapsed)
	}
}

func TestWaitBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := waitBackoff(ctx, 5*time.Second)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %v", err)
	}
}

func TestWaitBackoff_CancelledBeforeZeroDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := waitBackoff(ctx, 0); !errors.Is(err, ErrCancelled) {
		t.Errorf("Expected ErrCancelled for pre-cancelled context, got %v", err)
	}
}
