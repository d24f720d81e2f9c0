package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/buildd/internal/clock"
)

func TestFixedRetrySleepsWithinBudget(t *testing.T) {
	t.Parallel()

	manual := clock.NewManual(time.Unix(1000, 0))
	state := FixedRetry{SleepPeriod: time.Second, Timeout: 5 * time.Second}.beginWithClock(manual)

	// Checks at elapsed 0..5 all pass; elapsed == timeout is still allowed.
	for i := 0; i < 6; i++ {
		if err := state.CheckRetry(context.Background()); err != nil {
			t.Fatalf("check %d failed early: %v", i+1, err)
		}
	}
	if err := state.CheckRetry(context.Background()); !errors.Is(err, ErrRetryTimeout) {
		t.Fatalf("expected ErrRetryTimeout past budget, got %v", err)
	}
	if got := manual.Sleeps(); got != 6 {
		t.Fatalf("expected 6 sleeps, got %d", got)
	}
}

func TestFixedRetryRespectsContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := FixedRetry{SleepPeriod: time.Hour, Timeout: 2 * time.Hour}.Begin()
	if err := state.CheckRetry(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestFixedRetryDefaults(t *testing.T) {
	t.Parallel()

	cfg := FixedRetry{}.withDefaults()
	if cfg.SleepPeriod != DefaultReserveSleepPeriod {
		t.Fatalf("unexpected default sleep: %v", cfg.SleepPeriod)
	}
	if cfg.Timeout != DefaultReserveTimeout {
		t.Fatalf("unexpected default timeout: %v", cfg.Timeout)
	}
}

func TestFixedRetryStatesAreIndependent(t *testing.T) {
	t.Parallel()

	manual := clock.NewManual(time.Unix(0, 0))
	cfg := FixedRetry{SleepPeriod: time.Second, Timeout: 2 * time.Second}

	first := cfg.beginWithClock(manual)
	for {
		if err := first.CheckRetry(context.Background()); err != nil {
			break
		}
	}
	// A fresh session gets a fresh start timestamp and a full budget.
	second := cfg.beginWithClock(manual)
	if err := second.CheckRetry(context.Background()); err != nil {
		t.Fatalf("fresh state exhausted immediately: %v", err)
	}
}

func TestBackoffRetryStopsAfterMaxElapsed(t *testing.T) {
	t.Parallel()

	manual := clock.NewManual(time.Unix(0, 0))
	state := BackoffRetry{
		InitialInterval: time.Second,
		MaxInterval:     time.Second,
		MaxElapsedTime:  3 * time.Second,
		Multiplier:      1,
	}.beginWithClock(manual)

	timedOut := false
	for i := 0; i < 100; i++ {
		if err := state.CheckRetry(context.Background()); err != nil {
			if !errors.Is(err, ErrRetryTimeout) {
				t.Fatalf("unexpected error: %v", err)
			}
			timedOut = true
			break
		}
		manual.Advance(0)
	}
	if !timedOut {
		t.Fatal("backoff retry never timed out")
	}
}

func TestRetryConfigStrings(t *testing.T) {
	t.Parallel()

	fixed := FixedRetry{SleepPeriod: time.Second, Timeout: time.Minute}
	if got := fixed.String(); got != "fixed-retry[sleep=1s timeout=1m0s]" {
		t.Fatalf("unexpected rendering: %q", got)
	}
	back := BackoffRetry{MaxElapsedTime: time.Minute}
	if got := back.String(); got != "backoff-retry[max_elapsed=1m0s]" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}
