package clock_test

import (
	"testing"
	"time"

	"pkt.systems/buildd/internal/clock"
)

func TestRealNowUsesUTC(t *testing.T) {
	t.Parallel()

	now := clock.Real{}.Now()
	if loc := now.Location(); loc != time.UTC {
		t.Fatalf("expected UTC location, got %v", loc)
	}
	if delta := time.Since(now); delta < 0 || delta > time.Second {
		t.Fatalf("unexpected Now delta: %v", delta)
	}
}

func TestRealAfterFires(t *testing.T) {
	t.Parallel()

	select {
	case <-clock.Real{}.After(5 * time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After did not fire")
	}
}

func TestManualAfterStepsAndCounts(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := clock.NewManual(start)

	select {
	case now := <-m.After(10 * time.Second):
		if !now.Equal(start.Add(10 * time.Second)) {
			t.Fatalf("unexpected fire time: %v", now)
		}
	default:
		t.Fatal("manual After must fire immediately")
	}
	if m.Sleeps() != 1 {
		t.Fatalf("expected 1 sleep, got %d", m.Sleeps())
	}
	if got := m.Now(); !got.Equal(start.Add(10 * time.Second)) {
		t.Fatalf("clock did not advance: %v", got)
	}
}

func TestManualAdvanceDoesNotCountSleep(t *testing.T) {
	t.Parallel()

	m := clock.NewManual(time.Unix(0, 0))
	m.Advance(time.Minute)
	if m.Sleeps() != 0 {
		t.Fatalf("Advance must not count as a sleep, got %d", m.Sleeps())
	}
	if got := m.Now(); !got.Equal(time.Unix(60, 0).UTC()) {
		t.Fatalf("unexpected time after Advance: %v", got)
	}
}
