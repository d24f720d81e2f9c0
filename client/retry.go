package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pkt.systems/buildd/internal/clock"
)

// Defaults for reservation wait loops, matching the controller's own
// recommended polling cadence.
const (
	DefaultReserveSleepPeriod = 5 * time.Second
	DefaultReserveTimeout     = time.Hour
)

// RetryConfig is an immutable time-budget strategy for reservation waits.
// One config can be shared across any number of concurrent wait loops; all
// mutable state lives in the RetryState created by Begin.
type RetryConfig interface {
	// Begin starts a fresh retry session. The returned state is single-use.
	Begin() RetryState
	// String renders the configuration for diagnostics.
	String() string
}

// RetryState is the mutable side of one wait loop. CheckRetry either sleeps
// (budget remains) or returns ErrRetryTimeout (budget exhausted, terminal).
type RetryState interface {
	CheckRetry(ctx context.Context) error
}

// clockAware lets the reservation engine substitute the client's clock for
// deterministic tests. Not part of the public contract.
type clockAware interface {
	beginWithClock(clk clock.Clock) RetryState
}

// FixedRetry sleeps a fixed period between attempts until a total timeout is
// exceeded. Zero fields fall back to the package defaults.
type FixedRetry struct {
	SleepPeriod time.Duration
	Timeout     time.Duration
}

func (r FixedRetry) withDefaults() FixedRetry {
	if r.SleepPeriod <= 0 {
		r.SleepPeriod = DefaultReserveSleepPeriod
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultReserveTimeout
	}
	return r
}

// Begin starts a session measuring elapsed time from a single immutable
// start timestamp.
func (r FixedRetry) Begin() RetryState {
	return r.beginWithClock(clock.Real{})
}

func (r FixedRetry) beginWithClock(clk clock.Clock) RetryState {
	cfg := r.withDefaults()
	return &fixedRetryState{cfg: cfg, clk: clk, start: clk.Now()}
}

func (r FixedRetry) String() string {
	cfg := r.withDefaults()
	return fmt.Sprintf("fixed-retry[sleep=%s timeout=%s]", cfg.SleepPeriod, cfg.Timeout)
}

type fixedRetryState struct {
	cfg   FixedRetry
	clk   clock.Clock
	start time.Time
}

// CheckRetry sleeps one period when budget remains. The comparison is
// strictly greater-than: a check landing exactly at the timeout still passes,
// the first check beyond it fails.
func (s *fixedRetryState) CheckRetry(ctx context.Context) error {
	if s.clk.Now().Sub(s.start) > s.cfg.Timeout {
		return ErrRetryTimeout
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clk.After(s.cfg.SleepPeriod):
		return nil
	}
}

// BackoffRetry implements RetryConfig with exponential backoff between
// attempts. Zero fields fall back to the backoff package defaults, except
// MaxElapsedTime which defaults to DefaultReserveTimeout.
type BackoffRetry struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	Multiplier      float64
}

// Begin starts a session over a fresh exponential backoff sequence.
func (r BackoffRetry) Begin() RetryState {
	return r.beginWithClock(clock.Real{})
}

func (r BackoffRetry) beginWithClock(clk clock.Clock) RetryState {
	b := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}
	if r.MaxElapsedTime > 0 {
		b.MaxElapsedTime = r.MaxElapsedTime
	} else {
		b.MaxElapsedTime = DefaultReserveTimeout
	}
	if r.Multiplier > 0 {
		b.Multiplier = r.Multiplier
	}
	b.Clock = clk
	b.Reset()
	return &backoffRetryState{backoff: b, clk: clk}
}

func (r BackoffRetry) String() string {
	elapsed := r.MaxElapsedTime
	if elapsed <= 0 {
		elapsed = DefaultReserveTimeout
	}
	return fmt.Sprintf("backoff-retry[max_elapsed=%s]", elapsed)
}

type backoffRetryState struct {
	backoff *backoff.ExponentialBackOff
	clk     clock.Clock
}

func (s *backoffRetryState) CheckRetry(ctx context.Context) error {
	next := s.backoff.NextBackOff()
	if next == backoff.Stop {
		return ErrRetryTimeout
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clk.After(next):
		return nil
	}
}
