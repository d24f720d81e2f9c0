package client

import (
	"context"
	"errors"
)

// TryReserve makes a single reservation pass over the selector's candidates.
//
// Candidates whose cached record is not free are skipped without a request.
// A candidate the server reports locked means the race was lost to another
// client; the scan moves on to the next candidate. The first candidate that
// reserves successfully is returned (first-fit). An exhausted candidate list
// returns ok=false with a nil error: the pool is currently out of matching
// resources, which is a normal outcome, not a failure.
//
// Transport errors and unknown-resource lookups propagate unmasked.
func (p *LockableResources) TryReserve(ctx context.Context, sel Selector) (name string, ok bool, err error) {
	snap, err := p.Snapshot()
	if err != nil {
		return "", false, err
	}
	for _, candidate := range sel.Select(snap) {
		free, err := p.IsFree(candidate)
		if err != nil {
			return "", false, err
		}
		if !free {
			continue
		}
		// The cached record can be stale: the resource may have been taken
		// since the last poll. The server's answer is authoritative.
		if err := p.Reserve(ctx, candidate); err != nil {
			var locked *ResourceLockedError
			if errors.As(err, &locked) {
				p.client.logDebug("client.reserve.race_lost", "resource", candidate, "selector", sel.String())
				continue
			}
			return "", false, err
		}
		p.client.logInfo("client.reserve.success", "resource", candidate, "selector", sel.String())
		return candidate, true, nil
	}
	return "", false, nil
}

// WaitReserve repeatedly attempts to reserve a resource matching sel until it
// succeeds or the retry budget runs out. Between attempts the pool re-polls so
// resources freed by other clients become visible. A nil retry uses FixedRetry
// defaults.
//
// Correctness does not depend on snapshot freshness: the snapshot only
// pre-filters candidates, and every reservation is arbitrated by the server.
// On exhausted budget the returned error is a *ReservationTimeoutError naming
// the selector and the retry configuration.
func (p *LockableResources) WaitReserve(ctx context.Context, sel Selector, retry RetryConfig) (string, error) {
	if retry == nil {
		retry = FixedRetry{}
	}
	state := p.beginRetry(retry)
	attempt := 0
	for {
		attempt++
		name, ok, err := p.TryReserve(ctx, sel)
		if err != nil {
			return "", err
		}
		if ok {
			p.client.logInfo("client.wait_reserve.success", "resource", name, "selector", sel.String(), "attempt", attempt)
			return name, nil
		}
		if err := state.CheckRetry(ctx); err != nil {
			if errors.Is(err, ErrRetryTimeout) {
				p.client.logWarn("client.wait_reserve.timeout", "selector", sel.String(), "retry", retry.String(), "attempt", attempt)
				return "", &ReservationTimeoutError{Selector: sel.String(), Retry: retry.String()}
			}
			return "", err
		}
		p.client.logDebug("client.wait_reserve.retry", "selector", sel.String(), "attempt", attempt)
		if err := p.Poll(ctx); err != nil {
			return "", err
		}
	}
}

func (p *LockableResources) beginRetry(retry RetryConfig) RetryState {
	if aware, ok := retry.(clockAware); ok {
		return aware.beginWithClock(p.client.clk)
	}
	return retry.Begin()
}

// Reservation pairs one acquire with a guaranteed matching release. It cycles
// Idle -> Held -> Idle; re-entrant acquire is an error, release is idempotent,
// and instances are reusable after release. A Reservation belongs to a single
// caller; it is not safe for concurrent use.
type Reservation struct {
	pool     *LockableResources
	selector Selector
	retry    RetryConfig
	held     string
}

// NewReservation builds a reservation over an arbitrary selector. Creating it
// does not reserve anything; Acquire or Do does.
func (p *LockableResources) NewReservation(sel Selector, retry RetryConfig) *Reservation {
	return &Reservation{pool: p, selector: sel, retry: retry}
}

// ReservationByName builds a reservation for a single named resource.
func (p *LockableResources) ReservationByName(name string, retry RetryConfig) *Reservation {
	return p.NewReservation(SelectName(name), retry)
}

// ReservationByNames builds a reservation over an ordered name list.
func (p *LockableResources) ReservationByNames(names []string, retry RetryConfig) *Reservation {
	return p.NewReservation(SelectNames(names...), retry)
}

// ReservationByLabel builds a reservation over all resources with a label.
func (p *LockableResources) ReservationByLabel(label string, retry RetryConfig) *Reservation {
	return p.NewReservation(SelectLabel(label), retry)
}

// Active reports whether a resource is currently held.
func (r *Reservation) Active() bool {
	return r.held != ""
}

// Name returns the held resource name, or ErrNotHeld while idle.
func (r *Reservation) Name() (string, error) {
	if r.held == "" {
		return "", ErrNotHeld
	}
	return r.held, nil
}

// Acquire blocks until a matching resource is reserved (or the retry budget
// times out) and returns its name. Acquiring while already holding a resource
// returns ErrAlreadyHeld.
func (r *Reservation) Acquire(ctx context.Context) (string, error) {
	if r.held != "" {
		return "", ErrAlreadyHeld
	}
	name, err := r.pool.WaitReserve(ctx, r.selector, r.retry)
	if err != nil {
		return "", err
	}
	r.held = name
	return name, nil
}

// Release unreserves the held resource and returns the reservation to idle.
// Calling it while idle is a no-op, so it is safe on every unwind path. The
// held name is cleared even when the unreserve request fails; the failure is
// reported, not swallowed, and a second Release will not re-issue it.
func (r *Reservation) Release(ctx context.Context) error {
	if r.held == "" {
		return nil
	}
	name := r.held
	r.held = ""
	return r.pool.Unreserve(ctx, name)
}

// Do runs fn while a matching resource is held and releases it on every exit
// path, including when fn fails. When both fn and the release fail the errors
// are joined.
func (r *Reservation) Do(ctx context.Context, fn func(ctx context.Context, name string) error) error {
	name, err := r.Acquire(ctx)
	if err != nil {
		return err
	}
	fnErr := fn(ctx, name)
	relErr := r.Release(ctx)
	return errors.Join(fnErr, relErr)
}
