package client

import (
	"errors"
	"fmt"
)

// Misuse sentinels. These indicate programming errors and are never retried.
var (
	// ErrAlreadyHeld is returned when Acquire is called on a reservation that
	// already holds a resource.
	ErrAlreadyHeld = errors.New("buildd: reservation already holds a resource")
	// ErrNotHeld is returned when the held resource name is read while the
	// reservation is idle.
	ErrNotHeld = errors.New("buildd: reservation does not hold a resource")
	// ErrNeedPoll is returned when pool state is read before any poll.
	ErrNeedPoll = errors.New("buildd: resource pool not polled yet")
	// ErrRetryTimeout is the terminal condition of a retry state whose budget
	// is exhausted. ReservationTimeoutError wraps it.
	ErrRetryTimeout = errors.New("buildd: retry timed out")
)

// ResourceLockedError reports the controller's HTTP 423 answer: the resource
// is busy or reserved by another party. It is an expected, recoverable
// condition that drives the reservation engine's skip/retry logic.
type ResourceLockedError struct {
	Name string
}

func (e *ResourceLockedError) Error() string {
	return fmt.Sprintf("buildd: resource %q is busy or reserved by another user", e.Name)
}

// ReservationTimeoutError reports an exhausted reservation wait: no resource
// matching Selector became available within the retry budget.
type ReservationTimeoutError struct {
	// Selector renders the selection criterion that failed.
	Selector string
	// Retry renders the retry configuration that governed the wait.
	Retry string
}

func (e *ReservationTimeoutError) Error() string {
	return fmt.Sprintf("buildd: timeout waiting for a resource matching %s after %s", e.Selector, e.Retry)
}

// Unwrap lets errors.Is(err, ErrRetryTimeout) match.
func (e *ReservationTimeoutError) Unwrap() error {
	return ErrRetryTimeout
}

// UnknownResourceError reports a resource name absent from the current
// snapshot: either a caller mistake or a resource removed server-side.
type UnknownResourceError struct {
	Name string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("buildd: unknown resource %q", e.Name)
}

// UnknownJobError reports a job name the controller does not know.
type UnknownJobError struct {
	Name string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("buildd: unknown job %q", e.Name)
}

// UnknownViewError reports a view name the controller does not know.
type UnknownViewError struct {
	Name string
}

func (e *UnknownViewError) Error() string {
	return fmt.Sprintf("buildd: unknown view %q", e.Name)
}

// UnknownPluginError reports a plugin short name that is not installed.
type UnknownPluginError struct {
	ShortName string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("buildd: unknown plugin %q", e.ShortName)
}

// UnknownCredentialError reports a credential id absent from the store.
type UnknownCredentialError struct {
	ID string
}

func (e *UnknownCredentialError) Error() string {
	return fmt.Sprintf("buildd: unknown credential %q", e.ID)
}
