package clock

import (
	"sync"
	"time"
)

// Manual is a stepping clock for tests. After advances the clock by the
// requested duration and fires immediately, so code that sleeps between
// attempts runs to completion without real delays. Every After call is
// counted, which lets tests assert how often a loop slept.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After steps the clock forward by d and returns an already-fired channel.
func (m *Manual) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	if d > 0 {
		m.now = m.now.Add(d)
		m.sleeps++
	}
	now := m.now
	m.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the clock forward without counting a sleep.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
	return m.now
}

// Sleeps returns how many timed waits have been taken so far.
func (m *Manual) Sleeps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sleeps
}
