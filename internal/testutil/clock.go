package testutil

import "sync"

// StepClock provides a thread-safe monotonic logical clock for tests and
// the harness trace.
//
// It can be reset for test reuse, so the same scenario run twice produces
// identical sequence numbers.
type StepClock struct {
	mu  sync.Mutex
	seq int64
}

// NewStepClock creates a clock starting at 0. The first Next() returns 1.
func NewStepClock() *StepClock {
	return &StepClock{}
}

// Next increments and returns the next sequence number.
func (c *StepClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *StepClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset returns the clock to 0. The next call to Next() returns 1.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
