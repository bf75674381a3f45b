package shared

import (
	"sync"
	"sync/atomic"
)

// SimClock is the shared simulation clock. Only the simulator loop writes it;
// agents read snapshots concurrently. Writes must never move time backwards.
type SimClock struct {
	mu  sync.RWMutex
	now float64

	messages atomic.Int64
}

// NewSimClock creates a clock starting at t=0.
func NewSimClock() *SimClock {
	return &SimClock{}
}

// Now returns a snapshot of the current simulation time.
func (c *SimClock) Now() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by delta simulation time units.
func (c *SimClock) Advance(delta float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if delta < 0 {
		return c.now, NewClockMonotonicityError(c.now, c.now+delta)
	}
	c.now += delta
	return c.now, nil
}

// Set moves the clock to an absolute time. Setting time backwards is a
// programming error and is reported as a ClockMonotonicityError.
func (c *SimClock) Set(t float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.now {
		return NewClockMonotonicityError(c.now, t)
	}
	c.now = t
	return nil
}

// CountMessage increments the sent-message counter.
func (c *SimClock) CountMessage() {
	c.messages.Add(1)
}

// Messages returns the number of messages sent since the run started.
func (c *SimClock) Messages() int64 {
	return c.messages.Load()
}
