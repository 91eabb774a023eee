package reactor

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// Every lifecycle transition recorded by the engine is stamped with a
// strictly increasing seq from the loop's clock, so journals order by seq
// and never by wall time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though in practice only the loop goroutine calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to continue numbering after the last seq found in a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
