package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps operations.
//
// Every logged operation carries a strictly increasing seq from this clock,
// so replay produces an identical order regardless of wall time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Only the engine's Apply path advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start. Used when reopening a log
// to resume after its last entry.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the seq of the last stamped operation.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
