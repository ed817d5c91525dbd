package clock

import (
	"sync/atomic"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or the timer was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay measured on its own clock.
type Scheduler interface {
	Clock
	AfterFunc(d time.Duration, fn func()) Timer
}

// Real is the wall-clock Scheduler. Callbacks run on their own goroutine.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// AfterFunc delegates to time.AfterFunc.
func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Seq is a monotonic logical counter.
//
// Thread-safety: Seq is safe for concurrent use.
type Seq struct {
	n atomic.Int64
}

// Next returns the next sequence number. The first call returns 1.
func (s *Seq) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (s *Seq) Current() int64 {
	return s.n.Load()
}
