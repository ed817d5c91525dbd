package clock

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// Virtual is a manually advanced Scheduler.
//
// Time only moves when Advance or Set is called. Callbacks run synchronously
// on the goroutine that advances the clock, never while the clock's own lock
// is held, so a callback may schedule further timers.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	seq    Seq
	timers []*virtualTimer
}

type virtualTimer struct {
	v     *Virtual
	due   time.Time
	order int64
	fn    func()
	done  bool
}

// NewVirtual creates a virtual clock positioned at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// AfterFunc registers fn to run once the clock has advanced by d.
// A non-positive d fires on the next Advance, including Advance(0).
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Timer {
	v.mu.Lock()
	defer v.mu.Unlock()

	t := &virtualTimer{v: v, due: v.now.Add(d), order: v.seq.Next(), fn: fn}
	v.timers = append(v.timers, t)
	slices.SortFunc(v.timers, compareTimers)
	return t
}

// Advance moves the clock forward by d, firing every timer that comes due,
// including timers registered by callbacks during the advance.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now.Add(d)
	v.mu.Unlock()
	v.runUntil(target)
}

// Set moves the clock to t. Moving backwards is allowed and fires nothing.
func (v *Virtual) Set(t time.Time) {
	v.mu.Lock()
	if !t.After(v.now) {
		v.now = t
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()
	v.runUntil(t)
}

// Pending returns the number of timers that have not fired or been stopped.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.timers)
}

func (v *Virtual) runUntil(target time.Time) {
	for {
		v.mu.Lock()
		if len(v.timers) == 0 || v.timers[0].due.After(target) {
			if target.After(v.now) {
				v.now = target
			}
			v.mu.Unlock()
			return
		}
		t := v.timers[0]
		v.timers = v.timers[1:]
		t.done = true
		if t.due.After(v.now) {
			v.now = t.due
		}
		v.mu.Unlock()

		t.fn()
	}
}

func (t *virtualTimer) Stop() bool {
	t.v.mu.Lock()
	defer t.v.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.v.timers = slices.DeleteFunc(t.v.timers, func(o *virtualTimer) bool { return o == t })
	return true
}

func compareTimers(a, b *virtualTimer) int {
	if c := a.due.Compare(b.due); c != 0 {
		return c
	}
	return cmp.Compare(a.order, b.order)
}
