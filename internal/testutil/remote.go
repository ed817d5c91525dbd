// Package testutil provides test doubles shared across packages.
package testutil

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/roach88/roadsafe/internal/score"
)

// ErrUnavailable is a transport-style failure returned by FakeRemote when
// it is switched offline.
var ErrUnavailable = errors.New("fake remote: unavailable")

// FakeRemote is an in-memory leaderboard.RemoteStore that enforces the same
// policy as the real service: scores must be positive and must beat the
// player's best for the level.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeRemote struct {
	mu        sync.Mutex
	entries   []score.Entry
	offline   bool
	submitErr error
	fetches   int
	submits   []score.Entry
}

// NewFakeRemote creates a fake holding entries.
func NewFakeRemote(entries ...score.Entry) *FakeRemote {
	return &FakeRemote{entries: append([]score.Entry(nil), entries...)}
}

// SetOffline makes every call fail with ErrUnavailable.
func (f *FakeRemote) SetOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

// SetSubmitErr makes Submit fail with err (nil restores normal behavior).
func (f *FakeRemote) SetSubmitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

// Fetch implements leaderboard.RemoteStore.
func (f *FakeRemote) Fetch(_ context.Context, level score.Level, limit int) ([]score.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++
	if f.offline {
		return nil, ErrUnavailable
	}

	var out []score.Entry
	for _, e := range f.entries {
		if level == 0 || e.Level == level {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b score.Entry) int { return cmp.Compare(b.Score, a.Score) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Submit implements leaderboard.RemoteStore.
func (f *FakeRemote) Submit(_ context.Context, e score.Entry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submits = append(f.submits, e)
	if f.offline {
		return false, ErrUnavailable
	}
	if f.submitErr != nil {
		return false, f.submitErr
	}
	for _, cur := range f.entries {
		if cur.Key() == e.Key() && cur.Score >= e.Score {
			return false, nil
		}
	}
	f.entries = append(f.entries, e)
	return true, nil
}

// Entries returns the accepted entries in insertion order.
func (f *FakeRemote) Entries() []score.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]score.Entry(nil), f.entries...)
}

// Submits returns every entry offered to Submit, accepted or not.
func (f *FakeRemote) Submits() []score.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]score.Entry(nil), f.submits...)
}

// Fetches returns the number of Fetch calls.
func (f *FakeRemote) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}
