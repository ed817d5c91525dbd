package testutil

import (
	"context"
	"sync"

	"github.com/roach88/roadsafe/internal/score"
)

// RemoteStore mirrors leaderboard.RemoteStore so the gate can wrap any
// implementation without importing the leaderboard package.
type RemoteStore interface {
	Fetch(ctx context.Context, level score.Level, limit int) ([]score.Entry, error)
	Submit(ctx context.Context, e score.Entry) (bool, error)
}

// GatedRemote wraps a RemoteStore and holds every Submit until Release is
// called. Used to observe behavior while a submission is in flight.
type GatedRemote struct {
	RemoteStore

	once    sync.Once
	release chan struct{}
	entered chan score.Entry
}

// NewGatedRemote wraps inner.
func NewGatedRemote(inner RemoteStore) *GatedRemote {
	return &GatedRemote{
		RemoteStore: inner,
		release:     make(chan struct{}),
		entered:     make(chan score.Entry, 16),
	}
}

// Submit blocks until Release or ctx is done, then delegates.
func (g *GatedRemote) Submit(ctx context.Context, e score.Entry) (bool, error) {
	g.entered <- e
	select {
	case <-g.release:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return g.RemoteStore.Submit(ctx, e)
}

// Entered receives each entry as its Submit call starts waiting.
func (g *GatedRemote) Entered() <-chan score.Entry {
	return g.entered
}

// Release lets every pending and future Submit proceed.
func (g *GatedRemote) Release() {
	g.once.Do(func() { close(g.release) })
}
