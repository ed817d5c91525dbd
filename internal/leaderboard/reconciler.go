// Package leaderboard merges the remote leaderboard with the local cache.
//
// Reads prefer the remote store and fall back to the cache when it cannot be
// reached; the result is flagged as degraded rather than failing. Writes
// always land in the cache, whatever the remote store answers, so an offline
// player still sees their own scores. Entries written while offline stay
// unsynced until Flush resubmits them.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/roadsafe/internal/clock"
	"github.com/roach88/roadsafe/internal/score"
)

// DefaultLimit is the number of entries requested from the remote store.
const DefaultLimit = 50

// ErrRejected marks a remote answer that refuses an entry outright (as
// opposed to an unreachable store). Rejected entries are not retried.
var ErrRejected = errors.New("leaderboard: entry rejected")

// RemoteStore is the shared leaderboard service.
type RemoteStore interface {
	// Fetch returns unexpired entries ordered by score descending.
	// level 0 selects every level.
	Fetch(ctx context.Context, level score.Level, limit int) ([]score.Entry, error)
	// Submit offers e and reports whether it was accepted as a new best.
	Submit(ctx context.Context, e score.Entry) (bool, error)
}

// SubmitResult is the outcome of Reconciler.Submit.
type SubmitResult struct {
	// Accepted is true when the remote store took the entry as a new best.
	Accepted bool `json:"accepted"`
	// Offline is true when the remote store could not be reached; the entry
	// was kept locally and will be resubmitted by Flush.
	Offline bool `json:"offline"`
}

// FlushResult summarizes a Flush.
type FlushResult struct {
	Attempted int  `json:"attempted"`
	Accepted  int  `json:"accepted"`
	Remaining int  `json:"remaining"`
	Offline   bool `json:"offline"`
}

// Reconciler serves leaderboard reads and writes.
//
// Thread-safety: safe for concurrent use; the cache serializes its own
// read-modify-write cycles.
type Reconciler struct {
	remote RemoteStore
	cache  *LocalCache
	clock  clock.Clock
	limit  int
	logger *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLimit sets the number of entries requested from the remote store.
func WithLimit(n int) Option {
	return func(r *Reconciler) { r.limit = n }
}

// WithClock sets the clock used to stamp views.
func WithClock(c clock.Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// New creates a Reconciler. A nil remote runs in offline mode.
func New(remote RemoteStore, cache *LocalCache, opts ...Option) *Reconciler {
	r := &Reconciler{
		remote: remote,
		cache:  cache,
		clock:  clock.Real{},
		limit:  DefaultLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// View returns the global leaderboard for filter. Remote failures degrade
// the view to the local cache and are not returned.
func (r *Reconciler) View(ctx context.Context, filter Filter) (View, error) {
	view := View{Filter: filter, GeneratedAt: r.clock.Now().UTC()}

	entries, err := r.fetch(ctx, filter.Level())
	if err != nil {
		if r.remote != nil {
			r.logger.Warn("leaderboard fetch failed, using local cache", "filter", filter.String(), "error", err)
		}
		local, cerr := r.cache.Scores(ctx)
		if cerr != nil {
			return View{}, fmt.Errorf("leaderboard view: %w", cerr)
		}
		view.Source = SourceLocal
		view.Degraded = true
		view.Rows = Global(local, filter, r.limit)
		return view, nil
	}

	pending, err := r.cache.Unsynced(ctx)
	if err != nil {
		return View{}, fmt.Errorf("leaderboard view: %w", err)
	}
	view.Source = SourceRemote
	view.Rows = Global(union(entries, pending, filter.Level()), filter, r.limit)
	return view, nil
}

// Personal returns a player's own board built from their history.
func (r *Reconciler) Personal(history []score.Entry, filter Filter) View {
	return View{
		Filter:      filter,
		Source:      SourceLocal,
		GeneratedAt: r.clock.Now().UTC(),
		Rows:        Personal(history, filter),
	}
}

// Submit offers e to the remote store and records it in the local cache
// regardless of the answer.
func (r *Reconciler) Submit(ctx context.Context, e score.Entry) (SubmitResult, error) {
	e.PlayerName = score.NormalizeName(e.PlayerName)
	if err := e.Validate(); err != nil {
		return SubmitResult{}, fmt.Errorf("leaderboard submit: %w", err)
	}
	if e.Score <= 0 {
		return SubmitResult{}, fmt.Errorf("leaderboard submit: score must be greater than 0")
	}

	var res SubmitResult
	synced := false
	if r.remote == nil {
		res.Offline = true
	} else {
		accepted, err := r.remote.Submit(ctx, e)
		switch {
		case err == nil:
			res.Accepted = accepted
			synced = true
		case errors.Is(err, ErrRejected):
			r.logger.Warn("leaderboard rejected entry", "player", e.PlayerName, "level", int(e.Level), "score", e.Score, "error", err)
			synced = true
		default:
			r.logger.Warn("leaderboard submit failed, keeping entry locally",
				"player", e.PlayerName,
				"level", int(e.Level),
				"score", e.Score,
				"error", err,
			)
			res.Offline = true
		}
	}

	if err := r.cache.Upsert(ctx, e, synced); err != nil {
		return res, fmt.Errorf("leaderboard submit: %w", err)
	}
	return res, nil
}

// Flush resubmits unsynced cached entries, stopping at the first transport
// failure.
func (r *Reconciler) Flush(ctx context.Context) (FlushResult, error) {
	pending, err := r.cache.Unsynced(ctx)
	if err != nil {
		return FlushResult{}, fmt.Errorf("leaderboard flush: %w", err)
	}

	res := FlushResult{Remaining: len(pending)}
	if r.remote == nil {
		res.Offline = len(pending) > 0
		return res, nil
	}

	for _, e := range pending {
		res.Attempted++
		accepted, err := r.remote.Submit(ctx, e)
		if err != nil && !errors.Is(err, ErrRejected) {
			r.logger.Warn("leaderboard flush interrupted", "remaining", res.Remaining, "error", err)
			res.Offline = true
			return res, nil
		}
		if accepted {
			res.Accepted++
		}
		if err := r.cache.MarkSynced(ctx, e); err != nil {
			return res, fmt.Errorf("leaderboard flush: %w", err)
		}
		res.Remaining--
	}
	if res.Attempted > 0 {
		r.logger.Info("leaderboard flushed", "attempted", res.Attempted, "accepted", res.Accepted)
	}
	return res, nil
}

func (r *Reconciler) fetch(ctx context.Context, level score.Level) ([]score.Entry, error) {
	if r.remote == nil {
		return nil, errOffline
	}
	return r.remote.Fetch(ctx, level, r.limit)
}

var errOffline = errors.New("leaderboard: no remote store configured")

// union appends the pending entries of the level (0 = all) that the remote
// result does not already hold.
func union(remote, pending []score.Entry, level score.Level) []score.Entry {
	out := append([]score.Entry(nil), remote...)
	for _, p := range pending {
		if level != 0 && p.Level != level {
			continue
		}
		dup := false
		for _, e := range remote {
			if sameScore(e, p) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

