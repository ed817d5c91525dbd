// Package session connects finished games to the player's records and the
// shared leaderboard.
//
// A finished game updates the player's bests first, then appends one history
// entry, then hands the same entry to the leaderboard in the background. The
// local write never waits on the network: a slow or unreachable leaderboard
// only delays the background submission, and its failure is logged.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/roadsafe/internal/clock"
	"github.com/roach88/roadsafe/internal/leaderboard"
	"github.com/roach88/roadsafe/internal/match"
	"github.com/roach88/roadsafe/internal/quiz"
	"github.com/roach88/roadsafe/internal/records"
	"github.com/roach88/roadsafe/internal/score"
)

// DefaultSubmitTimeout bounds one background leaderboard submission.
const DefaultSubmitTimeout = 30 * time.Second

// Outcome describes what Complete did with a finished game.
type Outcome struct {
	State records.GameState `json:"state"`
	Entry score.Entry       `json:"entry"`
	// NewHighScore is true when the score beat the previous overall best.
	NewHighScore bool `json:"new_high_score"`
	// Recorded is true when the entry was appended to the player's history.
	Recorded bool `json:"recorded"`
	// Submitted is true when a background leaderboard submission started.
	Submitted bool `json:"submitted"`
}

// Coordinator records finished games.
//
// Thread-safety: safe for concurrent use.
type Coordinator struct {
	records *records.Store
	board   *leaderboard.Reconciler
	clock   clock.Clock
	ids     score.IDGenerator
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used to stamp entries.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// WithIDGenerator sets the entry ID generator.
func WithIDGenerator(g score.IDGenerator) Option {
	return func(co *Coordinator) { co.ids = g }
}

// WithSubmitTimeout bounds each background submission.
func WithSubmitTimeout(d time.Duration) Option {
	return func(co *Coordinator) { co.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(co *Coordinator) { co.logger = l }
}

// New creates a Coordinator.
func New(rec *records.Store, board *leaderboard.Reconciler, opts ...Option) *Coordinator {
	c := &Coordinator{
		records: rec,
		board:   board,
		clock:   clock.Real{},
		ids:     score.UUIDv7Generator{},
		timeout: DefaultSubmitTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompleteMatch records a finished matching game.
func (c *Coordinator) CompleteMatch(ctx context.Context, r match.Result) (Outcome, error) {
	return c.Complete(ctx, score.LevelMatch, r.TotalScore)
}

// CompleteQuiz records a finished quiz.
func (c *Coordinator) CompleteQuiz(ctx context.Context, r quiz.Result) (Outcome, error) {
	return c.Complete(ctx, score.LevelQuiz, r.FinalScore)
}

// Complete records the final score of a level.
//
// Bests are always updated. A positive score by a named player is also
// appended to the history and, unless the history already holds the same
// result within its window, submitted to the leaderboard in the background.
func (c *Coordinator) Complete(ctx context.Context, level score.Level, points int) (Outcome, error) {
	if points < 0 {
		return Outcome{}, fmt.Errorf("complete: negative score %d", points)
	}

	prev, err := c.records.State(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("complete: %w", err)
	}
	state, err := c.records.RecordResult(ctx, level, points)
	if err != nil {
		return Outcome{}, fmt.Errorf("complete: %w", err)
	}
	out := Outcome{State: state, NewHighScore: points > prev.HighScore}

	logger := c.logger.With("player", state.PlayerName, "level", int(level), "score", points)
	if points == 0 || state.PlayerName == "" {
		logger.Debug("result not recorded in history")
		return out, nil
	}

	out.Entry = score.Entry{
		ID:         c.ids.Generate(),
		PlayerName: state.PlayerName,
		Score:      points,
		Level:      level,
		Timestamp:  c.clock.Now().UTC(),
	}
	out.Recorded, err = c.records.Append(ctx, out.Entry)
	if err != nil {
		return out, fmt.Errorf("complete: %w", err)
	}
	if !out.Recorded {
		logger.Info("duplicate result, skipping submission")
		return out, nil
	}

	c.submit(ctx, out.Entry)
	out.Submitted = true
	return out, nil
}

// submit hands e to the leaderboard without waiting for the answer. The
// submission outlives ctx's cancellation but not the submit timeout.
func (c *Coordinator) submit(ctx context.Context, e score.Entry) {
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		res, err := c.board.Submit(ctx, e)
		if err != nil {
			c.logger.Warn("leaderboard submission failed",
				"player", e.PlayerName,
				"level", int(e.Level),
				"score", e.Score,
				"error", err,
			)
			return
		}
		c.logger.Debug("leaderboard submission finished",
			"player", e.PlayerName,
			"level", int(e.Level),
			"score", e.Score,
			"accepted", res.Accepted,
			"offline", res.Offline,
		)
	}()
}

// Wait blocks until every background submission has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// State returns the persisted game state.
func (c *Coordinator) State(ctx context.Context) (records.GameState, error) {
	return c.records.State(ctx)
}

// SetPlayer records the player's name.
func (c *Coordinator) SetPlayer(ctx context.Context, name string) (records.GameState, error) {
	return c.records.SetPlayer(ctx, name)
}

// ResetGame clears the current game, keeping the player and high score.
func (c *Coordinator) ResetGame(ctx context.Context) (records.GameState, error) {
	return c.records.ResetGame(ctx)
}

// Logout waits for background submissions, then deletes every locally
// stored record, including the leaderboard cache.
func (c *Coordinator) Logout(ctx context.Context) (records.GameState, error) {
	c.Wait()
	return c.records.Logout(ctx, leaderboard.CacheKey)
}

// Leaderboard returns the global board for filter.
func (c *Coordinator) Leaderboard(ctx context.Context, filter leaderboard.Filter) (leaderboard.View, error) {
	return c.board.View(ctx, filter)
}

// Personal returns the board built from player's own history. An empty
// player selects the current one.
func (c *Coordinator) Personal(ctx context.Context, player string, filter leaderboard.Filter) (leaderboard.View, error) {
	if player == "" {
		state, err := c.records.State(ctx)
		if err != nil {
			return leaderboard.View{}, err
		}
		player = state.PlayerName
	}
	history, err := c.records.History(ctx, player)
	if err != nil {
		return leaderboard.View{}, err
	}
	return c.board.Personal(history, filter), nil
}

// Flush resubmits leaderboard entries recorded while offline.
func (c *Coordinator) Flush(ctx context.Context) (leaderboard.FlushResult, error) {
	c.Wait()
	return c.board.Flush(ctx)
}
