package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/roach88/roadsafe/internal/catalog"
	"github.com/roach88/roadsafe/internal/clock"
	"github.com/roach88/roadsafe/internal/leaderboard"
	"github.com/roach88/roadsafe/internal/match"
	"github.com/roach88/roadsafe/internal/quiz"
	"github.com/roach88/roadsafe/internal/records"
	"github.com/roach88/roadsafe/internal/score"
	"github.com/roach88/roadsafe/internal/session"
	"github.com/roach88/roadsafe/internal/store"
)

// Epoch is the virtual start time of every scenario.
var Epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	catalog     *catalog.Catalog
	coordinator *session.Coordinator
	logger      *slog.Logger
}

// WithCatalog runs scenarios over cat instead of the embedded catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *runConfig) { c.catalog = cat }
}

// WithCoordinator records finished games through co instead of a fresh
// in-memory session.
func WithCoordinator(co *session.Coordinator) Option {
	return func(c *runConfig) { c.coordinator = co }
}

// WithLogger sets the logger handed to the engines.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// driver adapts one engine to the step loop.
type driver interface {
	start() error
	apply(step Step) bool
	state() State
	finished() bool
	complete(ctx context.Context, co *session.Coordinator) (session.Outcome, error)
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh virtual clock and, when the scenario names a
// player, a fresh in-memory record store with no remote leaderboard.
// Expectation mismatches are reported in the result; the error is
// reserved for scenarios that cannot run.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.catalog == nil {
		cat, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		cfg.catalog = cat
	}

	v := clock.NewVirtual(Epoch)
	d, err := newDriver(scenario, cfg, v)
	if err != nil {
		return nil, err
	}
	if err := d.start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", scenario.Game, err)
	}

	result := NewResult()
	result.AddFrame(Frame{
		Step:    0,
		Action:  ActionStart,
		Applied: true,
		Elapsed: "0s",
		State:   d.state(),
	})

	for i, step := range scenario.Steps {
		name, arg := step.Action()
		applied := true
		if name == ActionAdvance {
			dur, err := time.ParseDuration(step.Advance)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			v.Advance(dur)
		} else {
			applied = d.apply(step)
		}

		frame := Frame{
			Step:    i + 1,
			Action:  name,
			Arg:     arg,
			Applied: applied,
			Elapsed: v.Now().Sub(Epoch).String(),
			State:   d.state(),
		}
		result.AddFrame(frame)

		if step.Expect != nil {
			actual := State{"applied": applied}
			for k, val := range frame.State {
				actual[k] = val
			}
			for _, msg := range matchExpect(actual, step.Expect) {
				result.AddError(fmt.Sprintf("step %d (%s %s): %s", i+1, name, arg, msg))
			}
		}
	}

	final := d.state()
	if scenario.Player != "" && d.finished() {
		outcome, err := recordOutcome(scenario, cfg, v, d)
		if err != nil {
			return nil, err
		}
		result.Outcome = &outcome
		final["recorded"] = outcome.Recorded
		final["high_score"] = outcome.State.HighScore
		final["best"] = outcome.State.Best(outcome.State.CurrentLevel)
	}
	if scenario.Final != nil {
		for _, msg := range matchExpect(final, scenario.Final) {
			result.AddError("final: " + msg)
		}
	}
	return result, nil
}

func newDriver(s *Scenario, cfg runConfig, sched clock.Scheduler) (driver, error) {
	switch s.Game {
	case GameMatch:
		mc := match.DefaultConfig()
		if s.Config.Parts > 0 {
			mc.Parts = s.Config.Parts
		}
		if s.Config.Pairs > 0 {
			mc.Pairs = s.Config.Pairs
		}
		if s.Config.Moves > 0 {
			mc.Moves = s.Config.Moves
		}
		if s.Config.Seconds > 0 {
			mc.Seconds = s.Config.Seconds
		}
		eng, err := match.New(cfg.catalog, sched,
			match.WithConfig(mc),
			match.WithRand(rand.New(rand.NewPCG(s.Seed, s.Seed))),
			match.WithLogger(cfg.logger),
		)
		if err != nil {
			return nil, err
		}
		return &matchDriver{engine: eng}, nil

	case GameQuiz:
		cat := cfg.catalog
		if n := s.Config.Questions; n > 0 {
			if n > len(cat.Questions) {
				return nil, fmt.Errorf("config: %d questions requested, catalog has %d", n, len(cat.Questions))
			}
			trimmed := *cat
			trimmed.Questions = cat.Questions[:n]
			cat = &trimmed
		}
		qc := quiz.DefaultConfig()
		if s.Config.Seconds > 0 {
			qc.SecondsPerQuestion = s.Config.Seconds
		}
		eng, err := quiz.New(cat, sched, quiz.WithConfig(qc), quiz.WithLogger(cfg.logger))
		if err != nil {
			return nil, err
		}
		return &quizDriver{engine: eng}, nil

	default:
		return nil, fmt.Errorf("unknown game %q", s.Game)
	}
}

// recordOutcome records the finished game for the scenario's player. Without
// a configured coordinator it uses a session over an in-memory store whose
// leaderboard has no remote, so the submission stays in the local cache.
func recordOutcome(s *Scenario, cfg runConfig, c clock.Clock, d driver) (session.Outcome, error) {
	ctx := context.Background()
	co := cfg.coordinator
	if co == nil {
		co = memoryCoordinator(s, cfg, c)
	}
	defer co.Wait()

	if _, err := co.SetPlayer(ctx, s.Player); err != nil {
		return session.Outcome{}, fmt.Errorf("record outcome: %w", err)
	}
	outcome, err := d.complete(ctx, co)
	if err != nil {
		return session.Outcome{}, fmt.Errorf("record outcome: %w", err)
	}
	return outcome, nil
}

func memoryCoordinator(s *Scenario, cfg runConfig, c clock.Clock) *session.Coordinator {
	kv := store.NewMemory()
	rec := records.New(kv,
		records.WithClock(c),
		records.WithIDGenerator(score.NewSequenceGenerator("history")),
		records.WithLogger(cfg.logger),
	)
	board := leaderboard.New(nil, leaderboard.NewLocalCache(kv, leaderboard.WithCacheLogger(cfg.logger)),
		leaderboard.WithClock(c),
		leaderboard.WithLogger(cfg.logger),
	)
	return session.New(rec, board,
		session.WithClock(c),
		session.WithIDGenerator(score.NewSequenceGenerator(s.Name)),
		session.WithLogger(cfg.logger),
	)
}

type matchDriver struct {
	engine *match.Engine
}

func (d *matchDriver) start() error { return d.engine.Start() }

func (d *matchDriver) apply(step Step) bool {
	return d.engine.Reveal(step.Reveal)
}

func (d *matchDriver) finished() bool {
	_, ok := d.engine.Result()
	return ok
}

func (d *matchDriver) state() State {
	snap := d.engine.Snapshot()
	faceUp := []string{}
	for _, c := range snap.Cards {
		if c.Revealed && !c.Matched {
			faceUp = append(faceUp, c.ID)
		}
	}
	slices.Sort(faceUp)

	return State{
		"status":            snap.Status.String(),
		"part":              snap.Part,
		"matched_pairs":     snap.MatchedPairs,
		"moves_remaining":   snap.MovesRemaining,
		"seconds_remaining": snap.SecondsRemaining,
		"face_up":           faceUp,
		"part_scores":       snap.PartScores,
		"total_score":       snap.TotalScore,
		"finished":          snap.Finished,
	}
}

func (d *matchDriver) complete(ctx context.Context, co *session.Coordinator) (session.Outcome, error) {
	r, _ := d.engine.Result()
	return co.CompleteMatch(ctx, r)
}

type quizDriver struct {
	engine *quiz.Engine
}

func (d *quizDriver) start() error { return d.engine.Start() }

func (d *quizDriver) apply(step Step) bool {
	if step.CloseMedia {
		return d.engine.CloseMedia()
	}
	return d.engine.SelectAnswer(*step.Select)
}

func (d *quizDriver) finished() bool {
	_, ok := d.engine.Result()
	return ok
}

func (d *quizDriver) state() State {
	snap := d.engine.Snapshot()
	return State{
		"status":            snap.Status.String(),
		"index":             snap.Index,
		"question_id":       snap.Question.ID,
		"seconds_remaining": snap.SecondsRemaining,
		"running_score":     snap.RunningScore,
		"media_clip":        snap.MediaClip,
		"answered":          len(snap.Answers),
		"finished":          snap.Finished,
		"final_score":       snap.FinalScore,
	}
}

func (d *quizDriver) complete(ctx context.Context, co *session.Coordinator) (session.Outcome, error) {
	r, _ := d.engine.Result()
	return co.CompleteQuiz(ctx, r)
}
