// Package quiz implements the timed multiple-choice quiz.
//
// Questions are asked one at a time in catalog order with a per-question
// countdown. A correct answer adds 100 points and a wrong answer or a timeout
// subtracts 50; the running score may go negative, but the final score is
// clamped at zero. Questions that carry media open a gate after the answer:
// the quiz waits until CloseMedia is called before advancing.
package quiz

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/roadsafe/internal/catalog"
	"github.com/roach88/roadsafe/internal/clock"
)

const (
	correctPoints = 100
	wrongPenalty  = 50

	// TimedOut is the option recorded when the countdown expires.
	TimedOut = -1
)

// Status is the quiz lifecycle state.
type Status int

const (
	StatusActive Status = iota + 1
	StatusAwaitingMedia
	StatusAdvancing
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusAwaitingMedia:
		return "awaiting_media"
	case StatusAdvancing:
		return "advancing"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the per-question countdown and delays.
type Config struct {
	SecondsPerQuestion int
	TickInterval       time.Duration
	AdvanceDelay       time.Duration
	MediaCloseDelay    time.Duration
}

// DefaultConfig returns sixty seconds per question, a two second result
// display and a half second pause after the media gate closes.
func DefaultConfig() Config {
	return Config{
		SecondsPerQuestion: 60,
		TickInterval:       time.Second,
		AdvanceDelay:       2 * time.Second,
		MediaCloseDelay:    500 * time.Millisecond,
	}
}

// Session is the state of the question being asked.
type Session struct {
	Index            int    `json:"index"`
	SecondsRemaining int    `json:"seconds_remaining"`
	RunningScore     int    `json:"running_score"`
	Status           Status `json:"status"`
	// MediaClip is the clip to play while Status is StatusAwaitingMedia.
	MediaClip string `json:"media_clip,omitempty"`
}

// Answer records how one question was resolved.
type Answer struct {
	QuestionID string `json:"question_id"`
	Selected   int    `json:"selected"`
	Correct    bool   `json:"correct"`
}

// Result is the outcome of a finished quiz.
type Result struct {
	FinalScore   int      `json:"final_score"`
	RunningScore int      `json:"running_score"`
	Correct      int      `json:"correct"`
	Answers      []Answer `json:"answers"`
}

// Snapshot is an immutable copy of the engine state.
type Snapshot struct {
	Session
	Question   catalog.Question `json:"-"`
	Answers    []Answer         `json:"answers"`
	Finished   bool             `json:"finished"`
	FinalScore int              `json:"final_score"`
}

// EventKind identifies an engine transition.
type EventKind int

const (
	EventSelect EventKind = iota + 1
	EventCloseMedia
	EventTick
	EventAdvance
)

// Event is a message consumed by Engine.Apply.
type Event struct {
	Kind   EventKind
	Option int
	Gen    uint64
}

// ErrAlreadyStarted is returned by Start on an engine that was started before.
var ErrAlreadyStarted = errors.New("quiz: already started")

// Engine drives one quiz.
//
// Thread-safety: Apply serializes all transitions with a mutex.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	questions []catalog.Question
	sched     clock.Scheduler
	logger    *slog.Logger
	onFinish  func(Result)

	session   *Session
	gen       uint64
	answers   []Answer
	result    *Result
	delivered bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithOnFinish registers a callback invoked once when the quiz completes.
func WithOnFinish(fn func(Result)) Option {
	return func(e *Engine) { e.onFinish = fn }
}

// New creates a quiz over the catalog's questions.
func New(cat *catalog.Catalog, sched clock.Scheduler, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    DefaultConfig(),
		sched:  sched,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(cat.Questions) == 0 {
		return nil, fmt.Errorf("quiz: catalog has no questions")
	}
	if e.cfg.SecondsPerQuestion < 1 {
		return nil, fmt.Errorf("quiz: invalid seconds per question %d", e.cfg.SecondsPerQuestion)
	}
	e.questions = append([]catalog.Question(nil), cat.Questions...)
	return e, nil
}

// Start asks the first question.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return ErrAlreadyStarted
	}
	e.session = &Session{}
	e.ask(0)
	return nil
}

// SelectAnswer answers the current question. It returns false if the
// question was already answered or the media gate is open.
func (e *Engine) SelectAnswer(option int) bool {
	return e.Apply(Event{Kind: EventSelect, Option: option})
}

// CloseMedia closes the media gate, whether playback finished or was skipped.
func (e *Engine) CloseMedia() bool {
	return e.Apply(Event{Kind: EventCloseMedia})
}

// Apply runs one transition and reports whether it changed state.
func (e *Engine) Apply(ev Event) bool {
	e.mu.Lock()
	applied := e.apply(ev)
	var finished *Result
	if e.result != nil && !e.delivered {
		e.delivered = true
		r := *e.result
		finished = &r
	}
	e.mu.Unlock()

	if finished != nil && e.onFinish != nil {
		e.onFinish(*finished)
	}
	return applied
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	var snap Snapshot
	if e.session != nil {
		snap.Session = *e.session
		snap.Question = e.questions[e.session.Index]
	}
	snap.Answers = append([]Answer(nil), e.answers...)
	if e.result != nil {
		snap.Finished = true
		snap.FinalScore = e.result.FinalScore
	}
	return snap
}

// Result returns the outcome once the quiz is complete.
func (e *Engine) Result() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.result == nil {
		return Result{}, false
	}
	r := *e.result
	r.Answers = append([]Answer(nil), e.result.Answers...)
	return r, true
}

func (e *Engine) apply(ev Event) bool {
	if e.session == nil {
		return false
	}
	switch ev.Kind {
	case EventSelect:
		return e.selectAnswer(ev.Option)
	case EventCloseMedia:
		return e.closeMedia()
	case EventTick:
		return e.tick(ev.Gen)
	case EventAdvance:
		return e.advance(ev.Gen)
	default:
		return false
	}
}

func (e *Engine) selectAnswer(option int) bool {
	s := e.session
	if s.Status != StatusActive {
		return false
	}
	q := e.questions[s.Index]
	correct := option == q.CorrectIndex
	e.record(q, option, correct)
	e.gen++

	if q.HasMedia() {
		s.Status = StatusAwaitingMedia
		s.MediaClip = q.Clip(correct)
		return true
	}
	s.Status = StatusAdvancing
	e.schedule(e.cfg.AdvanceDelay, EventAdvance)
	return true
}

func (e *Engine) closeMedia() bool {
	s := e.session
	if s.Status != StatusAwaitingMedia {
		return false
	}
	s.Status = StatusAdvancing
	s.MediaClip = ""
	e.schedule(e.cfg.MediaCloseDelay, EventAdvance)
	return true
}

func (e *Engine) tick(gen uint64) bool {
	s := e.session
	if gen != e.gen || s.Status != StatusActive {
		return false
	}
	s.SecondsRemaining--
	if s.SecondsRemaining > 0 {
		e.schedule(e.cfg.TickInterval, EventTick)
		return true
	}

	s.SecondsRemaining = 0
	e.record(e.questions[s.Index], TimedOut, false)
	e.gen++
	s.Status = StatusAdvancing
	e.schedule(e.cfg.AdvanceDelay, EventAdvance)
	return true
}

func (e *Engine) advance(gen uint64) bool {
	s := e.session
	if gen != e.gen || s.Status != StatusAdvancing {
		return false
	}
	if s.Index < len(e.questions)-1 {
		e.ask(s.Index + 1)
		return true
	}

	e.gen++
	s.Status = StatusComplete
	r := Result{
		FinalScore:   max(0, s.RunningScore),
		RunningScore: s.RunningScore,
		Answers:      append([]Answer(nil), e.answers...),
	}
	for _, a := range e.answers {
		if a.Correct {
			r.Correct++
		}
	}
	e.result = &r
	e.logger.Debug("quiz complete", "final_score", r.FinalScore, "correct", r.Correct)
	return true
}

func (e *Engine) ask(index int) {
	s := e.session
	s.Index = index
	s.SecondsRemaining = e.cfg.SecondsPerQuestion
	s.Status = StatusActive
	s.MediaClip = ""
	e.gen++
	e.schedule(e.cfg.TickInterval, EventTick)
}

func (e *Engine) record(q catalog.Question, option int, correct bool) {
	if correct {
		e.session.RunningScore += correctPoints
	} else {
		e.session.RunningScore -= wrongPenalty
	}
	e.answers = append(e.answers, Answer{QuestionID: q.ID, Selected: option, Correct: correct})
	e.logger.Debug("question resolved",
		"question", q.ID,
		"selected", option,
		"correct", correct,
		"running_score", e.session.RunningScore,
	)
}

// schedule registers a timer for kind stamped with the current generation.
func (e *Engine) schedule(d time.Duration, kind EventKind) {
	ev := Event{Kind: kind, Gen: e.gen}
	e.sched.AfterFunc(d, func() { e.Apply(ev) })
}
