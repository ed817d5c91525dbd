package match

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/roach88/roadsafe/internal/catalog"
	"github.com/roach88/roadsafe/internal/clock"
)

// EventKind identifies an engine transition.
type EventKind int

const (
	EventReveal EventKind = iota + 1
	EventTick
	EventSettle
	EventNextPart
)

// Event is a message consumed by Engine.Apply. CardID is used by
// EventReveal; Gen is stamped on scheduled events.
type Event struct {
	Kind   EventKind
	CardID string
	Gen    uint64
}

// ErrAlreadyStarted is returned by Start on an engine that was started before.
var ErrAlreadyStarted = errors.New("match: game already started")

// Engine drives one memory game.
//
// Thread-safety: Apply serializes all transitions with a mutex, so timer
// callbacks from clock.Real may arrive on any goroutine.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	catalog  *catalog.Catalog
	sched    clock.Scheduler
	rng      *rand.Rand
	logger   *slog.Logger
	onFinish func(Result)

	session   *Session
	gen       uint64
	faceUp    []int
	parts     []PartResult
	result    *Result
	delivered bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithRand sets the shuffle source. Tests and replays pass a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithOnFinish registers a callback invoked once when the game ends. It runs
// outside the engine lock.
func WithOnFinish(fn func(Result)) Option {
	return func(e *Engine) { e.onFinish = fn }
}

// New creates an engine over the catalog's signs.
func New(cat *catalog.Catalog, sched clock.Scheduler, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:     DefaultConfig(),
		catalog: cat,
		sched:   sched,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if e.cfg.Parts < 1 || e.cfg.Pairs < 1 || e.cfg.Moves < 1 || e.cfg.Seconds < 1 {
		return nil, fmt.Errorf("match: invalid config %+v", e.cfg)
	}
	if _, err := cat.SignsForPart(e.cfg.Parts, e.cfg.Pairs); err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	return e, nil
}

// Start deals part 1 and starts the countdown.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return ErrAlreadyStarted
	}
	return e.startPart(1)
}

// Reveal flips a card face up. It returns false when the reveal is not
// allowed: two cards already await resolution, the card is already face up,
// no moves remain, or the part has ended.
func (e *Engine) Reveal(cardID string) bool {
	return e.Apply(Event{Kind: EventReveal, CardID: cardID})
}

// Apply runs one transition and reports whether it changed state.
func (e *Engine) Apply(ev Event) bool {
	e.mu.Lock()
	applied := e.apply(ev)
	finished := e.takeFinished()
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
		snap.Session = e.session.clone()
	}
	snap.PartScores = make([]int, len(e.parts))
	for i, p := range e.parts {
		snap.PartScores[i] = p.Score
		snap.TotalScore += p.Score
	}
	snap.Finished = e.result != nil
	return snap
}

// Result returns the game outcome once the game has ended.
func (e *Engine) Result() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.result == nil {
		return Result{}, false
	}
	r := *e.result
	r.Parts = append([]PartResult(nil), e.result.Parts...)
	return r, true
}

func (e *Engine) apply(ev Event) bool {
	if e.session == nil {
		return false
	}
	switch ev.Kind {
	case EventReveal:
		return e.reveal(ev.CardID)
	case EventTick:
		return e.tick(ev.Gen)
	case EventSettle:
		return e.settle(ev.Gen)
	case EventNextPart:
		return e.nextPart(ev.Gen)
	default:
		return false
	}
}

func (e *Engine) reveal(cardID string) bool {
	s := e.session
	if s.Status != StatusActive || len(e.faceUp) >= 2 || s.MovesRemaining == 0 {
		return false
	}
	idx := -1
	for i := range s.Cards {
		if s.Cards[i].ID == cardID {
			idx = i
			break
		}
	}
	if idx < 0 || s.Cards[idx].Revealed {
		return false
	}

	s.Cards[idx].Revealed = true
	e.faceUp = append(e.faceUp, idx)
	if len(e.faceUp) == 2 {
		e.schedule(e.cfg.SettleDelay, Event{Kind: EventSettle, Gen: e.gen})
	}
	return true
}

func (e *Engine) tick(gen uint64) bool {
	s := e.session
	if gen != e.gen || s.Status != StatusActive {
		return false
	}
	s.SecondsRemaining--
	if s.SecondsRemaining <= 0 {
		s.SecondsRemaining = 0
		e.endPart(StatusFailed)
		return true
	}
	e.schedule(e.cfg.TickInterval, Event{Kind: EventTick, Gen: e.gen})
	return true
}

func (e *Engine) settle(gen uint64) bool {
	s := e.session
	if gen != e.gen || s.Status != StatusActive || len(e.faceUp) != 2 {
		return false
	}

	a, b := &s.Cards[e.faceUp[0]], &s.Cards[e.faceUp[1]]
	e.faceUp = e.faceUp[:0]
	s.MovesRemaining = max(0, s.MovesRemaining-1)

	if a.PairKey == b.PairKey {
		a.Matched, b.Matched = true, true
		s.MatchedPairs++
		if s.MatchedPairs == e.cfg.Pairs {
			e.endPart(StatusPartComplete)
			return true
		}
	} else {
		a.Revealed, b.Revealed = false, false
	}

	if s.MovesRemaining == 0 {
		e.endPart(StatusFailed)
	}
	return true
}

func (e *Engine) nextPart(gen uint64) bool {
	s := e.session
	if gen != e.gen || s.Status != StatusPartComplete || s.Part >= e.cfg.Parts {
		return false
	}
	if err := e.startPart(s.Part + 1); err != nil {
		// The catalog was checked in New; this only fires if it changed since.
		e.logger.Error("failed to deal next part", "part", s.Part+1, "error", err)
		e.finish()
		return false
	}
	return true
}

func (e *Engine) startPart(part int) error {
	signs, err := e.catalog.SignsForPart(part, e.cfg.Pairs)
	if err != nil {
		return err
	}

	cards := make([]Card, 0, 2*len(signs))
	for _, sign := range signs {
		cards = append(cards,
			Card{ID: "sign-" + sign.ID, PairKey: sign.ID, Face: FaceSign, Content: sign.Image},
			Card{ID: "name-" + sign.ID, PairKey: sign.ID, Face: FaceLabel, Content: sign.Name},
		)
	}
	e.rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })

	e.session = &Session{
		Part:             part,
		Cards:            cards,
		MovesRemaining:   e.cfg.Moves,
		SecondsRemaining: e.cfg.Seconds,
		Status:           StatusActive,
	}
	e.faceUp = e.faceUp[:0]
	e.gen++
	e.schedule(e.cfg.TickInterval, Event{Kind: EventTick, Gen: e.gen})

	e.logger.Debug("part started", "part", part, "cards", len(cards))
	return nil
}

// endPart records the part score and either schedules the next part or
// finishes the game. Failing any part finishes the game.
func (e *Engine) endPart(status Status) {
	s := e.session
	s.Status = status
	e.faceUp = e.faceUp[:0]
	e.gen++

	pr := PartResult{
		Part:             s.Part,
		Status:           status,
		MatchedPairs:     s.MatchedPairs,
		MovesRemaining:   s.MovesRemaining,
		SecondsRemaining: s.SecondsRemaining,
		Score:            scoreSession(s),
	}
	e.parts = append(e.parts, pr)
	e.logger.Debug("part ended",
		"part", pr.Part,
		"status", pr.Status.String(),
		"matched_pairs", pr.MatchedPairs,
		"score", pr.Score,
	)

	if status == StatusPartComplete && s.Part < e.cfg.Parts {
		e.schedule(e.cfg.TransitionDelay, Event{Kind: EventNextPart, Gen: e.gen})
		return
	}
	e.finish()
}

func (e *Engine) finish() {
	r := Result{Parts: append([]PartResult(nil), e.parts...)}
	for _, p := range e.parts {
		r.TotalScore += p.Score
	}
	e.result = &r
	e.logger.Debug("game finished", "parts_played", len(r.Parts), "total_score", r.TotalScore)
}

// takeFinished returns the result exactly once after the game ends.
func (e *Engine) takeFinished() *Result {
	if e.result == nil || e.delivered {
		return nil
	}
	e.delivered = true
	r := *e.result
	return &r
}

func (e *Engine) schedule(d time.Duration, ev Event) {
	e.sched.AfterFunc(d, func() { e.Apply(ev) })
}
