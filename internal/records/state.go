// Package records is the local persisted state of one installation: the game
// state (current screen, scores and player identity) and one score history
// per player.
//
// Everything is stored through the store.KV capability. Missing or malformed
// records read as their empty value; they are logged and never fatal.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/roadsafe/internal/clock"
	"github.com/roach88/roadsafe/internal/score"
	"github.com/roach88/roadsafe/internal/store"
)

const (
	// GameStateKey holds the serialized GameState.
	GameStateKey = "game_state"
	// HistoryPrefix prefixes each per-player history key.
	HistoryPrefix = "history/"

	// DefaultWindow is the trailing window in which an identical
	// (level, score) history entry is treated as a duplicate.
	DefaultWindow = time.Hour
)

// Screen names the screen the player was last on.
type Screen string

const (
	ScreenLoading     Screen = "loading"
	ScreenMenu        Screen = "menu"
	ScreenLevel1      Screen = "level1"
	ScreenLevel2      Screen = "level2"
	ScreenCredits     Screen = "credits"
	ScreenResults     Screen = "results"
	ScreenNameInput   Screen = "name-input"
	ScreenLeaderboard Screen = "leaderboard"
	ScreenSettings    Screen = "settings"
)

// GameState is the persisted game context.
type GameState struct {
	CurrentScreen  Screen      `json:"current_screen"`
	CurrentLevel   score.Level `json:"current_level"`
	Score          int         `json:"score"`
	HighScore      int         `json:"high_score"`
	Level1Score    int         `json:"level1_score"`
	Level2Score    int         `json:"level2_score"`
	PlayerName     string      `json:"player_name"`
	HasEnteredName bool        `json:"has_entered_name"`
}

// InitialState is the state of a fresh installation.
func InitialState() GameState {
	return GameState{
		CurrentScreen: ScreenLoading,
		CurrentLevel:  score.LevelMatch,
	}
}

// Best returns the stored best for level.
func (g GameState) Best(level score.Level) int {
	switch level {
	case score.LevelMatch:
		return g.Level1Score
	case score.LevelQuiz:
		return g.Level2Score
	default:
		return 0
	}
}

// Store reads and writes local records.
//
// Thread-safety: mutations are serialized by a mutex so read-modify-write
// cycles on the same key do not interleave.
type Store struct {
	mu     sync.Mutex
	kv     store.KV
	clock  clock.Clock
	ids    score.IDGenerator
	window time.Duration
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp entries without a timestamp.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator sets the generator used for entries without an ID.
func WithIDGenerator(g score.IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithWindow sets the duplicate suppression window.
func WithWindow(d time.Duration) Option {
	return func(s *Store) { s.window = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store over kv.
func New(kv store.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		clock:  clock.Real{},
		ids:    score.UUIDv7Generator{},
		window: DefaultWindow,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the persisted game state, or InitialState if none is stored
// or the stored record is malformed.
func (s *Store) State(ctx context.Context) (GameState, error) {
	return s.readState(ctx)
}

// SetPlayer records the player's identity and moves to the menu.
func (s *Store) SetPlayer(ctx context.Context, name string) (GameState, error) {
	name = score.NormalizeName(name)
	if name == "" {
		return GameState{}, fmt.Errorf("set player: name is required")
	}
	return s.update(ctx, func(g *GameState) {
		g.PlayerName = name
		g.HasEnteredName = true
		g.CurrentScreen = ScreenMenu
	})
}

// SetScreen records the current screen.
func (s *Store) SetScreen(ctx context.Context, screen Screen) (GameState, error) {
	return s.update(ctx, func(g *GameState) { g.CurrentScreen = screen })
}

// RecordResult stores the score of a finished level. Bests only ever grow.
func (s *Store) RecordResult(ctx context.Context, level score.Level, points int) (GameState, error) {
	if !level.Valid() {
		return GameState{}, fmt.Errorf("record result: invalid level %d", int(level))
	}
	return s.update(ctx, func(g *GameState) {
		g.CurrentLevel = level
		g.CurrentScreen = ScreenResults
		g.Score = points
		g.HighScore = max(g.HighScore, points)
		switch level {
		case score.LevelMatch:
			g.Level1Score = max(g.Level1Score, points)
		case score.LevelQuiz:
			g.Level2Score = max(g.Level2Score, points)
		}
	})
}

// ResetGame starts over while keeping the high score and player identity.
func (s *Store) ResetGame(ctx context.Context) (GameState, error) {
	return s.update(ctx, func(g *GameState) {
		next := InitialState()
		next.HighScore = g.HighScore
		next.PlayerName = g.PlayerName
		next.HasEnteredName = g.HasEnteredName
		*g = next
	})
}

// Logout deletes the game state, every player history and any extra keys
// owned by other components, then stores a fresh state on the name input
// screen.
func (s *Store) Logout(ctx context.Context, extraKeys ...string) (GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.kv.Keys(ctx, HistoryPrefix)
	if err != nil {
		return GameState{}, fmt.Errorf("logout: %w", err)
	}
	keys = append(keys, GameStateKey)
	keys = append(keys, extraKeys...)
	for _, key := range keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			return GameState{}, fmt.Errorf("logout: %w", err)
		}
	}

	next := InitialState()
	next.CurrentScreen = ScreenNameInput
	if err := s.writeState(ctx, next); err != nil {
		return GameState{}, fmt.Errorf("logout: %w", err)
	}
	s.logger.Info("logged out", "keys_removed", len(keys))
	return next, nil
}

func (s *Store) update(ctx context.Context, fn func(*GameState)) (GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.readState(ctx)
	if err != nil {
		return GameState{}, err
	}
	fn(&g)
	if err := s.writeState(ctx, g); err != nil {
		return GameState{}, err
	}
	return g, nil
}

func (s *Store) readState(ctx context.Context) (GameState, error) {
	data, ok, err := s.kv.Get(ctx, GameStateKey)
	if err != nil {
		return GameState{}, fmt.Errorf("read game state: %w", err)
	}
	g := InitialState()
	if !ok {
		return g, nil
	}
	// Fields missing from an older record keep their initial values.
	if err := json.Unmarshal(data, &g); err != nil {
		s.logger.Warn("discarding malformed game state", "error", err)
		return InitialState(), nil
	}
	return g, nil
}

func (s *Store) writeState(ctx context.Context, g GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}
	if err := s.kv.Set(ctx, GameStateKey, data); err != nil {
		return fmt.Errorf("write game state: %w", err)
	}
	return nil
}
