// Package score defines the canonical score record shared by the local
// store, the leaderboard and the remote client.
//
// Two historical record shapes exist on the wire and in old local caches:
// {name, date} and {player_name, created_at}. Both are normalized into Entry
// by DecodeEntries at the boundary; nothing downstream inspects raw fields.
package score

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Level identifies a mini-game.
type Level int

const (
	// LevelMatch is the two-part memory-matching game.
	LevelMatch Level = 1
	// LevelQuiz is the timed multiple-choice quiz.
	LevelQuiz Level = 2
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l == LevelMatch || l == LevelQuiz
}

func (l Level) String() string {
	switch l {
	case LevelMatch:
		return "match"
	case LevelQuiz:
		return "quiz"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses "1" or "2".
func ParseLevel(s string) (Level, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return LevelMatch, nil
	case "2":
		return LevelQuiz, nil
	default:
		return 0, fmt.Errorf("invalid level %q: must be 1 or 2", s)
	}
}

// Entry is one completed session score.
type Entry struct {
	ID         string    `json:"id,omitempty"`
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	Level      Level     `json:"level"`
	Timestamp  time.Time `json:"created_at"`
}

// Validate checks the fields every stored entry must satisfy.
func (e Entry) Validate() error {
	if e.PlayerName == "" {
		return fmt.Errorf("entry: player name is required")
	}
	if !e.Level.Valid() {
		return fmt.Errorf("entry: invalid level %d", int(e.Level))
	}
	if e.Score < 0 {
		return fmt.Errorf("entry: negative score %d", e.Score)
	}
	return nil
}

// Key identifies the (player, level) group an entry belongs to.
type Key struct {
	Player string
	Level  Level
}

// Key returns the entry's (player, level) group.
func (e Entry) Key() Key {
	return Key{Player: e.PlayerName, Level: e.Level}
}

// NormalizeName trims surrounding whitespace and applies Unicode NFC so that
// visually identical names typed on different keyboards group together.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
