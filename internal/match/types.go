package match

import "time"

// Status is the lifecycle state of one part.
type Status int

const (
	StatusActive Status = iota + 1
	StatusPartComplete
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPartComplete:
		return "part_complete"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the part has ended.
func (s Status) Terminal() bool {
	return s == StatusPartComplete || s == StatusFailed
}

// Face distinguishes the two cards of a pair.
type Face string

const (
	FaceSign  Face = "sign"
	FaceLabel Face = "label"
)

// Card is one dealt card. Cards sharing a PairKey form a pair.
type Card struct {
	ID       string `json:"id"`
	PairKey  string `json:"pair_key"`
	Face     Face   `json:"face"`
	Content  string `json:"content"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// Session is the state of the part being played.
type Session struct {
	Part             int    `json:"part"`
	Cards            []Card `json:"cards"`
	MovesRemaining   int    `json:"moves_remaining"`
	SecondsRemaining int    `json:"seconds_remaining"`
	MatchedPairs     int    `json:"matched_pairs"`
	Status           Status `json:"status"`
}

func (s Session) clone() Session {
	out := s
	out.Cards = make([]Card, len(s.Cards))
	copy(out.Cards, s.Cards)
	return out
}

// Config holds the game budgets and delays.
type Config struct {
	Parts           int
	Pairs           int
	Moves           int
	Seconds         int
	TickInterval    time.Duration
	SettleDelay     time.Duration
	TransitionDelay time.Duration
}

// DefaultConfig returns the standard two parts of eight pairs, 25 moves and
// five minutes per part.
func DefaultConfig() Config {
	return Config{
		Parts:           2,
		Pairs:           8,
		Moves:           25,
		Seconds:         300,
		TickInterval:    time.Second,
		SettleDelay:     time.Second,
		TransitionDelay: 2 * time.Second,
	}
}

// PartResult is the final state of one played part.
type PartResult struct {
	Part             int    `json:"part"`
	Status           Status `json:"status"`
	MatchedPairs     int    `json:"matched_pairs"`
	MovesRemaining   int    `json:"moves_remaining"`
	SecondsRemaining int    `json:"seconds_remaining"`
	Score            int    `json:"score"`
}

// Result is the outcome of a whole game.
type Result struct {
	Parts      []PartResult `json:"parts"`
	TotalScore int          `json:"total_score"`
}

// PartScore returns the score of part n (1-based), or 0 if it was never played.
func (r Result) PartScore(n int) int {
	if n < 1 || n > len(r.Parts) {
		return 0
	}
	return r.Parts[n-1].Score
}

// Completed reports whether every configured part was matched in full.
func (r Result) Completed(parts int) bool {
	if len(r.Parts) != parts {
		return false
	}
	for _, p := range r.Parts {
		if p.Status != StatusPartComplete {
			return false
		}
	}
	return true
}

// Snapshot is an immutable copy of the engine state.
type Snapshot struct {
	Session
	PartScores []int `json:"part_scores"`
	Finished   bool  `json:"finished"`
	TotalScore int   `json:"total_score"`
}
