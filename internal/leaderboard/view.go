package leaderboard

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/roadsafe/internal/score"
)

// Filter selects a leaderboard view.
type Filter int

const (
	FilterCombined Filter = iota
	FilterLevel1
	FilterLevel2
)

// ParseFilter parses "1", "2", "combined" or "all".
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1":
		return FilterLevel1, nil
	case "2":
		return FilterLevel2, nil
	case "", "all", "combined":
		return FilterCombined, nil
	default:
		return 0, fmt.Errorf("invalid leaderboard filter %q: must be 1, 2 or combined", s)
	}
}

// Level returns the level the filter selects, or 0 for the combined view.
func (f Filter) Level() score.Level {
	switch f {
	case FilterLevel1:
		return score.LevelMatch
	case FilterLevel2:
		return score.LevelQuiz
	default:
		return 0
	}
}

func (f Filter) String() string {
	switch f {
	case FilterLevel1:
		return "1"
	case FilterLevel2:
		return "2"
	default:
		return "combined"
	}
}

// MarshalText encodes the filter as ParseFilter accepts it.
func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Source names where a view's entries came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Row is one ranked line of a view. Level views fill Level and Score;
// the combined view fills Level1Score, Level2Score and Score (their sum).
type Row struct {
	Rank        int         `json:"rank"`
	PlayerName  string      `json:"player_name"`
	Level       score.Level `json:"level,omitempty"`
	Score       int         `json:"score"`
	Level1Score int         `json:"level1_score,omitempty"`
	Level2Score int         `json:"level2_score,omitempty"`
	Timestamp   time.Time   `json:"created_at"`
}

// View is a ranked leaderboard derived from a set of entries.
type View struct {
	Filter      Filter    `json:"filter"`
	Source      Source    `json:"source"`
	Degraded    bool      `json:"degraded"`
	GeneratedAt time.Time `json:"generated_at"`
	Rows        []Row     `json:"rows"`
}

// FirstScores keeps, for each (player, level) of the given level, only the
// earliest entry, and orders the result by score descending.
func FirstScores(entries []score.Entry, level score.Level) []score.Entry {
	first := make(map[score.Key]score.Entry)
	for _, e := range entries {
		if e.Level != level {
			continue
		}
		cur, ok := first[e.Key()]
		if !ok || earlier(e, cur) {
			first[e.Key()] = e
		}
	}

	out := make([]score.Entry, 0, len(first))
	for _, e := range first {
		out = append(out, e)
	}
	slices.SortFunc(out, byScore)
	return out
}

// Combined sums each player's best level 1 and level 2 scores. Players whose
// total is zero are left out. Rows are ordered by total descending and carry
// the player's most recent timestamp.
func Combined(entries []score.Entry) []Row {
	totals := make(map[string]*Row)
	for _, e := range entries {
		r, ok := totals[e.PlayerName]
		if !ok {
			r = &Row{PlayerName: e.PlayerName, Timestamp: e.Timestamp}
			totals[e.PlayerName] = r
		}
		switch e.Level {
		case score.LevelMatch:
			r.Level1Score = max(r.Level1Score, e.Score)
		case score.LevelQuiz:
			r.Level2Score = max(r.Level2Score, e.Score)
		}
		if e.Timestamp.After(r.Timestamp) {
			r.Timestamp = e.Timestamp
		}
	}

	rows := make([]Row, 0, len(totals))
	for _, r := range totals {
		r.Score = r.Level1Score + r.Level2Score
		if r.Score == 0 {
			continue
		}
		rows = append(rows, *r)
	}
	slices.SortFunc(rows, func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			a.Timestamp.Compare(b.Timestamp),
			cmp.Compare(a.PlayerName, b.PlayerName),
		)
	})
	rank(rows)
	return rows
}

// Global builds the shared leaderboard: first scores for a level filter, the
// combined totals otherwise. limit <= 0 keeps every row.
func Global(entries []score.Entry, filter Filter, limit int) []Row {
	var rows []Row
	if filter == FilterCombined {
		rows = Combined(entries)
	} else {
		rows = entryRows(FirstScores(entries, filter.Level()))
	}
	return truncate(rows, limit)
}

// Personal builds a player's own board from their history: every entry of
// the level ordered by score for a level filter, the combined totals
// otherwise.
func Personal(history []score.Entry, filter Filter) []Row {
	if filter == FilterCombined {
		return Combined(history)
	}
	var picked []score.Entry
	for _, e := range history {
		if e.Level == filter.Level() {
			picked = append(picked, e)
		}
	}
	slices.SortStableFunc(picked, byScore)
	return entryRows(picked)
}

func entryRows(entries []score.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			PlayerName: e.PlayerName,
			Level:      e.Level,
			Score:      e.Score,
			Timestamp:  e.Timestamp,
		}
	}
	rank(rows)
	return rows
}

func truncate(rows []Row, limit int) []Row {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func rank(rows []Row) {
	for i := range rows {
		rows[i].Rank = i + 1
	}
}

// byScore orders by score descending, then earliest first, then by name.
func byScore(a, b score.Entry) int {
	return cmp.Or(
		cmp.Compare(b.Score, a.Score),
		a.Timestamp.Compare(b.Timestamp),
		cmp.Compare(a.PlayerName, b.PlayerName),
		cmp.Compare(a.Level, b.Level),
	)
}

// earlier reports whether a precedes b in submission order. Equal
// timestamps fall back to the lower score, then the ID.
func earlier(a, b score.Entry) bool {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c < 0
	}
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ID < b.ID
}
