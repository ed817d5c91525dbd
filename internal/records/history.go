package records

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/roadsafe/internal/score"
)

// HistoryKey returns the KV key holding player's history.
func HistoryKey(player string) string {
	return HistoryPrefix + score.NormalizeName(player)
}

// History returns the player's entries, newest first. A missing or
// malformed history is empty.
func (s *Store) History(ctx context.Context, player string) ([]score.Entry, error) {
	return s.readHistory(ctx, player)
}

// Append adds e to its player's history unless an entry with the same level
// and score was recorded within the window before e. It reports whether the
// entry was inserted.
func (s *Store) Append(ctx context.Context, e score.Entry) (bool, error) {
	e.PlayerName = score.NormalizeName(e.PlayerName)
	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("append history: %w", err)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock.Now().UTC()
	}
	if e.ID == "" {
		e.ID = s.ids.Generate()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.readHistory(ctx, e.PlayerName)
	if err != nil {
		return false, err
	}

	cutoff := e.Timestamp.Add(-s.window)
	for _, h := range history {
		if h.Level == e.Level && h.Score == e.Score && h.Timestamp.After(cutoff) {
			s.logger.Debug("skipping duplicate history entry",
				"player", e.PlayerName,
				"level", int(e.Level),
				"score", e.Score,
			)
			return false, nil
		}
	}

	history = append(history, e)
	sortNewestFirst(history)

	data, err := score.EncodeEntries(history)
	if err != nil {
		return false, fmt.Errorf("append history: %w", err)
	}
	if err := s.kv.Set(ctx, HistoryKey(e.PlayerName), data); err != nil {
		return false, fmt.Errorf("append history: %w", err)
	}
	return true, nil
}

// Players lists every player with a stored history.
func (s *Store) Players(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, HistoryPrefix)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	players := make([]string, 0, len(keys))
	for _, k := range keys {
		players = append(players, strings.TrimPrefix(k, HistoryPrefix))
	}
	return players, nil
}

func (s *Store) readHistory(ctx context.Context, player string) ([]score.Entry, error) {
	key := HistoryKey(player)
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !ok {
		return []score.Entry{}, nil
	}

	entries, dropped, err := score.DecodeEntries(data)
	if err != nil {
		s.logger.Warn("discarding malformed history", "key", key, "error", err)
		return []score.Entry{}, nil
	}
	if dropped > 0 {
		s.logger.Warn("dropped malformed history entries", "key", key, "dropped", dropped)
	}
	sortNewestFirst(entries)
	return entries, nil
}

func sortNewestFirst(entries []score.Entry) {
	slices.SortStableFunc(entries, func(a, b score.Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

