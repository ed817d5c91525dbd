package score

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireEntry accepts both record shapes.
type wireEntry struct {
	ID         string          `json:"id,omitempty"`
	PlayerName string          `json:"player_name,omitempty"`
	Name       string          `json:"name,omitempty"`
	Score      json.Number     `json:"score"`
	Level      json.RawMessage `json:"level"`
	CreatedAt  string          `json:"created_at,omitempty"`
	Date       string          `json:"date,omitempty"`
	ExpiresAt  string          `json:"expires_at,omitempty"`
}

// DecodeEntries decodes a JSON array of score records in either shape.
//
// Records that cannot be normalized (no name, unknown level, non-integer or
// negative score) are skipped and counted in dropped. A document that is not
// a JSON array returns an error.
func DecodeEntries(data []byte) (entries []Entry, dropped int, err error) {
	var raw []wireEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode entries: %w", err)
	}

	entries = make([]Entry, 0, len(raw))
	for _, w := range raw {
		e, ok := w.normalize()
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, dropped, nil
}

// DecodeEntry decodes a single record in either shape. ok is false when the
// record is malformed or cannot be normalized.
func DecodeEntry(data []byte) (e Entry, ok bool) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return Entry{}, false
	}
	return w.normalize()
}

func (w wireEntry) normalize() (Entry, bool) {
	name := w.PlayerName
	if name == "" {
		name = w.Name
	}
	name = NormalizeName(name)
	if name == "" {
		return Entry{}, false
	}

	points, err := w.Score.Int64()
	if err != nil || points < 0 {
		return Entry{}, false
	}

	level, ok := decodeLevel(w.Level)
	if !ok {
		return Entry{}, false
	}

	stamp := w.CreatedAt
	if stamp == "" {
		stamp = w.Date
	}

	return Entry{
		ID:         w.ID,
		PlayerName: name,
		Score:      int(points),
		Level:      level,
		Timestamp:  parseTimestamp(stamp),
	}, true
}

// decodeLevel accepts 1, 2, "1" and "2".
func decodeLevel(raw json.RawMessage) (Level, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		l := Level(n)
		return l, l.Valid()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		l, err := ParseLevel(s)
		return l, err == nil
	}
	return 0, false
}

// parseTimestamp returns the zero time for missing or unparseable stamps,
// which sorts such entries first.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// EncodeEntries encodes entries in the canonical shape.
func EncodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	return data, nil
}
