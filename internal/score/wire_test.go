package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntries_BothShapes(t *testing.T) {
	data := []byte(`[
		{"id": "r1", "player_name": "ana", "score": 300, "level": 1,
		 "created_at": "2026-01-01T10:00:00Z", "expires_at": "2026-01-08T10:00:00Z"},
		{"name": "ben", "score": 150, "level": 2, "date": "2026-01-02T11:30:00.000Z"}
	]`)

	entries, dropped, err := DecodeEntries(data)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{
		ID:         "r1",
		PlayerName: "ana",
		Score:      300,
		Level:      LevelMatch,
		Timestamp:  time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}, entries[0])

	assert.Equal(t, "ben", entries[1].PlayerName)
	assert.Equal(t, LevelQuiz, entries[1].Level)
	assert.Equal(t, time.Date(2026, 1, 2, 11, 30, 0, 0, time.UTC), entries[1].Timestamp)
}

func TestDecodeEntries_PlayerNameWins(t *testing.T) {
	data := []byte(`[{"player_name": "ana", "name": "legacy", "score": 1, "level": 1}]`)
	entries, _, err := DecodeEntries(data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ana", entries[0].PlayerName)
	assert.True(t, entries[0].Timestamp.IsZero())
}

func TestDecodeEntries_DropsUnusable(t *testing.T) {
	data := []byte(`[
		{"player_name": "", "score": 1, "level": 1},
		{"player_name": "ana", "score": -5, "level": 1},
		{"player_name": "ana", "score": 12.5, "level": 1},
		{"player_name": "ana", "score": 10, "level": 3},
		{"player_name": "ana", "score": 10},
		{"player_name": "ana", "score": 10, "level": "2"}
	]`)

	entries, dropped, err := DecodeEntries(data)
	require.NoError(t, err)
	assert.Equal(t, 5, dropped)
	require.Len(t, entries, 1)
	assert.Equal(t, LevelQuiz, entries[0].Level)
}

func TestDecodeEntries_Malformed(t *testing.T) {
	_, _, err := DecodeEntries([]byte(`{"not": "an array"}`))
	require.Error(t, err)

	_, _, err = DecodeEntries([]byte(`[{`))
	require.Error(t, err)
}

func TestDecodeEntry(t *testing.T) {
	e, ok := DecodeEntry([]byte(`{"name": " ana ", "score": 5, "level": 2}`))
	require.True(t, ok)
	assert.Equal(t, "ana", e.PlayerName)

	_, ok = DecodeEntry([]byte(`"string"`))
	assert.False(t, ok)
}

func TestEncodeEntries_RoundTripsCanonicalShape(t *testing.T) {
	in := []Entry{{
		ID:         "e1",
		PlayerName: "ana",
		Score:      700,
		Level:      LevelQuiz,
		Timestamp:  time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}}
	data, err := EncodeEntries(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"e1","player_name":"ana","score":700,"level":2,"created_at":"2026-03-04T05:06:07Z"}]`, string(data))

	out, dropped, err := DecodeEntries(data)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, in, out)
}

func TestEncodeEntries_NilIsEmptyArray(t *testing.T) {
	data, err := EncodeEntries(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
