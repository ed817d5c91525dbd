package records

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roadsafe/internal/clock"
	"github.com/roach88/roadsafe/internal/score"
	"github.com/roach88/roadsafe/internal/store"
)

var epoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *store.Memory, *clock.Virtual, *bytes.Buffer) {
	t.Helper()
	kv := store.NewMemory()
	v := clock.NewVirtual(epoch)
	var logs bytes.Buffer
	s := New(kv,
		WithClock(v),
		WithIDGenerator(score.NewSequenceGenerator("h")),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	return s, kv, v, &logs
}

func entry(player string, level score.Level, points int, at time.Time) score.Entry {
	return score.Entry{PlayerName: player, Level: level, Score: points, Timestamp: at}
}

func TestState_DefaultsWhenAbsent(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	g, err := s.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, InitialState(), g)
	assert.Equal(t, ScreenLoading, g.CurrentScreen)
}

func TestState_MalformedReadsAsInitial(t *testing.T) {
	s, kv, _, logs := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, GameStateKey, []byte("{not json")))

	g, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, InitialState(), g)
	assert.Contains(t, logs.String(), "malformed game state")
}

func TestState_PartialRecordKeepsDefaults(t *testing.T) {
	s, kv, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, GameStateKey, []byte(`{"high_score": 900}`)))

	g, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 900, g.HighScore)
	assert.Equal(t, ScreenLoading, g.CurrentScreen)
	assert.Equal(t, score.LevelMatch, g.CurrentLevel)
}

func TestSetPlayer(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	g, err := s.SetPlayer(ctx, "  Ann ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", g.PlayerName)
	assert.True(t, g.HasEnteredName)
	assert.Equal(t, ScreenMenu, g.CurrentScreen)

	_, err = s.SetPlayer(ctx, "   ")
	assert.Error(t, err)
}

func TestRecordResult_BestsAreMonotonic(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	steps := []struct {
		level score.Level
		score int
		high  int
		l1    int
		l2    int
	}{
		{score.LevelMatch, 900, 900, 900, 0},
		{score.LevelMatch, 400, 900, 900, 0},
		{score.LevelQuiz, 1200, 1200, 900, 1200},
		{score.LevelQuiz, 0, 1200, 900, 1200},
		{score.LevelMatch, 1500, 1500, 1500, 1200},
	}
	for _, st := range steps {
		g, err := s.RecordResult(ctx, st.level, st.score)
		require.NoError(t, err)
		assert.Equal(t, st.score, g.Score)
		assert.Equal(t, st.high, g.HighScore)
		assert.Equal(t, st.l1, g.Level1Score)
		assert.Equal(t, st.l2, g.Level2Score)
		assert.Equal(t, st.level, g.CurrentLevel)
	}

	_, err := s.RecordResult(ctx, score.Level(9), 10)
	assert.Error(t, err)
}

func TestResetGame_KeepsHighScoreAndIdentity(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.SetPlayer(ctx, "Ann")
	require.NoError(t, err)
	_, err = s.RecordResult(ctx, score.LevelQuiz, 700)
	require.NoError(t, err)

	g, err := s.ResetGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, 700, g.HighScore)
	assert.Equal(t, "Ann", g.PlayerName)
	assert.True(t, g.HasEnteredName)
	assert.Zero(t, g.Level2Score)
	assert.Zero(t, g.Score)
	assert.Equal(t, ScreenLoading, g.CurrentScreen)
}

func TestLogout_ClearsEverything(t *testing.T) {
	s, kv, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.SetPlayer(ctx, "Ann")
	require.NoError(t, err)
	_, err = s.Append(ctx, entry("Ann", score.LevelMatch, 300, epoch))
	require.NoError(t, err)
	_, err = s.Append(ctx, entry("Bob", score.LevelMatch, 300, epoch))
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "leaderboard_cache", []byte("[]")))
	require.NoError(t, kv.Set(ctx, "unrelated", []byte("x")))

	g, err := s.Logout(ctx, "leaderboard_cache")
	require.NoError(t, err)
	assert.Equal(t, ScreenNameInput, g.CurrentScreen)
	assert.Empty(t, g.PlayerName)
	assert.False(t, g.HasEnteredName)

	keys, err := kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{GameStateKey, "unrelated"}, keys)
}

func TestAppend_NewestFirst(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	for i, pts := range []int{100, 200, 300} {
		ok, err := s.Append(ctx, entry("Ann", score.LevelQuiz, pts, epoch.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		require.True(t, ok)
	}

	h, err := s.History(ctx, "Ann")
	require.NoError(t, err)
	require.Len(t, h, 3)
	assert.Equal(t, []int{300, 200, 100}, []int{h[0].Score, h[1].Score, h[2].Score})
	assert.Equal(t, "h-1", h[2].ID)
}

func TestAppend_DuplicateWithinWindowIsSkipped(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Append(ctx, entry("Ann", score.LevelMatch, 1090, epoch))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Append(ctx, entry("Ann", score.LevelMatch, 1090, epoch.Add(59*time.Minute)))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Append(ctx, entry("Ann", score.LevelQuiz, 1090, epoch.Add(59*time.Minute)))
	require.NoError(t, err)
	assert.True(t, ok, "different level is not a duplicate")

	ok, err = s.Append(ctx, entry("Ann", score.LevelMatch, 1090, epoch.Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, ok, "entry outside the window is not a duplicate")

	h, err := s.History(ctx, "Ann")
	require.NoError(t, err)
	assert.Len(t, h, 3)
}

func TestAppend_NameIsNormalized(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, entry("José", score.LevelMatch, 10, epoch))
	require.NoError(t, err)
	ok, err := s.Append(ctx, entry(" José ", score.LevelMatch, 10, epoch))
	require.NoError(t, err)
	assert.False(t, ok)

	h, err := s.History(ctx, "José")
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, "José", h[0].PlayerName)
}

func TestAppend_StampsFromClock(t *testing.T) {
	s, _, v, _ := newTestStore(t)
	ctx := context.Background()
	v.Advance(90 * time.Second)

	_, err := s.Append(ctx, score.Entry{PlayerName: "Ann", Level: score.LevelMatch, Score: 5})
	require.NoError(t, err)

	h, err := s.History(ctx, "Ann")
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, epoch.Add(90*time.Second), h[0].Timestamp)
}

func TestAppend_RejectsInvalid(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	_, err := s.Append(context.Background(), entry("", score.LevelMatch, 5, epoch))
	assert.Error(t, err)
	_, err = s.Append(context.Background(), entry("Ann", score.Level(0), 5, epoch))
	assert.Error(t, err)
}

func TestHistory_MalformedReadsAsEmpty(t *testing.T) {
	s, kv, _, logs := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, HistoryKey("Ann"), []byte(`{"oops":`)))

	h, err := s.History(ctx, "Ann")
	require.NoError(t, err)
	assert.Empty(t, h)
	assert.Contains(t, logs.String(), "malformed history")

	ok, err := s.Append(ctx, entry("Ann", score.LevelMatch, 5, epoch))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHistory_ReadsLegacyShape(t *testing.T) {
	s, kv, _, logs := newTestStore(t)
	ctx := context.Background()
	legacy := `[
		{"name": "Ann", "score": 300, "level": 1, "date": "2026-05-01T10:00:00.000Z"},
		{"name": "Ann", "score": 700, "level": 2, "date": "2026-05-02T10:00:00.000Z"},
		{"name": "Ann", "score": -5, "level": 2, "date": "2026-05-03T10:00:00.000Z"}
	]`
	require.NoError(t, kv.Set(ctx, HistoryKey("Ann"), []byte(legacy)))

	h, err := s.History(ctx, "Ann")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, 700, h[0].Score)
	assert.Equal(t, score.LevelQuiz, h[0].Level)
	assert.Contains(t, logs.String(), "dropped=1")
}

func TestPlayers(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"Zoe", "Ann"} {
		_, err := s.Append(ctx, entry(p, score.LevelMatch, 5, epoch))
		require.NoError(t, err)
	}

	players, err := s.Players(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Zoe"}, players)
}
