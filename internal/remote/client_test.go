package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roadsafe/internal/clock"
	"github.com/roach88/roadsafe/internal/leaderboard"
	"github.com/roach88/roadsafe/internal/score"
	"github.com/roach88/roadsafe/internal/server"
	"github.com/roach88/roadsafe/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newService starts the reference server over a fresh database.
func newService(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v := clock.NewVirtual(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	srv := server.New(st,
		server.WithClock(v),
		server.WithIDGenerator(score.NewSequenceGenerator("row")),
		server.WithLogger(discard),
	)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:        baseURL,
		BaseRetryDelay: time.Millisecond,
		MaxRetryDelay:  5 * time.Millisecond,
		Logger:         discard,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func entry(player string, level score.Level, points int) score.Entry {
	return score.Entry{PlayerName: player, Level: level, Score: points}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, errEmptyBaseURL)

	_, err = NewClient(Config{BaseURL: "ftp://scores.example.org"})
	assert.Error(t, err)

	c, err := NewClient(Config{BaseURL: "https://scores.example.org/"})
	require.NoError(t, err)
	assert.Equal(t, "https://scores.example.org", c.BaseURL())
}

func TestClient_SubmitAndFetch(t *testing.T) {
	ts := newService(t)
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	ok, err := c.Submit(ctx, entry("Ann", score.LevelMatch, 900))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Submit(ctx, entry("Bob", score.LevelQuiz, 1200))
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := c.Fetch(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bob", all[0].PlayerName)
	assert.Equal(t, score.LevelQuiz, all[0].Level)
	assert.Equal(t, "row-2", all[0].ID)
	assert.False(t, all[0].Timestamp.IsZero())

	level1, err := c.Fetch(ctx, score.LevelMatch, 50)
	require.NoError(t, err)
	require.Len(t, level1, 1)
	assert.Equal(t, "Ann", level1[0].PlayerName)
}

func TestClient_SubmitNotBest(t *testing.T) {
	ts := newService(t)
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	_, err := c.Submit(ctx, entry("Ann", score.LevelMatch, 900))
	require.NoError(t, err)

	ok, err := c.Submit(ctx, entry("Ann", score.LevelMatch, 400))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_SubmitRefusesNonPositiveLocally(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()
	c := newTestClient(t, ts.URL)

	_, err := c.Submit(context.Background(), entry("Ann", score.LevelMatch, 0))
	assert.ErrorIs(t, err, ErrInvalidScore)
	assert.ErrorIs(t, err, leaderboard.ErrRejected)
	assert.Zero(t, calls.Load())
}

func TestClient_BadRequestIsRejection(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Level must be 1 or 2"}`))
	}))
	defer ts.Close()
	c := newTestClient(t, ts.URL)

	_, err := c.Submit(context.Background(), entry("Ann", score.LevelMatch, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, leaderboard.ErrRejected)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Level must be 1 or 2", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load(), "400 is not retried")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"player_name":"Ann","score":300,"level":1}]`))
	}))
	defer ts.Close()
	c := newTestClient(t, ts.URL)

	entries, err := c.Fetch(context.Background(), score.LevelMatch, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to fetch leaderboard"}`))
	}))
	defer ts.Close()
	c := newTestClient(t, ts.URL, func(cfg *Config) { cfg.MaxRetries = 1 })

	_, err := c.Fetch(context.Background(), 0, 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, leaderboard.ErrRejected)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NoRetryWhenDisabled(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()
	c := newTestClient(t, ts.URL, func(cfg *Config) { cfg.MaxRetries = -1 })

	_, err := c.Fetch(context.Background(), 0, 10)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SendsQueryAndToken(t *testing.T) {
	var got *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()
	c := newTestClient(t, ts.URL, func(cfg *Config) { cfg.Token = "anon-key" })

	entries, err := c.Fetch(context.Background(), 0, 25)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NotNil(t, got)
	assert.Equal(t, "/leaderboard", got.URL.Path)
	assert.Equal(t, "all", got.URL.Query().Get("level"))
	assert.Equal(t, "25", got.URL.Query().Get("limit"))
	assert.Equal(t, "Bearer anon-key", got.Header.Get("Authorization"))
}

func TestClient_FetchDropsMalformedEntries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"player_name":"Ann","score":300,"level":1,"created_at":"2026-05-01T10:00:00Z"},
			{"name":"Bob","score":200,"level":"1","date":"2026-05-01T09:00:00Z"},
			{"player_name":"","score":100,"level":1},
			{"player_name":"Cat","score":100,"level":7}
		]`))
	}))
	defer ts.Close()
	c := newTestClient(t, ts.URL)

	entries, err := c.Fetch(context.Background(), score.LevelMatch, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Bob", entries[1].PlayerName)
}

func TestClient_ContextCancelStopsRetry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()
	c := newTestClient(t, ts.URL, func(cfg *Config) {
		cfg.BaseRetryDelay = time.Hour
		cfg.MaxRetryDelay = time.Hour
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, 0, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryDelay(t *testing.T) {
	c := &Client{config: Config{BaseRetryDelay: 100 * time.Millisecond, MaxRetryDelay: 350 * time.Millisecond}}

	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1))
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(2))
	assert.Equal(t, 350*time.Millisecond, c.retryDelay(3))
}
