package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roadsafe/internal/clock"
	"github.com/roach88/roadsafe/internal/score"
	"github.com/roach88/roadsafe/internal/testutil"
)

func newTestReconciler(t *testing.T, remote RemoteStore) (*Reconciler, *LocalCache) {
	t.Helper()
	cache, _ := newTestCache()
	r := New(remote, cache,
		WithClock(clock.NewVirtual(t0.Add(5*time.Hour))),
		WithLogger(discardLogger()),
	)
	return r, cache
}

func assertGoldenJSON(t *testing.T, name string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, append(data, '\n'))
}

// seededRemote holds a board where B improved after their first attempt and
// C scored nothing.
func seededRemote() *testutil.FakeRemote {
	return testutil.NewFakeRemote(
		entry("A", score.LevelMatch, 300, 0),
		entry("A", score.LevelQuiz, 400, time.Hour),
		entry("B", score.LevelMatch, 200, 2*time.Hour),
		entry("B", score.LevelMatch, 900, 3*time.Hour),
		entry("C", score.LevelMatch, 0, 0),
		entry("D", score.LevelQuiz, 700, 30*time.Minute),
	)
}

func TestView_Golden(t *testing.T) {
	ctx := context.Background()
	r, cache := newTestReconciler(t, seededRemote())
	require.NoError(t, cache.Upsert(ctx, entry("E", score.LevelMatch, 50, 4*time.Hour), false))

	level1, err := r.View(ctx, FilterLevel1)
	require.NoError(t, err)
	assertGoldenJSON(t, "level1_view", level1)

	combined, err := r.View(ctx, FilterCombined)
	require.NoError(t, err)
	assertGoldenJSON(t, "combined_view", combined)
}

func TestView_FirstScoreFilter(t *testing.T) {
	remote := testutil.NewFakeRemote(
		entry("A", score.LevelMatch, 100, 0),
		entry("A", score.LevelMatch, 500, time.Hour),
	)
	r, _ := newTestReconciler(t, remote)

	v, err := r.View(context.Background(), FilterLevel1)
	require.NoError(t, err)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, 100, v.Rows[0].Score)
	assert.Equal(t, SourceRemote, v.Source)
	assert.False(t, v.Degraded)
}

func TestView_CombinedTotals(t *testing.T) {
	remote := testutil.NewFakeRemote(
		entry("A", score.LevelMatch, 300, 0),
		entry("A", score.LevelQuiz, 400, 0),
		entry("Z", score.LevelMatch, 0, 0),
	)
	r, _ := newTestReconciler(t, remote)

	v, err := r.View(context.Background(), FilterCombined)
	require.NoError(t, err)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "A", v.Rows[0].PlayerName)
	assert.Equal(t, 700, v.Rows[0].Score)
}

func TestView_DegradesToLocalCache(t *testing.T) {
	ctx := context.Background()
	remote := seededRemote()
	remote.SetOffline(true)
	r, cache := newTestReconciler(t, remote)
	require.NoError(t, cache.Upsert(ctx, entry("E", score.LevelMatch, 50, 0), true))

	v, err := r.View(ctx, FilterLevel1)
	require.NoError(t, err)
	assert.True(t, v.Degraded)
	assert.Equal(t, SourceLocal, v.Source)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "E", v.Rows[0].PlayerName)
}

func TestView_NilRemoteIsOffline(t *testing.T) {
	r, _ := newTestReconciler(t, nil)

	v, err := r.View(context.Background(), FilterCombined)
	require.NoError(t, err)
	assert.True(t, v.Degraded)
	assert.Empty(t, v.Rows)
}

func TestView_PendingNotDuplicated(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote(entry("A", score.LevelMatch, 300, 0))
	r, cache := newTestReconciler(t, remote)
	require.NoError(t, cache.Upsert(ctx, entry("A", score.LevelMatch, 300, time.Minute), false))

	v, err := r.View(ctx, FilterCombined)
	require.NoError(t, err)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, 300, v.Rows[0].Score)
}

func TestView_AppliesLimit(t *testing.T) {
	var entries []score.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, entry(fmt.Sprintf("P%d", i), score.LevelQuiz, 100+i, 0))
	}
	cache, _ := newTestCache()
	r := New(testutil.NewFakeRemote(entries...), cache, WithLimit(3), WithLogger(discardLogger()))

	v, err := r.View(context.Background(), FilterLevel2)
	require.NoError(t, err)
	require.Len(t, v.Rows, 3)
	assert.Equal(t, "P9", v.Rows[0].PlayerName)
}

func TestSubmit_AcceptedAndCached(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	r, cache := newTestReconciler(t, remote)

	res, err := r.Submit(ctx, entry("A", score.LevelMatch, 1090, 0))
	require.NoError(t, err)
	assert.Equal(t, SubmitResult{Accepted: true}, res)

	cached, err := cache.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.True(t, cached[0].Synced)
}

func TestSubmit_NotBestIsNormalOutcome(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote(entry("A", score.LevelMatch, 2000, 0))
	r, cache := newTestReconciler(t, remote)

	res, err := r.Submit(ctx, entry("A", score.LevelMatch, 1090, time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.False(t, res.Offline)

	cached, err := cache.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1, "entry is cached regardless of the remote answer")
	assert.Equal(t, 1090, cached[0].Score)
}

func TestSubmit_OfflineKeepsEntryUnsynced(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	remote.SetOffline(true)
	r, cache := newTestReconciler(t, remote)

	res, err := r.Submit(ctx, entry("A", score.LevelQuiz, 700, 0))
	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.False(t, res.Accepted)

	pending, err := cache.Unsynced(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSubmit_RejectedIsNotRetried(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	remote.SetSubmitErr(fmt.Errorf("remote: bad request: %w", ErrRejected))
	r, cache := newTestReconciler(t, remote)

	res, err := r.Submit(ctx, entry("A", score.LevelQuiz, 700, 0))
	require.NoError(t, err)
	assert.False(t, res.Offline)

	pending, err := cache.Unsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmit_ValidatesEntry(t *testing.T) {
	r, _ := newTestReconciler(t, testutil.NewFakeRemote())

	for _, e := range []score.Entry{
		entry("", score.LevelMatch, 10, 0),
		entry("A", score.LevelMatch, 0, 0),
		entry("A", score.Level(3), 10, 0),
	} {
		_, err := r.Submit(context.Background(), e)
		assert.Error(t, err)
	}
}

func TestFlush_ResubmitsPending(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	remote.SetOffline(true)
	r, cache := newTestReconciler(t, remote)

	_, err := r.Submit(ctx, entry("A", score.LevelMatch, 500, 0))
	require.NoError(t, err)
	_, err = r.Submit(ctx, entry("B", score.LevelQuiz, 300, 0))
	require.NoError(t, err)

	res, err := r.Flush(ctx)
	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.Equal(t, 2, res.Remaining)

	remote.SetOffline(false)
	res, err = r.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Attempted: 2, Accepted: 2}, res)
	assert.Len(t, remote.Entries(), 2)

	pending, err := cache.Unsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	res, err = r.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{}, res)
}

func TestFlush_NilRemote(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestReconciler(t, nil)

	_, err := r.Submit(ctx, entry("A", score.LevelMatch, 500, 0))
	require.NoError(t, err)

	res, err := r.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Remaining: 1, Offline: true}, res)
}

func TestPersonal_View(t *testing.T) {
	r, _ := newTestReconciler(t, nil)
	history := []score.Entry{
		entry("A", score.LevelMatch, 100, time.Hour),
		entry("A", score.LevelMatch, 500, 0),
	}

	v := r.Personal(history, FilterLevel1)
	assert.Equal(t, SourceLocal, v.Source)
	assert.False(t, v.Degraded)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, 500, v.Rows[0].Score)
}

func TestSubmit_ConcurrentWithView(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	r, _ := newTestReconciler(t, remote)

	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		go func(i int) {
			_, err := r.Submit(ctx, entry(fmt.Sprintf("P%d", i%4), score.LevelMatch, 100+i, 0))
			errs <- err
		}(i)
		go func() {
			_, err := r.View(ctx, FilterCombined)
			errs <- err
		}()
	}
	for i := 0; i < 40; i++ {
		require.NoError(t, <-errs)
	}

	v, err := r.View(ctx, FilterCombined)
	require.NoError(t, err)
	require.Len(t, v.Rows, 4)
	assert.Equal(t, 119, v.Rows[0].Score)
}
