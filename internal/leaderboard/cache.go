package leaderboard

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/roadsafe/internal/score"
	"github.com/roach88/roadsafe/internal/store"
)

const (
	// CacheKey holds the local leaderboard cache.
	CacheKey = "leaderboard_cache"
	// DefaultCacheCap bounds the number of cached entries.
	DefaultCacheCap = 50
)

// CachedEntry is a cached score and whether the remote store has answered
// for it.
type CachedEntry struct {
	score.Entry
	Synced bool `json:"synced"`
}

// LocalCache is the bounded local copy of leaderboard entries.
//
// The cache keeps at most one entry per (player, level): the highest score,
// and for equal scores the earliest. Upserts therefore commute: applying the
// same set of submissions in any order leaves the same cache.
type LocalCache struct {
	mu     sync.Mutex
	kv     store.KV
	cap    int
	logger *slog.Logger
}

// CacheOption configures a LocalCache.
type CacheOption func(*LocalCache)

// WithCap sets the maximum number of cached entries.
func WithCap(n int) CacheOption {
	return func(c *LocalCache) { c.cap = n }
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *LocalCache) { c.logger = l }
}

// NewLocalCache creates a cache stored under CacheKey in kv.
func NewLocalCache(kv store.KV, opts ...CacheOption) *LocalCache {
	c := &LocalCache{kv: kv, cap: DefaultCacheCap, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Entries returns the cached entries ordered by score. A missing or
// malformed cache is empty.
func (c *LocalCache) Entries(ctx context.Context) ([]CachedEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(ctx)
}

// Scores returns the cached entries without sync state.
func (c *LocalCache) Scores(ctx context.Context) ([]score.Entry, error) {
	cached, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return plain(cached), nil
}

// Unsynced returns the entries the remote store has not answered for.
func (c *LocalCache) Unsynced(ctx context.Context) ([]score.Entry, error) {
	cached, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	var out []score.Entry
	for _, ce := range cached {
		if !ce.Synced {
			out = append(out, ce.Entry)
		}
	}
	return out, nil
}

// Upsert merges e into the cache and enforces the cap.
func (c *LocalCache) Upsert(ctx context.Context, e score.Entry, synced bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, err := c.read(ctx)
	if err != nil {
		return err
	}
	cached = merge(cached, CachedEntry{Entry: e, Synced: synced})
	return c.write(ctx, cached)
}

// MarkSynced flags the cached entries matching e's player, level and score.
func (c *LocalCache) MarkSynced(ctx context.Context, e score.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, err := c.read(ctx)
	if err != nil {
		return err
	}
	changed := false
	for i := range cached {
		if sameScore(cached[i].Entry, e) && !cached[i].Synced {
			cached[i].Synced = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return c.write(ctx, cached)
}

// Clear removes the cache.
func (c *LocalCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete(ctx, CacheKey); err != nil {
		return fmt.Errorf("clear leaderboard cache: %w", err)
	}
	return nil
}

func (c *LocalCache) read(ctx context.Context) ([]CachedEntry, error) {
	data, ok, err := c.kv.Get(ctx, CacheKey)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard cache: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Warn("discarding malformed leaderboard cache", "error", err)
		return nil, nil
	}

	var cached []CachedEntry
	dropped := 0
	for _, item := range raw {
		e, ok := score.DecodeEntry(item)
		if !ok {
			dropped++
			continue
		}
		var flags struct {
			Synced bool `json:"synced"`
		}
		_ = json.Unmarshal(item, &flags)
		// Older caches may hold several entries per player and level.
		cached = merge(cached, CachedEntry{Entry: e, Synced: flags.Synced})
	}
	if dropped > 0 {
		c.logger.Warn("dropped malformed leaderboard cache entries", "dropped", dropped)
	}
	return truncateCache(cached, c.cap), nil
}

func (c *LocalCache) write(ctx context.Context, cached []CachedEntry) error {
	cached = truncateCache(cached, c.cap)
	if cached == nil {
		cached = []CachedEntry{}
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode leaderboard cache: %w", err)
	}
	if err := c.kv.Set(ctx, CacheKey, data); err != nil {
		return fmt.Errorf("write leaderboard cache: %w", err)
	}
	return nil
}

// merge folds ce into cached keeping one entry per (player, level) and
// returns the result in cache order.
func merge(cached []CachedEntry, ce CachedEntry) []CachedEntry {
	i := slices.IndexFunc(cached, func(x CachedEntry) bool { return x.Key() == ce.Key() })
	if i < 0 {
		cached = append(cached, ce)
	} else {
		cached[i] = better(cached[i], ce)
	}
	slices.SortFunc(cached, func(a, b CachedEntry) int { return byScore(a.Entry, b.Entry) })
	return cached
}

// better picks the entry to keep for one (player, level).
func better(a, b CachedEntry) CachedEntry {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return a
		}
		return b
	}
	keep := a
	if c := cmp.Or(a.Timestamp.Compare(b.Timestamp), cmp.Compare(a.ID, b.ID)); c > 0 {
		keep = b
	}
	keep.Synced = a.Synced || b.Synced
	return keep
}

func truncateCache(cached []CachedEntry, limit int) []CachedEntry {
	if limit > 0 && len(cached) > limit {
		cached = cached[:limit]
	}
	return cached
}

func plain(cached []CachedEntry) []score.Entry {
	out := make([]score.Entry, len(cached))
	for i, ce := range cached {
		out[i] = ce.Entry
	}
	return out
}

func sameScore(a, b score.Entry) bool {
	return a.PlayerName == b.PlayerName && a.Level == b.Level && a.Score == b.Score
}
