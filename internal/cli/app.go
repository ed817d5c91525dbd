package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/roadsafe/internal/catalog"
	"github.com/roach88/roadsafe/internal/config"
	"github.com/roach88/roadsafe/internal/leaderboard"
	"github.com/roach88/roadsafe/internal/records"
	"github.com/roach88/roadsafe/internal/remote"
	"github.com/roach88/roadsafe/internal/session"
	"github.com/roach88/roadsafe/internal/store"
)

// app is the local side of the game: records, leaderboard cache and
// coordinator over one SQLite database.
type app struct {
	store   *store.Store
	records *records.Store
	board   *leaderboard.Reconciler
	session *session.Coordinator
	online  bool
}

// openApp opens the database and wires the local components. A configured
// remote URL adds the HTTP leaderboard client; otherwise the leaderboard
// runs offline.
func openApp(cfg config.Config) (*app, error) {
	logger := slog.Default()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	var remoteStore leaderboard.RemoteStore
	if !cfg.Offline() {
		client, err := remote.NewClient(remote.Config{
			BaseURL:    cfg.RemoteURL,
			Token:      cfg.RemoteToken,
			Timeout:    cfg.RemoteTimeout,
			MaxRetries: retries(cfg.RemoteRetries),
			Logger:     logger,
		})
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "invalid remote configuration", err)
		}
		remoteStore = client
	}

	rec := records.New(st,
		records.WithWindow(cfg.HistoryWindow),
		records.WithLogger(logger),
	)
	cache := leaderboard.NewLocalCache(st,
		leaderboard.WithCap(cfg.CacheCap),
		leaderboard.WithCacheLogger(logger),
	)
	board := leaderboard.New(remoteStore, cache,
		leaderboard.WithLimit(cfg.LeaderboardLimit),
		leaderboard.WithLogger(logger),
	)

	return &app{
		store:   st,
		records: rec,
		board:   board,
		session: session.New(rec, board, session.WithLogger(logger)),
		online:  remoteStore != nil,
	}, nil
}

// Close waits for background submissions and closes the database.
func (a *app) Close() {
	a.session.Wait()
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// retries maps the configured retry count onto remote.Config, where zero
// means the default and a negative value disables retries.
func retries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// loadCatalog returns the configured catalog or the embedded one.
func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogPath, err)
	}
	return cat, nil
}
