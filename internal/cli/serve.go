package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/roadsafe/internal/server"
	"github.com/roach88/roadsafe/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the leaderboard service",
		Long: `Serve the shared leaderboard over HTTP.

Routes:
  GET  /leaderboard?level=1|2|all&limit=N
  POST /leaderboard {"player_name", "score", "level"}
  GET  /health

Accepted scores expire after ROADSAFE_ENTRY_TTL; expired rows are purged
every ROADSAFE_PURGE_INTERVAL.

Example:
  roadsafe serve --db ./board.db --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $ROADSAFE_LISTEN_ADDR or :8080)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	addr := cfg.ListenAddr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	slog.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	srv := server.New(st,
		server.WithTTL(cfg.EntryTTL),
		server.WithDefaultLimit(cfg.LeaderboardLimit),
	)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeLoop(ctx, srv, cfg.PurgeInterval)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("leaderboard service listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving leaderboard on %s. Press Ctrl-C to stop.\n", addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown error", err)
	}
	slog.Info("leaderboard service stopped gracefully")
	return nil
}

// purgeLoop removes expired rows immediately and then every interval.
func purgeLoop(ctx context.Context, srv *server.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := srv.Purge(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("purge failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
