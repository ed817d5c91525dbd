// Package server is the reference leaderboard service.
//
// It keeps one row per accepted submission in SQLite. A submission is
// accepted only when it beats the player's best unexpired score for the
// level, and every accepted row expires a fixed time after insertion.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/roadsafe/internal/clock"
	"github.com/roach88/roadsafe/internal/score"
	"github.com/roach88/roadsafe/internal/store"
)

const (
	// DefaultTTL is how long an accepted entry stays on the board.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultLimit is the page size when the request names none.
	DefaultLimit = 50
	// MaxLimit caps the page size a client may request.
	MaxLimit = 1000

	maxBodyBytes = 1 << 16
)

// Backend is the storage the server needs. *store.Store implements it.
type Backend interface {
	SubmitEntry(ctx context.Context, e score.Entry, ttl time.Duration) (store.Row, bool, error)
	ListEntries(ctx context.Context, level score.Level, limit int, now time.Time) ([]store.Row, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

var _ Backend = (*store.Store)(nil)

// Server handles leaderboard HTTP requests.
type Server struct {
	backend Backend
	clock   clock.Clock
	ids     score.IDGenerator
	ttl     time.Duration
	limit   int
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for insertion and expiry times.
func WithClock(c clock.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithIDGenerator sets the row ID generator.
func WithIDGenerator(g score.IDGenerator) Option {
	return func(s *Server) { s.ids = g }
}

// WithTTL sets the lifetime of accepted entries.
func WithTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

// WithDefaultLimit sets the page size used when the request names none.
func WithDefaultLimit(n int) Option {
	return func(s *Server) { s.limit = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server over backend.
func New(backend Backend, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		clock:   clock.Real{},
		ids:     score.UUIDv7Generator{},
		ttl:     DefaultTTL,
		limit:   DefaultLimit,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes sets up the HTTP routes with middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/leaderboard", s.handleList)
	r.Post("/leaderboard", s.handleSubmit)

	return r
}

// Purge removes expired rows.
func (s *Server) Purge(ctx context.Context) (int64, error) {
	n, err := s.backend.PurgeExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged expired leaderboard entries", "count", n)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware allows browser clients from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// writeJSON writes a JSON response with proper headers.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes {"error": message}. Server-side failures are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string, cause error) {
	requestID := middleware.GetReqID(r.Context())
	if status >= 500 {
		s.logger.Error(message, "error", cause, "path", r.URL.Path, "request_id", requestID)
	}
	writeJSON(w, status, errorResponse{Error: message, RequestID: requestID})
}
