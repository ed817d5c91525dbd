// Package remote is an HTTP client for the shared leaderboard service.
//
// The service exposes two routes:
//
//	GET  /leaderboard?limit=N[&level=1|2|all]  -> [{player_name, score, level, created_at, expires_at}]
//	POST /leaderboard {player_name, score, level} -> {success, message}
//
// Client implements leaderboard.RemoteStore. Requests are retried on
// transport failures, 429 and 5xx with capped exponential backoff.
//
// # Usage
//
//	client, err := remote.NewClient(remote.Config{
//	    BaseURL: "https://scores.example.org",
//	    Token:   "anon-key",
//	})
//
//	entries, err := client.Fetch(ctx, score.LevelMatch, 50)
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/roadsafe/internal/leaderboard"
	"github.com/roach88/roadsafe/internal/score"
)

var _ leaderboard.RemoteStore = (*Client)(nil)

// Config holds configuration for the leaderboard client.
type Config struct {
	// BaseURL is the service root; /leaderboard is appended. Required.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds each HTTP attempt. Defaults to 10 seconds if zero.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Defaults to 2 if zero; negative disables retries.
	MaxRetries int

	// BaseRetryDelay is the initial delay before the first retry.
	// Defaults to 500 milliseconds if zero.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff delay.
	// Defaults to 5 seconds if zero.
	MaxRetryDelay time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	HTTPClient *http.Client

	// Logger receives retry and decode warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to the leaderboard service.
type Client struct {
	config Config
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errEmptyBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported scheme %q", base.Scheme)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseRetryDelay == 0 {
		cfg.BaseRetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 5 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{config: cfg, base: base, http: httpClient, logger: logger}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Fetch returns unexpired entries for level (0 = every level) ordered by
// score descending.
func (c *Client) Fetch(ctx context.Context, level score.Level, limit int) ([]score.Entry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if level == 0 {
		q.Set("level", "all")
	} else {
		q.Set("level", strconv.Itoa(int(level)))
	}

	body, err := c.doWithRetry(ctx, http.MethodGet, "leaderboard?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	entries, dropped, err := score.DecodeEntries(body)
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}
	if dropped > 0 {
		c.logger.Warn("remote leaderboard returned malformed entries", "dropped", dropped)
	}
	return entries, nil
}

type submitRequest struct {
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	Level      int    `json:"level"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Submit offers e as a new best. A false result with a nil error means the
// service already holds a score at least as high.
func (c *Client) Submit(ctx context.Context, e score.Entry) (bool, error) {
	if e.Score <= 0 {
		return false, ErrInvalidScore
	}

	body, err := c.doWithRetry(ctx, http.MethodPost, "leaderboard", submitRequest{
		PlayerName: e.PlayerName,
		Score:      e.Score,
		Level:      int(e.Level),
	})
	if err != nil {
		return false, err
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("remote: invalid response JSON: %w", err)
	}
	if !resp.Success {
		c.logger.Debug("remote declined score", "player", e.PlayerName, "level", int(e.Level), "score", e.Score, "message", resp.Message)
	}
	return resp.Success, nil
}

// do sends a single request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("remote: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+"/"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("remote: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// doWithRetry sends a request with automatic retry on retryable errors.
func (c *Client) doWithRetry(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt)
			c.logger.Debug("retrying leaderboard request", "method", method, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := c.do(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("remote: max retries exceeded: %w", lastErr)
}

// retryDelay calculates the backoff delay for a given attempt number.
func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.config.BaseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from a body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}
