package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/roadsafe/internal/leaderboard"
)

// ErrInvalidScore is returned when the service refuses an entry with HTTP
// 400, or when the client refuses to send a non-positive score.
var ErrInvalidScore = fmt.Errorf("remote: invalid score: %w", leaderboard.ErrRejected)

// errEmptyBaseURL is returned by NewClient without a base URL.
var errEmptyBaseURL = errors.New("remote: base URL is required")

// APIError represents a non-2xx response from the leaderboard service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("remote: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true for rate limiting (429) and server errors (5xx).
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Unwrap maps HTTP 400 to ErrInvalidScore.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusBadRequest {
		return ErrInvalidScore
	}
	return nil
}
