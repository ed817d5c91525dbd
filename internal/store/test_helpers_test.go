package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/roadsafe/internal/score"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates an entry submitted at epoch+offset.
func createTestEntry(id, player string, level score.Level, points int, offset time.Duration) score.Entry {
	return score.Entry{
		ID:         id,
		PlayerName: player,
		Score:      points,
		Level:      level,
		Timestamp:  epoch.Add(offset),
	}
}
