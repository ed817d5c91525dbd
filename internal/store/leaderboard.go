package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/roadsafe/internal/score"
)

// Row is a leaderboard entry with its expiry.
type Row struct {
	score.Entry
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmitEntry inserts e if its score beats the player's best unexpired score
// for the level. e.Timestamp is the submission time and the row expires ttl
// later. It reports whether the row was inserted.
//
// The best-score check and the insert run in one transaction so concurrent
// submissions for the same player cannot both win.
func (s *Store) SubmitEntry(ctx context.Context, e score.Entry, ttl time.Duration) (Row, bool, error) {
	if err := e.Validate(); err != nil {
		return Row{}, false, fmt.Errorf("submit entry: %w", err)
	}
	if e.Score <= 0 {
		return Row{}, false, fmt.Errorf("submit entry: score must be greater than 0")
	}
	if e.ID == "" {
		return Row{}, false, fmt.Errorf("submit entry: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Row{}, false, fmt.Errorf("submit entry: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := e.Timestamp.UnixMilli()
	var best sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT MAX(score) FROM leaderboard_entries
		WHERE player_name = ? AND level = ? AND expires_at > ?
	`, e.PlayerName, int(e.Level), now).Scan(&best)
	if err != nil {
		return Row{}, false, fmt.Errorf("submit entry: best score: %w", err)
	}
	if best.Valid && best.Int64 >= int64(e.Score) {
		return Row{}, false, nil
	}

	row := Row{Entry: e, ExpiresAt: time.UnixMilli(now + ttl.Milliseconds()).UTC()}
	row.Timestamp = time.UnixMilli(now).UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leaderboard_entries (id, player_name, level, score, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.PlayerName, int(e.Level), e.Score, now, row.ExpiresAt.UnixMilli())
	if err != nil {
		return Row{}, false, fmt.Errorf("submit entry: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Row{}, false, fmt.Errorf("submit entry: commit: %w", err)
	}
	return row, true, nil
}

// ListEntries returns unexpired rows ordered by score descending, then by
// creation time and id. level 0 selects every level; limit <= 0 means no limit.
func (s *Store) ListEntries(ctx context.Context, level score.Level, limit int, now time.Time) ([]Row, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, player_name, level, score, created_at, expires_at
		FROM leaderboard_entries
		WHERE expires_at > ?`
	args := []any{now.UnixMilli()}
	if level != 0 {
		query += ` AND level = ?`
		args = append(args, int(level))
	}
	query += `
		ORDER BY score DESC, created_at ASC, id COLLATE BINARY ASC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var (
			r                  Row
			lvl                int
			created, expiresAt int64
		)
		if err := rows.Scan(&r.ID, &r.PlayerName, &lvl, &r.Score, &created, &expiresAt); err != nil {
			return nil, fmt.Errorf("list entries: scan: %w", err)
		}
		r.Level = score.Level(lvl)
		r.Timestamp = time.UnixMilli(created).UTC()
		r.ExpiresAt = time.UnixMilli(expiresAt).UTC()
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return result, nil
}

// PurgeExpired deletes rows that expired at or before now and returns how
// many were removed.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return n, nil
}
