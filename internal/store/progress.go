package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ayusman/studybuddy/internal/progress"
)

// Progress keys.
const (
	keyTotalPoints = "total_points"
	keyBestStreak  = "best_streak_seconds"
	keyLastSaved   = "last_saved"
)

var _ progress.Store = (*Store)(nil)

// Load reads the progress rows. Missing rows read as zero; a query failure
// yields the zero Progress and is logged.
func (s *Store) Load(ctx context.Context) progress.Progress {
	p, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("progress table unreadable, starting from zero", "path", s.path, "error", err)
		return progress.Progress{}
	}
	if p.Sanitize() {
		s.logger.Warn("progress table held negative counters, clamped to zero", "path", s.path)
	}
	return p
}

func (s *Store) load(ctx context.Context) (progress.Progress, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM progress`)
	if err != nil {
		return progress.Progress{}, err
	}
	defer rows.Close()

	var p progress.Progress
	for rows.Next() {
		var key string
		var value sql.NullInt64
		if err := rows.Scan(&key, &value); err != nil {
			return progress.Progress{}, err
		}

		switch key {
		case keyTotalPoints:
			p.TotalPoints = value.Int64
		case keyBestStreak:
			p.BestStreakSeconds = value.Int64
		case keyLastSaved:
			if value.Valid {
				ts := value.Int64
				p.LastSaved = &ts
			}
		}
	}

	if err := rows.Err(); err != nil {
		return progress.Progress{}, err
	}
	return p, nil
}

// Save upserts all progress fields in one transaction.
func (s *Store) Save(ctx context.Context, p *progress.Progress) error {
	if p == nil {
		return errors.New("nil progress")
	}

	next := *p
	progress.Stamp(&next, s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin progress save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO progress (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare progress save: %w", err)
	}
	defer stmt.Close()

	values := []struct {
		key   string
		value any
	}{
		{keyTotalPoints, next.TotalPoints},
		{keyBestStreak, next.BestStreakSeconds},
		{keyLastSaved, *next.LastSaved},
	}
	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit progress save: %w", err)
	}

	*p = next
	return nil
}
