// Package progress holds the durable focus progress record and the contract
// for persisting it.
package progress

import (
	"context"
	"time"
)

// Progress is the persisted, process-wide focus record.
type Progress struct {
	TotalPoints       int64  `json:"total_points"`
	BestStreakSeconds int64  `json:"best_streak_seconds"`
	LastSaved         *int64 `json:"last_saved"`
}

// Store loads and saves Progress.
type Store interface {
	// Load returns the stored progress. A missing or unreadable record
	// yields the zero Progress; the failure is logged, never returned.
	Load(ctx context.Context) Progress

	// Save stamps p.LastSaved with the current time and writes p so that a
	// crash mid-write leaves the previous record readable.
	Save(ctx context.Context, p *Progress) error
}

// LastSavedTime returns LastSaved as a time, or the zero time when unset.
func (p Progress) LastSavedTime() time.Time {
	if p.LastSaved == nil {
		return time.Time{}
	}
	return time.Unix(*p.LastSaved, 0)
}

// Sanitize clamps negative counters to zero. It reports whether anything
// was changed.
func (p *Progress) Sanitize() bool {
	changed := false
	if p.TotalPoints < 0 {
		p.TotalPoints = 0
		changed = true
	}
	if p.BestStreakSeconds < 0 {
		p.BestStreakSeconds = 0
		changed = true
	}
	return changed
}

// Stamp sets p.LastSaved to now, truncated to unix seconds.
func Stamp(p *Progress, now time.Time) {
	ts := now.Unix()
	p.LastSaved = &ts
}
