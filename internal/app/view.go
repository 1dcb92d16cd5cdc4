package app

import "time"

// View is the read-only snapshot of the tracker that frontends render.
type View struct {
	State             string    `json:"state"`
	Running           bool      `json:"running"`
	CameraOpen        bool      `json:"camera_open"`
	ElapsedSeconds    int64     `json:"elapsed_seconds"`
	Streak            string    `json:"streak"`
	TotalPoints       int64     `json:"total_points"`
	BestStreakSeconds int64     `json:"best_streak_seconds"`
	Best              string    `json:"best"`
	RewardProgress    float64   `json:"reward_progress"`
	Notice            string    `json:"notice,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}
