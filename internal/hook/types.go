// Package hook runs user-supplied executables when focus events happen,
// e.g. to post a desktop notification on a reward.
package hook

import "encoding/json"

// Event names a hook can subscribe to.
const (
	EventFocus        = "focus"
	EventReward       = "reward"
	EventNewBest      = "new_best"
	EventSessionEnded = "session_ended"
)

// Manifest describes a hook, read from hook.json in its directory.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the hook's stdin as JSON.
type Request struct {
	Event             string          `json:"event"`
	At                int64           `json:"at"`
	Points            int64           `json:"points,omitempty"`
	StreakSeconds     int64           `json:"streak_seconds"`
	Reason            string          `json:"reason,omitempty"`
	TotalPoints       int64           `json:"total_points"`
	BestStreakSeconds int64           `json:"best_streak_seconds"`
	Config            json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribed to event.
func (h *Hook) Handles(event string) bool {
	for _, e := range h.Manifest.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}
