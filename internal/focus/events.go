package focus

import (
	"fmt"
	"time"
)

// State is a focus session state.
type State int

// Session states.
const (
	Stopped State = iota
	Idle
	Focused
	Grace
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Idle:
		return "idle"
	case Focused:
		return "focused"
	case Grace:
		return "grace"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind tags an Event.
type EventKind int

// Event kinds emitted by the engine.
const (
	FocusAcquired EventKind = iota + 1
	SessionEnded
	NewBest
	RewardGranted
)

func (k EventKind) String() string {
	switch k {
	case FocusAcquired:
		return "focus_acquired"
	case SessionEnded:
		return "session_ended"
	case NewBest:
		return "new_best"
	case RewardGranted:
		return "reward_granted"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// EndReason says why a session ended.
type EndReason int

// Session end reasons.
const (
	EndTimeout EndReason = iota + 1
	EndStopped
)

func (r EndReason) String() string {
	switch r {
	case EndTimeout:
		return "timeout"
	case EndStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is a notification produced by the engine.
//
// Points is set for RewardGranted. Streak holds the session's focused time
// for SessionEnded and NewBest. Reason is set for SessionEnded.
type Event struct {
	Kind   EventKind
	At     time.Time
	Points int64
	Streak time.Duration
	Reason EndReason
}

// FormatStreak renders d as HH:MM:SS, truncating to whole seconds.
func FormatStreak(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// FormatSeconds renders whole seconds as HH:MM:SS.
func FormatSeconds(secs int64) string {
	return FormatStreak(time.Duration(secs) * time.Second)
}
