// Package focus implements the focus session state machine: it turns a noisy
// per-tick presence signal into sessions, accumulates focused time, grants
// periodic rewards and keeps the best streak.
package focus

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/studybuddy/internal/progress"
)

// Default session tuning.
const (
	DefaultGracePeriod       = 7 * time.Second
	DefaultRewardInterval    = 25 * time.Minute
	DefaultPointsPerInterval = 10
)

// Config holds engine tuning.
type Config struct {
	// GracePeriod is how long presence may be lost before the session ends.
	GracePeriod time.Duration

	// RewardInterval is the continuous focused time needed for one reward.
	RewardInterval time.Duration

	// PointsPerInterval is added to the total for each reward.
	PointsPerInterval int64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		GracePeriod:       DefaultGracePeriod,
		RewardInterval:    DefaultRewardInterval,
		PointsPerInterval: DefaultPointsPerInterval,
	}
}

// Saver persists progress. progress.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, p *progress.Progress) error
}

// Engine is the focus session state machine. It owns no goroutines or
// timers; the caller drives it with Start, Tick and Stop from one goroutine.
type Engine struct {
	cfg      Config
	rewarder Rewarder
	progress *progress.Progress
	saver    Saver
	logger   *slog.Logger

	state       State
	elapsed     time.Duration
	sinceReward time.Duration
	lastSeen    time.Time
	sessionID   string
}

// New creates an Engine in the Stopped state. p is the single progress value
// the engine mutates; saver is called synchronously after every mutation.
func New(cfg Config, p *progress.Progress, saver Saver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if p == nil {
		p = &progress.Progress{}
	}
	return &Engine{
		cfg:      cfg,
		rewarder: NewRewarder(cfg.RewardInterval),
		progress: p,
		saver:    saver,
		logger:   logger,
		state:    Stopped,
	}
}

// Start moves a stopped engine to Idle and clears the accumulators.
func (e *Engine) Start(now time.Time) []Event {
	if e.state != Stopped {
		return nil
	}
	e.state = Idle
	e.resetSession()
	e.logger.Info("focus tracking started", "at", now)
	return nil
}

// Stop finalizes any live session and moves the engine to Stopped.
func (e *Engine) Stop(now time.Time) []Event {
	if e.state == Stopped {
		return nil
	}

	var events []Event
	if e.state == Focused || e.state == Grace {
		events = e.endSession(now, EndStopped)
	} else {
		e.resetSession()
	}
	e.state = Stopped
	e.logger.Info("focus tracking stopped", "at", now)
	return events
}

// Tick advances the state machine by one step. dt is the wall-clock time
// since the previous tick and presence the sanitized sensor reading for it.
func (e *Engine) Tick(now time.Time, dt time.Duration, presence bool) []Event {
	if e.state == Stopped {
		return nil
	}
	if dt < 0 {
		dt = 0
	}

	if presence {
		return e.present(now, dt)
	}
	return e.absent(now)
}

// present handles a tick with presence. The tick's dt counts as focused time,
// including on the edge tick that (re)acquires focus.
func (e *Engine) present(now time.Time, dt time.Duration) []Event {
	e.lastSeen = now

	var events []Event
	if e.state != Focused {
		if e.state == Idle {
			e.sessionID = uuid.NewString()
		}
		e.state = Focused
		e.logger.Debug("focus acquired", "session", e.sessionID)
		events = append(events, Event{Kind: FocusAcquired, At: now})
	}

	e.elapsed += dt

	var grants int
	e.sinceReward, grants = e.rewarder.Accrue(e.sinceReward, dt)

	for i := 0; i < grants; i++ {
		e.progress.TotalPoints += e.cfg.PointsPerInterval
		e.persist("reward")
		e.logger.Info("reward granted",
			"session", e.sessionID,
			"points", e.cfg.PointsPerInterval,
			"total", e.progress.TotalPoints)
		events = append(events, Event{Kind: RewardGranted, At: now, Points: e.cfg.PointsPerInterval})
	}
	return events
}

func (e *Engine) absent(now time.Time) []Event {
	switch e.state {
	case Focused:
		e.state = Grace
		e.logger.Debug("presence lost, grace started", "session", e.sessionID)
	case Grace:
	default:
		return nil
	}

	if now.Sub(e.lastSeen) <= e.cfg.GracePeriod {
		return nil
	}

	events := e.endSession(now, EndTimeout)
	e.state = Idle
	return events
}

// endSession runs finalization and reports the end.
func (e *Engine) endSession(now time.Time, reason EndReason) []Event {
	streak := e.elapsed
	var events []Event

	// The unfloored streak is compared; the stored best is whole seconds.
	best := time.Duration(e.progress.BestStreakSeconds) * time.Second
	if streak > 0 && streak > best {
		secs := int64(streak / time.Second)
		e.progress.BestStreakSeconds = secs
		e.persist("best streak")
		e.logger.Info("new best streak", "session", e.sessionID, "seconds", secs)
		events = append(events, Event{Kind: NewBest, At: now, Streak: streak})
	}

	e.logger.Info("session ended",
		"session", e.sessionID,
		"reason", reason.String(),
		"streak", FormatStreak(streak))
	events = append(events, Event{Kind: SessionEnded, At: now, Streak: streak, Reason: reason})

	e.resetSession()
	return events
}

func (e *Engine) resetSession() {
	e.elapsed = 0
	e.sinceReward = 0
	e.sessionID = ""
}

func (e *Engine) persist(what string) {
	if e.saver == nil {
		return
	}
	if err := e.saver.Save(context.Background(), e.progress); err != nil {
		e.logger.Error("failed to save progress", "after", what, "error", err)
	}
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}

// Running reports whether the engine has been started and not stopped.
func (e *Engine) Running() bool {
	return e.state != Stopped
}

// Elapsed returns the focused time of the current session.
func (e *Engine) Elapsed() time.Duration {
	return e.elapsed
}

// SinceReward returns focused time accrued toward the next reward.
func (e *Engine) SinceReward() time.Duration {
	return e.sinceReward
}

// SessionID returns the id of the live session, or "" when none is live.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Progress returns a copy of the progress record.
func (e *Engine) Progress() progress.Progress {
	return *e.progress
}

// Config returns the engine tuning.
func (e *Engine) Config() Config {
	return e.cfg
}
