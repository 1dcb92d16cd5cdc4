package app

import (
	"github.com/ayusman/studybuddy/internal/focus"
	"github.com/ayusman/studybuddy/internal/hook"
)

// HookSink receives focus events for external hooks. *hook.Dispatcher
// satisfies it.
type HookSink interface {
	Dispatch(req hook.Request) bool
	Stop()
}

var hookEvents = map[focus.EventKind]string{
	focus.FocusAcquired: hook.EventFocus,
	focus.RewardGranted: hook.EventReward,
	focus.NewBest:       hook.EventNewBest,
	focus.SessionEnded:  hook.EventSessionEnded,
}

func (a *App) dispatchHook(ev focus.Event) {
	if a.hooks == nil {
		return
	}
	name, ok := hookEvents[ev.Kind]
	if !ok {
		return
	}

	req := hook.Request{
		Event:             name,
		At:                ev.At.Unix(),
		Points:            ev.Points,
		StreakSeconds:     int64(a.engine.Elapsed().Seconds()),
		TotalPoints:       a.progress.TotalPoints,
		BestStreakSeconds: a.progress.BestStreakSeconds,
	}
	switch ev.Kind {
	case focus.SessionEnded, focus.NewBest:
		req.StreakSeconds = int64(ev.Streak.Seconds())
	}
	if ev.Kind == focus.SessionEnded {
		req.Reason = ev.Reason.String()
	}
	a.hooks.Dispatch(req)
}
