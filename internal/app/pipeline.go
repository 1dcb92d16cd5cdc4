package app

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/studybuddy/internal/capture"
	"github.com/ayusman/studybuddy/internal/focus"
	"github.com/ayusman/studybuddy/internal/snapshot"
)

// Run calls Step every tick interval until ctx is done. The next step is
// scheduled only after the current one returns, so a slow probe stretches
// the period instead of queueing ticks.
func (a *App) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			a.Step(a.now())
			timer.Reset(a.config.Tick)
		}
	}
}

// Step runs one tick: pending intents first, then a presence sample and an
// engine tick when running, then the view is republished.
func (a *App) Step(now time.Time) {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()

	if a.closed {
		return
	}

	a.drainIntents(now)

	var dt time.Duration
	if !a.lastStep.IsZero() {
		dt = now.Sub(a.lastStep)
	}
	a.lastStep = now

	if a.engine.Running() {
		present := a.sampler.Sample(a.ctx)
		a.notify(now, a.engine.Tick(now, dt, present))
	}

	a.publish(now)
}

func (a *App) drainIntents(now time.Time) {
	for {
		select {
		case intent := <-a.intents:
			a.apply(now, intent)
		default:
			return
		}
	}
}

func (a *App) apply(now time.Time, intent Intent) {
	switch intent {
	case IntentStart:
		if !a.cameraOpen {
			a.logger.Warn("start refused, camera is not open")
			a.notice = newNotice(now, noticeCameraMissing)
			return
		}
		if a.engine.Running() {
			return
		}
		a.engine.Start(now)
		a.notice = newNotice(now, noticeStart)

	case IntentStop:
		a.notify(now, a.engine.Stop(now))

	case IntentSnapshot:
		a.takeSnapshot(now)

	default:
		a.logger.Warn("unknown intent", "intent", int(intent))
	}
}

// notify maps engine events to notices and hands them to the hooks. The
// last event's notice wins.
func (a *App) notify(now time.Time, events []focus.Event) {
	for _, ev := range events {
		if n, ok := noticeFor(now, ev); ok {
			a.notice = n
		}
		a.dispatchHook(ev)
	}
}

func (a *App) takeSnapshot(now time.Time) {
	frame, ok := a.snapshotFrame()
	if !ok {
		a.notice = newNotice(now, noticeSnapshotFailed)
		return
	}
	defer frame.Close()

	path, err := a.exporter.Export(frame, snapshot.Overlay{
		Label:             a.config.Label,
		Streak:            a.engine.Elapsed(),
		TotalPoints:       a.progress.TotalPoints,
		BestStreakSeconds: a.progress.BestStreakSeconds,
	})
	if err != nil {
		a.logger.Error("snapshot failed", "error", err)
		a.notice = newNotice(now, noticeSnapshotFailed)
		return
	}

	a.logger.Info("snapshot saved", "path", path)
	a.notice = newNotice(now, noticeSnapshot)
}

// snapshotFrame returns the frame to export, which the caller must Close.
// While tracking, the sampler's latest frame is current. Otherwise the
// camera is read directly so the export never shows a stale frame.
func (a *App) snapshotFrame() (gocv.Mat, bool) {
	if a.engine.Running() {
		frame, ok := a.frames.clone()
		if !ok {
			a.logger.Warn("snapshot failed, no frame captured yet")
		}
		return frame, ok
	}

	if !a.cameraOpen {
		a.logger.Warn("snapshot failed, camera is not open")
		return gocv.Mat{}, false
	}
	frame, err := capture.ReadWithRetry(a.camera, snapshotReadAttempts, snapshotReadDelay)
	if err != nil {
		a.logger.Warn("snapshot failed", "error", err)
		return gocv.Mat{}, false
	}
	a.frames.store(frame)
	return *frame, true
}

func (a *App) publish(now time.Time) {
	v := View{
		State:             a.engine.State().String(),
		Running:           a.engine.Running(),
		CameraOpen:        a.cameraOpen,
		ElapsedSeconds:    int64(a.engine.Elapsed() / time.Second),
		Streak:            focus.FormatStreak(a.engine.Elapsed()),
		TotalPoints:       a.progress.TotalPoints,
		BestStreakSeconds: a.progress.BestStreakSeconds,
		Best:              focus.FormatSeconds(a.progress.BestStreakSeconds),
		RewardProgress:    a.rewardProgress(),
		Notice:            a.notice.textAt(now),
		UpdatedAt:         now,
	}

	a.viewMu.Lock()
	a.view = v
	a.viewMu.Unlock()
}

// rewardProgress is the fraction of the current reward interval earned.
func (a *App) rewardProgress() float64 {
	interval := a.engine.Config().RewardInterval
	if interval <= 0 {
		return 0
	}
	return float64(a.engine.SinceReward()) / float64(interval)
}
