package focus

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ayusman/studybuddy/internal/progress"
)

type recordingSaver struct {
	saves []progress.Progress
	err   error
}

func (s *recordingSaver) Save(_ context.Context, p *progress.Progress) error {
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, *p)
	return nil
}

type harness struct {
	t      *testing.T
	engine *Engine
	saver  *recordingSaver
	prog   *progress.Progress
	start  time.Time
	now    time.Time
	step   time.Duration
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		saver: &recordingSaver{},
		prog:  &progress.Progress{},
		start: time.Unix(1700000000, 0),
		step:  time.Second,
	}
	h.now = h.start
	h.engine = New(cfg, h.prog, h.saver, nil)
	h.engine.Start(h.now)
	return h
}

func testConfig() Config {
	return Config{
		GracePeriod:       7 * time.Second,
		RewardInterval:    1500 * time.Second,
		PointsPerInterval: 10,
	}
}

// advance ticks every h.step for d with a constant presence reading.
func (h *harness) advance(d time.Duration, presence bool) []Event {
	var events []Event
	for passed := time.Duration(0); passed < d; passed += h.step {
		h.now = h.now.Add(h.step)
		events = append(events, h.engine.Tick(h.now, h.step, presence)...)
	}
	return events
}

func (h *harness) offset() time.Duration {
	return h.now.Sub(h.start)
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func countKind(events []Event, k EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func TestEngine_StartStopLifecycle(t *testing.T) {
	e := New(testConfig(), nil, nil, nil)
	now := time.Unix(0, 0)

	require.Equal(t, Stopped, e.State())
	require.False(t, e.Running())
	require.Nil(t, e.Tick(now, time.Second, true), "stopped engine ignores ticks")

	e.Start(now)
	require.Equal(t, Idle, e.State())
	require.True(t, e.Running())

	e.Tick(now.Add(time.Second), time.Second, true)
	require.Equal(t, Focused, e.State())

	e.Start(now.Add(2 * time.Second))
	require.Equal(t, Focused, e.State(), "start while running is a no-op")

	events := e.Stop(now.Add(3 * time.Second))
	require.Equal(t, Stopped, e.State())
	require.Equal(t, []EventKind{NewBest, SessionEnded}, kinds(events))
	require.Equal(t, EndStopped, events[1].Reason)

	require.Nil(t, e.Stop(now.Add(4*time.Second)), "second stop does nothing")
}

func TestEngine_StopFromIdleEmitsNothing(t *testing.T) {
	h := newHarness(t, testConfig())

	require.Empty(t, h.advance(5*time.Second, false))
	require.Empty(t, h.engine.Stop(h.now))
	require.Equal(t, Stopped, h.engine.State())
}

func TestEngine_FocusAcquiredOnlyOnEdge(t *testing.T) {
	h := newHarness(t, testConfig())

	events := h.advance(30*time.Second, true)
	require.Equal(t, 1, countKind(events, FocusAcquired))
	require.Equal(t, FocusAcquired, events[0].Kind)
	require.Equal(t, 30*time.Second, h.engine.Elapsed())
}

func TestEngine_GraceTolerance(t *testing.T) {
	// presence true for 10s, false for 5s, true for 10s, then stop
	h := newHarness(t, testConfig())

	h.advance(10*time.Second, true)
	require.Equal(t, 10*time.Second, h.engine.Elapsed())

	events := h.advance(5*time.Second, false)
	require.Empty(t, events)
	require.Equal(t, Grace, h.engine.State())
	require.Equal(t, 10*time.Second, h.engine.Elapsed(), "grace does not accrue")

	events = h.advance(10*time.Second, true)
	require.Equal(t, []EventKind{FocusAcquired}, kinds(events))
	require.Equal(t, 0, countKind(events, SessionEnded))

	events = h.engine.Stop(h.now)
	require.Equal(t, []EventKind{NewBest, SessionEnded}, kinds(events))
	require.Equal(t, 20*time.Second, events[1].Streak)
	require.Equal(t, int64(20), h.prog.BestStreakSeconds)
	require.Equal(t, time.Duration(0), h.engine.Elapsed())
}

func TestEngine_GraceTimeout(t *testing.T) {
	// presence true for 10s, then false for 10s with grace 7s
	h := newHarness(t, testConfig())
	h.step = 100 * time.Millisecond

	h.advance(10*time.Second, true)
	require.Equal(t, 10*time.Second, h.engine.Elapsed())

	var ended []Event
	var endedAt time.Duration
	for h.offset() < 20*time.Second {
		events := h.advance(h.step, false)
		for _, ev := range events {
			if ev.Kind == SessionEnded {
				ended = append(ended, ev)
				endedAt = h.offset()
			}
		}
	}

	require.Len(t, ended, 1, "session ends exactly once")
	require.Greater(t, endedAt, 17*time.Second)
	require.LessOrEqual(t, endedAt, 17*time.Second+h.step)
	require.Equal(t, EndTimeout, ended[0].Reason)
	require.Equal(t, 10*time.Second, ended[0].Streak)
	require.Equal(t, int64(10), h.prog.BestStreakSeconds)
	require.Equal(t, Idle, h.engine.State())
	require.Len(t, h.saver.saves, 1, "finalization persists once")
}

func TestEngine_NewSessionAfterTimeout(t *testing.T) {
	h := newHarness(t, testConfig())

	h.advance(10*time.Second, true)
	first := h.engine.SessionID()
	require.NotEmpty(t, first)

	h.advance(8*time.Second, false)
	require.Equal(t, Idle, h.engine.State())
	require.Empty(t, h.engine.SessionID())

	events := h.advance(time.Second, true)
	require.Equal(t, []EventKind{FocusAcquired}, kinds(events))
	require.Equal(t, time.Second, h.engine.Elapsed(), "new session starts from zero")
	require.NotEqual(t, first, h.engine.SessionID())
}

func TestEngine_TimeoutOnStalledTick(t *testing.T) {
	h := newHarness(t, testConfig())
	h.advance(5*time.Second, true)

	// A single slow tick straight from Focused past the grace window.
	h.now = h.now.Add(30 * time.Second)
	events := h.engine.Tick(h.now, 30*time.Second, false)

	require.Equal(t, []EventKind{NewBest, SessionEnded}, kinds(events))
	require.Equal(t, Idle, h.engine.State())
	require.Equal(t, int64(5), h.prog.BestStreakSeconds)
}

func TestEngine_RewardScenario(t *testing.T) {
	h := newHarness(t, testConfig())

	events := h.advance(1499*time.Second, true)
	require.Equal(t, 0, countKind(events, RewardGranted))
	require.Equal(t, int64(0), h.prog.TotalPoints)

	events = h.advance(time.Second, true)
	require.Equal(t, []EventKind{RewardGranted}, kinds(events))
	require.Equal(t, int64(10), events[0].Points)
	require.Equal(t, 1500*time.Second, h.offset())
	require.Equal(t, int64(10), h.prog.TotalPoints)
	require.Len(t, h.saver.saves, 1)
	require.Equal(t, int64(10), h.saver.saves[0].TotalPoints)
}

func TestEngine_RewardCatchUp(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)
	h.advance(time.Second, true)
	before := h.prog.TotalPoints
	sinceBefore := h.engine.SinceReward()

	h.now = h.now.Add(3 * cfg.RewardInterval)
	events := h.engine.Tick(h.now, 3*cfg.RewardInterval, true)

	require.Equal(t, 3, countKind(events, RewardGranted))
	for _, ev := range events {
		require.Equal(t, cfg.PointsPerInterval, ev.Points)
	}
	require.Equal(t, before+3*cfg.PointsPerInterval, h.prog.TotalPoints)
	require.Equal(t, sinceBefore, h.engine.SinceReward())
	require.GreaterOrEqual(t, h.engine.SinceReward(), time.Duration(0))
	require.Less(t, h.engine.SinceReward(), cfg.RewardInterval)
	require.Len(t, h.saver.saves, 3, "each reward is written through")
}

func TestEngine_RewardCatchUpWithRemainder(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)
	h.advance(cfg.RewardInterval-time.Second, true)
	require.Equal(t, cfg.RewardInterval-time.Second, h.engine.SinceReward())

	h.now = h.now.Add(3 * cfg.RewardInterval)
	events := h.engine.Tick(h.now, 3*cfg.RewardInterval, true)

	require.Equal(t, 3, countKind(events, RewardGranted))
	require.Equal(t, cfg.RewardInterval-time.Second, h.engine.SinceReward())
}

func TestEngine_PartialRewardForfeitedAtSessionEnd(t *testing.T) {
	h := newHarness(t, testConfig())

	h.advance(1000*time.Second, true)
	h.advance(8*time.Second, false)
	require.Equal(t, time.Duration(0), h.engine.SinceReward())

	events := h.advance(600*time.Second, true)
	require.Equal(t, 0, countKind(events, RewardGranted))
	require.Equal(t, int64(0), h.prog.TotalPoints)
}

func TestEngine_GraceDoesNotAccrueTowardReward(t *testing.T) {
	h := newHarness(t, testConfig())

	h.advance(1495*time.Second, true)
	events := h.advance(6*time.Second, false)
	require.Empty(t, events)
	require.Equal(t, int64(0), h.prog.TotalPoints)
	require.Equal(t, 1495*time.Second, h.engine.SinceReward())

	events = h.advance(5*time.Second, true)
	require.Equal(t, 1, countKind(events, RewardGranted))
}

func TestEngine_BestStreakMonotonic(t *testing.T) {
	h := newHarness(t, testConfig())

	sessions := []struct {
		length  time.Duration
		newBest bool
		best    int64
	}{
		{length: 30 * time.Second, newBest: true, best: 30},
		{length: 10 * time.Second, newBest: false, best: 30},
		{length: 30 * time.Second, newBest: false, best: 30},
		{length: 45 * time.Second, newBest: true, best: 45},
	}

	for i, s := range sessions {
		h.advance(s.length, true)
		events := h.advance(8*time.Second, false)
		require.Equal(t, 1, countKind(events, SessionEnded), "session %d", i)
		if s.newBest {
			require.Equal(t, 1, countKind(events, NewBest), "session %d", i)
		} else {
			require.Equal(t, 0, countKind(events, NewBest), "session %d", i)
		}
		require.Equal(t, s.best, h.prog.BestStreakSeconds, "session %d", i)
	}
}

func TestEngine_FractionalStreakBeatsBest(t *testing.T) {
	h := newHarness(t, testConfig())
	h.prog.BestStreakSeconds = 10
	h.step = 500 * time.Millisecond

	h.advance(10500*time.Millisecond, true)
	events := h.engine.Stop(h.now)

	require.Equal(t, []EventKind{NewBest, SessionEnded}, kinds(events))
	require.Equal(t, 10500*time.Millisecond, events[0].Streak)
	require.Equal(t, int64(10), h.prog.BestStreakSeconds)
	require.Len(t, h.saver.saves, 1)
}

func TestEngine_EqualStreakIsNotANewBest(t *testing.T) {
	h := newHarness(t, testConfig())
	h.prog.BestStreakSeconds = 10
	h.step = 500 * time.Millisecond

	h.advance(10*time.Second, true)
	events := h.engine.Stop(h.now)

	require.Equal(t, []EventKind{SessionEnded}, kinds(events))
	require.Empty(t, h.saver.saves)
}

func TestEngine_ElapsedOnlyGrowsWhileFocused(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	h := newHarness(t, testConfig())

	var want time.Duration
	misses := 0
	for i := 0; i < 2000; i++ {
		// At most three misses of up to 1s each, so the grace window never expires.
		present := rng.Intn(4) != 0 || misses == 3
		if present {
			misses = 0
		} else {
			misses++
		}
		dt := time.Duration(rng.Intn(1000)+1) * time.Millisecond
		h.now = h.now.Add(dt)

		prev := h.engine.Elapsed()
		h.engine.Tick(h.now, dt, present)

		if present {
			want += dt
			require.Equal(t, Focused, h.engine.State())
			require.Equal(t, prev+dt, h.engine.Elapsed())
		} else {
			require.Equal(t, prev, h.engine.Elapsed(), "tick %d accrued without presence", i)
		}
	}
	require.Equal(t, want, h.engine.Elapsed())
}

func TestEngine_NegativeDtClamped(t *testing.T) {
	h := newHarness(t, testConfig())
	h.advance(2*time.Second, true)

	h.engine.Tick(h.now, -5*time.Second, true)
	require.Equal(t, 2*time.Second, h.engine.Elapsed())
}

func TestEngine_SaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	cfg := testConfig()
	cfg.RewardInterval = 10 * time.Second
	h := newHarness(t, cfg)
	h.saver.err = errors.New("disk full")

	events := h.advance(20*time.Second, true)
	require.Equal(t, 2, countKind(events, RewardGranted))
	require.Equal(t, int64(20), h.prog.TotalPoints)
	require.Empty(t, h.saver.saves)

	h.saver.err = nil
	h.advance(10*time.Second, true)
	require.Len(t, h.saver.saves, 1)
	require.Equal(t, int64(30), h.saver.saves[0].TotalPoints, "next write carries earlier mutations")
}

func TestFormatStreak(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{999 * time.Millisecond, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{25 * time.Minute, "00:25:00"},
		{26*time.Hour + 3*time.Second, "26:00:03"},
		{-time.Second, "00:00:00"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatStreak(tt.in), "FormatStreak(%v)", tt.in)
	}
	require.Equal(t, "01:00:00", FormatSeconds(3600))
}
