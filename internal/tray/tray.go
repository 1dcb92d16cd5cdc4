// Package tray provides the system tray frontend for studybuddy.
package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/studybuddy/internal/app"
)

// ViewSource yields the current tracker view.
type ViewSource interface {
	View() app.View
}

// Tray represents the system tray application.
type Tray struct {
	onIntent func(app.Intent)
	onQuit   func()
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuStart    *systray.MenuItem
	menuStop     *systray.MenuItem
	menuSnapshot *systray.MenuItem
	menuState    *systray.MenuItem
	menuStreak   *systray.MenuItem
	menuPoints   *systray.MenuItem
	menuBest     *systray.MenuItem
	menuNotice   *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnIntent sets the callback for the Start, Stop and Snapshot items.
func (t *Tray) OnIntent(fn func(app.Intent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onIntent = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu, e.g. on a signal.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Study Buddy")
	systray.SetTooltip("AI Study Buddy focus tracker")

	t.mu.Lock()
	t.menuStart = systray.AddMenuItem("Start", "Start tracking focus")
	t.menuStop = systray.AddMenuItem("Stop", "Stop tracking and end the session")
	t.menuStop.Disable()
	t.menuSnapshot = systray.AddMenuItem("Snapshot", "Save a snapshot with your stats")
	systray.AddSeparator()

	t.menuState = systray.AddMenuItem("State: stopped", "")
	t.menuStreak = systray.AddMenuItem("Current streak: 00:00:00", "")
	t.menuPoints = systray.AddMenuItem("Total points: 0", "")
	t.menuBest = systray.AddMenuItem("Best streak: 00:00:00", "")
	t.menuNotice = systray.AddMenuItem("", "")
	for _, m := range []*systray.MenuItem{t.menuState, t.menuStreak, t.menuPoints, t.menuBest, t.menuNotice} {
		m.Disable()
	}
	t.menuNotice.Hide()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Study Buddy")
	start, stop, snap := t.menuStart, t.menuStop, t.menuSnapshot
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-start.ClickedCh:
				t.handleIntent(app.IntentStart)
			case <-stop.ClickedCh:
				t.handleIntent(app.IntentStop)
			case <-snap.ClickedCh:
				t.handleIntent(app.IntentSnapshot)
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleIntent(i app.Intent) {
	t.mu.RLock()
	callback := t.onIntent
	t.mu.RUnlock()

	if callback != nil {
		callback(i)
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Watch refreshes the menu from source every interval until ctx is done.
func (t *Tray) Watch(ctx context.Context, source ViewSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Update(source.View())
		}
	}
}

// Update renders v into the status lines and toggles Start and Stop.
func (t *Tray) Update(v app.View) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuState == nil {
		return
	}

	s := statusFor(v)
	t.menuState.SetTitle(s.state)
	t.menuStreak.SetTitle(s.streak)
	t.menuPoints.SetTitle(s.points)
	t.menuBest.SetTitle(s.best)
	systray.SetTitle(s.title)

	if s.notice == "" {
		t.menuNotice.Hide()
	} else {
		t.menuNotice.SetTitle(s.notice)
		t.menuNotice.Show()
	}

	if v.Running {
		t.menuStart.Disable()
		t.menuStop.Enable()
	} else {
		t.menuStart.Enable()
		t.menuStop.Disable()
	}
}

type status struct {
	title  string
	state  string
	streak string
	points string
	best   string
	notice string
}

func statusFor(v app.View) status {
	title := "Study Buddy"
	if v.State == "focused" || v.State == "grace" {
		title = v.Streak
	}
	return status{
		title:  title,
		state:  "State: " + v.State,
		streak: "Current streak: " + v.Streak,
		points: fmt.Sprintf("Total points: %d", v.TotalPoints),
		best:   "Best streak: " + v.Best,
		notice: v.Notice,
	}
}
