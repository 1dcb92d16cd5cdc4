// Package tui is the terminal frontend: a bubbletea program that drives the
// tracker's tick loop and renders its view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/studybuddy/internal/app"
)

// Stepper is the part of app.App the terminal UI drives.
type Stepper interface {
	Step(now time.Time)
	View() app.View
	Submit(app.Intent) bool
	TickInterval() time.Duration
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	focusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	graceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7DC6F")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4A90E2")).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

const barWidth = 30

type tickMsg time.Time

// Model is the bubbletea model.
type Model struct {
	app   Stepper
	title string
	view  app.View
	width int
}

// New creates a Model driving a.
func New(a Stepper, title string) Model {
	if title == "" {
		title = app.DefaultLabel
	}
	return Model{app: a, title: title, view: a.View()}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.app.TickInterval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.app.Submit(app.IntentStart)
		case "x":
			m.app.Submit(app.IntentStop)
		case "p":
			m.app.Submit(app.IntentSnapshot)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.app.Step(time.Time(msg))
		m.view = m.app.View()
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	v := m.view

	stats := boxStyle.Render(fmt.Sprintf(
		"State:          %s\n"+
			"Current streak: %s\n"+
			"Next reward:    %s\n"+
			"Total points:   %d\n"+
			"Best streak:    %s",
		stateStyle(v.State).Render(v.State),
		v.Streak,
		rewardBar(v.RewardProgress, barWidth),
		v.TotalPoints,
		v.Best,
	))

	parts := []string{titleStyle.Render(m.title), stats}
	if v.Notice != "" {
		parts = append(parts, noticeStyle.Render(v.Notice))
	}
	if !v.CameraOpen {
		parts = append(parts, idleStyle.Render("camera not open"))
	}
	parts = append(parts, footerStyle.Render("s start • x stop • p snapshot • q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "focused":
		return focusedStyle
	case "grace":
		return graceStyle
	default:
		return idleStyle
	}
}

func rewardBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return focusedStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}

// Run starts the program in the alternate screen and blocks until the user
// quits or ctx is done.
func Run(ctx context.Context, a Stepper, title string) error {
	_, err := tea.NewProgram(New(a, title), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
