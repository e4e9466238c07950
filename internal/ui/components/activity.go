package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/quota-autopay/internal/ui/styles"
)

// Activity is a spinner bound to what the monitor is currently doing. It
// remembers when that activity began so the view can show how long the
// engine has been offline or waiting for the server.
type Activity struct {
	spinner spinner.Model
	label   string
	status  string
	since   time.Time
}

// NewActivity creates an activity with an initial label.
func NewActivity(label string) Activity {
	a := Activity{spinner: spinner.New(), label: label}
	a.restyle()
	return a
}

// Init starts the spinner animation.
func (a Activity) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update advances the animation.
func (a Activity) Update(msg tea.Msg) (Activity, tea.Cmd) {
	var cmd tea.Cmd
	a.spinner, cmd = a.spinner.Update(msg)
	return a, cmd
}

// Track switches to label and status. The elapsed clock restarts only when
// the label changes.
func (a *Activity) Track(label, status string, now time.Time) {
	if label != a.label || a.since.IsZero() {
		a.since = now
	}
	a.label = label
	if status != a.status {
		a.status = status
		a.restyle()
	}
}

// restyle picks the spinner shape and colour for the current engine status.
func (a *Activity) restyle() {
	switch a.status {
	case "waiting for network":
		a.spinner.Spinner = spinner.Points
	case "triggering purchase":
		a.spinner.Spinner = spinner.MiniDot
	default:
		a.spinner.Spinner = spinner.Dot
	}

	var color lipgloss.TerminalColor = styles.Primary
	if a.status != "" {
		color = styles.GetStatusStyle(a.status).GetForeground()
	}
	a.spinner.Style = lipgloss.NewStyle().Foreground(color)
}

// Label returns the current label.
func (a Activity) Label() string {
	return a.label
}

// Elapsed returns how long the current activity has lasted at now.
func (a Activity) Elapsed(now time.Time) time.Duration {
	if a.since.IsZero() || now.Before(a.since) {
		return 0
	}
	return now.Sub(a.since).Truncate(time.Second)
}

// View renders the glyph and label, plus the elapsed time once it reaches a second.
func (a Activity) View(now time.Time) string {
	label := a.label
	if a.status != "" {
		label = styles.GetStatusStyle(a.status).Render(label)
	} else {
		label = styles.HelpStyle.Render(label)
	}

	out := a.spinner.View() + " " + label
	if d := a.Elapsed(now); d >= time.Second {
		out += styles.HelpStyle.Render(fmt.Sprintf(" for %s", d))
	}
	return out
}

// RenderActivityCentered centers an activity in a width by height box.
func RenderActivityCentered(a Activity, now time.Time, width, height int) string {
	return styles.CenterBoth(a.View(now), width, height)
}
