// Package monitor provides the setup prompt and the live monitoring view.
package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/quota-autopay/internal/app"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/ui/components"
)

type frameTickMsg time.Time

func frameTickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*120, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}

// keyMap defines the key bindings specific to the monitor tab.
type keyMap struct {
	Submit   key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit answer"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
	}
}

// Model represents the monitor tab state.
type Model struct {
	state    *app.State
	sentinel string
	input    textinput.Model
	activity components.Activity
	quotaBar components.QuotaBar
	viewport viewport.Model
	keys     keyMap
	width    int
	height   int
	frame    int
}

// New creates a new monitor tab. sentinel is shown as the stop answer.
func New(state *app.State, sentinel string) *Model {
	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 32
	input.Width = 20
	input.Focus()

	return &Model{
		state:    state,
		sentinel: sentinel,
		input:    input,
		activity: components.NewActivity(loadingLabel),
		quotaBar: components.NewQuotaBar(),
		viewport: viewport.New(0, 0),
		keys:     defaultKeyMap(),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.activity.Init(), frameTickCmd())
}

// CapturingInput reports that the prompt owns the keyboard.
func (m *Model) CapturingInput() bool {
	return m.input.Focused()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Submit):
			text := m.input.Value()
			m.input.Reset()
			return m, app.Answer(text)
		case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDn):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case frameTickMsg:
		m.frame++
		if m.state.GetPhase() == app.PhaseLoading || m.state.GetPhase() == app.PhaseMonitoring {
			cmds = append(cmds, frameTickCmd())
		}

	case app.EntriesLoadedMsg, app.RunStartedMsg:
		m.viewport.GotoTop()
		cmds = append(cmds, frameTickCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.activity, cmd = m.activity.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.syncActivity(time.Now())

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

const loadingLabel = "Fetching quota entries..."

// syncActivity follows the phase and the latest engine status.
func (m *Model) syncActivity(now time.Time) {
	switch m.state.GetPhase() {
	case app.PhaseLoading:
		m.activity.Track(loadingLabel, "", now)
	case app.PhaseMonitoring:
		if status := m.state.GetStatus(); status != "" {
			m.activity.Track(string(status), string(status), now)
		}
	}
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-5, 0)
}

// promptLabel describes what the prompt expects in the current phase.
func (m *Model) promptLabel() string {
	switch m.state.GetPhase() {
	case app.PhaseLoading:
		return "Fetching entries, type " + m.sentinel + " to cancel"
	case app.PhaseSelectEntry:
		return "Entry number (" + app.AbortAnswer + " to abort)"
	case app.PhaseSelectMode:
		return "Mode: 1 quota, 2 timer"
	case app.PhaseEnterValue:
		if mode, err := models.ParseMode(m.state.GetWizard().Mode); err == nil && mode == models.ModeTimer {
			return "Timer in seconds"
		}
		return "Threshold in MB"
	case app.PhaseMonitoring:
		return "Type " + m.sentinel + " to stop"
	default:
		return "Press enter to set up again"
	}
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Submit, m.keys.ScrollUp, m.keys.ScrollDn}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Submit},
		{m.keys.ScrollUp, m.keys.ScrollDn},
	}
}
