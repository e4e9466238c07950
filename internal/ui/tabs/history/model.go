// Package history provides the history tab: recorded polls and purchases.
package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/quota-autopay/internal/app"
	"github.com/j-veylop/quota-autopay/internal/db"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
	"github.com/j-veylop/quota-autopay/internal/ui/styles"
)

const (
	pollLimit     = 240
	purchaseLimit = 50
)

// Source provides recorded history. *services.Manager implements it.
type Source interface {
	RecentPolls(limit int) ([]models.PollRecord, error)
	RecentPurchases(limit int) ([]models.PurchaseRecord, error)
	SpentSince(t time.Time) (*db.PurchaseStats, error)
}

// spendRange is the window the spending summary covers.
type spendRange int

const (
	rangeToday spendRange = iota
	range7Days
	range30Days
)

func (r spendRange) String() string {
	switch r {
	case range7Days:
		return "7 days"
	case range30Days:
		return "30 days"
	default:
		return "today"
	}
}

func (r spendRange) next() spendRange {
	return (r + 1) % 3
}

// since returns the start of the window relative to now.
func (r spendRange) since(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch r {
	case range7Days:
		return midnight.AddDate(0, 0, -6)
	case range30Days:
		return midnight.AddDate(0, 0, -29)
	default:
		return midnight
	}
}

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	ToggleRange key.Binding
	Refresh     key.Binding
	Up          key.Binding
	Down        key.Binding
}

// defaultKeyMap returns the default key bindings for the history tab.
func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle spend range"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// historyLoadedMsg is sent when history data is loaded.
type historyLoadedMsg struct {
	polls     []models.PollRecord
	purchases []models.PurchaseRecord
	stats     *db.PurchaseStats
}

// historyErrorMsg is sent when there's an error loading history.
type historyErrorMsg struct {
	err string
}

// Model represents the history tab state.
type Model struct {
	source   Source
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model
	table    table.Model

	spendRange  spendRange
	polls       []models.PollRecord
	purchases   []models.PurchaseRecord
	stats       *db.PurchaseStats
	loaded      bool
	loading     bool
	lastRefresh time.Time
	errorMsg    string
}

// New creates a new history model.
func New(source Source) *Model {
	cols := purchaseColumns(80)
	t := table.New(
		table.WithColumns(cols),
		table.WithWidth(tableWidth(cols)),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Bold(false)
	t.SetStyles(s)

	return &Model{
		source:   source,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
		table:    t,
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return m.loadHistoryCmd()
}

// loadHistoryCmd creates a command to load history data.
func (m *Model) loadHistoryCmd() tea.Cmd {
	source := m.source
	since := m.spendRange.since(time.Now())

	return func() tea.Msg {
		if source == nil {
			return historyErrorMsg{err: "Services not initialized"}
		}

		polls, err := source.RecentPolls(pollLimit)
		if err != nil {
			return historyErrorMsg{err: err.Error()}
		}
		purchases, err := source.RecentPurchases(purchaseLimit)
		if err != nil {
			return historyErrorMsg{err: err.Error()}
		}
		stats, err := source.SpentSince(since)
		if err != nil {
			return historyErrorMsg{err: err.Error()}
		}
		return historyLoadedMsg{polls: polls, purchases: purchases, stats: stats}
	}
}

func (m *Model) reload() tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	return m.loadHistoryCmd()
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.polls = msg.polls
		m.purchases = msg.purchases
		m.stats = msg.stats
		m.loaded = true
		m.loading = false
		m.lastRefresh = time.Now()
		m.errorMsg = ""
		m.table.SetRows(purchaseRows(m.purchases))

	case historyErrorMsg:
		m.loading = false
		m.errorMsg = msg.err
		cmds = append(cmds, func() tea.Msg {
			return app.AddNotificationMsg{
				Type:     app.NotificationError,
				Message:  fmt.Sprintf("History error: %s", msg.err),
				Duration: app.LongNotificationDuration,
			}
		})

	case app.TabSwitchMsg:
		if msg.Tab == app.TabHistory {
			cmds = append(cmds, m.reload())
		}

	case app.MonitorEventMsg:
		// new rows land on every poll and trigger
		if msg.Event.Type == monitor.EventPoll || msg.Event.Type == monitor.EventTrigger {
			cmds = append(cmds, m.reload())
		}

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd
	switch {
	case key.Matches(msg, m.keys.ToggleRange):
		m.spendRange = m.spendRange.next()
		m.loading = true
		cmds = append(cmds, m.loadHistoryCmd())

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		cmds = append(cmds, m.loadHistoryCmd())

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-2, 0)
	cols := purchaseColumns(max(width-24, 60))
	m.table.SetColumns(cols)
	m.table.SetWidth(tableWidth(cols))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.ToggleRange,
		m.keys.Refresh,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleRange, m.keys.Refresh},
		{m.keys.Up, m.keys.Down},
	}
}
