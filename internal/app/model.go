// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
	"github.com/j-veylop/quota-autopay/internal/services/session"
	"github.com/j-veylop/quota-autopay/internal/ui/styles"
)

// AbortAnswer aborts setup when typed at the entry prompt.
const AbortAnswer = "00"

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabMonitor is the ID for the monitor tab.
	TabMonitor TabID = iota
	// TabHistory is the ID for the history tab.
	TabHistory
	// TabInfo is the ID for the info tab.
	TabInfo
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabMonitor:
		return "Monitor"
	case TabHistory:
		return "History"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// InputCapturer is implemented by tabs that own a text prompt. While a tab
// captures input, only ctrl+c and tab switching are handled globally.
type InputCapturer interface {
	CapturingInput() bool
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1      key.Binding
	Tab2      key.Binding
	Tab3      key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	FocusNext key.Binding
	FocusPrev key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Escape    key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Home      key.Binding
	End       key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	km := KeyMap{}
	km = setTabKeys(km)
	km = setActionKeys(km)
	km = setNavigationKeys(km)
	km = setListKeys(km)
	return km
}

func setTabKeys(k KeyMap) KeyMap {
	k.Tab1 = key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "monitor"))
	k.Tab2 = key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "history"))
	k.Tab3 = key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "info"))
	k.NextTab = key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/→", "next tab"))
	k.PrevTab = key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab/←", "prev tab"))
	k.FocusNext = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab"))
	k.FocusPrev = key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab"))
	return k
}

func setActionKeys(k KeyMap) KeyMap {
	k.Help = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help"))
	k.Quit = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
	k.ForceQuit = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	return k
}

func setNavigationKeys(k KeyMap) KeyMap {
	k.Up = key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up"))
	k.Down = key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down"))
	k.Enter = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit"))
	k.Escape = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close help"))
	return k
}

func setListKeys(k KeyMap) KeyMap {
	k.PageUp = key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up"))
	k.PageDown = key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down"))
	k.Home = key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "go to top"))
	k.End = key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "go to bottom"))
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.NextTab, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3},
		{k.NextTab, k.PrevTab},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Enter, k.Help, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	// Tab bar styles
	TabBar       lipgloss.Style
	ActiveTab    lipgloss.Style
	InactiveTab  lipgloss.Style
	TabSeparator lipgloss.Style

	// Notification styles
	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	// Content styles
	Content lipgloss.Style
	Help    lipgloss.Style
	Spinner lipgloss.Style
	Toast   lipgloss.Style

	// Common styles
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)
	s.TabSeparator = lipgloss.NewStyle().Foreground(subtle).SetString(" | ")

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Help = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)
	s.Spinner = lipgloss.NewStyle().Foreground(highlight)
	s.Toast = styles.ToastStyle

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)
	s.Error = lipgloss.NewStyle().Foreground(errorColor)
	s.Success = lipgloss.NewStyle().Foreground(success)
	s.Warning = lipgloss.NewStyle().Foreground(warning)

	return s
}

// Model is the main application model.
type Model struct {
	// Tab management
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	// Shared state
	state   *State
	backend Backend
	keymap  KeyMap
	styles  Styles

	// UI components
	spinner spinner.Model

	// Operator input
	sentinel      string
	cancelPrepare context.CancelFunc
	cancelRun     context.CancelFunc

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp bool
	ready    bool
	quitting bool

	// Service subscription
	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model. sentinel is the line that
// cancels an active wait or run.
func NewModel(backend Backend, sentinel string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if sentinel == "" {
		sentinel = "99"
	}

	return &Model{
		activeTab: TabMonitor,
		tabNames:  []string{"Monitor", "History", "Info"},
		tabs:      make([]Tab, 3),
		state:     NewState(),
		backend:   backend,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
		sentinel:  sentinel,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// Sentinel returns the line that cancels an active wait or run.
func (m *Model) Sentinel() string {
	return m.sentinel
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.backend != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.backend), m.startPrepare())
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg, tea.KeyMsg, spinner.TickMsg:
		if cmd := m.handleTeaMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	default:
		if appCmds := m.handleAppMsg(msg); len(appCmds) > 0 {
			cmds = append(cmds, appCmds...)
		}
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleTeaMsg(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateTabSizes()
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event)...)
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case EntriesLoadedMsg:
		cmds = append(cmds, m.handleEntriesLoaded(msg)...)
	case AnswerMsg:
		cmds = append(cmds, m.handleAnswer(msg.Text)...)
	case RunStoppedMsg:
		cmds = append(cmds, m.handleRunStopped(msg)...)
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()
	case ErrorMsg:
		cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("%s: %v", msg.Context, msg.Error)))
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

// startPrepare fetches the setup snapshot under a cancellable context.
func (m *Model) startPrepare() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelPrepare = cancel
	m.state.SetPhase(PhaseLoading)
	m.state.SetLoadingNotification("Fetching quota entries...")
	return prepareCmd(ctx, m.backend)
}

func (m *Model) handleEntriesLoaded(msg EntriesLoadedMsg) []tea.Cmd {
	if m.cancelPrepare != nil {
		m.cancelPrepare()
		m.cancelPrepare = nil
	}
	m.state.ClearLoadingNotification()

	switch {
	case msg.Error == nil:
		m.state.SetEntries(msg.Entries)
		return nil
	case errors.Is(msg.Error, context.Canceled):
		m.state.Stop("setup cancelled", nil)
		return nil
	case errors.Is(msg.Error, session.ErrExpired):
		m.state.Stop(monitor.StopSessionExpired.String(), msg.Error)
		return []tea.Cmd{notifyErrorCmd("Session expired: login required")}
	case errors.Is(msg.Error, monitor.ErrNoEntries):
		m.state.Stop("no active quota", msg.Error)
		return []tea.Cmd{notifyWarningCmd("No active quota entries on this account")}
	default:
		m.state.Stop("setup failed", msg.Error)
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Setup failed: %v", msg.Error))}
	}
}

// handleAnswer advances the wizard or controls the active run.
func (m *Model) handleAnswer(text string) []tea.Cmd {
	answer := strings.TrimSpace(text)

	switch m.state.GetPhase() {
	case PhaseLoading:
		if answer == m.sentinel && m.cancelPrepare != nil {
			m.cancelPrepare()
		}

	case PhaseSelectEntry:
		if answer == AbortAnswer {
			m.state.Stop("setup aborted", nil)
			return []tea.Cmd{notifyInfoCmd("Setup aborted")}
		}
		if _, err := models.ParseChoice(answer, len(m.state.GetEntries())); err != nil {
			return m.rejectAnswer(err)
		}
		m.state.SetChoice(answer)

	case PhaseSelectMode:
		if _, err := models.ParseMode(answer); err != nil {
			return m.rejectAnswer(err)
		}
		m.state.SetMode(answer)

	case PhaseEnterValue:
		w := m.state.GetWizard()
		plan, err := models.NewMonitorPlan(m.state.GetEntries(), w.Choice, w.Mode, answer)
		if err != nil {
			return m.rejectAnswer(err)
		}
		return m.startRun(plan)

	case PhaseMonitoring:
		if answer == m.sentinel {
			if m.cancelRun != nil {
				m.cancelRun()
			}
			return []tea.Cmd{notifyInfoCmd("Stopping monitor...")}
		}
		return []tea.Cmd{notifyWarningCmd(fmt.Sprintf("Type %s to stop monitoring", m.sentinel))}

	case PhaseStopped:
		if m.backend != nil {
			return []tea.Cmd{m.startPrepare()}
		}
	}

	return nil
}

// rejectAnswer ends setup on invalid input. Nothing has been started yet, so
// the operator simply sets up again.
func (m *Model) rejectAnswer(err error) []tea.Cmd {
	m.state.Stop("invalid input", err)
	return []tea.Cmd{notifyErrorCmd(err.Error() + ", press enter to set up again")}
}

func (m *Model) startRun(plan models.MonitorPlan) []tea.Cmd {
	m.state.StartRun(plan)
	if m.backend == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel

	label := plan.Target.Name
	if label == "" {
		label = fmt.Sprintf("Paket %d", plan.Target.Ordinal)
	}

	return []tea.Cmd{
		runMonitorCmd(ctx, m.backend, plan),
		func() tea.Msg { return RunStartedMsg{Plan: plan} },
		notifyInfoCmd(fmt.Sprintf("Monitoring %s (%s mode)", label, plan.Mode)),
	}
}

func (m *Model) handleRunStopped(msg RunStoppedMsg) []tea.Cmd {
	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun = nil
	}

	if errors.Is(msg.Error, services.ErrRunActive) {
		return []tea.Cmd{notifyErrorCmd(msg.Error.Error())}
	}

	m.state.Stop(msg.Reason.String(), msg.Error)
	if msg.Reason == monitor.StopSessionExpired {
		return []tea.Cmd{notifyErrorCmd("Session expired: login required")}
	}
	return []tea.Cmd{notifyInfoCmd("Monitoring stopped")}
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) []tea.Cmd {
	switch e := event.(type) {
	case services.SessionChangedEvent:
		m.state.SetSessionActive(e.Active)
		if e.Active && m.state.GetPhase() == PhaseStopped {
			return []tea.Cmd{notifyInfoCmd("Session available, press enter to set up")}
		}

	case services.MonitorEvent:
		cmds := []tea.Cmd{func() tea.Msg { return MonitorEventMsg{Event: e.Event} }}
		if rec := m.state.ApplyEvent(e.Event); rec != nil {
			if rec.Err != nil {
				cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Purchase failed: %v", rec.Err)))
			} else {
				cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Purchase submitted: %s", rec.Offer)))
			}
		}
		return cmds

	case services.ErrorEvent:
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))}
	}

	return nil
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

// capturing reports whether the active tab owns keyboard input.
func (m *Model) capturing() bool {
	if int(m.activeTab) >= len(m.tabs) || m.tabs[m.activeTab] == nil {
		return false
	}
	c, ok := m.tabs[m.activeTab].(InputCapturer)
	return ok && c.CapturingInput()
}

func switchTabCmd(tab TabID) tea.Cmd {
	return func() tea.Msg {
		return TabSwitchMsg{Tab: tab}
	}
}

func (m *Model) nextTab(delta int) tea.Cmd {
	n := len(m.tabs)
	if n == 0 {
		return nil
	}
	return switchTabCmd(TabID((int(m.activeTab) + delta + n) % n))
}

// quit stops any run or pending setup before leaving.
func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.cancelPrepare != nil {
		m.cancelPrepare()
	}
	if m.cancelRun != nil {
		m.cancelRun()
	}
	return tea.Quit
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.capturing() {
		switch {
		case key.Matches(msg, m.keymap.ForceQuit):
			return m.quit()
		case key.Matches(msg, m.keymap.FocusNext):
			return m.nextTab(1)
		case key.Matches(msg, m.keymap.FocusPrev):
			return m.nextTab(-1)
		case key.Matches(msg, m.keymap.Escape) && m.showHelp:
			m.showHelp = false
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m.quit()

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, m.keymap.Tab1):
		return switchTabCmd(TabMonitor)

	case key.Matches(msg, m.keymap.Tab2):
		return switchTabCmd(TabHistory)

	case key.Matches(msg, m.keymap.Tab3):
		return switchTabCmd(TabInfo)

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp {
			return m.nextTab(1)
		}

	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp {
			return m.nextTab(-1)
		}

	case key.Matches(msg, m.keymap.Escape):
		m.showHelp = false
	}

	return nil
}

// View renders the application UI.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if notifications := m.renderNotifications(); len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayWidth := lipgloss.Width(overlay)
	y := max((m.height-len(overlayLines))/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]
		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderNavbar() string {
	tabs := make([]string, 0, len(m.tabNames)+1)

	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}

	session := m.styles.Error.Render("● no session")
	if m.state.IsSessionActive() {
		session = m.styles.Success.Render("● session")
	}
	tabs = append(tabs, m.styles.Subtle.Render("  "), session)

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	if len(toasts) == 0 {
		return mainView
	}

	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	toastWidth := lipgloss.Width(toastStack)
	startX := max(m.width-toastWidth-2, 0)
	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-mainLineWidth) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	lines := []string{
		m.styles.Title.Render("Keyboard Shortcuts"),
		"",
		m.styles.Highlight.Render("Navigation"),
		"  1-3        Switch tabs (outside the prompt)",
		"  Tab        Next tab",
		"  Shift+Tab  Previous tab",
		"",
		m.styles.Highlight.Render("Prompt"),
		"  Enter      Submit answer",
		fmt.Sprintf("  %-10s Stop monitoring or cancel a wait", m.sentinel),
		fmt.Sprintf("  %-10s Abort setup at the entry prompt", AbortAnswer),
		"",
		m.styles.Highlight.Render("Actions"),
		"  ?          Toggle help",
		"  q/Ctrl+C   Quit",
		"",
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		if tabHelp := m.tabs[m.activeTab].ShortHelp(); len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.tabNames[m.activeTab])))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	content := fmt.Sprintf(
		"Tab %d: %s\n\n%s",
		m.activeTab+1,
		m.tabNames[m.activeTab],
		m.styles.Subtle.Render("This tab is not available."),
	)
	return m.styles.Content.Render(content)
}
