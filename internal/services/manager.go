// Package services wires the monitoring services together and routes their
// events to the TUI and the headless runner.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/quota-autopay/internal/config"
	"github.com/j-veylop/quota-autopay/internal/db"
	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/billing"
	"github.com/j-veylop/quota-autopay/internal/services/catalog"
	"github.com/j-veylop/quota-autopay/internal/services/connectivity"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
	"github.com/j-veylop/quota-autopay/internal/services/notify"
	"github.com/j-veylop/quota-autopay/internal/services/projection"
	"github.com/j-veylop/quota-autopay/internal/services/purchase"
	"github.com/j-veylop/quota-autopay/internal/services/quota"
	"github.com/j-veylop/quota-autopay/internal/services/session"
)

// ErrRunActive is returned when a monitoring run is already in progress.
var ErrRunActive = errors.New("a monitoring run is already active")

type (
	// SessionChangedEvent is emitted when the session file is loaded, rotated or removed.
	SessionChangedEvent struct {
		Active bool
	}

	// MonitorEvent wraps an event published by the monitoring engine.
	MonitorEvent struct {
		Event monitor.Event
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SessionChangedEvent) isServiceEvent() {}
func (MonitorEvent) isServiceEvent()        {}
func (ErrorEvent) isServiceEvent()          {}

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	sessions    *session.FileProvider
	quota       *quota.Service
	projection  *projection.Service
	database    *db.DB
	engine      *monitor.Engine
	notifier    notify.Notifier
	eventChan   chan ServiceEvent
	stopChan    chan struct{}
	subscribers []chan<- ServiceEvent
	running     bool

	// last observation, for transition notifications
	lastBenefit *models.MainBenefit
	lastStatus  models.ProjectionStatus
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
		notifier:  buildNotifier(cfg),
	}

	var err error
	m.sessions, err = session.NewFileProvider(cfg.SessionPath)
	if err != nil {
		return nil, err
	}

	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		_ = m.sessions.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.projection = projection.New(m.database)

	client := billing.New(cfg.BaseURL, cfg.APIKey)
	m.quota = quota.New(client, m.sessions)
	resolver := catalog.NewResolver(cfg.CatalogURL, client, m.sessions)
	trigger := purchase.NewTrigger(resolver, client, m.sessions, client.APIKey(), m.notifier)

	m.engine = monitor.New(monitor.Config{
		OfferName:            cfg.TargetOfferName,
		RefreshInterval:      cfg.RefreshInterval,
		RecoveryPollInterval: cfg.RecoveryPollInterval,
		PostTriggerPause:     cfg.PostTriggerPause,
		Cooldown:             cfg.PurchaseCooldown,
	}, monitor.Deps{
		Gate:      connectivity.New(cfg.ProbeURLs, cfg.ProbeTimeout, nil),
		Sessions:  m.sessions,
		Quotas:    m.quota,
		Purchaser: trigger,
		Recorder:  m.database,
		Projector: m.projection,
		Notifier:  m.notifier,
	})

	go m.routeEvents(m.sessions.Events(), m.engine.Events())

	return m, nil
}

// buildNotifier combines the enabled notification channels.
func buildNotifier(cfg *config.Config) notify.Notifier {
	var multi notify.Multi
	if cfg.DesktopNotify {
		multi = append(multi, notify.NewDesktop())
	}
	if cfg.TelegramEnabled() {
		multi = append(multi, notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if len(multi) == 0 {
		return nil
	}
	return multi
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents(sessionEvents <-chan session.Event, engineEvents <-chan monitor.Event) {
	for {
		select {
		case event := <-sessionEvents:
			m.handleSessionEvent(event)

		case event := <-engineEvents:
			m.handleMonitorEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleSessionEvent(event session.Event) {
	switch event.Type {
	case session.EventSessionLoaded, session.EventSessionChanged, session.EventSessionCleared:
		m.broadcast(SessionChangedEvent{Active: m.SessionActive()})

	case session.EventError:
		m.broadcast(ErrorEvent{
			Service: "session",
			Error:   event.Error,
		})
	}
}

func (m *Manager) handleMonitorEvent(event monitor.Event) {
	if event.Type == monitor.EventPoll && event.Snapshot != nil {
		m.checkNotifications(event.Snapshot)
	}
	m.broadcast(MonitorEvent{Event: event})
}

// checkNotifications alerts when the projection turns critical and when a
// top-up lands.
func (m *Manager) checkNotifications(snap *monitor.Snapshot) {
	m.mu.Lock()
	prev := m.lastBenefit
	prevStatus := m.lastStatus
	benefit := snap.Benefit
	m.lastBenefit = &benefit
	if snap.Projection != nil {
		m.lastStatus = snap.Projection.Status
	}
	m.mu.Unlock()

	if prev == nil {
		return
	}

	// Only notify if we crossed into critical
	if snap.Projection != nil && snap.Projection.Status == models.ProjectionCritical &&
		prevStatus != models.ProjectionCritical && !snap.Low {
		title := fmt.Sprintf("Quota running out: %s", benefit.Name)
		body := fmt.Sprintf("Expected to cross the threshold in %.0f minutes", snap.Projection.HoursLeft*60)
		notify.Send(m.notifier, title, body)
	}

	// A significant increase means a purchase or top-up was applied
	if benefit.Remaining > prev.Remaining && benefit.Total > 0 {
		percentDiff := float64(benefit.Remaining-prev.Remaining) / float64(benefit.Total) * 100
		if percentDiff > 5.0 {
			title := fmt.Sprintf("Quota topped up: %s", benefit.Name)
			body := fmt.Sprintf("Now %s", quota.FormatQuota(benefit.Remaining, benefit.Total))
			notify.Send(m.notifier, title, body)
		}
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	// Send to main event channel
	select {
	case m.eventChan <- event:
	default:
	}

	// Send to subscribers
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, waitForEvent(ch)
}

// waitForEvent returns a tea.Cmd that waits for the next event.
func waitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return waitForEvent(ch)
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// SessionActive reports whether a session is currently available.
func (m *Manager) SessionActive() bool {
	if m.sessions == nil {
		return false
	}
	_, ok := m.sessions.Tokens()
	return ok
}

// Prepare fetches the entries the operator chooses a target from.
func (m *Manager) Prepare(ctx context.Context) ([]models.QuotaEntry, error) {
	return m.engine.Prepare(ctx)
}

// Balance returns the prepaid balance, or an error when unavailable.
func (m *Manager) Balance(ctx context.Context) (int64, error) {
	return m.quota.FetchBalance(ctx)
}

// RunMonitor runs the engine until ctx is cancelled or the session expires.
// Only one run may be active at a time.
func (m *Manager) RunMonitor(ctx context.Context, plan models.MonitorPlan) (monitor.StopReason, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return monitor.StopCancelled, ErrRunActive
	}
	m.running = true
	m.lastBenefit = nil
	m.lastStatus = ""
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	return m.engine.Run(ctx, plan)
}

// Running reports whether a monitoring run is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// RunID returns the identifier of the current or last run.
func (m *Manager) RunID() string {
	return m.engine.RunID()
}

// RecentPurchases returns the most recent purchase attempts.
func (m *Manager) RecentPurchases(limit int) ([]models.PurchaseRecord, error) {
	if m.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return m.database.RecentPurchases(limit)
}

// RecentPolls returns the latest polls of the current run, oldest first.
func (m *Manager) RecentPolls(limit int) ([]models.PollRecord, error) {
	if m.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return m.database.RecentPolls(m.RunID(), limit)
}

// SpentSince summarises submitted purchases since t.
func (m *Manager) SpentSince(t time.Time) (*db.PurchaseStats, error) {
	if m.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return m.database.SubmittedSince(t)
}

// Config returns the loaded configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Sessions returns the session provider.
func (m *Manager) Sessions() *session.FileProvider {
	return m.sessions
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	close(m.stopChan)

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	var errs []error

	if m.sessions != nil {
		if err := m.sessions.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		logger.Error("failed to close services", "error", errs[0])
		return errs[0]
	}
	return nil
}
