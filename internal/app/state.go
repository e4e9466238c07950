// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
	maxTriggers      = 20
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Type      NotificationType
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// Phase is the step of the setup wizard or the run lifecycle.
type Phase int

const (
	// PhaseLoading means the entry list is being fetched.
	PhaseLoading Phase = iota
	// PhaseSelectEntry prompts for the entry number.
	PhaseSelectEntry
	// PhaseSelectMode prompts for quota or timer mode.
	PhaseSelectMode
	// PhaseEnterValue prompts for the threshold or timer value.
	PhaseEnterValue
	// PhaseMonitoring means a run is active.
	PhaseMonitoring
	// PhaseStopped means the last run or setup ended.
	PhaseStopped
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSelectEntry:
		return "select entry"
	case PhaseSelectMode:
		return "select mode"
	case PhaseEnterValue:
		return "enter value"
	case PhaseMonitoring:
		return "monitoring"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TriggerRecord is one purchase trigger observed during the session.
type TriggerRecord struct {
	Time    time.Time
	Err     error
	Preview []string
	Offer   string
	Total   int64
}

// Wizard holds the raw operator answers collected so far.
type Wizard struct {
	Choice string
	Mode   string
}

// State is the application state shared between the root model and tabs.
type State struct {
	mu sync.RWMutex

	Phase   Phase
	Entries []models.QuotaEntry
	Wizard  Wizard
	Plan    *models.MonitorPlan

	RunID       string
	Snapshot    *monitor.Snapshot
	Status      monitor.Status
	Countdown   time.Duration
	CountdownOf time.Duration
	Triggers    []TriggerRecord
	StopReason  string
	LastError   string

	SessionActive bool
	LastUpdated   time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state in the loading phase.
func NewState() *State {
	return &State{
		Phase:         PhaseLoading,
		notifications: make([]Notification, 0),
	}
}

// GetPhase returns the current phase.
func (s *State) GetPhase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Phase
}

// SetPhase moves to a new phase.
func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = p
}

// SetEntries stores the setup snapshot and starts the wizard.
func (s *State) SetEntries(entries []models.QuotaEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Entries = entries
	s.Wizard = Wizard{}
	s.Plan = nil
	s.LastError = ""
	s.Phase = PhaseSelectEntry
	s.LastUpdated = time.Now()
}

// GetEntries returns a copy of the setup snapshot.
func (s *State) GetEntries() []models.QuotaEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.QuotaEntry, len(s.Entries))
	copy(entries, s.Entries)
	return entries
}

// GetWizard returns the answers collected so far.
func (s *State) GetWizard() Wizard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Wizard
}

// SetChoice records a validated entry choice and advances the wizard.
func (s *State) SetChoice(choice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Wizard.Choice = choice
	s.Phase = PhaseSelectMode
}

// SetMode records a validated mode and advances the wizard.
func (s *State) SetMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Wizard.Mode = mode
	s.Phase = PhaseEnterValue
}

// StartRun records the plan of a new run.
func (s *State) StartRun(plan models.MonitorPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Plan = &plan
	s.Phase = PhaseMonitoring
	s.Snapshot = nil
	s.Status = ""
	s.Countdown = 0
	s.CountdownOf = 0
	s.StopReason = ""
	s.LastError = ""
}

// GetPlan returns the plan of the current or last run.
func (s *State) GetPlan() *models.MonitorPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Plan
}

// Stop records why the run or setup ended.
func (s *State) Stop(reason string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Phase = PhaseStopped
	s.StopReason = reason
	s.Countdown = 0
	s.LastError = ""
	if err != nil {
		s.LastError = err.Error()
	}
}

// GetStop returns the stop reason and the last error message.
func (s *State) GetStop() (reason, lastError string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StopReason, s.LastError
}

// ApplyEvent folds an engine event into the state. It returns the trigger
// record when the event was a purchase trigger.
func (s *State) ApplyEvent(event monitor.Event) *TriggerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.RunID != "" {
		s.RunID = event.RunID
	}

	switch event.Type {
	case monitor.EventPoll:
		if event.Snapshot != nil {
			s.Snapshot = event.Snapshot
			s.LastUpdated = event.Time
		}
		if event.Err != nil {
			s.LastError = event.Err.Error()
		}

	case monitor.EventStatus:
		s.Status = event.Status
		if event.Err != nil {
			s.LastError = event.Err.Error()
		}

	case monitor.EventCountdown:
		// a jump upwards starts a new wait
		if event.Remaining > s.Countdown {
			s.CountdownOf = event.Remaining
		}
		s.Countdown = event.Remaining

	case monitor.EventTrigger:
		rec := TriggerRecord{Time: event.Time, Err: event.Err}
		if event.Outcome != nil {
			if rec.Err == nil {
				rec.Err = event.Outcome.SettleErr
			}
			rec.Preview = event.Outcome.Preview()
			if event.Outcome.Plan != nil {
				rec.Offer = event.Outcome.Plan.SelectedName
				rec.Total = event.Outcome.Plan.TotalPrice()
			}
		}
		s.Triggers = append(s.Triggers, rec)
		if len(s.Triggers) > maxTriggers {
			s.Triggers = s.Triggers[len(s.Triggers)-maxTriggers:]
		}
		return &rec
	}

	return nil
}

// GetSnapshot returns the latest poll snapshot.
func (s *State) GetSnapshot() *monitor.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Snapshot
}

// GetStatus returns the latest status line.
func (s *State) GetStatus() monitor.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// GetCountdown returns the time left in the current wait and its length.
func (s *State) GetCountdown() (remaining, total time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Countdown, s.CountdownOf
}

// GetTriggers returns a copy of the recent triggers, newest last.
func (s *State) GetTriggers() []TriggerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TriggerRecord, len(s.Triggers))
	copy(out, s.Triggers)
	return out
}

// GetRunID returns the identifier of the current or last run.
func (s *State) GetRunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RunID
}

// SetSessionActive records whether a session is available.
func (s *State) SetSessionActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SessionActive = active
}

// IsSessionActive reports whether a session is available.
func (s *State) IsSessionActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SessionActive
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the time of the last snapshot.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}
