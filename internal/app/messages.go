package app

import (
	"time"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// EntriesLoadedMsg carries the setup snapshot, or why it could not be fetched.
type EntriesLoadedMsg struct {
	Error   error
	Entries []models.QuotaEntry
}

// AnswerMsg is a line submitted at the operator prompt.
type AnswerMsg struct {
	Text string
}

// RunStartedMsg signals that a monitoring run was launched.
type RunStartedMsg struct {
	Plan models.MonitorPlan
}

// RunStoppedMsg is sent when RunMonitor returns.
type RunStoppedMsg struct {
	Error  error
	Reason monitor.StopReason
}

// MonitorEventMsg wraps an engine event for the tabs.
type MonitorEventMsg struct {
	Event monitor.Event
}

// HistoryChangedMsg signals that new polls or purchases were recorded.
type HistoryChangedMsg struct{}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}
