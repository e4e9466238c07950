package monitor

import (
	"time"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/purchase"
)

// StopReason says why a run terminated.
type StopReason int

const (
	// StopCancelled means the operator cancelled the run.
	StopCancelled StopReason = iota
	// StopSessionExpired means a strict token request found no session.
	StopSessionExpired
)

// String returns the string representation of a StopReason.
func (r StopReason) String() string {
	if r == StopSessionExpired {
		return "session expired"
	}
	return "cancelled"
}

// Status is the one-line verdict of an iteration.
type Status string

const (
	StatusHealthy    Status = "healthy"
	StatusTriggering Status = "triggering purchase"
	StatusCooldown   Status = "waiting for server update"
	StatusTimer      Status = "timer active"
	StatusOffline    Status = "waiting for network"
)

// EventType defines the type of monitor event.
type EventType int

const (
	// EventStarted is sent once when a run begins.
	EventStarted EventType = iota
	// EventPoll carries a fresh snapshot of the watched entry.
	EventPoll
	// EventStatus carries the verdict of an iteration.
	EventStatus
	// EventCountdown is sent every second of a wait.
	EventCountdown
	// EventTrigger carries the result of a purchase trigger.
	EventTrigger
	// EventStopped is sent once when a run ends.
	EventStopped
)

// Snapshot is what one poll observed.
type Snapshot struct {
	At            time.Time
	CooldownUntil time.Time
	Projection    *models.DepletionProjection
	Entry         models.QuotaEntry
	Benefit       models.MainBenefit
	Match         models.MatchKind
	Balance       int64
	Threshold     int64
	Low           bool
}

// Event is published by the engine. Only the fields relevant to Type are set.
type Event struct {
	Time      time.Time
	Err       error
	Snapshot  *Snapshot
	Outcome   *purchase.Outcome
	RunID     string
	Status    Status
	Remaining time.Duration
	Type      EventType
	Mode      models.Mode
	Reason    StopReason
}
