package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInput is returned when operator input cannot be turned into a plan.
var ErrInvalidInput = errors.New("invalid input")

// Mode selects how the monitor decides to purchase.
type Mode int

const (
	// ModeQuota purchases when the main benefit drops below a threshold.
	ModeQuota Mode = iota + 1
	// ModeTimer purchases unconditionally every timer period.
	ModeTimer
)

// String returns the string representation of a Mode.
func (m Mode) String() string {
	switch m {
	case ModeQuota:
		return "quota"
	case ModeTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// ParseMode accepts the menu number or the mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "quota":
		return ModeQuota, nil
	case "2", "timer":
		return ModeTimer, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
}

// MaxThresholdMB is the largest threshold whose byte count fits in an int64.
const MaxThresholdMB = math.MaxInt64 >> 20

// MonitorPlan is the operator's validated setup choice.
type MonitorPlan struct {
	Target        MonitorTarget
	Mode          Mode
	ThresholdMB   float64
	TimerDuration time.Duration
}

// ThresholdBytes converts the MB threshold to bytes.
func (p MonitorPlan) ThresholdBytes() int64 {
	return int64(p.ThresholdMB * 1024 * 1024)
}

// ParseChoice validates a 1-based menu choice against n entries.
func ParseChoice(choice string, n int) (int, error) {
	choice = strings.TrimSpace(choice)
	idx, err := strconv.Atoi(choice)
	if err != nil || strings.HasPrefix(choice, "+") || strings.HasPrefix(choice, "-") {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, choice)
	}
	if idx < 1 || idx > n {
		return 0, fmt.Errorf("%w: choice %d out of range 1-%d", ErrInvalidInput, idx, n)
	}
	return idx, nil
}

// NewMonitorPlan validates the raw operator answers: the entry number, the
// mode and the numeric value (threshold in MB or timer in seconds).
func NewMonitorPlan(entries []QuotaEntry, choice, mode, value string) (MonitorPlan, error) {
	idx, err := ParseChoice(choice, len(entries))
	if err != nil {
		return MonitorPlan{}, err
	}
	m, err := ParseMode(mode)
	if err != nil {
		return MonitorPlan{}, err
	}

	plan := MonitorPlan{
		Target: TargetFromEntry(entries[idx-1], idx),
		Mode:   m,
	}

	value = strings.TrimSpace(value)
	switch m {
	case ModeQuota:
		mb, err := strconv.ParseFloat(value, 64)
		if err != nil || mb < 0 || math.IsNaN(mb) || mb > MaxThresholdMB {
			return MonitorPlan{}, fmt.Errorf("%w: threshold %q", ErrInvalidInput, value)
		}
		plan.ThresholdMB = mb
	case ModeTimer:
		secs, err := strconv.Atoi(value)
		if err != nil || secs <= 0 || int64(secs) > math.MaxInt64/int64(time.Second) {
			return MonitorPlan{}, fmt.Errorf("%w: timer %q", ErrInvalidInput, value)
		}
		plan.TimerDuration = time.Duration(secs) * time.Second
	}

	return plan, nil
}
