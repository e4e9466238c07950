package app

import (
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
	"github.com/j-veylop/quota-autopay/internal/services/purchase"
)

func TestNewState(t *testing.T) {
	s := NewState()
	if s == nil {
		t.Fatal("NewState returned nil")
	}
	if s.GetPhase() != PhaseLoading {
		t.Errorf("phase = %v, want loading", s.GetPhase())
	}
	if len(s.GetEntries()) != 0 {
		t.Error("Entries should be empty")
	}
}

func TestState_WizardTransitions(t *testing.T) {
	s := NewState()

	s.SetEntries(testEntries())
	if s.GetPhase() != PhaseSelectEntry {
		t.Fatalf("phase = %v, want select entry", s.GetPhase())
	}
	if len(s.GetEntries()) != 2 {
		t.Errorf("entries = %d, want 2", len(s.GetEntries()))
	}

	s.SetChoice("2")
	if s.GetPhase() != PhaseSelectMode {
		t.Errorf("phase = %v, want select mode", s.GetPhase())
	}

	s.SetMode("1")
	if s.GetPhase() != PhaseEnterValue {
		t.Errorf("phase = %v, want enter value", s.GetPhase())
	}
	if w := s.GetWizard(); w.Choice != "2" || w.Mode != "1" {
		t.Errorf("wizard = %+v", w)
	}

	s.StartRun(models.MonitorPlan{Mode: models.ModeQuota, ThresholdMB: 50})
	if s.GetPhase() != PhaseMonitoring {
		t.Errorf("phase = %v, want monitoring", s.GetPhase())
	}
	if s.GetPlan() == nil || s.GetPlan().ThresholdMB != 50 {
		t.Errorf("plan = %+v", s.GetPlan())
	}

	s.Stop("cancelled", errors.New("ctx done"))
	reason, lastErr := s.GetStop()
	if s.GetPhase() != PhaseStopped || reason != "cancelled" || lastErr != "ctx done" {
		t.Errorf("stop = %v %q %q", s.GetPhase(), reason, lastErr)
	}

	// a fresh snapshot resets the answers
	s.SetEntries(testEntries())
	if w := s.GetWizard(); w.Choice != "" || w.Mode != "" {
		t.Errorf("wizard should reset, got %+v", w)
	}
	if s.GetPlan() != nil {
		t.Error("plan should reset")
	}
}

func TestState_GetEntriesReturnsCopy(t *testing.T) {
	s := NewState()
	s.SetEntries(testEntries())

	entries := s.GetEntries()
	entries[0].Name = "changed"

	if s.GetEntries()[0].Name != "Xtra Combo" {
		t.Error("GetEntries should return a copy")
	}
}

func TestState_ApplyEvent_PollAndStatus(t *testing.T) {
	s := NewState()
	now := time.Now()
	snap := &monitor.Snapshot{At: now, Benefit: models.MainBenefit{Remaining: 10, Total: 100}}

	if rec := s.ApplyEvent(monitor.Event{Type: monitor.EventPoll, Time: now, RunID: "r1", Snapshot: snap}); rec != nil {
		t.Error("poll should not produce a trigger record")
	}
	if s.GetSnapshot() != snap || s.GetRunID() != "r1" {
		t.Error("poll should update the snapshot and run id")
	}
	if !s.GetLastUpdated().Equal(now) {
		t.Error("LastUpdated should follow the poll time")
	}

	s.ApplyEvent(monitor.Event{Type: monitor.EventStatus, Status: monitor.StatusOffline})
	if s.GetStatus() != monitor.StatusOffline {
		t.Errorf("status = %q", s.GetStatus())
	}
}

func TestState_ApplyEvent_Countdown(t *testing.T) {
	s := NewState()

	s.ApplyEvent(monitor.Event{Type: monitor.EventCountdown, Remaining: 20 * time.Second})
	s.ApplyEvent(monitor.Event{Type: monitor.EventCountdown, Remaining: 19 * time.Second})

	remaining, total := s.GetCountdown()
	if remaining != 19*time.Second || total != 20*time.Second {
		t.Errorf("countdown = %v of %v, want 19s of 20s", remaining, total)
	}

	// a new wait starts over
	s.ApplyEvent(monitor.Event{Type: monitor.EventCountdown, Remaining: 3 * time.Second})
	s.ApplyEvent(monitor.Event{Type: monitor.EventCountdown, Remaining: 180 * time.Second})
	if _, total := s.GetCountdown(); total != 180*time.Second {
		t.Errorf("total = %v, want 3m0s", total)
	}
}

func TestState_ApplyEvent_Trigger(t *testing.T) {
	s := NewState()

	outcome := &purchase.Outcome{
		Plan: &models.PurchasePlan{
			SelectedName: "Masa Aktif 30 Hari",
			Items:        []models.PaymentLineItem{{ItemPrice: 1000}, {ItemPrice: 500}},
		},
		SettleErr: errors.New("declined"),
	}

	rec := s.ApplyEvent(monitor.Event{Type: monitor.EventTrigger, Outcome: outcome})
	if rec == nil {
		t.Fatal("trigger should produce a record")
	}
	if rec.Offer != "Masa Aktif 30 Hari" || rec.Total != 1500 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Err == nil || rec.Err.Error() != "declined" {
		t.Errorf("settle error should be carried, got %v", rec.Err)
	}
	if len(rec.Preview) != 2 {
		t.Errorf("preview = %v, want 2 lines", rec.Preview)
	}
}

func TestState_TriggersCapped(t *testing.T) {
	s := NewState()
	for range maxTriggers + 5 {
		s.ApplyEvent(monitor.Event{Type: monitor.EventTrigger})
	}
	if got := len(s.GetTriggers()); got != maxTriggers {
		t.Errorf("triggers = %d, want %d", got, maxTriggers)
	}
}

func TestState_Session(t *testing.T) {
	s := NewState()
	if s.IsSessionActive() {
		t.Error("session should start inactive")
	}
	s.SetSessionActive(true)
	if !s.IsSessionActive() {
		t.Error("session should be active")
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationSuccess, "Test", time.Minute)
	if id == "" {
		t.Error("AddNotification returned empty ID")
	}

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].Message != "Test" {
		t.Error("Wrong message")
	}

	s.RemoveNotification(id)
	if len(s.GetNotifications()) != 0 {
		t.Error("Notification should be removed")
	}

	// Expiry
	s.AddNotification(NotificationInfo, "Expired", time.Nanosecond)
	time.Sleep(time.Millisecond)
	s.ClearExpiredNotifications()
	if len(s.GetNotifications()) != 0 {
		t.Error("Expired notification should be removed")
	}
}

func TestState_NotificationsCapped(t *testing.T) {
	s := NewState()
	for range maxNotifications + 3 {
		s.AddNotification(NotificationInfo, "x", time.Minute)
	}
	if got := len(s.GetNotifications()); got != maxNotifications {
		t.Errorf("notifications = %d, want %d", got, maxNotifications)
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()

	s.SetLoadingNotification("Loading...")
	s.SetLoadingNotification("Still loading...")

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].Message != "Still loading..." || notifs[0].Type != NotificationLoading {
		t.Errorf("loading notification = %+v", notifs[0])
	}

	s.ClearLoadingNotification()
	if len(s.GetNotifications()) != 0 {
		t.Error("loading notification should be cleared")
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		p    Phase
		want string
	}{
		{PhaseLoading, "loading"},
		{PhaseSelectEntry, "select entry"},
		{PhaseMonitoring, "monitoring"},
		{PhaseStopped, "stopped"},
		{Phase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
