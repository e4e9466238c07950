package app

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
)

func TestTickCmd(t *testing.T) {
	if tickCmd(time.Millisecond) == nil {
		t.Error("tickCmd returned nil")
	}
	if defaultTickCmd() == nil {
		t.Error("defaultTickCmd returned nil")
	}
}

func TestNotifyCmds(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) tea.Cmd
		want NotificationType
	}{
		{"Success", notifySuccessCmd, NotificationSuccess},
		{"Error", notifyErrorCmd, NotificationError},
		{"Warning", notifyWarningCmd, NotificationWarning},
		{"Info", notifyInfoCmd, NotificationInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.fn("test")()
			notifMsg, ok := msg.(AddNotificationMsg)
			if !ok {
				t.Fatalf("Expected AddNotificationMsg, got %T", msg)
			}
			if notifMsg.Type != tt.want {
				t.Errorf("Type = %v, want %v", notifMsg.Type, tt.want)
			}
			if notifMsg.Message != "test" {
				t.Errorf("Message = %q, want test", notifMsg.Message)
			}
		})
	}
}

func TestPrepareCmd(t *testing.T) {
	backend := &fakeBackend{entries: testEntries()}
	msg := prepareCmd(context.Background(), backend)()

	loaded, ok := msg.(EntriesLoadedMsg)
	if !ok {
		t.Fatalf("expected EntriesLoadedMsg, got %T", msg)
	}
	if loaded.Error != nil || len(loaded.Entries) != 2 {
		t.Errorf("loaded = %+v", loaded)
	}

	backend = &fakeBackend{err: monitor.ErrNoEntries}
	loaded = prepareCmd(context.Background(), backend)().(EntriesLoadedMsg)
	if !errors.Is(loaded.Error, monitor.ErrNoEntries) {
		t.Errorf("error = %v, want ErrNoEntries", loaded.Error)
	}
}

func TestRunMonitorCmd(t *testing.T) {
	backend := &fakeBackend{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := runMonitorCmd(ctx, backend, models.MonitorPlan{Mode: models.ModeTimer})()
	stopped, ok := msg.(RunStoppedMsg)
	if !ok {
		t.Fatalf("expected RunStoppedMsg, got %T", msg)
	}
	if stopped.Reason != monitor.StopCancelled || stopped.Error != nil {
		t.Errorf("stopped = %+v", stopped)
	}
}

func TestSubscribeAndWait(t *testing.T) {
	backend := &fakeBackend{}
	msg := subscribeToServicesCmd(backend)()

	sub, ok := msg.(SubscriptionEventMsg)
	if !ok {
		t.Fatalf("expected SubscriptionEventMsg, got %T", msg)
	}

	sub.Channel <- services.SessionChangedEvent{Active: true}
	got := waitForServiceEventCmd(sub.Channel)()
	event, ok := got.(ServiceEventMsg)
	if !ok {
		t.Fatalf("expected ServiceEventMsg, got %T", got)
	}
	if e, ok := event.Event.(services.SessionChangedEvent); !ok || !e.Active {
		t.Errorf("event = %+v", event.Event)
	}

	close(sub.Channel)
	if msg := waitForServiceEventCmd(sub.Channel)(); msg != nil {
		t.Errorf("closed channel should yield nil, got %T", msg)
	}
}

func TestAnswer(t *testing.T) {
	msg := Answer(" 2 ")()
	if a, ok := msg.(AnswerMsg); !ok || a.Text != " 2 " {
		t.Errorf("Answer() = %+v", msg)
	}
}
