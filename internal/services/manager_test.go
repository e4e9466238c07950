package services

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/quota-autopay/internal/config"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
	"github.com/j-veylop/quota-autopay/internal/services/notify"
)

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingNotifier) Notify(title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.Config{
		APIKey:               "test-key",
		BaseURL:              "http://127.0.0.1:0",
		CatalogURL:           "http://127.0.0.1:0/catalog.json",
		TargetOfferName:      "Masa Aktif",
		ProbeURLs:            []string{"http://127.0.0.1:0/a", "http://127.0.0.1:0/b"},
		ProbeTimeout:         time.Second,
		RefreshInterval:      time.Second,
		RecoveryPollInterval: time.Second,
		PurchaseCooldown:     time.Minute,
		CancelSentinel:       "99",
		SessionPath:          filepath.Join(tmpDir, "session.json"),
		DatabasePath:         filepath.Join(tmpDir, "history.db"),
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestNewManager(t *testing.T) {
	mgr := newTestManager(t)

	if mgr.Sessions() == nil {
		t.Error("Session provider should be initialized")
	}
	if mgr.Database() == nil {
		t.Error("Database should be initialized")
	}
	if mgr.Config().TargetOfferName != "Masa Aktif" {
		t.Errorf("Config() = %+v", mgr.Config())
	}
	if mgr.notifier != nil {
		t.Error("no notifier expected when desktop and telegram are disabled")
	}
	if mgr.SessionActive() {
		t.Error("SessionActive() should be false without a session file")
	}
	if mgr.Running() {
		t.Error("Running() should be false before a run")
	}
}

func TestNewManager_InvalidDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.DatabasePath = filepath.Join(blocker, "history.db")

	if _, err := NewManager(cfg); err == nil {
		t.Error("expected error when the database directory is a file")
	}
}

func TestBuildNotifier(t *testing.T) {
	cfg := &config.Config{DesktopNotify: true, TelegramToken: "token", TelegramChatID: 42}

	n := buildNotifier(cfg)
	if n == nil {
		t.Fatal("expected a notifier")
	}
	if multi, ok := n.(notify.Multi); !ok || len(multi) != 2 {
		t.Errorf("unexpected notifier %#v", n)
	}

	if buildNotifier(&config.Config{}) != nil {
		t.Error("expected nil notifier when nothing is enabled")
	}
}

func TestManager_SessionSaveBroadcasts(t *testing.T) {
	mgr := newTestManager(t)
	ch, _ := mgr.Subscribe()

	if err := mgr.Sessions().Save(models.TokenBundle{IDToken: "id", AccessToken: "access"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	timeout := time.After(3 * time.Second)
	for {
		select {
		case event := <-ch:
			if changed, ok := event.(SessionChangedEvent); ok && changed.Active {
				if !mgr.SessionActive() {
					t.Error("SessionActive() should be true after save")
				}
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for SessionChangedEvent")
		}
	}
}

func TestManager_BroadcastAndUnsubscribe(t *testing.T) {
	mgr := newTestManager(t)

	ch1, cmd := mgr.Subscribe()
	ch2, _ := mgr.Subscribe()

	mgr.broadcast(ErrorEvent{Service: "test", Error: errors.New("boom")})

	msg := cmd()
	if ev, ok := msg.(ErrorEvent); !ok || ev.Service != "test" {
		t.Errorf("cmd() = %#v, want ErrorEvent", msg)
	}

	select {
	case <-ch2:
	case <-time.After(time.Second):
		t.Fatal("second subscriber did not receive the event")
	}

	mgr.Unsubscribe(ch1)
	if _, ok := <-ch1; ok {
		t.Error("unsubscribed channel should be closed")
	}

	mgr.broadcast(MonitorEvent{Event: monitor.Event{Type: monitor.EventStatus}})
	msg = WaitForEvent(ch2)()
	if _, ok := msg.(MonitorEvent); !ok {
		t.Errorf("WaitForEvent() = %#v, want MonitorEvent", msg)
	}
}

func TestManager_BroadcastSkipsFullSubscriber(t *testing.T) {
	mgr := newTestManager(t)
	ch, _ := mgr.Subscribe()

	for range cap(ch) + 10 {
		mgr.broadcast(ErrorEvent{Service: "flood"})
	}

	if len(ch) != cap(ch) {
		t.Errorf("len = %d, want %d", len(ch), cap(ch))
	}
}

func TestManager_CheckNotifications(t *testing.T) {
	const mib = 1024 * 1024

	critical := &models.DepletionProjection{Status: models.ProjectionCritical, HoursLeft: 0.5}
	safe := &models.DepletionProjection{Status: models.ProjectionSafe}

	tests := []struct {
		name  string
		snaps []*monitor.Snapshot
		want  int
	}{
		{
			name: "FirstSnapshotIsSilent",
			snaps: []*monitor.Snapshot{
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 10 * mib, Total: 100 * mib}, Projection: critical},
			},
			want: 0,
		},
		{
			name: "CrossIntoCritical",
			snaps: []*monitor.Snapshot{
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 30 * mib, Total: 100 * mib}, Projection: safe},
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 29 * mib, Total: 100 * mib}, Projection: critical},
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 28 * mib, Total: 100 * mib}, Projection: critical},
			},
			want: 1,
		},
		{
			name: "CriticalBelowThresholdIsSilent",
			snaps: []*monitor.Snapshot{
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 30 * mib, Total: 100 * mib}, Projection: safe},
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 1 * mib, Total: 100 * mib}, Projection: critical, Low: true},
			},
			want: 0,
		},
		{
			name: "TopUp",
			snaps: []*monitor.Snapshot{
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 1 * mib, Total: 100 * mib}},
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 90 * mib, Total: 100 * mib}},
			},
			want: 1,
		},
		{
			name: "SmallIncreaseIsSilent",
			snaps: []*monitor.Snapshot{
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 50 * mib, Total: 100 * mib}},
				{Benefit: models.MainBenefit{Name: "Kuota", Remaining: 52 * mib, Total: 100 * mib}},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingNotifier{}
			m := &Manager{notifier: rec}

			for _, snap := range tt.snaps {
				m.checkNotifications(snap)
			}

			if got := rec.count(); got != tt.want {
				t.Errorf("notifications = %d (%v), want %d", got, rec.titles, tt.want)
			}
		})
	}
}

func TestManager_RunMonitorRejectsConcurrentRun(t *testing.T) {
	mgr := newTestManager(t)

	mgr.mu.Lock()
	mgr.running = true
	mgr.mu.Unlock()

	_, err := mgr.RunMonitor(t.Context(), models.MonitorPlan{Mode: models.ModeQuota})
	if !errors.Is(err, ErrRunActive) {
		t.Errorf("RunMonitor() error = %v, want ErrRunActive", err)
	}
}

func TestManager_HistoryQueries(t *testing.T) {
	mgr := newTestManager(t)

	rec := &models.PurchaseRecord{
		Timestamp:  time.Now(),
		RunID:      "run-1",
		Mode:       "quota",
		OfferName:  "Masa Aktif",
		ItemCount:  1,
		TotalPrice: 1500,
		Status:     models.PurchaseSubmitted,
	}
	if err := mgr.Database().InsertPurchase(rec); err != nil {
		t.Fatalf("InsertPurchase failed: %v", err)
	}

	purchases, err := mgr.RecentPurchases(10)
	if err != nil {
		t.Fatalf("RecentPurchases failed: %v", err)
	}
	if len(purchases) != 1 {
		t.Fatalf("len = %d, want 1", len(purchases))
	}

	stats, err := mgr.SpentSince(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SpentSince failed: %v", err)
	}
	if stats.Count != 1 || stats.TotalSpent != 1500 {
		t.Errorf("stats = %+v", stats)
	}

	polls, err := mgr.RecentPolls(10)
	if err != nil {
		t.Fatalf("RecentPolls failed: %v", err)
	}
	if len(polls) != 0 {
		t.Errorf("expected no polls, got %d", len(polls))
	}
}

func TestManager_Close(t *testing.T) {
	mgr, err := NewManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	ch, _ := mgr.Subscribe()

	if err := mgr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed after Close")
	}
}
