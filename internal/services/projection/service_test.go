package projection

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/quota-autopay/internal/db"
	"github.com/j-veylop/quota-autopay/internal/models"
)

const mib = 1 << 20

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func polls(remaining ...int64) []models.PollRecord {
	out := make([]models.PollRecord, len(remaining))
	for i, r := range remaining {
		out[i] = models.PollRecord{Timestamp: base.Add(time.Duration(i) * time.Minute), Remaining: r}
	}
	return out
}

func TestEstimate_NoData(t *testing.T) {
	proj := Estimate(nil, 50*mib, base)

	if proj.Status != models.ProjectionUnknown {
		t.Errorf("Expected UNKNOWN, got %s", proj.Status)
	}
	if proj.Confidence != "low" {
		t.Errorf("Expected low confidence, got %s", proj.Confidence)
	}
	if !math.IsInf(proj.HoursLeft, 1) {
		t.Errorf("Expected infinite hours left, got %f", proj.HoursLeft)
	}
}

func TestEstimate_AlreadyBelow(t *testing.T) {
	proj := Estimate(polls(40*mib), 50*mib, base)

	if proj.Status != models.ProjectionCritical || proj.HoursLeft != 0 {
		t.Errorf("Expected CRITICAL with 0 hours, got %s %f", proj.Status, proj.HoursLeft)
	}
}

func TestEstimate_SteadyConsumption(t *testing.T) {
	// 1 MiB per minute, 90 MiB above threshold.
	p := polls(113*mib, 112*mib, 111*mib, 110*mib)
	now := base.Add(3 * time.Minute)

	proj := Estimate(p, 20*mib, now)

	wantRate := 60.0 * mib
	if math.Abs(proj.RatePerHour-wantRate) > 1 {
		t.Errorf("Expected rate %f, got %f", wantRate, proj.RatePerHour)
	}
	if math.Abs(proj.HoursLeft-1.5) > 1e-6 {
		t.Errorf("Expected 1.5 hours left, got %f", proj.HoursLeft)
	}
	if proj.Status != models.ProjectionWarning {
		t.Errorf("Expected WARNING, got %s", proj.Status)
	}
	if d := proj.CrossAt.Sub(now.Add(90 * time.Minute)); d < -time.Second || d > time.Second {
		t.Errorf("Unexpected cross time %v", proj.CrossAt)
	}
}

func TestEstimate_IgnoresTopUps(t *testing.T) {
	p := polls(60*mib, 59*mib, 1024*mib, 1023*mib)

	proj := Estimate(p, 50*mib, base)

	if math.Abs(proj.RatePerHour-60.0*mib) > 1 {
		t.Errorf("Unexpected rate %f", proj.RatePerHour)
	}
	if proj.Status != models.ProjectionSafe {
		t.Errorf("Expected SAFE after top-up, got %s", proj.Status)
	}
}

func TestEstimate_NoConsumption(t *testing.T) {
	proj := Estimate(polls(100*mib, 100*mib, 100*mib), 50*mib, base)

	if proj.Status != models.ProjectionSafe {
		t.Errorf("Expected SAFE, got %s", proj.Status)
	}
	if !math.IsInf(proj.HoursLeft, 1) {
		t.Errorf("Expected infinite hours left, got %f", proj.HoursLeft)
	}
}

func TestEstimate_LongGapSkipped(t *testing.T) {
	p := []models.PollRecord{
		{Timestamp: base, Remaining: 100 * mib},
		{Timestamp: base.Add(time.Hour), Remaining: 60 * mib},
	}

	proj := Estimate(p, 50*mib, base)

	if proj.Status != models.ProjectionUnknown {
		t.Errorf("Expected UNKNOWN when no continuous pairs, got %s", proj.Status)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "low"}, {5, "low"}, {6, "medium"}, {23, "medium"}, {24, "high"},
	}
	for _, tt := range tests {
		if got := confidence(tt.n); got != tt.want {
			t.Errorf("confidence(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

type failingSource struct{}

func (failingSource) RecentPolls(string, int) ([]models.PollRecord, error) {
	return nil, errors.New("db closed")
}

func TestCalculate_SourceError(t *testing.T) {
	svc := New(failingSource{})

	if _, err := svc.Calculate("run", 50*mib, base); err == nil {
		t.Error("Expected error from failing source")
	}
	if svc.Cached("run") != nil {
		t.Error("Expected no cached projection after failure")
	}
}

func TestCalculate_FromDatabase(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer database.Close()

	for _, p := range polls(113*mib, 112*mib, 111*mib, 110*mib) {
		p.RunID = "run-1"
		if err := database.InsertPoll(&p); err != nil {
			t.Fatalf("InsertPoll failed: %v", err)
		}
	}

	svc := New(database)
	proj, err := svc.Calculate("run-1", 20*mib, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if proj.DataPoints != 4 || proj.Status != models.ProjectionWarning {
		t.Errorf("Unexpected projection %+v", proj)
	}
	if svc.Cached("run-1") != proj {
		t.Error("Expected projection to be cached")
	}
}
