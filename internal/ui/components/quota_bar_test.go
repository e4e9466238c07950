package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/quota-autopay/internal/models"
)

const mib = 1024 * 1024

func TestPercent(t *testing.T) {
	tests := []struct {
		name      string
		remaining int64
		total     int64
		want      float64
	}{
		{"Half", 50, 100, 50},
		{"UnknownTotal", 50, 0, 0},
		{"Overfull", 150, 100, 100},
		{"Negative", -5, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.remaining, tt.total); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuotaBar_View(t *testing.T) {
	bar := NewQuotaBar()
	b := models.MainBenefit{Name: "Kuota Utama", Remaining: 512 * mib, Total: 1024 * mib}

	view := bar.View(b, 100*mib, 80)
	if !strings.Contains(view, "Kuota Utama") {
		t.Error("View() should contain the benefit name")
	}
	if !strings.Contains(view, "0.50 GB / 1.00 GB") {
		t.Errorf("View() should contain formatted quota, got %q", view)
	}
	if !strings.Contains(view, "│") {
		t.Error("View() should contain the threshold marker")
	}
	if w := lipgloss.Width(view); w > 80 {
		t.Errorf("width = %d, want <= 80", w)
	}
}

func TestQuotaBar_ViewWithoutThreshold(t *testing.T) {
	bar := NewQuotaBar()
	view := bar.View(models.MainBenefit{Name: "Kuota", Remaining: 10, Total: 100}, 0, 60)
	if strings.Contains(view, "│") {
		t.Error("no marker expected without a threshold")
	}
}

func TestCountdownBar(t *testing.T) {
	view := CountdownBar(15*time.Second, 20*time.Second, "next poll", 60)
	if !strings.Contains(view, "0m 15s") {
		t.Errorf("CountdownBar missing time: %q", view)
	}
	if !strings.Contains(view, "next poll") {
		t.Error("CountdownBar missing label")
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m 00s"},
		{-time.Second, "0m 00s"},
		{95 * time.Second, "1m 35s"},
		{2*time.Hour + 5*time.Minute, "2h 05m"},
	}
	for _, tt := range tests {
		if got := formatCountdown(tt.in); got != tt.want {
			t.Errorf("formatCountdown(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderGradientBar(t *testing.T) {
	bar := RenderGradientBar(50, 10)
	if strings.Count(bar, "█") != 5 || strings.Count(bar, "░") != 5 {
		t.Errorf("RenderGradientBar(50, 10) = %q", bar)
	}
	if RenderGradientBar(50, 0) != "" {
		t.Error("zero width should render nothing")
	}
	if strings.Count(RenderGradientBar(150, 10), "█") != 10 {
		t.Error("percent above 100 should clamp")
	}
}

func TestSimpleQuotaBar(t *testing.T) {
	view := SimpleQuotaBar(42, "Xtra Combo", 50)
	if !strings.Contains(view, "42%") || !strings.Contains(view, "Xtra Combo") {
		t.Errorf("SimpleQuotaBar = %q", view)
	}
}

func TestLoadingBar(t *testing.T) {
	if LoadingBar(40, 3) == "" {
		t.Error("LoadingBar returned empty")
	}
}

func TestHexToRGB(t *testing.T) {
	if got := hexToRGB("#ff6b6b"); got != [3]int{255, 107, 107} {
		t.Errorf("hexToRGB = %v", got)
	}
	if got := hexToRGB("zz"); got != [3]int{0, 0, 0} {
		t.Errorf("invalid hex = %v", got)
	}
	if got := interpolateColor("#000000", "#ffffff", 1); got != "#ffffff" {
		t.Errorf("interpolateColor = %s", got)
	}
}
