// Package components provides reusable UI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/quota"
	"github.com/j-veylop/quota-autopay/internal/ui/styles"
)

// QuotaBar renders the main benefit of the watched entry against the
// purchase threshold.
type QuotaBar struct {
	progress progress.Model
}

// NewQuotaBar creates a new quota bar with gradient colors.
func NewQuotaBar() QuotaBar {
	p := progress.New(
		progress.WithScaledGradient("#ff6b6b", "#51cf66"),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)
	return QuotaBar{progress: p}
}

// Percent returns remaining as a share of total, 0 when total is unknown.
func Percent(remaining, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(remaining) / float64(total) * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// View renders the bar with the benefit label, the formatted quota and a
// threshold marker when threshold > 0.
func (q QuotaBar) View(b models.MainBenefit, threshold int64, width int) string {
	percent := Percent(b.Remaining, b.Total)
	below := threshold > 0 && b.Remaining < threshold

	labelWidth := 16
	valueWidth := 22
	barWidth := max(width-labelWidth-valueWidth-4, 10)
	q.progress.Width = barWidth

	bar := q.progress.ViewAs(percent / 100)
	if threshold > 0 && b.Total > 0 {
		bar = placeMarker(bar, barWidth, Percent(threshold, b.Total))
	}

	label := b.Name
	if len(label) > labelWidth-1 {
		label = label[:labelWidth-2] + "…"
	}
	labelStr := styles.ProgressLabelStyle.Width(labelWidth).Render(label)

	valueStr := styles.GetQuotaStyle(percent, below).
		Width(valueWidth).
		Align(lipgloss.Right).
		Render(quota.FormatQuota(b.Remaining, b.Total))

	return lipgloss.JoinHorizontal(lipgloss.Center, labelStr, bar, " ", valueStr)
}

// placeMarker overwrites the cell at the threshold position with a marker.
func placeMarker(bar string, width int, percent float64) string {
	pos := int(float64(width) * percent / 100)
	if pos >= width {
		pos = width - 1
	}
	if pos < 0 {
		pos = 0
	}
	marker := lipgloss.NewStyle().Foreground(styles.Threshold).Bold(true).Render("│")
	return truncateCells(bar, pos) + marker + skipCells(bar, pos+1)
}

// CountdownBar renders the time left in a wait as a bar that fills up as
// the wait runs out.
func CountdownBar(remaining, total time.Duration, label string, width int) string {
	percent := 1.0
	if total > 0 {
		percent = 1.0 - remaining.Seconds()/total.Seconds()
		percent = min(max(percent, 0), 1)
	}

	timeStr := formatCountdown(remaining)
	timeWidth := 8
	barWidth := max(width-len(label)-timeWidth-5, 10)

	bar := RenderTimeBarChars(percent, barWidth)
	timeStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Width(timeWidth).
		Align(lipgloss.Right)

	return fmt.Sprintf("%s [%s] %s", styles.HelpStyle.Render(label), bar, timeStyle.Render(timeStr))
}

func formatCountdown(d time.Duration) string {
	secs := int64(d.Round(time.Second).Seconds())
	if secs < 0 {
		secs = 0
	}
	if secs >= 3600 {
		return fmt.Sprintf("%dh %02dm", secs/3600, (secs%3600)/60)
	}
	return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
}

// RenderTimeBarChars renders just the bar characters for a time bar.
func RenderTimeBarChars(percent float64, width int) string {
	return renderBar(percent, width, "#ffd93d", "#6c5ce7")
}

// RenderGradientBar renders just the bar part with gradient colors.
func RenderGradientBar(percent float64, width int) string {
	return renderBar(percent/100, width, "#ff6b6b", "#51cf66")
}

func renderBar(fraction float64, width int, fromHex, toHex string) string {
	if width < 1 {
		return ""
	}

	filled := int(float64(width) * fraction)
	filled = min(max(filled, 0), width)

	var b strings.Builder
	for i := range width {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(fromHex, toHex, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}
	return b.String()
}

// SimpleQuotaBar renders a compact entry row: label, gradient bar, percent.
func SimpleQuotaBar(percent float64, label string, width int) string {
	labelWidth := len(label) + 1
	percentWidth := 6
	barWidth := max(width-labelWidth-percentWidth-4, 5)

	bar := RenderGradientBar(percent, barWidth)

	labelStr := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Render(label)

	percentStr := styles.GetQuotaStyle(percent, false).
		Width(percentWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	return fmt.Sprintf("%s [%s] %s", labelStr, bar, percentStr)
}

// LoadingBar renders a shimmering placeholder bar while the first snapshot
// is fetched.
func LoadingBar(width, frame int) string {
	barWidth := max(width-12, 10)
	cycle := 120

	t := float64(frame%cycle) / float64(cycle)
	p := t * 2
	if t >= 0.5 {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmerPos := int(eased * float64(barWidth))

	var b strings.Builder
	for i := range barWidth {
		dist := shimmerPos - i
		if dist < 0 {
			dist = -dist
		}

		switch {
		case dist < 3:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Accent).Render("▓"))
		case dist < 5:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒"))
		default:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.BgLight).Render("░"))
		}
	}

	dots := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	dot := lipgloss.NewStyle().Foreground(styles.Accent).Render(dots[(frame/2)%len(dots)])

	return "    " + b.String() + " " + dot
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
