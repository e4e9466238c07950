package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/quota-autopay/internal/app"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/quota"
	"github.com/j-veylop/quota-autopay/internal/ui/components"
	"github.com/j-veylop/quota-autopay/internal/ui/styles"
)

const maxShownTriggers = 5

// View renders the monitor tab.
func (m *Model) View() string {
	now := time.Now()
	m.syncActivity(now)

	var body string
	switch m.state.GetPhase() {
	case app.PhaseLoading:
		body = components.RenderActivityCentered(m.activity, now, m.viewport.Width, max(m.viewport.Height-4, 3))
	case app.PhaseSelectEntry, app.PhaseSelectMode, app.PhaseEnterValue:
		body = m.renderSetup()
	case app.PhaseMonitoring:
		body = m.renderMonitoring()
	default:
		body = m.renderStopped()
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.renderTitle(), body)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.renderPrompt()))
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Quota Autopay")
	subtitle := styles.HelpStyle.Render("Buys the configured offer before the watched quota runs dry")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderPrompt() string {
	label := styles.HelpKeyStyle.Render(m.promptLabel())
	return lipgloss.JoinVertical(lipgloss.Left, "", label, m.input.View())
}

func (m *Model) cardWidth() int {
	return max(m.viewport.Width-2, 40)
}

// renderSetup renders the entry list and the wizard question.
func (m *Model) renderSetup() string {
	entries := m.state.GetEntries()
	width := m.cardWidth()

	var rows []string
	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	rows = append(rows, fmt.Sprintf("%s %s", titleIcon, styles.CardTitleStyle.Render("Active Quota")))
	rows = append(rows, "")

	choice := m.state.GetWizard().Choice
	for i, e := range entries {
		rows = append(rows, m.renderEntryRow(e, i+1, fmt.Sprint(i+1) == strings.TrimSpace(choice), width-4))
	}

	rows = append(rows, "")
	rows = append(rows, styles.InfoTextStyle.Render(fmt.Sprintf("  %s  abort setup", app.AbortAnswer)))

	sections := []string{styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))}

	switch m.state.GetPhase() {
	case app.PhaseSelectMode:
		sections = append(sections, m.renderModeMenu())
	case app.PhaseEnterValue:
		sections = append(sections, m.renderModeMenu(), m.renderValueHint())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderEntryRow(e models.QuotaEntry, ordinal int, selected bool, width int) string {
	prefix := "  "
	if selected {
		prefix = styles.FocusedStyle.Render("▸ ")
	}

	main := quota.SelectMain(e)
	percent := components.Percent(main.Remaining, main.Total)

	name := lipgloss.NewStyle().Bold(true).Render(e.Label(ordinal))
	line := fmt.Sprintf("%s%2d. %s", prefix, ordinal, name)

	if main.Total <= 0 && main.Remaining <= 0 {
		return lipgloss.JoinVertical(lipgloss.Left, line,
			styles.HelpStyle.Render("      no data allowance"))
	}

	value := styles.GetQuotaStyle(percent, false).Render(quota.FormatQuota(main.Remaining, main.Total))
	bar := components.SimpleQuotaBar(percent, "", max(width-50, 10))
	detail := fmt.Sprintf("      %s  %s", bar, value)
	if main.Name != "" {
		detail += styles.HelpStyle.Render("  " + main.Name)
	}

	return lipgloss.JoinVertical(lipgloss.Left, line, detail)
}

func (m *Model) renderModeMenu() string {
	selected := ""
	if mode, err := models.ParseMode(m.state.GetWizard().Mode); err == nil {
		selected = mode.String()
	}

	item := func(n int, mode models.Mode, desc string) string {
		prefix := "  "
		if mode.String() == selected {
			prefix = styles.FocusedStyle.Render("▸ ")
		}
		return fmt.Sprintf("%s%d. %s %s", prefix, n,
			lipgloss.NewStyle().Bold(true).Render(mode.String()),
			styles.HelpStyle.Render(desc))
	}

	rows := []string{
		styles.CardTitleStyle.Render("Mode"),
		item(1, models.ModeQuota, "buy when the main allowance drops below a threshold"),
		item(2, models.ModeTimer, "buy on a fixed period"),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderValueHint() string {
	hint := "Enter the threshold in MB, e.g. 50 or 0.5"
	if mode, err := models.ParseMode(m.state.GetWizard().Mode); err == nil && mode == models.ModeTimer {
		hint = "Enter the period in whole seconds, e.g. 3600"
	}
	return styles.InfoTextStyle.Render("  " + hint)
}

// renderMonitoring renders the live card of an active run.
func (m *Model) renderMonitoring() string {
	plan := m.state.GetPlan()
	snap := m.state.GetSnapshot()
	width := m.cardWidth()
	contentWidth := max(width-4, 20)

	var rows []string
	rows = append(rows, m.renderPlanHeader(plan))
	rows = append(rows, "")

	if snap == nil {
		rows = append(rows, components.LoadingBar(contentWidth, m.frame))
		rows = append(rows, styles.HelpStyle.Render("  waiting for the first poll"))
	} else {
		rows = append(rows, m.quotaBar.View(snap.Benefit, snap.Threshold, contentWidth))
		ordinal := 0
		if plan != nil {
			ordinal = plan.Target.Ordinal
		}
		rows = append(rows, m.renderSnapshotDetails(snap.Entry.Label(ordinal), snap.Match, snap.Balance, snap.At))
	}

	rows = append(rows, "")
	if m.state.GetStatus() != "" {
		rows = append(rows, "  status  "+m.activity.View(time.Now()))
	}

	if remaining, total := m.state.GetCountdown(); remaining > 0 {
		rows = append(rows, "  "+components.CountdownBar(remaining, total, "next check", contentWidth-2))
	}

	if snap != nil && snap.CooldownUntil.After(time.Now()) {
		rows = append(rows, styles.WarningTextStyle.Render(
			fmt.Sprintf("  purchase cooldown until %s", snap.CooldownUntil.Format("15:04:05"))))
	}

	if snap != nil && snap.Projection != nil && plan != nil && plan.Mode == models.ModeQuota {
		rows = append(rows, "", m.renderProjection(snap.Projection))
	}

	if triggers := m.renderTriggers(contentWidth); triggers != "" {
		rows = append(rows, "", triggers)
	}

	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderPlanHeader(plan *models.MonitorPlan) string {
	icon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	if plan == nil {
		return fmt.Sprintf("%s %s", icon, styles.CardTitleStyle.Render("Monitoring"))
	}

	name := models.QuotaEntry{Name: plan.Target.Name}.Label(plan.Target.Ordinal)
	var detail string
	switch plan.Mode {
	case models.ModeTimer:
		detail = fmt.Sprintf("timer mode, every %s", plan.TimerDuration)
	default:
		detail = fmt.Sprintf("quota mode, threshold %s MB", humanize.FtoaWithDigits(plan.ThresholdMB, 2))
	}

	header := fmt.Sprintf("%s %s %s", icon, styles.CardTitleStyle.Render(name), styles.HelpStyle.Render(detail))
	if runID := m.state.GetRunID(); runID != "" {
		header += styles.HelpStyle.Render("  run " + shortID(runID))
	}
	return header
}

func (m *Model) renderSnapshotDetails(entry string, match models.MatchKind, balance int64, at time.Time) string {
	parts := []string{entry}
	if match != models.MatchByName {
		parts = append(parts, "matched by "+match.String())
	}
	if balance >= 0 {
		parts = append(parts, "balance "+humanize.Comma(balance))
	}
	if !at.IsZero() {
		parts = append(parts, "polled "+humanize.Time(at))
	}
	return styles.HelpStyle.Render("  " + strings.Join(parts, " · "))
}

func (m *Model) renderProjection(p *models.DepletionProjection) string {
	style := styles.GetProjectionStyle(string(p.Status))
	line := fmt.Sprintf("  projection  %s", style.Render(string(p.Status)))

	switch {
	case p.Status == models.ProjectionUnknown:
		line += styles.HelpStyle.Render(fmt.Sprintf("  %d data points", p.DataPoints))
	case p.HoursLeft <= 0:
		line += styles.HelpStyle.Render("  below threshold")
	default:
		rate, unit := quota.FormatBytes(int64(p.RatePerHour))
		line += styles.HelpStyle.Render(fmt.Sprintf("  crosses %s at %.2f %s/h (%s confidence)",
			humanize.Time(p.CrossAt), rate, unit, p.Confidence))
	}
	return line
}

// renderTriggers lists the most recent purchase triggers, newest first.
func (m *Model) renderTriggers(width int) string {
	triggers := m.state.GetTriggers()
	if len(triggers) == 0 {
		return ""
	}

	rows := []string{styles.CardTitleStyle.Render("Purchases")}
	shown := 0
	for i := len(triggers) - 1; i >= 0 && shown < maxShownTriggers; i-- {
		t := triggers[i]
		shown++

		offer := t.Offer
		if offer == "" {
			offer = "offer not resolved"
		}

		result := styles.SuccessTextStyle.Render("submitted")
		if t.Err != nil {
			result = styles.ErrorTextStyle.Render("failed: " + t.Err.Error())
		}

		rows = append(rows, fmt.Sprintf("  %s  %s  %s  %s",
			styles.HelpStyle.Render(t.Time.Format("15:04:05")),
			offer,
			humanize.Comma(t.Total),
			result))

		for _, line := range t.Preview {
			if len(line) > width-6 && width > 10 {
				line = line[:width-7] + "…"
			}
			rows = append(rows, styles.HelpStyle.Render("      "+line))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderStopped renders why the last run or setup ended.
func (m *Model) renderStopped() string {
	reason, lastErr := m.state.GetStop()
	if reason == "" {
		reason = "stopped"
	}

	rows := []string{
		fmt.Sprintf("%s %s", lipgloss.NewStyle().Foreground(styles.Subtle).Render("○"),
			styles.CardTitleStyle.Render("Monitor "+reason)),
	}
	if lastErr != "" {
		rows = append(rows, "", styles.ErrorTextStyle.Render("  "+lastErr))
	}
	if !m.state.IsSessionActive() {
		rows = append(rows, "", styles.WarningTextStyle.Render("  No session: log in and save the session file"))
	}

	if triggers := m.renderTriggers(m.cardWidth() - 4); triggers != "" {
		rows = append(rows, "", triggers)
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
