package info

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/quota-autopay/internal/ui/styles"
	"github.com/j-veylop/quota-autopay/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderTimingCard(),
		m.renderAboutCard(),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Render(m.viewport.View())
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Effective configuration and build information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.viewport.Width-2, 50), 90)
}

// renderConfigCard renders endpoints, files and notification channels.
func (m *Model) renderConfigCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Configuration"))
	rows = append(rows, "")

	if m.config == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	c := m.config
	rows = append(rows,
		m.renderConfigRow("Target Offer", c.TargetOfferName),
		m.renderConfigRow("Billing API", c.BaseURL),
		m.renderConfigRow("API Key", m.secret(c.APIKey)),
		m.renderConfigRow("Catalog", c.CatalogURL),
		m.renderConfigRow("Probes", strings.Join(c.ProbeURLs, ", ")),
		"",
		m.renderConfigRow("Session File", c.SessionPath),
		m.renderConfigRow("Database", c.DatabasePath),
		m.renderConfigRow("Log File", orDefault(c.LogPath, "disabled")),
		m.renderConfigRow("Log Level", c.LogLevel),
		"",
		m.renderConfigRow("Desktop Notify", onOff(c.DesktopNotify)),
		m.renderConfigRow("Telegram", m.telegram()),
	)

	rows = append(rows, "")
	rows = append(rows, styles.HelpStyle.Render("Press 's' to show secrets"))

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderTimingCard renders the loop intervals.
func (m *Model) renderTimingCard() string {
	if m.config == nil {
		return ""
	}
	c := m.config

	rows := []string{
		styles.CardTitleStyle.Render("Timing"),
		"",
		m.renderConfigRow("Refresh", c.RefreshInterval.String()),
		m.renderConfigRow("Recovery Poll", c.RecoveryPollInterval.String()),
		m.renderConfigRow("Probe Timeout", c.ProbeTimeout.String()),
		m.renderConfigRow("Trigger Pause", c.PostTriggerPause.String()),
		m.renderConfigRow("Cooldown", c.PurchaseCooldown.String()),
		m.renderConfigRow("Stop Answer", c.CancelSentinel),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderConfigRow renders a configuration key-value row.
func (m *Model) renderConfigRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

// renderAboutCard renders the about/version information card.
func (m *Model) renderAboutCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("About Quota Autopay"))
	rows = append(rows, "")

	rows = append(rows, m.renderConfigRow("Version", version.GetVersion()))
	rows = append(rows, m.renderConfigRow("Build Date", version.GetDate()))
	rows = append(rows, m.renderConfigRow("Git Commit", version.GetCommit()))
	rows = append(rows, m.renderConfigRow("Go Version", runtime.Version()))
	rows = append(rows, m.renderConfigRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)))
	rows = append(rows, "")

	session := styles.ErrorTextStyle.Render("missing")
	if m.state.IsSessionActive() {
		session = styles.SuccessTextStyle.Render("active")
	}
	rows = append(rows, fmt.Sprintf("Session: %s", session))

	if runID := m.state.GetRunID(); runID != "" {
		rows = append(rows, fmt.Sprintf("Run: %s", styles.InfoTextStyle.Render(runID)))
	}
	if updated := m.state.GetLastUpdated(); !updated.IsZero() {
		rows = append(rows, fmt.Sprintf("Last poll: %s", styles.InfoTextStyle.Render(updated.Format(time.TimeOnly))))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) telegram() string {
	if m.config == nil || !m.config.TelegramEnabled() {
		return "off"
	}
	return fmt.Sprintf("on (chat %d, token %s)", m.config.TelegramChatID, m.secret(m.config.TelegramToken))
}

// secret masks all but the last four characters unless revealed.
func (m *Model) secret(s string) string {
	if s == "" {
		return "not set"
	}
	if m.reveal {
		return s
	}
	if len(s) <= 4 {
		return strings.Repeat("•", len(s))
	}
	return strings.Repeat("•", 8) + s[len(s)-4:]
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
