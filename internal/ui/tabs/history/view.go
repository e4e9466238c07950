package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/ui/components"
	"github.com/j-veylop/quota-autopay/internal/ui/styles"
)

const mib = 1024 * 1024

// View renders the history tab.
func (m *Model) View() string {
	if !m.loaded && m.errorMsg == "" {
		return m.renderLoading()
	}
	if m.errorMsg != "" {
		return m.renderError()
	}
	if len(m.polls) == 0 && len(m.purchases) == 0 {
		return m.renderEmpty()
	}

	sections := []string{
		m.renderHeader(),
		m.renderRemainingChart(),
		m.renderPurchases(),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Render(m.viewport.View())
}

func (m *Model) renderLoading() string {
	return styles.DocStyle.
		Width(m.width).
		Render(styles.HelpStyle.Render("Loading history data..."))
}

func (m *Model) renderError() string {
	content := fmt.Sprintf("%s %s",
		styles.ErrorTextStyle.Render("Error:"),
		m.errorMsg,
	)
	return styles.DocStyle.
		Width(m.width).
		Render(content)
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render("No polls or purchases recorded yet."),
		styles.HelpStyle.Render("Data will appear once a monitoring run starts."),
	)
	return styles.DocStyle.
		Width(m.width).
		Render(content)
}

func (m *Model) cardWidth() int {
	return max(m.viewport.Width-2, 40)
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.Render("History")

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	spent := "no purchases"
	if m.stats != nil && m.stats.Count > 0 {
		spent = fmt.Sprintf("%s spent on %d purchases", humanize.Comma(m.stats.TotalSpent), m.stats.Count)
	}
	rangeIndicator := rangeStyle.Render(fmt.Sprintf("[t] %s: %s", m.spendRange, spent))

	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", rangeIndicator)

	var parts []string
	if n := len(m.polls); n > 0 {
		last := m.polls[n-1]
		parts = append(parts, fmt.Sprintf("run %s", shortID(last.RunID)))
		parts = append(parts, fmt.Sprintf("%d polls of %s", n, last.EntryName))
	}
	if !m.lastRefresh.IsZero() {
		parts = append(parts, "refreshed "+humanize.Time(m.lastRefresh))
	}
	subtitle := styles.HelpStyle.Render(strings.Join(parts, " · "))

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

// renderRemainingChart plots the main allowance of the current run against
// its threshold.
func (m *Model) renderRemainingChart() string {
	cardWidth := m.cardWidth()

	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	rows := []string{fmt.Sprintf("%s %s", titleIcon, styles.CardTitleStyle.Render("Remaining Quota")), ""}

	if len(m.polls) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No polls in the current run"))
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	remaining := make([]float64, len(m.polls))
	for i, p := range m.polls {
		remaining[i] = float64(p.Remaining) / mib
	}
	thresholdMB := float64(m.polls[len(m.polls)-1].Threshold) / mib

	chartWidth := max(cardWidth-14, 30)
	chart := components.RenderThresholdChart(remaining, thresholdMB, chartWidth, 8,
		fmt.Sprintf("Last %d polls, MB", len(remaining)))
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}

	rows = append(rows, "")
	items := []components.LegendItem{{Label: "Remaining", Color: components.ChartRemainingColor}}
	if thresholdMB > 0 {
		items = append(items, components.LegendItem{Label: "Threshold", Color: components.ChartThresholdColor})
	}
	rows = append(rows, "  "+components.RenderLegend(items))
	rows = append(rows, "  "+styles.HelpStyle.Render("trend ")+components.RenderSparkline(remaining, min(len(remaining), 40)))

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderPurchases renders the outcome breakdown and the purchase table.
func (m *Model) renderPurchases() string {
	cardWidth := m.cardWidth()

	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	rows := []string{fmt.Sprintf("%s %s", titleIcon, styles.CardTitleStyle.Render("Purchases")), ""}

	if len(m.purchases) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No purchases triggered yet"))
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	values, labels := outcomeCounts(m.purchases)
	for line := range strings.SplitSeq(components.RenderBarChart(values, labels, min(cardWidth-6, 60)), "\n") {
		rows = append(rows, "  "+line)
	}
	rows = append(rows, "", m.table.View())

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// outcomeCounts tallies purchases per status in a fixed order.
func outcomeCounts(purchases []models.PurchaseRecord) ([]float64, []string) {
	order := []models.PurchaseStatus{
		models.PurchaseSubmitted,
		models.PurchaseResolveFailed,
		models.PurchaseSettleFailed,
	}
	counts := make(map[models.PurchaseStatus]float64, len(order))
	for _, p := range purchases {
		counts[p.Status]++
	}

	values := make([]float64, len(order))
	labels := make([]string, len(order))
	for i, s := range order {
		values[i] = counts[s]
		labels[i] = strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
	}
	return values, labels
}

func purchaseColumns(width int) []table.Column {
	flex := max(width-60, 20)
	offer := max(flex/2, 12)
	errWidth := max(flex-offer, 10)

	return []table.Column{
		{Title: "Time", Width: 14},
		{Title: "Mode", Width: 6},
		{Title: "Offer", Width: offer},
		{Title: "Total", Width: 10},
		{Title: "Status", Width: 14},
		{Title: "Error", Width: errWidth},
	}
}

// tableWidth is the rendered width of the columns including cell padding.
func tableWidth(cols []table.Column) int {
	w := 0
	for _, c := range cols {
		w += c.Width + 2
	}
	return w
}

func purchaseRows(purchases []models.PurchaseRecord) []table.Row {
	rows := make([]table.Row, 0, len(purchases))
	for _, p := range purchases {
		offer := p.OfferName
		if offer == "" {
			offer = "-"
		}
		rows = append(rows, table.Row{
			p.Timestamp.Local().Format("01-02 15:04:05"),
			p.Mode,
			offer,
			humanize.Comma(p.TotalPrice),
			string(p.Status),
			p.Error,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
