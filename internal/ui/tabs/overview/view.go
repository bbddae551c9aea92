package overview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/panoptic/internal/models"
	"github.com/j-veylop/panoptic/internal/ui/components"
	"github.com/j-veylop/panoptic/internal/ui/styles"
)

// View renders the overview tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return styles.DocStyle.Render(fmt.Sprintf("%s Aggregating usage across providers...", m.spinner.View()))
	}

	summary := m.state.Summary()
	if summary == nil {
		return styles.DocStyle.Render(styles.HelpStyle.Render("No usage data yet. Press r to refresh."))
	}

	var sections []string
	sections = append(sections, m.renderTitle())
	sections = append(sections, m.renderTotals(summary))
	sections = append(sections, m.renderChart(summary))
	sections = append(sections, m.renderProviderCards(summary))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Panoptic")
	subtitle := styles.HelpStyle.Render("Cross-provider LLM usage and spend")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderTotals(summary *models.CombinedUsageSummary) string {
	cardWidth := max(m.width-6, 40)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Spend"))
	rows = append(rows, fmt.Sprintf("  Today        %s", styles.MoneyStyle.Render(components.FormatUSD(summary.CostToday))))
	rows = append(rows, fmt.Sprintf("  Last 7 days  %s", styles.MoneyStyle.Render(components.FormatUSD(summary.CostLast7Days))))
	rows = append(rows, fmt.Sprintf("  Last 30 days %s", styles.MoneyStyle.Render(components.FormatUSD(summary.CostLast30Days))))

	if summary.Today != nil {
		rows = append(rows, "")
		rows = append(rows, fmt.Sprintf("  %s tokens / %s requests on %s",
			components.FormatTokens(summary.Today.TotalTokens),
			components.FormatTokens(summary.Today.Requests),
			summary.Today.Date))
	}

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderChart(summary *models.CombinedUsageSummary) string {
	cardWidth := max(m.width-6, 40)

	// Chart wants oldest-first; the series is newest-first.
	data := make([]float64, 0, len(summary.Last30Days))
	for i := len(summary.Last30Days) - 1; i >= 0; i-- {
		data = append(data, summary.Last30Days[i].CostUSD)
	}

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Daily cost, last 30 days"))
	rows = append(rows, components.RenderLineChart(data, cardWidth-12, 8, "USD per day"))

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderProviderCards(summary *models.CombinedUsageSummary) string {
	cardWidth := max(m.width-6, 40)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Providers"))

	if len(summary.Providers) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No providers with credentials"))
	}

	var legend []components.LegendItem
	for _, tag := range models.KnownProviders() {
		provider, ok := summary.Providers[tag]
		if !ok {
			continue
		}
		legend = append(legend, components.LegendItem{
			Label: models.ProviderDisplayName(tag),
			Color: styles.ProviderColor(tag),
		})

		spark := make([]float64, 0, len(provider.Last30Days))
		for i := len(provider.Last30Days) - 1; i >= 0; i-- {
			spark = append(spark, provider.Last30Days[i].CostUSD)
		}

		name := lipgloss.NewStyle().
			Foreground(styles.ProviderColor(tag)).
			Bold(true).
			Render(fmt.Sprintf("%-10s", models.ProviderDisplayName(tag)))

		rows = append(rows, fmt.Sprintf("  %s %s  %s today, %s this month  %d projects",
			name,
			components.RenderSparkline(spark, 20),
			components.FormatUSD(provider.CostToday),
			components.FormatUSD(provider.CostLast30Days),
			len(provider.Projects)))
	}

	if len(legend) > 0 {
		rows = append(rows, "")
		rows = append(rows, "  "+components.RenderLegend(legend))
	}

	return styles.CardStyle.Width(cardWidth).Render(strings.Join(rows, "\n"))
}
