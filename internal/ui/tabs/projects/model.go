// Package projects renders the per-project cost attribution table.
package projects

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/panoptic/internal/app"
	"github.com/j-veylop/panoptic/internal/models"
	"github.com/j-veylop/panoptic/internal/ui/components"
	"github.com/j-veylop/panoptic/internal/ui/styles"
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Top  key.Binding
	End  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev project")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next project")),
		Top:  key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first project")),
		End:  key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last project")),
	}
}

// Model represents the projects tab state.
type Model struct {
	state    *app.State
	keys     keyMap
	width    int
	height   int
	selected int
}

// New creates a new projects model.
func New(state *app.State) *Model {
	return &Model{
		state: state,
		keys:  defaultKeyMap(),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd { return nil }

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		m.clampSelection()
		return m, nil
	}

	count := len(m.projects())
	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.selected < count-1 {
			m.selected++
		}
	case key.Matches(keyMsg, m.keys.Top):
		m.selected = 0
	case key.Matches(keyMsg, m.keys.End):
		m.selected = max(0, count-1)
	}
	return m, nil
}

func (m *Model) projects() []models.ProjectUsage {
	summary := m.state.Summary()
	if summary == nil {
		return nil
	}
	return summary.Projects
}

func (m *Model) clampSelection() {
	if count := len(m.projects()); m.selected >= count {
		m.selected = max(0, count-1)
	}
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// ShortHelp returns key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Up, m.keys.Down}
}

// FullHelp returns key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.keys.Up, m.keys.Down, m.keys.Top, m.keys.End}}
}

// View renders the projects tab.
func (m *Model) View() string {
	projects := m.projects()

	var rows []string
	rows = append(rows, styles.TitleStyle.Render("Projects by spend"))

	if len(projects) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No project usage recorded in the last 30 days"))
		return styles.DocStyle.Width(m.width).Height(m.height).Render(strings.Join(rows, "\n"))
	}

	header := fmt.Sprintf("  %-24s %-10s %-18s %10s %10s %10s",
		"Project", "Provider", "Credential", "Tokens", "Requests", "Cost 30d")
	rows = append(rows, styles.TableHeaderStyle.Render(header))

	visible := max(3, m.height-6)
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}

	for i := start; i < len(projects) && i < start+visible; i++ {
		p := projects[i]
		provider := lipgloss.NewStyle().Foreground(styles.ProviderColor(p.Provider)).Render(fmt.Sprintf("%-10s", p.Provider))
		line := fmt.Sprintf("%-24s %s %-18s %10s %10s %10s",
			truncate(p.Unit.Name, 24),
			provider,
			truncate(p.CredentialName, 18),
			components.FormatTokens(p.TotalTokens),
			components.FormatTokens(p.Requests),
			components.FormatUSD(p.CostUSD))
		if i == m.selected {
			rows = append(rows, styles.SelectedListItemStyle.Render(line))
		} else {
			rows = append(rows, styles.ListItemStyle.Render(line))
		}
	}

	if p := m.selectedProject(projects); p != nil {
		rows = append(rows, "")
		rows = append(rows, m.renderDetail(p))
	}

	return styles.DocStyle.Width(m.width).Height(m.height).Render(strings.Join(rows, "\n"))
}

func (m *Model) selectedProject(projects []models.ProjectUsage) *models.ProjectUsage {
	if m.selected < 0 || m.selected >= len(projects) {
		return nil
	}
	return &projects[m.selected]
}

func (m *Model) renderDetail(p *models.ProjectUsage) string {
	spark := make([]float64, 0, len(p.Daily))
	for i := len(p.Daily) - 1; i >= 0; i-- {
		spark = append(spark, p.Daily[i].CostUSD)
	}

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render(p.Unit.Name))
	rows = append(rows, fmt.Sprintf("  Today %s   7d %s   30d %s",
		components.FormatUSD(p.CostToday),
		components.FormatUSD(p.CostLast7Days),
		components.FormatUSD(p.CostLast30Days)))
	rows = append(rows, fmt.Sprintf("  In %s / Out %s tokens",
		components.FormatTokens(p.InputTokens),
		components.FormatTokens(p.OutputTokens)))
	if len(spark) > 0 {
		rows = append(rows, "  "+components.RenderSparkline(spark, 30))
	}

	return styles.CardStyle.Width(max(m.width-6, 40)).Render(strings.Join(rows, "\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
