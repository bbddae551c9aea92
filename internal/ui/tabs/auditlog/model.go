// Package auditlog shows the recent audit trail from the local database.
package auditlog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/panoptic/internal/app"
	"github.com/j-veylop/panoptic/internal/services"
	"github.com/j-veylop/panoptic/internal/ui/styles"
)

const eventLimit = 200

type keyMap struct {
	Reload key.Binding
}

// Model represents the audit tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	viewport viewport.Model
	keys     keyMap
	width    int
	height   int
}

// New creates a new audit log model.
func New(state *app.State, mgr *services.Manager) *Model {
	return &Model{
		state:    state,
		services: mgr,
		viewport: viewport.New(0, 0),
		keys: keyMap{
			Reload: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "reload audit trail")),
		},
	}
}

// Init loads the initial audit trail.
func (m *Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m *Model) loadCmd() tea.Cmd {
	mgr := m.services
	return func() tea.Msg {
		events, err := mgr.Audit().Recent(eventLimit)
		return app.AuditLoadedMsg{Events: events, Error: err}
	}
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Reload) {
			return m, m.loadCmd()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case app.UsageLoadedMsg, app.DiagnosisCompleteMsg:
		// New engine activity means new audit rows.
		return m, m.loadCmd()
	}
	return m, nil
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(0, height-3)
}

// ShortHelp returns key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Reload}
}

// FullHelp returns key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.keys.Reload}}
}

// View renders the audit tab.
func (m *Model) View() string {
	events := m.state.AuditEvents()

	var rows []string
	rows = append(rows, styles.TitleStyle.Render("Audit trail"))

	if len(events) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No audit events recorded yet"))
		return styles.DocStyle.Width(m.width).Height(m.height).Render(strings.Join(rows, "\n"))
	}

	var lines []string
	for _, event := range events {
		detail := ""
		if len(event.Details) > 0 {
			var pairs []string
			for k, v := range event.Details {
				pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
			}
			detail = " " + styles.HelpStyle.Render(strings.Join(pairs, " "))
		}
		lines = append(lines, fmt.Sprintf("%s  %-22s %s%s",
			styles.HelpStyle.Render(event.CreatedAt.Format("2006-01-02 15:04:05")),
			event.Kind,
			event.ResourceID,
			detail))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	rows = append(rows, m.viewport.View())

	return styles.DocStyle.Width(m.width).Height(m.height).Render(strings.Join(rows, "\n"))
}
