package keys

import (
	"fmt"
	"strings"

	"github.com/j-veylop/panoptic/internal/models"
	"github.com/j-veylop/panoptic/internal/ui/styles"
)

// View renders the keys tab.
func (m *Model) View() string {
	if m.mode == modeAdd {
		return m.renderForm()
	}
	return m.renderList()
}

func (m *Model) renderList() string {
	entries := m.entries()
	diagnoses := m.diagnosesByName()

	var rows []string
	rows = append(rows, styles.TitleStyle.Render("Stored keys"))

	if len(entries) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No keys stored. Press a to add one."))
		return styles.DocStyle.Width(m.width).Height(m.height).Render(strings.Join(rows, "\n"))
	}

	for i, entry := range entries {
		cred := models.Credential{Name: entry.Name, Value: entry.Value}
		line := fmt.Sprintf("%-24s %-12s %-10s %s",
			entry.Name,
			redactedOrEmpty(cred),
			entry.Provider,
			m.renderDiagnosis(diagnoses[entry.Name]))
		if i == m.selected {
			rows = append(rows, styles.SelectedListItemStyle.Render(line))
		} else {
			rows = append(rows, styles.ListItemStyle.Render(line))
		}
	}

	rows = append(rows, "")
	rows = append(rows, styles.HelpStyle.Render("a add  x delete  D diagnose all"))

	return styles.DocStyle.Width(m.width).Height(m.height).Render(strings.Join(rows, "\n"))
}

func redactedOrEmpty(cred models.Credential) string {
	if cred.Value == "" {
		return "-"
	}
	return cred.Redacted()
}

func (m *Model) diagnosesByName() map[string]*models.KeyDiagnosis {
	out := make(map[string]*models.KeyDiagnosis)
	diags := m.state.Diagnoses()
	for i := range diags {
		out[diags[i].CredentialName] = &diags[i]
	}
	return out
}

func (m *Model) renderDiagnosis(diag *models.KeyDiagnosis) string {
	if diag == nil {
		if m.state.IsDiagnosing() {
			return styles.HelpStyle.Render("checking...")
		}
		return styles.HelpStyle.Render("not checked")
	}
	if !diag.Valid {
		msg := "invalid"
		if diag.Error != "" {
			msg = truncateError(diag.Error)
		}
		return styles.InvalidStyle.Render("✗ " + msg)
	}

	parts := []string{string(diag.Kind)}
	if diag.Organization != "" {
		parts = append(parts, diag.Organization)
	}
	if len(diag.Units) > 0 {
		parts = append(parts, fmt.Sprintf("%d units", len(diag.Units)))
	}
	return styles.ValidStyle.Render("✓ " + strings.Join(parts, ", "))
}

func truncateError(s string) string {
	if len(s) > 48 {
		return s[:47] + "…"
	}
	return s
}

func (m *Model) renderForm() string {
	labels := []string{"Name", "Value", "Provider"}

	var rows []string
	rows = append(rows, styles.TitleStyle.Render("Add key"))
	for i, input := range m.inputs {
		label := fmt.Sprintf("%-10s", labels[i])
		if i == m.focused {
			label = styles.HelpKeyStyle.Render(label)
		} else {
			label = styles.HelpStyle.Render(label)
		}
		rows = append(rows, label+input.View())
	}
	rows = append(rows, "")
	rows = append(rows, styles.HelpStyle.Render("enter save  tab next field  esc cancel"))

	return styles.DocStyle.Width(m.width).Height(m.height).Render(strings.Join(rows, "\n"))
}
