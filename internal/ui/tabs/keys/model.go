// Package keys manages stored credentials and shows diagnosis results.
package keys

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/panoptic/internal/app"
	"github.com/j-veylop/panoptic/internal/models"
	"github.com/j-veylop/panoptic/internal/services"
)

type mode int

const (
	modeList mode = iota
	modeAdd
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Add    key.Binding
	Delete key.Binding
	Submit key.Binding
	Cancel key.Binding
	Next   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev key")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next key")),
		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add key")),
		Delete: key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete key")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	}
}

// Model represents the keys tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	keys     keyMap

	mode     mode
	selected int
	focused  int
	inputs   []textinput.Model

	width  int
	height int
}

// New creates a new keys model.
func New(state *app.State, mgr *services.Manager) *Model {
	name := textinput.New()
	name.Placeholder = "name (e.g. openai-admin)"
	name.CharLimit = 64

	value := textinput.New()
	value.Placeholder = "secret value"
	value.EchoMode = textinput.EchoPassword
	value.CharLimit = 256

	provider := textinput.New()
	provider.Placeholder = "provider hint (openai/anthropic/gemini, optional)"
	provider.CharLimit = 16

	return &Model{
		state:    state,
		services: mgr,
		keys:     defaultKeyMap(),
		inputs:   []textinput.Model{name, value, provider},
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd { return nil }

// CapturingInput reports whether the add form owns the keyboard.
func (m *Model) CapturingInput() bool {
	return m.mode == modeAdd
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeAdd {
			return m, m.updateForm(msg)
		}
		return m, m.updateList(msg)

	case app.SecretSavedMsg:
		if msg.Error == nil {
			m.resetForm()
			m.mode = modeList
		}
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) tea.Cmd {
	entries := m.entries()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(entries)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.focused = 0
		return m.inputs[0].Focus()
	case key.Matches(msg, m.keys.Delete):
		if m.selected < len(entries) {
			return m.deleteSecretCmd(entries[m.selected].Name)
		}
	}
	return nil
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.resetForm()
		m.mode = modeList
		return nil

	case key.Matches(msg, m.keys.Next):
		m.inputs[m.focused].Blur()
		m.focused = (m.focused + 1) % len(m.inputs)
		return m.inputs[m.focused].Focus()

	case key.Matches(msg, m.keys.Submit):
		return m.saveSecretCmd()
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return cmd
}

func (m *Model) saveSecretCmd() tea.Cmd {
	entry := models.SecretEntry{
		Name:     strings.TrimSpace(m.inputs[0].Value()),
		Value:    strings.TrimSpace(m.inputs[1].Value()),
		Provider: strings.ToLower(strings.TrimSpace(m.inputs[2].Value())),
		Category: "llm",
	}
	return func() tea.Msg {
		if entry.Name == "" || entry.Value == "" {
			return app.SecretSavedMsg{Name: entry.Name, Error: fmt.Errorf("name and value are required")}
		}
		err := m.services.Secrets().Add(entry)
		if err == nil {
			m.services.Audit().Record("secret.added", "secret", entry.Name,
				map[string]string{"provider": entry.Provider})
		}
		return app.SecretSavedMsg{Name: entry.Name, Error: err}
	}
}

func (m *Model) deleteSecretCmd(name string) tea.Cmd {
	return func() tea.Msg {
		err := m.services.Secrets().Delete(name)
		if err == nil {
			m.services.Audit().Record("secret.deleted", "secret", name, nil)
		}
		return app.SecretDeletedMsg{Name: name, Error: err}
	}
}

func (m *Model) resetForm() {
	for i := range m.inputs {
		m.inputs[i].Reset()
		m.inputs[i].Blur()
	}
	m.focused = 0
}

func (m *Model) entries() []models.SecretEntry {
	if m.services == nil {
		return nil
	}
	return m.services.Secrets().List()
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	for i := range m.inputs {
		m.inputs[i].Width = max(20, width-20)
	}
}

// ShortHelp returns key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Add, m.keys.Delete}
}

// FullHelp returns key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.keys.Add, m.keys.Delete, m.keys.Submit, m.keys.Cancel}}
}
