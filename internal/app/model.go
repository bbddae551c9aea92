package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/panoptic/internal/services"
	"github.com/j-veylop/panoptic/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabOverview is the ID for the overview tab.
	TabOverview TabID = iota
	// TabProjects is the ID for the projects tab.
	TabProjects
	// TabKeys is the ID for the keys tab.
	TabKeys
	// TabAudit is the ID for the audit tab.
	TabAudit
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabOverview:
		return "Overview"
	case TabProjects:
		return "Projects"
	case TabKeys:
		return "Keys"
	case TabAudit:
		return "Audit"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1     key.Binding
	Tab2     key.Binding
	Tab3     key.Binding
	Tab4     key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Refresh  key.Binding
	Diagnose key.Binding
	Help     key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Escape   key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "overview")),
		Tab2:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "projects")),
		Tab3:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "keys")),
		Tab4:     key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "audit")),
		NextTab:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Refresh:  key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		Diagnose: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "diagnose keys")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Diagnose, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.NextTab, k.PrevTab},
		{k.Up, k.Down, k.Enter, k.Escape},
		{k.Refresh, k.Diagnose, k.Help, k.Quit},
	}
}

// Styles defines the application chrome styles.
type Styles struct {
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content lipgloss.Style
	Help    lipgloss.Style
	Spinner lipgloss.Style
	Toast   lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(styles.Success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(styles.Error).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(styles.Warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(styles.Info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Help = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)
	s.Spinner = lipgloss.NewStyle().Foreground(highlight)
	s.Toast = styles.ToastStyle

	return s
}

// Model is the main application model.
type Model struct {
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	state    *State
	services *services.Manager
	keymap   KeyMap
	styles   Styles

	spinner spinner.Model

	width  int
	height int

	showHelp bool
	ready    bool

	eventChannel <-chan services.Event
}

// NewModel initializes a new application model.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		activeTab: TabOverview,
		tabNames:  []string{"Overview", "Projects", "Keys", "Audit"},
		tabs:      make([]Tab, 4),
		state:     NewState(),
		services:  mgr,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State { return m.state }

// GetServices returns the service manager.
func (m *Model) GetServices() *services.Manager { return m.services }

// GetKeyMap returns the key bindings.
func (m *Model) GetKeyMap() KeyMap { return m.keymap }

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateTabSizes()

	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())

	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))

	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event)...)
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}

	case UsageLoadedMsg:
		m.state.SetSummary(msg.Summary)

	case DiagnosisCompleteMsg:
		m.state.SetDiagnoses(msg.Diagnoses)

	case AuditLoadedMsg:
		if msg.Error != nil {
			cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Failed to load audit trail: %v", msg.Error)))
		} else {
			m.state.SetAuditEvents(msg.Events)
		}

	case RefreshMsg:
		if m.services != nil && !m.state.IsRefreshing() {
			m.state.SetRefreshing(true)
			cmds = append(cmds, refreshUsageCmd(m.services))
		}

	case DiagnoseMsg:
		if m.services != nil && !m.state.IsDiagnosing() {
			m.state.SetDiagnosing(true)
			cmds = append(cmds, diagnoseKeysCmd(m.services))
		}

	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()

	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}

	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)

	case SecretSavedMsg:
		if msg.Error != nil {
			cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Failed to save %s: %v", msg.Name, msg.Error)))
		} else {
			cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Saved secret %s", msg.Name)))
		}

	case SecretDeletedMsg:
		if msg.Error != nil {
			cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Failed to delete %s: %v", msg.Name, msg.Error)))
		} else {
			cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Deleted secret %s", msg.Name)))
		}

	case ErrorMsg:
		cmds = append(cmds, notifyErrorCmd(msg.Error.Error()))
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleServiceEvent(event services.Event) []tea.Cmd {
	var cmds []tea.Cmd
	switch event.Type {
	case services.EventUsageUpdated:
		m.state.SetSummary(event.Summary)
	case services.EventDiagnosis:
		m.state.SetDiagnoses(event.Diagnoses)
	case services.EventSecretsChanged:
		cmds = append(cmds, notifyCmd(NotificationInfo, "Secrets file changed, refreshing"))
	case services.EventError:
		cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Service error: %v", event.Err)))
	}
	return cmds
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

// inputCapturer is implemented by tabs that own raw text input. While
// capturing, only ctrl+c quits; everything else goes to the tab.
type inputCapturer interface {
	CapturingInput() bool
}

// handleKeyMsg handles global keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) {
		if capturer, ok := m.tabs[m.activeTab].(inputCapturer); ok && capturer.CapturingInput() {
			if msg.String() == "ctrl+c" {
				return tea.Quit
			}
			return nil
		}
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil

	case key.Matches(msg, m.keymap.Tab1):
		m.activeTab = TabOverview
	case key.Matches(msg, m.keymap.Tab2):
		m.activeTab = TabProjects
	case key.Matches(msg, m.keymap.Tab3):
		m.activeTab = TabKeys
	case key.Matches(msg, m.keymap.Tab4):
		m.activeTab = TabAudit

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp {
			m.activeTab = TabID((int(m.activeTab) + 1) % len(m.tabs))
		}
	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp {
			m.activeTab = TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs))
		}

	case key.Matches(msg, m.keymap.Refresh):
		return func() tea.Msg { return RefreshMsg{} }

	case key.Matches(msg, m.keymap.Diagnose):
		return func() tea.Msg { return DiagnoseMsg{} }

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
		}
		return nil
	}

	m.updateTabSizes()
	return nil
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	}

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if toasts := m.renderNotifications(); toasts != "" {
		mainView = m.overlayCentered(mainView, toasts)
	}

	return mainView
}

func (m *Model) renderNavbar() string {
	var tabs []string
	for i, name := range m.tabNames {
		label := fmt.Sprintf("[%d] %s", i+1, name)
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(label))
		}
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.state.IsRefreshing() {
		bar = lipgloss.JoinHorizontal(lipgloss.Top, bar, m.styles.Spinner.Render(" "+m.spinner.View()))
	}
	return m.styles.TabBar.Width(max(0, m.width-2)).Render(bar)
}

func (m *Model) renderHelp() string {
	var sections []string
	sections = append(sections, styles.TitleStyle.Render("Keyboard Shortcuts"))

	groups := m.keymap.FullHelp()
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		if tabHelp := m.tabs[m.activeTab].FullHelp(); len(tabHelp) > 0 {
			groups = append(groups, tabHelp...)
		}
	}

	for _, group := range groups {
		var lines []string
		for _, binding := range group {
			lines = append(lines, fmt.Sprintf("%s  %s",
				styles.HelpKeyStyle.Render(fmt.Sprintf("%-12s", binding.Help().Key)),
				m.styles.Help.Render(binding.Help().Desc)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return styles.HelpPanelStyle.Render(strings.Join(sections, "\n\n"))
}

func (m *Model) renderNotifications() string {
	notifications := m.state.Notifications()
	if len(notifications) == 0 {
		return ""
	}

	var lines []string
	for _, n := range notifications {
		var style lipgloss.Style
		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
		case NotificationError:
			style = m.styles.NotificationError
		case NotificationWarning:
			style = m.styles.NotificationWarning
		default:
			style = m.styles.NotificationInfo
		}
		lines = append(lines, style.Render(n.Message))
	}
	return m.styles.Toast.Render(strings.Join(lines, "\n"))
}

// overlayCentered places overlay on top of mainView, centered in the
// window, slicing the underlying lines around it.
func (m *Model) overlayCentered(mainView, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayWidth := lipgloss.Width(overlay)
	y := max(0, (m.height-len(overlayLines))/2)
	x := max(0, (m.width-overlayWidth)/2)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]
		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}
		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}
