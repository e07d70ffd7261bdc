// Package tui provides the interactive browser for a PST container.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// chromeLines is the number of screen lines that are not list rows: title
// bar, breadcrumb, table header, separator, info line and footer.
const chromeLines = 6

// Options configuration for TUI.
type Options struct {
	// Name is shown in the title bar, usually the container file name.
	Name    string
	Version string
	// PageSize fixes the number of list rows. Zero sizes the list to the
	// terminal.
	PageSize int
}

// Model is the Bubble Tea model of the browse screen. Navigation state
// lives in the Browser; the model maps keys to actions and renders.
type Model struct {
	browser *Browser

	name      string
	version   string
	fixedPage int

	width    int
	height   int
	pageSize int

	searchInput textinput.Model
	searching   bool
	quitting    bool
}

// New creates the model around an opened browser.
func New(b *Browser, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "sender, recipient or body text"
	ti.Prompt = "/"
	ti.CharLimit = 200
	ti.Width = 50

	m := Model{
		browser:     b,
		name:        opts.Name,
		version:     opts.Version,
		fixedPage:   opts.PageSize,
		pageSize:    20,
		searchInput: ti,
	}
	if m.fixedPage > 0 {
		m.pageSize = m.fixedPage
	}
	b.Resize(0, m.pageSize)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		m.pageSize = m.height - chromeLines
		if m.fixedPage > 0 && m.fixedPage < m.pageSize {
			m.pageSize = m.fixedPage
		}
		if m.pageSize < 1 {
			m.pageSize = 1
		}
		m.searchInput.Width = max(m.width-4, 10)
		m.browser.Resize(m.width, m.pageSize)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var a Action
	switch msg.String() {
	case "q", "ctrl+c":
		a = Quit
	case "up", "k":
		a = Up
	case "down", "j":
		a = Down
	case "pgup", "ctrl+b":
		a = PageUp
	case "pgdown", "ctrl+f", " ":
		a = PageDown
	case "enter":
		a = Enter
	case "right", "l", "tab":
		a = Descend
	case "esc", "left", "h", "backspace":
		a = Back
	case "/":
		if m.browser.State() == StatePreview {
			return m, nil
		}
		m.searching = true
		m.searchInput.SetValue(m.browser.Query())
		m.searchInput.CursorEnd()
		cmd := m.searchInput.Focus()
		return m, cmd
	default:
		return m, nil
	}
	return m.apply(a)
}

// handleSearchKeys handles keys while the search bar is open.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m.apply(Search(m.searchInput.Value()))

	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil

	case "ctrl+c":
		return m.apply(Quit)
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) apply(a Action) (tea.Model, tea.Cmd) {
	m.browser.Apply(a)
	if m.browser.State() == StateQuit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// Browser returns the state machine behind the model.
func (m Model) Browser() *Browser { return m.browser }

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.browser.State() {
	case StateFolders:
		body = m.folderTableView()
	case StateItems:
		body = m.itemTableView()
	case StatePreview:
		body = m.previewView()
	}
	return m.headerView() + "\n" + body + "\n" + m.infoLineView() + "\n" + m.footerView()
}
