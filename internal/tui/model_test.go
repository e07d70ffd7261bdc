package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func TestModel_WindowSize(t *testing.T) {
	m := newTestModel(t, 100, 20)
	if m.pageSize != 20-chromeLines {
		t.Errorf("pageSize = %d", m.pageSize)
	}

	m, _ = sendMsg(t, m, tea.WindowSizeMsg{Width: 40, Height: 3})
	if m.pageSize != 1 {
		t.Errorf("pageSize for tiny window = %d, want 1", m.pageSize)
	}
}

func TestModel_FixedPageSize(t *testing.T) {
	m := New(newTestBrowser(t), Options{PageSize: 4})
	m, _ = sendMsg(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	if m.pageSize != 4 {
		t.Errorf("pageSize = %d, want 4", m.pageSize)
	}
}

func TestModel_KeysDriveBrowser(t *testing.T) {
	m := newTestModel(t, 100, 20)
	b := m.Browser()

	m, _ = sendKey(t, m, keyDown())
	m, _ = sendKey(t, m, key('j'))
	if f := b.CurrentFolder(); f.Name != "Bulk" {
		t.Fatalf("cursor on %q", f.Name)
	}
	m, _ = sendKey(t, m, keyEnter())
	if b.State() != StateItems {
		t.Fatalf("state = %v", b.State())
	}
	m, _ = sendKey(t, m, keyPgDown())
	if cursor, _ := b.ItemCursor(); cursor != m.pageSize {
		t.Errorf("item cursor after PgDown = %d, want %d", cursor, m.pageSize)
	}
	m, _ = sendKey(t, m, key('k'))
	m, _ = sendKey(t, m, keyEnter())
	if b.State() != StatePreview {
		t.Fatalf("state = %v", b.State())
	}
	m, _ = sendKey(t, m, keyEsc())
	m, _ = sendKey(t, m, key('h'))
	if b.State() != StateFolders {
		t.Fatalf("state after esc, h = %v", b.State())
	}

	m, _ = sendKey(t, m, key('k'))
	_, _ = sendKey(t, m, keyRight())
	if b.Path() != "Top of Personal Folders/Archive" {
		t.Errorf("right arrow did not descend: %q", b.Path())
	}
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []tea.KeyMsg{key('q'), {Type: tea.KeyCtrlC}} {
		m := newTestModel(t, 100, 20)
		m, cmd := sendKey(t, m, k)
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: command is not tea.Quit", k)
		}
		if m.View() != "" {
			t.Errorf("%s: view not empty after quit", k)
		}
		if m.Browser().State() != StateQuit {
			t.Errorf("%s: state = %v", k, m.Browser().State())
		}
	}
}

func TestModel_SearchBar(t *testing.T) {
	m := newTestModel(t, 100, 20)
	m, _ = sendKey(t, m, key('/'))
	if !m.searching {
		t.Fatal("search bar not open")
	}
	if p := m.searchInput.Placeholder; strings.Contains(p, "subject") {
		t.Errorf("placeholder %q names a field that is not searched", p)
	}
	// Keys go to the input while it is open.
	m = typeText(t, m, "qalice")
	if m.Browser().State() != StateFolders {
		t.Fatalf("typing changed state to %v", m.Browser().State())
	}
	m, _ = sendKey(t, m, keyEnter())
	if m.searching {
		t.Error("search bar still open after enter")
	}
	b := m.Browser()
	if b.State() != StateItems || b.Query() != "qalice" {
		t.Fatalf("state %v query %q", b.State(), b.Query())
	}
	if b.ItemCount() != 0 {
		t.Errorf("got %d results for qalice", b.ItemCount())
	}

	// Reopening the bar starts from the active query.
	m, _ = sendKey(t, m, key('/'))
	if got := m.searchInput.Value(); got != "qalice" {
		t.Errorf("input = %q", got)
	}
	for range "qalice" {
		m, _ = sendKey(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m = typeText(t, m, "alice")
	m, _ = sendKey(t, m, keyEnter())
	if b.ItemCount() != 3 {
		t.Errorf("got %d results for alice", b.ItemCount())
	}
}

func TestModel_SearchBarEscCancels(t *testing.T) {
	m := newTestModel(t, 100, 20)
	m, _ = sendKey(t, m, key('/'))
	m = typeText(t, m, "bob")
	m, _ = sendKey(t, m, keyEsc())
	if m.searching || m.Browser().State() != StateFolders {
		t.Errorf("searching %v state %v", m.searching, m.Browser().State())
	}
}

func TestModel_NoSearchFromPreview(t *testing.T) {
	m := newTestModel(t, 100, 20)
	m, _ = sendKey(t, m, keyEnter())
	m, _ = sendKey(t, m, keyEnter())
	m, _ = sendKey(t, m, key('/'))
	if m.searching {
		t.Error("search bar opened from preview")
	}
}

func TestModel_ViewFillsScreen(t *testing.T) {
	forceColorProfile(t)
	const width, height = 100, 20
	m := newTestModel(t, width, height)

	check := func(name string) string {
		t.Helper()
		view := m.View()
		lines := strings.Split(view, "\n")
		if len(lines) != height {
			t.Errorf("%s: %d lines, want %d", name, len(lines), height)
		}
		for i, l := range lines {
			if w := lipgloss.Width(l); w > width {
				t.Errorf("%s: line %d is %d wide: %q", name, i, w, stripANSI(l))
			}
		}
		if !strings.Contains(view, ansiStart) {
			t.Errorf("%s: view is not styled", name)
		}
		return stripANSI(view)
	}

	plain := check("folders")
	for _, want := range []string{"pstexplorer [test123] - fixture.pst", "Top of Personal Folders", "1/3 folders", "Inbox", "Archive/", "Bulk", "q quit"} {
		if !strings.Contains(plain, want) {
			t.Errorf("folders view missing %q:\n%s", want, plain)
		}
	}

	m, _ = sendKey(t, m, keyEnter())
	plain = check("items")
	for _, want := range []string{"Subject", "From", "hello", "Alice Example", "2014-02-24 21:14", "1/3 items"} {
		if !strings.Contains(plain, want) {
			t.Errorf("items view missing %q:\n%s", want, plain)
		}
	}

	m, _ = sendKey(t, m, keyEnter())
	plain = check("preview")
	for _, want := range []string{"Subject:     hello", "first line", "Esc back"} {
		if !strings.Contains(plain, want) {
			t.Errorf("preview view missing %q:\n%s", want, plain)
		}
	}
}

func TestModel_ViewWideCharacters(t *testing.T) {
	forceColorProfile(t)
	b := newTestBrowser(t)
	m := New(b, Options{})
	m, _ = sendMsg(t, m, tea.WindowSizeMsg{Width: 60, Height: 12})
	// Status messages are width-limited like every other line.
	b.status = strings.Repeat("错误", 50)
	for i, l := range strings.Split(m.View(), "\n") {
		if w := lipgloss.Width(l); w > 60 {
			t.Errorf("line %d is %d wide", i, w)
		}
	}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := New(newTestBrowser(t), Options{})
	if got := m.View(); got != "Loading..." {
		t.Errorf("View = %q", got)
	}
}

// ansiStart is the escape sequence prefix found in styled terminal output.
const ansiStart = "\x1b["
