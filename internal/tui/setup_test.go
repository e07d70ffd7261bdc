package tui

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/stchris/pstexplorer/internal/query"
	"github.com/stchris/pstexplorer/internal/testutil"
	"github.com/stchris/pstexplorer/internal/testutil/pstfixture"
)

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

var sent = time.Date(2014, 2, 24, 21, 14, 34, 0, time.UTC)

// bulkSize is the number of messages in the "Bulk" fixture folder.
const bulkSize = 30

// mailbox builds the fixture used by the browser tests:
//
//	Top of Personal Folders
//	  Inbox      hello, report, lunch
//	  Archive    (no items)
//	    2013     old news
//	  Bulk       msg 00 .. msg 29
func mailbox() *pstfixture.Builder {
	b := pstfixture.New(pstfixture.Options{Fanout: 4})
	inbox := b.Root().AddFolder("Inbox")
	inbox.AddMessage(&pstfixture.Message{
		Subject:    "hello",
		SenderName: "Alice Example",
		To:         "Bob",
		Body:       "first line\nsecond line",
		SubmitTime: sent,
		Attachments: []pstfixture.Attachment{
			{LongFilename: "notes.txt", Size: 5, Method: 1, Data: []byte("notes")},
		},
	})
	inbox.AddMessage(&pstfixture.Message{
		Subject:    "report",
		SenderName: "Bob",
		To:         "Alice Example",
		Body:       strings.Repeat("numbers\n", 40),
		SubmitTime: sent.Add(time.Hour),
	})
	inbox.AddMessage(&pstfixture.Message{Subject: "lunch", SenderName: "Carol", Body: "noon?"})

	archive := b.Root().AddFolder("Archive")
	archive.AddFolder("2013").AddMessage(&pstfixture.Message{
		Subject:    "old news",
		SenderName: "Dave",
		Body:       "from alice's archive",
		SubmitTime: sent.AddDate(-1, 0, 0),
	})

	bulk := b.Root().AddFolder("Bulk")
	for i := 0; i < bulkSize; i++ {
		bulk.AddMessage(&pstfixture.Message{
			Subject:    fmt.Sprintf("msg %02d", i),
			SenderName: "Mailer",
			Body:       "bulk",
			SubmitTime: sent.Add(time.Duration(i) * time.Minute),
		})
	}
	return b
}

func newTestEngine(t *testing.T) *query.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	e, err := query.NewEngine(mailbox().Open(t), logger)
	testutil.MustNoErr(t, err, "NewEngine")
	return e
}

func newTestBrowser(t *testing.T) *Browser {
	t.Helper()
	b, err := NewBrowser(context.Background(), newTestEngine(t))
	testutil.MustNoErr(t, err, "NewBrowser")
	return b
}

// newTestModel returns a model that has received a window size.
func newTestModel(t *testing.T, width, height int) Model {
	t.Helper()
	m := New(newTestBrowser(t), Options{Name: "fixture.pst", Version: "test123"})
	m, _ = sendMsg(t, m, tea.WindowSizeMsg{Width: width, Height: height})
	return m
}

func apply(b *Browser, actions ...Action) {
	for _, a := range actions {
		b.Apply(a)
	}
}

func folderNames(b *Browser) []string {
	folders, _, _ := b.Folders()
	var names []string
	for _, f := range folders {
		names = append(names, f.Name)
	}
	return names
}

func visibleSubjects(b *Browser) []string {
	var out []string
	for _, r := range b.VisibleItems() {
		if r == nil {
			out = append(out, "<nil>")
			continue
		}
		out = append(out, r.Subject)
	}
	return out
}

// sendKey sends a key message to the model and returns the updated concrete Model.
func sendKey(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(k)
	return newM.(Model), cmd
}

// sendMsg sends any tea.Msg through Update and returns the concrete Model.
func sendMsg(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(msg)
	return newM.(Model), cmd
}

// typeText sends each rune of s as a key press.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = sendKey(t, m, key(r))
	}
	return m
}

// key returns a KeyMsg for a single rune (e.g., key('x'), key('/'))
func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func keyEnter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func keyEsc() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEscape} }

func keyDown() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyDown} }

func keyRight() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRight} }

func keyPgDown() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyPgDown} }
