package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"

	"github.com/stchris/pstexplorer/internal/record"
	"github.com/stchris/pstexplorer/internal/testutil"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"ascii", "hello world", 8, "hello..."},
		{"tiny width", "hello", 2, "he"},
		{"newlines", "a\nb\r\nc", 10, "a b c"},
		{"tabs", "a\tb", 10, "a b"},
		{"cjk", "日本語テキスト", 9, "日本語..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.input, tt.width)
			if got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
			if w := runewidth.StringWidth(got); w > tt.width {
				t.Errorf("width %d exceeds %d", w, tt.width)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("abcdef", 3); got != "abc" {
		t.Errorf("padRight overflow = %q", got)
	}
	if got := padRight("日本", 6); got != "日本  " {
		t.Errorf("padRight wide = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"keeps blank lines", "a\n\nb", 10, []string{"a", "", "b"}},
		{"breaks at space", "hello brave new world", 11, []string{"hello brave", "new world"}},
		{"hard break", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"crlf", "a\r\nb", 10, []string{"a", "b"}},
		{"wide runes", "日本語日本語", 6, []string{"日本語", "日本語"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, wrapText(tt.input, tt.width)); diff != "" {
				t.Errorf("wrapText mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCalculateScrollOffset(t *testing.T) {
	tests := []struct {
		cursor, offset, page, want int
	}{
		{0, 0, 5, 0},
		{4, 0, 5, 0},
		{5, 0, 5, 1},
		{12, 3, 5, 8},
		{2, 3, 5, 2},
	}
	for _, tt := range tests {
		if got := calculateScrollOffset(tt.cursor, tt.offset, tt.page); got != tt.want {
			t.Errorf("calculateScrollOffset(%d, %d, %d) = %d, want %d", tt.cursor, tt.offset, tt.page, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "-",
		5:       "5 B",
		1536:    "1.5 KB",
		1048576: "1.0 MB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyHighlight(t *testing.T) {
	forceColorProfile(t)
	got := applyHighlight("Hello Alice and ALICE", "alice")
	want := "Hello " + highlightStyle.Render("Alice") + " and " + highlightStyle.Render("ALICE")
	if got != want {
		t.Errorf("applyHighlight = %q, want %q", got, want)
	}
	if stripANSI(got) != "Hello Alice and ALICE" {
		t.Errorf("highlight changed text: %q", stripANSI(got))
	}
	if got := applyHighlight("nothing here", "alice"); got != "nothing here" {
		t.Errorf("no match = %q", got)
	}
}

func TestPreviewText(t *testing.T) {
	start := time.Date(2014, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rec  *record.Record
		want []string
		not  []string
	}{
		{
			name: "email",
			rec: &record.Record{
				Kind:       record.KindEmail,
				Subject:    "",
				FolderPath: "Top/Inbox",
				Body:       "body text\n\n",
				Email:      &record.Email{From: "Alice", SenderAddress: "alice@example.com", Cc: "Carol"},
				Attachments: []record.Attachment{
					{Filename: "a.pdf", Size: 2048},
					{Size: 0},
				},
			},
			want: []string{
				"Subject:     (no subject)\n",
				"From:        Alice <alice@example.com>\n",
				"Cc:          Carol\n",
				"Date:        unknown\n",
				"Folder:      Top/Inbox\n",
				"Type:        email (IPM.Note)\n",
				"Attachments: 2\n",
				"  a.pdf  2.0 KB\n",
				"  (unnamed)  -\n",
				"\nbody text",
			},
			not: []string{"To:", "Bcc:", "Warning:"},
		},
		{
			name: "calendar",
			rec: &record.Record{
				Kind:         record.KindCalendar,
				MessageClass: "IPM.Appointment",
				Subject:      "standup",
				Date:         record.At(start),
				Calendar: &record.Calendar{
					Organizer: "Frank",
					Location:  "Room 1",
					Start:     record.At(start),
					End:       record.At(start.Add(15 * time.Minute)),
				},
			},
			want: []string{
				"Organizer:   Frank\n",
				"Location:    Room 1\n",
				"Start:       2014-03-01 09:00:00 UTC\n",
				"End:         2014-03-01 09:15:00 UTC\n",
				"Type:        calendar (IPM.Appointment)\n",
				"(no body)",
			},
			not: []string{"From:", "All day:"},
		},
		{
			name: "task",
			rec: &record.Record{
				Kind:      record.KindTask,
				Subject:   "file taxes",
				Task:      &record.Task{Status: record.TaskInProgress, PercentComplete: 0.5},
				DecodeErr: &record.DecodeError{Fields: []string{"body"}},
			},
			want: []string{
				"Status:      in progress\n",
				"Complete:    50%\n",
				"Warning:     some fields could not be decoded: body\n",
			},
			not: []string{"Due:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := previewText(tt.rec)
			testutil.AssertContainsAll(t, got, tt.want)
			for _, s := range tt.not {
				if strings.Contains(got, s) {
					t.Errorf("unexpected %q in:\n%s", s, got)
				}
			}
		})
	}
}
