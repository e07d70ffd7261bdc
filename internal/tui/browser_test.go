package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stchris/pstexplorer/internal/testutil"
)

func TestBrowser_Initial(t *testing.T) {
	b := newTestBrowser(t)
	if b.State() != StateFolders {
		t.Fatalf("state = %v, want folders", b.State())
	}
	if b.Path() != "Top of Personal Folders" {
		t.Errorf("Path = %q", b.Path())
	}
	testutil.AssertStrings(t, folderNames(b), "Inbox", "Archive", "Bulk")
	if f := b.CurrentFolder(); f == nil || f.Name != "Inbox" {
		t.Errorf("CurrentFolder = %v", f)
	}
	if b.Depth() != 0 {
		t.Errorf("Depth = %d", b.Depth())
	}
}

func TestBrowser_FolderCursorClamps(t *testing.T) {
	b := newTestBrowser(t)
	apply(b, Up)
	if _, cursor, _ := b.Folders(); cursor != 0 {
		t.Errorf("cursor after Up at top = %d", cursor)
	}
	apply(b, Down, Down, Down, Down)
	if _, cursor, _ := b.Folders(); cursor != 2 {
		t.Errorf("cursor after Down past end = %d", cursor)
	}
}

func TestBrowser_ItemsAndPreview(t *testing.T) {
	b := newTestBrowser(t)
	apply(b, Enter)
	if b.State() != StateItems {
		t.Fatalf("state = %v, want items", b.State())
	}
	if b.ItemsTitle() != "Top of Personal Folders/Inbox" {
		t.Errorf("ItemsTitle = %q", b.ItemsTitle())
	}
	if b.ItemCount() != 3 {
		t.Fatalf("ItemCount = %d", b.ItemCount())
	}
	if diff := cmp.Diff([]string{"hello", "report", "lunch"}, visibleSubjects(b)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}

	// Rows are summaries without bodies.
	if r := b.VisibleItems()[0]; r.Body != "" || r.From() != "Alice Example" {
		t.Errorf("summary row: body %q, from %q", r.Body, r.From())
	}

	apply(b, Enter)
	if b.State() != StatePreview {
		t.Fatalf("state = %v, want preview", b.State())
	}
	rec, lines, scroll := b.Preview()
	if rec.Subject != "hello" || rec.Body != "first line\nsecond line" {
		t.Errorf("preview record: subject %q body %q", rec.Subject, rec.Body)
	}
	if len(rec.Attachments) != 1 {
		t.Errorf("preview attachments = %d", len(rec.Attachments))
	}
	if scroll != 0 {
		t.Errorf("scroll = %d", scroll)
	}
	text := strings.Join(lines, "\n")
	testutil.AssertContainsAll(t, text, []string{
		"Subject:     hello",
		"From:        Alice Example",
		"To:          Bob",
		"Date:        2014-02-24 21:14:34 UTC",
		"notes.txt  5 B",
		"first line\nsecond line",
	})
}

func TestBrowser_BackRestoresCursors(t *testing.T) {
	b := newTestBrowser(t)
	apply(b, Down, Down, Enter) // Bulk
	apply(b, Down, Down, Down, Enter)
	if b.State() != StatePreview {
		t.Fatalf("state = %v", b.State())
	}
	if rec, _, _ := b.Preview(); rec.Subject != "msg 03" {
		t.Errorf("preview subject = %q", rec.Subject)
	}

	apply(b, Back)
	if b.State() != StateItems {
		t.Fatalf("state after back = %v", b.State())
	}
	if cursor, _ := b.ItemCursor(); cursor != 3 {
		t.Errorf("item cursor after back = %d, want 3", cursor)
	}

	apply(b, Back)
	if b.State() != StateFolders {
		t.Fatalf("state after second back = %v", b.State())
	}
	if f := b.CurrentFolder(); f.Name != "Bulk" {
		t.Errorf("folder cursor after back on %q, want Bulk", f.Name)
	}
}

func TestBrowser_BackAtRootIsNoop(t *testing.T) {
	b := newTestBrowser(t)
	apply(b, Down, Back, Back)
	if b.State() != StateFolders || b.Depth() != 0 {
		t.Fatalf("state %v depth %d", b.State(), b.Depth())
	}
	if f := b.CurrentFolder(); f.Name != "Archive" {
		t.Errorf("cursor moved to %q", f.Name)
	}
}

func TestBrowser_Descend(t *testing.T) {
	b := newTestBrowser(t)

	// Inbox has no subfolders.
	apply(b, Descend)
	if b.Depth() != 0 {
		t.Fatalf("descended into a leaf folder")
	}

	apply(b, Down, Descend)
	if b.Depth() != 1 || b.Path() != "Top of Personal Folders/Archive" {
		t.Fatalf("depth %d path %q", b.Depth(), b.Path())
	}
	testutil.AssertStrings(t, folderNames(b), "2013")

	apply(b, Enter)
	if diff := cmp.Diff([]string{"old news"}, visibleSubjects(b)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	apply(b, Back, Back)
	if b.Depth() != 0 {
		t.Fatalf("depth after back = %d", b.Depth())
	}
	if f := b.CurrentFolder(); f.Name != "Archive" {
		t.Errorf("cursor on %q after leaving Archive", f.Name)
	}
}

func TestBrowser_EmptyFolder(t *testing.T) {
	b := newTestBrowser(t)
	apply(b, Down, Enter)
	if b.State() != StateItems || b.ItemCount() != 0 {
		t.Fatalf("state %v count %d", b.State(), b.ItemCount())
	}
	apply(b, Down, Enter)
	if b.State() != StateItems {
		t.Errorf("enter on empty list changed state to %v", b.State())
	}
	if got := b.VisibleItems(); len(got) != 0 {
		t.Errorf("VisibleItems = %d rows", len(got))
	}
}

func TestBrowser_QuitIsTerminal(t *testing.T) {
	b := newTestBrowser(t)
	apply(b, Enter, Quit)
	if b.State() != StateQuit {
		t.Fatalf("state = %v", b.State())
	}
	apply(b, Back, Enter, Search("alice"), Down)
	if b.State() != StateQuit {
		t.Errorf("state after quit = %v", b.State())
	}
}

func TestBrowser_PagingDecodesVisibleRowsOnly(t *testing.T) {
	b := newTestBrowser(t)
	b.Resize(80, 5)
	apply(b, Down, Down, Enter)
	if b.ItemCount() != bulkSize {
		t.Fatalf("ItemCount = %d", b.ItemCount())
	}
	if b.Cached() != 0 {
		t.Errorf("decoded %d rows before rendering", b.Cached())
	}

	if diff := cmp.Diff([]string{"msg 00", "msg 01", "msg 02", "msg 03", "msg 04"}, visibleSubjects(b)); diff != "" {
		t.Errorf("first page (-want +got):\n%s", diff)
	}
	if b.Cached() != 5 {
		t.Errorf("Cached = %d after first page", b.Cached())
	}

	apply(b, PageDown)
	cursor, offset := b.ItemCursor()
	if cursor != 5 || offset != 1 {
		t.Errorf("after PageDown cursor %d offset %d", cursor, offset)
	}
	visibleSubjects(b)
	if b.Cached() != 6 {
		t.Errorf("Cached = %d after scrolling one row", b.Cached())
	}

	apply(b, PageDown, PageDown, PageDown, PageDown, PageDown, PageDown)
	cursor, offset = b.ItemCursor()
	if cursor != bulkSize-1 || offset != bulkSize-5 {
		t.Errorf("at end cursor %d offset %d", cursor, offset)
	}
	if got := visibleSubjects(b); got[len(got)-1] != "msg 29" {
		t.Errorf("last row = %q", got[len(got)-1])
	}

	apply(b, PageUp)
	if cursor, _ := b.ItemCursor(); cursor != bulkSize-6 {
		t.Errorf("after PageUp cursor = %d", cursor)
	}

	// Cached rows are reused: revisiting the first page decodes nothing new.
	before := b.Cached()
	apply(b, PageUp, PageUp, PageUp, PageUp, PageUp, PageUp)
	if cursor, offset := b.ItemCursor(); cursor != 0 || offset != 0 {
		t.Fatalf("back at top: cursor %d offset %d", cursor, offset)
	}
	visibleSubjects(b)
	if b.Cached() != before {
		t.Errorf("Cached grew from %d to %d on a revisited page", before, b.Cached())
	}
}

func TestBrowser_PreviewScroll(t *testing.T) {
	b := newTestBrowser(t)
	b.Resize(80, 5)
	apply(b, Enter, Down, Enter) // report
	_, lines, _ := b.Preview()
	if len(lines) < 40 {
		t.Fatalf("preview has %d lines", len(lines))
	}

	apply(b, Down, Down, Down)
	if _, _, scroll := b.Preview(); scroll != 3 {
		t.Errorf("scroll = %d, want 3", scroll)
	}
	for i := 0; i < 20; i++ {
		apply(b, PageDown)
	}
	if _, _, scroll := b.Preview(); scroll != len(lines)-5 {
		t.Errorf("scroll = %d, want clamp at %d", scroll, len(lines)-5)
	}

	apply(b, Back, Enter)
	if _, _, scroll := b.Preview(); scroll != 0 {
		t.Errorf("scroll after reopening = %d, want 0", scroll)
	}
	apply(b, Up)
	if _, _, scroll := b.Preview(); scroll != 0 {
		t.Errorf("scroll above top = %d", scroll)
	}
}

func TestBrowser_PreviewWrapsToWidth(t *testing.T) {
	b := newTestBrowser(t)
	b.Resize(12, 10)
	apply(b, Enter, Enter)
	_, lines, _ := b.Preview()
	for _, l := range lines {
		if w := len([]rune(l)); w > 12 {
			t.Errorf("line %q is %d wide", l, w)
		}
	}
}

func TestBrowser_Search(t *testing.T) {
	b := newTestBrowser(t)
	apply(b, Down, Search("ALICE"))
	if b.State() != StateItems {
		t.Fatalf("state = %v", b.State())
	}
	if b.ItemsTitle() != "Search: ALICE" || b.Query() != "ALICE" {
		t.Errorf("title %q query %q", b.ItemsTitle(), b.Query())
	}
	// sender, recipient and body matches, across folders, in traversal order
	if diff := cmp.Diff([]string{"hello", "report", "old news"}, visibleSubjects(b)); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}

	apply(b, Down, Down, Enter)
	if rec, _, _ := b.Preview(); rec.FolderPath != "Top of Personal Folders/Archive/2013" {
		t.Errorf("result folder = %q", rec.FolderPath)
	}

	// Search is unavailable from the preview.
	apply(b, Search("bob"))
	if b.State() != StatePreview {
		t.Errorf("search from preview changed state to %v", b.State())
	}

	apply(b, Back, Back)
	if b.State() != StateFolders || b.Query() != "" {
		t.Fatalf("state %v query %q", b.State(), b.Query())
	}
	if f := b.CurrentFolder(); f.Name != "Archive" {
		t.Errorf("folder cursor on %q after search", f.Name)
	}
}

func TestBrowser_SearchNoMatches(t *testing.T) {
	b := newTestBrowser(t)
	apply(b, Search("nobody at all"))
	if b.State() != StateItems || b.ItemCount() != 0 {
		t.Errorf("state %v count %d", b.State(), b.ItemCount())
	}
	apply(b, Back, Search(""))
	if b.State() != StateFolders {
		t.Errorf("empty search changed state to %v", b.State())
	}
}

func TestBrowser_SearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b, err := NewBrowser(ctx, newTestEngine(t))
	testutil.MustNoErr(t, err, "NewBrowser")
	cancel()
	apply(b, Search("alice"))
	if b.State() != StateQuit {
		t.Errorf("state after cancelled search = %v", b.State())
	}
}
