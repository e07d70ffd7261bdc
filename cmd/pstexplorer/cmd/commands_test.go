package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/stchris/pstexplorer/internal/output"
	"github.com/stchris/pstexplorer/internal/pst"
	"github.com/stchris/pstexplorer/internal/testutil"
	"github.com/stchris/pstexplorer/internal/testutil/pstfixture"
)

var sent = time.Date(2014, 2, 26, 12, 20, 19, 0, time.UTC)

// mailbox builds an Inbox with two messages and an Archive with one.
func mailbox() *pstfixture.Builder {
	b := pstfixture.New(pstfixture.Options{})
	inbox := b.Root().AddFolder("Inbox")
	inbox.AddMessage(&pstfixture.Message{
		Subject:    "hello",
		SenderName: "Alice Example",
		To:         "Bob",
		Body:       "hi bob",
		SubmitTime: sent,
		Attachments: []pstfixture.Attachment{
			{LongFilename: "notes.txt", Size: 5, Method: 1, Data: []byte("notes")},
		},
	})
	inbox.AddMessage(&pstfixture.Message{Subject: "lunch", SenderName: "Carol", Body: "noon?"})
	b.Root().AddFolder("Archive").AddMessage(&pstfixture.Message{
		Subject:    "old news",
		SenderName: "Bob",
		To:         "Alice Example",
		Body:       "from the archive",
	})
	return b
}

func writeHomeConfig(t *testing.T, home, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("%q does not contain %q", got, want)
	}
}

func decodeRows(t *testing.T, s string) []output.Row {
	t.Helper()
	var rows []output.Row
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		t.Fatalf("decode JSON output: %v\n%s", err, s)
	}
	return rows
}

func subjectsOf(rows []output.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Subject
	}
	return out
}

func TestList_JSON(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	stdout, stderr, err := runCLI(t, "list", path, "--format", "json")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	rows := decodeRows(t, stdout)
	if diff := cmp.Diff([]string{"hello", "lunch", "old news"}, subjectsOf(rows)); diff != "" {
		t.Errorf("subjects (-want +got):\n%s", diff)
	}
	want := output.Row{
		Folder:  "Top of Personal Folders/Inbox",
		Subject: "hello",
		From:    "Alice Example",
		To:      "Bob",
		Date:    "2014-02-26 12:20:19 UTC",
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("first row (-want +got):\n%s", diff)
	}
	if rows[1].Date != "" {
		t.Errorf("undated row Date = %q, want empty", rows[1].Date)
	}
	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
}

func TestList_Formats(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	tests := []struct {
		format string
		want   []string
	}{
		{"csv", []string{"folder,subject,from,to,cc,date\n", "Top of Personal Folders/Inbox,hello,Alice Example,Bob,,2014-02-26 12:20:19 UTC\n"}},
		{"tsv", []string{"folder\tsubject\tfrom\tto\tcc\tdate\n", "Top of Personal Folders/Archive\told news\tBob\tAlice Example\t\t\n"}},
		{"table", []string{"Folder: Top of Personal Folders/Inbox\n", "Folder: Top of Personal Folders/Archive\n", "3 items\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			stdout, _, err := runCLI(t, "list", path, "-f", tt.format)
			if err != nil {
				t.Fatalf("list error = %v", err)
			}
			testutil.AssertContainsAll(t, stdout, tt.want)
		})
	}
}

func TestList_UnknownFormat(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	_, _, err := runCLI(t, "list", path, "--format", "xml")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	assertContains(t, err.Error(), "unknown format")
}

func TestList_Limit(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	stdout, _, err := runCLI(t, "list", path, "--format", "json", "--limit", "2")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if diff := cmp.Diff([]string{"hello", "lunch"}, subjectsOf(decodeRows(t, stdout))); diff != "" {
		t.Errorf("subjects (-want +got):\n%s", diff)
	}

	stdout, _, err = runCLI(t, "list", path, "--format", "json", "--limit", "0")
	if err != nil {
		t.Fatalf("list --limit 0 error = %v", err)
	}
	if stdout != "[]\n" {
		t.Errorf("--limit 0 output = %q, want empty array", stdout)
	}

	_, _, err = runCLI(t, "list", path, "--limit", "-1")
	if err == nil {
		t.Fatal("expected error for negative limit")
	}
	assertContains(t, err.Error(), "--limit must be a non-negative integer")
}

func TestList_ConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PSTEXPLORER_HOME", home)
	writeHomeConfig(t, home, "[output]\nformat = \"json\"\n\n[list]\nlimit = 1\n")
	path := mailbox().WriteFile(t)

	stdout, _, err := runCLI(t, "list", path)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if diff := cmp.Diff([]string{"hello"}, subjectsOf(decodeRows(t, stdout))); diff != "" {
		t.Errorf("subjects (-want +got):\n%s", diff)
	}

	// Flags win over the file.
	stdout, _, err = runCLI(t, "list", path, "--format", "csv", "--limit", "3")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if n := strings.Count(stdout, "\n"); n != 4 {
		t.Errorf("csv lines = %d, want header + 3:\n%s", n, stdout)
	}
}

func TestList_HomeFlag(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	home := t.TempDir()
	writeHomeConfig(t, home, "[output]\nformat = \"tsv\"\n")
	path := mailbox().WriteFile(t)

	stdout, _, err := runCLI(t, "--home", home, "list", path)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	assertContains(t, stdout, "folder\tsubject\tfrom\tto\tcc\tdate\n")
}

func TestSearch(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	tests := []struct {
		query string
		limit []string
		want  []string
	}{
		{"ALICE", nil, []string{"hello", "old news"}},
		{"noon", nil, []string{"lunch"}},
		{"lunch", nil, []string{}}, // subject only
		{"alice", []string{"--limit", "1"}, []string{"hello"}},
		{"nobody", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			args := append([]string{"search", path, tt.query, "--format", "json"}, tt.limit...)
			stdout, _, err := runCLI(t, args...)
			if err != nil {
				t.Fatalf("search error = %v", err)
			}
			if diff := cmp.Diff(tt.want, subjectsOf(decodeRows(t, stdout))); diff != "" {
				t.Errorf("subjects (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearch_HelpNamesSearchedFields(t *testing.T) {
	for _, text := range []string{searchCmd.Short, searchCmd.Long} {
		if strings.Contains(text, "subject,") || strings.Contains(text, "by subject") {
			t.Errorf("help claims subjects are searched: %q", text)
		}
	}
	assertContains(t, searchCmd.Long, "sender, To, Cc or body")
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	if _, _, err := runCLI(t, "search", path, ""); err == nil {
		t.Fatal("expected error for empty query")
	}
	if _, _, err := runCLI(t, "search", path); err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestStats(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	stdout, _, err := runCLI(t, "stats", path)
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	testutil.AssertContainsAll(t, stdout, []string{
		"PST statistics: fixture.pst\n",
		"Folders:            3\n",
		"Total items:        3\n",
		"Emails:             3\n",
		"Attachments:        1\n",
		"Earliest message:   2014-02-26 12:20:19 UTC\n",
	})
}

func TestExport(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)
	dest := filepath.Join(t.TempDir(), "out", "mail.db")

	stdout, _, err := runCLI(t, "export", path, "-o", dest)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	assertContains(t, stdout, "Exported 3 messages (1 attachments) from 3 folders to "+dest)
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("export database missing: %v", err)
	}

	stdout, _, err = runCLI(t, "export", path, "-o", dest, "--limit", "1")
	if err != nil {
		t.Fatalf("export --limit error = %v", err)
	}
	assertContains(t, stdout, "Exported 1 messages")
}

func TestExport_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PSTEXPLORER_HOME", home)
	exportDir := t.TempDir()
	writeHomeConfig(t, home, "[export]\ndir = \""+filepath.ToSlash(exportDir)+"\"\n\n[list]\nlimit = 1\n")
	path := mailbox().WriteFile(t)

	stdout, _, err := runCLI(t, "export", path)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	want := filepath.Join(exportDir, "fixture.db")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("default export path %s missing: %v", want, err)
	}
	// [list] limit does not cap exports.
	assertContains(t, stdout, "Exported 3 messages")
}

func TestOpenErrors(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pst")
	junk := filepath.Join(dir, "junk.pst")
	if err := os.WriteFile(junk, []byte(strings.Repeat("not a pst ", 100)), 0o600); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "x.db")

	for _, path := range []string{missing, junk} {
		for _, args := range [][]string{
			{"list", path},
			{"search", path, "alice"},
			{"stats", path},
			{"export", path, "-o", dest},
		} {
			t.Run(args[0]+" "+filepath.Base(path), func(t *testing.T) {
				_, _, err := runCLI(t, args...)
				if err == nil {
					t.Fatal("expected error")
				}
				assertContains(t, err.Error(), path)
			})
		}
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("export left a database behind: %v", err)
	}
}

func TestOpenErrors_Kinds(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.pst")
	if err := os.WriteFile(junk, make([]byte, 1024), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := openEngine(filepath.Join(dir, "missing.pst"))
	if !pst.IsIO(err) {
		t.Errorf("missing file error = %v, want I/O error", err)
	}
	_, _, err = openEngine(junk)
	if !pst.IsInvalidFormat(err) {
		t.Errorf("junk file error = %v, want invalid format", err)
	}
}

func TestPartialSummary(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	b := pstfixture.New(pstfixture.Options{})
	inbox := b.Root().AddFolder("Inbox")
	inbox.AddMessage(&pstfixture.Message{Subject: "ok"})
	inbox.AddMessage(&pstfixture.Message{
		Subject: "broken",
		Props:   []pstfixture.Prop{{ID: pst.PropBody, Value: pstfixture.Dangling(pst.TypeString)}},
	})
	inbox.AddDanglingMessage()
	path := b.WriteFile(t)

	stdout, stderr, err := runCLI(t, "list", path, "--format", "json")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if diff := cmp.Diff([]string{"ok", "broken"}, subjectsOf(decodeRows(t, stdout))); diff != "" {
		t.Errorf("subjects (-want +got):\n%s", diff)
	}
	if n := strings.Count(stderr, "records partially decoded"); n != 1 {
		t.Errorf("partial summary printed %d times:\n%s", n, stderr)
	}
	testutil.AssertContainsAll(t, stderr, []string{
		"1 records partially decoded\n",
		"1 folder or item references skipped\n",
	})
}

func TestList_Cancelled(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := runCLIContext(t, ctx, "list", path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("list error = %v, want context.Canceled", err)
	}
}

func TestBrowse_NeedsTerminal(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := mailbox().WriteFile(t)

	_, _, err := runCLI(t, "browse", path)
	if !errors.Is(err, errNotTerminal) {
		t.Errorf("browse error = %v, want %v", err, errNotTerminal)
	}
}

func TestDisplayVersion(t *testing.T) {
	tests := map[string]string{
		"v1.2.3":     "v1.2.3",
		"1.2":        "v1.2.0",
		"v0.4.0-rc1": "0.4.0-rc1 (development build)",
		"dev":        "dev (development build)",
	}
	for in, want := range tests {
		if got := displayVersion(in); got != want {
			t.Errorf("displayVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	// version must work even with a broken config.
	home := t.TempDir()
	t.Setenv("PSTEXPLORER_HOME", home)
	writeHomeConfig(t, home, "not toml [")

	stdout, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	assertContains(t, stdout, "pstexplorer "+displayVersion(Version)+"\n")
}
