// Package output renders records and statistics for the command line.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/stchris/pstexplorer/internal/record"
)

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatTSV   Format = "tsv"
	FormatJSON  Format = "json"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatTable, FormatCSV, FormatTSV, FormatJSON}

// ParseFormat accepts a format name in any case. The empty string is the
// table format.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatTable, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want table, csv, tsv or json)", s)
}

// Row is the field set shared by the structured formats.
type Row struct {
	Folder  string `json:"folder"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
	Cc      string `json:"cc"`
	Date    string `json:"date"`
}

// Header is the column order of CSV and TSV output.
var Header = []string{"folder", "subject", "from", "to", "cc", "date"}

// RowOf extracts the output fields of a record. Unknown dates are empty.
func RowOf(r *record.Record) Row {
	return Row{
		Folder:  r.FolderPath,
		Subject: r.Subject,
		From:    r.From(),
		To:      r.To(),
		Cc:      r.Cc(),
		Date:    r.Date.String(),
	}
}

func (r Row) fields() []string {
	return []string{r.Folder, r.Subject, r.From, r.To, r.Cc, r.Date}
}

// RecordWriter writes a stream of records. Close must be called once after
// the last record; it completes the document and reports the first error.
type RecordWriter interface {
	Write(r *record.Record) error
	Close() error
}

// NewRecordWriter returns a writer for format f. width is the terminal
// width used by the table format; zero or less selects a default.
func NewRecordWriter(w io.Writer, f Format, width int) (RecordWriter, error) {
	switch f {
	case FormatTable, "":
		return newTableWriter(w, width), nil
	case FormatCSV:
		return &csvWriter{w: csv.NewWriter(w)}, nil
	case FormatTSV:
		return &tsvWriter{w: w}, nil
	case FormatJSON:
		return &jsonWriter{w: w}, nil
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

type csvWriter struct {
	w      *csv.Writer
	header bool
}

func (c *csvWriter) Write(r *record.Record) error {
	if !c.header {
		c.header = true
		if err := c.w.Write(Header); err != nil {
			return err
		}
	}
	return c.w.Write(RowOf(r).fields())
}

func (c *csvWriter) Close() error {
	if !c.header {
		c.header = true
		_ = c.w.Write(Header)
	}
	c.w.Flush()
	return c.w.Error()
}

// tsvWriter writes tab-separated values. Tabs and line breaks inside a
// field become spaces; nothing is quoted.
type tsvWriter struct {
	w      io.Writer
	header bool
	err    error
}

var tsvReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func (t *tsvWriter) line(fields []string) {
	if t.err != nil {
		return
	}
	for i, f := range fields {
		fields[i] = tsvReplacer.Replace(f)
	}
	_, t.err = io.WriteString(t.w, strings.Join(fields, "\t")+"\n")
}

func (t *tsvWriter) Write(r *record.Record) error {
	if !t.header {
		t.header = true
		t.line(append([]string(nil), Header...))
	}
	t.line(RowOf(r).fields())
	return t.err
}

func (t *tsvWriter) Close() error {
	if !t.header {
		t.header = true
		t.line(append([]string(nil), Header...))
	}
	return t.err
}

// jsonWriter streams a JSON array, one indented object per record.
type jsonWriter struct {
	w   io.Writer
	n   int
	err error
}

func (j *jsonWriter) write(s string) {
	if j.err == nil {
		_, j.err = io.WriteString(j.w, s)
	}
}

func (j *jsonWriter) Write(r *record.Record) error {
	b, err := json.MarshalIndent(RowOf(r), "  ", "  ")
	if err != nil {
		return err
	}
	if j.n == 0 {
		j.write("[\n  ")
	} else {
		j.write(",\n  ")
	}
	j.n++
	j.write(string(b))
	return j.err
}

func (j *jsonWriter) Close() error {
	if j.n == 0 {
		j.write("[]\n")
	} else {
		j.write("\n]\n")
	}
	return j.err
}

// Placeholders used by the table format for missing values.
const (
	NoSubject     = "No Subject"
	UnknownSender = "Unknown Sender"
	UnknownDate   = "Unknown Date"
)

const defaultWidth = 120

// tableWriter prints one block per folder with aligned subject, from, to
// and date columns.
type tableWriter struct {
	w                 io.Writer
	subject, from, to int
	folder            string
	started           bool
	n                 int
	err               error
}

func newTableWriter(w io.Writer, width int) *tableWriter {
	if width <= 0 {
		width = defaultWidth
	}
	// Date is fixed width; the rest is shared 2:1:1 after three gaps.
	rest := width - len("2006-01-02 15:04:05 UTC") - 3*2
	if rest < 30 {
		rest = 30
	}
	return &tableWriter{w: w, subject: rest / 2, from: rest / 4, to: rest - rest/2 - rest/4}
}

func (t *tableWriter) printf(format string, args ...any) {
	if t.err == nil {
		_, t.err = fmt.Fprintf(t.w, format, args...)
	}
}

func (t *tableWriter) Write(r *record.Record) error {
	if !t.started || r.FolderPath != t.folder {
		if t.started {
			t.printf("\n")
		}
		t.started = true
		t.folder = r.FolderPath
		t.printf("Folder: %s\n", r.FolderPath)
		t.printf("  %s  %s  %s  %s\n",
			cell("SUBJECT", t.subject), cell("FROM", t.from), cell("TO", t.to), "DATE")
	}
	subject := orDefault(r.Subject, NoSubject)
	from := orDefault(r.From(), UnknownSender)
	date := orDefault(r.Date.String(), UnknownDate)
	t.printf("  %s  %s  %s  %s\n", cell(subject, t.subject), cell(from, t.from), cell(r.To(), t.to), date)
	t.n++
	return t.err
}

func (t *tableWriter) Close() error {
	if t.started {
		t.printf("\n")
	}
	noun := "items"
	if t.n == 1 {
		noun = "item"
	}
	t.printf("%d %s\n", t.n, noun)
	return t.err
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// cell flattens s to one line and fits it to exactly width terminal
// columns.
func cell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}
