package output

import (
	"fmt"
	"io"

	"github.com/stchris/pstexplorer/internal/query"
	"github.com/stchris/pstexplorer/internal/record"
)

var kindLabels = map[record.Kind]string{
	record.KindEmail:    "Emails",
	record.KindCalendar: "Calendar items",
	record.KindContact:  "Contacts",
	record.KindTask:     "Tasks",
	record.KindNote:     "Notes",
}

// WriteStats prints a fixed-field summary. Kinds other than email are only
// listed when present.
func WriteStats(w io.Writer, name string, s *query.Stats) error {
	p := &printer{w: w}
	p.printf("PST statistics: %s\n", name)
	p.field("Folders", s.Folders)
	p.field("Total items", s.Total)
	for _, k := range record.Kinds {
		if n := s.ByKind[k]; n > 0 || k == record.KindEmail {
			p.field(kindLabels[k], n)
		}
	}
	p.field("Attachments", s.Attachments)
	if s.Earliest != nil && s.Latest != nil {
		p.field("Earliest message", s.Earliest.UTC().Format(record.DateLayout))
		p.field("Latest message", s.Latest.UTC().Format(record.DateLayout))
	} else {
		p.field("Date range", "none")
	}
	if s.Partial > 0 {
		p.field("Partially decoded", s.Partial)
	}
	if s.Skipped > 0 {
		p.field("Skipped references", s.Skipped)
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format, args...)
	}
}

func (p *printer) field(label string, v any) {
	p.printf("  %-19s %v\n", label+":", v)
}
