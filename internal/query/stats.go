package query

import (
	"context"
	"time"

	"github.com/stchris/pstexplorer/internal/record"
	"github.com/stchris/pstexplorer/internal/walker"
)

// Stats is a snapshot of one full pass over a container.
type Stats struct {
	Folders     int
	Total       int
	ByKind      map[record.Kind]int
	Attachments int

	// Partial counts records that decoded only in part. They are included
	// in Total and ByKind.
	Partial int

	// Skipped counts dangling or cyclic references left out of the pass.
	Skipped int

	// Earliest and Latest span the dated records; nil when none is dated.
	Earliest *time.Time
	Latest   *time.Time
}

// Stats counts folders, items per kind and attachments, and finds the date
// range. Undated records count toward the totals but not the range.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{ByKind: make(map[record.Kind]int, len(record.Kinds))}
	skipped := e.walker.Warnings()

	c := e.List(ctx, NoLimit)
	c.onFolder = func(*walker.Folder) { s.Folders++ }
	defer c.Close()
	for c.Next() {
		s.add(c.Record())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	s.Partial = c.Partial()
	s.Skipped = e.walker.Warnings() - skipped
	return s, nil
}

func (s *Stats) add(r *record.Record) {
	s.Total++
	s.ByKind[r.Kind]++
	s.Attachments += len(r.Attachments)
	t, ok := r.Date.Time()
	if !ok {
		return
	}
	if s.Earliest == nil || t.Before(*s.Earliest) {
		s.Earliest = &t
	}
	if s.Latest == nil || t.After(*s.Latest) {
		latest := t
		s.Latest = &latest
	}
}
