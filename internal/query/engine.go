// Package query streams decoded records out of a PST container.
//
// Every consumer (list, search, stats, export, browse) reads through an
// Engine so that traversal order, decoding and error accounting are the same
// everywhere. Records are decoded lazily, one per Cursor.Next call.
package query

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/stchris/pstexplorer/internal/pst"
	"github.com/stchris/pstexplorer/internal/record"
	"github.com/stchris/pstexplorer/internal/walker"
)

// NoLimit disables the record limit of List and Search.
const NoLimit = -1

// Engine answers queries over one open container. It is not safe for
// concurrent use.
type Engine struct {
	file   *pst.File
	walker *walker.Walker
	dec    *record.Decoder
	log    *slog.Logger
}

// NewEngine prepares an engine over f. A nil logger uses slog.Default().
func NewEngine(f *pst.File, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dec, err := record.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &Engine{
		file:   f,
		walker: walker.New(f, logger),
		dec:    dec,
		log:    logger,
	}, nil
}

// Skipped returns how many dangling or cyclic references the traversal
// has skipped so far.
func (e *Engine) Skipped() int { return e.walker.Warnings() }

// List streams every item in depth-first folder order. A negative limit
// means no limit; zero yields nothing.
func (e *Engine) List(ctx context.Context, limit int) *Cursor {
	return newCursor(ctx, e, limit, nil)
}

// Search streams the items whose sender, recipients or body contain q,
// ignoring case. Results keep traversal order. An empty query matches
// everything.
func (e *Engine) Search(ctx context.Context, q string, limit int) *Cursor {
	if q == "" {
		return e.List(ctx, limit)
	}
	needle := strings.ToLower(q)
	return newCursor(ctx, e, limit, func(r *record.Record) bool {
		return Matches(r, needle)
	})
}

// Matches reports whether the lowercased needle occurs in the record's
// from, to, cc and body text, joined by newlines.
func Matches(r *record.Record, needle string) bool {
	hay := strings.Join([]string{r.From(), r.To(), r.Cc(), r.Body}, "\n")
	return strings.Contains(strings.ToLower(hay), needle)
}

// Folders calls fn for every folder depth-first, parents first.
func (e *Engine) Folders(ctx context.Context, fn func(*walker.Folder) error) error {
	return e.walker.Walk(ctx, fn)
}

// Root returns the top of the visible folder hierarchy.
func (e *Engine) Root() (*walker.Folder, error) {
	return e.walker.Root()
}

// Subfolders returns the direct children of f in hierarchy order.
func (e *Engine) Subfolders(f *walker.Folder) ([]*walker.Folder, error) {
	var out []*walker.Folder
	it := e.walker.Children(f)
	for {
		c, err := it.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("list subfolders of %s: %w", f.Path, err)
		}
		out = append(out, c)
	}
}

// Items opens the contents of f for random access.
func (e *Engine) Items(f *walker.Folder) (*walker.ItemTable, error) {
	t, err := e.walker.ItemTable(f)
	if err != nil {
		return nil, fmt.Errorf("open items of %s: %w", f.Path, err)
	}
	return t, nil
}

// Summary decodes the header fields of one item.
func (e *Engine) Summary(h walker.ItemHandle) (*record.Record, error) {
	return e.dec.Summary(h)
}

// Decode fully decodes one item.
func (e *Engine) Decode(h walker.ItemHandle) (*record.Record, error) {
	return e.dec.Decode(h)
}

// SearchHandles runs Search and returns the handles of the matches, for
// callers that page through results and decode them again on demand.
func (e *Engine) SearchHandles(ctx context.Context, q string, limit int) ([]walker.ItemHandle, error) {
	c := e.Search(ctx, q, limit)
	defer c.Close()
	var out []walker.ItemHandle
	for c.Next() {
		out = append(out, c.Handle())
	}
	return out, c.Err()
}
