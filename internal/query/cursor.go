package query

import (
	"context"
	"io"

	"github.com/stchris/pstexplorer/internal/record"
	"github.com/stchris/pstexplorer/internal/walker"
)

// frame is one folder on the traversal stack.
type frame struct {
	folder   *walker.Folder
	items    *walker.ItemIter
	children *walker.FolderIter
	itemsEOF bool
}

// Cursor is a pull iterator over records:
//
//	c := engine.List(ctx, query.NoLimit)
//	defer c.Close()
//	for c.Next() {
//		rec := c.Record()
//	}
//	if err := c.Err(); err != nil { ... }
//
// Items of a folder come before its subfolders. Records that only partly
// decoded are still yielded; Partial counts them.
type Cursor struct {
	ctx    context.Context
	e      *Engine
	limit  int
	match  func(*record.Record) bool
	stack  []*frame
	start  bool
	done   bool
	n      int
	rec    *record.Record
	handle walker.ItemHandle
	err    error

	partial int

	// onFolder, when set, sees every folder as it is entered.
	onFolder func(*walker.Folder)
}

func newCursor(ctx context.Context, e *Engine, limit int, match func(*record.Record) bool) *Cursor {
	return &Cursor{ctx: ctx, e: e, limit: limit, match: match, done: limit == 0}
}

// Next advances to the next record. It returns false at the end, at the
// limit, on a fatal error or when the context is done.
func (c *Cursor) Next() bool {
	c.rec = nil
	if c.done {
		return false
	}
	if !c.start {
		c.start = true
		root, err := c.e.walker.Root()
		if err != nil {
			return c.fail(err)
		}
		c.push(root)
	}
	for len(c.stack) > 0 {
		if err := c.ctx.Err(); err != nil {
			return c.fail(err)
		}
		top := c.stack[len(c.stack)-1]
		if !top.itemsEOF {
			h, err := top.items.Next()
			if err == io.EOF {
				top.itemsEOF = true
				continue
			}
			if err != nil {
				return c.fail(err)
			}
			rec, derr := c.e.dec.Decode(h)
			if derr != nil {
				c.partial++
				c.e.log.Debug("record partially decoded", "error", derr)
			}
			if c.match != nil && !c.match(rec) {
				continue
			}
			c.rec, c.handle = rec, h
			c.n++
			if c.limit >= 0 && c.n >= c.limit {
				c.done = true
			}
			return true
		}
		child, err := top.children.Next()
		if err == io.EOF {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		if err != nil {
			return c.fail(err)
		}
		c.push(child)
	}
	c.done = true
	return false
}

func (c *Cursor) push(f *walker.Folder) {
	if c.onFolder != nil {
		c.onFolder(f)
	}
	c.stack = append(c.stack, &frame{
		folder:   f,
		items:    c.e.walker.Items(f),
		children: c.e.walker.Children(f),
	})
}

func (c *Cursor) fail(err error) bool {
	c.err = err
	c.done = true
	c.stack = nil
	return false
}

// Record returns the current record.
func (c *Cursor) Record() *record.Record { return c.rec }

// Handle returns the item handle of the current record.
func (c *Cursor) Handle() walker.ItemHandle { return c.handle }

// Err returns the error that ended iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Partial returns how many of the records seen so far, matched or not,
// decoded only in part.
func (c *Cursor) Partial() int { return c.partial }

// Close stops iteration. The container stays open.
func (c *Cursor) Close() error {
	c.done = true
	c.stack = nil
	c.rec = nil
	return nil
}
