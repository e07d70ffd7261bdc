// Package walker traverses the folder hierarchy of a PST container.
//
// Folders are visited depth-first in the order the container's hierarchy
// tables list them. Items are streamed one contents-table row at a time;
// neither folders nor items are materialized in full. References to nodes
// that do not exist are skipped with a warning, and a folder whose own
// properties cannot be read is described from its hierarchy-table row, so
// that one damaged subtree does not stop a listing.
package walker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/stchris/pstexplorer/internal/pst"
)

// Folder is a decoded folder.
type Folder struct {
	ID            pst.NodeID
	ParentID      pst.NodeID
	Name          string
	Path          string
	Depth         int
	ItemCount     int
	HasSubfolders bool

	parent *Folder
}

// Parent returns the folder this one was reached from, or nil for the root.
func (f *Folder) Parent() *Folder { return f.parent }

// ItemHandle refers to an undecoded item.
type ItemHandle struct {
	ID     pst.NodeID
	Folder *Folder
	Row    int

	node *pst.Node
}

// Node returns the item's node.
func (h ItemHandle) Node() *pst.Node { return h.node }

// Walker walks one container. It is not safe for concurrent use.
type Walker struct {
	file     *pst.File
	log      *slog.Logger
	warnings int
}

// New creates a walker. A nil logger uses slog.Default().
func New(f *pst.File, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{file: f, log: logger}
}

// Warnings returns how many dangling or cyclic references were skipped.
func (w *Walker) Warnings() int { return w.warnings }

func (w *Walker) warn(msg string, args ...any) {
	w.warnings++
	w.log.Warn(msg, args...)
}

// Root returns the top of the visible hierarchy: the store's IPM subtree,
// or the root folder when the store does not name one.
func (w *Walker) Root() (*Folder, error) {
	nid := w.file.Store().Root()
	n, err := w.file.ReadNode(nid)
	if pst.IsNotFound(err) && nid != pst.NIDRootFolder {
		w.warn("IPM subtree missing, using root folder", "node", nid)
		nid = pst.NIDRootFolder
		n, err = w.file.ReadNode(nid)
	}
	if err != nil {
		return nil, err
	}
	return w.folder(n, nil)
}

// folder decodes a folder node's property context.
func (w *Walker) folder(n *pst.Node, parent *Folder) (*Folder, error) {
	pc, err := n.PropertyContext()
	if err != nil {
		return nil, err
	}
	name, err := pc.String(pst.PropDisplayName)
	if err != nil {
		return nil, err
	}
	f := newFolder(n.ID, name, parent)
	if count, ok := pc.Int32(pst.PropContentCount); ok && count > 0 {
		f.ItemCount = int(count)
	}
	f.HasSubfolders, _ = pc.Bool(pst.PropSubfolders)
	return f, nil
}

func newFolder(id pst.NodeID, name string, parent *Folder) *Folder {
	f := &Folder{ID: id, Name: name, Path: name, parent: parent}
	if parent != nil {
		f.ParentID = parent.ID
		f.Depth = parent.Depth + 1
		f.Path = joinPath(parent.Path, name)
	}
	return f
}

// rowFolder describes a folder from its parent's hierarchy-table row. The
// row carries the same name and counts as the folder's property context.
func rowFolder(id pst.NodeID, row pst.Row, parent *Folder) *Folder {
	name, err := row.String(pst.PropDisplayName)
	if err != nil || name == "" {
		name = fmt.Sprintf("folder %s", id)
	}
	f := newFolder(id, name, parent)
	if count, ok := row.Int32(pst.PropContentCount); ok && count > 0 {
		f.ItemCount = int(count)
	}
	f.HasSubfolders, _ = row.Bool(pst.PropSubfolders)
	return f
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// onPath reports whether id is folder f or one of its ancestors.
func onPath(f *Folder, id pst.NodeID) bool {
	for ; f != nil; f = f.parent {
		if f.ID == id {
			return true
		}
	}
	return false
}

// table opens a folder's sibling table node. A missing table is an empty
// one.
func (w *Walker) table(f *Folder, typ uint8, what string) (*pst.Table, error) {
	n, err := w.file.ReadNode(f.ID.WithType(typ))
	if pst.IsNotFound(err) {
		w.warn("folder has no "+what, "folder", f.Path, "node", f.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n.Table()
}

// FolderIter yields the subfolders of one folder.
type FolderIter struct {
	w      *Walker
	parent *Folder
	table  *pst.Table
	row    int
	opened bool
}

// Children returns an iterator over parent's subfolders. Each call starts
// from the first subfolder again.
func (w *Walker) Children(parent *Folder) *FolderIter {
	return &FolderIter{w: w, parent: parent}
}

// Next returns the next subfolder, or io.EOF after the last one.
func (it *FolderIter) Next() (*Folder, error) {
	if !it.opened {
		it.opened = true
		t, err := it.w.table(it.parent, pst.NIDTypeHierarchyTable, "hierarchy table")
		if err != nil {
			return nil, err
		}
		it.table = t
	}
	if it.table == nil {
		return nil, io.EOF
	}
	for it.row < it.table.Len() {
		row, err := it.table.Row(it.row)
		if err != nil {
			return nil, err
		}
		it.row++
		id := row.ID()
		if onPath(it.parent, id) {
			it.w.warn("skipping folder that contains itself", "folder", it.parent.Path, "node", id)
			continue
		}
		n, err := it.w.file.ReadNode(id)
		if pst.IsNotFound(err) {
			it.w.warn("skipping missing subfolder", "folder", it.parent.Path, "node", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		f, err := it.w.folder(n, it.parent)
		if err != nil {
			it.w.log.Warn("folder properties unreadable, using hierarchy row", "folder", it.parent.Path, "node", id, "error", err)
			f = rowFolder(id, row, it.parent)
		}
		return f, nil
	}
	return nil, io.EOF
}

// ItemIter yields the items of one folder.
type ItemIter struct {
	w      *Walker
	folder *Folder
	table  *pst.Table
	row    int
	opened bool
}

// Items returns an iterator over the items of f in contents-table order.
func (w *Walker) Items(f *Folder) *ItemIter {
	return &ItemIter{w: w, folder: f}
}

// Next returns the next item, or io.EOF after the last one.
func (it *ItemIter) Next() (ItemHandle, error) {
	if !it.opened {
		it.opened = true
		t, err := it.w.table(it.folder, pst.NIDTypeContentsTable, "contents table")
		if err != nil {
			return ItemHandle{}, err
		}
		it.table = t
	}
	if it.table == nil {
		return ItemHandle{}, io.EOF
	}
	for it.row < it.table.Len() {
		h, err := it.w.handle(it.folder, it.table, it.row)
		it.row++
		if pst.IsNotFound(err) {
			it.w.warn("skipping missing item", "folder", it.folder.Path, "row", it.row-1, "error", err)
			continue
		}
		if err != nil {
			return ItemHandle{}, err
		}
		return h, nil
	}
	return ItemHandle{}, io.EOF
}

func (w *Walker) handle(f *Folder, t *pst.Table, i int) (ItemHandle, error) {
	row, err := t.Row(i)
	if err != nil {
		return ItemHandle{}, err
	}
	id := row.ID()
	n, err := w.file.ReadNode(id)
	if err != nil {
		return ItemHandle{ID: id, Folder: f, Row: i}, err
	}
	return ItemHandle{ID: id, Folder: f, Row: i, node: n}, nil
}

// ItemTable gives random access to a folder's items, for paging UIs.
type ItemTable struct {
	w      *Walker
	folder *Folder
	table  *pst.Table
}

// ItemTable opens the contents table of f.
func (w *Walker) ItemTable(f *Folder) (*ItemTable, error) {
	t, err := w.table(f, pst.NIDTypeContentsTable, "contents table")
	if err != nil {
		return nil, err
	}
	return &ItemTable{w: w, folder: f, table: t}, nil
}

// Len returns the number of rows, dangling ones included.
func (t *ItemTable) Len() int {
	if t.table == nil {
		return 0
	}
	return t.table.Len()
}

// Handle returns the item in row i. A dangling row reports
// pst.ErrNodeNotFound along with a handle carrying the id.
func (t *ItemTable) Handle(i int) (ItemHandle, error) {
	if i < 0 || i >= t.Len() {
		return ItemHandle{}, fmt.Errorf("item %d out of range [0,%d)", i, t.Len())
	}
	return t.w.handle(t.folder, t.table, i)
}

// Walk calls fn for every folder depth-first, parents before children,
// starting at the root. It stops at the first error from fn or the
// container, or when ctx is done.
func (w *Walker) Walk(ctx context.Context, fn func(*Folder) error) error {
	root, err := w.Root()
	if err != nil {
		return err
	}
	return w.walk(ctx, root, fn)
}

func (w *Walker) walk(ctx context.Context, f *Folder, fn func(*Folder) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	it := w.Children(f)
	for {
		child, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.walk(ctx, child, fn); err != nil {
			return err
		}
	}
}
