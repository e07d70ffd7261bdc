package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/stchris/pstexplorer/internal/query"
	"github.com/stchris/pstexplorer/internal/record"
	"github.com/stchris/pstexplorer/internal/walker"
)

// Source is the read side the browser needs. *query.Engine implements it.
type Source interface {
	Root() (*walker.Folder, error)
	Subfolders(f *walker.Folder) ([]*walker.Folder, error)
	Items(f *walker.Folder) (*walker.ItemTable, error)
	Summary(h walker.ItemHandle) (*record.Record, error)
	Decode(h walker.ItemHandle) (*record.Record, error)
	SearchHandles(ctx context.Context, q string, limit int) ([]walker.ItemHandle, error)
}

var _ Source = (*query.Engine)(nil)

// State is the screen the browser is on.
type State int

const (
	StateFolders State = iota
	StateItems
	StatePreview
	StateQuit
)

func (s State) String() string {
	switch s {
	case StateFolders:
		return "folders"
	case StateItems:
		return "items"
	case StatePreview:
		return "preview"
	case StateQuit:
		return "quit"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ActionKind enumerates browser inputs.
type ActionKind int

const (
	ActionUp ActionKind = iota
	ActionDown
	ActionPageUp
	ActionPageDown
	ActionEnter
	ActionDescend
	ActionBack
	ActionQuit
	ActionSearch
)

// Action is one browser input. Query is used by ActionSearch only.
type Action struct {
	Kind  ActionKind
	Query string
}

// Convenience actions.
var (
	Up       = Action{Kind: ActionUp}
	Down     = Action{Kind: ActionDown}
	PageUp   = Action{Kind: ActionPageUp}
	PageDown = Action{Kind: ActionPageDown}
	Enter    = Action{Kind: ActionEnter}
	Descend  = Action{Kind: ActionDescend}
	Back     = Action{Kind: ActionBack}
	Quit     = Action{Kind: ActionQuit}
)

// Search returns a search action for q.
func Search(q string) Action { return Action{Kind: ActionSearch, Query: q} }

// itemList is a random access sequence of item handles.
type itemList interface {
	Len() int
	Handle(i int) (walker.ItemHandle, error)
}

// handleList holds search results.
type handleList []walker.ItemHandle

func (l handleList) Len() int { return len(l) }

func (l handleList) Handle(i int) (walker.ItemHandle, error) {
	if i < 0 || i >= len(l) {
		return walker.ItemHandle{}, fmt.Errorf("result %d out of range [0,%d)", i, len(l))
	}
	return l[i], nil
}

// folderLevel is one entry of the folder stack: the listed subfolders of
// a parent and the cursor over them.
type folderLevel struct {
	parent  *walker.Folder
	folders []*walker.Folder
	cursor  int
	offset  int
}

// Browser is the navigation state machine behind the browse screen. It
// decodes item summaries only for the rows that are displayed and caches
// them until the item list changes.
type Browser struct {
	src      Source
	ctx      context.Context
	state    State
	pageSize int
	width    int

	stack []folderLevel

	items      itemList
	itemsTitle string
	query      string
	itemCursor int
	itemOffset int
	summaries  map[int]*record.Record

	preview       *record.Record
	previewLines  []string
	previewScroll int

	status string
}

// NewBrowser opens the root folder of src. ctx bounds searches.
func NewBrowser(ctx context.Context, src Source) (*Browser, error) {
	root, err := src.Root()
	if err != nil {
		return nil, err
	}
	subs, err := src.Subfolders(root)
	if err != nil {
		return nil, err
	}
	return &Browser{
		src:      src,
		ctx:      ctx,
		state:    StateFolders,
		pageSize: 20,
		width:    80,
		stack:    []folderLevel{{parent: root, folders: subs}},
	}, nil
}

// State returns the current screen.
func (b *Browser) State() State { return b.state }

// Status returns the message of the last failed action, or "".
func (b *Browser) Status() string { return b.status }

// Resize sets the number of visible rows and the preview wrap width.
func (b *Browser) Resize(width, pageSize int) {
	if pageSize < 1 {
		pageSize = 1
	}
	b.pageSize = pageSize
	if width > 0 && width != b.width {
		b.width = width
		if b.preview != nil {
			b.previewLines = wrapText(previewText(b.preview), b.width)
		}
	}
	b.clampPreview()
	lvl := b.level()
	lvl.offset = calculateScrollOffset(lvl.cursor, lvl.offset, b.pageSize)
	b.itemOffset = calculateScrollOffset(b.itemCursor, b.itemOffset, b.pageSize)
}

func (b *Browser) level() *folderLevel { return &b.stack[len(b.stack)-1] }

// Apply feeds one action to the state machine. Quit is terminal.
func (b *Browser) Apply(a Action) {
	if b.state == StateQuit {
		return
	}
	b.status = ""
	switch a.Kind {
	case ActionQuit:
		b.state = StateQuit
	case ActionUp:
		b.move(-1)
	case ActionDown:
		b.move(1)
	case ActionPageUp:
		b.move(-b.pageSize)
	case ActionPageDown:
		b.move(b.pageSize)
	case ActionEnter:
		b.enter()
	case ActionDescend:
		b.descend()
	case ActionBack:
		b.back()
	case ActionSearch:
		b.search(a.Query)
	}
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func (b *Browser) move(delta int) {
	switch b.state {
	case StateFolders:
		lvl := b.level()
		if len(lvl.folders) == 0 {
			return
		}
		lvl.cursor = clamp(lvl.cursor+delta, 0, len(lvl.folders)-1)
		lvl.offset = calculateScrollOffset(lvl.cursor, lvl.offset, b.pageSize)
	case StateItems:
		n := b.items.Len()
		if n == 0 {
			return
		}
		b.itemCursor = clamp(b.itemCursor+delta, 0, n-1)
		b.itemOffset = calculateScrollOffset(b.itemCursor, b.itemOffset, b.pageSize)
	case StatePreview:
		b.previewScroll += delta
		b.clampPreview()
	}
}

func (b *Browser) clampPreview() {
	b.previewScroll = clamp(b.previewScroll, 0, max(len(b.previewLines)-b.pageSize, 0))
}

func (b *Browser) enter() {
	switch b.state {
	case StateFolders:
		f := b.CurrentFolder()
		if f == nil {
			return
		}
		items, err := b.src.Items(f)
		if err != nil {
			b.status = err.Error()
			return
		}
		b.openItems(items, f.Path, "")
	case StateItems:
		if b.items.Len() == 0 {
			return
		}
		h, err := b.items.Handle(b.itemCursor)
		if err != nil {
			b.status = err.Error()
			return
		}
		// Decode returns the record even when some fields fail.
		rec, err := b.src.Decode(h)
		if err != nil {
			b.status = err.Error()
		}
		if rec == nil {
			return
		}
		b.preview = rec
		b.previewLines = wrapText(previewText(rec), b.width)
		b.previewScroll = 0
		b.state = StatePreview
	}
}

func (b *Browser) openItems(items itemList, title, q string) {
	b.items = items
	b.itemsTitle = title
	b.query = q
	b.itemCursor = 0
	b.itemOffset = 0
	b.summaries = make(map[int]*record.Record)
	b.state = StateItems
}

func (b *Browser) descend() {
	if b.state != StateFolders {
		return
	}
	f := b.CurrentFolder()
	if f == nil {
		return
	}
	subs, err := b.src.Subfolders(f)
	if err != nil {
		b.status = err.Error()
		return
	}
	if len(subs) == 0 {
		return
	}
	b.stack = append(b.stack, folderLevel{parent: f, folders: subs})
}

func (b *Browser) back() {
	switch b.state {
	case StateFolders:
		if len(b.stack) > 1 {
			b.stack = b.stack[:len(b.stack)-1]
		}
	case StateItems:
		b.state = StateFolders
		b.items = nil
		b.summaries = nil
		b.query = ""
	case StatePreview:
		b.state = StateItems
		b.preview = nil
		b.previewLines = nil
		b.previewScroll = 0
	}
}

func (b *Browser) search(q string) {
	if q == "" || b.state == StatePreview {
		return
	}
	hs, err := b.src.SearchHandles(b.ctx, q, query.NoLimit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			b.state = StateQuit
			return
		}
		b.status = err.Error()
		return
	}
	b.openItems(handleList(hs), fmt.Sprintf("Search: %s", q), q)
}

// Path returns the path of the folder whose subfolders are listed.
func (b *Browser) Path() string { return b.level().parent.Path }

// Depth returns how many levels below the root the folder list is.
func (b *Browser) Depth() int { return len(b.stack) - 1 }

// Folders returns the listed folders with the cursor and scroll offset.
func (b *Browser) Folders() (folders []*walker.Folder, cursor, offset int) {
	lvl := b.level()
	return lvl.folders, lvl.cursor, lvl.offset
}

// CurrentFolder returns the folder under the cursor, or nil.
func (b *Browser) CurrentFolder() *walker.Folder {
	lvl := b.level()
	if len(lvl.folders) == 0 {
		return nil
	}
	return lvl.folders[lvl.cursor]
}

// ItemsTitle returns the folder path or search label of the item list.
func (b *Browser) ItemsTitle() string { return b.itemsTitle }

// Query returns the active search query, or "" when browsing a folder.
func (b *Browser) Query() string { return b.query }

// ItemCount returns the length of the item list.
func (b *Browser) ItemCount() int {
	if b.items == nil {
		return 0
	}
	return b.items.Len()
}

// ItemCursor returns the cursor and scroll offset of the item list.
func (b *Browser) ItemCursor() (cursor, offset int) { return b.itemCursor, b.itemOffset }

// VisibleItems returns summaries for the rows in the scroll window. Rows
// that cannot be read are nil.
func (b *Browser) VisibleItems() []*record.Record {
	n := b.ItemCount()
	end := min(b.itemOffset+b.pageSize, n)
	if b.itemOffset >= end {
		return nil
	}
	out := make([]*record.Record, 0, end-b.itemOffset)
	for i := b.itemOffset; i < end; i++ {
		out = append(out, b.summary(i))
	}
	return out
}

func (b *Browser) summary(i int) *record.Record {
	if r, ok := b.summaries[i]; ok {
		return r
	}
	var rec *record.Record
	if h, err := b.items.Handle(i); err == nil {
		rec, _ = b.src.Summary(h)
	}
	b.summaries[i] = rec
	return rec
}

// Cached returns how many item summaries have been decoded for the
// current list.
func (b *Browser) Cached() int { return len(b.summaries) }

// Preview returns the open record and its wrapped lines with the scroll
// offset.
func (b *Browser) Preview() (rec *record.Record, lines []string, scroll int) {
	return b.preview, b.previewLines, b.previewScroll
}
