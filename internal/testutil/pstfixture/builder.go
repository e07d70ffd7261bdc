// Package pstfixture writes small synthetic PST containers for tests.
//
// The output follows the on-disk structures the reader understands: header,
// node and block B-trees, data trees, subnode trees, heap-on-node, property
// and table contexts and the name-to-id map. It does not write allocation
// maps, CRCs or search structures.
package pstfixture

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stchris/pstexplorer/internal/pst"
)

// Format selects the container variant.
type Format int

const (
	Unicode Format = iota
	ANSI
)

func (f Format) String() string {
	if f == ANSI {
		return "ansi"
	}
	return "unicode"
}

// Options control the shape of the generated container.
type Options struct {
	Format Format

	// Permute encodes data blocks with the permutative cipher.
	Permute bool

	// Cyclic encodes data blocks with the cyclic cipher. It takes
	// precedence over Permute.
	Cyclic bool

	// Password sets PidTagPstPassword on the message store.
	Password int32

	// StoreName is the display name of the message store.
	StoreName string

	// Fanout caps the entries per B-tree page, subnode block and XBLOCK so
	// that small containers still get multi-level trees. Zero means as
	// many as fit.
	Fanout int

	// BlockSize caps the payload of stream data blocks (bodies and large
	// values). Zero means the format maximum.
	BlockSize int
}

// Folder is a folder under construction.
type Folder struct {
	ID    pst.NodeID
	Name  string
	Class string
	Props []Prop

	b        *Builder
	parent   *Folder
	children []*Folder
	messages []*Message
	ghosts   []pst.NodeID
	lost     []pst.NodeID
}

// Message is a message under construction. Zero-valued fields are omitted
// from the property context.
type Message struct {
	ID pst.NodeID

	Class         string
	Subject       string
	SenderName    string
	SenderEmail   string
	To, Cc, Bcc   string
	Body          string
	BodyHTML      string
	RTFCompressed []byte
	SubmitTime    time.Time
	DeliveryTime  time.Time
	Size          int32
	Codepage      int32

	Attachments []Attachment
	Props       []Prop
	Named       []NamedProp
}

// Attachment is an attachment of a message.
type Attachment struct {
	Filename     string
	LongFilename string
	MimeType     string
	Size         int32
	Method       int32
	Data         []byte
	Props        []Prop
}

// Builder assembles a container.
type Builder struct {
	opts       Options
	root       *Folder
	searchRoot *Folder
	nextFolder uint32
	nextMsg    uint32
}

// New returns a builder whose visible root is "Top of Personal Folders".
func New(opts Options) *Builder {
	if opts.StoreName == "" {
		opts.StoreName = "Personal Folders"
	}
	b := &Builder{opts: opts, nextFolder: 0x400, nextMsg: 0x10000}
	b.root = b.newFolder("Top of Personal Folders", nil)
	b.searchRoot = b.newFolder("Search Root", nil)
	return b
}

func (b *Builder) newFolder(name string, parent *Folder) *Folder {
	b.nextFolder++
	return &Folder{
		ID:     pst.NodeID(b.nextFolder<<5 | pst.NIDTypeNormalFolder),
		Name:   name,
		b:      b,
		parent: parent,
	}
}

func (b *Builder) newMessageID() pst.NodeID {
	b.nextMsg++
	return pst.NodeID(b.nextMsg<<5 | pst.NIDTypeNormalMessage)
}

// Root returns the IPM subtree folder.
func (b *Builder) Root() *Folder { return b.root }

// AddFolder appends a subfolder.
func (f *Folder) AddFolder(name string) *Folder {
	c := f.b.newFolder(name, f)
	f.children = append(f.children, c)
	return c
}

// AddMessage appends a message and assigns its ID.
func (f *Folder) AddMessage(m *Message) *Message {
	m.ID = f.b.newMessageID()
	f.messages = append(f.messages, m)
	return m
}

// AddDanglingFolder lists a subfolder in the hierarchy table without
// writing its node.
func (f *Folder) AddDanglingFolder() pst.NodeID {
	id := f.b.newFolder("", f).ID
	f.ghosts = append(f.ghosts, id)
	return id
}

// LinkFolder lists an existing folder as a child of f too, so tests can
// build a hierarchy that loops back on itself.
func (f *Folder) LinkFolder(other *Folder) {
	f.ghosts = append(f.ghosts, other.ID)
}

// AddDanglingMessage lists a message in the contents table without writing
// its node.
func (f *Folder) AddDanglingMessage() pst.NodeID {
	id := f.b.newMessageID()
	f.lost = append(f.lost, id)
	return id
}

// Bytes renders the container.
func (b *Builder) Bytes() []byte {
	im := newImage(b.opts)
	named := &nameMap{}

	b.writeStore(im)
	rootFolder := &Folder{ID: pst.NIDRootFolder, b: b, children: []*Folder{b.root, b.searchRoot}}
	b.root.parent, b.searchRoot.parent = rootFolder, rootFolder
	b.writeFolder(im, named, rootFolder)
	named.write(im)
	return im.bytes()
}

// WriteFile renders the container into a temporary file and returns its
// path.
func (b *Builder) WriteFile(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.pst")
	if err := os.WriteFile(path, b.Bytes(), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// Open renders the container and opens it in memory. The file is closed
// when the test ends.
func (b *Builder) Open(t testing.TB) *pst.File {
	t.Helper()
	data := b.Bytes()
	f, err := pst.New(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func (b *Builder) writeStore(im *image) {
	eid := make([]byte, 24)
	copy(eid[4:], []byte("pstfixture-store"))
	binary.LittleEndian.PutUint32(eid[20:], uint32(b.root.ID))
	props := []Prop{
		{pst.PropDisplayName, String(b.opts.StoreName)},
		{pst.PropIPMSubtreeEntryID, Binary(eid)},
		{0x0FF9, Binary([]byte("pstfixture-store"))},
	}
	if b.opts.Password != 0 {
		props = append(props, Prop{pst.PropPstPassword, Int32(b.opts.Password)})
	}
	nb := im.newNode()
	heap := nb.propertyContext(props)
	im.nodes = append(im.nodes, nbtEntry{
		nid:  uint32(pst.NIDMessageStore),
		data: im.heapBlock(heap),
		sub:  nb.tree(),
	})
}

var (
	hierarchyColumns = []tableColumn{
		{pst.PropLtpRowID, pst.TypeInteger32},
		{0x67F3, pst.TypeInteger32},
		{pst.PropDisplayName, pst.TypeString},
		{pst.PropContentCount, pst.TypeInteger32},
		{0x3603, pst.TypeInteger32},
		{pst.PropSubfolders, pst.TypeBoolean},
	}
	contentsColumns = []tableColumn{
		{pst.PropLtpRowID, pst.TypeInteger32},
		{0x67F3, pst.TypeInteger32},
		{pst.PropDeliveryTime, pst.TypeTime},
		{pst.PropMessageFlags, pst.TypeInteger32},
		{pst.PropMessageSize, pst.TypeInteger32},
	}
	attachmentColumns = []tableColumn{
		{pst.PropLtpRowID, pst.TypeInteger32},
		{0x67F3, pst.TypeInteger32},
		{pst.PropAttachSize, pst.TypeInteger32},
		{pst.PropAttachMethod, pst.TypeInteger32},
	}
)

func (b *Builder) writeFolder(im *image, named *nameMap, f *Folder) {
	props := []Prop{
		{pst.PropDisplayName, String(f.Name)},
		{pst.PropContentCount, Int32(int32(len(f.messages)))},
		{0x3603, Int32(0)},
		{pst.PropSubfolders, Bool(len(f.children)+len(f.ghosts) > 0)},
	}
	if f.Class != "" {
		props = append(props, Prop{0x3613, String(f.Class)})
	}
	props = append(props, f.Props...)
	parent := uint32(0)
	if f.parent != nil {
		parent = uint32(f.parent.ID)
	} else {
		parent = uint32(f.ID)
	}
	b.writeNode(im, uint32(f.ID), parent, func(nb *nodeBuild) []byte {
		return nb.propertyContext(props)
	})

	var hier [][]Value
	for _, c := range f.children {
		hier = append(hier, []Value{
			Int32(int32(c.ID)), Int32(1), String(c.Name),
			Int32(int32(len(c.messages))), Int32(0), Bool(len(c.children) > 0),
		})
	}
	for _, id := range f.ghosts {
		hier = append(hier, []Value{Int32(int32(id)), Int32(1)})
	}
	b.writeNode(im, uint32(f.ID.WithType(pst.NIDTypeHierarchyTable)), uint32(f.ID), func(nb *nodeBuild) []byte {
		return nb.table(hierarchyColumns, hier)
	})

	var contents [][]Value
	for _, m := range f.messages {
		row := []Value{Int32(int32(m.ID)), Int32(1), {}, Int32(1), Int32(m.Size)}
		if !m.DeliveryTime.IsZero() {
			row[2] = Time(m.DeliveryTime)
		}
		contents = append(contents, row)
	}
	for _, id := range f.lost {
		contents = append(contents, []Value{Int32(int32(id)), Int32(1)})
	}
	b.writeNode(im, uint32(f.ID.WithType(pst.NIDTypeContentsTable)), uint32(f.ID), func(nb *nodeBuild) []byte {
		return nb.table(contentsColumns, contents)
	})
	b.writeNode(im, uint32(f.ID.WithType(pst.NIDTypeAssocContents)), uint32(f.ID), func(nb *nodeBuild) []byte {
		return nb.table(contentsColumns, nil)
	})

	for _, m := range f.messages {
		b.writeMessage(im, named, f, m)
	}
	for _, c := range f.children {
		b.writeFolder(im, named, c)
	}
}

func (b *Builder) writeNode(im *image, nid, parent uint32, build func(*nodeBuild) []byte) {
	nb := im.newNode()
	heap := build(nb)
	im.nodes = append(im.nodes, nbtEntry{
		nid:    nid,
		data:   im.heapBlock(heap),
		sub:    nb.tree(),
		parent: parent,
	})
}

func (b *Builder) writeMessage(im *image, named *nameMap, f *Folder, m *Message) {
	var props []Prop
	addString := func(id pst.PropID, s string) {
		if s != "" {
			props = append(props, Prop{id, String(s)})
		}
	}
	addString(pst.PropMessageClass, m.Class)
	addString(pst.PropSubject, m.Subject)
	addString(pst.PropSenderName, m.SenderName)
	addString(pst.PropSenderEmail, m.SenderEmail)
	addString(pst.PropDisplayTo, m.To)
	addString(pst.PropDisplayCc, m.Cc)
	addString(pst.PropDisplayBcc, m.Bcc)
	addString(pst.PropBody, m.Body)
	addString(pst.PropBodyHTML, m.BodyHTML)
	if m.RTFCompressed != nil {
		props = append(props, Prop{pst.PropRTFCompressed, Binary(m.RTFCompressed)})
	}
	if !m.SubmitTime.IsZero() {
		props = append(props, Prop{pst.PropClientSubmitTime, Time(m.SubmitTime)})
	}
	if !m.DeliveryTime.IsZero() {
		props = append(props, Prop{pst.PropDeliveryTime, Time(m.DeliveryTime)})
	}
	if m.Size != 0 {
		props = append(props, Prop{pst.PropMessageSize, Int32(m.Size)})
	}
	if m.Codepage != 0 {
		props = append(props, Prop{pst.PropMessageCodepage, Int32(m.Codepage)})
	}
	props = append(props, Prop{pst.PropHasAttachments, Bool(len(m.Attachments) > 0)})
	for _, np := range m.Named {
		props = append(props, Prop{named.id(np.Set, np.LID), np.Value})
	}
	props = append(props, m.Props...)

	b.writeNode(im, uint32(m.ID), uint32(f.ID), func(nb *nodeBuild) []byte {
		if len(m.Attachments) > 0 {
			var rows [][]Value
			for i, a := range m.Attachments {
				nid := uint32(i+1)<<5 | pst.NIDTypeAttachment
				size := a.Size
				if size == 0 {
					size = int32(len(a.Data))
				}
				method := a.Method
				if method == 0 {
					method = 1
				}
				child := im.newNode()
				heap := child.propertyContext(attachmentProps(a, size, method))
				nb.addChild(nid, heap, child)
				rows = append(rows, []Value{Int32(int32(nid)), Int32(1), Int32(size), Int32(method)})
			}
			tc := im.newNode()
			heap := tc.table(attachmentColumns, rows)
			nb.addChild(uint32(pst.NIDAttachmentTable), heap, tc)
		}
		return nb.propertyContext(props)
	})
}

func attachmentProps(a Attachment, size, method int32) []Prop {
	props := []Prop{
		{pst.PropAttachSize, Int32(size)},
		{pst.PropAttachMethod, Int32(method)},
	}
	if a.Filename != "" {
		props = append(props, Prop{pst.PropAttachFilename, String(a.Filename)})
	}
	if a.LongFilename != "" {
		props = append(props, Prop{pst.PropAttachLongName, String(a.LongFilename)})
	}
	if a.MimeType != "" {
		props = append(props, Prop{pst.PropAttachMimeTag, String(a.MimeType)})
	}
	if a.Data != nil {
		props = append(props, Prop{0x3701, Binary(a.Data)})
	}
	return append(props, a.Props...)
}

// nameMap assigns ids to named properties in first-use order.
type nameMap struct {
	guids   []pst.GUID
	entries []byte
	ids     map[namedKey]pst.PropID
}

type namedKey struct {
	set pst.GUID
	lid uint32
}

func (m *nameMap) id(set pst.GUID, lid uint32) pst.PropID {
	if m.ids == nil {
		m.ids = make(map[namedKey]pst.PropID)
	}
	k := namedKey{set, lid}
	if id, ok := m.ids[k]; ok {
		return id
	}
	var g int
	switch set {
	case pst.PSMAPI:
		g = 1
	case pst.PSPublicStrings:
		g = 2
	default:
		g = -1
		for i, s := range m.guids {
			if s == set {
				g = i + 3
			}
		}
		if g < 0 {
			m.guids = append(m.guids, set)
			g = len(m.guids) + 2
		}
	}
	idx := len(m.ids)
	m.entries = binary.LittleEndian.AppendUint32(m.entries, lid)
	m.entries = binary.LittleEndian.AppendUint16(m.entries, uint16(g<<1))
	m.entries = binary.LittleEndian.AppendUint16(m.entries, uint16(idx))
	id := pst.PropID(0x8000 + idx)
	m.ids[k] = id
	return id
}

// write stores the map. Every stream is non-empty, as in containers written
// by Outlook: an unused GUID slot, a string-named entry pointing at an empty
// name, and that empty name.
func (m *nameMap) write(im *image) {
	var guids []byte
	for _, g := range m.guids {
		guids = append(guids, g[:]...)
	}
	if len(guids) == 0 {
		guids = make([]byte, 16)
	}
	entries := m.entries
	if len(entries) == 0 {
		entries = binary.LittleEndian.AppendUint32(nil, 0)
		entries = binary.LittleEndian.AppendUint16(entries, 1<<1|1)
		entries = binary.LittleEndian.AppendUint16(entries, 0)
	}
	props := []Prop{
		{0x0001, Int32(251)},
		{pst.PropNameidStreamGUID, Binary(guids)},
		{pst.PropNameidStreamEntry, Binary(entries)},
		{pst.PropNameidStreamString, Binary(make([]byte, 4))},
	}
	nb := im.newNode()
	heap := nb.propertyContext(props)
	im.nodes = append(im.nodes, nbtEntry{
		nid:  uint32(pst.NIDNameToIDMap),
		data: im.heapBlock(heap),
		sub:  nb.tree(),
	})
}
