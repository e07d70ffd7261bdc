package pst

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
	"time"

	gopst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/rotisserie/eris"

	"github.com/stchris/pstexplorer/internal/textutil"
)

const (
	clientTable    = 0x7C
	tcinfoSize     = 22
	tcolDescSize   = 8
	tcinfoRowsHNID = 14
)

// Table is a table context: hierarchy, contents, attachment and recipient
// tables. Rows are read one at a time, so walking a folder of any size
// keeps a single row in memory.
//
// go-pst decodes the column descriptors and cells. Rows are addressed here:
// a row matrix stored in a subnode packs whole rows into each data block,
// so row i lives in the block whose cumulative row count passes i.
type Table struct {
	node     *Node
	heap     *gopst.HeapOnNode
	cols     map[PropID]gopst.ColumnDescriptor
	rowSize  int
	cebStart int
	codepage int

	matrix    *gopst.HeapOnNodeReader
	blockRows []int // cumulative row count at the end of each matrix block
	rows      int
}

// Table decodes the node's data as a table context.
func (n *Node) Table() (t *Table, err error) {
	defer recoverCorrupt(&err, "table context")
	h, err := n.heap()
	if err != nil {
		return nil, err
	}
	if typ, err := h.GetTableType(); err != nil || typ != clientTable {
		return nil, corruptf("node %s: heap client %#x is not a table context", n.ID, typ)
	}
	lds, err := n.localDescriptors()
	if err != nil {
		return nil, err
	}
	gf := n.file.gf
	root, err := h.GetHIDUserRoot()
	if err != nil {
		return nil, wrapErr(err, "table of node %s", n.ID)
	}
	info, err := gf.GetHeapOnNodeReaderFromHNID(root, *h.Reader, lds...)
	if err != nil {
		return nil, wrapErr(err, "table of node %s", n.ID)
	}
	hdr := make([]byte, tcinfoSize)
	if _, err := info.ReadAt(hdr, 0); err != nil || hdr[0] != clientTable {
		return nil, corruptf("node %s: TCINFO header", n.ID)
	}
	ncols := int(hdr[1])
	if int64(tcinfoSize+ncols*tcolDescSize) > info.Size() {
		return nil, corruptf("node %s: TCINFO holds %d columns in %d bytes", n.ID, ncols, info.Size())
	}

	t = &Table{
		node:     n,
		heap:     h,
		cols:     make(map[PropID]gopst.ColumnDescriptor, ncols),
		rowSize:  int(binary.LittleEndian.Uint16(hdr[8:])),
		cebStart: int(binary.LittleEndian.Uint16(hdr[6:])),
		codepage: textutil.DefaultCodepage,
	}
	for i := 0; i < ncols; i++ {
		c, err := gopst.NewColumnDescriptor(info, int64(tcinfoSize+i*tcolDescSize))
		if err != nil {
			return nil, corruptf("node %s: column %d: %v", n.ID, i, err)
		}
		if int(c.DataOffset)+int(c.DataSize) > t.rowSize {
			return nil, corruptf("node %s: column %#04x outside %d-byte row", n.ID, c.PropertyID, t.rowSize)
		}
		t.cols[PropID(c.PropertyID)] = c
	}
	if t.rowSize == 0 {
		return t, nil
	}
	if t.cebStart+(ncols+7)/8 > t.rowSize {
		return nil, corruptf("node %s: cell existence bitmap outside row", n.ID)
	}

	hnid := gopst.Identifier(binary.LittleEndian.Uint32(hdr[tcinfoRowsHNID:]))
	if hnid == 0 {
		return t, nil
	}
	m, err := gf.GetHeapOnNodeReaderFromHNID(hnid, *h.Reader, lds...)
	if err != nil {
		return nil, wrapErr(err, "rows of node %s", n.ID)
	}
	t.matrix = m
	for i := range m.Blocks {
		t.rows += int(m.Blocks[i].Size()) / t.rowSize
		t.blockRows = append(t.blockRows, t.rows)
	}
	return t, nil
}

// SetCodepage sets the codepage used for 8-bit string cells.
func (t *Table) SetCodepage(cp int) {
	if cp > 0 {
		t.codepage = cp
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(id PropID) bool {
	_, ok := t.cols[id]
	return ok
}

// Row returns row i.
func (t *Table) Row(i int) (r Row, err error) {
	if i < 0 || i >= t.rows {
		return Row{}, eris.Errorf("row %d out of range [0,%d)", i, t.rows)
	}
	defer recoverCorrupt(&err, "table row")
	b := sort.SearchInts(t.blockRows, i+1)
	first := 0
	if b > 0 {
		first = t.blockRows[b-1]
	}
	data := make([]byte, t.rowSize)
	off := t.matrix.BlockOffsets[b] + int64((i-first)*t.rowSize)
	if _, err := t.matrix.ReadAt(data, off); err != nil {
		return Row{}, wrapErr(err, "row %d of node %s", i, t.node.ID)
	}
	return Row{t: t, data: data}, nil
}

// Row is one table row.
type Row struct {
	t    *Table
	data []byte
}

// cell returns the cell as a go-pst property when it exists: the value for
// fixed-size cells, an HNID otherwise.
func (r Row) cell(id PropID) (gopst.Property, bool) {
	c, ok := r.t.cols[id]
	if !ok {
		return gopst.Property{}, false
	}
	bit := int(c.CellExistenceBitmapIndex)
	ceb := r.data[r.t.cebStart:]
	if bit/8 >= len(ceb) || ceb[bit/8]&(0x80>>(bit%8)) == 0 {
		return gopst.Property{}, false
	}
	p, err := r.t.node.file.gf.GetTableContextProperty(bytes.NewReader(r.data), 0, c)
	if err != nil {
		return gopst.Property{}, false
	}
	return p, true
}

// ID returns the row id (PidTagLtpRowId), which for hierarchy and contents
// tables is the node id of the folder or message.
func (r Row) ID() NodeID {
	if c, ok := r.t.cols[PropLtpRowID]; ok && c.DataSize >= 4 {
		return NodeID(binary.LittleEndian.Uint32(r.data[c.DataOffset:]))
	}
	if len(r.data) < 4 {
		return 0
	}
	return NodeID(binary.LittleEndian.Uint32(r.data))
}

// Int32 returns a 32-bit (or narrower) integer cell.
func (r Row) Int32(id PropID) (int32, bool) {
	p, ok := r.cell(id)
	if !ok {
		return 0, false
	}
	switch b := p.Data; {
	case len(b) >= 4:
		return int32(binary.LittleEndian.Uint32(b)), true
	case len(b) == 2:
		return int32(int16(binary.LittleEndian.Uint16(b))), true
	case len(b) == 1:
		return int32(b[0]), true
	}
	return 0, false
}

// Bool returns a boolean cell.
func (r Row) Bool(id PropID) (bool, bool) {
	p, ok := r.cell(id)
	if !ok || PropType(p.Type) != TypeBoolean || len(p.Data) == 0 {
		return false, false
	}
	return p.Data[0] != 0, true
}

// Int64 returns an 8-byte integer cell.
func (r Row) Int64(id PropID) (int64, bool) {
	p, ok := r.cell(id)
	if !ok || len(p.Data) < 8 {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(p.Data)), true
}

// Float64 returns an 8-byte floating point cell.
func (r Row) Float64(id PropID) (float64, bool) {
	v, ok := r.Int64(id)
	return math.Float64frombits(uint64(v)), ok
}

// Time returns a PtypTime cell in UTC.
func (r Row) Time(id PropID) (time.Time, bool) {
	p, ok := r.cell(id)
	if !ok || PropType(p.Type) != TypeTime || len(p.Data) < 8 {
		return time.Time{}, false
	}
	return FiletimeToTime(binary.LittleEndian.Uint64(p.Data))
}

// String returns a string cell as UTF-8; a missing cell is "".
func (r Row) String(id PropID) (string, error) {
	p, ok := r.cell(id)
	typ := PropType(p.Type)
	if !ok || (typ != TypeString && typ != TypeString8) {
		return "", nil
	}
	v, err := r.t.node.resolve(p, r.t.heap)
	if err != nil {
		return "", eris.Wrapf(err, "cell %#04x", uint16(id))
	}
	return decodeString(typ, v, r.t.codepage), nil
}

// Binary returns a binary cell.
func (r Row) Binary(id PropID) ([]byte, error) {
	p, ok := r.cell(id)
	if !ok || PropType(p.Type) != TypeBinary {
		return nil, nil
	}
	v, err := r.t.node.resolve(p, r.t.heap)
	if err != nil {
		return nil, eris.Wrapf(err, "cell %#04x", uint16(id))
	}
	return v, nil
}
