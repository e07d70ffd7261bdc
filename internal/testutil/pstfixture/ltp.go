package pstfixture

import (
	"encoding/binary"
	"sort"

	"github.com/stchris/pstexplorer/internal/pst"
)

const (
	heapSignature  = 0xEC
	clientTable    = 0x7C
	clientBTree    = 0xB5
	clientProperty = 0xBC

	// maxHeapValue is the largest value kept in a heap; bigger ones move to
	// a subnode.
	maxHeapValue = 3580

	nidTypeLTP = 0x1F
)

type heapBuilder struct {
	sig   byte
	items [][]byte
	size  int
}

func (h *heapBuilder) alloc(b []byte) uint32 {
	h.items = append(h.items, b)
	h.size += len(b) + 2
	return uint32(len(h.items)) << 5
}

// bytes renders the heap as a single block with root as the client root.
func (h *heapBuilder) bytes(root uint32) []byte {
	b := make([]byte, 12)
	b[2] = heapSignature
	b[3] = h.sig
	binary.LittleEndian.PutUint32(b[4:], root)
	offsets := make([]uint16, 0, len(h.items)+1)
	for _, it := range h.items {
		offsets = append(offsets, uint16(len(b)))
		b = append(b, it...)
	}
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	offsets = append(offsets, uint16(len(b)))
	binary.LittleEndian.PutUint16(b, uint16(len(b)))
	b = binary.LittleEndian.AppendUint16(b, uint16(len(h.items)))
	b = binary.LittleEndian.AppendUint16(b, 0)
	for _, o := range offsets {
		b = binary.LittleEndian.AppendUint16(b, o)
	}
	return b
}

// nodeBuild collects a node's subnodes while its heap is being built.
type nodeBuild struct {
	im      *image
	subs    []subEntry
	nextIdx uint32
}

func (im *image) newNode() *nodeBuild {
	return &nodeBuild{im: im, nextIdx: 0x20}
}

func (nb *nodeBuild) newNID(typ uint32) uint32 {
	nb.nextIdx++
	return nb.nextIdx<<5 | typ
}

// addStream stores data as a subnode and returns its node id.
func (nb *nodeBuild) addStream(data []byte, chunk int) uint32 {
	nid := nb.newNID(nidTypeLTP)
	nb.subs = append(nb.subs, subEntry{nid: nid, data: nb.im.stream(data, chunk)})
	return nid
}

// addChild stores a heap-backed child node (an attachment, say).
func (nb *nodeBuild) addChild(nid uint32, heap []byte, child *nodeBuild) {
	nb.subs = append(nb.subs, subEntry{nid: nid, data: nb.im.heapBlock(heap), sub: child.tree()})
}

func (nb *nodeBuild) tree() uint64 {
	return nb.im.subnodeTree(nb.subs)
}

func (im *image) heapBlock(heap []byte) uint64 {
	if len(heap) > im.geo.blockMaxData {
		panic("pstfixture: heap does not fit one block")
	}
	return im.addBlock(heap, false)
}

// store places a variable-size value in the heap or, when large, in a
// subnode, returning the HNID.
func (nb *nodeBuild) store(h *heapBuilder, v Value) uint32 {
	if v.dangling {
		return nb.newNID(nidTypeLTP)
	}
	if len(v.Data) == 0 {
		return 0
	}
	if len(v.Data) > maxHeapValue || h.size+len(v.Data) > nb.im.geo.blockMaxData-1024 {
		return nb.addStream(v.Data, 0)
	}
	return h.alloc(v.Data)
}

// propertyContext builds a PC heap for props.
func (nb *nodeBuild) propertyContext(props []Prop) []byte {
	sorted := dedupe(props)
	h := &heapBuilder{sig: clientProperty}
	recs := make([]byte, 0, 8*len(sorted))
	for _, p := range sorted {
		var val uint32
		if p.Value.inline() {
			raw := make([]byte, 4)
			copy(raw, p.Value.Data)
			val = binary.LittleEndian.Uint32(raw)
		} else {
			val = nb.store(h, p.Value)
		}
		recs = binary.LittleEndian.AppendUint16(recs, uint16(p.ID))
		recs = binary.LittleEndian.AppendUint16(recs, uint16(p.Value.Type))
		recs = binary.LittleEndian.AppendUint32(recs, val)
	}
	var recHID uint32
	if len(recs) > 0 {
		recHID = h.alloc(recs)
	}
	root := h.alloc(bthHeader(2, 6, recHID))
	return h.bytes(root)
}

func bthHeader(keySize, dataSize byte, root uint32) []byte {
	b := []byte{clientBTree, keySize, dataSize, 0}
	return binary.LittleEndian.AppendUint32(b, root)
}

// dedupe keeps the last value for each id, sorted by id.
func dedupe(props []Prop) []Prop {
	byID := make(map[pst.PropID]Prop, len(props))
	for _, p := range props {
		byID[p.ID] = p
	}
	out := make([]Prop, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// tableColumn declares a TC column. The first column must be the row id.
type tableColumn struct {
	id  pst.PropID
	typ pst.PropType
}

// table builds a TC heap. rows[i][j] is the value of column j; a zero Value
// leaves the cell absent.
func (nb *nodeBuild) table(cols []tableColumn, rows [][]Value) []byte {
	g := nb.im.geo
	h := &heapBuilder{sig: clientTable}

	type placed struct {
		tableColumn
		offset, size, bit int
	}
	layout := make([]placed, len(cols))
	off := 0
	for _, want := range []func(int) bool{
		func(s int) bool { return s >= 4 },
		func(s int) bool { return s == 2 },
		func(s int) bool { return s == 1 },
	} {
		for i, c := range cols {
			size := Value{Type: c.typ}.cellSize()
			if want(size) {
				layout[i] = placed{c, off, size, i}
				off += size
			}
		}
	}
	// rgib: end of 4/8-byte cells, end of 2-byte cells, end of 1-byte cells,
	// end of the cell existence bitmap.
	var rgib [4]int
	for _, p := range layout {
		end := p.offset + p.size
		switch {
		case p.size >= 4:
			rgib[0] = max(rgib[0], end)
		case p.size == 2:
			rgib[1] = max(rgib[1], end)
		default:
			rgib[2] = max(rgib[2], end)
		}
	}
	rgib[1] = max(rgib[1], rgib[0])
	rgib[2] = max(rgib[2], rgib[1])
	rgib[3] = rgib[2] + (len(cols)+7)/8
	rowSize := rgib[3]

	matrix := make([]byte, 0, rowSize*len(rows))
	rowIDs := make([]uint32, len(rows))
	for r, row := range rows {
		data := make([]byte, rowSize)
		for j, p := range layout {
			if j >= len(row) || row[j].Type == 0 {
				continue
			}
			v := row[j]
			if v.fixed() {
				copy(data[p.offset:p.offset+p.size], v.Data)
			} else {
				binary.LittleEndian.PutUint32(data[p.offset:], nb.store(h, v))
			}
			data[rgib[2]+p.bit/8] |= 0x80 >> (p.bit % 8)
		}
		rowIDs[r] = binary.LittleEndian.Uint32(data)
		matrix = append(matrix, data...)
	}

	var rowsHNID uint32
	switch {
	case len(matrix) == 0:
	case len(matrix) <= maxHeapValue && h.size+len(matrix) < g.blockMaxData-1024:
		rowsHNID = h.alloc(matrix)
	default:
		perBlock := g.blockMaxData / rowSize
		rowsHNID = nb.addStream(matrix, perBlock*rowSize)
	}

	// Row index: row id to row number, sorted by id.
	idxSize := 4
	if g.idSize == 4 {
		idxSize = 2
	}
	order := make([]int, len(rowIDs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return rowIDs[order[a]] < rowIDs[order[b]] })
	var idx []byte
	for _, i := range order {
		idx = binary.LittleEndian.AppendUint32(idx, rowIDs[i])
		if idxSize == 4 {
			idx = binary.LittleEndian.AppendUint32(idx, uint32(i))
		} else {
			idx = binary.LittleEndian.AppendUint16(idx, uint16(i))
		}
	}
	// Large indexes would need a multi-level BTH; readers here only use the
	// row matrix, so they are left out.
	var idxRoot uint32
	if len(idx) > 0 && len(idx) <= maxHeapValue {
		idxRoot = h.alloc(idx)
	}
	rowIndex := h.alloc(bthHeader(4, byte(idxSize), idxRoot))

	info := []byte{clientTable, byte(len(cols))}
	for _, v := range rgib {
		info = binary.LittleEndian.AppendUint16(info, uint16(v))
	}
	info = binary.LittleEndian.AppendUint32(info, rowIndex)
	info = binary.LittleEndian.AppendUint32(info, rowsHNID)
	info = binary.LittleEndian.AppendUint32(info, 0)
	descs := append([]placed(nil), layout...)
	sort.Slice(descs, func(a, b int) bool {
		return uint32(descs[a].id)<<16|uint32(descs[a].typ) < uint32(descs[b].id)<<16|uint32(descs[b].typ)
	})
	for _, p := range descs {
		info = binary.LittleEndian.AppendUint32(info, uint32(p.id)<<16|uint32(p.typ))
		info = binary.LittleEndian.AppendUint16(info, uint16(p.offset))
		info = append(info, byte(p.size), byte(p.bit))
	}
	root := h.alloc(info)
	return h.bytes(root)
}
