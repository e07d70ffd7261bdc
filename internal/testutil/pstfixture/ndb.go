package pstfixture

import (
	"encoding/binary"
	"sort"

	"github.com/stchris/pstexplorer/internal/pst"
)

const (
	pageSize   = 512
	dataStart  = 0x4400
	blockAlign = 64

	ptypeBBT = 0x80
	ptypeNBT = 0x81

	btypeXBlock  = 0x01
	btypeSLBlock = 0x02
)

// geometry holds the size-dependent layout of a format.
type geometry struct {
	idSize       int
	entriesSize  int
	blockMaxData int
	subnodeStart int
	headerSize   int
}

func (o Options) geometry() geometry {
	if o.Format == ANSI {
		return geometry{idSize: 4, entriesSize: 496, blockMaxData: 8180, subnodeStart: 4, headerSize: 512}
	}
	return geometry{idSize: 8, entriesSize: 488, blockMaxData: 8176, subnodeStart: 8, headerSize: 564}
}

// putID appends a BID/IB/NID of the format's width.
func (g geometry) putID(b []byte, v uint64) []byte {
	if g.idSize == 8 {
		return binary.LittleEndian.AppendUint64(b, v)
	}
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}

type block struct {
	bid  uint64
	data []byte
	ib   uint64
}

type nbtEntry struct {
	nid    uint32
	data   uint64
	sub    uint64
	parent uint32
}

// image accumulates blocks and nodes for one Bytes call.
type image struct {
	opts    Options
	geo     geometry
	blocks  []*block
	nodes   []nbtEntry
	nextBID uint64
}

func newImage(opts Options) *image {
	return &image{opts: opts, geo: opts.geometry(), nextBID: 4}
}

func (im *image) allocBID(internal bool) uint64 {
	bid := im.nextBID
	im.nextBID += 4
	if internal {
		bid |= 2
	}
	return bid
}

// addBlock stores one block and returns its id. Data blocks are encoded
// with the cipher the image asks for.
func (im *image) addBlock(data []byte, internal bool) uint64 {
	if len(data) > im.geo.blockMaxData {
		panic("pstfixture: block exceeds maximum size")
	}
	bid := im.allocBID(internal)
	b := append([]byte(nil), data...)
	switch {
	case internal:
	case im.opts.Cyclic:
		pst.EncodeCyclic(b, bid)
	case im.opts.Permute:
		pst.EncodePermute(b)
	}
	im.blocks = append(im.blocks, &block{bid: bid, data: b})
	return bid
}

func (im *image) fanout(natural int) int {
	if im.opts.Fanout > 0 && im.opts.Fanout < natural {
		return im.opts.Fanout
	}
	return natural
}

// stream stores data as a data tree. chunk bounds each data block; zero
// means the format maximum (or Options.BlockSize).
func (im *image) stream(data []byte, chunk int) uint64 {
	if len(data) == 0 {
		return 0
	}
	if chunk <= 0 {
		chunk = im.geo.blockMaxData
		if im.opts.BlockSize > 0 && im.opts.BlockSize < chunk {
			chunk = im.opts.BlockSize
		}
	}
	if len(data) <= chunk {
		return im.addBlock(data, false)
	}

	type ref struct {
		bid  uint64
		size int
	}
	var refs []ref
	for off := 0; off < len(data); off += chunk {
		end := min(off+chunk, len(data))
		refs = append(refs, ref{im.addBlock(data[off:end], false), end - off})
	}

	perX := im.fanout((im.geo.blockMaxData - 8) / im.geo.idSize)
	for level := 1; ; level++ {
		if level > 2 {
			panic("pstfixture: stream needs more than two XBLOCK levels")
		}
		var parents []ref
		for i := 0; i < len(refs); i += perX {
			group := refs[i:min(i+perX, len(refs))]
			total := 0
			for _, r := range group {
				total += r.size
			}
			x := []byte{btypeXBlock, byte(level)}
			x = binary.LittleEndian.AppendUint16(x, uint16(len(group)))
			x = binary.LittleEndian.AppendUint32(x, uint32(total))
			for _, r := range group {
				x = im.geo.putID(x, r.bid)
			}
			parents = append(parents, ref{im.addBlock(x, true), total})
		}
		if len(parents) == 1 {
			return parents[0].bid
		}
		refs = parents
	}
}

type subEntry struct {
	nid  uint32
	data uint64
	sub  uint64
}

// subnodeTree writes SLBLOCKs (and an SIBLOCK above them when needed).
func (im *image) subnodeTree(entries []subEntry) uint64 {
	if len(entries) == 0 {
		return 0
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].nid < entries[j].nid })
	g := im.geo
	hdr := func(level byte, n int) []byte {
		b := []byte{btypeSLBlock, level}
		b = binary.LittleEndian.AppendUint16(b, uint16(n))
		if g.idSize == 8 {
			b = binary.LittleEndian.AppendUint32(b, 0)
		}
		return b
	}

	perSL := im.fanout((g.blockMaxData - g.subnodeStart) / (3 * g.idSize))
	type leaf struct {
		first uint32
		bid   uint64
	}
	var leaves []leaf
	for i := 0; i < len(entries); i += perSL {
		group := entries[i:min(i+perSL, len(entries))]
		b := hdr(0, len(group))
		for _, e := range group {
			b = g.putID(b, uint64(e.nid))
			b = g.putID(b, e.data)
			b = g.putID(b, e.sub)
		}
		leaves = append(leaves, leaf{group[0].nid, im.addBlock(b, true)})
	}
	if len(leaves) == 1 {
		return leaves[0].bid
	}
	perSI := im.fanout((g.blockMaxData - g.subnodeStart) / (2 * g.idSize))
	if len(leaves) > perSI {
		panic("pstfixture: subnode tree needs more than one SIBLOCK")
	}
	b := hdr(1, len(leaves))
	for _, l := range leaves {
		b = g.putID(b, uint64(l.first))
		b = g.putID(b, l.bid)
	}
	return im.addBlock(b, true)
}

// btEntry is a key and child page reference of an intermediate page.
type btEntry struct {
	key uint64
	bid uint64
	ib  uint64
}

// bytes lays the image out and returns the file contents.
func (im *image) bytes() []byte {
	g := im.geo
	off := uint64(dataStart)
	for _, b := range im.blocks {
		b.ib = off
		off += uint64((len(b.data) + blockAlign - 1) / blockAlign * blockAlign)
	}
	off = (off + pageSize - 1) / pageSize * pageSize

	var pages [][]byte
	writePage := func(entries [][]byte, ptype byte, level, entSize int) btEntry {
		p := make([]byte, pageSize)
		for i, e := range entries {
			copy(p[i*entSize:], e)
		}
		meta := p[g.entriesSize:]
		meta[0] = byte(len(entries))
		meta[1] = byte(g.entriesSize / entSize)
		meta[2] = byte(entSize)
		meta[3] = byte(level)
		bid := im.allocBID(false)
		if g.idSize == 8 {
			t := p[496:]
			t[0], t[1] = ptype, ptype
			binary.LittleEndian.PutUint64(t[8:], bid)
		} else {
			t := p[500:]
			t[0], t[1] = ptype, ptype
			binary.LittleEndian.PutUint32(t[4:], uint32(bid))
		}
		e := btEntry{bid: bid, ib: off}
		pages = append(pages, p)
		off += pageSize
		return e
	}

	// buildTree writes leaf pages and intermediate levels up to the root.
	buildTree := func(leaves [][]byte, keys []uint64, ptype byte, leafSize int) btEntry {
		btSize := 3 * g.idSize
		perLeaf := im.fanout(g.entriesSize / leafSize)
		perBT := im.fanout(g.entriesSize / btSize)
		var level []btEntry
		for i := 0; i < len(leaves) || i == 0; i += perLeaf {
			end := min(i+perLeaf, len(leaves))
			e := writePage(leaves[i:end], ptype, 0, leafSize)
			if i < len(keys) {
				e.key = keys[i]
			}
			level = append(level, e)
		}
		for depth := 1; len(level) > 1; depth++ {
			var up []btEntry
			for i := 0; i < len(level); i += perBT {
				group := level[i:min(i+perBT, len(level))]
				ents := make([][]byte, len(group))
				for j, c := range group {
					var b []byte
					b = g.putID(b, c.key)
					b = g.putID(b, c.bid)
					b = g.putID(b, c.ib)
					ents[j] = b
				}
				e := writePage(ents, ptype, depth, btSize)
				e.key = group[0].key
				up = append(up, e)
			}
			level = up
		}
		return level[0]
	}

	sort.Slice(im.nodes, func(i, j int) bool { return im.nodes[i].nid < im.nodes[j].nid })
	nbtLeaves := make([][]byte, len(im.nodes))
	nbtKeys := make([]uint64, len(im.nodes))
	for i, n := range im.nodes {
		var b []byte
		b = g.putID(b, uint64(n.nid))
		b = g.putID(b, n.data)
		b = g.putID(b, n.sub)
		b = binary.LittleEndian.AppendUint32(b, n.parent)
		if g.idSize == 8 {
			b = binary.LittleEndian.AppendUint32(b, 0)
		}
		nbtLeaves[i] = b
		nbtKeys[i] = uint64(n.nid)
	}
	nbtLeafSize := 32
	if g.idSize == 4 {
		nbtLeafSize = 16
	}
	nbtRoot := buildTree(nbtLeaves, nbtKeys, ptypeNBT, nbtLeafSize)

	blocks := append([]*block(nil), im.blocks...)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].bid < blocks[j].bid })
	bbtLeaves := make([][]byte, len(blocks))
	bbtKeys := make([]uint64, len(blocks))
	for i, bl := range blocks {
		var b []byte
		b = g.putID(b, bl.bid)
		b = g.putID(b, bl.ib)
		b = binary.LittleEndian.AppendUint16(b, uint16(len(bl.data)))
		b = binary.LittleEndian.AppendUint16(b, 2)
		if g.idSize == 8 {
			b = binary.LittleEndian.AppendUint32(b, 0)
		}
		bbtLeaves[i] = b
		bbtKeys[i] = bl.bid
	}
	bbtLeafSize := 24
	if g.idSize == 4 {
		bbtLeafSize = 12
	}
	bbtRoot := buildTree(bbtLeaves, bbtKeys, ptypeBBT, bbtLeafSize)

	size := off
	out := make([]byte, size)
	copy(out, im.header(size, nbtRoot, bbtRoot))
	for _, b := range im.blocks {
		copy(out[b.ib:], b.data)
	}
	pageOff := size - uint64(len(pages))*pageSize
	for i, p := range pages {
		copy(out[pageOff+uint64(i)*pageSize:], p)
	}
	return out
}

func (im *image) header(eof uint64, nbt, bbt btEntry) []byte {
	h := make([]byte, im.geo.headerSize)
	copy(h, "!BDN")
	copy(h[8:], "SM")
	binary.LittleEndian.PutUint16(h[12:], 19)
	h[14], h[15] = 1, 1
	crypt := byte(0)
	switch {
	case im.opts.Cyclic:
		crypt = 2
	case im.opts.Permute:
		crypt = 1
	}
	if im.opts.Format == ANSI {
		binary.LittleEndian.PutUint16(h[10:], 14)
		binary.LittleEndian.PutUint32(h[168:], uint32(eof))
		binary.LittleEndian.PutUint32(h[184:], uint32(nbt.bid))
		binary.LittleEndian.PutUint32(h[188:], uint32(nbt.ib))
		binary.LittleEndian.PutUint32(h[192:], uint32(bbt.bid))
		binary.LittleEndian.PutUint32(h[196:], uint32(bbt.ib))
		h[460] = 0x80
		h[461] = crypt
		return h
	}
	binary.LittleEndian.PutUint16(h[10:], 23)
	binary.LittleEndian.PutUint64(h[184:], eof)
	binary.LittleEndian.PutUint64(h[216:], nbt.bid)
	binary.LittleEndian.PutUint64(h[224:], nbt.ib)
	binary.LittleEndian.PutUint64(h[232:], bbt.bid)
	binary.LittleEndian.PutUint64(h[240:], bbt.ib)
	h[512] = 0x80
	h[513] = crypt
	return h
}
