package pst

import (
	"encoding/binary"

	gopst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/rotisserie/eris"
)

const (
	btypeSLBlock = 0x02

	// maxSubnodeDepth bounds SIBLOCK nesting. Real containers use one level.
	maxSubnodeDepth = 4
)

// Node is an entry of the node B-tree or of a subnode tree: a data tree and
// an optional subnode tree.
type Node struct {
	ID NodeID

	file *File
	data gopst.Identifier
	sub  gopst.Identifier

	lds     []gopst.LocalDescriptor
	ldsRead bool
}

// ReadNode looks up a node in the node B-tree.
func (f *File) ReadNode(nid NodeID) (*Node, error) {
	e, err := f.gf.GetNodeBTreeNode(gopst.Identifier(nid))
	if err != nil {
		return nil, eris.Wrapf(ErrNodeNotFound, "node %s", nid)
	}
	return &Node{ID: nid, file: f, data: e.DataIdentifier, sub: e.LocalDescriptorsIdentifier}, nil
}

// SubNode looks up nid in the node's subnode tree.
func (n *Node) SubNode(nid NodeID) (*Node, error) {
	lds, err := n.localDescriptors()
	if err != nil {
		return nil, err
	}
	ld, err := gopst.FindLocalDescriptor(gopst.Identifier(nid), lds)
	if err != nil {
		return nil, eris.Wrapf(ErrNodeNotFound, "subnode %s of node %s", nid, n.ID)
	}
	return &Node{ID: nid, file: n.file, data: ld.DataIdentifier, sub: ld.LocalDescriptorsIdentifier}, nil
}

// localDescriptors returns the flattened subnode tree, read once.
func (n *Node) localDescriptors() ([]gopst.LocalDescriptor, error) {
	if !n.ldsRead {
		lds, err := n.file.subnodes(n.sub, 0)
		if err != nil {
			return nil, eris.Wrapf(err, "subnodes of node %s", n.ID)
		}
		n.lds, n.ldsRead = lds, true
	}
	return n.lds, nil
}

// subnodes reads a subnode tree. go-pst only reads SLBLOCKs, so SIBLOCK
// levels are resolved here and their leaves handed to go-pst.
func (f *File) subnodes(bid gopst.Identifier, depth int) (lds []gopst.LocalDescriptor, err error) {
	if bid == 0 {
		return nil, nil
	}
	if depth > maxSubnodeDepth {
		return nil, corruptf("subnode tree deeper than %d levels", maxSubnodeDepth)
	}
	defer recoverCorrupt(&err, "subnode tree")

	b, err := f.gf.GetBlockBTreeNode(bid)
	if err != nil {
		return nil, corruptf("subnode block %#x missing from block B-tree", int64(bid))
	}
	var hdr [4]byte
	if n, err := f.gf.Reader.ReadAt(hdr[:], b.FileOffset); n < len(hdr) {
		return nil, eris.Wrapf(ErrIO, "read subnode block %#x: %v", int64(bid), err)
	}
	if hdr[0] != btypeSLBlock {
		return nil, corruptf("block %#x has type %#x, want a subnode block", int64(bid), hdr[0])
	}
	if hdr[1] == 0 {
		lds, err := f.gf.GetLocalDescriptorsFromIdentifier(bid)
		return lds, wrapErr(err, "subnode block %#x", int64(bid))
	}

	// SIENTRY: child NID and child block id.
	start, idSize := int64(8), 8
	if f.header.Format == FormatANSI {
		start, idSize = 4, 4
	}
	count := int(binary.LittleEndian.Uint16(hdr[2:]))
	if start+int64(count*2*idSize) > int64(b.Size) {
		return nil, corruptf("subnode block %#x holds %d entries in %d bytes", int64(bid), count, b.Size)
	}
	buf := make([]byte, count*2*idSize)
	if n, err := f.gf.Reader.ReadAt(buf, b.FileOffset+start); n < len(buf) {
		return nil, eris.Wrapf(ErrIO, "read subnode block %#x: %v", int64(bid), err)
	}
	for i := 0; i < count; i++ {
		child := gopst.GetIdentifierFromBytes(buf[(2*i+1)*idSize:], f.gf.FormatType)
		sub, err := f.subnodes(child, depth+1)
		if err != nil {
			return nil, err
		}
		lds = append(lds, sub...)
	}
	return lds, nil
}

// heap opens the node's data tree as a heap-on-node.
func (n *Node) heap() (*gopst.HeapOnNode, error) {
	b, err := n.file.gf.GetBlockBTreeNode(n.data)
	if err != nil {
		return nil, corruptf("data block %#x of node %s missing from block B-tree", int64(n.data), n.ID)
	}
	h, err := n.file.gf.GetHeapOnNode(b)
	if err != nil {
		return nil, wrapErr(err, "heap of node %s", n.ID)
	}
	if ok, err := h.IsValidSignature(); err != nil || !ok {
		return nil, corruptf("node %s: heap signature", n.ID)
	}
	return h, nil
}

// resolve reads the value behind a property or table cell that is stored by
// reference.
func (n *Node) resolve(p gopst.Property, h *gopst.HeapOnNode) (b []byte, err error) {
	defer recoverCorrupt(&err, "property value")
	if len(p.Data) > 0 {
		return p.Data, nil
	}
	if p.HNID == 0 {
		return nil, nil
	}
	lds, err := n.localDescriptors()
	if err != nil {
		return nil, err
	}
	r, err := gopst.NewPropertyReader(p, h, n.file.gf, lds)
	if err != nil {
		return nil, wrapErr(err, "property %#04x of node %s", p.ID, n.ID)
	}
	b = make([]byte, r.Size())
	if _, err := r.ReadAt(b, 0); err != nil {
		return nil, wrapErr(err, "read property %#04x of node %s", p.ID, n.ID)
	}
	return b, nil
}
