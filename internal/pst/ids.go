package pst

import "fmt"

// NodeID identifies a node in the node B-tree or in a subnode tree. The low
// five bits carry the node type.
type NodeID uint32

// Node types (low five bits of a NodeID).
const (
	NIDTypeHID            = 0x00
	NIDTypeInternal       = 0x01
	NIDTypeNormalFolder   = 0x02
	NIDTypeSearchFolder   = 0x03
	NIDTypeNormalMessage  = 0x04
	NIDTypeAttachment     = 0x05
	NIDTypeHierarchyTable = 0x0D
	NIDTypeContentsTable  = 0x0E
	NIDTypeAssocContents  = 0x0F
	NIDTypeLTP            = 0x1F
)

// Well-known node ids.
const (
	NIDMessageStore    NodeID = 0x21
	NIDNameToIDMap     NodeID = 0x61
	NIDRootFolder      NodeID = 0x122
	NIDAttachmentTable NodeID = 0x671
	NIDRecipientTable  NodeID = 0x692
)

// Type returns the node type bits.
func (n NodeID) Type() uint8 { return uint8(n & 0x1F) }

// Index returns the node index without its type bits.
func (n NodeID) Index() uint32 { return uint32(n) >> 5 }

// WithType returns the sibling node id that shares n's index.
func (n NodeID) WithType(t uint8) NodeID {
	return n&^0x1F | NodeID(t&0x1F)
}

func (n NodeID) String() string { return fmt.Sprintf("%#x", uint32(n)) }
