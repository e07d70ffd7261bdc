package pst

import (
	"encoding/binary"

	"github.com/rotisserie/eris"
)

// entryIDSize is the size of a PST EntryID: flags, provider UID and NID.
const entryIDSize = 24

// Store is the message store: the container's top-level property set.
type Store struct {
	Name string

	// IPMSubtree is the node id of the "Top of Personal Folders" folder, the
	// root of the user-visible hierarchy.
	IPMSubtree NodeID
}

// Root returns the folder to start traversal from.
func (s *Store) Root() NodeID {
	if s == nil || s.IPMSubtree == 0 {
		return NIDRootFolder
	}
	return s.IPMSubtree
}

func (f *File) readStore() (*Store, error) {
	n, err := f.ReadNode(NIDMessageStore)
	if err != nil {
		if IsNotFound(err) {
			return nil, corruptf("message store node missing")
		}
		return nil, eris.Wrap(err, "message store")
	}
	pc, err := n.PropertyContext()
	if err != nil {
		return nil, eris.Wrap(err, "message store")
	}
	if pw, ok := pc.Int32(PropPstPassword); ok && pw != 0 {
		return nil, eris.Wrapf(ErrUnsupported, "%s is password-protected", f.name())
	}

	s := &Store{}
	if s.Name, err = pc.String(PropDisplayName); err != nil {
		return nil, eris.Wrap(err, "message store name")
	}
	eid, err := pc.Binary(PropIPMSubtreeEntryID)
	if err != nil {
		return nil, eris.Wrap(err, "message store IPM subtree")
	}
	if len(eid) >= entryIDSize {
		s.IPMSubtree = NodeID(binary.LittleEndian.Uint32(eid[20:]))
	}
	return s, nil
}
