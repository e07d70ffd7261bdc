// Package pst reads Outlook personal storage (PST) containers.
//
// The node database and the lists-tables-properties layer come from go-pst:
// its B-tree stores, heap-on-node readers, local descriptors, property
// contexts and table cells. This package wraps them in the reader API the
// rest of the tree uses and fills the gaps go-pst leaves: subnode trees
// deeper than one level, multi-block row matrices, cyclic encoding, 8-bit
// string codepages and classified errors.
//
// A File is not safe for concurrent use.
package pst

import (
	"io"
	"os"

	gopst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/rotisserie/eris"
)

// File is an open container. It owns the underlying reader when created by
// Open.
type File struct {
	gf     *gopst.File
	closer io.Closer
	size   int64
	path   string

	header Header
	store  *Store
}

// Open opens the container at path read-only, validates its header and
// reads the message store. The file handle is released on error.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrIO, "open %s: %v", path, err)
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, eris.Wrapf(ErrIO, "stat %s: %v", path, err)
	}
	f, err := newFile(fh, info.Size(), path)
	if err != nil {
		fh.Close()
		return nil, err
	}
	f.closer = fh
	return f, nil
}

// New reads a container from r, which must hold size bytes. The caller keeps
// ownership of r.
func New(r io.ReaderAt, size int64) (*File, error) {
	return newFile(r, size, "")
}

func newFile(r io.ReaderAt, size int64, path string) (*File, error) {
	f := &File{size: size, path: path}

	n := int64(headerSizeUnicode)
	if size < n {
		n = size
	}
	buf := make([]byte, n)
	if read, err := r.ReadAt(buf, 0); read < len(buf) {
		return nil, eris.Wrapf(ErrIO, "read header of %s: %v", f.name(), err)
	}
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	f.header = h
	if err := checkRootPage(r, size, h, h.nbt, ptypeNBT); err != nil {
		return nil, eris.Wrap(err, "node B-tree")
	}
	if err := checkRootPage(r, size, h, h.bbt, ptypeBBT); err != nil {
		return nil, eris.Wrap(err, "block B-tree")
	}

	if f.gf, err = openIndex(r, h); err != nil {
		return nil, eris.Wrapf(err, "open %s", f.name())
	}
	store, err := f.readStore()
	if err != nil {
		return nil, err
	}
	f.store = store
	return f, nil
}

// openIndex loads both B-trees into go-pst's in-memory stores. go-pst's own
// constructor is not used: it insists on a name-to-id map and knows nothing
// of the cyclic encoding.
func openIndex(r io.ReaderAt, h Header) (gf *gopst.File, err error) {
	defer recoverCorrupt(&err, "index")

	var cr *cyclicReader
	if h.Crypt == CryptCyclic {
		cr = &cyclicReader{r: r, cryptOffset: h.cryptOffset}
		r = cr
	}
	gf = &gopst.File{Reader: gopst.NewDefaultReader(r)}
	if gf.FormatType, err = gf.GetFormatType(); err != nil {
		return nil, wrapErr(err, "format")
	}
	if gf.EncryptionType, err = gf.GetEncryptionType(); err != nil {
		return nil, wrapErr(err, "encryption")
	}

	nbt, bbt := gopst.NewBTreeStoreInMemory(), gopst.NewBTreeStoreInMemory()
	gf.NodeBTree, gf.BlockBTree = nbt, bbt
	gf.WalkAndCreateBTree(h.nbt, gopst.BTreeTypeNode, nbt)
	gf.WalkAndCreateBTree(h.bbt, gopst.BTreeTypeBlock, bbt)
	if nbt.Len() == 0 || bbt.Len() == 0 {
		return nil, corruptf("empty node or block B-tree")
	}

	if cr != nil {
		var blocks []extent
		bbt.Scan(func(b gopst.BTreeNode) bool {
			if b.NodeLevel == 0 && b.Identifier&0x2 == 0 {
				blocks = append(blocks, extent{off: b.FileOffset, size: int64(b.Size), key: uint32(b.Identifier)})
			}
			return true
		})
		cr.index(blocks)
	}

	// Named properties are optional.
	if _, err := gf.GetNodeBTreeNode(gopst.IdentifierNameToIDMap); err == nil {
		if gf.NameToIDMap, err = gf.GetNameToIDMap(); err != nil {
			return nil, wrapErr(err, "name-to-id map")
		}
	}
	return gf, nil
}

// Close releases the underlying file when the File was created by Open.
func (f *File) Close() error {
	if f.gf != nil {
		f.gf.Cleanup()
	}
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}

// Header returns the decoded file header.
func (f *File) Header() Header { return f.header }

// Store returns the message store read at open time.
func (f *File) Store() *Store { return f.store }

// Path returns the path given to Open, or "" for readers created with New.
func (f *File) Path() string { return f.path }

func (f *File) name() string {
	if f.path == "" {
		return "container"
	}
	return f.path
}
