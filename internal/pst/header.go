package pst

import (
	"encoding/binary"
	"io"

	gopst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/rotisserie/eris"
)

// Format is the on-disk variant of the container.
type Format int

const (
	FormatANSI Format = iota
	FormatUnicode
)

func (f Format) String() string {
	if f == FormatUnicode {
		return "unicode"
	}
	return "ansi"
}

func (f Format) formatType() gopst.FormatType {
	if f == FormatUnicode {
		return gopst.FormatTypeUnicode
	}
	return gopst.FormatTypeANSI
}

// CryptMethod is the block encoding declared in the header.
type CryptMethod byte

const (
	CryptNone    CryptMethod = 0x00
	CryptPermute CryptMethod = 0x01
	CryptCyclic  CryptMethod = 0x02
)

const (
	pageSize = 512

	ptypeBBT = 0x80
	ptypeNBT = 0x81

	headerSizeANSI    = 512
	headerSizeUnicode = 564
)

var (
	headerMagic = [4]byte{'!', 'B', 'D', 'N'}
	clientMagic = [2]byte{'S', 'M'}
)

// Header is the decoded file header.
type Header struct {
	Format        Format
	Version       uint16
	ClientVersion uint16
	Crypt         CryptMethod
	FileEOF       uint64

	nbt         int64 // file offset of the node B-tree root page
	bbt         int64 // file offset of the block B-tree root page
	cryptOffset int64
}

// parseHeader validates magic values and version and extracts the B-tree
// roots. It only inspects the bytes it is given.
func parseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < headerSizeANSI {
		return h, eris.Wrapf(ErrInvalidFormat, "header truncated at %d bytes", len(b))
	}
	if [4]byte(b[0:4]) != headerMagic {
		return h, eris.Wrap(ErrInvalidFormat, "missing !BDN magic")
	}
	if [2]byte(b[8:10]) != clientMagic {
		return h, eris.Wrap(ErrInvalidFormat, "missing SM client magic")
	}
	h.Version = binary.LittleEndian.Uint16(b[10:])
	h.ClientVersion = binary.LittleEndian.Uint16(b[12:])

	switch {
	case h.Version == 14 || h.Version == 15:
		h.Format = FormatANSI
		h.FileEOF = uint64(binary.LittleEndian.Uint32(b[168:]))
		h.nbt = int64(binary.LittleEndian.Uint32(b[188:]))
		h.bbt = int64(binary.LittleEndian.Uint32(b[196:]))
		h.cryptOffset = 461
	case h.Version == 23:
		if len(b) < headerSizeUnicode {
			return h, eris.Wrapf(ErrInvalidFormat, "unicode header truncated at %d bytes", len(b))
		}
		h.Format = FormatUnicode
		h.FileEOF = binary.LittleEndian.Uint64(b[184:])
		h.nbt = int64(binary.LittleEndian.Uint64(b[224:]))
		h.bbt = int64(binary.LittleEndian.Uint64(b[240:]))
		h.cryptOffset = 513
	case h.Version == 36 || h.Version == 37:
		return h, eris.Wrapf(ErrUnsupported, "4K page container (version %d)", h.Version)
	default:
		return h, eris.Wrapf(ErrUnsupported, "unknown format version %d", h.Version)
	}

	h.Crypt = CryptMethod(b[h.cryptOffset])
	switch h.Crypt {
	case CryptNone, CryptPermute, CryptCyclic:
	default:
		return h, eris.Wrapf(ErrUnsupported, "block encoding %#x", byte(h.Crypt))
	}
	if h.nbt < 0 || h.bbt < 0 {
		return h, corruptf("B-tree root offset out of range")
	}
	return h, nil
}

// checkRootPage verifies that a B-tree root lies inside the file and carries
// the expected page type. go-pst trusts both.
func checkRootPage(r io.ReaderAt, size int64, h Header, ib int64, ptype byte) error {
	if ib+pageSize > size {
		return corruptf("B-tree root page at %#x past end of file (%d bytes)", ib, size)
	}
	trailer := int64(496)
	if h.Format == FormatANSI {
		trailer = 500
	}
	var t [2]byte
	if n, err := r.ReadAt(t[:], ib+trailer); n < len(t) {
		return eris.Wrapf(ErrIO, "read page at %#x: %v", ib, err)
	}
	if t[0] != ptype || t[1] != ptype {
		return corruptf("page at %#x has type %#x/%#x, want %#x", ib, t[0], t[1], ptype)
	}
	return nil
}
