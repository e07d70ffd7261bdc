package pst

import (
	"fmt"

	gopst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/rotisserie/eris"
)

// Error kinds reported by the container reader. Callers classify failures
// with eris.Is (or the Is* helpers below); the wrapped message carries the
// path, node or block that failed.
var (
	// ErrIO reports that the container could not be opened or read.
	ErrIO = eris.New("i/o error")

	// ErrInvalidFormat reports a header that is not a PST header.
	ErrInvalidFormat = eris.New("invalid format")

	// ErrCorruptIndex reports structural damage in the B-trees, blocks or
	// heaps below the header.
	ErrCorruptIndex = eris.New("corrupt index")

	// ErrNodeNotFound reports a node id missing from the node B-tree or a
	// subnode tree. It is a dangling reference rather than page damage, so
	// traversal code may skip it.
	ErrNodeNotFound = eris.New("node not found")

	// ErrUnsupported reports a well-formed container variant this reader
	// refuses to decode, such as password protection or 4K pages.
	ErrUnsupported = eris.New("unsupported container")
)

// IsNotFound reports whether err is a dangling node reference.
func IsNotFound(err error) bool {
	return eris.Is(err, ErrNodeNotFound)
}

// IsCorrupt reports whether err is structural damage, including dangling
// node references.
func IsCorrupt(err error) bool {
	return eris.Is(err, ErrCorruptIndex) || eris.Is(err, ErrNodeNotFound)
}

// IsUnsupported reports whether err is an unsupported container variant.
func IsUnsupported(err error) bool {
	return eris.Is(err, ErrUnsupported)
}

// IsInvalidFormat reports whether err is a bad header.
func IsInvalidFormat(err error) bool {
	return eris.Is(err, ErrInvalidFormat)
}

// IsIO reports whether err is an access or read failure.
func IsIO(err error) bool {
	return eris.Is(err, ErrIO)
}

func corruptf(format string, args ...any) error {
	return eris.Wrapf(ErrCorruptIndex, format, args...)
}

// kinds lists the sentinels above. An error wrapping one of them is already
// classified.
var kinds = []error{ErrIO, ErrInvalidFormat, ErrCorruptIndex, ErrNodeNotFound, ErrUnsupported}

// wrapErr classifies an error returned by go-pst. Anything go-pst reports
// below the header that is not a dangling reference is index damage.
func wrapErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	for _, k := range kinds {
		if eris.Is(err, k) {
			return eris.Wrap(err, msg)
		}
	}
	kind := ErrCorruptIndex
	switch {
	case eris.Is(err, gopst.ErrLocalDescriptorNotFound), eris.Is(err, gopst.ErrHeapOnNodeExternalNode):
		kind = ErrNodeNotFound
	case eris.Is(err, gopst.ErrFileSignatureInvalid), eris.Is(err, gopst.ErrContentTypeUnsupported):
		kind = ErrInvalidFormat
	case eris.Is(err, gopst.ErrFormatTypeUnsupported), eris.Is(err, gopst.ErrEncryptionTypeUnsupported):
		kind = ErrUnsupported
	}
	return eris.Wrapf(kind, "%s: %v", msg, err)
}

// recoverCorrupt turns a panic inside go-pst into ErrCorruptIndex. go-pst
// slices buffers with sizes and offsets read from the file unchecked.
func recoverCorrupt(err *error, what string) {
	if r := recover(); r != nil {
		*err = eris.Wrapf(ErrCorruptIndex, "%s: %v", what, r)
	}
}
