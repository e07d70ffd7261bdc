package pst

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	gopst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/rotisserie/eris"

	"github.com/stchris/pstexplorer/internal/textutil"
)

// PropertyContext is the property set of a folder, message, attachment or
// the store. Values behind heap or subnode references are read on demand,
// so bodies and attachment payloads cost nothing until asked for.
type PropertyContext struct {
	node     *Node
	heap     *gopst.HeapOnNode
	props    map[PropID]gopst.Property
	codepage int
}

// PropertyContext decodes the node's data as a property context.
func (n *Node) PropertyContext() (pc *PropertyContext, err error) {
	defer recoverCorrupt(&err, "property context")
	h, err := n.heap()
	if err != nil {
		return nil, err
	}
	gpc, err := n.file.gf.GetPropertyContext(h)
	if err != nil {
		return nil, wrapErr(err, "property context of node %s", n.ID)
	}
	pc = &PropertyContext{
		node:     n,
		heap:     h,
		props:    make(map[PropID]gopst.Property, len(gpc.Properties)),
		codepage: textutil.DefaultCodepage,
	}
	for _, p := range gpc.Properties {
		pc.props[PropID(p.ID)] = p
	}
	return pc, nil
}

// SetCodepage sets the codepage used for 8-bit strings.
func (pc *PropertyContext) SetCodepage(cp int) {
	if cp > 0 {
		pc.codepage = cp
	}
}

// Has reports whether the property is present.
func (pc *PropertyContext) Has(id PropID) bool {
	_, ok := pc.props[id]
	return ok
}

// Type returns the stored type of a property.
func (pc *PropertyContext) Type(id PropID) (PropType, bool) {
	p, ok := pc.props[id]
	return PropType(p.Type), ok
}

// Len returns the number of properties.
func (pc *PropertyContext) Len() int { return len(pc.props) }

// raw returns the value bytes of a property.
func (pc *PropertyContext) raw(p gopst.Property) ([]byte, error) {
	return pc.node.resolve(p, pc.heap)
}

// String returns a string property as UTF-8. A missing property is the
// empty string. PtypString8 values are decoded with the context's codepage.
func (pc *PropertyContext) String(id PropID) (string, error) {
	p, ok := pc.props[id]
	if !ok {
		return "", nil
	}
	typ := PropType(p.Type)
	if typ != TypeString && typ != TypeString8 {
		return "", nil
	}
	b, err := pc.raw(p)
	if err != nil {
		return "", eris.Wrapf(err, "property %#04x", uint16(id))
	}
	return decodeString(typ, b, pc.codepage), nil
}

func decodeString(typ PropType, b []byte, codepage int) string {
	if typ == TypeString {
		return trimNUL(textutil.DecodeUTF16(b))
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return textutil.DecodeCodepage(b, codepage)
}

func trimNUL(s string) string {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}

// Int32 returns an inline integer property. Booleans and 16-bit integers are
// widened.
func (pc *PropertyContext) Int32(id PropID) (int32, bool) {
	p, ok := pc.props[id]
	if !ok || len(p.Data) < 4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(p.Data)
	switch PropType(p.Type) {
	case TypeInteger32, TypeErrorCode:
		return int32(v), true
	case TypeInteger16:
		return int32(int16(v)), true
	case TypeBoolean:
		return int32(v & 0xFF), true
	}
	return 0, false
}

// Bool returns a boolean property.
func (pc *PropertyContext) Bool(id PropID) (bool, bool) {
	p, ok := pc.props[id]
	if !ok || PropType(p.Type) != TypeBoolean || len(p.Data) == 0 {
		return false, false
	}
	return p.Data[0] != 0, true
}

// eight reads an 8-byte value stored in the heap.
func (pc *PropertyContext) eight(id PropID, types ...PropType) (uint64, bool, error) {
	p, ok := pc.props[id]
	if !ok {
		return 0, false, nil
	}
	match := false
	for _, t := range types {
		if PropType(p.Type) == t {
			match = true
		}
	}
	if !match {
		return 0, false, nil
	}
	b, err := pc.raw(p)
	if err != nil {
		return 0, false, eris.Wrapf(err, "property %#04x", uint16(id))
	}
	if len(b) < 8 {
		return 0, false, corruptf("property %#04x: %d bytes for an 8-byte value", uint16(id), len(b))
	}
	return binary.LittleEndian.Uint64(b), true, nil
}

// Int64 returns a 64-bit integer or currency property.
func (pc *PropertyContext) Int64(id PropID) (int64, bool, error) {
	v, ok, err := pc.eight(id, TypeInteger64, TypeCurrency)
	return int64(v), ok, err
}

// Float64 returns a floating point property.
func (pc *PropertyContext) Float64(id PropID) (float64, bool, error) {
	p, ok := pc.props[id]
	if ok && PropType(p.Type) == TypeFloating32 && len(p.Data) >= 4 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p.Data))), true, nil
	}
	v, ok, err := pc.eight(id, TypeFloating64, TypeFloatTime)
	return math.Float64frombits(v), ok, err
}

// Time returns a PtypTime property in UTC. ok is false when the property is
// missing or holds Outlook's "no date" value.
func (pc *PropertyContext) Time(id PropID) (time.Time, bool, error) {
	v, ok, err := pc.eight(id, TypeTime)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, ok := FiletimeToTime(v)
	return t, ok, nil
}

// Binary returns the bytes of a binary property, or nil when missing.
func (pc *PropertyContext) Binary(id PropID) ([]byte, error) {
	p, ok := pc.props[id]
	if !ok || PropType(p.Type) != TypeBinary {
		return nil, nil
	}
	b, err := pc.raw(p)
	if err != nil {
		return nil, eris.Wrapf(err, "property %#04x", uint16(id))
	}
	return b, nil
}

const (
	filetimeTicksPerSecond = 10_000_000
	filetimeUnixOffset     = 11_644_473_600
)

// filetimeMaxYear is the first year treated as Outlook's "none" date
// (0x0CB34557_4A0EC000 falls in 4501).
const filetimeMaxYear = 4500

// FiletimeToTime converts 100ns ticks since 1601-01-01 to a UTC time. Zero
// and the far-future sentinel report ok=false.
func FiletimeToTime(ticks uint64) (time.Time, bool) {
	if ticks == 0 || ticks > math.MaxInt64 {
		return time.Time{}, false
	}
	secs := int64(ticks/filetimeTicksPerSecond) - filetimeUnixOffset
	nanos := int64(ticks%filetimeTicksPerSecond) * 100
	t := time.Unix(secs, nanos).UTC()
	if t.Year() >= filetimeMaxYear {
		return time.Time{}, false
	}
	return t, true
}

// TimeToFiletime is the inverse of FiletimeToTime.
func TimeToFiletime(t time.Time) uint64 {
	return uint64(t.Unix()+filetimeUnixOffset)*filetimeTicksPerSecond + uint64(t.Nanosecond()/100)
}
