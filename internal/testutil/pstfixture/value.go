package pstfixture

import (
	"encoding/binary"
	"math"
	"time"
	"unicode/utf16"

	"github.com/stchris/pstexplorer/internal/pst"
)

// Value is a property value in its on-disk encoding.
type Value struct {
	Type pst.PropType
	Data []byte

	// dangling values reference a subnode that is never written.
	dangling bool
}

// Prop is a property of a message, folder or attachment. Props override the
// values the builder derives from struct fields.
type Prop struct {
	ID    pst.PropID
	Value Value
}

// NamedProp is a property addressed by property set and LID. The builder
// assigns its id and records it in the name-to-id map.
type NamedProp struct {
	Set   pst.GUID
	LID   uint32
	Value Value
}

// String encodes s as PtypString (UTF-16LE).
func String(s string) Value {
	u := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(u))
	for i, c := range u {
		binary.LittleEndian.PutUint16(b[2*i:], c)
	}
	return Value{Type: pst.TypeString, Data: b}
}

// String8 stores raw 8-bit text as PtypString8.
func String8(b []byte) Value {
	return Value{Type: pst.TypeString8, Data: append([]byte(nil), b...)}
}

// Int32 encodes a PtypInteger32.
func Int32(v int32) Value {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return Value{Type: pst.TypeInteger32, Data: b}
}

// Bool encodes a PtypBoolean.
func Bool(v bool) Value {
	b := make([]byte, 4)
	if v {
		b[0] = 1
	}
	return Value{Type: pst.TypeBoolean, Data: b}
}

// Int64 encodes a PtypInteger64.
func Int64(v int64) Value {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return Value{Type: pst.TypeInteger64, Data: b}
}

// Float64 encodes a PtypFloating64.
func Float64(v float64) Value {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return Value{Type: pst.TypeFloating64, Data: b}
}

// Time encodes a PtypTime.
func Time(t time.Time) Value {
	return FileTime(pst.TimeToFiletime(t))
}

// FileTime encodes raw FILETIME ticks, including sentinel values.
func FileTime(ticks uint64) Value {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, ticks)
	return Value{Type: pst.TypeTime, Data: b}
}

// Binary encodes a PtypBinary.
func Binary(b []byte) Value {
	return Value{Type: pst.TypeBinary, Data: append([]byte(nil), b...)}
}

// Dangling is a reference-typed value whose subnode does not exist, for
// exercising per-record decode failures.
func Dangling(typ pst.PropType) Value {
	return Value{Type: typ, dangling: true}
}

// inline reports whether the value lives in the PC record itself.
func (v Value) inline() bool {
	switch v.Type {
	case pst.TypeInteger16, pst.TypeInteger32, pst.TypeFloating32, pst.TypeErrorCode, pst.TypeBoolean:
		return true
	}
	return false
}

// cellSize is the width of the value in a table row.
func (v Value) cellSize() int {
	switch v.Type {
	case pst.TypeInteger16:
		return 2
	case pst.TypeBoolean:
		return 1
	case pst.TypeInteger64, pst.TypeFloating64, pst.TypeCurrency, pst.TypeFloatTime, pst.TypeTime:
		return 8
	}
	return 4
}

// fixed reports whether a table cell holds the value itself rather than an
// HNID.
func (v Value) fixed() bool {
	switch v.Type {
	case pst.TypeString, pst.TypeString8, pst.TypeBinary, pst.TypeGUID, pst.TypeMultiString, pst.TypeObject:
		return false
	}
	return true
}
