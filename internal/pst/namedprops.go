package pst

import (
	"encoding/binary"
	"fmt"

	gopst "github.com/mooijtech/go-pst/v6/pkg"
)

// GUID is a property set identifier in its on-disk (mixed-endian) layout.
type GUID [16]byte

func (g GUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%x-%x",
		binary.LittleEndian.Uint32(g[0:]),
		binary.LittleEndian.Uint16(g[4:]),
		binary.LittleEndian.Uint16(g[6:]),
		g[8:10], g[10:])
}

// mapiGUID builds {xxxxxxxx-0000-0000-C000-000000000046}, the shape shared by
// the Outlook property sets.
func mapiGUID(d1 uint32) GUID {
	var g GUID
	binary.LittleEndian.PutUint32(g[:], d1)
	g[8] = 0xC0
	g[15] = 0x46
	return g
}

// Property sets referenced by the record decoder.
var (
	PSMAPI            = mapiGUID(0x00020328)
	PSPublicStrings   = mapiGUID(0x00020329)
	PSETIDAppointment = mapiGUID(0x00062002)
	PSETIDTask        = mapiGUID(0x00062003)
	PSETIDAddress     = mapiGUID(0x00062004)
	PSETIDCommon      = mapiGUID(0x00062008)
	PSETIDNote        = mapiGUID(0x0006200E)
)

// propertySets maps the property sets the decoder asks for to go-pst's
// name-to-id map keys.
var propertySets = map[GUID]gopst.PropertySet{
	PSMAPI:            gopst.PropertySetMAPI,
	PSPublicStrings:   gopst.PropertySetPublicStrings,
	PSETIDAppointment: gopst.PropertySetAppointment,
	PSETIDTask:        gopst.PropertySetTask,
	PSETIDAddress:     gopst.PropertySetAddress,
	PSETIDCommon:      gopst.PropertySetCommon,
	PSETIDNote:        gopst.PropertySetNote,
}

// NamedProps resolves numeric named properties (property set + LID) to the
// property ids used in this container.
type NamedProps struct {
	m *gopst.NameToIDMap
}

// Lookup returns the property id assigned to (guid, lid).
func (m *NamedProps) Lookup(guid GUID, lid uint32) (PropID, bool) {
	if m == nil || m.m == nil {
		return 0, false
	}
	set, ok := propertySets[guid]
	if !ok {
		return 0, false
	}
	id, err := m.m.GetPropertyID(int(lid&0xFFFF), set)
	if err != nil {
		return 0, false
	}
	return PropID(id), true
}

// Len returns the number of numeric named properties.
func (m *NamedProps) Len() int {
	if m == nil || m.m == nil {
		return 0
	}
	return len(m.m.NameToID)
}

// NamedProps returns the name-to-id map read at open time. A container
// without one yields an empty map: named properties are optional.
func (f *File) NamedProps() (*NamedProps, error) {
	return &NamedProps{m: f.gf.NameToIDMap}, nil
}
