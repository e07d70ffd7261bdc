package pst

// PropID is a property identifier (the high 16 bits of a property tag).
type PropID uint16

// PropType is a property value type (the low 16 bits of a property tag).
type PropType uint16

// Property value types.
const (
	TypeInteger16   PropType = 0x0002
	TypeInteger32   PropType = 0x0003
	TypeFloating32  PropType = 0x0004
	TypeFloating64  PropType = 0x0005
	TypeCurrency    PropType = 0x0006
	TypeFloatTime   PropType = 0x0007
	TypeErrorCode   PropType = 0x000A
	TypeBoolean     PropType = 0x000B
	TypeObject      PropType = 0x000D
	TypeInteger64   PropType = 0x0014
	TypeString8     PropType = 0x001E
	TypeString      PropType = 0x001F
	TypeTime        PropType = 0x0040
	TypeGUID        PropType = 0x0048
	TypeBinary      PropType = 0x0102
	TypeMultiString PropType = 0x101F
)

// Property ids used by the reader and the record decoder.
const (
	PropNameidStreamGUID  PropID = 0x0002
	PropNameidStreamEntry PropID = 0x0003
	PropNameidStreamString PropID = 0x0004
	PropMessageClass      PropID = 0x001A
	PropSubject           PropID = 0x0037
	PropClientSubmitTime  PropID = 0x0039
	PropSentRepresenting  PropID = 0x0042
	PropSenderName        PropID = 0x0C1A
	PropSenderEmail       PropID = 0x0C1F
	PropDisplayBcc        PropID = 0x0E02
	PropDisplayCc         PropID = 0x0E03
	PropDisplayTo         PropID = 0x0E04
	PropDeliveryTime      PropID = 0x0E06
	PropMessageFlags      PropID = 0x0E07
	PropMessageSize       PropID = 0x0E08
	PropHasAttachments    PropID = 0x0E1B
	PropAttachSize        PropID = 0x0E20
	PropBody              PropID = 0x1000
	PropRTFCompressed     PropID = 0x1009
	PropBodyHTML          PropID = 0x1013
	PropDisplayName       PropID = 0x3001
	PropCreationTime      PropID = 0x3007
	PropLastModified      PropID = 0x3008
	PropIPMSubtreeEntryID PropID = 0x35E0
	PropContentCount      PropID = 0x3602
	PropSubfolders        PropID = 0x360A
	PropAttachFilename    PropID = 0x3704
	PropAttachMethod      PropID = 0x3705
	PropAttachLongName    PropID = 0x3707
	PropAttachMimeTag     PropID = 0x370E
	PropGivenName         PropID = 0x3A06
	PropBusinessPhone     PropID = 0x3A08
	PropHomePhone         PropID = 0x3A09
	PropSurname           PropID = 0x3A11
	PropCompanyName       PropID = 0x3A16
	PropMobilePhone       PropID = 0x3A1C
	PropInternetCodepage  PropID = 0x3FDE
	PropMessageCodepage   PropID = 0x3FFD
	PropLtpRowID          PropID = 0x67F2
	PropPstPassword       PropID = 0x67FF
)
