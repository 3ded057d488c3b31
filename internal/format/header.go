// Package format describes the in-memory layout of pool slots: the fixed
// object header every slot starts with, and the helpers used to read and
// write it.
//
// Slot layout (little-endian):
//
//	0x00  u32  type tag (never changes for the life of the slot)
//	0x04  u8   mode
//	0x05  u8   flags
//	0x06  u16  generation
//	0x08  u32  reference count
//	0x0C  u32  freelist link (slot index + 1, 0 terminates)
//	0x10  ...  payload, padded to 8 bytes
package format

const (
	HeaderSize = 16

	TagOffset   = 0x00
	ModeOffset  = 0x04
	FlagsOffset = 0x05
	GenOffset   = 0x06
	CountOffset = 0x08
	LinkOffset  = 0x0C

	SlotAlignment     = 8
	SlotAlignmentMask = SlotAlignment - 1
)

// Slot flags.
const (
	FlagFree  uint8 = 1 << 0
	FlagDummy uint8 = 1 << 1
	FlagMark  uint8 = 1 << 2
	FlagDying uint8 = 1 << 3
)

// Header is the decoded form of a slot header.
type Header struct {
	Tag   uint32
	Mode  uint8
	Flags uint8
	Gen   uint16
	Count uint32
	Link  uint32
}

// Has reports whether all bits of f are set.
func (h Header) Has(f uint8) bool { return h.Flags&f == f }

// DecodeHeader reads the header at the start of slot.
func DecodeHeader(slot []byte) Header {
	return Header{
		Tag:   ReadU32(slot, TagOffset),
		Mode:  slot[ModeOffset],
		Flags: slot[FlagsOffset],
		Gen:   ReadU16(slot, GenOffset),
		Count: ReadU32(slot, CountOffset),
		Link:  ReadU32(slot, LinkOffset),
	}
}

// EncodeHeader writes h at the start of slot.
func EncodeHeader(slot []byte, h Header) {
	PutU32(slot, TagOffset, h.Tag)
	slot[ModeOffset] = h.Mode
	slot[FlagsOffset] = h.Flags
	PutU16(slot, GenOffset, h.Gen)
	PutU32(slot, CountOffset, h.Count)
	PutU32(slot, LinkOffset, h.Link)
}
