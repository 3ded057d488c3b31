package format

import "encoding/binary"

// Little-endian integer helpers. Slot memory is plain bytes (it may live in an
// anonymous mapping) so every multi-byte field goes through these.

// PutU16 writes a uint16 at off.
func PutU16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:off+2], v)
}

// PutU32 writes a uint32 at off.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 at off.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU16 reads a uint16 at off.
func ReadU16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// ReadU32 reads a uint32 at off.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 at off.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// PutUint writes the low size bytes of v at off (size 1, 2, 4 or 8).
func PutUint(b []byte, off, size int, v uint64) {
	switch size {
	case 1:
		b[off] = byte(v)
	case 2:
		PutU16(b, off, uint16(v))
	case 4:
		PutU32(b, off, uint32(v))
	default:
		PutU64(b, off, v)
	}
}

// ReadUint reads a size-byte unsigned integer at off (size 1, 2, 4 or 8).
func ReadUint(b []byte, off, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[off])
	case 2:
		return uint64(ReadU16(b, off))
	case 4:
		return uint64(ReadU32(b, off))
	default:
		return ReadU64(b, off)
	}
}
