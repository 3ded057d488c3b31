package format

// Alignment utilities for slot and arena layouts.

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + SlotAlignmentMask) & ^SlotAlignmentMask
}

// AlignTo returns n aligned up to a power-of-two boundary a.
func AlignTo(n, a int) int {
	if a <= 1 {
		return n
	}
	return (n + a - 1) & ^(a - 1)
}

// NaturalAlign returns the alignment used for a field of the given size:
// the largest power of two not exceeding min(size, 8).
func NaturalAlign(size int) int {
	switch {
	case size >= 8:
		return 8
	case size >= 4:
		return 4
	case size >= 2:
		return 2
	default:
		return 1
	}
}

// SlotSize returns the total slot size for a payload of the given size.
func SlotSize(payload int) int {
	return HeaderSize + Align8(payload)
}
