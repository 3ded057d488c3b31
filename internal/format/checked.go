package format

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false on overflow.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// ChunkBytes returns slots*slotSize, or an error if the product overflows or is empty.
func ChunkBytes(slots, slotSize int) (int, error) {
	n, ok := MulOverflowSafe(slots, slotSize)
	if !ok {
		return 0, fmt.Errorf("overflow: slots=%d * slotSize=%d", slots, slotSize)
	}
	if n == 0 {
		return 0, fmt.Errorf("empty chunk: slots=%d slotSize=%d", slots, slotSize)
	}
	return n, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}
