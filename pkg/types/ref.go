package types

import "fmt"

// Ref is a handle to a pooled object. The zero Ref is nil.
type Ref uint64

// Nil is the null reference.
const Nil Ref = 0

const (
	typeShift = 48
	genShift  = 32
	genMask   = 0xFFFF
	slotMask  = 0xFFFFFFFF
)

// MakeRef packs a type, generation and slot index into a Ref.
func MakeRef(t TypeID, gen uint16, slot uint32) Ref {
	return Ref(uint64(t)<<typeShift | uint64(gen)<<genShift | uint64(slot))
}

// DummyRef returns the reference to the reserved dummy object of t (slot 0, generation 0).
func DummyRef(t TypeID) Ref {
	return MakeRef(t, 0, 0)
}

// Type returns the TypeID encoded in r.
func (r Ref) Type() TypeID { return TypeID(uint64(r) >> typeShift) }

// Gen returns the slot generation encoded in r.
func (r Ref) Gen() uint16 { return uint16((uint64(r) >> genShift) & genMask) }

// Slot returns the slot index encoded in r.
func (r Ref) Slot() uint32 { return uint32(uint64(r) & slotMask) }

// IsNil reports whether r is the null reference.
func (r Ref) IsNil() bool { return r == Nil }

// IsDummy reports whether r names a dummy object.
func (r Ref) IsDummy() bool { return r != Nil && r.Slot() == 0 }

func (r Ref) String() string {
	if r.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d:%d@%d", r.Type(), r.Slot(), r.Gen())
}
