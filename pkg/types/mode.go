package types

import "fmt"

// TypeID identifies a declared type. Zero is reserved and never assigned.
type TypeID uint16

// Mode is the ownership discipline of a type.
type Mode uint8

const (
	// ModeValue types live on the stack or inline inside other objects. They are never pooled.
	ModeValue Mode = iota
	// ModeManual objects are released by an explicit Free.
	ModeManual
	// ModeRC objects are freed the instant their reference count reaches zero.
	ModeRC
	// ModeDeferRC objects have their count changes queued and applied at flush time.
	ModeDeferRC
)

var modeNames = [...]string{
	ModeValue:   "value",
	ModeManual:  "manual",
	ModeRC:      "rc",
	ModeDeferRC: "defer_rc",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Pooled reports whether objects of this mode are allocated from a pool.
func (m Mode) Pooled() bool {
	return m == ModeManual || m == ModeRC || m == ModeDeferRC
}

// Counted reports whether the mode carries a reference count.
func (m Mode) Counted() bool {
	return m == ModeRC || m == ModeDeferRC
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("types: unknown mode %q", s)
}
