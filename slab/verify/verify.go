package verify

import (
	"fmt"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/pool"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

// Pool is the inspection surface the checks need. *pool.Pool satisfies it.
type Pool interface {
	Type() *typegraph.Type
	NumSlots() int
	Capacity() int
	Live() int
	Free() int
	Header(slot uint32) (format.Header, bool)
	FreeChain(limit int) ([]uint32, error)
	View(ref types.Ref) (pool.Object, error)
}

// ValidationError describes one violated invariant.
type ValidationError struct {
	Type    string
	Message string
	Slot    int // -1 when not tied to a slot
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Slot >= 0 {
		return fmt.Sprintf("%s at slot %d: %s", e.Type, e.Slot, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants runs every check and returns the first violation.
func AllInvariants(p Pool) error {
	checks := []func(Pool) error{Headers, Freelist, Occupancy, Counts, Dummy}
	for _, check := range checks {
		if err := check(p); err != nil {
			return err
		}
	}
	return nil
}

// Headers validates the tag, mode and dummy flag of every slot.
func Headers(p Pool) error {
	t := p.Type()
	n := p.NumSlots()
	if n == 0 {
		return nil
	}
	for slot := range n {
		h, ok := p.Header(uint32(slot))
		if !ok {
			return &ValidationError{
				Type:    "Headers",
				Message: "slot unreadable",
				Slot:    slot,
			}
		}
		if h.Tag != uint32(t.ID) {
			return &ValidationError{
				Type:    "Headers",
				Message: fmt.Sprintf("type tag %d, expected %d (%s)", h.Tag, t.ID, t.Name),
				Slot:    slot,
				Details: map[string]any{"tag": h.Tag, "expected": t.ID},
			}
		}
		if types.Mode(h.Mode) != t.Mode {
			return &ValidationError{
				Type:    "Headers",
				Message: fmt.Sprintf("mode %s, expected %s", types.Mode(h.Mode), t.Mode),
				Slot:    slot,
			}
		}
		dummy := h.Has(format.FlagDummy)
		switch {
		case slot == 0 && !dummy:
			return &ValidationError{Type: "Headers", Message: "slot 0 is not the dummy", Slot: 0}
		case slot == 0 && h.Has(format.FlagFree):
			return &ValidationError{Type: "Headers", Message: "dummy slot is on the freelist", Slot: 0}
		case slot != 0 && dummy:
			return &ValidationError{Type: "Headers", Message: "dummy flag outside slot 0", Slot: slot}
		}
		if h.Has(format.FlagFree) && h.Count != 0 {
			return &ValidationError{
				Type:    "Headers",
				Message: fmt.Sprintf("free slot has count %d", h.Count),
				Slot:    slot,
			}
		}
	}
	return nil
}

// Freelist validates that the freelist is exactly the set of free-flagged slots.
func Freelist(p Pool) error {
	n := p.NumSlots()
	chain, err := p.FreeChain(n)
	if err != nil {
		return &ValidationError{
			Type:    "Freelist",
			Message: err.Error(),
			Slot:    -1,
			Details: map[string]any{"walked": len(chain)},
		}
	}

	onList := make(map[uint32]bool, len(chain))
	for _, slot := range chain {
		if onList[slot] {
			return &ValidationError{Type: "Freelist", Message: "slot linked twice", Slot: int(slot)}
		}
		onList[slot] = true
		h, _ := p.Header(slot)
		if !h.Has(format.FlagFree) {
			return &ValidationError{Type: "Freelist", Message: "live slot on the freelist", Slot: int(slot)}
		}
	}

	for slot := 1; slot < n; slot++ {
		h, _ := p.Header(uint32(slot))
		if h.Has(format.FlagFree) && !onList[uint32(slot)] {
			return &ValidationError{Type: "Freelist", Message: "free slot not on the freelist", Slot: slot}
		}
	}
	if len(chain) != p.Free() {
		return &ValidationError{
			Type:    "Freelist",
			Message: fmt.Sprintf("chain holds %d slots, pool reports %d free", len(chain), p.Free()),
			Slot:    -1,
		}
	}
	return nil
}

// Occupancy validates the live and free counters against a header census.
func Occupancy(p Pool) error {
	live, free, capacity := p.Live(), p.Free(), p.Capacity()
	if live+free != capacity {
		return &ValidationError{
			Type:    "Occupancy",
			Message: fmt.Sprintf("live %d + free %d != capacity %d", live, free, capacity),
			Slot:    -1,
			Details: map[string]any{"live": live, "free": free, "capacity": capacity},
		}
	}

	census := 0
	for slot := 1; slot < p.NumSlots(); slot++ {
		h, _ := p.Header(uint32(slot))
		if !h.Has(format.FlagFree) {
			census++
		}
	}
	if census != live {
		return &ValidationError{
			Type:    "Occupancy",
			Message: fmt.Sprintf("%d occupied headers, pool reports %d live", census, live),
			Slot:    -1,
		}
	}
	return nil
}

// Counts validates that no live rc object has a zero count. defer_rc objects
// may legitimately sit at zero until the next flush.
func Counts(p Pool) error {
	if p.Type().Mode != types.ModeRC {
		return nil
	}
	for slot := 1; slot < p.NumSlots(); slot++ {
		h, _ := p.Header(uint32(slot))
		if !h.Has(format.FlagFree) && h.Count == 0 {
			return &ValidationError{Type: "Counts", Message: "live rc object with count 0", Slot: slot}
		}
	}
	return nil
}

// Dummy validates the dummy object's reference fields.
func Dummy(p Pool) error {
	t := p.Type()
	if p.NumSlots() == 0 {
		return nil
	}
	o, err := p.View(types.DummyRef(t.ID))
	if err != nil {
		return &ValidationError{Type: "Dummy", Message: err.Error(), Slot: 0}
	}
	for _, rs := range t.Refs {
		got := o.RefSlot(rs.Offset)
		if want := types.DummyRef(rs.Target); got != want {
			return &ValidationError{
				Type:    "Dummy",
				Message: fmt.Sprintf("field %s holds %s, expected %s", rs.Path, got, want),
				Slot:    0,
				Details: map[string]any{"field": rs.Path},
			}
		}
	}
	return nil
}
