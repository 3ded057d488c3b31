package pool

import (
	"fmt"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

// Object is a typed view of one slot. It aliases pool memory and stays valid
// until the pool is trimmed or closed; a view of a slot that is later freed
// observes the scrubbed payload, never memory of another type.
type Object struct {
	ref types.Ref
	typ *typegraph.Type
	buf []byte
}

// Ref returns the reference the view was resolved from.
func (o Object) Ref() types.Ref { return o.ref }

// Type returns the object's type.
func (o Object) Type() *typegraph.Type { return o.typ }

// Valid reports whether o was resolved from a pool.
func (o Object) Valid() bool { return o.buf != nil }

// Header decodes the slot header.
func (o Object) Header() format.Header { return format.DecodeHeader(o.buf) }

// Tag returns the slot's type tag.
func (o Object) Tag() types.TypeID { return types.TypeID(format.ReadU32(o.buf, format.TagOffset)) }

// Mode returns the mode recorded in the header.
func (o Object) Mode() types.Mode { return types.Mode(o.buf[format.ModeOffset]) }

// Flags returns the header flag bits.
func (o Object) Flags() uint8 { return o.buf[format.FlagsOffset] }

// Count returns the reference count recorded in the header.
func (o Object) Count() uint32 { return format.ReadU32(o.buf, format.CountOffset) }

// IsLive reports whether the slot is still occupied by the object o was resolved for.
func (o Object) IsLive() bool {
	h := o.Header()
	return !h.Has(format.FlagFree) && !h.Has(format.FlagDummy) && h.Gen == o.ref.Gen()
}

// IsDummy reports whether o is its pool's dummy object.
func (o Object) IsDummy() bool { return o.Header().Has(format.FlagDummy) }

// Payload returns the object's payload bytes.
func (o Object) Payload() []byte {
	return o.buf[format.HeaderSize : format.HeaderSize+o.typ.Size]
}

func (o Object) field(path string, kinds ...typegraph.FieldKind) (typegraph.Field, error) {
	f, err := o.typ.Field(path)
	if err != nil {
		return f, err
	}
	for _, k := range kinds {
		if f.Kind == k {
			return f, nil
		}
	}
	return f, fmt.Errorf("%w: %s.%s is %s", ErrFieldKind, o.typ.Name, path, f.Kind)
}

// Uint reads a scalar field of size 1, 2, 4 or 8.
func (o Object) Uint(path string) (uint64, error) {
	f, err := o.field(path, typegraph.FieldScalar)
	if err != nil {
		return 0, err
	}
	if f.Size > 8 {
		return 0, fmt.Errorf("%w: %s.%s is %d bytes", ErrFieldKind, o.typ.Name, path, f.Size)
	}
	return format.ReadUint(o.Payload(), f.Offset, f.Size), nil
}

// SetUint writes a scalar field of size 1, 2, 4 or 8, truncating v to the field width.
func (o Object) SetUint(path string, v uint64) error {
	f, err := o.field(path, typegraph.FieldScalar)
	if err != nil {
		return err
	}
	if f.Size > 8 {
		return fmt.Errorf("%w: %s.%s is %d bytes", ErrFieldKind, o.typ.Name, path, f.Size)
	}
	format.PutUint(o.Payload(), f.Offset, f.Size, v)
	return nil
}

// Bytes returns the raw bytes of a scalar or inline field. The slice aliases the slot.
func (o Object) Bytes(path string) ([]byte, error) {
	f, err := o.field(path, typegraph.FieldScalar, typegraph.FieldInline)
	if err != nil {
		return nil, err
	}
	b, _ := format.Slice(o.Payload(), f.Offset, f.Size)
	return b, nil
}

// RefAt reads a reference field.
func (o Object) RefAt(path string) (types.Ref, error) {
	f, err := o.field(path, typegraph.FieldRef)
	if err != nil {
		return types.Nil, err
	}
	return o.RefSlot(f.Offset), nil
}

// RefSlot reads the reference stored at a payload offset taken from Type.Refs.
func (o Object) RefSlot(off int) types.Ref {
	return types.Ref(format.ReadU64(o.Payload(), off))
}

// PutRef stores r at a payload offset taken from Type.Refs without any count
// bookkeeping. Counted stores go through the registry.
func (o Object) PutRef(off int, r types.Ref) {
	format.PutU64(o.Payload(), off, uint64(r))
}

// Refs returns the current contents of every reference slot in declaration order.
func (o Object) Refs() []types.Ref {
	out := make([]types.Ref, len(o.typ.Refs))
	for i, rs := range o.typ.Refs {
		out[i] = o.RefSlot(rs.Offset)
	}
	return out
}
