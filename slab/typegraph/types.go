package typegraph

import (
	"fmt"

	"github.com/joshuapare/slabkit/pkg/types"
)

// FieldKind is the storage class of a field.
type FieldKind uint8

const (
	FieldScalar FieldKind = iota + 1
	FieldRef
	FieldInline
)

func (k FieldKind) String() string {
	switch k {
	case FieldScalar:
		return "scalar"
	case FieldRef:
		return "ref"
	case FieldInline:
		return "inline"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseFieldKind is the inverse of FieldKind.String.
func ParseFieldKind(s string) (FieldKind, error) {
	switch s {
	case "scalar":
		return FieldScalar, nil
	case "ref":
		return FieldRef, nil
	case "inline":
		return FieldInline, nil
	default:
		return 0, fmt.Errorf("%w: kind %q", ErrInvalidField, s)
	}
}

// FieldDesc declares one field.
type FieldDesc struct {
	Name   string
	Kind   FieldKind
	Size   int    // scalar only
	Target string // ref and inline only
}

// TypeDesc declares one type.
type TypeDesc struct {
	Name   string
	Mode   types.Mode
	Fields []FieldDesc
}

// Field is a laid-out field. Offset is relative to the start of the payload.
type Field struct {
	Name   string
	Kind   FieldKind
	Offset int
	Size   int
	Target *Type // ref and inline only
}

// RefSlot is a flattened reference location inside a payload.
type RefSlot struct {
	Path   string // dotted field path, e.g. "pos.owner"
	Offset int
	Target types.TypeID
}

// Type is a laid-out type.
type Type struct {
	ID     types.TypeID
	Name   string
	Mode   types.Mode
	Fields []Field
	Size   int // payload size in bytes
	Align  int
	Refs   []RefSlot

	closure   []types.TypeID
	referrers []types.TypeID
}

// Pooled reports whether objects of t come from a pool.
func (t *Type) Pooled() bool { return t.Mode.Pooled() }

// Field resolves a dotted field path. The returned Offset is absolute within the payload.
func (t *Type) Field(path string) (Field, error) {
	cur := t
	base := 0
	rest := path
	for {
		name, tail, nested := cut(rest)
		f, ok := cur.field(name)
		if !ok {
			return Field{}, fmt.Errorf("%w: %s has no field %q", ErrInvalidField, t.Name, path)
		}
		if !nested {
			f.Offset += base
			f.Name = path
			return f, nil
		}
		if f.Kind != FieldInline {
			return Field{}, fmt.Errorf("%w: %s.%s is not an inline value", ErrInvalidField, t.Name, name)
		}
		base += f.Offset
		cur = f.Target
		rest = tail
	}
}

func (t *Type) field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func cut(path string) (head, tail string, found bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:], true
		}
	}
	return path, "", false
}

func (t *Type) String() string {
	return fmt.Sprintf("%s(%s)", t.Name, t.Mode)
}
