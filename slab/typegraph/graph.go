package typegraph

import (
	"fmt"
	"slices"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/pkg/types"
)

// Graph is the validated, laid-out set of declared types.
type Graph struct {
	types  []*Type // index = TypeID - 1
	byName map[string]*Type
}

// layout state for cycle detection.
const (
	unvisited = iota
	visiting
	done
)

// Build validates descs, lays out every type and precomputes compaction closures.
// TypeIDs are assigned in declaration order starting at 1.
func Build(descs []TypeDesc) (*Graph, error) {
	if len(descs) > types.MaxTypes {
		return nil, fmt.Errorf("%w: %d declared", ErrTooManyTypes, len(descs))
	}

	g := &Graph{
		types:  make([]*Type, 0, len(descs)),
		byName: make(map[string]*Type, len(descs)),
	}
	for i, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: type %d has no name", ErrInvalidField, i+1)
		}
		if _, dup := g.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateType, d.Name)
		}
		if d.Mode > types.ModeDeferRC {
			return nil, fmt.Errorf("%w: %s has mode %s", ErrInvalidField, d.Name, d.Mode)
		}
		t := &Type{ID: types.TypeID(i + 1), Name: d.Name, Mode: d.Mode}
		g.types = append(g.types, t)
		g.byName[d.Name] = t
	}

	state := make([]int, len(descs))
	for i := range descs {
		if err := g.layout(descs, i, state); err != nil {
			return nil, err
		}
	}
	for _, t := range g.types {
		t.Refs = flatten(t, "", 0, nil)
	}
	g.computeClosures()
	return g, nil
}

// MustBuild is Build for static schemas in tests and examples.
func MustBuild(descs []TypeDesc) *Graph {
	g, err := Build(descs)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Graph) layout(descs []TypeDesc, i int, state []int) error {
	switch state[i] {
	case done:
		return nil
	case visiting:
		return fmt.Errorf("%w: through %s", ErrInlineCycle, descs[i].Name)
	}
	state[i] = visiting

	t := g.types[i]
	off, align := 0, 1
	seen := make(map[string]struct{}, len(descs[i].Fields))
	for _, fd := range descs[i].Fields {
		if fd.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed field", ErrInvalidField, t.Name)
		}
		if _, dup := seen[fd.Name]; dup {
			return fmt.Errorf("%w: %s.%s declared twice", ErrInvalidField, t.Name, fd.Name)
		}
		seen[fd.Name] = struct{}{}

		f := Field{Name: fd.Name, Kind: fd.Kind}
		fieldAlign := 1
		switch fd.Kind {
		case FieldScalar:
			if !validScalarSize(fd.Size) {
				return fmt.Errorf("%w: %s.%s has size %d", ErrInvalidField, t.Name, fd.Name, fd.Size)
			}
			f.Size = fd.Size
			fieldAlign = format.NaturalAlign(fd.Size)
		case FieldRef:
			target, ok := g.byName[fd.Target]
			if !ok {
				return fmt.Errorf("%w: %s.%s -> %q", ErrUnknownType, t.Name, fd.Name, fd.Target)
			}
			if !target.Pooled() {
				return fmt.Errorf("%w: %s.%s references value type %s", ErrInvalidField, t.Name, fd.Name, target.Name)
			}
			f.Size = types.RefSize
			f.Target = target
			fieldAlign = types.RefSize
		case FieldInline:
			target, ok := g.byName[fd.Target]
			if !ok {
				return fmt.Errorf("%w: %s.%s embeds %q", ErrUnknownType, t.Name, fd.Name, fd.Target)
			}
			if target.Pooled() {
				return fmt.Errorf("%w: %s.%s embeds pooled type %s", ErrInvalidField, t.Name, fd.Name, target.Name)
			}
			if err := g.layout(descs, int(target.ID)-1, state); err != nil {
				return err
			}
			f.Size = target.Size
			f.Target = target
			fieldAlign = target.Align
		default:
			return fmt.Errorf("%w: %s.%s has kind %s", ErrInvalidField, t.Name, fd.Name, fd.Kind)
		}

		off = format.AlignTo(off, fieldAlign)
		f.Offset = off
		off += f.Size
		align = max(align, fieldAlign)
		t.Fields = append(t.Fields, f)
	}

	if t.Pooled() {
		t.Align = format.SlotAlignment
		t.Size = format.Align8(off)
	} else {
		t.Align = align
		t.Size = format.AlignTo(off, align)
	}
	state[i] = done
	return nil
}

func validScalarSize(n int) bool {
	switch {
	case n <= 0:
		return false
	case n == 1, n == 2, n == 4:
		return true
	default:
		return n%8 == 0
	}
}

// flatten collects ref slots of t in declaration order, descending into inline values.
func flatten(t *Type, prefix string, base int, out []RefSlot) []RefSlot {
	for _, f := range t.Fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		switch f.Kind {
		case FieldRef:
			out = append(out, RefSlot{Path: path, Offset: base + f.Offset, Target: f.Target.ID})
		case FieldInline:
			out = flatten(f.Target, path, base+f.Offset, out)
		}
	}
	return out
}

func (g *Graph) computeClosures() {
	rev := make(map[types.TypeID][]types.TypeID)
	for _, t := range g.types {
		if !t.Pooled() {
			continue
		}
		for _, rs := range t.Refs {
			if !slices.Contains(rev[rs.Target], t.ID) {
				rev[rs.Target] = append(rev[rs.Target], t.ID)
			}
		}
	}

	for _, t := range g.types {
		if !t.Pooled() {
			continue
		}
		t.referrers = slices.Sorted(slices.Values(rev[t.ID]))

		visited := make(map[types.TypeID]bool)
		queue := append([]types.TypeID(nil), rev[t.ID]...)
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if visited[id] {
				continue
			}
			visited[id] = true
			queue = append(queue, rev[id]...)
		}
		closure := make([]types.TypeID, 0, len(visited))
		for id := range visited {
			closure = append(closure, id)
		}
		slices.Sort(closure)
		t.closure = closure
	}
}

// Type returns the type with the given ID.
func (g *Graph) Type(id types.TypeID) (*Type, bool) {
	if id == 0 || int(id) > len(g.types) {
		return nil, false
	}
	return g.types[id-1], true
}

// Lookup returns the type with the given name.
func (g *Graph) Lookup(name string) (*Type, bool) {
	t, ok := g.byName[name]
	return t, ok
}

// Types returns all types in declaration order.
func (g *Graph) Types() []*Type {
	return slices.Clone(g.types)
}

// Len returns the number of declared types.
func (g *Graph) Len() int { return len(g.types) }

// Closure returns the pooled types that can transitively reference id, sorted by ID.
func (g *Graph) Closure(id types.TypeID) []types.TypeID {
	t, ok := g.Type(id)
	if !ok {
		return nil
	}
	return slices.Clone(t.closure)
}

// DirectReferrers returns the pooled types holding a ref slot that targets id.
func (g *Graph) DirectReferrers(id types.TypeID) []types.TypeID {
	t, ok := g.Type(id)
	if !ok {
		return nil
	}
	return slices.Clone(t.referrers)
}

// InClosure reports whether from can transitively reference to.
func (g *Graph) InClosure(from, to types.TypeID) bool {
	t, ok := g.Type(to)
	if !ok {
		return false
	}
	_, found := slices.BinarySearch(t.closure, from)
	return found
}
