package slab

import (
	"maps"
	"slices"
	"sync"

	"github.com/joshuapare/slabkit/pkg/types"
)

// rootSet holds the declared roots: named globals and a stack of frames.
// Roots are never counted; they only keep objects alive across Flush and Sweep.
type rootSet struct {
	mu      sync.Mutex
	globals map[string]types.Ref
	frames  []*Frame
}

func newRootSet() *rootSet {
	return &rootSet{globals: make(map[string]types.Ref)}
}

// Frame is a stack frame of uncounted references.
type Frame struct {
	roots  *rootSet
	refs   []types.Ref
	popped bool
}

// SetGlobal binds name to ref. A nil ref removes the binding.
func (r *Registry) SetGlobal(name string, ref types.Ref) {
	r.roots.mu.Lock()
	defer r.roots.mu.Unlock()
	if ref.IsNil() {
		delete(r.roots.globals, name)
		return
	}
	r.roots.globals[name] = ref
}

// DeleteGlobal removes a global binding.
func (r *Registry) DeleteGlobal(name string) {
	r.roots.mu.Lock()
	defer r.roots.mu.Unlock()
	delete(r.roots.globals, name)
}

// Global returns the reference bound to name.
func (r *Registry) Global(name string) (types.Ref, bool) {
	r.roots.mu.Lock()
	defer r.roots.mu.Unlock()
	ref, ok := r.roots.globals[name]
	return ref, ok
}

// Globals returns the global names in sorted order.
func (r *Registry) Globals() []string {
	r.roots.mu.Lock()
	defer r.roots.mu.Unlock()
	return slices.Sorted(maps.Keys(r.roots.globals))
}

// PushFrame opens a new stack frame.
func (r *Registry) PushFrame() *Frame {
	r.roots.mu.Lock()
	defer r.roots.mu.Unlock()
	f := &Frame{roots: r.roots}
	r.roots.frames = append(r.roots.frames, f)
	return f
}

// Hold records ref as live for the lifetime of the frame.
func (f *Frame) Hold(ref types.Ref) error {
	f.roots.mu.Lock()
	defer f.roots.mu.Unlock()
	if f.popped {
		return ErrFramePopped
	}
	if !ref.IsNil() {
		f.refs = append(f.refs, ref)
	}
	return nil
}

// Refs returns the references held by the frame.
func (f *Frame) Refs() []types.Ref {
	f.roots.mu.Lock()
	defer f.roots.mu.Unlock()
	return slices.Clone(f.refs)
}

// Pop closes the frame. Frames may be popped out of order.
func (f *Frame) Pop() error {
	f.roots.mu.Lock()
	defer f.roots.mu.Unlock()
	if f.popped {
		return ErrFramePopped
	}
	f.popped = true
	f.refs = nil
	if i := slices.Index(f.roots.frames, f); i >= 0 {
		f.roots.frames = slices.Delete(f.roots.frames, i, i+1)
	}
	return nil
}

// all returns every rooted reference: globals first, then frames bottom-up.
func (s *rootSet) all() []types.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Ref
	for _, name := range slices.Sorted(maps.Keys(s.globals)) {
		out = append(out, s.globals[name])
	}
	for _, f := range s.frames {
		out = append(out, f.refs...)
	}
	return out
}

// set returns the rooted references as a set.
func (s *rootSet) set() map[types.Ref]struct{} {
	refs := s.all()
	m := make(map[types.Ref]struct{}, len(refs))
	for _, ref := range refs {
		m[ref] = struct{}{}
	}
	return m
}

// rewrite applies fn to every rooted reference and returns how many changed.
func (s *rootSet) rewrite(fn func(types.Ref) types.Ref) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for name, ref := range s.globals {
		if nr := fn(ref); nr != ref {
			s.globals[name] = nr
			changed++
		}
	}
	for _, f := range s.frames {
		for i, ref := range f.refs {
			if nr := fn(ref); nr != ref {
				f.refs[i] = nr
				changed++
			}
		}
	}
	return changed
}

func (s *rootSet) counts() (globals, frames int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.globals), len(s.frames)
}
