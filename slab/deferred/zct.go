package deferred

import (
	"sync"

	"github.com/joshuapare/slabkit/pkg/types"
)

// ZCT is an insertion-ordered set of objects whose count is zero.
type ZCT struct {
	mu    sync.Mutex
	order []types.Ref
	index map[types.Ref]int
}

// NewZCT creates an empty table.
func NewZCT() *ZCT {
	return &ZCT{index: make(map[types.Ref]int)}
}

// Add inserts ref. It reports false if ref was already present.
func (z *ZCT) Add(ref types.Ref) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	if _, ok := z.index[ref]; ok {
		return false
	}
	z.index[ref] = len(z.order)
	z.order = append(z.order, ref)
	return true
}

// Remove deletes ref. It reports whether ref was present.
func (z *ZCT) Remove(ref types.Ref) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	i, ok := z.index[ref]
	if !ok {
		return false
	}
	delete(z.index, ref)
	z.order[i] = types.Nil
	if len(z.order) > 2*len(z.index)+16 {
		z.compact()
	}
	return true
}

// compact drops tombstones. Caller must hold z.mu.
func (z *ZCT) compact() {
	n := 0
	for _, r := range z.order {
		if r.IsNil() {
			continue
		}
		z.order[n] = r
		z.index[r] = n
		n++
	}
	clear(z.order[n:])
	z.order = z.order[:n]
}

// Contains reports whether ref is present.
func (z *ZCT) Contains(ref types.Ref) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	_, ok := z.index[ref]
	return ok
}

// Len returns the number of entries.
func (z *ZCT) Len() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.index)
}

// Snapshot returns the entries in insertion order.
func (z *ZCT) Snapshot() []types.Ref {
	z.mu.Lock()
	defer z.mu.Unlock()
	out := make([]types.Ref, 0, len(z.index))
	for _, r := range z.order {
		if !r.IsNil() {
			out = append(out, r)
		}
	}
	return out
}

// Rewrite replaces every entry r with fn(r), keeping order, and returns how many changed.
func (z *ZCT) Rewrite(fn func(types.Ref) types.Ref) int {
	z.mu.Lock()
	defer z.mu.Unlock()

	changed := 0
	order := make([]types.Ref, 0, len(z.index))
	index := make(map[types.Ref]int, len(z.index))
	for _, r := range z.order {
		if r.IsNil() {
			continue
		}
		nr := fn(r)
		if nr != r {
			changed++
		}
		if _, dup := index[nr]; dup {
			continue
		}
		index[nr] = len(order)
		order = append(order, nr)
	}
	z.order, z.index = order, index
	return changed
}

// Reset removes all entries.
func (z *ZCT) Reset() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.order = z.order[:0]
	clear(z.index)
}
