package slab

import (
	"fmt"

	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/pool"
)

// CompactReport summarizes one Compact call.
type CompactReport struct {
	Type          string
	Moves         []pool.Move
	Visited       int // objects scanned in the closure
	Rewritten     int // ref slots updated in heap objects
	RootsRewired  int // globals, frame entries, queued deltas and ZCT entries updated
	ClosureSize   int // types whose objects were scanned
	FreeRunBefore int
	FreeRunAfter  int
}

// Remap translates a reference taken before the compaction.
func (c CompactReport) Remap(ref types.Ref) types.Ref {
	for _, m := range c.Moves {
		if m.From == ref {
			return m.To
		}
	}
	return ref
}

// Compact defragments the pool of t and rewrites every reference to a moved
// object. Only objects of the types that can reach t (its precomputed
// closure) are scanned, and only their slots that target t are rewritten.
// Roots, queued deltas and the ZCT are rewritten too. Chunks are not
// released; call Trim afterwards for that.
//
// Compact must not run concurrently with mutators.
func (r *Registry) Compact(t types.TypeID) (CompactReport, error) {
	r.maint.Lock()
	defer r.maint.Unlock()

	typ, ok := r.g.Type(t)
	if !ok {
		return CompactReport{}, fmt.Errorf("%w: id %d", ErrUnknownType, t)
	}
	rep := CompactReport{Type: typ.Name}
	if r.closed.Load() {
		return rep, ErrClosed
	}
	if !typ.Pooled() {
		return rep, fmt.Errorf("%w: %s is a value type", ErrNotPooled, typ.Name)
	}
	p := r.existingPool(t)
	if p == nil {
		return rep, nil
	}

	closure := r.g.Closure(t)
	rep.ClosureSize = len(closure)
	rep.FreeRunBefore = p.LongestFreeRun()
	rep.Moves = p.Compact()
	rep.FreeRunAfter = p.LongestFreeRun()
	if len(rep.Moves) == 0 {
		return rep, nil
	}

	moved := make(map[types.Ref]types.Ref, len(rep.Moves))
	for _, m := range rep.Moves {
		moved[m.From] = m.To
	}
	remap := func(ref types.Ref) types.Ref {
		if to, ok := moved[ref]; ok {
			return to
		}
		return ref
	}

	for _, id := range closure {
		ct, _ := r.g.Type(id)
		cp := r.existingPool(id)
		if cp == nil {
			continue
		}
		var offsets []int
		for _, rs := range ct.Refs {
			if rs.Target == t {
				offsets = append(offsets, rs.Offset)
			}
		}
		if len(offsets) == 0 {
			continue
		}
		cp.ForEachLive(func(o pool.Object) bool {
			rep.Visited++
			for _, off := range offsets {
				old := o.RefSlot(off)
				if nr := remap(old); nr != old {
					o.PutRef(off, nr)
					rep.Rewritten++
				}
			}
			return true
		})
	}

	rep.RootsRewired += r.roots.rewrite(remap)
	rep.RootsRewired += r.queue.Rewrite(remap)
	rep.RootsRewired += r.zct.Rewrite(remap)

	r.log.Debug("compact",
		"type", typ.Name,
		"moved", len(rep.Moves),
		"rewritten", rep.Rewritten,
		"closure", rep.ClosureSize,
		"free_run_before", rep.FreeRunBefore,
		"free_run_after", rep.FreeRunAfter,
	)
	return rep, nil
}
