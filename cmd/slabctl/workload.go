package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

// held is an object the workload keeps alive through a global root. For rc
// objects the allocation count doubles as the workload's own reference.
type held struct {
	name string
	ref  types.Ref
	mode types.Mode
}

// OpCounts tallies the operations a workload performed.
type OpCounts struct {
	Allocs  int `json:"allocs"`
	Stores  int `json:"stores"`
	Clears  int `json:"clears"`
	Drops   int `json:"drops"`
	Flushes int `json:"flushes"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// workload drives random mutations against a registry. Mutations touch only
// held objects, so it may run next to a background Flusher.
type workload struct {
	r      *slab.Registry
	rng    *rand.Rand
	pooled []*typegraph.Type
	held   []held
	next   int

	flushEvery int
	ops        OpCounts
	firstErr   error
}

func newWorkload(r *slab.Registry, seed uint64, flushEvery int) *workload {
	w := &workload{
		r:          r,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		flushEvery: flushEvery,
	}
	for _, t := range r.Graph().Types() {
		if t.Pooled() {
			w.pooled = append(w.pooled, t)
		}
	}
	return w
}

// run performs n random operations.
func (w *workload) run(n int) error {
	if len(w.pooled) == 0 {
		return fmt.Errorf("schema declares no pooled types")
	}
	for i := range n {
		switch p := w.rng.IntN(100); {
		case p < 35 || len(w.held) == 0:
			w.alloc()
		case p < 70:
			w.store()
		case p < 80:
			w.clear()
		default:
			w.drop()
		}
		if w.flushEvery > 0 && (i+1)%w.flushEvery == 0 {
			w.flush()
		}
	}
	return nil
}

func (w *workload) fail(op string, err error) {
	w.ops.Errors++
	if w.firstErr == nil {
		w.firstErr = fmt.Errorf("%s: %w", op, err)
	}
	printVerbose("  %s failed: %v\n", op, err)
}

func (w *workload) alloc() {
	t := w.pooled[w.rng.IntN(len(w.pooled))]
	name := fmt.Sprintf("h%d", w.next)
	ref, err := w.r.AllocateGlobal(name, t.ID)
	if err != nil {
		w.fail("allocate "+t.Name, err)
		return
	}
	w.next++
	w.held = append(w.held, held{name: name, ref: ref, mode: t.Mode})
	w.ops.Allocs++
}

// pickSlot returns a held object with at least one reference slot.
func (w *workload) pickSlot() (held, typegraph.RefSlot, bool) {
	for range 8 {
		h := w.held[w.rng.IntN(len(w.held))]
		t, _ := w.r.Graph().Type(h.ref.Type())
		if len(t.Refs) == 0 {
			continue
		}
		return h, t.Refs[w.rng.IntN(len(t.Refs))], true
	}
	return held{}, typegraph.RefSlot{}, false
}

func (w *workload) store() {
	h, rs, ok := w.pickSlot()
	if !ok {
		w.ops.Skipped++
		return
	}
	var candidates []types.Ref
	for _, o := range w.held {
		if o.ref.Type() == rs.Target {
			candidates = append(candidates, o.ref)
		}
	}
	if len(candidates) == 0 {
		w.ops.Skipped++
		return
	}
	value := candidates[w.rng.IntN(len(candidates))]
	if err := w.r.Store(h.ref, rs.Path, value); err != nil {
		w.fail("store "+rs.Path, err)
		return
	}
	w.ops.Stores++
}

func (w *workload) clear() {
	h, rs, ok := w.pickSlot()
	if !ok {
		w.ops.Skipped++
		return
	}
	if err := w.r.Store(h.ref, rs.Path, types.Nil); err != nil {
		w.fail("clear "+rs.Path, err)
		return
	}
	w.ops.Clears++
}

// drop forgets a held object: its root goes away and the workload gives up
// its own reference. Manual objects are freed outright.
func (w *workload) drop() {
	i := w.rng.IntN(len(w.held))
	h := w.held[i]
	w.held[i] = w.held[len(w.held)-1]
	w.held = w.held[:len(w.held)-1]
	w.r.DeleteGlobal(h.name)

	var err error
	switch h.mode {
	case types.ModeManual:
		// Unheld holders keep a stale ref; Store and Sweep skip those.
		w.unlink(h.ref)
		err = w.r.Free(h.ref)
	case types.ModeRC:
		err = w.r.Release(h.ref)
	}
	if err != nil {
		w.fail("drop "+h.name, err)
		return
	}
	w.ops.Drops++
}

// unlink clears fields of held objects that point at a manual object about to be freed.
func (w *workload) unlink(target types.Ref) {
	for _, h := range w.held {
		t, _ := w.r.Graph().Type(h.ref.Type())
		for _, rs := range t.Refs {
			if rs.Target != target.Type() {
				continue
			}
			cur, err := w.r.Load(h.ref, rs.Path)
			if err != nil || cur != target {
				continue
			}
			if err := w.r.Store(h.ref, rs.Path, types.Nil); err != nil {
				w.fail("unlink "+rs.Path, err)
			}
		}
	}
}

func (w *workload) flush() {
	if _, err := w.r.Flush(false); err != nil {
		w.fail("flush", err)
		return
	}
	w.ops.Flushes++
}

// release drops every held object, in random order.
func (w *workload) release() {
	for len(w.held) > 0 {
		w.drop()
	}
}
