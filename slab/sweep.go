package slab

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/deferred"
	"github.com/joshuapare/slabkit/slab/pool"
	"github.com/joshuapare/slabkit/slab/verify"
)

// Reclaimed describes one object freed by Sweep.
type Reclaimed struct {
	Ref   types.Ref
	Type  string
	Mode  types.Mode
	Count uint32 // count at reclaim time; nonzero means it was kept alive by a cycle
}

// SweepReport summarizes one Sweep call.
type SweepReport struct {
	Roots     int // distinct root references that resolved to live objects
	Marked    int // live objects reachable from the roots
	Reclaimed []Reclaimed
	Cycles    int // reclaimed with a nonzero count
	Orphans   int // reclaimed at count zero, or manual
	Released  int // counts dropped on surviving objects referenced from garbage
	Verified  int // pools checked after the sweep
}

// Sweep reclaims every live object that is not reachable from a root.
//
// Roots are the globals, the stack frames, the targets of queued deltas and
// the ZCT backlog. Marking follows every reference slot and records reachability
// in the header mark bit. Unmarked objects are then freed directly, whatever
// their count: references they hold into surviving objects are given up the
// normal way (rc released, defer_rc queued -1), references between garbage
// objects are simply dropped. Afterwards every pool is verified and any
// violation is returned; reclaimed cycles are only reported and logged.
//
// Sweep must not run concurrently with mutators.
func (r *Registry) Sweep() (SweepReport, error) {
	r.maint.Lock()
	defer r.maint.Unlock()

	var rep SweepReport
	if r.closed.Load() {
		return rep, ErrClosed
	}
	pools := r.livePools()
	for _, p := range pools {
		p.ClearFlagAll(format.FlagMark | format.FlagDying)
	}

	rep.Roots, rep.Marked = r.mark(r.sweepRoots())
	garbage := r.collectUnmarked(pools)

	var errs *multierror.Error
	for _, g := range garbage {
		released, err := r.reclaim(g.Ref)
		rep.Released += released
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		if g.Count != 0 && g.Mode.Counted() {
			rep.Cycles++
		} else {
			rep.Orphans++
		}
		r.log.Debug("sweep reclaimed", "ref", g.Ref.String(), "type", g.Type, "mode", g.Mode.String(), "count", g.Count)
	}
	rep.Reclaimed = garbage

	for _, p := range pools {
		p.ClearFlagAll(format.FlagMark | format.FlagDying)
		if err := verify.AllInvariants(p); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("verify %s: %w", p.Type().Name, err))
		}
		rep.Verified++
	}

	if len(garbage) > 0 {
		r.log.Info("sweep reclaimed unreachable objects",
			"reclaimed", len(garbage),
			"cycles", rep.Cycles,
			"orphans", rep.Orphans,
			"marked", rep.Marked,
		)
	}
	return rep, errs.ErrorOrNil()
}

// sweepRoots collects the mark roots: globals, frames, queued delta targets and the ZCT.
func (r *Registry) sweepRoots() []types.Ref {
	roots := r.roots.all()
	r.queue.Each(func(d deferred.Delta) { roots = append(roots, d.Ref) })
	return append(roots, r.zct.Snapshot()...)
}

// mark sets the mark bit on everything reachable from roots and returns the
// number of live roots and marked objects.
func (r *Registry) mark(roots []types.Ref) (live, marked int) {
	var work []types.Ref
	visit := func(ref types.Ref) bool {
		if ref.IsNil() || ref.IsDummy() {
			return false
		}
		_, p, err := r.resolve(ref)
		if err != nil {
			return false
		}
		o, err := p.View(ref)
		if err != nil || !o.IsLive() || o.Flags()&format.FlagMark != 0 {
			return false
		}
		if err := p.SetFlag(ref, format.FlagMark); err != nil {
			return false
		}
		marked++
		work = append(work, ref)
		return true
	}

	for _, ref := range roots {
		if visit(ref) {
			live++
		}
	}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		o, err := r.Object(cur)
		if err != nil {
			continue
		}
		for _, member := range o.Refs() {
			visit(member)
		}
	}
	return live, marked
}

// collectUnmarked flags every live unmarked object as dying and returns them.
func (r *Registry) collectUnmarked(pools []*pool.Pool) []Reclaimed {
	var garbage []Reclaimed
	for _, p := range pools {
		t := p.Type()
		p.ForEachLive(func(o pool.Object) bool {
			if o.Flags()&format.FlagMark != 0 {
				return true
			}
			_ = p.SetFlag(o.Ref(), format.FlagDying)
			garbage = append(garbage, Reclaimed{
				Ref:   o.Ref(),
				Type:  t.Name,
				Mode:  t.Mode,
				Count: o.Count(),
			})
			return true
		})
	}
	return garbage
}

// reclaim frees one garbage object, giving up its references into survivors.
func (r *Registry) reclaim(ref types.Ref) (released int, err error) {
	t, p, err := r.resolve(ref)
	if err != nil {
		return 0, err
	}
	o, err := p.View(ref)
	if err != nil {
		return 0, err
	}

	var errs *multierror.Error
	for _, rs := range t.Refs {
		member := o.RefSlot(rs.Offset)
		if member.IsNil() || member.IsDummy() {
			continue
		}
		mo, err := r.Object(member)
		if err != nil || !mo.IsLive() || mo.Flags()&format.FlagDying != 0 {
			continue
		}
		switch mo.Mode() {
		case types.ModeRC:
			err = r.Release(member)
		case types.ModeDeferRC:
			err = r.queue.Enqueue(member, -1)
		default:
			continue
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("sweep %s.%s: %w", t.Name, rs.Path, err))
			continue
		}
		released++
	}

	if err := p.Release(ref); err != nil {
		errs = multierror.Append(errs, err)
	}
	if t.Mode == types.ModeDeferRC {
		r.zct.Remove(ref)
	}
	return released, errs.ErrorOrNil()
}
