package slab

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/deferred"
)

// FlushReport summarizes one Flush call.
type FlushReport struct {
	Partial    bool
	Batches    int // drain rounds
	Drained    int // deltas taken from the queue
	Objects    int // distinct objects the deltas targeted
	Applied    int // objects whose count actually changed
	Freed      int // defer_rc objects destroyed
	Rooted     int // zero-count objects kept alive by a root
	Pending    int // zero-count objects skipped because deltas for them are still queued
	Underflows int
	Remaining  int // deltas left in the queue afterwards
}

// Flush applies queued deltas and frees defer_rc objects left at zero.
//
// Each round drains a batch (at most Config.FlushBatch deltas), coalesces it
// per object in first-appearance order and applies every net delta before
// any object is freed, so the outcome equals applying the deltas one at a
// time. Zero-count objects are then freed in ZCT order, re-checking the count
// at free time, unless a root holds them or more deltas for them are queued.
// Freeing releases rc members at once and queues -1 for defer_rc members.
//
// A partial flush runs one round. A complete flush repeats until the queue is
// empty, which includes the cascades its own frees enqueue.
//
// An underflow clamps the count to zero at the step where it happens, and
// later deltas of the same batch apply on top. Underflows are reported in the
// returned error together with any other per-object failure; the flush itself
// keeps going.
func (r *Registry) Flush(partial bool) (FlushReport, error) {
	r.maint.Lock()
	defer r.maint.Unlock()

	rep := FlushReport{Partial: partial}
	if r.closed.Load() {
		return rep, ErrClosed
	}

	var errs *multierror.Error
	for {
		batch := r.queue.Drain(r.cfg.FlushBatch)
		rep.Batches++
		rep.Drained += len(batch)
		r.applyBatch(batch, &rep, &errs)
		r.freeZeroCount(&rep, &errs)

		if partial || r.queue.Len() == 0 {
			break
		}
	}

	rep.Remaining = r.queue.Len()
	r.log.Debug("flush",
		"partial", partial,
		"batches", rep.Batches,
		"drained", rep.Drained,
		"freed", rep.Freed,
		"rooted", rep.Rooted,
		"remaining", rep.Remaining,
	)
	return rep, errs.ErrorOrNil()
}

// applyBatch applies the coalesced deltas of one batch.
func (r *Registry) applyBatch(batch []deferred.Delta, rep *FlushReport, errs **multierror.Error) {
	for _, net := range deferred.Coalesce(batch) {
		rep.Objects++
		if net.Delta == 0 && net.Low == 0 {
			continue
		}
		_, p, err := r.resolve(net.Ref)
		if err != nil {
			*errs = multierror.Append(*errs, fmt.Errorf("flush %s: %w", net.Ref, err))
			continue
		}

		n, clamped, err := p.AddCountClamped(net.Ref, net.Delta, net.Low)
		if err != nil {
			*errs = multierror.Append(*errs, fmt.Errorf("flush %s: %w", net.Ref, err))
			continue
		}
		if clamped {
			rep.Underflows++
			*errs = multierror.Append(*errs, fmt.Errorf("flush %s: %w: running total %+d", net.Ref, ErrCountUnderflow, net.Low))
		}

		rep.Applied++
		if n == 0 {
			r.zct.Add(net.Ref)
		} else {
			r.zct.Remove(net.Ref)
		}
	}
}

// freeZeroCount frees every unrooted ZCT entry that is still at zero.
func (r *Registry) freeZeroCount(rep *FlushReport, errs **multierror.Error) {
	candidates := r.zct.Snapshot()
	if len(candidates) == 0 {
		return
	}
	rooted := r.roots.set()
	pending := make(map[types.Ref]struct{})
	r.queue.Each(func(d deferred.Delta) { pending[d.Ref] = struct{}{} })

	for _, ref := range candidates {
		_, p, err := r.resolve(ref)
		if err != nil || !p.IsLive(ref) {
			r.zct.Remove(ref)
			continue
		}
		n, err := p.Count(ref)
		if err != nil || n != 0 {
			r.zct.Remove(ref)
			continue
		}
		if _, ok := rooted[ref]; ok {
			rep.Rooted++
			continue
		}
		if _, ok := pending[ref]; ok {
			rep.Pending++
			continue
		}
		r.zct.Remove(ref)
		if err := r.destroy(ref); err != nil {
			*errs = multierror.Append(*errs, err)
		}
		rep.Freed++
	}
}
