// Package slab is the object allocator: a Registry owning one typed Pool per
// pooled type, with the ownership disciplines layered on top.
//
// # Overview
//
// Every pooled type has a mode fixed by its declaration:
//
//	manual    Allocate / Free
//	rc        Allocate / Retain / Release, freed the instant the count hits zero
//	defer_rc  Allocate / EnqueueDelta, freed by a Flush that drives the count to zero
//
// Value types are never pooled; they only appear inline inside other objects.
//
// # Quick Start
//
//	g := typegraph.MustBuild(descs)
//	r, err := slab.New(g, slab.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	node, _ := r.AllocateNamed("Node")       // rc, count 1
//	list, _ := r.AllocateNamed("List")       // manual
//	_ = r.Store(list, "head", node)          // retains node
//	_ = r.Release(node)                      // list keeps it alive
//	_ = r.Free(list)                         // releases head, freeing node
//
// # Freeing
//
// Freeing an object first tears down its reference fields in declaration
// order: rc members are released (possibly cascading), defer_rc members get a
// queued -1, manual members are left alone. The slot is then scrubbed and
// returned to its pool. Stale references keep resolving to a slot of the right
// type; in checked mode they are reported as ErrStaleAccess.
//
// # Deferred Counting
//
// defer_rc counts change only in Flush. A Flush drains a batch, coalesces it
// per object and applies every net delta before freeing anything. Objects
// at zero wait in the zero-count table (ZCT) and are freed unless a root
// (a global or a stack frame) holds them. Stack references are never counted;
// hold them in a Frame instead.
//
// # Maintenance
//
// Sweep marks from the roots, reclaims everything unreachable (reference
// cycles included) and verifies every pool. Compact defragments one pool and
// rewrites references to the moved objects, visiting only the types that can
// reach it. Both require mutators to be quiescent.
//
// # Thread Safety
//
// Pools lock per operation and the delta queue accepts concurrent producers.
// Flush, Sweep and Compact serialize on a maintenance lock; a Flusher can run
// Flush on its own goroutine while producers keep enqueuing.
package slab
