// Package deferred holds pending reference-count changes for defer_rc objects.
//
// # Overview
//
// Mutators never touch a defer_rc object's count directly. They append a
// signed delta to a Queue, and a later flush drains a batch, coalesces it per
// object and applies the net changes in one pass:
//
//	q.Enqueue(ref, +1)
//	q.Enqueue(ref, -1)
//	batch := q.Drain(0)
//	nets := deferred.Coalesce(batch) // ref -> 0, first-appearance order
//
// Objects whose count reaches zero are tracked in a ZCT (zero-count table)
// until a flush can prove nothing roots them.
//
// # Thread Safety
//
// Queue and ZCT are safe for concurrent use. Drain takes a snapshot: deltas
// enqueued while a flush runs land in the next batch.
package deferred
