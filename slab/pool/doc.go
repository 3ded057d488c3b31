// Package pool implements the per-type slab: a chunked array of fixed-size,
// pre-typed slots with an intrusive freelist.
//
// # Overview
//
// Every pool serves exactly one pooled type. Each slot starts with the
// 16-byte header described in internal/format and is followed by the type's
// payload. The header's type tag is written when the chunk is created and is
// never rewritten, so a reference to any slot of the pool, live or stale,
// always resolves to an object of the pool's type.
//
// # Slots
//
//	slot 0        reserved dummy object, never allocated or freed
//	slot 1..N-1   allocatable slots of chunk 0
//	slot N..      further chunks, appended on demand
//
// Chunks never move once created, so outstanding references stay valid as the
// pool grows. Growth past Options.MaxChunks fails with ErrOutOfCapacity.
//
// # Freelist
//
// Free slots are linked through the header link word (slot index + 1, zero
// terminates). Alloc pops and Release pushes, both O(1). A fresh chunk is
// pushed so that allocation proceeds in ascending slot order, and a just-freed
// slot is the next one handed out.
//
// # Freeing
//
// Release bumps the slot generation and scrubs the payload. With FreeRebind
// (the default) every reference field is pointed at the dummy object of its
// target type. With FreeZero references become nil. A stale holder therefore
// observes a well-typed, meaningless object. With Options.Checked, View turns
// that access into ErrStaleAccess instead.
//
// # Compaction
//
// Compact moves the highest live slots into the lowest free ones and returns
// the moves so the caller can rewrite references. Afterwards all free slots
// form one contiguous run at the tail.
//
// # Thread Safety
//
// Mutating operations take a per-pool mutex, so Alloc, Release, Compact and
// Trim are mutually exclusive. Object views read slot memory without locking
// and belong to the pool's owning goroutine.
package pool
