// Package arena implements a scoped bump allocator for short-lived memory
// outside the pool system.
//
// # Overview
//
// An Arena hands out 8-byte aligned blocks from chunked backing memory. Blocks
// are never freed one by one. Begin opens a scope and End rewinds the cursor to
// where that scope started, so everything allocated inside the scope is
// reclaimed at once:
//
//	a, _ := arena.New(arena.Options{})
//	defer a.Release()
//
//	a.Begin()
//	blk, err := a.Alloc(128)
//	if errors.Is(err, arena.ErrArenaExhausted) {
//	    // fall back to a pool or heap allocation
//	}
//	a.End() // blk is invalid from here on
//
// Scopes nest. After the outermost End the next Begin hands out offsets from
// zero again, over the same backing memory.
//
// # Memory Layout
//
// Chunks have a fixed size (default 64 KiB). Block.Off is a logical offset:
// chunk i covers [i*ChunkSize, (i+1)*ChunkSize). A request that does not fit
// in the rest of the current chunk moves to the next one, growing the arena if
// MaxChunks allows. A request larger than one chunk always fails.
//
// # Thread Safety
//
// Arena is not safe for concurrent use. SafeArena wraps it with a mutex.
//
// # Metrics
//
// Metrics reports bytes in use, capacity, the high-water mark, chunk count,
// utilization and scope depth.
package arena
