package arena

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/internal/mmap"
)

// DefaultChunkSize is the default chunk size for new arenas (64 KiB).
const DefaultChunkSize = 1 << 16

// Options configures an arena.
type Options struct {
	ChunkSize int          // bytes per chunk, rounded up to 8; 0 = DefaultChunkSize
	MaxChunks int          // chunk limit; 0 = 1 (no growth), -1 = unbounded
	Backing   mmap.Backing // chunk memory source
}

// Block is one allocation. Buf aliases arena memory and is only valid until
// the enclosing scope ends.
type Block struct {
	Off int // logical offset from the arena start
	Buf []byte
}

// Arena is a chunked, scoped bump allocator. Not goroutine-safe.
// Use SafeArena for concurrent access.
type Arena struct {
	opts      Options
	chunks    []*mmap.Region
	top       int   // logical bump cursor
	highWater int   // highest top ever reached
	marks     []int // scope start offsets, innermost last
	released  bool
}

// New creates an arena with its first chunk allocated.
func New(opts Options) (*Arena, error) {
	if opts.ChunkSize < 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidSize, opts.ChunkSize)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	opts.ChunkSize = format.Align8(opts.ChunkSize)
	if opts.MaxChunks == 0 {
		opts.MaxChunks = 1
	}

	a := &Arena{opts: opts}
	if err := a.grow(); err != nil {
		return nil, err
	}
	return a, nil
}

// grow appends one chunk.
func (a *Arena) grow() error {
	if a.opts.MaxChunks > 0 && len(a.chunks) >= a.opts.MaxChunks {
		return fmt.Errorf("%w: %d chunks of %d bytes", ErrArenaExhausted, len(a.chunks), a.opts.ChunkSize)
	}
	r, err := mmap.Alloc(a.opts.Backing, a.opts.ChunkSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArenaExhausted, err)
	}
	a.chunks = append(a.chunks, r)
	return nil
}

// Begin opens a scope at the current cursor.
func (a *Arena) Begin() error {
	if a.released {
		return ErrReleased
	}
	a.marks = append(a.marks, a.top)
	return nil
}

// End closes the innermost scope and rewinds the cursor to its start.
func (a *Arena) End() error {
	if a.released {
		return ErrReleased
	}
	if len(a.marks) == 0 {
		return ErrNoScope
	}
	last := len(a.marks) - 1
	a.top = a.marks[last]
	a.marks = a.marks[:last]
	return nil
}

// Alloc bump-allocates n zeroed bytes inside the innermost scope.
func (a *Arena) Alloc(n int) (Block, error) {
	if a.released {
		return Block{}, ErrReleased
	}
	if len(a.marks) == 0 {
		return Block{}, ErrNoScope
	}
	if n <= 0 {
		return Block{}, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	cs := a.opts.ChunkSize
	if n > cs {
		return Block{}, fmt.Errorf("%w: %d bytes exceeds chunk size %d", ErrArenaExhausted, n, cs)
	}

	off := format.Align8(a.top)
	if off%cs+n > cs {
		off = (off/cs + 1) * cs
	}
	idx := off / cs
	for idx >= len(a.chunks) {
		if err := a.grow(); err != nil {
			return Block{}, err
		}
	}

	start := off % cs
	buf := a.chunks[idx].Buf[start : start+n : start+n]
	clear(buf)
	a.top = off + n
	a.highWater = max(a.highWater, a.top)
	return Block{Off: off, Buf: buf}, nil
}

// Reset closes every scope and rewinds the cursor to zero. Chunks are kept.
func (a *Arena) Reset() {
	a.top = 0
	a.marks = a.marks[:0]
}

// Release returns all chunks and makes the arena unusable.
func (a *Arena) Release() error {
	if a.released {
		return nil
	}
	var errs *multierror.Error
	for _, c := range a.chunks {
		if err := c.Release(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	a.chunks = nil
	a.marks = nil
	a.top = 0
	a.released = true
	return errs.ErrorOrNil()
}

// Depth returns the number of open scopes.
func (a *Arena) Depth() int { return len(a.marks) }
