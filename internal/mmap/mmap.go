// Package mmap provides the backing memory for pool chunks and arena regions.
//
// Chunks are plain byte regions: slots store references as integers, never Go
// pointers, so a chunk may live outside the Go heap. Anon backing maps
// anonymous private memory where the platform supports it and falls back to
// the Go heap elsewhere.
package mmap

import "fmt"

// Backing selects where chunk memory comes from.
type Backing uint8

const (
	// Heap allocates chunks with make([]byte, n).
	Heap Backing = iota
	// Anon maps anonymous private memory (unix), or uses the heap elsewhere.
	Anon
)

func (b Backing) String() string {
	switch b {
	case Heap:
		return "heap"
	case Anon:
		return "mmap"
	default:
		return fmt.Sprintf("backing(%d)", uint8(b))
	}
}

// ParseBacking is the inverse of Backing.String.
func ParseBacking(s string) (Backing, error) {
	switch s {
	case "", "heap":
		return Heap, nil
	case "mmap", "anon":
		return Anon, nil
	default:
		return 0, fmt.Errorf("mmap: unknown backing %q", s)
	}
}

// Region is a block of backing memory and the function that gives it back.
type Region struct {
	Buf     []byte
	release func() error
}

// Release returns the memory. It is safe to call more than once.
func (r *Region) Release() error {
	if r == nil || r.release == nil {
		return nil
	}
	fn := r.release
	r.release = nil
	r.Buf = nil
	return fn()
}

// Alloc returns a zeroed region of n bytes.
func Alloc(b Backing, n int) (*Region, error) {
	if n <= 0 {
		return nil, fmt.Errorf("mmap: invalid region size %d", n)
	}
	if b == Anon {
		return mapAnon(n)
	}
	return &Region{Buf: make([]byte, n), release: func() error { return nil }}, nil
}
