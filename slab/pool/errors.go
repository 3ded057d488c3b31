package pool

import "errors"

var (
	// ErrOutOfCapacity indicates the pool reached MaxChunks and cannot grow.
	ErrOutOfCapacity = errors.New("pool: out of capacity")

	// ErrBadRef indicates a reference of another type, out of range, or to the dummy slot.
	ErrBadRef = errors.New("pool: bad reference")

	// ErrDoubleFree indicates a release of a slot that is already free.
	ErrDoubleFree = errors.New("pool: double free")

	// ErrStaleAccess indicates a reference whose object has been freed.
	ErrStaleAccess = errors.New("pool: stale access")

	// ErrNotCounted indicates a count operation on a manual-mode object.
	ErrNotCounted = errors.New("pool: object is not reference counted")

	// ErrCountUnderflow indicates a decrement below zero.
	ErrCountUnderflow = errors.New("pool: reference count underflow")

	// ErrPoolBusy indicates Clear on a pool that still holds live objects.
	ErrPoolBusy = errors.New("pool: live objects remain")

	// ErrClosed indicates use of a pool after Clear or Close.
	ErrClosed = errors.New("pool: closed")

	// ErrNotPooled indicates a value type passed where a pooled type is required.
	ErrNotPooled = errors.New("pool: type is not pooled")

	// ErrFieldKind indicates a field accessed as the wrong kind.
	ErrFieldKind = errors.New("pool: wrong field kind")

	// ErrFreelistCycle indicates a freelist walk that exceeded the slot count.
	ErrFreelistCycle = errors.New("pool: freelist cycle")
)
