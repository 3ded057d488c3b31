package slab

import (
	"errors"

	"github.com/joshuapare/slabkit/slab/arena"
	"github.com/joshuapare/slabkit/slab/deferred"
	"github.com/joshuapare/slabkit/slab/pool"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

var (
	// ErrWrongMode indicates an operation that does not apply to the object's mode.
	ErrWrongMode = errors.New("slab: wrong mode")

	// ErrTypeMismatch indicates a stored reference whose type differs from the field target.
	ErrTypeMismatch = errors.New("slab: type mismatch")

	// ErrClosed indicates use of a registry after Close.
	ErrClosed = errors.New("slab: registry closed")

	// ErrFramePopped indicates use of a stack frame after Pop.
	ErrFramePopped = errors.New("slab: frame already popped")

	// ErrInvalidConfig indicates a configuration that failed validation.
	ErrInvalidConfig = errors.New("slab: invalid config")
)

// Errors surfaced unchanged from the layers below, re-exported so callers
// only need this package for errors.Is.
var (
	ErrOutOfCapacity  = pool.ErrOutOfCapacity
	ErrDoubleFree     = pool.ErrDoubleFree
	ErrStaleAccess    = pool.ErrStaleAccess
	ErrBadRef         = pool.ErrBadRef
	ErrNotPooled      = pool.ErrNotPooled
	ErrCountUnderflow = pool.ErrCountUnderflow
	ErrPoolBusy       = pool.ErrPoolBusy
	ErrFieldKind      = pool.ErrFieldKind
	ErrUnknownType    = typegraph.ErrUnknownType
	ErrQueueFull      = deferred.ErrQueueFull
	ErrInvalidDelta   = deferred.ErrInvalidDelta
	ErrArenaExhausted = arena.ErrArenaExhausted
	ErrNoScope        = arena.ErrNoScope
)
