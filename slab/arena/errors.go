package arena

import "errors"

var (
	// ErrArenaExhausted indicates the request does not fit and the arena cannot grow.
	ErrArenaExhausted = errors.New("arena: exhausted")

	// ErrNoScope indicates Alloc or End without an open scope.
	ErrNoScope = errors.New("arena: no open scope")

	// ErrReleased indicates use after Release.
	ErrReleased = errors.New("arena: released")

	// ErrInvalidSize indicates a non-positive allocation size.
	ErrInvalidSize = errors.New("arena: invalid size")
)
