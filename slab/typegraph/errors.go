package typegraph

import "errors"

var (
	// ErrUnknownType indicates a field or lookup named a type that was never declared.
	ErrUnknownType = errors.New("typegraph: unknown type")

	// ErrDuplicateType indicates two descriptors share a name.
	ErrDuplicateType = errors.New("typegraph: duplicate type")

	// ErrInvalidField indicates a malformed field descriptor.
	ErrInvalidField = errors.New("typegraph: invalid field")

	// ErrInlineCycle indicates value types that embed each other, which has no finite size.
	ErrInlineCycle = errors.New("typegraph: inline cycle")

	// ErrTooManyTypes indicates more descriptors than TypeIDs.
	ErrTooManyTypes = errors.New("typegraph: too many types")
)
