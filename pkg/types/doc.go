// Package types defines the small, copyable identifiers shared by every layer of
// slabkit: type identifiers, ownership modes and object references.
//
// A Ref is a plain 64-bit handle rather than a Go pointer. It encodes the owning
// pool's type, the slot generation and the slot index:
//
//	bits 63..48  TypeID
//	bits 47..32  generation
//	bits 31..0   slot index
//
// Because the type lives in the handle itself and every pool slot is pre-typed,
// a Ref can never be resolved as an object of a different type, even after the
// object it named has been freed and its slot reused.
//
// This package has no dependencies beyond the standard library.
package types
