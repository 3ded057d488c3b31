// Package typegraph turns declared types into fixed slot layouts and the static
// reference graph between them.
//
// # Types and fields
//
// A TypeDesc names a type, its ownership mode and its fields. Fields are one of:
//
//   - FieldScalar: Size raw bytes (1, 2, 4, or any multiple of 8)
//   - FieldRef: an 8-byte reference to a pooled type
//   - FieldInline: a value type embedded by value
//
// Build validates the descriptors, lays each type out (fields aligned to
// min(size, 8), payload padded to 8) and flattens every reference, including
// references inside nested value types, into a RefSlot list kept in
// declaration order. Member teardown walks that list.
//
// # Closure
//
// For compaction of type T only objects that can transitively reference T need
// to be visited. Closure(T) is that set of pooled types, computed once in Build
// by a reverse breadth-first walk over the reference edges:
//
//	A -> B -> T   gives   Closure(T) = {A, B}
//
// T is in its own closure only when it can reach itself.
package typegraph
