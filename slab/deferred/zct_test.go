package deferred

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/pkg/types"
)

// TestZCT_Order tests insertion order across removals.
func TestZCT_Order(t *testing.T) {
	z := NewZCT()
	require.True(t, z.Add(ref(3)))
	require.True(t, z.Add(ref(1)))
	require.False(t, z.Add(ref(3)))
	require.True(t, z.Add(ref(2)))

	require.True(t, z.Remove(ref(1)))
	require.False(t, z.Remove(ref(1)))
	require.Equal(t, []types.Ref{ref(3), ref(2)}, z.Snapshot())
	require.Equal(t, 2, z.Len())
	require.True(t, z.Contains(ref(2)))
	require.False(t, z.Contains(ref(1)))

	require.True(t, z.Add(ref(1)))
	require.Equal(t, []types.Ref{ref(3), ref(2), ref(1)}, z.Snapshot())
}

// TestZCT_Tombstones tests that heavy churn keeps the table consistent.
func TestZCT_Tombstones(t *testing.T) {
	z := NewZCT()
	for i := uint32(1); i <= 100; i++ {
		z.Add(ref(i))
	}
	for i := uint32(1); i <= 95; i++ {
		require.True(t, z.Remove(ref(i)))
	}
	require.Equal(t, []types.Ref{ref(96), ref(97), ref(98), ref(99), ref(100)}, z.Snapshot())
	require.True(t, z.Remove(ref(98)))
	require.Equal(t, 4, z.Len())
	require.True(t, z.Contains(ref(100)))
}

// TestZCT_Rewrite tests ref substitution, merging duplicates.
func TestZCT_Rewrite(t *testing.T) {
	z := NewZCT()
	z.Add(ref(5))
	z.Add(ref(2))
	z.Add(ref(4))

	n := z.Rewrite(func(r types.Ref) types.Ref {
		if r == ref(5) {
			return ref(1)
		}
		if r == ref(4) {
			return ref(2)
		}
		return r
	})
	require.Equal(t, 2, n)
	require.Equal(t, []types.Ref{ref(1), ref(2)}, z.Snapshot())
	require.True(t, z.Remove(ref(1)))

	z.Reset()
	require.Zero(t, z.Len())
	require.Empty(t, z.Snapshot())
}
