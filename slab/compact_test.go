package slab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/pkg/types"
)

// TestCompact_RewritesReferrers compacts a manual pool and checks that
// holders in the closure and globals follow the moved objects.
func TestCompact_RewritesReferrers(t *testing.T) {
	r := newRegistry(t, func(c *Config) { c.SlotsPerChunk = 8 })

	l := make([]types.Ref, 7)
	for i := range l {
		l[i] = alloc(t, r, leafID)
		setV(t, r, l[i], uint64(i+1))
	}
	b1 := alloc(t, r, bagID)
	b2 := alloc(t, r, bagID)
	require.NoError(t, r.Store(b1, "leaf", l[6]))
	require.NoError(t, r.Store(b2, "leaf", l[5]))
	r.SetGlobal("leaf", l[4])
	for _, i := range []int{0, 1, 2} {
		require.NoError(t, r.Free(l[i]))
	}

	rep, err := r.Compact(leafID)
	require.NoError(t, err)
	require.Equal(t, "Leaf", rep.Type)
	require.Len(t, rep.Moves, 3)
	require.Equal(t, 3, rep.ClosureSize)
	require.Equal(t, 2, rep.Visited)
	require.Equal(t, 2, rep.Rewritten)
	require.Equal(t, 1, rep.RootsRewired)
	require.GreaterOrEqual(t, rep.FreeRunAfter, rep.FreeRunBefore)

	got, err := r.Load(b1, "leaf")
	require.NoError(t, err)
	require.Equal(t, rep.Remap(l[6]), got)
	require.Equal(t, uint32(1), got.Slot())
	require.Equal(t, uint64(7), getV(t, r, got))

	got, err = r.Load(b2, "leaf")
	require.NoError(t, err)
	require.Equal(t, uint64(6), getV(t, r, got))

	g, ok := r.Global("leaf")
	require.True(t, ok)
	require.Equal(t, rep.Remap(l[4]), g)
	require.Equal(t, uint64(5), getV(t, r, g))

	require.Equal(t, l[3], rep.Remap(l[3]), "unmoved")
	require.Equal(t, uint64(4), getV(t, r, l[3]))
	require.False(t, r.Alive(l[6]), "old location is free")

	p, _ := r.Pool(leafID)
	require.Equal(t, 4, p.Live())
	require.Equal(t, 3, p.LongestFreeRun())
}

// TestCompact_SelfReferential compacts an rc pool whose objects point at each other.
func TestCompact_SelfReferential(t *testing.T) {
	r := newRegistry(t, func(c *Config) { c.SlotsPerChunk = 8 })

	a := alloc(t, r, nodeID)
	b := alloc(t, r, nodeID)
	c := alloc(t, r, nodeID)
	d := alloc(t, r, nodeID)
	e := alloc(t, r, nodeID)
	setV(t, r, e, 42)
	require.NoError(t, r.Store(a, "next", e))
	for _, ref := range []types.Ref{b, c, d, e} {
		require.NoError(t, r.Release(ref))
	}
	r.SetGlobal("head", a)

	rep, err := r.Compact(nodeID)
	require.NoError(t, err)
	require.Len(t, rep.Moves, 1)
	require.Equal(t, e, rep.Moves[0].From)
	require.Equal(t, uint32(2), rep.Moves[0].To.Slot())

	next, err := r.Load(a, "next")
	require.NoError(t, err)
	require.Equal(t, rep.Moves[0].To, next)
	require.Equal(t, uint64(42), getV(t, r, next))
	cnt, err := r.Count(next)
	require.NoError(t, err)
	require.Equal(t, uint32(1), cnt)

	require.NoError(t, r.Release(a))
	p, _ := r.Pool(nodeID)
	require.Zero(t, p.Live())
}

// TestCompact_DeferredState tests that frames, queued deltas and ZCT entries
// follow a moved object.
func TestCompact_DeferredState(t *testing.T) {
	r := newRegistry(t, func(c *Config) { c.SlotsPerChunk = 8 })

	first := alloc(t, r, ownerID)
	second := alloc(t, r, ownerID)
	frame := r.PushFrame()
	require.NoError(t, frame.Hold(second))
	_, err := r.Flush(false)
	require.NoError(t, err)
	require.False(t, r.Alive(first))
	require.True(t, r.Alive(second))

	require.NoError(t, r.EnqueueDelta(second, 1))
	rep, err := r.Compact(ownerID)
	require.NoError(t, err)
	require.Len(t, rep.Moves, 1)
	to := rep.Remap(second)
	require.Equal(t, first.Slot(), to.Slot())
	require.Equal(t, 3, rep.RootsRewired, "frame entry, queued delta and ZCT entry")
	require.Equal(t, []types.Ref{to}, frame.Refs())

	_, err = r.Flush(false)
	require.NoError(t, err)
	cnt, err := r.Count(to)
	require.NoError(t, err)
	require.Equal(t, uint32(1), cnt)
	require.Zero(t, r.Stats().ZCT)

	require.NoError(t, r.EnqueueDelta(to, -1))
	require.NoError(t, frame.Pop())
	flushed, err := r.Flush(false)
	require.NoError(t, err)
	require.Equal(t, 1, flushed.Freed)
	require.False(t, r.Alive(to))
}

// TestCompact_Errors tests compaction of value and unknown types.
func TestCompact_Errors(t *testing.T) {
	r := newRegistry(t, nil)
	_, err := r.Compact(pointID)
	require.ErrorIs(t, err, ErrNotPooled)
	_, err = r.Compact(99)
	require.ErrorIs(t, err, ErrUnknownType)

	rep, err := r.Compact(leafID)
	require.NoError(t, err)
	require.Empty(t, rep.Moves)
}
