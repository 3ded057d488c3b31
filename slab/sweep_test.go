package slab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/pkg/types"
)

// TestSweep_RCCycle tests that an unreachable rc cycle is reclaimed while a
// rooted object and what it references survive.
func TestSweep_RCCycle(t *testing.T) {
	r := newRegistry(t, nil)

	n1 := alloc(t, r, nodeID)
	n2 := alloc(t, r, nodeID)
	require.NoError(t, r.Store(n1, "next", n2))
	require.NoError(t, r.Store(n2, "next", n1))
	require.NoError(t, r.Release(n1))
	require.NoError(t, r.Release(n2))
	require.True(t, r.Alive(n1), "cycle keeps itself alive")

	keep := alloc(t, r, nodeID)
	leaf := alloc(t, r, leafID)
	require.NoError(t, r.Store(keep, "leaf", leaf))
	r.SetGlobal("keep", keep)

	rep, err := r.Sweep()
	require.NoError(t, err)
	require.Equal(t, 1, rep.Roots)
	require.Equal(t, 2, rep.Marked)
	require.Len(t, rep.Reclaimed, 2)
	require.Equal(t, 2, rep.Cycles)
	require.Zero(t, rep.Orphans)
	require.Zero(t, rep.Released)
	require.Equal(t, 4, rep.Verified)

	require.False(t, r.Alive(n1))
	require.False(t, r.Alive(n2))
	require.True(t, r.Alive(keep))
	require.True(t, r.Alive(leaf))
	c, _ := r.Count(keep)
	require.Equal(t, uint32(1), c)

	o, err := r.Object(keep)
	require.NoError(t, err)
	require.Zero(t, o.Flags()&(format.FlagMark|format.FlagDying))
}

// TestSweep_ReleasesSurvivors tests that garbage holding a surviving object
// gives its reference up the normal way.
func TestSweep_ReleasesSurvivors(t *testing.T) {
	r := newRegistry(t, nil)

	s := alloc(t, r, nodeID)
	o := alloc(t, r, ownerID)
	r.SetGlobal("s", s)
	r.SetGlobal("o", o)

	bag := alloc(t, r, bagID)
	require.NoError(t, r.Store(bag, "node", s))
	require.NoError(t, r.Store(bag, "owner", o))
	_, err := r.Flush(false)
	require.NoError(t, err)

	rep, err := r.Sweep()
	require.NoError(t, err)
	require.Len(t, rep.Reclaimed, 1)
	require.Equal(t, bag, rep.Reclaimed[0].Ref)
	require.Equal(t, "Bag", rep.Reclaimed[0].Type)
	require.Equal(t, 1, rep.Orphans)
	require.Equal(t, 2, rep.Released)

	require.False(t, r.Alive(bag))
	c, _ := r.Count(s)
	require.Equal(t, uint32(1), c)
	require.Equal(t, 1, r.Stats().Queue.Len)

	_, err = r.Flush(false)
	require.NoError(t, err)
	c, _ = r.Count(o)
	require.Zero(t, c)
	require.True(t, r.Alive(o), "still a global")
}

// TestSweep_KeepsQueuedAndZCT tests that queued delta targets and the ZCT backlog count as roots.
func TestSweep_KeepsQueuedAndZCT(t *testing.T) {
	r := newRegistry(t, nil)

	fresh := alloc(t, r, ownerID)
	queued := alloc(t, r, ownerID)
	require.NoError(t, r.EnqueueDelta(queued, 1))
	orphan := alloc(t, r, leafID)

	rep, err := r.Sweep()
	require.NoError(t, err)
	require.True(t, r.Alive(fresh))
	require.True(t, r.Alive(queued))
	require.False(t, r.Alive(orphan))
	require.Equal(t, 1, rep.Orphans)
	require.Equal(t, leafID, rep.Reclaimed[0].Ref.Type())
}

// TestSweep_DeferRCCycle tests reclamation of a defer_rc cycle.
func TestSweep_DeferRCCycle(t *testing.T) {
	r := newRegistry(t, nil)

	a := alloc(t, r, ownerID)
	b := alloc(t, r, ownerID)
	require.NoError(t, r.Store(a, "peer", b))
	require.NoError(t, r.Store(b, "peer", a))
	_, err := r.Flush(false)
	require.NoError(t, err)
	require.True(t, r.Alive(a))
	require.Zero(t, r.Stats().ZCT)

	rep, err := r.Sweep()
	require.NoError(t, err)
	require.Equal(t, 2, rep.Cycles)
	require.False(t, r.Alive(a))
	require.False(t, r.Alive(b))
	require.Zero(t, r.Stats().Queue.Len)

	for _, rc := range rep.Reclaimed {
		require.Equal(t, types.ModeDeferRC, rc.Mode)
		require.Equal(t, uint32(1), rc.Count)
	}
}

// TestSweep_Empty tests a sweep with nothing to do.
func TestSweep_Empty(t *testing.T) {
	r := newRegistry(t, func(c *Config) { c.LazyPools = true })
	rep, err := r.Sweep()
	require.NoError(t, err)
	require.Empty(t, rep.Reclaimed)
	require.Zero(t, rep.Verified)
}
