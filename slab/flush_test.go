package slab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/pkg/types"
)

// TestFlush_NetZero enqueues +1, +1, -1, -1 for an unrooted object: it stays
// alive until the flush, which frees it together with its members.
func TestFlush_NetZero(t *testing.T) {
	r := newRegistry(t, nil)

	o := alloc(t, r, ownerID)
	n := alloc(t, r, nodeID)
	peer := alloc(t, r, ownerID)
	require.NoError(t, r.Store(o, "node", n))
	require.NoError(t, r.Release(n))
	require.NoError(t, r.Store(o, "peer", peer))

	for _, d := range []int32{1, 1, -1, -1} {
		require.NoError(t, r.EnqueueDelta(o, d))
	}
	require.True(t, r.Alive(o))
	require.True(t, r.Alive(peer))

	rep, err := r.Flush(false)
	require.NoError(t, err)
	require.False(t, r.Alive(o))
	require.False(t, r.Alive(n), "rc member released at once")
	require.False(t, r.Alive(peer), "defer_rc member freed by the follow-up round")
	require.Equal(t, 2, rep.Freed)
	require.GreaterOrEqual(t, rep.Batches, 2)
	require.Zero(t, rep.Remaining)
	require.Zero(t, r.Stats().ZCT)
}

// TestFlush_OrderIndependent applies the same deltas one flush at a time and
// in a single flush and expects the same counts.
func TestFlush_OrderIndependent(t *testing.T) {
	type step struct {
		obj   int
		delta int32
	}
	steps := []step{{0, 1}, {1, 1}, {0, 1}, {0, -1}, {1, -1}, {0, -1}, {0, 1}, {1, 1}, {1, 1}}

	run := func(eachStep bool) []uint32 {
		r := newRegistry(t, nil)
		frame := r.PushFrame()
		objs := []types.Ref{alloc(t, r, ownerID), alloc(t, r, ownerID)}
		for _, o := range objs {
			require.NoError(t, frame.Hold(o))
		}
		for _, s := range steps {
			require.NoError(t, r.EnqueueDelta(objs[s.obj], s.delta))
			if eachStep {
				_, err := r.Flush(false)
				require.NoError(t, err)
			}
		}
		_, err := r.Flush(false)
		require.NoError(t, err)

		counts := make([]uint32, len(objs))
		for i, o := range objs {
			require.True(t, r.Alive(o))
			c, err := r.Count(o)
			require.NoError(t, err)
			counts[i] = c
		}
		return counts
	}

	batched := run(false)
	require.Equal(t, []uint32{1, 2}, batched)
	require.Equal(t, batched, run(true))
}

// TestFlush_Partial tests that a partial flush drains one batch.
func TestFlush_Partial(t *testing.T) {
	r := newRegistry(t, func(c *Config) { c.FlushBatch = 2 })

	o := alloc(t, r, ownerID)
	r.SetGlobal("o", o)
	for range 5 {
		require.NoError(t, r.EnqueueDelta(o, 1))
	}

	rep, err := r.Flush(true)
	require.NoError(t, err)
	require.True(t, rep.Partial)
	require.Equal(t, 1, rep.Batches)
	require.Equal(t, 2, rep.Drained)
	require.Equal(t, 3, rep.Remaining)
	c, _ := r.Count(o)
	require.Equal(t, uint32(2), c)

	rep, err = r.Flush(false)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Batches)
	require.Zero(t, rep.Remaining)
	c, _ = r.Count(o)
	require.Equal(t, uint32(5), c)
}

// TestFlush_PendingNotFreed tests that a zero-count object with queued deltas
// survives a partial flush that does not reach them.
func TestFlush_PendingNotFreed(t *testing.T) {
	r := newRegistry(t, func(c *Config) { c.FlushBatch = 1 })

	x := alloc(t, r, ownerID)
	r.SetGlobal("x", x)
	o := alloc(t, r, ownerID)
	require.NoError(t, r.EnqueueDelta(x, 1))
	require.NoError(t, r.EnqueueDelta(o, 1))

	rep, err := r.Flush(true)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Pending)
	require.Zero(t, rep.Freed)
	require.True(t, r.Alive(o))

	_, err = r.Flush(false)
	require.NoError(t, err)
	c, _ := r.Count(o)
	require.Equal(t, uint32(1), c)
	require.Zero(t, r.Stats().ZCT)
}

// TestFlush_Underflow tests that a negative net count clamps to zero and is reported.
func TestFlush_Underflow(t *testing.T) {
	r := newRegistry(t, nil)

	o := alloc(t, r, ownerID)
	r.SetGlobal("o", o)
	require.NoError(t, r.EnqueueDelta(o, 1))
	require.NoError(t, r.EnqueueDelta(o, -1))
	require.NoError(t, r.EnqueueDelta(o, -1))

	rep, err := r.Flush(false)
	require.ErrorIs(t, err, ErrCountUnderflow)
	require.Equal(t, 1, rep.Underflows)
	require.True(t, r.Alive(o))
	c, _ := r.Count(o)
	require.Zero(t, c)
}

// TestFlush_UnderflowMidBatch tests that a batch which dips below zero and
// recovers ends where one-at-a-time application would.
func TestFlush_UnderflowMidBatch(t *testing.T) {
	tests := []struct {
		name   string
		deltas []int32
		want   uint32
	}{
		{name: "dip then recover", deltas: []int32{-1, 1}, want: 1},
		{name: "deep dip", deltas: []int32{-1, -1, 1, 1, 1}, want: 3},
		{name: "recover then dip", deltas: []int32{1, -1, -1, 1}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry(t, nil)
			o := alloc(t, r, ownerID)
			r.SetGlobal("o", o)
			for _, d := range tt.deltas {
				require.NoError(t, r.EnqueueDelta(o, d))
			}

			rep, err := r.Flush(false)
			require.ErrorIs(t, err, ErrCountUnderflow)
			require.Equal(t, 1, rep.Underflows)
			c, err := r.Count(o)
			require.NoError(t, err)
			require.Equal(t, tt.want, c)
		})
	}
}

// TestFlush_Roots tests that globals and frames keep zero-count objects alive.
func TestFlush_Roots(t *testing.T) {
	r := newRegistry(t, nil)

	byGlobal := alloc(t, r, ownerID)
	byFrame := alloc(t, r, ownerID)
	loose := alloc(t, r, ownerID)
	r.SetGlobal("g", byGlobal)
	frame := r.PushFrame()
	require.NoError(t, frame.Hold(byFrame))

	rep, err := r.Flush(false)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Rooted)
	require.Equal(t, 1, rep.Freed)
	require.True(t, r.Alive(byGlobal))
	require.True(t, r.Alive(byFrame))
	require.False(t, r.Alive(loose))
	require.Equal(t, 2, r.Stats().ZCT)

	require.NoError(t, frame.Pop())
	r.DeleteGlobal("g")
	rep, err = r.Flush(false)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Freed)
	require.False(t, r.Alive(byGlobal))
	require.False(t, r.Alive(byFrame))
}

// TestFlush_QueueLimit tests the queue bound.
func TestFlush_QueueLimit(t *testing.T) {
	r := newRegistry(t, func(c *Config) { c.QueueLimit = 2 })

	o := alloc(t, r, ownerID)
	r.SetGlobal("o", o)
	require.NoError(t, r.EnqueueDelta(o, 1))
	require.NoError(t, r.EnqueueDelta(o, 1))
	require.ErrorIs(t, r.EnqueueDelta(o, 1), ErrQueueFull)
	require.ErrorIs(t, r.EnqueueDelta(o, 2), ErrInvalidDelta)

	_, err := r.Flush(false)
	require.NoError(t, err)
	require.NoError(t, r.EnqueueDelta(o, -1))
}
