package arena

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/internal/mmap"
)

func newArena(t *testing.T, opts Options) *Arena {
	t.Helper()
	a, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Release() })
	return a
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		chunkSize int
	}{
		{"default chunk size", Options{}, DefaultChunkSize},
		{"custom chunk size", Options{ChunkSize: 8192}, 8192},
		{"rounded to 8", Options{ChunkSize: 100}, 104},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newArena(t, tt.opts)
			require.Equal(t, tt.chunkSize, a.ChunkSize())
			require.Equal(t, 1, a.NumChunks())
		})
	}

	_, err := New(Options{ChunkSize: -1})
	require.ErrorIs(t, err, ErrInvalidSize)
}

// TestArena_Alignment tests that every block starts on an 8-byte boundary.
func TestArena_Alignment(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 1024})
	require.NoError(t, a.Begin())

	var offs []int
	for _, n := range []int{1, 3, 8, 13, 2} {
		b, err := a.Alloc(n)
		require.NoError(t, err)
		require.Len(t, b.Buf, n)
		require.Zero(t, b.Off%8)
		offs = append(offs, b.Off)
	}
	require.Equal(t, []int{0, 8, 16, 24, 40}, offs)
	require.Equal(t, 42, a.SizeInUse())
}

// TestArena_ScopeRestartsAtZero tests that the next outermost scope reuses memory from offset zero.
func TestArena_ScopeRestartsAtZero(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 256})

	require.NoError(t, a.Begin())
	first, err := a.Alloc(32)
	require.NoError(t, err)
	first.Buf[0] = 0xAB
	_, err = a.Alloc(64)
	require.NoError(t, err)
	require.NoError(t, a.End())
	require.Zero(t, a.SizeInUse())

	require.NoError(t, a.Begin())
	again, err := a.Alloc(32)
	require.NoError(t, err)
	require.Zero(t, again.Off)
	require.Same(t, &first.Buf[0], &again.Buf[0])
	require.Zero(t, again.Buf[0], "reused memory is zeroed")
	require.NoError(t, a.End())

	require.Equal(t, 96, a.HighWater())
}

// TestArena_NestedScopes tests that End rewinds only the innermost scope.
func TestArena_NestedScopes(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 256})

	require.NoError(t, a.Begin())
	_, err := a.Alloc(16)
	require.NoError(t, err)

	require.NoError(t, a.Begin())
	require.Equal(t, 2, a.Depth())
	inner, err := a.Alloc(16)
	require.NoError(t, err)
	require.Equal(t, 16, inner.Off)
	require.NoError(t, a.End())

	next, err := a.Alloc(8)
	require.NoError(t, err)
	require.Equal(t, 16, next.Off)

	require.NoError(t, a.End())
	require.ErrorIs(t, a.End(), ErrNoScope)
}

// TestArena_Exhausted tests the no-growth default and oversized requests.
func TestArena_Exhausted(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 64})
	require.NoError(t, a.Begin())

	_, err := a.Alloc(48)
	require.NoError(t, err)
	_, err = a.Alloc(24)
	require.ErrorIs(t, err, ErrArenaExhausted)

	// The failed request leaves the cursor where it was.
	b, err := a.Alloc(16)
	require.NoError(t, err)
	require.Equal(t, 48, b.Off)

	_, err = a.Alloc(65)
	require.ErrorIs(t, err, ErrArenaExhausted)
}

// TestArena_Grow tests chunk growth when MaxChunks allows it.
func TestArena_Grow(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 64, MaxChunks: 3})
	require.NoError(t, a.Begin())

	var offs []int
	for range 3 {
		b, err := a.Alloc(40)
		require.NoError(t, err)
		offs = append(offs, b.Off)
	}
	require.Equal(t, []int{0, 64, 128}, offs)
	require.Equal(t, 3, a.NumChunks())
	require.Equal(t, 192, a.Capacity())

	_, err := a.Alloc(40)
	require.ErrorIs(t, err, ErrArenaExhausted)
}

// TestArena_Unbounded tests MaxChunks -1.
func TestArena_Unbounded(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 64, MaxChunks: -1})
	require.NoError(t, a.Begin())
	for range 20 {
		_, err := a.Alloc(64)
		require.NoError(t, err)
	}
	require.Equal(t, 20, a.NumChunks())
	require.InDelta(t, 1.0, a.Utilization(), 1e-9)
}

// TestArena_Errors tests misuse reporting.
func TestArena_Errors(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 64})

	_, err := a.Alloc(8)
	require.ErrorIs(t, err, ErrNoScope)

	require.NoError(t, a.Begin())
	_, err = a.Alloc(0)
	require.ErrorIs(t, err, ErrInvalidSize)

	require.NoError(t, a.Release())
	require.NoError(t, a.Release())
	_, err = a.Alloc(8)
	require.ErrorIs(t, err, ErrReleased)
	require.ErrorIs(t, a.Begin(), ErrReleased)
	require.ErrorIs(t, a.End(), ErrReleased)
	require.Zero(t, a.Capacity())
}

// TestArena_Reset tests closing all scopes at once.
func TestArena_Reset(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 128})
	require.NoError(t, a.Begin())
	require.NoError(t, a.Begin())
	_, err := a.Alloc(40)
	require.NoError(t, err)

	a.Reset()
	require.Zero(t, a.Depth())
	require.Zero(t, a.SizeInUse())
	require.Equal(t, 40, a.HighWater())
}

func TestArena_Metrics(t *testing.T) {
	a := newArena(t, Options{ChunkSize: 128, Backing: mmap.Anon})
	require.NoError(t, a.Begin())
	_, err := a.Alloc(64)
	require.NoError(t, err)

	m := a.Metrics()
	assert.Equal(t, 64, m.SizeInUse)
	assert.Equal(t, 128, m.Capacity)
	assert.Equal(t, 64, m.HighWater)
	assert.Equal(t, 1, m.NumChunks)
	assert.Equal(t, 128, m.ChunkSize)
	assert.InDelta(t, 0.5, m.Utilization, 1e-9)
	assert.Equal(t, 1, m.Depth)
}

// TestSafeArena_Concurrent tests concurrent allocation within one scope.
func TestSafeArena_Concurrent(t *testing.T) {
	s, err := NewSafe(Options{ChunkSize: 4096, MaxChunks: -1})
	require.NoError(t, err)
	defer s.Release()
	require.NoError(t, s.Begin())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_, _ = s.Alloc(16)
			}
		}()
	}
	wg.Wait()

	m := s.Metrics()
	require.Equal(t, 8*100*16, m.SizeInUse)
	require.NoError(t, s.End())
	require.Zero(t, s.Metrics().SizeInUse)
}
