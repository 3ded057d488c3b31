package arena

// Metrics contains statistical information about an arena.
type Metrics struct {
	SizeInUse   int     // bytes between the arena start and the cursor, padding included
	Capacity    int     // total capacity in bytes
	HighWater   int     // highest cursor position ever reached
	NumChunks   int     // number of chunks
	ChunkSize   int     // bytes per chunk
	Utilization float64 // SizeInUse / Capacity
	Depth       int     // open scopes
}

// SizeInUse returns the number of bytes below the cursor.
func (a *Arena) SizeInUse() int { return a.top }

// NumChunks returns the number of chunks currently allocated by the arena.
func (a *Arena) NumChunks() int { return len(a.chunks) }

// Capacity returns the total capacity (in bytes) of all chunks in the arena.
func (a *Arena) Capacity() int { return len(a.chunks) * a.opts.ChunkSize }

// HighWater returns the highest cursor position since the arena was created.
func (a *Arena) HighWater() int { return a.highWater }

// ChunkSize returns the chunk size used by this arena.
func (a *Arena) ChunkSize() int { return a.opts.ChunkSize }

// Utilization returns the ratio of bytes in use to total capacity (0.0 to 1.0).
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(capacity)
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() Metrics {
	return Metrics{
		SizeInUse:   a.SizeInUse(),
		Capacity:    a.Capacity(),
		HighWater:   a.highWater,
		NumChunks:   a.NumChunks(),
		ChunkSize:   a.opts.ChunkSize,
		Utilization: a.Utilization(),
		Depth:       a.Depth(),
	}
}
