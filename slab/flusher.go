package slab

import (
	"context"
	"time"
)

// DefaultFlushInterval is the Flusher period when none is configured.
const DefaultFlushInterval = 100 * time.Millisecond

// FlusherOptions configures a Flusher.
type FlusherOptions struct {
	Interval time.Duration // 0 = DefaultFlushInterval
	Partial  bool          // flush one batch per tick instead of draining
}

// Flusher runs Flush on a ticker, off the mutator goroutines.
type Flusher struct {
	r    *Registry
	opts FlusherOptions

	ticks   int
	freed   int
	failed  int
	lastErr error
}

// NewFlusher creates a Flusher for r. Call Run to start it.
func (r *Registry) NewFlusher(opts FlusherOptions) *Flusher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultFlushInterval
	}
	return &Flusher{r: r, opts: opts}
}

// Run flushes every Interval until ctx is done, then runs one final complete
// flush and returns ctx.Err(). Flush errors are logged and do not stop the loop.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.flush(false)
			return ctx.Err()
		case <-ticker.C:
			f.flush(f.opts.Partial)
		}
	}
}

func (f *Flusher) flush(partial bool) {
	if f.r.closed.Load() {
		return
	}
	rep, err := f.r.Flush(partial)
	f.ticks++
	f.freed += rep.Freed
	if err != nil {
		f.failed++
		f.lastErr = err
		f.r.log.Warn("background flush failed", "error", err, "partial", partial)
	}
}

// FlusherStats reports what a Flusher has done. Read it after Run returns.
type FlusherStats struct {
	Flushes int
	Freed   int
	Failed  int
	LastErr error `json:"-"`
}

// Stats returns the flusher's counters. It is not synchronized with Run.
func (f *Flusher) Stats() FlusherStats {
	return FlusherStats{Flushes: f.ticks, Freed: f.freed, Failed: f.failed, LastErr: f.lastErr}
}
