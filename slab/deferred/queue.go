package deferred

import (
	"fmt"
	"sync"

	"github.com/joshuapare/slabkit/pkg/types"
)

// defaultQueueCapacity is the initial backing capacity of a queue.
const defaultQueueCapacity = 64

// Delta is one queued count change.
type Delta struct {
	Ref   types.Ref
	Delta int32
}

// Net is the coalesced change for one object within a batch.
type Net struct {
	Ref   types.Ref
	Delta int64
	Low   int64 // lowest running total of the batch's deltas, never above 0
	Seen  int   // number of deltas folded into this entry
}

// QueueStats reports queue counters.
type QueueStats struct {
	Len      int
	Peak     int
	Enqueued uint64
	Drained  uint64
}

// Queue is a FIFO of pending deltas.
type Queue struct {
	mu      sync.Mutex
	entries []Delta
	limit   int // 0 = unbounded

	peak     int
	enqueued uint64
	drained  uint64
}

// NewQueue creates a queue. A limit of 0 means unbounded.
func NewQueue(limit int) *Queue {
	return &Queue{
		entries: make([]Delta, 0, defaultQueueCapacity),
		limit:   limit,
	}
}

// Enqueue appends a delta of +1 or -1 for ref.
func (q *Queue) Enqueue(ref types.Ref, delta int32) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("%w: got %d for %s", ErrInvalidDelta, delta, ref)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 && len(q.entries) >= q.limit {
		return fmt.Errorf("%w: %d pending", ErrQueueFull, len(q.entries))
	}
	q.entries = append(q.entries, Delta{Ref: ref, Delta: delta})
	q.enqueued++
	q.peak = max(q.peak, len(q.entries))
	return nil
}

// Len returns the number of pending deltas.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain removes and returns up to limit deltas from the head. limit <= 0 drains everything.
func (q *Queue) Drain(limit int) []Delta {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	if n == 0 {
		return nil
	}
	batch := make([]Delta, n)
	copy(batch, q.entries[:n])
	rest := copy(q.entries, q.entries[n:])
	clear(q.entries[rest:])
	q.entries = q.entries[:rest]
	q.drained += uint64(n)
	return batch
}

// Each calls fn for every pending delta in FIFO order, under the queue lock.
// fn must not call back into the queue.
func (q *Queue) Each(fn func(Delta)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, d := range q.entries {
		fn(d)
	}
}

// Rewrite replaces every pending ref r with fn(r) and returns how many changed.
func (q *Queue) Rewrite(fn func(types.Ref) types.Ref) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	changed := 0
	for i := range q.entries {
		if r := fn(q.entries[i].Ref); r != q.entries[i].Ref {
			q.entries[i].Ref = r
			changed++
		}
	}
	return changed
}

// Reset discards all pending deltas.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.entries)
	q.entries = q.entries[:0]
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Len:      len(q.entries),
		Peak:     q.peak,
		Enqueued: q.enqueued,
		Drained:  q.drained,
	}
}

// Coalesce folds a batch into one Net per object, ordered by first appearance.
// Objects whose deltas cancel out are kept with a zero Delta. Low keeps enough
// of the order to replay a clamped count: see pool.AddCountClamped.
func Coalesce(batch []Delta) []Net {
	if len(batch) == 0 {
		return nil
	}
	index := make(map[types.Ref]int, len(batch))
	out := make([]Net, 0, len(batch))
	for _, d := range batch {
		i, ok := index[d.Ref]
		if !ok {
			i = len(out)
			index[d.Ref] = i
			out = append(out, Net{Ref: d.Ref})
		}
		out[i].Delta += int64(d.Delta)
		out[i].Low = min(out[i].Low, out[i].Delta)
		out[i].Seen++
	}
	return out
}
