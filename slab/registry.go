package slab

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/arena"
	"github.com/joshuapare/slabkit/slab/deferred"
	"github.com/joshuapare/slabkit/slab/pool"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

// Registry owns one pool per pooled type plus the deferred queue, the roots
// and a scratch arena.
type Registry struct {
	g   *typegraph.Graph
	cfg Config
	log *slog.Logger

	poolsMu sync.RWMutex
	pools   []*pool.Pool // index = TypeID - 1; nil for value types and not-yet-created pools
	floors  [][]uint16   // generation floors of cleared pools, same index

	queue *deferred.Queue
	zct   *deferred.ZCT
	roots *rootSet
	arena *arena.SafeArena

	maint  sync.Mutex // serializes Flush, Sweep and Compact
	closed atomic.Bool
}

// Stats is a registry-wide snapshot.
type Stats struct {
	Pools   []pool.Stats
	Queue   deferred.QueueStats
	ZCT     int
	Globals int
	Frames  int
	Arena   arena.Metrics
}

// New creates a registry for g. Pools are created now, or on first use when
// cfg.LazyPools is set.
func New(g *typegraph.Graph, cfg Config) (*Registry, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil type graph", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.L
	}

	ar, err := arena.NewSafe(cfg.arenaOptions())
	if err != nil {
		return nil, err
	}

	r := &Registry{
		g:      g,
		cfg:    cfg,
		log:    log,
		pools:  make([]*pool.Pool, g.Len()),
		floors: make([][]uint16, g.Len()),
		queue:  deferred.NewQueue(cfg.QueueLimit),
		zct:    deferred.NewZCT(),
		roots:  newRootSet(),
		arena:  ar,
	}

	if !cfg.LazyPools {
		for _, t := range g.Types() {
			if !t.Pooled() {
				continue
			}
			if _, err := r.poolFor(t); err != nil {
				_ = r.Close()
				return nil, err
			}
		}
	}
	log.Debug("registry ready", "types", g.Len(), "lazy", cfg.LazyPools, "backing", cfg.Backing)
	return r, nil
}

// Graph returns the registry's type graph.
func (r *Registry) Graph() *typegraph.Graph { return r.g }

// Config returns the configuration the registry was created with.
func (r *Registry) Config() Config { return r.cfg }

// poolFor returns the pool of t, creating it if needed.
func (r *Registry) poolFor(t *typegraph.Type) (*pool.Pool, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if !t.Pooled() {
		return nil, fmt.Errorf("%w: %s is a value type", ErrNotPooled, t.Name)
	}
	idx := int(t.ID) - 1

	r.poolsMu.RLock()
	p := r.pools[idx]
	r.poolsMu.RUnlock()
	if p != nil {
		return p, nil
	}

	r.poolsMu.Lock()
	defer r.poolsMu.Unlock()
	if p := r.pools[idx]; p != nil {
		return p, nil
	}
	opts := r.cfg.poolOptions(r.log)
	opts.GenFloor = r.floors[idx]
	p, err := pool.New(t, opts)
	if err != nil {
		return nil, err
	}
	r.pools[idx] = p
	return p, nil
}

// existingPool returns the pool of id without creating it.
func (r *Registry) existingPool(id types.TypeID) *pool.Pool {
	if id == 0 || int(id) > len(r.pools) {
		return nil
	}
	r.poolsMu.RLock()
	defer r.poolsMu.RUnlock()
	return r.pools[id-1]
}

// resolve returns the type and pool a reference points into.
func (r *Registry) resolve(ref types.Ref) (*typegraph.Type, *pool.Pool, error) {
	if r.closed.Load() {
		return nil, nil, ErrClosed
	}
	if ref.IsNil() {
		return nil, nil, fmt.Errorf("%w: nil", ErrBadRef)
	}
	t, ok := r.g.Type(ref.Type())
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s has type %d", ErrBadRef, ref, ref.Type())
	}
	if !t.Pooled() {
		return nil, nil, fmt.Errorf("%w: %s is a value type", ErrNotPooled, t.Name)
	}
	p := r.existingPool(t.ID)
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s has no %s pool", ErrBadRef, ref, t.Name)
	}
	return t, p, nil
}

// livePools returns the existing pools in TypeID order.
func (r *Registry) livePools() []*pool.Pool {
	r.poolsMu.RLock()
	defer r.poolsMu.RUnlock()
	out := make([]*pool.Pool, 0, len(r.pools))
	for _, p := range r.pools {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Allocate returns a zeroed object of type t. rc objects start at count 1;
// defer_rc objects start at 0 and wait in the ZCT until something counts them.
func (r *Registry) Allocate(t types.TypeID) (types.Ref, error) {
	return r.allocate(t, nil)
}

// AllocateGlobal allocates an object of type t and binds it to the global
// name before a concurrent Flush can see it at count zero.
func (r *Registry) AllocateGlobal(name string, t types.TypeID) (types.Ref, error) {
	return r.allocate(t, func(ref types.Ref) { r.SetGlobal(name, ref) })
}

func (r *Registry) allocate(t types.TypeID, bind func(types.Ref)) (types.Ref, error) {
	typ, ok := r.g.Type(t)
	if !ok {
		return types.Nil, fmt.Errorf("%w: id %d", ErrUnknownType, t)
	}
	p, err := r.poolFor(typ)
	if err != nil {
		return types.Nil, err
	}
	ref, err := p.Alloc()
	if err != nil {
		return types.Nil, err
	}
	if bind != nil {
		bind(ref)
	}
	if typ.Mode == types.ModeDeferRC {
		r.zct.Add(ref)
	}
	return ref, nil
}

// AllocateNamed is Allocate by type name.
func (r *Registry) AllocateNamed(name string) (types.Ref, error) {
	typ, ok := r.g.Lookup(name)
	if !ok {
		return types.Nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return r.Allocate(typ.ID)
}

// Free releases a manual object after tearing down its counted members.
func (r *Registry) Free(ref types.Ref) error {
	t, p, err := r.resolve(ref)
	if err != nil {
		return err
	}
	if t.Mode != types.ModeManual {
		return fmt.Errorf("%w: free of %s object %s", ErrWrongMode, t.Mode, ref)
	}
	if !p.IsLive(ref) {
		// Let the pool classify it: dummy, double free, out of range.
		return p.Release(ref)
	}
	return r.destroy(ref)
}

// Object resolves ref to a view of its slot.
func (r *Registry) Object(ref types.Ref) (pool.Object, error) {
	_, p, err := r.resolve(ref)
	if err != nil {
		return pool.Object{}, err
	}
	return p.View(ref)
}

// Alive reports whether ref names a live object.
func (r *Registry) Alive(ref types.Ref) bool {
	_, p, err := r.resolve(ref)
	if err != nil {
		return false
	}
	return p.IsLive(ref)
}

// Count returns the reference count of a live counted object.
func (r *Registry) Count(ref types.Ref) (uint32, error) {
	t, p, err := r.resolve(ref)
	if err != nil {
		return 0, err
	}
	if !t.Mode.Counted() {
		return 0, fmt.Errorf("%w: %s is %s", ErrWrongMode, ref, t.Mode)
	}
	return p.Count(ref)
}

// Pool returns the pool of type t, if it exists.
func (r *Registry) Pool(t types.TypeID) (*pool.Pool, bool) {
	p := r.existingPool(t)
	return p, p != nil
}

// Stats returns a snapshot of every pool, the queue, the roots and the arena.
func (r *Registry) Stats() Stats {
	s := Stats{
		Queue: r.queue.Stats(),
		ZCT:   r.zct.Len(),
		Arena: r.arena.Metrics(),
	}
	s.Globals, s.Frames = r.roots.counts()
	for _, p := range r.livePools() {
		s.Pools = append(s.Pools, p.Stats())
	}
	return s
}

// Trim releases empty trailing chunks of t's pool.
func (r *Registry) Trim(t types.TypeID) (int, error) {
	p := r.existingPool(t)
	if p == nil {
		return 0, nil
	}
	return p.Trim()
}

// Clear destroys the pool of t. It fails with ErrPoolBusy while objects remain.
// A later Allocate creates a fresh pool whose generations continue above the old one's.
func (r *Registry) Clear(t types.TypeID) error {
	typ, ok := r.g.Type(t)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownType, t)
	}
	r.poolsMu.Lock()
	defer r.poolsMu.Unlock()
	p := r.pools[t-1]
	if p == nil {
		return nil
	}
	if err := p.Clear(); err != nil {
		return err
	}
	r.floors[t-1] = p.GenFloor()
	r.pools[t-1] = nil
	r.log.Debug("pool cleared", "type", typ.Name)
	return nil
}

// Close tears down every pool and the arena. Outstanding references become invalid.
func (r *Registry) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	var errs *multierror.Error
	r.poolsMu.Lock()
	for i, p := range r.pools {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		r.pools[i] = nil
	}
	r.poolsMu.Unlock()

	if err := r.arena.Release(); err != nil {
		errs = multierror.Append(errs, err)
	}
	r.queue.Reset()
	r.zct.Reset()
	return errs.ErrorOrNil()
}

// ArenaBegin opens a scope on the registry's scratch arena.
func (r *Registry) ArenaBegin() error { return r.arena.Begin() }

// ArenaAlloc allocates n bytes in the innermost arena scope.
func (r *Registry) ArenaAlloc(n int) (arena.Block, error) { return r.arena.Alloc(n) }

// ArenaEnd closes the innermost arena scope.
func (r *Registry) ArenaEnd() error { return r.arena.End() }
