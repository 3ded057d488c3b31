package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/internal/mmap"
	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

// DefaultSlotsPerChunk is the chunk size used when Options.SlotsPerChunk is zero.
const DefaultSlotsPerChunk = 256

// Policy selects how a freed slot's reference fields are scrubbed.
type Policy uint8

const (
	// FreeRebind points reference fields at the dummy object of their target type.
	FreeRebind Policy = iota
	// FreeZero clears reference fields to nil.
	FreeZero
)

func (p Policy) String() string {
	switch p {
	case FreeRebind:
		return "rebind"
	case FreeZero:
		return "zero"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "rebind":
		return FreeRebind, nil
	case "zero":
		return FreeZero, nil
	default:
		return 0, fmt.Errorf("pool: unknown free policy %q", s)
	}
}

// Options configures a pool.
type Options struct {
	SlotsPerChunk int          // slots per chunk, including the dummy in chunk 0
	MaxChunks     int          // 0 = unbounded
	Policy        Policy       // scrub policy for freed slots
	Checked       bool         // report stale views as ErrStaleAccess
	Backing       mmap.Backing // chunk memory source
	Logger        *slog.Logger // nil = logger.L
	GenFloor      []uint16     // per-chunk generation high-water from an earlier pool of this type
}

// Stats is a point-in-time snapshot of a pool.
type Stats struct {
	Type      string
	Mode      types.Mode
	SlotSize  int
	Chunks    int
	Capacity  int // allocatable slots (excludes the dummy)
	Live      int
	Free      int
	Allocs    uint64
	Frees     uint64
	Grows     uint64
	Moves     uint64
	Trims     uint64
	Occupancy float64
}

// Move records one relocation performed by Compact.
type Move struct {
	From types.Ref
	To   types.Ref
}

// Pool is a fixed-slot slab for one pooled type.
type Pool struct {
	mu sync.Mutex

	typ      *typegraph.Type
	opts     Options
	slotSize int
	log      *slog.Logger

	chunks []*mmap.Region
	// genFloor[i] is the highest generation seen in chunk i before it was
	// released. A regrown chunk starts above it so stale refs stay stale.
	genFloor []uint16
	head     uint32 // freelist head: slot index + 1, 0 = empty
	free     int
	live     int
	closed   bool

	allocs, frees, grows, moves, trims uint64
}

// New creates a pool for t and allocates its first chunk, including the dummy slot.
func New(t *typegraph.Type, opts Options) (*Pool, error) {
	if t == nil || !t.Pooled() {
		return nil, ErrNotPooled
	}
	if opts.SlotsPerChunk == 0 {
		opts.SlotsPerChunk = DefaultSlotsPerChunk
	}
	if opts.SlotsPerChunk < 2 {
		return nil, fmt.Errorf("pool: %s: slots per chunk must be at least 2, got %d", t.Name, opts.SlotsPerChunk)
	}
	if opts.MaxChunks < 0 {
		return nil, fmt.Errorf("pool: %s: negative max chunks %d", t.Name, opts.MaxChunks)
	}
	log := opts.Logger
	if log == nil {
		log = logger.L
	}

	p := &Pool{
		typ:      t,
		opts:     opts,
		slotSize: format.SlotSize(t.Size),
		log:      log.With("type", t.Name),
		genFloor: slices.Clone(opts.GenFloor),
	}
	if err := p.grow(); err != nil {
		return nil, err
	}
	return p, nil
}

// Type returns the pool's type.
func (p *Pool) Type() *typegraph.Type { return p.typ }

// TypeID returns the pool's type identifier.
func (p *Pool) TypeID() types.TypeID { return p.typ.ID }

// SlotSize returns the size of one slot, header included.
func (p *Pool) SlotSize() int { return p.slotSize }

// grow appends one chunk and pushes its slots onto the freelist.
// Caller must hold p.mu.
func (p *Pool) grow() error {
	if p.opts.MaxChunks > 0 && len(p.chunks) >= p.opts.MaxChunks {
		return fmt.Errorf("%w: %s has %d chunks", ErrOutOfCapacity, p.typ.Name, len(p.chunks))
	}
	spc := p.opts.SlotsPerChunk
	if (len(p.chunks)+1)*spc-1 > types.MaxSlots {
		return fmt.Errorf("%w: %s slot space exhausted", ErrOutOfCapacity, p.typ.Name)
	}
	n, err := format.ChunkBytes(spc, p.slotSize)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutOfCapacity, p.typ.Name, err)
	}
	region, err := mmap.Alloc(p.opts.Backing, n)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutOfCapacity, p.typ.Name, err)
	}

	idx := len(p.chunks)
	p.chunks = append(p.chunks, region)
	first := uint32(idx * spc)
	last := first + uint32(spc) - 1
	var gen uint16
	if idx < len(p.genFloor) {
		gen = p.genFloor[idx] + 1
	}

	for slot := last; ; slot-- {
		buf := p.slotBuf(slot)
		h := format.Header{Tag: uint32(p.typ.ID), Mode: uint8(p.typ.Mode)}
		if slot == 0 {
			h.Flags = format.FlagDummy
			format.EncodeHeader(buf, h)
			p.rebind(buf[format.HeaderSize:])
			break
		}
		h.Flags = format.FlagFree
		h.Gen = gen
		h.Link = p.head
		format.EncodeHeader(buf, h)
		p.scrub(buf[format.HeaderSize:])
		p.head = slot + 1
		p.free++
		if slot == first {
			break
		}
	}

	if idx > 0 {
		p.grows++
		p.log.Debug("pool grow", "chunks", len(p.chunks), "capacity", p.capacity())
	}
	return nil
}

// slotBuf returns the full slot (header + payload). Caller must hold p.mu or own the pool.
func (p *Pool) slotBuf(slot uint32) []byte {
	spc := uint32(p.opts.SlotsPerChunk)
	c := p.chunks[slot/spc]
	off := int(slot%spc) * p.slotSize
	end := off + p.slotSize
	return c.Buf[off:end:end]
}

func (p *Pool) numSlots() uint32 {
	return uint32(len(p.chunks) * p.opts.SlotsPerChunk)
}

func (p *Pool) capacity() int {
	return len(p.chunks)*p.opts.SlotsPerChunk - 1
}

// scrub clears a payload according to the pool policy.
func (p *Pool) scrub(payload []byte) {
	clear(payload)
	if p.opts.Policy == FreeRebind {
		p.rebind(payload)
	}
}

// rebind points every reference field of payload at its target's dummy.
func (p *Pool) rebind(payload []byte) {
	for _, rs := range p.typ.Refs {
		format.PutU64(payload, rs.Offset, uint64(types.DummyRef(rs.Target)))
	}
}

// Alloc takes a slot from the freelist, growing the pool if it is empty.
// The payload is zeroed. rc objects start with a count of 1, all others with 0.
func (p *Pool) Alloc() (types.Ref, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return types.Nil, ErrClosed
	}
	if p.head == 0 {
		if err := p.grow(); err != nil {
			return types.Nil, err
		}
	}

	slot := p.head - 1
	buf := p.slotBuf(slot)
	h := format.DecodeHeader(buf)
	p.head = h.Link
	p.free--
	p.live++
	p.allocs++

	clear(buf[format.HeaderSize:])
	h.Flags = 0
	h.Link = 0
	h.Mode = uint8(p.typ.Mode)
	h.Count = 0
	if p.typ.Mode == types.ModeRC {
		h.Count = 1
	}
	format.EncodeHeader(buf, h)
	return types.MakeRef(p.typ.ID, h.Gen, slot), nil
}

// locate validates that ref addresses a slot of this pool. Caller must hold p.mu.
func (p *Pool) locate(ref types.Ref) ([]byte, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if ref.IsNil() || ref.Type() != p.typ.ID {
		return nil, fmt.Errorf("%w: %s is not a %s", ErrBadRef, ref, p.typ.Name)
	}
	if ref.Slot() >= p.numSlots() {
		return nil, fmt.Errorf("%w: %s beyond %d slots", ErrBadRef, ref, p.numSlots())
	}
	return p.slotBuf(ref.Slot()), nil
}

// liveSlot validates that ref addresses the current occupant of a live slot. Caller must hold p.mu.
func (p *Pool) liveSlot(ref types.Ref) ([]byte, format.Header, error) {
	buf, err := p.locate(ref)
	if err != nil {
		if p.trimmed(ref) {
			return nil, format.Header{}, fmt.Errorf("%w: %s is in a trimmed chunk", ErrStaleAccess, ref)
		}
		return nil, format.Header{}, err
	}
	h := format.DecodeHeader(buf)
	if h.Has(format.FlagDummy) {
		return nil, h, fmt.Errorf("%w: %s is the dummy object", ErrBadRef, ref)
	}
	if h.Has(format.FlagFree) || h.Gen != ref.Gen() {
		return nil, h, fmt.Errorf("%w: %s", ErrStaleAccess, ref)
	}
	return buf, h, nil
}

// Release returns the slot named by ref to the freelist.
func (p *Pool) Release(ref types.Ref) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, h, err := p.liveSlot(ref)
	if errors.Is(err, ErrStaleAccess) {
		// The slot is free, reused by a later allocation, or trimmed away while
		// free: this ref was already released.
		return fmt.Errorf("%w: %s", ErrDoubleFree, ref)
	}
	if err != nil {
		return err
	}
	p.releaseSlot(ref.Slot(), buf, h)
	return nil
}

// releaseSlot scrubs a live slot and pushes it. Caller must hold p.mu.
func (p *Pool) releaseSlot(slot uint32, buf []byte, h format.Header) {
	p.scrub(buf[format.HeaderSize:])
	h.Flags = format.FlagFree
	h.Gen++
	h.Count = 0
	h.Link = p.head
	format.EncodeHeader(buf, h)
	p.head = slot + 1
	p.free++
	p.live--
	p.frees++
}

// trimmed reports whether ref names a slot in a chunk that Trim released.
// Caller must hold p.mu.
func (p *Pool) trimmed(ref types.Ref) bool {
	if p.closed || ref.Type() != p.typ.ID || ref.Slot() < p.numSlots() {
		return false
	}
	return int(ref.Slot())/p.opts.SlotsPerChunk < len(p.genFloor)
}

// retireChunk records the generation high-water of chunk idx before its memory
// goes away. Caller must hold p.mu.
func (p *Pool) retireChunk(idx int) {
	spc := uint32(p.opts.SlotsPerChunk)
	var high uint16
	for slot := uint32(idx) * spc; slot < uint32(idx+1)*spc; slot++ {
		high = max(high, format.ReadU16(p.slotBuf(slot), format.GenOffset))
	}
	for len(p.genFloor) <= idx {
		p.genFloor = append(p.genFloor, 0)
	}
	p.genFloor[idx] = max(p.genFloor[idx], high)
}

// GenFloor returns the per-chunk generation high-water of every chunk the pool
// has released. Pass it as Options.GenFloor when recreating a cleared pool.
func (p *Pool) GenFloor() []uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.genFloor)
}

// View resolves ref to an object view.
//
// Unchecked pools resolve any in-range reference of the right type, including
// freed and reused slots, to the well-typed slot contents. Checked pools
// report such references as ErrStaleAccess. Dummy references always resolve.
// A reference into a chunk released by Trim is out of range in either mode
// and yields ErrBadRef.
func (p *Pool) View(ref types.Ref) (Object, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, err := p.locate(ref)
	if err != nil {
		return Object{}, err
	}
	if p.opts.Checked {
		h := format.DecodeHeader(buf)
		if !h.Has(format.FlagDummy) && (h.Has(format.FlagFree) || h.Gen != ref.Gen()) {
			return Object{}, fmt.Errorf("%w: %s", ErrStaleAccess, ref)
		}
	}
	return Object{ref: ref, typ: p.typ, buf: buf}, nil
}

// IsLive reports whether ref names the current occupant of a live slot.
func (p *Pool) IsLive(ref types.Ref) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _, err := p.liveSlot(ref)
	return err == nil
}

// Count returns the reference count of a live object.
func (p *Pool) Count(ref types.Ref) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, h, err := p.liveSlot(ref)
	if err != nil {
		return 0, err
	}
	return h.Count, nil
}

// AddCount applies delta to a live counted object and returns the new count.
// A result below zero leaves the count unchanged and returns ErrCountUnderflow.
func (p *Pool) AddCount(ref types.Ref, delta int32) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, h, err := p.liveSlot(ref)
	if err != nil {
		return 0, err
	}
	if !types.Mode(h.Mode).Counted() {
		return 0, fmt.Errorf("%w: %s is %s", ErrNotCounted, ref, types.Mode(h.Mode))
	}
	n := int64(h.Count) + int64(delta)
	if n < 0 {
		return h.Count, fmt.Errorf("%w: %s count %d delta %d", ErrCountUnderflow, ref, h.Count, delta)
	}
	format.PutU32(buf, format.CountOffset, uint32(n))
	return uint32(n), nil
}

// AddCountClamped applies one coalesced batch to a live counted object. delta
// is the batch total and low its lowest running total. The result equals
// applying the batch one delta at a time with the count clamped at zero after
// each step; clamped reports that some step would have gone below zero.
func (p *Pool) AddCountClamped(ref types.Ref, delta, low int64) (n uint32, clamped bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, h, err := p.liveSlot(ref)
	if err != nil {
		return 0, false, err
	}
	if !types.Mode(h.Mode).Counted() {
		return 0, false, fmt.Errorf("%w: %s is %s", ErrNotCounted, ref, types.Mode(h.Mode))
	}
	c := int64(h.Count)
	next := c + delta
	if floor := c + min(low, 0); floor < 0 {
		next -= floor
		clamped = true
	}
	next = min(next, math.MaxUint32)
	format.PutU32(buf, format.CountOffset, uint32(next))
	return uint32(next), clamped, nil
}

// SetCount overwrites the reference count of a live counted object.
func (p *Pool) SetCount(ref types.Ref, n uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, h, err := p.liveSlot(ref)
	if err != nil {
		return err
	}
	if !types.Mode(h.Mode).Counted() {
		return fmt.Errorf("%w: %s is %s", ErrNotCounted, ref, types.Mode(h.Mode))
	}
	format.PutU32(buf, format.CountOffset, n)
	return nil
}

// SetFlag sets flag bits on a live object.
func (p *Pool) SetFlag(ref types.Ref, f uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf, _, err := p.liveSlot(ref)
	if err != nil {
		return err
	}
	buf[format.FlagsOffset] |= f
	return nil
}

// ClearFlag clears flag bits on a live object.
func (p *Pool) ClearFlag(ref types.Ref, f uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf, _, err := p.liveSlot(ref)
	if err != nil {
		return err
	}
	buf[format.FlagsOffset] &^= f
	return nil
}

// ClearFlagAll clears flag bits on every live slot.
func (p *Pool) ClearFlagAll(f uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for slot := uint32(1); slot < p.numSlots(); slot++ {
		buf := p.slotBuf(slot)
		if buf[format.FlagsOffset]&format.FlagFree == 0 {
			buf[format.FlagsOffset] &^= f
		}
	}
}

// LiveRefs returns references to every live object in ascending slot order.
func (p *Pool) LiveRefs() []types.Ref {
	p.mu.Lock()
	defer p.mu.Unlock()

	refs := make([]types.Ref, 0, p.live)
	for slot := uint32(1); slot < p.numSlots(); slot++ {
		h := format.DecodeHeader(p.slotBuf(slot))
		if h.Has(format.FlagFree) {
			continue
		}
		refs = append(refs, types.MakeRef(p.typ.ID, h.Gen, slot))
	}
	return refs
}

// ForEachLive calls fn for every object that is live when visited. fn may
// allocate or release objects, including in this pool. Iteration stops when fn returns false.
func (p *Pool) ForEachLive(fn func(Object) bool) {
	for _, ref := range p.LiveRefs() {
		p.mu.Lock()
		buf, _, err := p.liveSlot(ref)
		p.mu.Unlock()
		if err != nil {
			continue
		}
		if !fn(Object{ref: ref, typ: p.typ, buf: buf}) {
			return
		}
	}
}

// Live returns the number of live objects.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Free returns the number of free slots.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.free
}

// Capacity returns the number of allocatable slots across all chunks.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	return p.capacity()
}

// Chunks returns the number of chunks.
func (p *Pool) Chunks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chunks)
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Type:     p.typ.Name,
		Mode:     p.typ.Mode,
		SlotSize: p.slotSize,
		Chunks:   len(p.chunks),
		Live:     p.live,
		Free:     p.free,
		Allocs:   p.allocs,
		Frees:    p.frees,
		Grows:    p.grows,
		Moves:    p.moves,
		Trims:    p.trims,
	}
	if !p.closed {
		s.Capacity = p.capacity()
	}
	if s.Capacity > 0 {
		s.Occupancy = float64(s.Live) / float64(s.Capacity)
	}
	return s
}

// Header returns the decoded header of a slot, for verification.
func (p *Pool) Header(slot uint32) (format.Header, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || slot >= p.numSlots() {
		return format.Header{}, false
	}
	return format.DecodeHeader(p.slotBuf(slot)), true
}

// NumSlots returns the total number of slots, dummy included.
func (p *Pool) NumSlots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	return int(p.numSlots())
}

// FreeChain walks the freelist from the head and returns the slot indexes in order.
// A walk longer than limit returns ErrFreelistCycle.
func (p *Pool) FreeChain(limit int) ([]uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var chain []uint32
	for link := p.head; link != 0; {
		if len(chain) >= limit {
			return chain, fmt.Errorf("%w: %s after %d slots", ErrFreelistCycle, p.typ.Name, len(chain))
		}
		slot := link - 1
		if slot >= p.numSlots() {
			return chain, fmt.Errorf("%w: freelist link to slot %d", ErrBadRef, slot)
		}
		chain = append(chain, slot)
		link = format.ReadU32(p.slotBuf(slot), format.LinkOffset)
	}
	return chain, nil
}

// LongestFreeRun returns the length of the longest run of consecutive free slots.
func (p *Pool) LongestFreeRun() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	best, run := 0, 0
	for slot := uint32(1); slot < p.numSlots(); slot++ {
		if p.slotBuf(slot)[format.FlagsOffset]&format.FlagFree != 0 {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}

// Compact moves the highest live objects into the lowest free slots and returns
// the moves in the order performed. Headers (mode, flags, count) and payloads
// travel with the object; the destination keeps its own generation. The
// freelist is rebuilt in ascending order, so free slots end up contiguous at the tail.
func (p *Pool) Compact() []Move {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	n := p.numSlots()
	isFree := func(slot uint32) bool {
		return p.slotBuf(slot)[format.FlagsOffset]&format.FlagFree != 0
	}

	var moves []Move
	lo, hi := uint32(1), n-1
	for {
		for lo < n && !isFree(lo) {
			lo++
		}
		for hi > 0 && isFree(hi) {
			hi--
		}
		if lo >= hi || hi == 0 {
			break
		}

		src, dst := p.slotBuf(hi), p.slotBuf(lo)
		sh, dh := format.DecodeHeader(src), format.DecodeHeader(dst)

		copy(dst[format.HeaderSize:], src[format.HeaderSize:])
		format.EncodeHeader(dst, format.Header{
			Tag:   dh.Tag,
			Mode:  sh.Mode,
			Flags: sh.Flags,
			Gen:   dh.Gen,
			Count: sh.Count,
		})

		p.scrub(src[format.HeaderSize:])
		sh.Flags = format.FlagFree
		sh.Gen++
		sh.Count = 0
		sh.Link = 0
		format.EncodeHeader(src, sh)

		moves = append(moves, Move{
			From: types.MakeRef(p.typ.ID, sh.Gen-1, hi),
			To:   types.MakeRef(p.typ.ID, dh.Gen, lo),
		})
		lo++
		hi--
	}

	p.rebuildFreelist()
	p.moves += uint64(len(moves))
	if len(moves) > 0 {
		p.log.Debug("pool compact", "moved", len(moves), "live", p.live)
	}
	return moves
}

// rebuildFreelist relinks all free slots in ascending order. Caller must hold p.mu.
func (p *Pool) rebuildFreelist() {
	p.head = 0
	p.free = 0
	for slot := p.numSlots() - 1; slot > 0; slot-- {
		buf := p.slotBuf(slot)
		if buf[format.FlagsOffset]&format.FlagFree == 0 {
			continue
		}
		format.PutU32(buf, format.LinkOffset, p.head)
		p.head = slot + 1
		p.free++
	}
}

// Trim releases trailing chunks that hold no live objects. Chunk 0 is always kept.
// It returns the number of chunks released.
//
// References into a released chunk no longer resolve: View reports ErrBadRef,
// header operations report ErrStaleAccess and Release reports ErrDoubleFree. When the pool grows back over the same
// slots, their generations continue above the released ones.
func (p *Pool) Trim() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}

	spc := uint32(p.opts.SlotsPerChunk)
	released := 0
	var errs *multierror.Error
	for len(p.chunks) > 1 {
		idx := uint32(len(p.chunks) - 1)
		empty := true
		for slot := idx * spc; slot < (idx+1)*spc; slot++ {
			if p.slotBuf(slot)[format.FlagsOffset]&format.FlagFree == 0 {
				empty = false
				break
			}
		}
		if !empty {
			break
		}
		p.retireChunk(int(idx))
		if err := p.chunks[idx].Release(); err != nil {
			errs = multierror.Append(errs, err)
		}
		p.chunks = p.chunks[:idx]
		released++
	}

	if released > 0 {
		p.rebuildFreelist()
		p.trims += uint64(released)
		p.log.Debug("pool trim", "released", released, "chunks", len(p.chunks))
	}
	return released, errs.ErrorOrNil()
}

// Clear destroys the pool's chunks. It fails with ErrPoolBusy while live objects remain.
func (p *Pool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live > 0 {
		return fmt.Errorf("%w: %s has %d live", ErrPoolBusy, p.typ.Name, p.live)
	}
	return p.close()
}

// Close destroys the pool's chunks regardless of live objects.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.close()
}

func (p *Pool) close() error {
	if p.closed {
		return nil
	}
	var errs *multierror.Error
	for i, c := range p.chunks {
		p.retireChunk(i)
		if err := c.Release(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	p.chunks = nil
	p.head = 0
	p.free = 0
	p.live = 0
	p.closed = true
	return errs.ErrorOrNil()
}
