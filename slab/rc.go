package slab

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/pool"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

// Retain increments the count of a live rc object.
func (r *Registry) Retain(ref types.Ref) error {
	t, p, err := r.resolve(ref)
	if err != nil {
		return err
	}
	if t.Mode != types.ModeRC {
		return fmt.Errorf("%w: retain of %s object %s", ErrWrongMode, t.Mode, ref)
	}
	_, err = p.AddCount(ref, 1)
	return err
}

// Release decrements the count of an rc object and destroys it when the count
// reaches zero. Releasing an object that is already gone is ErrDoubleFree.
func (r *Registry) Release(ref types.Ref) error {
	t, p, err := r.resolve(ref)
	if err != nil {
		return err
	}
	if t.Mode != types.ModeRC {
		return fmt.Errorf("%w: release of %s object %s", ErrWrongMode, t.Mode, ref)
	}
	return r.decRC(p, ref)
}

// decRC decrements a resolved rc object and destroys it at zero.
func (r *Registry) decRC(p *pool.Pool, ref types.Ref) error {
	n, err := p.AddCount(ref, -1)
	if errors.Is(err, ErrStaleAccess) {
		return fmt.Errorf("%w: %s", ErrDoubleFree, ref)
	}
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return r.destroy(ref)
}

// destroy tears down ref and every rc object whose count drops to zero as a
// consequence. Members are visited in declaration order: rc members are
// released, defer_rc members get a queued -1, manual members are untouched.
// The cascade uses an explicit worklist so long chains do not grow the stack.
func (r *Registry) destroy(ref types.Ref) error {
	var errs *multierror.Error
	work := []types.Ref{ref}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		t, p, err := r.resolve(cur)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		o, err := p.View(cur)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := p.SetFlag(cur, format.FlagDying); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		var cascade []types.Ref
		for _, rs := range t.Refs {
			member := o.RefSlot(rs.Offset)
			next, err := r.dropMember(member)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("teardown %s.%s: %w", t.Name, rs.Path, err))
			}
			if !next.IsNil() {
				cascade = append(cascade, next)
			}
		}
		if err := p.Release(cur); err != nil {
			errs = multierror.Append(errs, err)
		}
		if t.Mode == types.ModeDeferRC {
			r.zct.Remove(cur)
		}
		// Reverse so the worklist pops members in declaration order.
		for i := len(cascade) - 1; i >= 0; i-- {
			work = append(work, cascade[i])
		}
	}
	return errs.ErrorOrNil()
}

// dropMember gives up the reference held in one member slot. It returns the
// member when its count reached zero and it must be destroyed next.
func (r *Registry) dropMember(member types.Ref) (types.Ref, error) {
	if member.IsNil() || member.IsDummy() {
		return types.Nil, nil
	}
	mt, mp, err := r.resolve(member)
	if err != nil {
		return types.Nil, err
	}
	switch mt.Mode {
	case types.ModeRC:
		n, err := mp.AddCount(member, -1)
		if errors.Is(err, ErrStaleAccess) {
			return types.Nil, fmt.Errorf("%w: %s", ErrDoubleFree, member)
		}
		if err != nil {
			return types.Nil, err
		}
		if n == 0 {
			return member, nil
		}
	case types.ModeDeferRC:
		return types.Nil, r.queue.Enqueue(member, -1)
	}
	return types.Nil, nil
}

// EnqueueDelta queues a +1 or -1 for a defer_rc object. The count changes at the next Flush.
func (r *Registry) EnqueueDelta(ref types.Ref, delta int32) error {
	t, _, err := r.resolve(ref)
	if err != nil {
		return err
	}
	if t.Mode != types.ModeDeferRC {
		return fmt.Errorf("%w: deferred delta for %s object %s", ErrWrongMode, t.Mode, ref)
	}
	return r.queue.Enqueue(ref, delta)
}

// Store assigns value to a reference field of holder with count bookkeeping:
// the new value is counted before the old one is given up, so storing a field's
// current value is safe. Manual targets are not counted. Nothing is counted
// unless holder resolves to a live object.
func (r *Registry) Store(holder types.Ref, field string, value types.Ref) error {
	ht, hp, err := r.resolve(holder)
	if err != nil {
		return err
	}
	o, err := hp.View(holder)
	if err != nil {
		return err
	}
	if !o.IsLive() {
		return fmt.Errorf("%w: store into %s", ErrStaleAccess, holder)
	}
	f, err := ht.Field(field)
	if err != nil {
		return err
	}
	if f.Kind != typegraph.FieldRef {
		return fmt.Errorf("%w: %s.%s is %s", ErrFieldKind, ht.Name, field, f.Kind)
	}
	if !value.IsNil() && value.Type() != f.Target.ID {
		return fmt.Errorf("%w: %s.%s wants %s, got type %d", ErrTypeMismatch, ht.Name, field, f.Target.Name, value.Type())
	}

	counted := !value.IsNil() && !value.IsDummy()
	if counted {
		switch f.Target.Mode {
		case types.ModeRC:
			if err := r.Retain(value); err != nil {
				return err
			}
		case types.ModeDeferRC:
			if !r.Alive(value) {
				return fmt.Errorf("%w: store of %s", ErrStaleAccess, value)
			}
			if err := r.queue.Enqueue(value, 1); err != nil {
				return err
			}
		}
	}

	old := o.RefSlot(f.Offset)
	o.PutRef(f.Offset, value)

	if old.IsNil() || old.IsDummy() {
		return nil
	}
	switch f.Target.Mode {
	case types.ModeRC:
		return r.Release(old)
	case types.ModeDeferRC:
		return r.queue.Enqueue(old, -1)
	}
	return nil
}

// Load reads a reference field of holder. The result is not counted.
func (r *Registry) Load(holder types.Ref, field string) (types.Ref, error) {
	o, err := r.Object(holder)
	if err != nil {
		return types.Nil, err
	}
	return o.RefAt(field)
}
