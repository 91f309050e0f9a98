package worklet

import (
	"fmt"
	"sync/atomic"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/storage"
)

// RangeArg defines a flat [0, n) domain and carries no data.
type RangeArg struct {
	n int
}

// Range returns a domain argument of n units.
func Range(n int) *RangeArg { return &RangeArg{n: n} }

func (r *RangeArg) Role() Role { return RoleIn }
func (r *RangeArg) Pattern() Pattern { return PatternRange }
func (r *RangeArg) DomainKind() DomainKind { return DomainRange }
func (r *RangeArg) DomainSize() (int, error) { return r.n, nil }
func (r *RangeArg) Prepare(*PrepareContext) error { return nil }

// In is a field read at the input index.
type In[T any] struct {
	h *array.Handle[T]
	p array.ReadPortal[T]
}

// FieldIn binds h as a per-input-element field.
func FieldIn[T any](h *array.Handle[T]) *In[T] { return &In[T]{h: h} }

func (a *In[T]) Role() Role { return RoleIn }
func (a *In[T]) Pattern() Pattern { return PatternFieldIn }
func (a *In[T]) DomainKind() DomainKind { return DomainRange }
func (a *In[T]) DomainSize() (int, error) { return a.h.Len(), nil }

// Handle returns the bound array.
func (a *In[T]) Handle() *array.Handle[T] { return a.h }

func (a *In[T]) Check(ctx *PrepareContext) error {
	if n := a.h.Len(); n < ctx.InputSize {
		return sizeError(PatternFieldIn, n, "input", ctx.InputSize)
	}
	return nil
}

func (a *In[T]) Prepare(ctx *PrepareContext) error {
	if err := a.Check(ctx); err != nil {
		return err
	}
	p, err := a.h.PrepareForInput(ctx.Device)
	if err != nil {
		return err
	}
	a.p = p
	return nil
}

// Get reads the element at the invocation's input index.
func (a *In[T]) Get(inv *Invocation) T { return a.p.Get(inv.InputIndex) }

// Out is a field written at the output index.
type Out[T any] struct {
	h       *array.Handle[T]
	p       array.WritePortal[T]
	pattern Pattern
}

// FieldOut binds h as a per-output-element field. It is sized to the output
// domain.
func FieldOut[T any](h *array.Handle[T]) *Out[T] {
	return &Out[T]{h: h, pattern: PatternFieldOut}
}

// ReducedValuesOut binds h as one value per key group. Use it with a KeysIn
// domain.
func ReducedValuesOut[T any](h *array.Handle[T]) *Out[T] {
	return &Out[T]{h: h, pattern: PatternReducedValues}
}

func (a *Out[T]) Role() Role { return RoleOut }
func (a *Out[T]) Pattern() Pattern { return a.pattern }

// Handle returns the bound array.
func (a *Out[T]) Handle() *array.Handle[T] { return a.h }

func (a *Out[T]) Check(*PrepareContext) error {
	if !a.h.Writable() {
		return fmt.Errorf("%s: %w", a.pattern, storage.ErrReadOnly)
	}
	return nil
}

// Prepare sizes the array to the output domain. Under a mask an array that
// already has that size is updated in place so skipped slots keep their values.
func (a *Out[T]) Prepare(ctx *PrepareContext) error {
	if err := a.Check(ctx); err != nil {
		return err
	}
	var (
		p   array.WritePortal[T]
		err error
	)
	if ctx.Masked && a.h.Len() == ctx.OutputSize {
		p, err = a.h.PrepareForInPlace(ctx.Device)
	} else {
		p, err = a.h.PrepareForOutput(ctx.Device, ctx.OutputSize)
	}
	if err != nil {
		return err
	}
	a.p = p
	return nil
}

// Set writes v at the invocation's output index.
func (a *Out[T]) Set(inv *Invocation, v T) { a.p.Set(inv.OutputIndex, v) }

// InOut is a field read and written at the output index.
type InOut[T any] struct {
	h *array.Handle[T]
	p array.WritePortal[T]
}

// FieldInOut binds h for in-place update over the output domain.
func FieldInOut[T any](h *array.Handle[T]) *InOut[T] { return &InOut[T]{h: h} }

func (a *InOut[T]) Role() Role { return RoleInOut }
func (a *InOut[T]) Pattern() Pattern { return PatternFieldInOut }
func (a *InOut[T]) DomainKind() DomainKind { return DomainRange }
func (a *InOut[T]) DomainSize() (int, error) { return a.h.Len(), nil }

// Handle returns the bound array.
func (a *InOut[T]) Handle() *array.Handle[T] { return a.h }

func (a *InOut[T]) Check(ctx *PrepareContext) error {
	if n := a.h.Len(); n != ctx.OutputSize {
		return sizeError(PatternFieldInOut, n, "output", ctx.OutputSize)
	}
	return nil
}

func (a *InOut[T]) Prepare(ctx *PrepareContext) error {
	if err := a.Check(ctx); err != nil {
		return err
	}
	p, err := a.h.PrepareForInPlace(ctx.Device)
	if err != nil {
		return err
	}
	a.p = p
	return nil
}

// Get reads the element at the invocation's output index.
func (a *InOut[T]) Get(inv *Invocation) T { return a.p.Get(inv.OutputIndex) }

// Set writes the element at the invocation's output index.
func (a *InOut[T]) Set(inv *Invocation, v T) { a.p.Set(inv.OutputIndex, v) }

// WholeIn gives every invocation random read access to an array.
type WholeIn[T any] struct {
	h *array.Handle[T]
	p array.ReadPortal[T]
}

// WholeArrayIn binds h for random-access reads.
func WholeArrayIn[T any](h *array.Handle[T]) *WholeIn[T] { return &WholeIn[T]{h: h} }

func (a *WholeIn[T]) Role() Role { return RoleIn }
func (a *WholeIn[T]) Pattern() Pattern { return PatternWholeArrayIn }

func (a *WholeIn[T]) Prepare(ctx *PrepareContext) error {
	p, err := a.h.PrepareForInput(ctx.Device)
	if err != nil {
		return err
	}
	a.p = p
	return nil
}

func (a *WholeIn[T]) Len() int { return a.p.Len() }
func (a *WholeIn[T]) Get(i int) T { return a.p.Get(i) }

// WholeInOut gives every invocation random read-write access to an array.
// Invocations writing the same index race.
type WholeInOut[T any] struct {
	h *array.Handle[T]
	p array.WritePortal[T]
}

// WholeArrayInOut binds h for random-access reads and writes.
func WholeArrayInOut[T any](h *array.Handle[T]) *WholeInOut[T] { return &WholeInOut[T]{h: h} }

func (a *WholeInOut[T]) Role() Role { return RoleInOut }
func (a *WholeInOut[T]) Pattern() Pattern { return PatternWholeArrayInOut }

func (a *WholeInOut[T]) Prepare(ctx *PrepareContext) error {
	p, err := a.h.PrepareForInPlace(ctx.Device)
	if err != nil {
		return err
	}
	a.p = p
	return nil
}

func (a *WholeInOut[T]) Len() int { return a.p.Len() }
func (a *WholeInOut[T]) Get(i int) T { return a.p.Get(i) }
func (a *WholeInOut[T]) Set(i int, v T) { a.p.Set(i, v) }

// Atomic gives every invocation atomic access to an int64 array.
type Atomic struct {
	h    *array.Handle[int64]
	data []int64
}

// AtomicArray binds h for atomic updates.
func AtomicArray(h *array.Handle[int64]) *Atomic { return &Atomic{h: h} }

func (a *Atomic) Role() Role { return RoleInOut }
func (a *Atomic) Pattern() Pattern { return PatternAtomicArray }

func (a *Atomic) Prepare(ctx *PrepareContext) error {
	p, err := a.h.PrepareForInPlace(ctx.Device)
	if err != nil {
		return err
	}
	a.data = p.Slice()
	return nil
}

// Len returns the array length.
func (a *Atomic) Len() int { return len(a.data) }

// Add atomically adds delta at index i and returns the new value.
func (a *Atomic) Add(i int, delta int64) int64 { return atomic.AddInt64(&a.data[i], delta) }

// Load atomically reads index i.
func (a *Atomic) Load(i int) int64 { return atomic.LoadInt64(&a.data[i]) }

// CompareAndSwap atomically replaces old with v at index i.
func (a *Atomic) CompareAndSwap(i int, old, v int64) bool {
	return atomic.CompareAndSwapInt64(&a.data[i], old, v)
}
