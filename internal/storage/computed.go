package storage

import "fmt"

// Computed generates elements on demand and owns no element memory. Implicit
// storage computes from its functor alone; derived storage computes from one
// or more source storages, and its size is a function of theirs.
type Computed[T any] struct {
	kind Kind
	size func() int
	get  func(i int) T
}

var _ Storage[int] = (*Computed[int])(nil)

func (c *Computed[T]) Kind() Kind { return c.kind }
func (c *Computed[T]) Len() int { return c.size() }
func (c *Computed[T]) Writable() bool { return false }
func (c *Computed[T]) ReleaseResources() {}

// Get computes element i.
func (c *Computed[T]) Get(i int) T {
	if i < 0 || i >= c.size() {
		panic(fmt.Sprintf("storage: index %d out of range [0,%d)", i, c.size()))
	}
	return c.get(i)
}

// Set always fails.
func (c *Computed[T]) Set(int, T) error {
	return fmt.Errorf("%w: %s storage", ErrReadOnly, c.kind)
}

// Allocate succeeds only when n already equals the computed size.
func (c *Computed[T]) Allocate(n int) error {
	if n == c.size() {
		return nil
	}
	return fmt.Errorf("%w: %s storage has size %d, requested %d", ErrResizeDerived, c.kind, c.size(), n)
}

// Implicit returns read-only storage of n elements computed by fn.
func Implicit[T any](n int, fn func(i int) T) *Computed[T] {
	return &Computed[T]{
		kind: KindImplicit,
		size: func() int { return n },
		get:  fn,
	}
}

// Counting returns start, start+step, start+2*step, ... for n elements.
func Counting[T Number](start, step T, n int) *Computed[T] {
	return Implicit(n, func(i int) T { return start + T(i)*step })
}

// Constant returns n copies of v.
func Constant[T any](v T, n int) *Computed[T] {
	return Implicit(n, func(int) T { return v })
}

// Index returns 0, 1, ..., n-1.
func Index(n int) *Computed[int] {
	return Counting(0, 1, n)
}

// Permutation returns values[indices[i]]. Its size is the size of indices.
func Permutation[T any](indices Storage[int], values Storage[T]) *Computed[T] {
	return &Computed[T]{
		kind: KindDerived,
		size: indices.Len,
		get:  func(i int) T { return values.Get(indices.Get(i)) },
	}
}

// Cast converts each element of src to To.
func Cast[From, To Number](src Storage[From]) *Computed[To] {
	return &Computed[To]{
		kind: KindDerived,
		size: src.Len,
		get:  func(i int) To { return To(src.Get(i)) },
	}
}

// Pair is the element type of zipped storage.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Zip pairs elements of a and b. Its size is the smaller of the two.
func Zip[A, B any](a Storage[A], b Storage[B]) *Computed[Pair[A, B]] {
	return &Computed[Pair[A, B]]{
		kind: KindDerived,
		size: func() int { return min(a.Len(), b.Len()) },
		get:  func(i int) Pair[A, B] { return Pair[A, B]{a.Get(i), b.Get(i)} },
	}
}

// View exposes n elements of src starting at offset, clamped to what src
// holds.
func View[T any](src Storage[T], offset, n int) *Computed[T] {
	offset = max(offset, 0)
	return &Computed[T]{
		kind: KindDerived,
		size: func() int { return max(min(n, src.Len()-offset), 0) },
		get:  func(i int) T { return src.Get(offset + i) },
	}
}

// Concatenate exposes a followed by b.
func Concatenate[T any](a, b Storage[T]) *Computed[T] {
	return &Computed[T]{
		kind: KindDerived,
		size: func() int { return a.Len() + b.Len() },
		get: func(i int) T {
			if n := a.Len(); i >= n {
				return b.Get(i - n)
			}
			return a.Get(i)
		},
	}
}

// Reverse exposes src back to front.
func Reverse[T any](src Storage[T]) *Computed[T] {
	return &Computed[T]{
		kind: KindDerived,
		size: src.Len,
		get:  func(i int) T { return src.Get(src.Len() - 1 - i) },
	}
}

// Transform applies fn to each element of src.
func Transform[S, T any](src Storage[S], fn func(S) T) *Computed[T] {
	return &Computed[T]{
		kind: KindDerived,
		size: src.Len,
		get:  func(i int) T { return fn(src.Get(i)) },
	}
}
