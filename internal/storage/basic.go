package storage

import "fmt"

// Basic owns a contiguous buffer. It is the only writable representation.
type Basic[T any] struct {
	data []T
}

var _ Storage[int] = (*Basic[int])(nil)

// NewBasic allocates a zeroed buffer of n elements.
func NewBasic[T any](n int) *Basic[T] {
	return &Basic[T]{data: make([]T, n)}
}

// FromSlice takes ownership of s. The caller must not use s afterwards.
func FromSlice[T any](s []T) *Basic[T] {
	return &Basic[T]{data: s}
}

func (b *Basic[T]) Kind() Kind { return KindBasic }
func (b *Basic[T]) Len() int { return len(b.data) }
func (b *Basic[T]) Cap() int { return cap(b.data) }
func (b *Basic[T]) Get(i int) T { return b.data[i] }
func (b *Basic[T]) Writable() bool { return true }
func (b *Basic[T]) Slice() []T { return b.data }

// Set writes v at index i.
func (b *Basic[T]) Set(i int, v T) error {
	if i < 0 || i >= len(b.data) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, i, len(b.data))
	}
	b.data[i] = v
	return nil
}

// Allocate resizes the buffer to n elements. Existing elements below n are
// kept and new elements are zero. Capacity never shrinks here; use Shrink.
func (b *Basic[T]) Allocate(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative size %d", ErrOutOfRange, n)
	}
	old := len(b.data)
	b.reserve(n)
	b.data = b.data[:n]
	if n > old {
		clear(b.data[old:])
	}
	return nil
}

// Append adds values to the end, growing capacity geometrically.
func (b *Basic[T]) Append(vs ...T) {
	n := len(b.data)
	b.reserve(n + len(vs))
	b.data = append(b.data[:n], vs...)
}

// Shrink reallocates the buffer so that capacity equals n, truncating if
// needed.
func (b *Basic[T]) Shrink(n int) {
	n = max(min(n, len(b.data)), 0)
	next := make([]T, n)
	copy(next, b.data)
	b.data = next
}

// ReleaseResources drops the buffer.
func (b *Basic[T]) ReleaseResources() {
	b.data = nil
}

// reserve makes room for n elements, growing by at least half the current
// capacity.
func (b *Basic[T]) reserve(n int) {
	if n <= cap(b.data) {
		return
	}
	grown := max(n, cap(b.data)+cap(b.data)/2)
	next := make([]T, len(b.data), grown)
	copy(next, b.data)
	b.data = next
}
