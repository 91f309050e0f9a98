package storage

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Cache materializes a computed sequence into a basic buffer the first time
// any element is read. Later reads come from the buffer and the source is no
// longer consulted.
type Cache[T any] struct {
	src  Storage[T]
	once sync.Once
	done atomic.Bool
	data []T
}

var _ Storage[int] = (*Cache[int])(nil)

// NewCache wraps src.
func NewCache[T any](src Storage[T]) *Cache[T] {
	return &Cache[T]{src: src}
}

func (c *Cache[T]) Kind() Kind { return KindDerived }
func (c *Cache[T]) Writable() bool { return false }

// Len reports the materialized size, computing the buffer if needed.
func (c *Cache[T]) Len() int {
	return len(c.materialize())
}

// Get reads element i of the materialized buffer.
func (c *Cache[T]) Get(i int) T {
	return c.materialize()[i]
}

// Set always fails.
func (c *Cache[T]) Set(int, T) error {
	return fmt.Errorf("%w: cache storage", ErrReadOnly)
}

// Allocate always fails unless n is the current size.
func (c *Cache[T]) Allocate(n int) error {
	if n == c.Len() {
		return nil
	}
	return fmt.Errorf("%w: cache storage", ErrResizeDerived)
}

// Materialized reports whether the buffer has been filled.
func (c *Cache[T]) Materialized() bool {
	return c.done.Load()
}

// Slice returns the materialized buffer.
func (c *Cache[T]) Slice() []T {
	return c.materialize()
}

// ReleaseResources drops the buffer. The next read rematerializes. It must
// not run concurrently with reads.
func (c *Cache[T]) ReleaseResources() {
	c.once = sync.Once{}
	c.done.Store(false)
	c.data = nil
}

func (c *Cache[T]) materialize() []T {
	c.once.Do(func() {
		data := make([]T, c.src.Len())
		for i := range data {
			data[i] = c.src.Get(i)
		}
		c.data = data
		c.done.Store(true)
	})
	return c.data
}
