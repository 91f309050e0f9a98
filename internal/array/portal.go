package array

// ReadPortal is a read accessor for one side of a handle. It either wraps a
// buffer or computes elements on demand.
type ReadPortal[T any] struct {
	data []T
	get  func(int) T
	n    int
}

// SlicePortal returns a read portal over s.
func SlicePortal[T any](s []T) ReadPortal[T] {
	return ReadPortal[T]{data: s, n: len(s)}
}

// FuncPortal returns a read portal of n elements computed by get.
func FuncPortal[T any](n int, get func(int) T) ReadPortal[T] {
	return ReadPortal[T]{get: get, n: n}
}

// Len returns the number of elements.
func (p ReadPortal[T]) Len() int { return p.n }

// Get returns element i.
func (p ReadPortal[T]) Get(i int) T {
	if p.get != nil {
		return p.get(i)
	}
	return p.data[i]
}

// Slice returns the underlying buffer, or nil for a computed portal.
func (p ReadPortal[T]) Slice() []T { return p.data }

// WritePortal is a read-write accessor over a buffer.
type WritePortal[T any] struct {
	data []T
}

// Len returns the number of elements.
func (p WritePortal[T]) Len() int { return len(p.data) }

// Get returns element i.
func (p WritePortal[T]) Get(i int) T { return p.data[i] }

// Set writes element i.
func (p WritePortal[T]) Set(i int, v T) { p.data[i] = v }

// Slice returns the underlying buffer.
func (p WritePortal[T]) Slice() []T { return p.data }

// Reader returns a read portal over the same buffer.
func (p WritePortal[T]) Reader() ReadPortal[T] { return SlicePortal(p.data) }
