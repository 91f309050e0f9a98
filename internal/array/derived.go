package array

import "github.com/Viskores/viskores-sub000/internal/storage"

// FromFunc returns a read-only handle of n elements computed by fn.
func FromFunc[T any](n int, fn func(i int) T) *Handle[T] {
	return newHandle[T](storage.Implicit(n, fn))
}

// Counting returns start, start+step, ... for n elements.
func Counting[T storage.Number](start, step T, n int) *Handle[T] {
	return newHandle[T](storage.Counting(start, step, n))
}

// Constant returns n copies of v.
func Constant[T any](v T, n int) *Handle[T] {
	return newHandle[T](storage.Constant(v, n))
}

// Index returns 0, 1, ..., n-1.
func Index(n int) *Handle[int] {
	return newHandle[int](storage.Index(n))
}

// Permute returns values[indices[i]], sized like indices.
func Permute[T any](indices *Handle[int], values *Handle[T]) *Handle[T] {
	return newHandle[T](storage.Permutation(indices.storage, values.storage), indices, values)
}

// Cast converts every element of src.
func Cast[From, To storage.Number](src *Handle[From]) *Handle[To] {
	return newHandle[To](storage.Cast[From, To](src.storage), src)
}

// Zip pairs the elements of a and b.
func Zip[A, B any](a *Handle[A], b *Handle[B]) *Handle[storage.Pair[A, B]] {
	return newHandle[storage.Pair[A, B]](storage.Zip(a.storage, b.storage), a, b)
}

// View exposes n elements of src starting at offset.
func View[T any](src *Handle[T], offset, n int) *Handle[T] {
	return newHandle[T](storage.View(src.storage, offset, n), src)
}

// Concatenate exposes a followed by b.
func Concatenate[T any](a, b *Handle[T]) *Handle[T] {
	return newHandle[T](storage.Concatenate(a.storage, b.storage), a, b)
}

// Reverse exposes src back to front.
func Reverse[T any](src *Handle[T]) *Handle[T] {
	return newHandle[T](storage.Reverse(src.storage), src)
}

// Transform applies fn lazily to each element of src.
func Transform[S, T any](src *Handle[S], fn func(S) T) *Handle[T] {
	return newHandle[T](storage.Transform(src.storage, fn), src)
}

// Cached wraps src in a cache that is filled on first read. Later writes to
// the sources of src are not observed.
func Cached[T any](src *Handle[T]) *Handle[T] {
	return newHandle[T](storage.NewCache(src.storage), src)
}

// Materialize copies the contents of src into a new basic handle.
func Materialize[T any](src *Handle[T]) (*Handle[T], error) {
	vals, err := src.ToSlice()
	if err != nil {
		return nil, err
	}
	return FromSlice(vals), nil
}
