// Package storage holds the backing representations for array elements:
// basic storage owns a contiguous buffer, implicit storage computes element i
// on demand, and derived storage presents a view over one or more sources
// without owning their memory.
package storage

import (
	"errors"
	"fmt"
)

// Kind is the closed set of storage representations.
type Kind int

const (
	KindBasic Kind = iota
	KindImplicit
	KindDerived
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindImplicit:
		return "implicit"
	case KindDerived:
		return "derived"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrReadOnly is returned when writing to implicit or derived storage.
	ErrReadOnly = errors.New("storage is read-only")

	// ErrResizeDerived is returned when resizing storage whose size is a
	// function of its sources.
	ErrResizeDerived = errors.New("cannot resize implicit or derived storage")

	// ErrOutOfRange is returned for an index outside [0, Len()).
	ErrOutOfRange = errors.New("index out of range")
)

// Storage is the contract every representation implements. Get panics on an
// out-of-range index, like a slice.
type Storage[T any] interface {
	Kind() Kind
	Len() int
	Get(i int) T
	Set(i int, v T) error
	Allocate(n int) error
	Writable() bool
	ReleaseResources()
}

// Number is the set of element types accepted by the numeric constructors.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ToSlice copies the logical contents of s into a new slice.
func ToSlice[T any](s Storage[T]) []T {
	out := make([]T, s.Len())
	if b, ok := s.(*Basic[T]); ok {
		copy(out, b.data)
		return out
	}
	for i := range out {
		out[i] = s.Get(i)
	}
	return out
}
