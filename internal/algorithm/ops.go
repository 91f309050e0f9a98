package algorithm

import (
	"cmp"
	"errors"

	"github.com/Viskores/viskores-sub000/internal/storage"
)

// ErrInvalidRange is returned when a sub-range falls outside its array.
var ErrInvalidRange = errors.New("invalid range")

// Sum adds two values.
func Sum[T storage.Number](a, b T) T { return a + b }

// Minimum returns the smaller value.
func Minimum[T cmp.Ordered](a, b T) T { return min(a, b) }

// Maximum returns the larger value.
func Maximum[T cmp.Ordered](a, b T) T { return max(a, b) }

// Less is the default strict ordering.
func Less[T cmp.Ordered](a, b T) bool { return cmp.Less(a, b) }

// Equal is the default equality predicate.
func Equal[T comparable](a, b T) bool { return a == b }

// compareFunc converts a strict ordering into a three-way comparison.
func compareFunc[T any](less func(a, b T) bool) func(a, b T) int {
	return func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		default:
			return 0
		}
	}
}
