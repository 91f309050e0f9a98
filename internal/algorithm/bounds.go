package algorithm

import (
	"cmp"
	"fmt"
	"sort"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// LowerBounds writes, for each value, the first index in sorted whose
// element is not less than the value.
func LowerBounds[T cmp.Ordered](dev device.Adapter, sorted, values *array.Handle[T], out *array.Handle[int]) error {
	return LowerBoundsWith(dev, sorted, values, out, Less[T])
}

// LowerBoundsWith is LowerBounds with a custom ordering.
func LowerBoundsWith[T any](dev device.Adapter, sorted, values *array.Handle[T], out *array.Handle[int], less func(a, b T) bool) error {
	err := bounds(dev, sorted, values, out, func(s array.ReadPortal[T], v T) int {
		return sort.Search(s.Len(), func(i int) bool { return !less(s.Get(i), v) })
	})
	if err != nil {
		return fmt.Errorf("lower bounds: %w", err)
	}
	return nil
}

// UpperBounds writes, for each value, the first index in sorted whose
// element is greater than the value.
func UpperBounds[T cmp.Ordered](dev device.Adapter, sorted, values *array.Handle[T], out *array.Handle[int]) error {
	return UpperBoundsWith(dev, sorted, values, out, Less[T])
}

// UpperBoundsWith is UpperBounds with a custom ordering.
func UpperBoundsWith[T any](dev device.Adapter, sorted, values *array.Handle[T], out *array.Handle[int], less func(a, b T) bool) error {
	err := bounds(dev, sorted, values, out, func(s array.ReadPortal[T], v T) int {
		return sort.Search(s.Len(), func(i int) bool { return less(v, s.Get(i)) })
	})
	if err != nil {
		return fmt.Errorf("upper bounds: %w", err)
	}
	return nil
}

func bounds[T any](dev device.Adapter, sorted, values *array.Handle[T], out *array.Handle[int], search func(array.ReadPortal[T], T) int) error {
	s, err := sorted.PrepareForInput(dev)
	if err != nil {
		return err
	}
	v, err := values.PrepareForInput(dev)
	if err != nil {
		return err
	}
	dst, err := out.PrepareForOutput(dev, v.Len())
	if err != nil {
		return err
	}
	return forEach(dev, v.Len(), func(i int) { dst.Set(i, search(s, v.Get(i))) })
}
