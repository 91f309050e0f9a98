package algorithm

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// segment is one element of a segmented scan: head marks the first element
// of a run of equal keys.
type segment[T any] struct {
	head bool
	val  T
}

// segmented lifts op to segments. The result restarts at every head, which
// keeps the lifted operator associative.
func segmented[T any](op func(a, b T) T) func(a, b segment[T]) segment[T] {
	return func(a, b segment[T]) segment[T] {
		if b.head {
			return b
		}
		return segment[T]{head: a.head, val: op(a.val, b.val)}
	}
}

// ScanInclusiveByKey scans values with op, restarting at each change of key.
func ScanInclusiveByKey[K comparable, T any](dev device.Adapter, keys *array.Handle[K], values, out *array.Handle[T], op func(a, b T) T) error {
	err := scanByKey(dev, keys, values, out, func(kp array.ReadPortal[K], vp array.ReadPortal[T], i int) segment[T] {
		return segment[T]{head: isHead(kp, i), val: vp.Get(i)}
	}, op)
	if err != nil {
		return fmt.Errorf("scan inclusive by key: %w", err)
	}
	return nil
}

// ScanExclusiveByKey writes init combined with the preceding values of the
// same key run.
func ScanExclusiveByKey[K comparable, T any](dev device.Adapter, keys *array.Handle[K], values, out *array.Handle[T], init T, op func(a, b T) T) error {
	// An exclusive segmented scan is the inclusive scan of the values shifted
	// right by one within each run, with init at every head.
	err := scanByKey(dev, keys, values, out, func(kp array.ReadPortal[K], vp array.ReadPortal[T], i int) segment[T] {
		if isHead(kp, i) {
			return segment[T]{head: true, val: init}
		}
		return segment[T]{val: vp.Get(i - 1)}
	}, op)
	if err != nil {
		return fmt.Errorf("scan exclusive by key: %w", err)
	}
	return nil
}

func scanByKey[K comparable, T any](
	dev device.Adapter,
	keys *array.Handle[K],
	values, out *array.Handle[T],
	lift func(array.ReadPortal[K], array.ReadPortal[T], int) segment[T],
	op func(a, b T) T,
) error {
	kp, err := keys.PrepareForInput(dev)
	if err != nil {
		return err
	}
	vp, err := values.PrepareForInput(dev)
	if err != nil {
		return err
	}
	n := vp.Len()
	if kp.Len() != n {
		return fmt.Errorf("%w: %d keys, %d values", ErrInvalidRange, kp.Len(), n)
	}

	segs := make([]segment[T], n)
	if err := forEach(dev, n, func(i int) { segs[i] = lift(kp, vp, i) }); err != nil {
		return err
	}
	if _, err := scanPortal(dev, array.SlicePortal(segs), segs, segmented(op), nil); err != nil {
		return err
	}
	dst, err := out.PrepareForOutput(dev, n)
	if err != nil {
		return err
	}
	return forEach(dev, n, func(i int) { dst.Set(i, segs[i].val) })
}

// ReduceByKey folds each run of equal consecutive keys into one value. It
// writes the run keys to keysOut and the folded values to valuesOut, and
// returns the number of runs. Sort by key first to reduce over all equal
// keys.
func ReduceByKey[K comparable, T any](dev device.Adapter, keys *array.Handle[K], values *array.Handle[T], keysOut *array.Handle[K], valuesOut *array.Handle[T], op func(a, b T) T) (int, error) {
	kp, err := keys.PrepareForInput(dev)
	if err != nil {
		return 0, fmt.Errorf("reduce by key: %w", err)
	}
	vp, err := values.PrepareForInput(dev)
	if err != nil {
		return 0, fmt.Errorf("reduce by key: %w", err)
	}
	n := vp.Len()
	if kp.Len() != n {
		return 0, fmt.Errorf("reduce by key: %w: %d keys, %d values", ErrInvalidRange, kp.Len(), n)
	}

	segs := make([]segment[T], n)
	if err := forEach(dev, n, func(i int) { segs[i] = segment[T]{head: isHead(kp, i), val: vp.Get(i)} }); err != nil {
		return 0, fmt.Errorf("reduce by key: %w", err)
	}
	if _, err := scanPortal(dev, array.SlicePortal(segs), segs, segmented(op), nil); err != nil {
		return 0, fmt.Errorf("reduce by key: %w", err)
	}

	// The last element of each run holds its total.
	ends, err := selectIndices(dev, n, func(i int) bool { return i == n-1 || isHead(kp, i+1) })
	if err != nil {
		return 0, fmt.Errorf("reduce by key: %w", err)
	}
	ko, err := keysOut.PrepareForOutput(dev, len(ends))
	if err != nil {
		return 0, fmt.Errorf("reduce by key: %w", err)
	}
	vo, err := valuesOut.PrepareForOutput(dev, len(ends))
	if err != nil {
		return 0, fmt.Errorf("reduce by key: %w", err)
	}
	err = forEach(dev, len(ends), func(j int) {
		ko.Set(j, kp.Get(ends[j]))
		vo.Set(j, segs[ends[j]].val)
	})
	if err != nil {
		return 0, fmt.Errorf("reduce by key: %w", err)
	}
	return len(ends), nil
}

func isHead[K comparable](kp array.ReadPortal[K], i int) bool {
	return i == 0 || kp.Get(i) != kp.Get(i-1)
}
