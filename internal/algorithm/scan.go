package algorithm

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/storage"
)

// ScanInclusive writes the running sum of in to out and returns the total.
func ScanInclusive[T storage.Number](dev device.Adapter, in, out *array.Handle[T]) (T, error) {
	return ScanInclusiveWith(dev, in, out, Sum[T])
}

// ScanInclusiveWith is ScanInclusive for any associative op. The total of an
// empty input is the zero value.
func ScanInclusiveWith[T any](dev device.Adapter, in, out *array.Handle[T], op func(a, b T) T) (T, error) {
	var zero T
	src, err := in.PrepareForInput(dev)
	if err != nil {
		return zero, fmt.Errorf("scan inclusive: %w", err)
	}
	dst, err := out.PrepareForOutput(dev, src.Len())
	if err != nil {
		return zero, fmt.Errorf("scan inclusive: %w", err)
	}
	total, err := scanPortal(dev, src, dst.Slice(), op, nil)
	if err != nil {
		return zero, fmt.Errorf("scan inclusive: %w", err)
	}
	return total, nil
}

// ScanExclusive writes the sum of all preceding elements of in to out and
// returns the total.
func ScanExclusive[T storage.Number](dev device.Adapter, in, out *array.Handle[T]) (T, error) {
	return ScanExclusiveWith(dev, in, out, 0, Sum[T])
}

// ScanExclusiveWith is ScanExclusive for any associative op starting from
// init. The total is init combined with every element.
func ScanExclusiveWith[T any](dev device.Adapter, in, out *array.Handle[T], init T, op func(a, b T) T) (T, error) {
	src, err := in.PrepareForInput(dev)
	if err != nil {
		return init, fmt.Errorf("scan exclusive: %w", err)
	}
	dst, err := out.PrepareForOutput(dev, src.Len())
	if err != nil {
		return init, fmt.Errorf("scan exclusive: %w", err)
	}
	total, err := scanPortal(dev, src, dst.Slice(), op, &init)
	if err != nil {
		return init, fmt.Errorf("scan exclusive: %w", err)
	}
	return total, nil
}

// scanPortal scans in into out. A nil init makes the scan inclusive. out may
// alias the buffer behind in.
func scanPortal[T any](dev device.Adapter, in array.ReadPortal[T], out []T, op func(a, b T) T, init *T) (T, error) {
	var zero T
	n := in.Len()
	if n == 0 {
		if init != nil {
			return *init, nil
		}
		return zero, nil
	}

	tiles := device.TileCount(dev, n)
	totals := make([]T, tiles)
	err := dev.Schedule(tiles, func(t int) {
		lo, hi := device.TileBounds(dev, t, n)
		acc := in.Get(lo)
		for i := lo + 1; i < hi; i++ {
			acc = op(acc, in.Get(i))
		}
		totals[t] = acc
	})
	if err != nil {
		return zero, err
	}

	carries, total := carryTotals(totals, op, init)

	err = dev.Schedule(tiles, func(t int) {
		lo, hi := device.TileBounds(dev, t, n)
		if init != nil {
			acc := carries[t]
			for i := lo; i < hi; i++ {
				v := in.Get(i)
				out[i] = acc
				acc = op(acc, v)
			}
			return
		}
		var acc T
		if t == 0 {
			acc = in.Get(lo)
			out[lo] = acc
			lo++
		} else {
			acc = carries[t]
		}
		for i := lo; i < hi; i++ {
			acc = op(acc, in.Get(i))
			out[i] = acc
		}
	})
	if err != nil {
		return zero, err
	}
	return total, nil
}

// carryTotals returns the value carried into each tile and the grand total.
// Without init, carries[0] is unused.
func carryTotals[T any](totals []T, op func(a, b T) T, init *T) ([]T, T) {
	carries := make([]T, len(totals))
	var acc T
	have := init != nil
	if have {
		acc = *init
	}
	for t, v := range totals {
		carries[t] = acc
		if have {
			acc = op(acc, v)
		} else {
			acc = v
			have = true
		}
	}
	return carries, acc
}
