package algorithm

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/storage"
)

// Reduce returns the sum of in.
func Reduce[T storage.Number](dev device.Adapter, in *array.Handle[T]) (T, error) {
	return ReduceWith(dev, in, 0, Sum[T])
}

// ReduceWith folds in with op starting from init.
func ReduceWith[T any](dev device.Adapter, in *array.Handle[T], init T, op func(a, b T) T) (T, error) {
	src, err := in.PrepareForInput(dev)
	if err != nil {
		return init, fmt.Errorf("reduce: %w", err)
	}
	total, err := reducePortal(dev, src, init, op)
	if err != nil {
		return init, fmt.Errorf("reduce: %w", err)
	}
	return total, nil
}

func reducePortal[T any](dev device.Adapter, in array.ReadPortal[T], init T, op func(a, b T) T) (T, error) {
	n := in.Len()
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
		return init, err
	}
	acc := init
	for _, v := range totals {
		acc = op(acc, v)
	}
	return acc, nil
}
