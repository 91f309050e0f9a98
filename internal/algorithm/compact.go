package algorithm

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// CopyIf writes the elements of in for which keep holds to out, in order,
// and returns how many were kept.
func CopyIf[T any](dev device.Adapter, in, out *array.Handle[T], keep func(T) bool) (int, error) {
	src, err := in.PrepareForInput(dev)
	if err != nil {
		return 0, fmt.Errorf("copy if: %w", err)
	}
	n, err := compactInto(dev, src, out, func(i int) bool { return keep(src.Get(i)) })
	if err != nil {
		return 0, fmt.Errorf("copy if: %w", err)
	}
	return n, nil
}

// StreamCompact keeps the elements of in whose stencil entry is true.
func StreamCompact[T any](dev device.Adapter, in *array.Handle[T], stencil *array.Handle[bool], out *array.Handle[T]) (int, error) {
	return StreamCompactWith(dev, in, stencil, out, func(b bool) bool { return b })
}

// StreamCompactWith keeps the elements of in whose stencil entry satisfies
// keep.
func StreamCompactWith[T, S any](dev device.Adapter, in *array.Handle[T], stencil *array.Handle[S], out *array.Handle[T], keep func(S) bool) (int, error) {
	src, err := in.PrepareForInput(dev)
	if err != nil {
		return 0, fmt.Errorf("stream compact: %w", err)
	}
	st, err := stencil.PrepareForInput(dev)
	if err != nil {
		return 0, fmt.Errorf("stream compact: %w", err)
	}
	if st.Len() < src.Len() {
		return 0, fmt.Errorf("stream compact: %w: stencil has %d of %d elements", ErrInvalidRange, st.Len(), src.Len())
	}
	n, err := compactInto(dev, src, out, func(i int) bool { return keep(st.Get(i)) })
	if err != nil {
		return 0, fmt.Errorf("stream compact: %w", err)
	}
	return n, nil
}

// Unique removes consecutive duplicates from h in place and returns the new
// length.
func Unique[T comparable](dev device.Adapter, h *array.Handle[T]) (int, error) {
	return UniqueWith(dev, h, Equal[T])
}

// UniqueWith is Unique with a custom equality predicate. The first element
// of each run is kept.
func UniqueWith[T any](dev device.Adapter, h *array.Handle[T], equal func(a, b T) bool) (int, error) {
	src, err := h.PrepareForInput(dev)
	if err != nil {
		return 0, fmt.Errorf("unique: %w", err)
	}
	n, err := compactInto(dev, src, h, func(i int) bool {
		return i == 0 || !equal(src.Get(i-1), src.Get(i))
	})
	if err != nil {
		return 0, fmt.Errorf("unique: %w", err)
	}
	return n, nil
}

// compactInto gathers the elements of src selected by keep into out. out may
// be the handle src was prepared from.
func compactInto[T any](dev device.Adapter, src array.ReadPortal[T], out *array.Handle[T], keep func(i int) bool) (int, error) {
	idx, err := selectIndices(dev, src.Len(), keep)
	if err != nil {
		return 0, err
	}
	vals := make([]T, len(idx))
	if err := forEach(dev, len(idx), func(j int) { vals[j] = src.Get(idx[j]) }); err != nil {
		return 0, err
	}
	dst, err := out.PrepareForOutput(dev, len(vals))
	if err != nil {
		return 0, err
	}
	if err := forEach(dev, len(vals), func(j int) { dst.Set(j, vals[j]) }); err != nil {
		return 0, err
	}
	return len(vals), nil
}

// selectIndices returns, in ascending order, every i in [0, n) for which
// keep(i) holds. Each tile counts its survivors, a scan over the counts gives
// each tile its write offset, and the tiles then write in parallel.
func selectIndices(dev device.Adapter, n int, keep func(i int) bool) ([]int, error) {
	tiles := device.TileCount(dev, n)
	counts := make([]int, tiles)
	err := dev.Schedule(tiles, func(t int) {
		lo, hi := device.TileBounds(dev, t, n)
		c := 0
		for i := lo; i < hi; i++ {
			if keep(i) {
				c++
			}
		}
		counts[t] = c
	})
	if err != nil {
		return nil, err
	}

	zero := 0
	offsets, total := carryTotals(counts, Sum[int], &zero)
	out := make([]int, total)
	err = dev.Schedule(tiles, func(t int) {
		lo, hi := device.TileBounds(dev, t, n)
		k := offsets[t]
		for i := lo; i < hi; i++ {
			if keep(i) {
				out[k] = i
				k++
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
