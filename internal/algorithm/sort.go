package algorithm

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// Sort orders h ascending in place.
func Sort[T cmp.Ordered](dev device.Adapter, h *array.Handle[T]) error {
	return SortWith(dev, h, Less[T])
}

// SortWith orders h in place by the strict ordering less. Elements that
// compare equal keep their relative order.
func SortWith[T any](dev device.Adapter, h *array.Handle[T], less func(a, b T) bool) error {
	p, err := h.PrepareForInPlace(dev)
	if err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	if err := sortSlice(dev, p.Slice(), compareFunc(less)); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	return nil
}

// SortByKey orders keys ascending and applies the same permutation to
// values. Equal keys keep their relative order.
func SortByKey[K cmp.Ordered, V any](dev device.Adapter, keys *array.Handle[K], values *array.Handle[V]) error {
	return SortByKeyWith(dev, keys, values, Less[K])
}

type keyValue[K, V any] struct {
	key K
	val V
}

// SortByKeyWith is SortByKey with a custom key ordering.
func SortByKeyWith[K, V any](dev device.Adapter, keys *array.Handle[K], values *array.Handle[V], less func(a, b K) bool) error {
	kp, err := keys.PrepareForInPlace(dev)
	if err != nil {
		return fmt.Errorf("sort by key: %w", err)
	}
	vp, err := values.PrepareForInPlace(dev)
	if err != nil {
		return fmt.Errorf("sort by key: %w", err)
	}
	n := kp.Len()
	if vp.Len() != n {
		return fmt.Errorf("sort by key: %w: %d keys, %d values", ErrInvalidRange, n, vp.Len())
	}

	ks, vs := kp.Slice(), vp.Slice()
	pairs := make([]keyValue[K, V], n)
	if err := forEach(dev, n, func(i int) { pairs[i] = keyValue[K, V]{ks[i], vs[i]} }); err != nil {
		return fmt.Errorf("sort by key: %w", err)
	}
	byKey := compareFunc(less)
	err = sortSlice(dev, pairs, func(a, b keyValue[K, V]) int { return byKey(a.key, b.key) })
	if err != nil {
		return fmt.Errorf("sort by key: %w", err)
	}
	if err := forEach(dev, n, func(i int) { ks[i], vs[i] = pairs[i].key, pairs[i].val }); err != nil {
		return fmt.Errorf("sort by key: %w", err)
	}
	return nil
}

// sortSlice sorts each tile, then merges neighbouring runs pairwise until a
// single run remains. Both steps are stable.
func sortSlice[E any](dev device.Adapter, data []E, compare func(a, b E) int) error {
	n := len(data)
	if n < 2 {
		return nil
	}
	tiles := device.TileCount(dev, n)
	err := dev.Schedule(tiles, func(t int) {
		lo, hi := device.TileBounds(dev, t, n)
		slices.SortStableFunc(data[lo:hi], compare)
	})
	if err != nil {
		return err
	}

	src, dst := data, make([]E, n)
	swapped := false
	for width := max(dev.Grain(), 1); width < n; width *= 2 {
		run := width
		pairs := (n + 2*run - 1) / (2 * run)
		err := dev.Schedule(pairs, func(p int) {
			lo := p * 2 * run
			mid := min(lo+run, n)
			hi := min(lo+2*run, n)
			mergeRuns(dst[lo:hi], src[lo:mid], src[mid:hi], compare)
		})
		if err != nil {
			return err
		}
		src, dst = dst, src
		swapped = !swapped
	}
	if swapped {
		return forEach(dev, n, func(i int) { data[i] = src[i] })
	}
	return nil
}

// mergeRuns merges sorted a and b into out, taking from a on ties.
func mergeRuns[E any](out, a, b []E, compare func(x, y E) int) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if compare(b[j], a[i]) < 0 {
			out[k] = b[j]
			j++
		} else {
			out[k] = a[i]
			i++
		}
		k++
	}
	k += copy(out[k:], a[i:])
	copy(out[k:], b[j:])
}

// forEach runs body for every index in [0, n), one tile per scheduled unit.
func forEach(dev device.Adapter, n int, body func(i int)) error {
	return dev.Schedule(device.TileCount(dev, n), func(t int) {
		lo, hi := device.TileBounds(dev, t, n)
		for i := lo; i < hi; i++ {
			body(i)
		}
	})
}
