package topology

import (
	"cmp"
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/algorithm"
	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// Keys groups the indices of an array by equal key. Visiting keys runs one
// invocation per unique key.
type Keys[K cmp.Ordered] struct {
	n      int
	unique *array.Handle[K]
	sorted *array.Handle[int]
	starts *array.Handle[int]
	counts *array.Handle[int]
}

// BuildKeys sorts a copy of keys on dev and records, for each unique key,
// where its group starts in the sorted order and how many indices it has.
func BuildKeys[K cmp.Ordered](dev device.Adapter, keys *array.Handle[K]) (*Keys[K], error) {
	sortedKeys := array.Make[K](0)
	if err := algorithm.Copy(dev, keys, sortedKeys); err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}
	n := sortedKeys.Len()
	sorted := array.Make[int](0)
	if err := algorithm.Copy(dev, array.Index(n), sorted); err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}
	if err := algorithm.SortByKey(dev, sortedKeys, sorted); err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}

	unique := array.Make[K](0)
	if err := algorithm.Copy(dev, sortedKeys, unique); err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}
	if _, err := algorithm.Unique(dev, unique); err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}

	starts := array.Make[int](0)
	if err := algorithm.LowerBounds(dev, sortedKeys, unique, starts); err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}
	ends := array.Make[int](0)
	if err := algorithm.UpperBounds(dev, sortedKeys, unique, ends); err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}
	counts := array.Make[int](0)
	if err := algorithm.Transform2(dev, ends, starts, counts, func(e, s int) int { return e - s }); err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}
	sortedKeys.Release()
	ends.Release()

	return &Keys[K]{n: n, unique: unique, sorted: sorted, starts: starts, counts: counts}, nil
}

// Len returns the number of keyed values.
func (k *Keys[K]) Len() int { return k.n }

// NumGroups returns the number of unique keys.
func (k *Keys[K]) NumGroups() int { return k.unique.Len() }

// Unique returns the sorted unique keys.
func (k *Keys[K]) Unique() *array.Handle[K] { return k.unique }

// Counts returns the size of each group.
func (k *Keys[K]) Counts() *array.Handle[int] { return k.counts }

// SortedIndices returns the original value indices ordered by key.
func (k *Keys[K]) SortedIndices() *array.Handle[int] { return k.sorted }

// Prepare returns the device-side view of the groups.
func (k *Keys[K]) Prepare(dev device.Adapter) (KeysPortal[K], error) {
	var p KeysPortal[K]
	var err error
	if p.unique, err = k.unique.PrepareForInput(dev); err != nil {
		return KeysPortal[K]{}, fmt.Errorf("prepare keys: %w", err)
	}
	if p.sorted, err = k.sorted.PrepareForInput(dev); err != nil {
		return KeysPortal[K]{}, fmt.Errorf("prepare keys: %w", err)
	}
	if p.starts, err = k.starts.PrepareForInput(dev); err != nil {
		return KeysPortal[K]{}, fmt.Errorf("prepare keys: %w", err)
	}
	if p.counts, err = k.counts.PrepareForInput(dev); err != nil {
		return KeysPortal[K]{}, fmt.Errorf("prepare keys: %w", err)
	}
	return p, nil
}

// KeysPortal reads key groups on a device.
type KeysPortal[K any] struct {
	unique array.ReadPortal[K]
	sorted array.ReadPortal[int]
	starts array.ReadPortal[int]
	counts array.ReadPortal[int]
}

// NumGroups returns the number of groups.
func (p KeysPortal[K]) NumGroups() int { return p.unique.Len() }

// Key returns the key of group g.
func (p KeysPortal[K]) Key(g int) K { return p.unique.Get(g) }

// Count returns the size of group g.
func (p KeysPortal[K]) Count(g int) int { return p.counts.Get(g) }

// Index returns the original index of the j-th value in group g.
func (p KeysPortal[K]) Index(g, j int) int {
	return p.sorted.Get(p.starts.Get(g) + j)
}
