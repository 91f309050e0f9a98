package topology

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/algorithm"
	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// Reverse is point-to-cell connectivity: the cells using point p are
// Cells[Offsets[p]:Offsets[p+1]], in ascending order.
type Reverse struct {
	Offsets *array.Handle[int]
	Cells   *array.Handle[int]
}

// BuildReverse inverts the connectivity of e on dev. Each connectivity entry
// is tagged with its cell, the entries are sorted by point id, and the point
// offsets are the lower bounds of every point id in the sorted entries.
func BuildReverse(dev device.Adapter, e *Explicit) (*Reverse, error) {
	nConn := e.connectivity.Len()

	cells := array.Make[int](0)
	ends := array.View(e.offsets, 1, e.NumCells())
	if err := algorithm.UpperBounds(dev, ends, array.Index(nConn), cells); err != nil {
		return nil, fmt.Errorf("reverse connectivity: %w", err)
	}

	points := array.Make[int](0)
	if err := algorithm.Copy(dev, e.connectivity, points); err != nil {
		return nil, fmt.Errorf("reverse connectivity: %w", err)
	}
	if err := algorithm.SortByKey(dev, points, cells); err != nil {
		return nil, fmt.Errorf("reverse connectivity: %w", err)
	}

	offsets := array.Make[int](0)
	if err := algorithm.LowerBounds(dev, points, array.Index(e.numPoints+1), offsets); err != nil {
		return nil, fmt.Errorf("reverse connectivity: %w", err)
	}
	points.Release()
	ends.Release()
	return &Reverse{Offsets: offsets, Cells: cells}, nil
}
