package topology

import (
	"errors"

	"github.com/Viskores/viskores-sub000/internal/device"
)

var (
	// ErrInvalidCellSet is returned for inconsistent connectivity.
	ErrInvalidCellSet = errors.New("invalid cell set")

	// ErrMismatch is returned when keys and values have different sizes.
	ErrMismatch = errors.New("size mismatch")
)

// Incidence is the device-side view of which elements are incident to each
// visited element: the points of each cell, or the cells of each point.
type Incidence interface {
	// Len is the number of visited elements.
	Len() int
	// Shape of visited element i.
	Shape(i int) Shape
	// Count of elements incident to i.
	Count(i int) int
	// Index of the k-th element incident to i.
	Index(i, k int) int
}

// CellSet is a mesh topology that worklets can visit by cell or by point.
type CellSet interface {
	NumCells() int
	NumPoints() int

	// PrepareCells returns the cell-to-point incidence on dev.
	PrepareCells(dev device.Adapter) (Incidence, error)

	// PreparePoints returns the point-to-cell incidence on dev.
	PreparePoints(dev device.Adapter) (Incidence, error)
}
