package topology

import (
	"fmt"
	"sync"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// Explicit is a cell set with per-cell shapes and an offsets/connectivity
// pair: the points of cell c are Connectivity[Offsets[c]:Offsets[c+1]].
type Explicit struct {
	numPoints    int
	shapes       *array.Handle[Shape]
	offsets      *array.Handle[int]
	connectivity *array.Handle[int]

	mu      sync.Mutex
	reverse *Reverse
}

var _ CellSet = (*Explicit)(nil)

// NewExplicit validates and wraps the given arrays. It takes ownership of
// the slices.
func NewExplicit(numPoints int, shapes []Shape, offsets, connectivity []int) (*Explicit, error) {
	if len(offsets) != len(shapes)+1 {
		return nil, fmt.Errorf("%w: %d offsets for %d cells", ErrInvalidCellSet, len(offsets), len(shapes))
	}
	if offsets[0] != 0 || offsets[len(offsets)-1] != len(connectivity) {
		return nil, fmt.Errorf("%w: offsets must span [0,%d]", ErrInvalidCellSet, len(connectivity))
	}
	for c, s := range shapes {
		n := offsets[c+1] - offsets[c]
		if n < 0 {
			return nil, fmt.Errorf("%w: offsets decrease at cell %d", ErrInvalidCellSet, c)
		}
		if !s.Known() {
			return nil, fmt.Errorf("%w: cell %d has unknown %s", ErrInvalidCellSet, c, s)
		}
		if want := s.NumPoints(); want >= 0 && want != n {
			return nil, fmt.Errorf("%w: cell %d is a %s with %d points", ErrInvalidCellSet, c, s, n)
		}
	}
	for i, p := range connectivity {
		if p < 0 || p >= numPoints {
			return nil, fmt.Errorf("%w: connectivity[%d]=%d outside [0,%d)", ErrInvalidCellSet, i, p, numPoints)
		}
	}
	return &Explicit{
		numPoints:    numPoints,
		shapes:       array.FromSlice(shapes),
		offsets:      array.FromSlice(offsets),
		connectivity: array.FromSlice(connectivity),
	}, nil
}

// NumCells returns the number of cells.
func (e *Explicit) NumCells() int { return e.shapes.Len() }

// NumPoints returns the number of points.
func (e *Explicit) NumPoints() int { return e.numPoints }

// Shapes returns the per-cell shape array.
func (e *Explicit) Shapes() *array.Handle[Shape] { return e.shapes }

// Offsets returns the offsets array of length NumCells()+1.
func (e *Explicit) Offsets() *array.Handle[int] { return e.offsets }

// Connectivity returns the flat point id array.
func (e *Explicit) Connectivity() *array.Handle[int] { return e.connectivity }

// PrepareCells prepares the shape, offsets and connectivity arrays on dev.
func (e *Explicit) PrepareCells(dev device.Adapter) (Incidence, error) {
	shapes, err := e.shapes.PrepareForInput(dev)
	if err != nil {
		return nil, fmt.Errorf("prepare shapes: %w", err)
	}
	inc, err := prepareOffsets(dev, e.offsets, e.connectivity)
	if err != nil {
		return nil, err
	}
	inc.shape = shapes.Get
	return inc, nil
}

// PreparePoints builds the reverse connectivity on first use, then prepares
// it on dev.
func (e *Explicit) PreparePoints(dev device.Adapter) (Incidence, error) {
	e.mu.Lock()
	rev := e.reverse
	e.mu.Unlock()
	if rev == nil {
		var err error
		rev, err = BuildReverse(dev, e)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.reverse = rev
		e.mu.Unlock()
	}
	inc, err := prepareOffsets(dev, rev.Offsets, rev.Cells)
	if err != nil {
		return nil, err
	}
	inc.shape = func(int) Shape { return ShapeVertex }
	return inc, nil
}

// offsetIncidence is an Incidence over an offsets/connectivity pair.
type offsetIncidence struct {
	shape   func(int) Shape
	offsets array.ReadPortal[int]
	conn    array.ReadPortal[int]
}

func prepareOffsets(dev device.Adapter, offsets, conn *array.Handle[int]) (*offsetIncidence, error) {
	op, err := offsets.PrepareForInput(dev)
	if err != nil {
		return nil, fmt.Errorf("prepare offsets: %w", err)
	}
	cp, err := conn.PrepareForInput(dev)
	if err != nil {
		return nil, fmt.Errorf("prepare connectivity: %w", err)
	}
	return &offsetIncidence{offsets: op, conn: cp}, nil
}

func (o *offsetIncidence) Len() int { return o.offsets.Len() - 1 }
func (o *offsetIncidence) Shape(i int) Shape { return o.shape(i) }
func (o *offsetIncidence) Count(i int) int { return o.offsets.Get(i+1) - o.offsets.Get(i) }
func (o *offsetIncidence) Index(i, k int) int {
	return o.conn.Get(o.offsets.Get(i) + k)
}

// Builder accumulates cells for an explicit cell set.
type Builder struct {
	numPoints int
	shapes    []Shape
	offsets   []int
	conn      []int
}

// NewBuilder starts a cell set over numPoints points.
func NewBuilder(numPoints int) *Builder {
	return &Builder{numPoints: numPoints, offsets: []int{0}}
}

// AddCell appends a cell.
func (b *Builder) AddCell(shape Shape, points ...int) *Builder {
	b.shapes = append(b.shapes, shape)
	b.conn = append(b.conn, points...)
	b.offsets = append(b.offsets, len(b.conn))
	return b
}

// Build validates the accumulated cells.
func (b *Builder) Build() (*Explicit, error) {
	return NewExplicit(b.numPoints, b.shapes, b.offsets, b.conn)
}
