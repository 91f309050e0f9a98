package topology

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/device"
)

// Structured is a regular grid whose connectivity is computed from the
// point dimensions. A grid with one point layer in z is two-dimensional and
// made of quads; otherwise it is made of hexahedra.
type Structured struct {
	dims [3]int
}

var _ CellSet = (*Structured)(nil)

// NewStructured2D creates an nx by ny point grid.
func NewStructured2D(nx, ny int) (*Structured, error) {
	return NewStructured3D(nx, ny, 1)
}

// NewStructured3D creates an nx by ny by nz point grid.
func NewStructured3D(nx, ny, nz int) (*Structured, error) {
	if nx < 2 || ny < 2 || nz < 1 {
		return nil, fmt.Errorf("%w: point dimensions %dx%dx%d", ErrInvalidCellSet, nx, ny, nz)
	}
	return &Structured{dims: [3]int{nx, ny, nz}}, nil
}

// PointDims returns the point dimensions.
func (s *Structured) PointDims() [3]int { return s.dims }

// CellDims returns the cell dimensions. The z extent of a 2D grid is 1.
func (s *Structured) CellDims() [3]int {
	return [3]int{s.dims[0] - 1, s.dims[1] - 1, max(s.dims[2]-1, 1)}
}

func (s *Structured) is3D() bool { return s.dims[2] > 1 }

// NumCells returns the number of cells.
func (s *Structured) NumCells() int {
	c := s.CellDims()
	return c[0] * c[1] * c[2]
}

// NumPoints returns the number of points.
func (s *Structured) NumPoints() int {
	return s.dims[0] * s.dims[1] * s.dims[2]
}

// PrepareCells returns implicit cell-to-point incidence. Nothing is
// transferred.
func (s *Structured) PrepareCells(device.Adapter) (Incidence, error) {
	return structuredCells{s}, nil
}

// PreparePoints returns implicit point-to-cell incidence.
func (s *Structured) PreparePoints(device.Adapter) (Incidence, error) {
	return structuredPoints{s}, nil
}

func (s *Structured) pointID(i, j, k int) int {
	return i + s.dims[0]*(j+s.dims[1]*k)
}

type structuredCells struct{ s *Structured }

func (c structuredCells) Len() int { return c.s.NumCells() }

func (c structuredCells) Shape(int) Shape {
	if c.s.is3D() {
		return ShapeHexahedron
	}
	return ShapeQuad
}

func (c structuredCells) Count(int) int {
	if c.s.is3D() {
		return 8
	}
	return 4
}

// Index returns the k-th point of cell id in VTK winding order.
func (c structuredCells) Index(id, k int) int {
	cd := c.s.CellDims()
	i := id % cd[0]
	j := (id / cd[0]) % cd[1]
	l := id / (cd[0] * cd[1])
	corner := [8][3]int{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}[k]
	return c.s.pointID(i+corner[0], j+corner[1], l+corner[2])
}

type structuredPoints struct{ s *Structured }

func (p structuredPoints) Len() int { return p.s.NumPoints() }
func (p structuredPoints) Shape(int) Shape { return ShapeVertex }

func (p structuredPoints) Count(id int) int {
	var buf [8]int
	return len(p.cells(id, buf[:0]))
}

func (p structuredPoints) Index(id, k int) int {
	var buf [8]int
	return p.cells(id, buf[:0])[k]
}

// cells appends the ids of the cells using point id, ascending.
func (p structuredPoints) cells(id int, out []int) []int {
	d := p.s.dims
	cd := p.s.CellDims()
	i := id % d[0]
	j := (id / d[0]) % d[1]
	k := id / (d[0] * d[1])
	kLo, kHi := k-1, k
	if !p.s.is3D() {
		kLo, kHi = 0, 0
	}
	for ck := kLo; ck <= kHi; ck++ {
		for cj := j - 1; cj <= j; cj++ {
			for ci := i - 1; ci <= i; ci++ {
				if ci < 0 || cj < 0 || ck < 0 || ci >= cd[0] || cj >= cd[1] || ck >= cd[2] {
					continue
				}
				out = append(out, ci+cd[0]*(cj+cd[1]*ck))
			}
		}
	}
	return out
}
