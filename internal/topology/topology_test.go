package topology_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device/kernelgrid"
	"github.com/Viskores/viskores-sub000/internal/device/serial"
	"github.com/Viskores/viskores-sub000/internal/topology"
)

// twoTriangles is a unit square split along its diagonal, plus a line.
//
//	3---2
//	| / |
//	0---1
func twoTriangles(t *testing.T) *topology.Explicit {
	t.Helper()
	cs, err := topology.NewBuilder(4).
		AddCell(topology.ShapeTriangle, 0, 1, 2).
		AddCell(topology.ShapeTriangle, 0, 2, 3).
		AddCell(topology.ShapeLine, 1, 2).
		Build()
	require.NoError(t, err)
	return cs
}

func incident(inc topology.Incidence, i int) []int {
	out := make([]int, inc.Count(i))
	for k := range out {
		out[k] = inc.Index(i, k)
	}
	return out
}

func TestExplicitCells(t *testing.T) {
	cs := twoTriangles(t)
	assert.Equal(t, 3, cs.NumCells())
	assert.Equal(t, 4, cs.NumPoints())

	inc, err := cs.PrepareCells(serial.New(nil))
	require.NoError(t, err)
	assert.Equal(t, 3, inc.Len())
	assert.Equal(t, topology.ShapeTriangle, inc.Shape(1))
	assert.Equal(t, []int{0, 2, 3}, incident(inc, 1))
	assert.Equal(t, []int{1, 2}, incident(inc, 2))
}

func TestExplicitValidation(t *testing.T) {
	tests := []struct {
		name    string
		points  int
		shapes  []topology.Shape
		offsets []int
		conn    []int
	}{
		{"offset count", 3, []topology.Shape{topology.ShapeTriangle}, []int{0}, []int{0, 1, 2}},
		{"offset span", 3, []topology.Shape{topology.ShapeTriangle}, []int{0, 2}, []int{0, 1, 2}},
		{"shape size", 4, []topology.Shape{topology.ShapeQuad}, []int{0, 3}, []int{0, 1, 2}},
		{"point range", 2, []topology.Shape{topology.ShapeTriangle}, []int{0, 3}, []int{0, 1, 2}},
		{"unknown shape", 3, []topology.Shape{topology.Shape(99)}, []int{0, 3}, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := topology.NewExplicit(tt.points, tt.shapes, tt.offsets, tt.conn)
			assert.ErrorIs(t, err, topology.ErrInvalidCellSet)
		})
	}
}

func TestReverseConnectivity(t *testing.T) {
	cs := twoTriangles(t)
	dev := kernelgrid.New(kernelgrid.Config{ComputeUnits: 4}, nil)

	inc, err := cs.PreparePoints(dev)
	require.NoError(t, err)
	assert.Equal(t, 4, inc.Len())
	assert.Equal(t, []int{0, 1}, incident(inc, 0))
	assert.Equal(t, []int{0, 2}, incident(inc, 1))
	assert.Equal(t, []int{0, 1, 2}, incident(inc, 2))
	assert.Equal(t, []int{1}, incident(inc, 3))

	rev, err := topology.BuildReverse(dev, cs)
	require.NoError(t, err)
	offsets, _ := rev.Offsets.ToSlice()
	assert.Equal(t, []int{0, 2, 4, 7, 8}, offsets)
}

func TestStructured(t *testing.T) {
	grid, err := topology.NewStructured2D(3, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, grid.NumCells())
	assert.Equal(t, 9, grid.NumPoints())

	cells, _ := grid.PrepareCells(nil)
	assert.Equal(t, topology.ShapeQuad, cells.Shape(0))
	assert.Equal(t, []int{4, 5, 8, 7}, incident(cells, 3))

	points, _ := grid.PreparePoints(nil)
	assert.Equal(t, []int{0, 1, 2, 3}, incident(points, 4))
	assert.Equal(t, []int{0}, incident(points, 0))
	assert.Equal(t, []int{1, 3}, incident(points, 5))

	cube, err := topology.NewStructured3D(2, 2, 2)
	require.NoError(t, err)
	hex, _ := cube.PrepareCells(nil)
	assert.Equal(t, topology.ShapeHexahedron, hex.Shape(0))
	assert.Equal(t, []int{0, 1, 3, 2, 4, 5, 7, 6}, incident(hex, 0))

	_, err = topology.NewStructured2D(1, 4)
	assert.ErrorIs(t, err, topology.ErrInvalidCellSet)
}

func TestStructuredMatchesExplicitReverse(t *testing.T) {
	grid, err := topology.NewStructured3D(4, 3, 3)
	require.NoError(t, err)
	dev := serial.New(nil)

	cells, _ := grid.PrepareCells(dev)
	b := topology.NewBuilder(grid.NumPoints())
	for c := range grid.NumCells() {
		b.AddCell(topology.ShapeHexahedron, incident(cells, c)...)
	}
	explicit, err := b.Build()
	require.NoError(t, err)

	want, _ := grid.PreparePoints(dev)
	got, err := explicit.PreparePoints(dev)
	require.NoError(t, err)
	for p := range grid.NumPoints() {
		require.Equal(t, incident(want, p), incident(got, p), "point %d", p)
	}
}

func TestKeys(t *testing.T) {
	dev := serial.New(nil)
	keys, err := topology.BuildKeys(dev, array.FromSlice([]string{"b", "a", "c", "a", "b", "a"}))
	require.NoError(t, err)
	assert.Equal(t, 3, keys.NumGroups())
	assert.Equal(t, 6, keys.Len())

	p, err := keys.Prepare(dev)
	require.NoError(t, err)
	assert.Equal(t, "a", p.Key(0))
	assert.Equal(t, 3, p.Count(0))
	assert.Equal(t, []int{1, 3, 5}, []int{p.Index(0, 0), p.Index(0, 1), p.Index(0, 2)})
	assert.Equal(t, []int{0, 4}, []int{p.Index(1, 0), p.Index(1, 1)})
	assert.Equal(t, "c", p.Key(2))
	assert.Equal(t, 2, p.Index(2, 0))
}
