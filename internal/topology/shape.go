// Package topology provides the cell sets and key groupings that define
// topology-derived index spaces: one unit per cell, per point, or per group
// of equal keys.
package topology

import "fmt"

// Shape identifies a cell type. Values follow the VTK cell type ids.
type Shape uint8

const (
	ShapeEmpty      Shape = 0
	ShapeVertex     Shape = 1
	ShapeLine       Shape = 3
	ShapeTriangle   Shape = 5
	ShapePolygon    Shape = 7
	ShapeQuad       Shape = 9
	ShapeTetra      Shape = 10
	ShapeHexahedron Shape = 12
	ShapeWedge      Shape = 13
	ShapePyramid    Shape = 14
)

var shapeNames = map[Shape]string{
	ShapeEmpty:      "empty",
	ShapeVertex:     "vertex",
	ShapeLine:       "line",
	ShapeTriangle:   "triangle",
	ShapePolygon:    "polygon",
	ShapeQuad:       "quad",
	ShapeTetra:      "tetra",
	ShapeHexahedron: "hexahedron",
	ShapeWedge:      "wedge",
	ShapePyramid:    "pyramid",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// NumPoints returns the fixed point count of s, or -1 when the count varies
// (polygon) or s is unknown.
func (s Shape) NumPoints() int {
	switch s {
	case ShapeEmpty:
		return 0
	case ShapeVertex:
		return 1
	case ShapeLine:
		return 2
	case ShapeTriangle:
		return 3
	case ShapeQuad, ShapeTetra:
		return 4
	case ShapePyramid:
		return 5
	case ShapeWedge:
		return 6
	case ShapeHexahedron:
		return 8
	default:
		return -1
	}
}

// Known reports whether s is one of the defined shapes.
func (s Shape) Known() bool {
	_, ok := shapeNames[s]
	return ok
}
