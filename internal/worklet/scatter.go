package worklet

import (
	"fmt"
	"math"

	"github.com/Viskores/viskores-sub000/internal/algorithm"
	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// Scatter decides how many outputs each input produces.
type Scatter interface {
	// Build computes the output domain on dev. active, when not nil, is the
	// mask over the input domain.
	Build(dev device.Adapter, inputSize int, active *array.Handle[bool]) (*ScatterMap, error)
}

// ScatterMap maps each output index to the input it came from and its visit
// number. Nil portals mean the identity map and visit 0.
type ScatterMap struct {
	OutputSize int

	outToIn *array.ReadPortal[int]
	visit   *array.ReadPortal[int]
}

// InputIndex returns the input index of output o.
func (m *ScatterMap) InputIndex(o int) int {
	if m.outToIn == nil {
		return o
	}
	return m.outToIn.Get(o)
}

// VisitIndex returns the visit number of output o.
func (m *ScatterMap) VisitIndex(o int) int {
	if m.visit == nil {
		return 0
	}
	return m.visit.Get(o)
}

// Identity reports whether every output maps to the same input index.
func (m *ScatterMap) Identity() bool { return m.outToIn == nil }

// ScatterUniform produces exactly one output per input.
type ScatterUniform struct{}

func (ScatterUniform) Build(_ device.Adapter, inputSize int, _ *array.Handle[bool]) (*ScatterMap, error) {
	return &ScatterMap{OutputSize: inputSize}, nil
}

// Counting produces counts[i] outputs for input i.
type Counting struct {
	counts *array.Handle[int]
}

// ScatterCounting returns a scatter driven by a per-input output count.
func ScatterCounting(counts *array.Handle[int]) *Counting {
	return &Counting{counts: counts}
}

// Build scans the counts into an offset table on dev, then finds the input
// of each output with an upper-bound search in that table. Masked inputs
// count as zero.
func (s *Counting) Build(dev device.Adapter, inputSize int, active *array.Handle[bool]) (*ScatterMap, error) {
	if n := s.counts.Len(); n != inputSize {
		return nil, fmt.Errorf("%w: %d counts for %d inputs", ErrSizeMismatch, n, inputSize)
	}
	lowest, err := algorithm.ReduceWith(dev, s.counts, 0, algorithm.Minimum[int])
	if err != nil {
		return nil, fmt.Errorf("check scatter counts: %w", err)
	}
	if lowest < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrScatterIndex, lowest)
	}

	counts := s.counts
	if active != nil {
		counts = array.Make[int](0)
		err := algorithm.Transform2(dev, s.counts, active, counts, func(c int, on bool) int {
			if on {
				return c
			}
			return 0
		})
		if err != nil {
			return nil, fmt.Errorf("mask scatter counts: %w", err)
		}
	}

	ends := array.Make[int](0)
	total, err := algorithm.ScanInclusive(dev, counts, ends)
	if err != nil {
		return nil, fmt.Errorf("scan scatter counts: %w", err)
	}

	outToIn := array.Make[int](0)
	if err := algorithm.UpperBounds(dev, ends, array.Index(total), outToIn); err != nil {
		return nil, fmt.Errorf("map scatter outputs: %w", err)
	}

	// visit[o] = o - start(input of o), where start = end - count.
	endP, err := ends.PrepareForInput(dev)
	if err != nil {
		return nil, err
	}
	countP, err := counts.PrepareForInput(dev)
	if err != nil {
		return nil, err
	}
	mapP, err := outToIn.PrepareForInput(dev)
	if err != nil {
		return nil, err
	}
	visit := array.Make[int](0)
	err = algorithm.Transform(dev, array.Index(total), visit, func(o int) int {
		in := mapP.Get(o)
		return o - (endP.Get(in) - countP.Get(in))
	})
	if err != nil {
		return nil, fmt.Errorf("number scatter visits: %w", err)
	}
	visitP, err := visit.PrepareForInput(dev)
	if err != nil {
		return nil, err
	}
	return &ScatterMap{OutputSize: total, outToIn: &mapP, visit: &visitP}, nil
}

// Permutation produces one output per entry of an index map, reading the
// input at that index.
type Permutation struct {
	indices *array.Handle[int]
}

// ScatterPermutation returns a scatter whose output o reads input
// indices[o].
func ScatterPermutation(indices *array.Handle[int]) *Permutation {
	return &Permutation{indices: indices}
}

// Build checks every index lies in the input domain.
func (s *Permutation) Build(dev device.Adapter, inputSize int, _ *array.Handle[bool]) (*ScatterMap, error) {
	n := s.indices.Len()
	if n > 0 {
		lo, err := algorithm.ReduceWith(dev, s.indices, math.MaxInt, algorithm.Minimum[int])
		if err != nil {
			return nil, fmt.Errorf("check scatter indices: %w", err)
		}
		hi, err := algorithm.ReduceWith(dev, s.indices, math.MinInt, algorithm.Maximum[int])
		if err != nil {
			return nil, fmt.Errorf("check scatter indices: %w", err)
		}
		if lo < 0 || hi >= inputSize {
			return nil, fmt.Errorf("%w: indices span [%d,%d], input domain is [0,%d)", ErrScatterIndex, lo, hi, inputSize)
		}
	}
	p, err := s.indices.PrepareForInput(dev)
	if err != nil {
		return nil, err
	}
	return &ScatterMap{OutputSize: n, outToIn: &p}, nil
}
