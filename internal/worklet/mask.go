package worklet

import (
	"fmt"
	"math"

	"github.com/Viskores/viskores-sub000/internal/algorithm"
	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// Mask selects which input indices run. Masked-out inputs produce no output
// and leave their output slots untouched.
type Mask interface {
	// Build returns the per-input active flags, or nil when every input is
	// active.
	Build(dev device.Adapter, inputSize int) (*array.Handle[bool], error)
}

// MaskNone runs every input.
type MaskNone struct{}

func (MaskNone) Build(device.Adapter, int) (*array.Handle[bool], error) { return nil, nil }

// Select runs the inputs whose stencil entry is true.
type Select struct {
	stencil *array.Handle[bool]
}

// MaskSelect returns a mask driven by a per-input stencil.
func MaskSelect(stencil *array.Handle[bool]) *Select {
	return &Select{stencil: stencil}
}

func (m *Select) Build(_ device.Adapter, inputSize int) (*array.Handle[bool], error) {
	if n := m.stencil.Len(); n != inputSize {
		return nil, fmt.Errorf("%w: stencil has %d entries for %d inputs", ErrSizeMismatch, n, inputSize)
	}
	return m.stencil, nil
}

// Indices runs only the listed inputs.
type Indices struct {
	indices *array.Handle[int]
}

// MaskIndices returns a mask that runs exactly the inputs in indices.
func MaskIndices(indices *array.Handle[int]) *Indices {
	return &Indices{indices: indices}
}

func (m *Indices) Build(dev device.Adapter, inputSize int) (*array.Handle[bool], error) {
	active := array.Make[bool](0)
	if err := algorithm.Fill(dev, active, false, inputSize); err != nil {
		return nil, err
	}
	if m.indices.Len() == 0 {
		return active, nil
	}
	lo, err := algorithm.ReduceWith(dev, m.indices, math.MaxInt, algorithm.Minimum[int])
	if err != nil {
		return nil, err
	}
	hi, err := algorithm.ReduceWith(dev, m.indices, math.MinInt, algorithm.Maximum[int])
	if err != nil {
		return nil, err
	}
	if lo < 0 || hi >= inputSize {
		return nil, fmt.Errorf("%w: mask indices span [%d,%d], input domain is [0,%d)", ErrScatterIndex, lo, hi, inputSize)
	}

	idx, err := m.indices.PrepareForInput(dev)
	if err != nil {
		return nil, err
	}
	flags, err := active.PrepareForInPlace(dev)
	if err != nil {
		return nil, err
	}
	err = dev.Schedule(device.TileCount(dev, idx.Len()), func(t int) {
		lo, hi := device.TileBounds(dev, t, idx.Len())
		for i := lo; i < hi; i++ {
			flags.Set(idx.Get(i), true)
		}
	})
	if err != nil {
		return nil, err
	}
	return active, nil
}
