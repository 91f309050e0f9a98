package library

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/topology"
	"github.com/Viskores/viskores-sub000/internal/worklet"
)

// MaxSampleSize bounds the input domain of generated samples.
const MaxSampleSize = 1 << 24

// ErrUnknownSample is returned for a sample name that is not registered.
var ErrUnknownSample = errors.New("unknown sample")

// Sample is a worklet bound to generated inputs, ready to dispatch.
type Sample struct {
	Name    string
	Worklet *worklet.Worklet
	Output  array.Any
}

var samples = map[string]func(n int) (*Sample, error){
	"saxpy": func(n int) (*Sample, error) {
		out := array.Make[float64](0)
		w := Saxpy(2, array.Counting(0.0, 1.0, n), array.Constant(1.0, n), out)
		return &Sample{Worklet: w, Output: out}, nil
	},
	"magnitude": func(n int) (*Sample, error) {
		v := array.FromFunc(n, func(i int) [3]float64 {
			f := float64(i)
			return [3]float64{f, 2 * f, 2 * f}
		})
		out := array.Make[float64](0)
		return &Sample{Worklet: Magnitude(v, out), Output: out}, nil
	},
	"histogram": func(n int) (*Sample, error) {
		values := array.FromFunc(n, func(i int) float64 { return math.Mod(float64(i)*0.618034, 1) })
		bins := array.FromSlice(make([]int64, 10))
		return &Sample{Worklet: Histogram(values, 0, 1, bins), Output: bins}, nil
	},
	"point-average": func(n int) (*Sample, error) {
		grid, err := topology.NewStructured2D(max(n, 2), 2)
		if err != nil {
			return nil, err
		}
		points := array.Counting(0.0, 1.0, grid.NumPoints())
		out := array.Make[float64](0)
		return &Sample{Worklet: PointAverage(grid, points, out), Output: out}, nil
	},
	"cell-count": func(n int) (*Sample, error) {
		grid, err := topology.NewStructured2D(max(n, 2), 2)
		if err != nil {
			return nil, err
		}
		out := array.Make[int](0)
		return &Sample{Worklet: CellCount(grid, out), Output: out}, nil
	},
	"expand": func(n int) (*Sample, error) {
		counts := array.FromFunc(n, func(i int) int { return i % 3 })
		out := array.Make[int](0)
		return &Sample{Worklet: Expand(counts, array.Index(n), out), Output: out}, nil
	},
}

// SampleNames returns the registered sample names in order.
func SampleNames() []string {
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewSample builds the named sample over an input domain of n elements.
func NewSample(name string, n int) (*Sample, error) {
	build, ok := samples[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSample, name)
	}
	if n < 1 || n > MaxSampleSize {
		return nil, fmt.Errorf("sample size %d out of range [1,%d]", n, MaxSampleSize)
	}
	s, err := build(n)
	if err != nil {
		return nil, fmt.Errorf("build sample %s: %w", name, err)
	}
	s.Name = name
	return s, nil
}
