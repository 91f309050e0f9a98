// Package library holds ready-made worklets used by the command line tool,
// the HTTP sample endpoint, and the tests.
package library

import (
	"cmp"
	"math"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/storage"
	"github.com/Viskores/viskores-sub000/internal/topology"
	"github.com/Viskores/viskores-sub000/internal/worklet"
)

// Saxpy computes out[i] = a*x[i] + y[i].
func Saxpy(a float64, x, y, out *array.Handle[float64]) *worklet.Worklet {
	xs := worklet.FieldIn(x)
	ys := worklet.FieldIn(y)
	o := worklet.FieldOut(out)
	return worklet.New("saxpy", func(inv *worklet.Invocation) {
		o.Set(inv, a*xs.Get(inv)+ys.Get(inv))
	}, xs, ys, o)
}

// Magnitude computes the Euclidean length of each vector.
func Magnitude(v *array.Handle[[3]float64], out *array.Handle[float64]) *worklet.Worklet {
	vs := worklet.FieldIn(v)
	o := worklet.FieldOut(out)
	return worklet.New("magnitude", func(inv *worklet.Invocation) {
		p := vs.Get(inv)
		o.Set(inv, math.Sqrt(p[0]*p[0]+p[1]*p[1]+p[2]*p[2]))
	}, vs, o)
}

// PointAverage produces one value per cell: the mean of the cell's point
// values. Empty cells raise an error.
func PointAverage(cs topology.CellSet, points, out *array.Handle[float64]) *worklet.Worklet {
	visit := worklet.VisitCellsWithPoints(cs)
	field := worklet.FieldInIncident(visit, points)
	o := worklet.FieldOut(out)
	return worklet.New("point-average", func(inv *worklet.Invocation) {
		n := field.Count(inv)
		if n == 0 {
			inv.RaiseError("cell has no points")
			return
		}
		var sum float64
		for k := range n {
			sum += field.Get(inv, k)
		}
		o.Set(inv, sum/float64(n))
	}, visit, field, o)
}

// CellCount produces one value per point: the number of cells using it.
func CellCount(cs topology.CellSet, out *array.Handle[int]) *worklet.Worklet {
	visit := worklet.VisitPointsWithCells(cs)
	o := worklet.FieldOut(out)
	return worklet.New("cell-count", func(inv *worklet.Invocation) {
		o.Set(inv, visit.Count(inv))
	}, visit, o)
}

// Histogram counts values into len(bins) equal-width bins over [lo, hi).
// Values outside the range land in the first or last bin. bins is updated
// in place so counts accumulate across dispatches.
func Histogram(values *array.Handle[float64], lo, hi float64, bins *array.Handle[int64]) *worklet.Worklet {
	vs := worklet.FieldIn(values)
	b := worklet.AtomicArray(bins)
	return worklet.New("histogram", func(inv *worklet.Invocation) {
		v := vs.Get(inv)
		if math.IsNaN(v) {
			inv.RaiseError("histogram value is NaN")
			return
		}
		n := b.Len()
		i := int(float64(n) * (v - lo) / (hi - lo))
		b.Add(min(max(i, 0), n-1), 1)
	}, vs, b)
}

// GroupSum reduces the values of each key group to their sum.
func GroupSum[K cmp.Ordered, T storage.Number](keys *topology.Keys[K], values, out *array.Handle[T]) *worklet.Worklet {
	k := worklet.KeysIn(keys)
	vs := worklet.ValuesIn(k, values)
	o := worklet.ReducedValuesOut(out)
	return worklet.New("group-sum", func(inv *worklet.Invocation) {
		var sum T
		for j := range vs.Count(inv) {
			sum += vs.Get(inv, j)
		}
		o.Set(inv, sum)
	}, k, vs, o)
}

// Expand repeats values[i] counts[i] times, in input order.
func Expand[T any](counts *array.Handle[int], values, out *array.Handle[T]) *worklet.Worklet {
	vs := worklet.FieldIn(values)
	o := worklet.FieldOut(out)
	return worklet.New("expand", func(inv *worklet.Invocation) {
		o.Set(inv, vs.Get(inv))
	}, vs, o).WithScatter(worklet.ScatterCounting(counts))
}
