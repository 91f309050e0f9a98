package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/device/serial"
	"github.com/Viskores/viskores-sub000/internal/device/threadpool"
	"github.com/Viskores/viskores-sub000/internal/dispatch"
	"github.com/Viskores/viskores-sub000/internal/model"
	"github.com/Viskores/viskores-sub000/internal/storage"
	"github.com/Viskores/viskores-sub000/internal/tracker"
	"github.com/Viskores/viskores-sub000/internal/worklet"
)

func newDispatcher(t *testing.T, opts ...dispatch.Option) *dispatch.Dispatcher {
	t.Helper()
	tr := tracker.NewDefault(nil, tracker.Options{Threads: 4, Lanes: 4, GridUnits: 4})
	return dispatch.New(tr, opts...)
}

type memJournal struct {
	mu   sync.Mutex
	recs []*model.Dispatch
}

func (j *memJournal) RecordDispatch(_ context.Context, d *model.Dispatch) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs = append(j.recs, d)
	return nil
}

// lostGrid passes its probe but loses the device on launch.
type lostGrid struct{ device.Adapter }

func (lostGrid) ID() device.ID { return device.KernelGrid }

func (lostGrid) Schedule(int, func(int)) error {
	return fmt.Errorf("%w: context lost", device.ErrUnavailable)
}

func double(in *array.Handle[float64], out *array.Handle[float64]) *worklet.Worklet {
	x := worklet.FieldIn(in)
	y := worklet.FieldOut(out)
	return worklet.New("double", func(inv *worklet.Invocation) {
		y.Set(inv, 2*x.Get(inv))
	}, x, y)
}

func ramp(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i)
	}
	return s
}

func TestUniformOnEveryDevice(t *testing.T) {
	d := newDispatcher(t)
	for _, id := range device.Enumerated() {
		t.Run(id.String(), func(t *testing.T) {
			in := array.FromSlice(ramp(10000))
			out := array.Make[float64](0)

			res, err := d.Invoke(context.Background(), double(in, out), dispatch.WithDevice(id))
			require.NoError(t, err)
			assert.Equal(t, id, res.Device)
			assert.Equal(t, 10000, res.InputDomain)
			assert.Equal(t, 10000, res.OutputDomain)
			assert.Positive(t, res.Tiles)
			assert.True(t, out.ValidOn(id))

			got, err := out.ToSlice()
			require.NoError(t, err)
			for i, v := range got {
				if v != 2*float64(i) {
					t.Fatalf("out[%d] = %v", i, v)
				}
			}
		})
	}
}

func TestCountingScatter(t *testing.T) {
	d := newDispatcher(t)
	in := array.FromSlice([]int{10, 20, 30})
	counts := array.FromSlice([]int{0, 2, 1})
	vals := array.Make[int](0)
	inputs := array.Make[int](0)

	x := worklet.FieldIn(in)
	y := worklet.FieldOut(vals)
	src := worklet.FieldOut(inputs)
	w := worklet.New("expand", func(inv *worklet.Invocation) {
		y.Set(inv, x.Get(inv)*10+inv.VisitIndex)
		src.Set(inv, inv.InputIndex)
	}, x, y, src).WithScatter(worklet.ScatterCounting(counts))

	res, err := d.Invoke(context.Background(), w, dispatch.WithDevice(device.ThreadPool))
	require.NoError(t, err)
	assert.Equal(t, 3, res.OutputDomain)

	got, err := vals.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{200, 201, 300}, got)

	gotIn, err := inputs.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2}, gotIn)
}

func TestCountingScatterAllZero(t *testing.T) {
	d := newDispatcher(t)
	var calls atomic.Int64
	counts := array.FromSlice([]int{0, 0, 0, 0})
	out := array.Make[int](0)
	y := worklet.FieldOut(out)
	w := worklet.New("none", func(inv *worklet.Invocation) {
		calls.Add(1)
		y.Set(inv, 1)
	}, worklet.Range(4), y).WithScatter(worklet.ScatterCounting(counts))

	res, err := d.Invoke(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 0, res.OutputDomain)
	assert.Equal(t, 0, res.Tiles)
	assert.Equal(t, 0, out.Len())
	assert.Zero(t, calls.Load())
}

func TestCountingScatterSkipsMaskedInputs(t *testing.T) {
	d := newDispatcher(t)
	counts := array.FromSlice([]int{1, 2, 3})
	stencil := array.FromSlice([]bool{true, false, true})
	inputs := array.Make[int](0)
	visits := array.Make[int](0)

	a := worklet.FieldOut(inputs)
	b := worklet.FieldOut(visits)
	w := worklet.New("masked-expand", func(inv *worklet.Invocation) {
		a.Set(inv, inv.InputIndex)
		b.Set(inv, inv.VisitIndex)
	}, worklet.Range(3), a, b).
		WithScatter(worklet.ScatterCounting(counts)).
		WithMask(worklet.MaskSelect(stencil))

	res, err := d.Invoke(context.Background(), w, dispatch.WithDevice(device.Serial))
	require.NoError(t, err)
	assert.Equal(t, 4, res.OutputDomain)

	gotIn, err := inputs.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 2, 2}, gotIn)

	gotVisit, err := visits.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 2}, gotVisit)
}

func TestPermutationScatter(t *testing.T) {
	d := newDispatcher(t)
	in := array.FromSlice([]int{5, 6, 7, 8})
	out := array.Make[int](0)
	x := worklet.FieldIn(in)
	y := worklet.FieldOut(out)
	w := worklet.New("gather", func(inv *worklet.Invocation) {
		y.Set(inv, x.Get(inv))
	}, x, y).WithScatter(worklet.ScatterPermutation(array.FromSlice([]int{3, 3, 0, 1, 2})))

	res, err := d.Invoke(context.Background(), w, dispatch.WithDevice(device.Vector))
	require.NoError(t, err)
	assert.Equal(t, 5, res.OutputDomain)

	got, err := out.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{8, 8, 5, 6, 7}, got)
}

func TestPermutationOutOfRangeIsSetupError(t *testing.T) {
	d := newDispatcher(t)
	var calls atomic.Int64
	out := array.Make[int](0)
	y := worklet.FieldOut(out)
	w := worklet.New("gather", func(inv *worklet.Invocation) {
		calls.Add(1)
		y.Set(inv, 1)
	}, worklet.Range(4), y).WithScatter(worklet.ScatterPermutation(array.FromSlice([]int{0, 4})))

	_, err := d.Invoke(context.Background(), w)
	require.Error(t, err)

	var se *dispatch.SetupError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, worklet.ErrScatterIndex)
	assert.Equal(t, dispatch.ClassSetup, dispatch.Classify(err))
	assert.Zero(t, calls.Load())
}

func TestMaskLeavesInOutUntouched(t *testing.T) {
	d := newDispatcher(t)
	for _, id := range device.Enumerated() {
		t.Run(id.String(), func(t *testing.T) {
			field := array.FromSlice([]int{1, 2, 3, 4, 5, 6})
			stencil := array.FromSlice([]bool{true, false, true, false, false, true})
			f := worklet.FieldInOut(field)
			w := worklet.New("bump", func(inv *worklet.Invocation) {
				f.Set(inv, f.Get(inv)+100)
			}, f).WithMask(worklet.MaskSelect(stencil))

			_, err := d.Invoke(context.Background(), w, dispatch.WithDevice(id))
			require.NoError(t, err)

			got, err := field.ToSlice()
			require.NoError(t, err)
			assert.Equal(t, []int{101, 2, 103, 4, 5, 106}, got)
		})
	}
}

func TestMaskLeavesOutUntouched(t *testing.T) {
	d := newDispatcher(t)
	for _, id := range device.Enumerated() {
		t.Run(id.String(), func(t *testing.T) {
			field := array.FromSlice([]int{7, 8, 9})
			in := worklet.FieldIn(array.FromSlice([]int{1, 2, 3}))
			out := worklet.FieldOut(field)
			w := worklet.New("copy", func(inv *worklet.Invocation) {
				out.Set(inv, in.Get(inv))
			}, in, out).WithMask(worklet.MaskSelect(array.FromSlice([]bool{true, false, true})))

			_, err := d.Invoke(context.Background(), w, dispatch.WithDevice(id))
			require.NoError(t, err)

			got, err := field.ToSlice()
			require.NoError(t, err)
			assert.Equal(t, []int{1, 8, 3}, got)
		})
	}
}

func TestMaskResizesShortOut(t *testing.T) {
	d := newDispatcher(t)
	field := array.Make[int](0)
	in := worklet.FieldIn(array.FromSlice([]int{1, 2, 3}))
	out := worklet.FieldOut(field)
	w := worklet.New("copy", func(inv *worklet.Invocation) {
		out.Set(inv, in.Get(inv))
	}, in, out).WithMask(worklet.MaskSelect(array.FromSlice([]bool{true, false, true})))

	_, err := d.Invoke(context.Background(), w)
	require.NoError(t, err)

	got, err := field.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 3}, got)
}

func TestMaskIndices(t *testing.T) {
	d := newDispatcher(t)
	field := array.FromSlice(make([]int, 8))
	f := worklet.FieldInOut(field)
	w := worklet.New("mark", func(inv *worklet.Invocation) {
		f.Set(inv, 1)
	}, f).WithMask(worklet.MaskIndices(array.FromSlice([]int{7, 0, 3})))

	_, err := d.Invoke(context.Background(), w)
	require.NoError(t, err)

	got, err := field.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 1, 0, 0, 0, 1}, got)
}

func TestFallbackAfterDisable(t *testing.T) {
	d := newDispatcher(t)
	d.Tracker().Disable(device.KernelGrid, "test")

	in := array.FromSlice(ramp(5000))
	out := array.Make[float64](0)
	res, err := d.Invoke(context.Background(), double(in, out))
	require.NoError(t, err)
	assert.Equal(t, device.ThreadPool, res.Device)

	direct := array.Make[float64](0)
	_, err = d.Invoke(context.Background(), double(in, direct), dispatch.WithDevice(device.ThreadPool))
	require.NoError(t, err)

	got, err := out.ToSlice()
	require.NoError(t, err)
	want, err := direct.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFallbackOnLaunchFailure(t *testing.T) {
	tr := tracker.New(nil,
		lostGrid{serial.New(nil)},
		threadpool.New(2, nil),
		serial.New(nil),
	)
	j := &memJournal{}
	d := dispatch.New(tr, dispatch.WithJournal(j))

	in := array.FromSlice(ramp(100))
	out := array.Make[float64](0)
	res, err := d.Invoke(context.Background(), double(in, out))
	require.NoError(t, err)
	assert.Equal(t, device.ThreadPool, res.Device)
	assert.Equal(t, 1, res.Fallbacks)

	got, err := out.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, 198.0, got[99])

	require.Len(t, j.recs, 1)
	assert.Equal(t, "threadpool", j.recs[0].Device)
	assert.Equal(t, 1, j.recs[0].Fallbacks)
	assert.Equal(t, model.StatusCompleted, j.recs[0].Status)
}

func TestExplicitDeviceDoesNotFallBack(t *testing.T) {
	d := newDispatcher(t)
	d.Tracker().Disable(device.Vector, "test")

	in := array.FromSlice(ramp(10))
	out := array.Make[float64](0)
	_, err := d.Invoke(context.Background(), double(in, out), dispatch.WithDevice(device.Vector))
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrDisabled)
	assert.Equal(t, dispatch.ClassUnavailable, dispatch.Classify(err))
}

func TestNoDevice(t *testing.T) {
	tr := tracker.New(nil, serial.New(nil))
	tr.Disable(device.Serial, "test")
	d := dispatch.New(tr)

	_, err := d.Invoke(context.Background(), double(array.FromSlice(ramp(4)), array.Make[float64](0)))
	assert.ErrorIs(t, err, tracker.ErrNoDevice)
	assert.Equal(t, dispatch.ClassUnavailable, dispatch.Classify(err))
}

func TestRaiseErrorFirstWins(t *testing.T) {
	d := newDispatcher(t)
	const n = 1 << 20
	w := worklet.New("fail", func(inv *worklet.Invocation) {
		inv.RaiseError("boom")
	}, worklet.Range(n))

	_, err := d.Invoke(context.Background(), w, dispatch.WithDevice(device.ThreadPool))
	require.Error(t, err)

	var ee *dispatch.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "boom", ee.Message)
	assert.Equal(t, device.ThreadPool, ee.Device)
	assert.Equal(t, dispatch.ClassExecution, dispatch.Classify(err))

	// The device stays usable after a worklet error.
	assert.True(t, d.Tracker().IsEnabled(device.ThreadPool))
}

func TestRaiseErrorTruncated(t *testing.T) {
	d := newDispatcher(t, dispatch.WithErrorCapacity(4))
	w := worklet.New("fail", func(inv *worklet.Invocation) {
		if inv.WorkIndex == 2 {
			inv.RaiseError("overflowed")
		}
	}, worklet.Range(10))

	_, err := d.Invoke(context.Background(), w, dispatch.WithDevice(device.Serial))
	var ee *dispatch.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "over", ee.Message)
}

func TestFaultDisablesDevice(t *testing.T) {
	d := newDispatcher(t)
	events, unsub := d.Events().Subscribe()
	defer unsub()

	w := worklet.New("crash", func(inv *worklet.Invocation) {
		if inv.WorkIndex == 1234 {
			panic("bad index")
		}
	}, worklet.Range(5000))

	_, err := d.Invoke(context.Background(), w, dispatch.WithDevice(device.ThreadPool))
	require.Error(t, err)

	var fe *dispatch.DeviceFaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, device.ThreadPool, fe.Fault.Device)
	assert.Equal(t, "bad index", fe.Fault.Value)
	assert.Equal(t, dispatch.ClassFault, dispatch.Classify(err))
	assert.False(t, d.Tracker().IsEnabled(device.ThreadPool))

	var kinds []string
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	assert.Equal(t, []string{dispatch.EventStarted, dispatch.EventDeviceDisabled, dispatch.EventFailed}, kinds)

	// Best-available dispatches skip the faulted device.
	res, err := d.Invoke(context.Background(), worklet.New("noop", func(*worklet.Invocation) {}, worklet.Range(10)))
	require.NoError(t, err)
	assert.NotEqual(t, device.ThreadPool, res.Device)
}

func TestSizeMismatchIsSetupError(t *testing.T) {
	d := newDispatcher(t)
	short := worklet.FieldIn(array.FromSlice([]int{1, 2}))
	out := worklet.FieldOut(array.Make[int](0))
	w := worklet.New("short", func(inv *worklet.Invocation) {
		out.Set(inv, short.Get(inv))
	}, worklet.Range(5), short, out)

	_, err := d.Invoke(context.Background(), w)
	var se *dispatch.SetupError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, worklet.ErrSizeMismatch)
}

func TestSetupErrorKeepsOutputContents(t *testing.T) {
	d := newDispatcher(t)
	for _, id := range device.Enumerated() {
		t.Run(id.String(), func(t *testing.T) {
			field := array.FromSlice([]int{7, 8, 9})
			in := worklet.FieldIn(array.FromSlice([]int{1, 2, 3}))
			out := worklet.FieldOut(field)
			short := worklet.FieldIn(array.FromSlice([]int{1, 2}))
			w := worklet.New("add", func(inv *worklet.Invocation) {
				out.Set(inv, in.Get(inv)+short.Get(inv))
			}, in, out, short)

			_, err := d.Invoke(context.Background(), w, dispatch.WithDevice(id))
			var se *dispatch.SetupError
			require.ErrorAs(t, err, &se)
			assert.ErrorIs(t, err, worklet.ErrSizeMismatch)

			assert.True(t, field.ControlValid())
			got, err := field.ToSlice()
			require.NoError(t, err)
			assert.Equal(t, []int{7, 8, 9}, got)
		})
	}
}

func TestReadOnlyOutputIsSetupError(t *testing.T) {
	d := newDispatcher(t)
	in := worklet.FieldIn(array.FromSlice([]int{1, 2, 3}))
	out := worklet.FieldOut(array.Counting(0, 1, 3))
	w := worklet.New("copy", func(inv *worklet.Invocation) {
		out.Set(inv, in.Get(inv))
	}, in, out)

	_, err := d.Invoke(context.Background(), w)
	var se *dispatch.SetupError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, storage.ErrReadOnly)
}

func TestInvalidWorklet(t *testing.T) {
	d := newDispatcher(t)
	tests := []struct {
		name string
		w    *worklet.Worklet
	}{
		{"nil", nil},
		{"no body", &worklet.Worklet{Name: "x", Args: []worklet.Arg{worklet.Range(1)}}},
		{"no domain", worklet.New("x", func(*worklet.Invocation) {})},
		{"out domain", worklet.New("x", func(*worklet.Invocation) {}, worklet.FieldOut(array.Make[int](0)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Invoke(context.Background(), tt.w)
			require.Error(t, err)
			assert.ErrorIs(t, err, worklet.ErrInvalid)
			assert.Equal(t, dispatch.ClassSetup, dispatch.Classify(err))
		})
	}
}

func TestCanceledContext(t *testing.T) {
	d := newDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Invoke(ctx, double(array.FromSlice(ramp(4)), array.Make[float64](0)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAtomicArray(t *testing.T) {
	d := newDispatcher(t)
	bins := array.FromSlice(make([]int64, 4))
	a := worklet.AtomicArray(bins)
	w := worklet.New("histogram", func(inv *worklet.Invocation) {
		a.Add(inv.WorkIndex%4, 1)
	}, worklet.Range(10000), a)

	_, err := d.Invoke(context.Background(), w, dispatch.WithDevice(device.KernelGrid))
	require.NoError(t, err)
	got, err := bins.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int64{2500, 2500, 2500, 2500}, got)
}

func TestJournalRecordsFailure(t *testing.T) {
	j := &memJournal{}
	d := newDispatcher(t, dispatch.WithJournal(j))
	w := worklet.New("fail", func(inv *worklet.Invocation) { inv.RaiseError("nope") }, worklet.Range(3))

	_, err := d.Invoke(context.Background(), w, dispatch.WithDevice(device.Serial))
	require.Error(t, err)

	require.Len(t, j.recs, 1)
	rec := j.recs[0]
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, "execution", rec.ErrorClass)
	assert.Equal(t, "serial", rec.Device)
	assert.Equal(t, "serial", rec.Requested)
	assert.Contains(t, rec.Error, "nope")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want dispatch.ErrorClass
	}{
		{nil, dispatch.ClassNone},
		{errors.New("x"), dispatch.ClassSetup},
		{fmt.Errorf("alloc: %w", device.ErrOutOfMemory), dispatch.ClassResource},
		{&dispatch.SetupError{Worklet: "w", Err: device.ErrUnavailable}, dispatch.ClassUnavailable},
		{&dispatch.ExecutionError{Worklet: "w", Message: "m"}, dispatch.ClassExecution},
		{&dispatch.DeviceFaultError{Worklet: "w", Fault: &device.FaultError{Device: device.Serial}}, dispatch.ClassFault},
	}
	for _, tt := range tests {
		if got := dispatch.Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
