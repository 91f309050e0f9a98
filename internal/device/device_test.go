package device_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/device/kernelgrid"
	"github.com/Viskores/viskores-sub000/internal/device/serial"
	"github.com/Viskores/viskores-sub000/internal/device/threadpool"
	"github.com/Viskores/viskores-sub000/internal/device/vector"
)

func adapters() []device.Adapter {
	return []device.Adapter{
		serial.New(nil),
		threadpool.New(4, nil),
		vector.New(4, nil),
		kernelgrid.New(kernelgrid.Config{ComputeUnits: 3, BlockSize: 7}, nil),
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want device.ID
	}{
		{"serial", device.Serial},
		{"ThreadPool", device.ThreadPool},
		{" vector ", device.Vector},
		{"kernelgrid", device.KernelGrid},
		{"any", device.Any},
	}
	for _, tt := range tests {
		got, err := device.ParseID(tt.in)
		if err != nil {
			t.Fatalf("ParseID(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "undefined", "cuda"} {
		if _, err := device.ParseID(bad); !errors.Is(err, device.ErrUnknown) {
			t.Errorf("ParseID(%q) error = %v, want ErrUnknown", bad, err)
		}
	}
}

func TestIDValid(t *testing.T) {
	for _, id := range device.Enumerated() {
		if !id.Valid() {
			t.Errorf("%v should be valid", id)
		}
	}
	for _, id := range []device.ID{device.Undefined, device.Any, device.ID(42)} {
		if id.Valid() {
			t.Errorf("%v should not be valid", id)
		}
	}
	if got := device.ID(42).String(); got != "device(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestScheduleVisitsEveryIndexOnce(t *testing.T) {
	for _, a := range adapters() {
		t.Run(a.ID().String(), func(t *testing.T) {
			if err := a.Probe(); err != nil {
				t.Fatalf("Probe: %v", err)
			}
			for _, n := range []int{0, 1, 7, 1000, 10007} {
				hits := make([]atomic.Int32, n)
				if err := a.Schedule(n, func(i int) { hits[i].Add(1) }); err != nil {
					t.Fatalf("Schedule(%d): %v", n, err)
				}
				for i := range hits {
					if got := hits[i].Load(); got != 1 {
						t.Fatalf("n=%d: index %d visited %d times", n, i, got)
					}
				}
			}
		})
	}
}

func TestScheduleCapturesPanic(t *testing.T) {
	for _, a := range adapters() {
		t.Run(a.ID().String(), func(t *testing.T) {
			err := a.Schedule(5000, func(i int) {
				if i == 1234 {
					panic("boom")
				}
			})
			var fault *device.FaultError
			if !errors.As(err, &fault) {
				t.Fatalf("error = %v, want *FaultError", err)
			}
			if fault.Device != a.ID() {
				t.Errorf("fault device = %v, want %v", fault.Device, a.ID())
			}
			if fault.Index != 1234 || fault.Value != "boom" {
				t.Errorf("fault = %+v", fault)
			}
		})
	}
}

func TestProbeFailures(t *testing.T) {
	if err := vector.New(1, nil).Probe(); !errors.Is(err, device.ErrUnavailable) {
		t.Errorf("vector with one lane: %v, want ErrUnavailable", err)
	}
	grid := kernelgrid.New(kernelgrid.Config{}, nil)
	if err := grid.Probe(); !errors.Is(err, device.ErrUnavailable) {
		t.Errorf("kernelgrid without units: %v, want ErrUnavailable", err)
	}
	if err := grid.Schedule(10, func(int) {}); !errors.Is(err, device.ErrUnavailable) {
		t.Errorf("kernelgrid schedule without units: %v, want ErrUnavailable", err)
	}
}

func TestTiling(t *testing.T) {
	a := serial.New(nil)
	g := a.Grain()
	n := 2*g + 3
	if got := device.TileCount(a, n); got != 3 {
		t.Fatalf("TileCount = %d, want 3", got)
	}
	lo, hi := device.TileBounds(a, 2, n)
	if lo != 2*g || hi != n {
		t.Errorf("TileBounds(2) = [%d,%d), want [%d,%d)", lo, hi, 2*g, n)
	}
	if got := device.TileCount(a, 0); got != 0 {
		t.Errorf("TileCount(0) = %d", got)
	}
}

func TestMemoryBudget(t *testing.T) {
	m := device.NewMemory(100)
	if err := m.Reserve(60); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := m.Reserve(50); !errors.Is(err, device.ErrOutOfMemory) {
		t.Fatalf("Reserve over budget: %v, want ErrOutOfMemory", err)
	}
	m.Free(60)
	if got := m.InUse(); got != 0 {
		t.Errorf("InUse = %d, want 0", got)
	}
	if got := m.Peak(); got != 60 {
		t.Errorf("Peak = %d, want 60", got)
	}

	buf, err := device.Alloc[int64](m, 12)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(buf) != 12 || m.InUse() != 96 {
		t.Errorf("len=%d inUse=%d", len(buf), m.InUse())
	}
	if _, err := device.Alloc[int64](m, 1); !errors.Is(err, device.ErrOutOfMemory) {
		t.Errorf("Alloc over budget: %v", err)
	}
}

func TestUsable(t *testing.T) {
	if err := device.Usable(nil); !errors.Is(err, device.ErrUnknown) {
		t.Errorf("nil adapter: %v", err)
	}
	if err := device.Usable(serial.New(nil)); err != nil {
		t.Errorf("serial: %v", err)
	}
	if err := device.Usable(disabled{serial.New(nil)}); !errors.Is(err, device.ErrDisabled) {
		t.Errorf("disabled: %v", err)
	}
}

type disabled struct{ device.Adapter }

func (disabled) Enabled() bool { return false }

func TestThreadPoolFaultStopsWorkers(t *testing.T) {
	const n = 1 << 22
	a := threadpool.New(4, nil)
	var ran atomic.Int64
	err := a.Schedule(n, func(i int) {
		ran.Add(1)
		if i == 10 {
			panic("stop")
		}
	})
	var fault *device.FaultError
	if !errors.As(err, &fault) {
		t.Fatalf("error = %v, want *FaultError", err)
	}
	if fault.Index != 10 || fault.Value != "stop" {
		t.Errorf("fault = %+v", fault)
	}
	if got := ran.Load(); got >= n {
		t.Errorf("ran %d bodies after a fault, want fewer than %d", got, n)
	}
}
