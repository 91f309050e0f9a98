// Package serial implements the single-threaded fallback backend. Every
// scheduled body runs immediately, in index order, on the calling goroutine.
package serial

import "github.com/Viskores/viskores-sub000/internal/device"

// grain is large: tiling only matters for memory locality here.
const grain = 4096

// Adapter is the serial backend.
type Adapter struct {
	mem *device.Memory
}

var _ device.Adapter = (*Adapter)(nil)

// New creates a serial adapter drawing execution buffers from mem.
func New(mem *device.Memory) *Adapter {
	if mem == nil {
		mem = device.NewMemory(0)
	}
	return &Adapter{mem: mem}
}

// ID returns device.Serial.
func (a *Adapter) ID() device.ID { return device.Serial }

// Probe always succeeds.
func (a *Adapter) Probe() error { return nil }

// Grain returns the tile size.
func (a *Adapter) Grain() int { return grain }

// Concurrency is always 1.
func (a *Adapter) Concurrency() int { return 1 }

// Memory returns the device memory budget.
func (a *Adapter) Memory() *device.Memory { return a.mem }

// Schedule runs body for each index on the current goroutine.
func (a *Adapter) Schedule(n int, body func(i int)) error {
	faults := device.NewFaults(device.Serial)
	for i := 0; i < n && !faults.Tripped(); i++ {
		faults.Run(i, body)
	}
	return faults.Err()
}
