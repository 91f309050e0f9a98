// Package vector implements the lane-parallel CPU backend: one goroutine
// walking the index space a vector register's worth of lanes at a time.
package vector

import (
	"fmt"

	"golang.org/x/sys/cpu"

	"github.com/Viskores/viskores-sub000/internal/device"
)

// grainLanes is the tile size in vector widths.
const grainLanes = 64

// Adapter is the vector-unit backend.
type Adapter struct {
	lanes int
	mem   *device.Memory
}

var _ device.Adapter = (*Adapter)(nil)

// New creates a vector adapter. A non-positive lane count is detected from
// the CPU feature flags.
func New(lanes int, mem *device.Memory) *Adapter {
	if lanes <= 0 {
		lanes = DetectLanes()
	}
	if mem == nil {
		mem = device.NewMemory(0)
	}
	return &Adapter{lanes: lanes, mem: mem}
}

// DetectLanes reports the number of 32-bit lanes of the widest vector unit.
func DetectLanes() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 16
	case cpu.X86.HasAVX2:
		return 8
	case cpu.X86.HasSSE2, cpu.ARM64.HasASIMD:
		return 4
	default:
		return 1
	}
}

// ID returns device.Vector.
func (a *Adapter) ID() device.ID { return device.Vector }

// Probe fails when the CPU has no vector unit.
func (a *Adapter) Probe() error {
	if a.lanes < 2 {
		return fmt.Errorf("%w: no vector unit", device.ErrUnavailable)
	}
	return nil
}

// Lanes returns the vector width.
func (a *Adapter) Lanes() int { return a.lanes }

// Grain returns the tile size.
func (a *Adapter) Grain() int { return grainLanes * max(a.lanes, 1) }

// Concurrency is the lane count.
func (a *Adapter) Concurrency() int { return a.lanes }

// Memory returns the device memory budget.
func (a *Adapter) Memory() *device.Memory { return a.mem }

// Schedule runs body one lane group at a time on the calling goroutine.
// Within a group, lanes are issued back to back with no dependency between
// them.
func (a *Adapter) Schedule(n int, body func(i int)) error {
	faults := device.NewFaults(device.Vector)
	lanes := max(a.lanes, 1)
	for base := 0; base < n && !faults.Tripped(); base += lanes {
		end := min(base+lanes, n)
		for i := base; i < end; i++ {
			faults.Run(i, body)
		}
	}
	return faults.Err()
}
