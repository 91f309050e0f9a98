// Package kernelgrid implements a GPU-style backend: a launch of n threads is
// split into a grid of fixed-size blocks, each block runs on one compute unit,
// and the only synchronization point is the end of the kernel.
package kernelgrid

import (
	"fmt"
	"sync"

	"github.com/Viskores/viskores-sub000/internal/device"
)

// Default launch geometry.
const (
	DefaultBlockSize = 128
	grain            = 256
)

// Config describes the emulated accelerator.
type Config struct {
	// ComputeUnits is the number of blocks that may run at once. Zero means
	// no compute unit is present and the probe fails.
	ComputeUnits int

	// BlockSize is the number of threads per block.
	BlockSize int
}

// Adapter is the kernel-grid backend.
type Adapter struct {
	cfg Config
	mem *device.Memory
}

var _ device.Adapter = (*Adapter)(nil)

// New creates a kernel-grid adapter.
func New(cfg Config, mem *device.Memory) *Adapter {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if mem == nil {
		mem = device.NewMemory(0)
	}
	return &Adapter{cfg: cfg, mem: mem}
}

// ID returns device.KernelGrid.
func (a *Adapter) ID() device.ID { return device.KernelGrid }

// Probe fails when no compute unit is configured.
func (a *Adapter) Probe() error {
	if a.cfg.ComputeUnits < 1 {
		return fmt.Errorf("%w: no compute units present", device.ErrUnavailable)
	}
	return nil
}

// Grain returns the tile size.
func (a *Adapter) Grain() int { return grain }

// Concurrency returns the number of compute units.
func (a *Adapter) Concurrency() int { return a.cfg.ComputeUnits }

// BlockSize returns the threads per block.
func (a *Adapter) BlockSize() int { return a.cfg.BlockSize }

// Memory returns the device memory budget.
func (a *Adapter) Memory() *device.Memory { return a.mem }

// Schedule launches a grid covering n threads and waits at the kernel-end
// barrier.
func (a *Adapter) Schedule(n int, body func(i int)) error {
	if n <= 0 {
		return nil
	}
	if err := a.Probe(); err != nil {
		return err
	}
	faults := device.NewFaults(device.KernelGrid)
	blockSize := a.cfg.BlockSize
	blocks := (n + blockSize - 1) / blockSize
	units := min(a.cfg.ComputeUnits, blocks)

	var wg sync.WaitGroup
	for unit := range units {
		wg.Go(func() {
			// Grid-stride over blocks.
			for block := unit; block < blocks && !faults.Tripped(); block += units {
				lo := block * blockSize
				hi := min(lo+blockSize, n)
				for i := lo; i < hi; i++ {
					faults.Run(i, body)
				}
			}
		})
	}
	wg.Wait()
	return faults.Err()
}
