package tracker

import (
	"log/slog"
	"runtime"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/device/kernelgrid"
	"github.com/Viskores/viskores-sub000/internal/device/serial"
	"github.com/Viskores/viskores-sub000/internal/device/threadpool"
	"github.com/Viskores/viskores-sub000/internal/device/vector"
)

// Options configures the compiled-in backends.
type Options struct {
	// Threads is the thread-pool worker count. Zero uses GOMAXPROCS.
	Threads int

	// Lanes is the vector width. Zero detects it from the CPU.
	Lanes int

	// GridUnits is the kernel-grid compute unit count. Zero uses four per
	// CPU; a negative value means no accelerator is present.
	GridUnits int

	// BlockSize is the kernel-grid block size. Zero uses the default.
	BlockSize int

	// MemoryLimit is the per-device execution memory budget in bytes. Zero
	// means unlimited.
	MemoryLimit int64
}

// Adapters builds one adapter per compiled-in backend.
func Adapters(opts Options) []device.Adapter {
	units := opts.GridUnits
	switch {
	case units == 0:
		units = 4 * runtime.NumCPU()
	case units < 0:
		units = 0
	}
	return []device.Adapter{
		serial.New(device.NewMemory(opts.MemoryLimit)),
		threadpool.New(opts.Threads, device.NewMemory(opts.MemoryLimit)),
		vector.New(opts.Lanes, device.NewMemory(opts.MemoryLimit)),
		kernelgrid.New(kernelgrid.Config{ComputeUnits: units, BlockSize: opts.BlockSize}, device.NewMemory(opts.MemoryLimit)),
	}
}

// NewDefault creates a tracker over every compiled-in backend.
func NewDefault(logger *slog.Logger, opts Options) *Tracker {
	return New(logger, Adapters(opts)...)
}
