// Package threadpool implements the multi-threaded CPU backend. A fixed
// number of workers claim indices from a shared counter, so fast workers
// keep taking work from slow ones.
package threadpool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Viskores/viskores-sub000/internal/device"
)

const grain = 1024

// Adapter is the thread-pool backend.
type Adapter struct {
	workers int
	mem     *device.Memory
}

var _ device.Adapter = (*Adapter)(nil)

// New creates a thread-pool adapter with the given worker count. A
// non-positive count uses GOMAXPROCS.
func New(workers int, mem *device.Memory) *Adapter {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if mem == nil {
		mem = device.NewMemory(0)
	}
	return &Adapter{workers: workers, mem: mem}
}

// ID returns device.ThreadPool.
func (a *Adapter) ID() device.ID { return device.ThreadPool }

// Probe fails when no CPU is reported.
func (a *Adapter) Probe() error {
	if runtime.NumCPU() < 1 || a.workers < 1 {
		return fmt.Errorf("%w: no worker threads", device.ErrUnavailable)
	}
	return nil
}

// Grain returns the tile size.
func (a *Adapter) Grain() int { return grain }

// Concurrency returns the worker count.
func (a *Adapter) Concurrency() int { return a.workers }

// Memory returns the device memory budget.
func (a *Adapter) Memory() *device.Memory { return a.mem }

// Schedule runs body across the worker pool and waits for all workers. The
// first fault cancels the remaining workers.
func (a *Adapter) Schedule(n int, body func(i int)) error {
	if n <= 0 {
		return nil
	}
	faults := device.NewFaults(device.ThreadPool)
	var next atomic.Int64

	g, ctx := errgroup.WithContext(context.Background())
	for range min(a.workers, n) {
		g.Go(func() error {
			for ctx.Err() == nil {
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				faults.Run(i, body)
				if faults.Tripped() {
					return faults.Err()
				}
			}
			return nil
		})
	}
	return g.Wait()
}
