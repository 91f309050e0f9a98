package device

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// FaultError reports a scheduled body that crashed on a device.
type FaultError struct {
	Device ID
	Index  int
	Value  any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("device %s faulted at index %d: %v", e.Device, e.Index, e.Value)
}

// Faults captures the first panic raised by bodies run under it. It is safe
// for concurrent use by the execution units of one Schedule call.
type Faults struct {
	dev     ID
	tripped atomic.Bool
	once    sync.Once
	err     *FaultError
}

// NewFaults creates a fault collector for dev.
func NewFaults(dev ID) *Faults {
	return &Faults{dev: dev}
}

// Run calls body(i), recovering a panic into the collector.
func (f *Faults) Run(i int, body func(int)) {
	defer func() {
		if r := recover(); r != nil {
			f.once.Do(func() {
				f.err = &FaultError{Device: f.dev, Index: i, Value: r}
			})
			f.tripped.Store(true)
		}
	}()
	body(i)
}

// Tripped reports whether any body has panicked.
func (f *Faults) Tripped() bool {
	return f.tripped.Load()
}

// Err returns the captured fault, or nil. Call only after all bodies finished.
func (f *Faults) Err() error {
	if !f.tripped.Load() {
		return nil
	}
	return f.err
}
