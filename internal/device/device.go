package device

import (
	"errors"
	"fmt"
	"strings"
)

// ID names one of the fixed set of backends.
type ID int

// Device identifiers. Any requests the best available enabled device.
const (
	Undefined ID = iota
	Serial
	ThreadPool
	Vector
	KernelGrid
	Any
)

// Device name constants, as accepted on the command line and in config.
const (
	NameUndefined  = "undefined"
	NameSerial     = "serial"
	NameThreadPool = "threadpool"
	NameVector     = "vector"
	NameKernelGrid = "kernelgrid"
	NameAny        = "any"
)

var (
	// ErrUnknown is returned for a device that is not one of the enumerated backends.
	ErrUnknown = errors.New("device not enumerated")

	// ErrUnavailable is returned when a backend is compiled in but cannot run
	// on this machine (probe failed).
	ErrUnavailable = errors.New("device unavailable")

	// ErrDisabled is returned when a backend has been disabled at runtime.
	ErrDisabled = errors.New("device disabled")

	// ErrOutOfMemory is returned when a device allocation exceeds the device
	// memory budget.
	ErrOutOfMemory = errors.New("device out of memory")
)

var idNames = map[ID]string{
	Undefined:  NameUndefined,
	Serial:     NameSerial,
	ThreadPool: NameThreadPool,
	Vector:     NameVector,
	KernelGrid: NameKernelGrid,
	Any:        NameAny,
}

// String returns the device name.
func (id ID) String() string {
	if n, ok := idNames[id]; ok {
		return n
	}
	return fmt.Sprintf("device(%d)", int(id))
}

// Valid reports whether id is one of the enumerated concrete backends.
func (id ID) Valid() bool {
	return id >= Serial && id <= KernelGrid
}

// Accelerator reports whether id is an accelerator-class backend.
func (id ID) Accelerator() bool {
	return id == KernelGrid
}

// ParseID converts a device name into an ID. Matching is case-insensitive.
func ParseID(s string) (ID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for id, n := range idNames {
		if n == name && id != Undefined {
			return id, nil
		}
	}
	return Undefined, fmt.Errorf("%w: %q", ErrUnknown, s)
}

// Enumerated returns every concrete backend identifier.
func Enumerated() []ID {
	return []ID{Serial, ThreadPool, Vector, KernelGrid}
}

// DefaultOrder is the fallback preference: accelerators first, then parallel
// CPU backends, then serial.
func DefaultOrder() []ID {
	return []ID{KernelGrid, ThreadPool, Vector, Serial}
}

// Token pairs a device identifier with its rank in the preference order.
// Lower rank is preferred.
type Token struct {
	ID   ID
	Rank int
}

// String returns "name#rank".
func (t Token) String() string {
	return fmt.Sprintf("%s#%d", t.ID, t.Rank)
}
