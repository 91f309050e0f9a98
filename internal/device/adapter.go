package device

// Adapter is implemented by every execution backend. The engine only ever
// sees this vocabulary; how a backend realizes concurrency stays hidden.
type Adapter interface {
	// ID reports which backend this is.
	ID() ID

	// Probe checks whether the backend can run on this machine. It is called
	// once when the adapter is registered with a tracker.
	Probe() error

	// Schedule invokes body(i) for every i in [0, n) with no ordering between
	// different i. It returns after all invocations have completed. A panic in
	// body is captured and returned as a *FaultError; remaining invocations
	// may be skipped.
	Schedule(n int, body func(i int)) error

	// Grain is the preferred number of elements per tile.
	Grain() int

	// Concurrency is the number of execution units used by Schedule.
	Concurrency() int

	// Memory is the device memory budget used for execution buffers.
	Memory() *Memory
}

// Enabler is optionally implemented by adapters handed out by a tracker so
// that array transfers can refuse devices disabled after the adapter was
// obtained.
type Enabler interface {
	Enabled() bool
}

// Usable reports whether a may be targeted: it must be one of the enumerated
// backends and, if it reports an enabled state, be enabled.
func Usable(a Adapter) error {
	if a == nil || !a.ID().Valid() {
		return ErrUnknown
	}
	if e, ok := a.(Enabler); ok && !e.Enabled() {
		return ErrDisabled
	}
	return nil
}

// TileCount returns how many tiles of the adapter's grain cover n elements.
func TileCount(a Adapter, n int) int {
	if n <= 0 {
		return 0
	}
	g := a.Grain()
	if g <= 0 {
		g = 1
	}
	return (n + g - 1) / g
}

// TileBounds returns the half-open element range covered by tile t.
func TileBounds(a Adapter, t, n int) (lo, hi int) {
	g := a.Grain()
	if g <= 0 {
		g = 1
	}
	lo = t * g
	hi = min(lo+g, n)
	return lo, hi
}
