package array

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/storage"
)

var (
	// ErrTransfer is returned when a device copy cannot be made valid.
	ErrTransfer = errors.New("array transfer failed")

	// ErrReleased is returned when a handle is used after its last reference
	// was released.
	ErrReleased = errors.New("array handle released")

	// ErrDeviceUnknown and ErrDeviceDisabled are the device errors wrapped by
	// a failed prepare.
	ErrDeviceUnknown  = device.ErrUnknown
	ErrDeviceDisabled = device.ErrDisabled
)

// source is a handle a derived handle reads through.
type source interface {
	SyncControlArray() error
	Retain()
	Release()
}

type execBuffer[T any] struct {
	mem   *device.Memory
	data  []T
	valid bool
}

func (b *execBuffer[T]) free() {
	b.mem.Free(device.SizeOf[T](len(b.data)))
	b.data = nil
	b.valid = false
}

// Handle is a shared, validity-tracked array. The zero value is not usable;
// construct handles with FromSlice, Make or one of the derived constructors.
type Handle[T any] struct {
	mu      sync.Mutex
	refs    int
	storage storage.Storage[T]
	basic   *storage.Basic[T] // nil for implicit and derived storage
	control bool
	exec    map[device.ID]*execBuffer[T]
	sources []source
	stats   TransferStats
	hook    func(Transfer)
}

func newHandle[T any](s storage.Storage[T], sources ...source) *Handle[T] {
	h := &Handle[T]{
		refs:    1,
		storage: s,
		control: true,
		exec:    make(map[device.ID]*execBuffer[T]),
		sources: sources,
	}
	h.basic, _ = s.(*storage.Basic[T])
	for _, src := range sources {
		src.Retain()
	}
	return h
}

// FromSlice wraps s in basic storage. The handle becomes the sole owner of s;
// the caller must not use s afterwards.
func FromSlice[T any](s []T) *Handle[T] {
	return newHandle[T](storage.FromSlice(s))
}

// Make returns a handle over n zero values.
func Make[T any](n int) *Handle[T] {
	return newHandle[T](storage.NewBasic[T](n))
}

// FromStorage wraps an existing storage.
func FromStorage[T any](s storage.Storage[T]) *Handle[T] {
	return newHandle(s)
}

// Kind reports the storage representation.
func (h *Handle[T]) Kind() storage.Kind { return h.storage.Kind() }

// Writable reports whether the handle accepts output and in-place access.
func (h *Handle[T]) Writable() bool { return h.basic != nil }

// Retain adds a reference.
func (h *Handle[T]) Retain() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs++
}

// Release drops a reference. When the last reference goes, device memory is
// returned to each device and the storage releases its resources.
func (h *Handle[T]) Release() {
	h.mu.Lock()
	if h.refs == 0 {
		h.mu.Unlock()
		return
	}
	h.refs--
	if h.refs > 0 {
		h.mu.Unlock()
		return
	}
	h.invalidateLocked(device.Undefined)
	h.storage.ReleaseResources()
	h.control = false
	sources := h.sources
	h.sources = nil
	h.mu.Unlock()

	for _, src := range sources {
		src.Release()
	}
}

// Refs reports the current reference count.
func (h *Handle[T]) Refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

// Len returns the logical number of elements.
func (h *Handle[T]) Len() int {
	if h.basic == nil {
		_ = h.syncSources()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lenLocked()
}

func (h *Handle[T]) lenLocked() int {
	if h.control || h.basic == nil {
		return h.storage.Len()
	}
	for _, b := range h.exec {
		if b.valid {
			return len(b.data)
		}
	}
	return 0
}

// PrepareForInput returns a read portal valid on dev. If dev holds no valid
// copy, one is made from control memory, pulling from another device first
// when control is stale. Control contents are never modified.
func (h *Handle[T]) PrepareForInput(dev device.Adapter) (ReadPortal[T], error) {
	if err := checkDevice(dev); err != nil {
		return ReadPortal[T]{}, err
	}
	if h.basic == nil {
		if err := h.syncSources(); err != nil {
			return ReadPortal[T]{}, fmt.Errorf("%w: %w", ErrTransfer, err)
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.refs == 0 {
			return ReadPortal[T]{}, fmt.Errorf("%w: %w", ErrTransfer, ErrReleased)
		}
		return FuncPortal(h.storage.Len(), h.storage.Get), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	buf, err := h.syncToDeviceLocked(dev)
	if err != nil {
		return ReadPortal[T]{}, err
	}
	return SlicePortal(buf.data), nil
}

// PrepareForOutput returns a write portal of n elements on dev, reusing the
// device buffer when it already has that size. On success dev holds the only
// valid copy. If the allocation fails the handle keeps its previous state.
func (h *Handle[T]) PrepareForOutput(dev device.Adapter, n int) (WritePortal[T], error) {
	if err := checkDevice(dev); err != nil {
		return WritePortal[T]{}, err
	}
	if h.basic == nil {
		return WritePortal[T]{}, fmt.Errorf("prepare output: %w", storage.ErrReadOnly)
	}
	if n < 0 {
		return WritePortal[T]{}, fmt.Errorf("prepare output: %w: negative size %d", storage.ErrOutOfRange, n)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return WritePortal[T]{}, fmt.Errorf("%w: %w", ErrTransfer, ErrReleased)
	}
	buf, err := h.bufferLocked(dev, n)
	if err != nil {
		return WritePortal[T]{}, err
	}
	h.invalidateLocked(dev.ID())
	h.control = false
	buf.valid = true
	return WritePortal[T]{data: buf.data}, nil
}

// PrepareForInPlace returns a write portal on dev holding the current
// contents. Every other copy is invalidated.
func (h *Handle[T]) PrepareForInPlace(dev device.Adapter) (WritePortal[T], error) {
	if err := checkDevice(dev); err != nil {
		return WritePortal[T]{}, err
	}
	if h.basic == nil {
		return WritePortal[T]{}, fmt.Errorf("prepare in place: %w", storage.ErrReadOnly)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	buf, err := h.syncToDeviceLocked(dev)
	if err != nil {
		return WritePortal[T]{}, err
	}
	h.invalidateLocked(dev.ID())
	h.control = false
	return WritePortal[T]{data: buf.data}, nil
}

// SyncControlArray makes control memory valid, copying from the valid device
// copy if needed. It is a no-op when control is already valid.
func (h *Handle[T]) SyncControlArray() error {
	if h.basic == nil {
		return h.syncSources()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.control {
		return nil
	}
	return h.pullLocked()
}

// ReadPortal returns a control-side read portal.
func (h *Handle[T]) ReadPortal() (ReadPortal[T], error) {
	if err := h.SyncControlArray(); err != nil {
		return ReadPortal[T]{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.basic == nil {
		return FuncPortal(h.storage.Len(), h.storage.Get), nil
	}
	if !h.control {
		if err := h.pullLocked(); err != nil {
			return ReadPortal[T]{}, err
		}
	}
	return SlicePortal(h.basic.Slice()), nil
}

// WritePortal returns a control-side write portal. Device copies are
// invalidated.
func (h *Handle[T]) WritePortal() (WritePortal[T], error) {
	if h.basic == nil {
		return WritePortal[T]{}, fmt.Errorf("write portal: %w", storage.ErrReadOnly)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.control {
		if err := h.pullLocked(); err != nil {
			return WritePortal[T]{}, err
		}
	}
	h.invalidateLocked(device.Undefined)
	return WritePortal[T]{data: h.basic.Slice()}, nil
}

// ToSlice returns a copy of the contents.
func (h *Handle[T]) ToSlice() ([]T, error) {
	p, err := h.ReadPortal()
	if err != nil {
		return nil, err
	}
	out := make([]T, p.Len())
	if s := p.Slice(); s != nil {
		copy(out, s)
		return out, nil
	}
	for i := range out {
		out[i] = p.Get(i)
	}
	return out, nil
}

// Allocate resizes the control buffer to n elements, keeping the existing
// prefix. Device copies are invalidated.
func (h *Handle[T]) Allocate(n int) error {
	if h.basic == nil {
		return fmt.Errorf("allocate: %w", storage.ErrResizeDerived)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.control {
		if err := h.pullLocked(); err != nil {
			return err
		}
	}
	if err := h.basic.Allocate(n); err != nil {
		return fmt.Errorf("allocate: %w", err)
	}
	h.invalidateLocked(device.Undefined)
	return nil
}

// Fill sets every element to v in control memory. Device copies are
// invalidated without being read back.
func (h *Handle[T]) Fill(v T) error {
	if h.basic == nil {
		return fmt.Errorf("fill: %w", storage.ErrReadOnly)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return ErrReleased
	}
	n := h.lenLocked()
	if err := h.basic.Allocate(n); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	data := h.basic.Slice()
	for i := range data {
		data[i] = v
	}
	h.invalidateLocked(device.Undefined)
	h.control = true
	return nil
}

// TransferStats returns the copies made so far.
func (h *Handle[T]) TransferStats() TransferStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// SetTransferHook installs fn to be called, with the handle lock held, after
// each transfer. fn must not call back into the handle.
func (h *Handle[T]) SetTransferHook(fn func(Transfer)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hook = fn
}

// ControlValid reports whether control memory holds the current contents.
func (h *Handle[T]) ControlValid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.control
}

// ValidOn reports whether id holds a valid execution copy.
func (h *Handle[T]) ValidOn(id device.ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.exec[id]
	return b != nil && b.valid
}

func checkDevice(dev device.Adapter) error {
	if dev == nil {
		return fmt.Errorf("%w: %w", ErrTransfer, device.ErrUnknown)
	}
	if err := device.Usable(dev); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransfer, dev.ID(), err)
	}
	return nil
}

func (h *Handle[T]) syncSources() error {
	for _, src := range h.sources {
		if err := src.SyncControlArray(); err != nil {
			return err
		}
	}
	return nil
}

// syncToDeviceLocked makes the buffer on dev valid.
func (h *Handle[T]) syncToDeviceLocked(dev device.Adapter) (*execBuffer[T], error) {
	if h.refs == 0 {
		return nil, fmt.Errorf("%w: %w", ErrTransfer, ErrReleased)
	}
	id := dev.ID()
	if buf := h.exec[id]; buf != nil && buf.valid {
		return buf, nil
	}
	if !h.control {
		if err := h.pullLocked(); err != nil {
			return nil, err
		}
	}
	n := h.basic.Len()
	buf, err := h.bufferLocked(dev, n)
	if err != nil {
		return nil, err
	}
	copy(buf.data, h.basic.Slice())
	buf.valid = true
	h.record(HostToDevice, id, n)
	return buf, nil
}

// pullLocked copies the valid execution buffer into control memory.
func (h *Handle[T]) pullLocked() error {
	if h.refs == 0 {
		return fmt.Errorf("%w: %w", ErrTransfer, ErrReleased)
	}
	for id, b := range h.exec {
		if !b.valid {
			continue
		}
		if err := h.basic.Allocate(len(b.data)); err != nil {
			return fmt.Errorf("%w: %w", ErrTransfer, err)
		}
		copy(h.basic.Slice(), b.data)
		h.control = true
		h.record(DeviceToHost, id, len(b.data))
		return nil
	}
	return fmt.Errorf("%w: no valid copy to read from", ErrTransfer)
}

// bufferLocked returns the buffer on dev sized to n, allocating a new one if
// needed. The old buffer is only freed once the new one exists.
func (h *Handle[T]) bufferLocked(dev device.Adapter, n int) (*execBuffer[T], error) {
	id := dev.ID()
	buf := h.exec[id]
	if buf != nil && len(buf.data) == n {
		return buf, nil
	}
	data, err := device.Alloc[T](dev.Memory(), n)
	if err != nil {
		return nil, fmt.Errorf("allocate %d elements on %s: %w", n, id, err)
	}
	if buf != nil {
		buf.free()
	}
	buf = &execBuffer[T]{mem: dev.Memory(), data: data}
	h.exec[id] = buf
	return buf, nil
}

// invalidateLocked frees every execution buffer except keep's.
func (h *Handle[T]) invalidateLocked(keep device.ID) {
	for id, b := range h.exec {
		if id == keep {
			continue
		}
		b.free()
		delete(h.exec, id)
	}
}
