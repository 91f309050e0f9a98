package device

import (
	"fmt"
	"sync"
	"unsafe"
)

// Memory tracks the bytes held by execution buffers on one device. A zero
// limit means unlimited.
type Memory struct {
	mu    sync.Mutex
	limit int64
	used  int64
	peak  int64
}

// NewMemory creates a memory budget of limit bytes.
func NewMemory(limit int64) *Memory {
	return &Memory{limit: limit}
}

// Reserve accounts for bytes of new device memory.
func (m *Memory) Reserve(bytes int64) error {
	if m == nil || bytes <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 && m.used+bytes > m.limit {
		return fmt.Errorf("%w: requested %d bytes, %d of %d in use", ErrOutOfMemory, bytes, m.used, m.limit)
	}
	m.used += bytes
	m.peak = max(m.peak, m.used)
	return nil
}

// Free returns bytes to the budget.
func (m *Memory) Free(bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used = max(m.used-bytes, 0)
}

// InUse reports the bytes currently reserved.
func (m *Memory) InUse() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Peak reports the high-water mark of reserved bytes.
func (m *Memory) Peak() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// Limit reports the configured budget; zero means unlimited.
func (m *Memory) Limit() int64 {
	if m == nil {
		return 0
	}
	return m.limit
}

// Alloc reserves room for n values of T and returns a zeroed buffer.
func Alloc[T any](m *Memory, n int) ([]T, error) {
	if err := m.Reserve(SizeOf[T](n)); err != nil {
		return nil, err
	}
	return make([]T, n), nil
}

// SizeOf returns the byte size of n values of T.
func SizeOf[T any](n int) int64 {
	var zero T
	return int64(unsafe.Sizeof(zero)) * int64(n)
}
