// Package errchan provides the per-dispatch error slot that tile bodies use
// to report a fault back to the host. The first writer wins; later messages
// in the same dispatch are dropped.
package errchan

import (
	"sync/atomic"
	"unicode/utf8"
)

// DefaultCapacity is the message capacity in bytes used by dispatches.
const DefaultCapacity = 1024

const (
	stateEmpty int32 = iota
	stateWriting
	stateSet
)

// Buffer is a fixed-capacity single-writer-wins message slot.
type Buffer struct {
	state atomic.Int32
	buf   []byte
	n     int
}

// New creates a buffer holding at most capacity bytes of message text.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{buf: make([]byte, capacity)}
}

// Capacity reports the maximum message length in bytes.
func (b *Buffer) Capacity() int { return len(b.buf) }

// TrySetMessage records text if no message is set yet. It reports whether
// this call won the slot. Text longer than the capacity is truncated on a
// rune boundary.
func (b *Buffer) TrySetMessage(text string) bool {
	if !b.state.CompareAndSwap(stateEmpty, stateWriting) {
		return false
	}
	if len(text) > len(b.buf) {
		text = truncate(text, len(b.buf))
	}
	b.n = copy(b.buf, text)
	b.state.Store(stateSet)
	return true
}

// HasMessage reports whether a writer has claimed the slot. A message being
// written counts as present.
func (b *Buffer) HasMessage() bool {
	return b.state.Load() != stateEmpty
}

// TakeMessage returns the recorded message and clears the slot. It must only
// be called after the backend synchronization point, when no tile can still
// be writing.
func (b *Buffer) TakeMessage() (string, bool) {
	if b.state.Load() != stateSet {
		return "", false
	}
	msg := string(b.buf[:b.n])
	b.n = 0
	b.state.Store(stateEmpty)
	return msg, true
}

func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
