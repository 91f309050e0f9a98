package array

import (
	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/telemetry"
)

// Direction of a transfer.
type Direction string

const (
	HostToDevice Direction = "host_to_device"
	DeviceToHost Direction = "device_to_host"
)

// Transfer describes one copy between control and execution memory.
type Transfer struct {
	Direction Direction
	Device    device.ID
	Elements  int
	Bytes     int64
}

// TransferStats counts the copies a handle has made.
type TransferStats struct {
	HostToDevice int
	DeviceToHost int
}

// Total returns the number of copies in either direction.
func (s TransferStats) Total() int { return s.HostToDevice + s.DeviceToHost }

// record must be called with h.mu held.
func (h *Handle[T]) record(dir Direction, dev device.ID, n int) {
	t := Transfer{Direction: dir, Device: dev, Elements: n, Bytes: device.SizeOf[T](n)}
	switch dir {
	case HostToDevice:
		h.stats.HostToDevice++
	case DeviceToHost:
		h.stats.DeviceToHost++
	}
	telemetry.TransfersTotal.WithLabelValues(string(dir), dev.String()).Inc()
	telemetry.TransferBytes.WithLabelValues(string(dir), dev.String()).Add(float64(t.Bytes))
	if h.hook != nil {
		h.hook(t)
	}
}
