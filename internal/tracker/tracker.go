package tracker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/telemetry"
)

// ErrNoDevice is returned when no device in the preference order is enabled.
var ErrNoDevice = errors.New("no enabled device")

// DeviceInfo describes one enumerated device for listings.
type DeviceInfo struct {
	Name        string `json:"name"`
	Rank        int    `json:"rank"`
	Compiled    bool   `json:"compiled"`
	Available   bool   `json:"available"`
	Enabled     bool   `json:"enabled"`
	Reason      string `json:"reason,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
	Grain       int    `json:"grain,omitempty"`
	MemoryInUse int64  `json:"memory_in_use_bytes"`
	MemoryLimit int64  `json:"memory_limit_bytes"`
}

type entry struct {
	adapter  device.Adapter
	probeErr error
	disabled bool
	reason   string
}

// Tracker holds the registered adapters and their enabled state.
type Tracker struct {
	mu      sync.RWMutex
	entries map[device.ID]*entry
	order   []device.ID
	logger  *slog.Logger
}

// New creates a tracker, probing each adapter once. A nil logger discards.
func New(logger *slog.Logger, adapters ...device.Adapter) *Tracker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t := &Tracker{
		entries: make(map[device.ID]*entry),
		order:   device.DefaultOrder(),
		logger:  logger,
	}
	for _, a := range adapters {
		t.Register(a)
	}
	return t
}

// Register adds or replaces the adapter for its device and probes it.
func (t *Tracker) Register(a device.Adapter) {
	id := a.ID()
	e := &entry{adapter: a, probeErr: a.Probe()}
	if e.probeErr != nil {
		t.logger.Info("device unavailable", "device", id.String(), "error", e.probeErr)
	} else {
		t.logger.Debug("device registered", "device", id.String(), "concurrency", a.Concurrency())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = e
	t.refreshGaugesLocked()
}

// IsEnabled reports whether id is compiled in, passed its probe, and has not
// been disabled.
func (t *Tracker) IsEnabled(id device.ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabledLocked(id)
}

func (t *Tracker) enabledLocked(id device.ID) bool {
	e, ok := t.entries[id]
	return ok && e.probeErr == nil && !e.disabled
}

// Disable turns id off for the rest of the process, or until ResetToDefaults.
func (t *Tracker) Disable(id device.ID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		e = &entry{probeErr: fmt.Errorf("%w: not compiled in", device.ErrUnavailable)}
		t.entries[id] = e
	}
	if e.disabled {
		return
	}
	e.disabled = true
	e.reason = reason
	telemetry.DeviceDisabledTotal.WithLabelValues(id.String()).Inc()
	t.refreshGaugesLocked()
	t.logger.Warn("device disabled", "device", id.String(), "reason", reason)
}

// Force enables only id. It fails if id itself cannot run.
func (t *Tracker) Force(id device.ID) error {
	if _, err := t.Adapter(id); err != nil {
		return fmt.Errorf("force device %s: %w", id, err)
	}
	for _, other := range device.Enumerated() {
		if other != id {
			t.Disable(other, "forced device "+id.String())
		}
	}
	return nil
}

// ResetToDefaults re-enables every device that passed its probe and restores
// the default preference order.
func (t *Tracker) ResetToDefaults() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range t.entries {
		if e.adapter == nil {
			delete(t.entries, id)
			continue
		}
		e.disabled = false
		e.reason = ""
	}
	t.order = device.DefaultOrder()
	t.refreshGaugesLocked()
	t.logger.Info("device tracker reset")
}

// SetOrder replaces the fallback preference order. Invalid ids are dropped.
func (t *Tracker) SetOrder(order []device.ID) {
	valid := make([]device.ID, 0, len(order))
	for _, id := range order {
		if id.Valid() && !slices.Contains(valid, id) {
			valid = append(valid, id)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = valid
}

// Order returns the fallback preference order.
func (t *Tracker) Order() []device.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.order)
}

// Adapter returns the adapter for id if it may be used.
func (t *Tracker) Adapter(id device.ID) (device.Adapter, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %s", device.ErrUnknown, id)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	switch {
	case !ok || e.adapter == nil:
		return nil, fmt.Errorf("%w: %s not compiled in", device.ErrUnavailable, id)
	case e.probeErr != nil:
		return nil, fmt.Errorf("%s: %w", id, e.probeErr)
	case e.disabled:
		return nil, fmt.Errorf("%w: %s: %s", device.ErrDisabled, id, e.reason)
	}
	return &tracked{Adapter: e.adapter, t: t}, nil
}

// FirstAvailable returns the first enabled device in order, or in the
// tracker's preference order when none is given.
func (t *Tracker) FirstAvailable(order ...device.ID) (device.Adapter, error) {
	c := t.Candidates(order...)
	if len(c) == 0 {
		return nil, ErrNoDevice
	}
	return c[0], nil
}

// Candidates returns every enabled device in preference order.
func (t *Tracker) Candidates(order ...device.ID) []device.Adapter {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(order) == 0 {
		order = t.order
	}
	var out []device.Adapter
	for _, id := range order {
		if t.enabledLocked(id) {
			out = append(out, &tracked{Adapter: t.entries[id].adapter, t: t})
		}
	}
	return out
}

// List describes every enumerated device, in preference order first and then
// the rest.
func (t *Tracker) List() []DeviceInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := slices.Clone(t.order)
	for _, id := range device.Enumerated() {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	infos := make([]DeviceInfo, 0, len(ids))
	for rank, id := range ids {
		info := DeviceInfo{Name: id.String(), Rank: rank}
		if e, ok := t.entries[id]; ok && e.adapter != nil {
			info.Compiled = true
			info.Available = e.probeErr == nil
			info.Enabled = t.enabledLocked(id)
			info.Concurrency = e.adapter.Concurrency()
			info.Grain = e.adapter.Grain()
			info.MemoryInUse = e.adapter.Memory().InUse()
			info.MemoryLimit = e.adapter.Memory().Limit()
			switch {
			case e.probeErr != nil:
				info.Reason = e.probeErr.Error()
			case e.disabled:
				info.Reason = e.reason
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// Token returns the device token for id: the id and its rank in the
// preference order, or -1 when id is not in the order.
func (t *Tracker) Token(id device.ID) device.Token {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return device.Token{ID: id, Rank: slices.Index(t.order, id)}
}

func (t *Tracker) refreshGaugesLocked() {
	for _, id := range device.Enumerated() {
		v := 0.0
		if t.enabledLocked(id) {
			v = 1
		}
		telemetry.DeviceEnabled.WithLabelValues(id.String()).Set(v)
	}
}

// tracked is an adapter handed out by a tracker. Arrays check Enabled before
// transferring, so a device disabled after it was resolved is refused.
type tracked struct {
	device.Adapter
	t *Tracker
}

func (a *tracked) Enabled() bool { return a.t.IsEnabled(a.ID()) }
