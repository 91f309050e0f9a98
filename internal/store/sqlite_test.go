package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Viskores/viskores-sub000/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestDispatch(worklet, dev, status string, at time.Time) *model.Dispatch {
	d := &model.Dispatch{
		ID:           model.NewID(),
		Worklet:      worklet,
		Requested:    "any",
		Device:       dev,
		Status:       status,
		InputDomain:  100,
		OutputDomain: 100,
		Tiles:        1,
		DurationUS:   250,
		CreatedAt:    at.UTC().Truncate(time.Second),
	}
	if status == model.StatusFailed {
		d.ErrorClass = "execution"
		d.Error = "boom"
	}
	return d
}

func TestRecordAndGetDispatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := makeTestDispatch("saxpy", "threadpool", model.StatusCompleted, time.Now())
	d.Fallbacks = 1

	if err := s.RecordDispatch(ctx, d); err != nil {
		t.Fatalf("RecordDispatch: %v", err)
	}

	got, err := s.GetDispatch(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDispatch: %v", err)
	}
	if got.ID != d.ID {
		t.Errorf("ID = %q, want %q", got.ID, d.ID)
	}
	if got.Worklet != d.Worklet {
		t.Errorf("Worklet = %q, want %q", got.Worklet, d.Worklet)
	}
	if got.Device != d.Device {
		t.Errorf("Device = %q, want %q", got.Device, d.Device)
	}
	if got.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", got.Fallbacks)
	}
	if !got.CreatedAt.Equal(d.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, d.CreatedAt)
	}
}

func TestRecordDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := makeTestDispatch("saxpy", "serial", model.StatusCompleted, time.Now())
	if err := s.RecordDispatch(ctx, d); err != nil {
		t.Fatalf("RecordDispatch: %v", err)
	}
	if err := s.RecordDispatch(ctx, d); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestGetDispatchNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDispatch(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDispatch error = %v, want ErrNotFound", err)
	}
}

func TestListDispatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := range 5 {
		dev := "serial"
		if i%2 == 1 {
			dev = "kernelgrid"
		}
		d := makeTestDispatch(fmt.Sprintf("w%d", i%2), dev, model.StatusCompleted, base.Add(time.Duration(i)*time.Minute))
		if err := s.RecordDispatch(ctx, d); err != nil {
			t.Fatalf("RecordDispatch: %v", err)
		}
	}

	all, total, err := s.ListDispatches(ctx, model.DispatchFilter{})
	if err != nil {
		t.Fatalf("ListDispatches: %v", err)
	}
	if total != 5 || len(all) != 5 {
		t.Fatalf("got %d of %d, want 5 of 5", len(all), total)
	}
	if !all[0].CreatedAt.After(all[4].CreatedAt) {
		t.Error("expected newest first")
	}

	page, total, err := s.ListDispatches(ctx, model.DispatchFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListDispatches: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Errorf("got %d of %d, want 2 of 5", len(page), total)
	}
	if page[0].ID != all[1].ID {
		t.Errorf("page[0] = %s, want %s", page[0].ID, all[1].ID)
	}

	grid, total, err := s.ListDispatches(ctx, model.DispatchFilter{Device: "kernelgrid"})
	if err != nil {
		t.Fatalf("ListDispatches: %v", err)
	}
	if total != 2 || len(grid) != 2 {
		t.Errorf("got %d of %d kernelgrid dispatches, want 2 of 2", len(grid), total)
	}
	for _, d := range grid {
		if d.Device != "kernelgrid" {
			t.Errorf("unexpected device %q", d.Device)
		}
	}
}

func TestGetDispatchStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []*model.Dispatch{
		makeTestDispatch("a", "serial", model.StatusCompleted, time.Now()),
		makeTestDispatch("a", "serial", model.StatusFailed, time.Now()),
		makeTestDispatch("b", "threadpool", model.StatusCompleted, time.Now()),
		makeTestDispatch("b", "", model.StatusFailed, time.Now()),
	}
	records[2].Fallbacks = 2
	records[3].ErrorClass = "unavailable"
	for _, d := range records {
		if err := s.RecordDispatch(ctx, d); err != nil {
			t.Fatalf("RecordDispatch: %v", err)
		}
	}

	stats, err := s.GetDispatchStats(ctx)
	if err != nil {
		t.Fatalf("GetDispatchStats: %v", err)
	}
	if stats.Total != 4 || stats.Completed != 2 || stats.Failed != 2 {
		t.Errorf("unexpected totals %+v", stats)
	}
	if stats.Fallbacks != 2 {
		t.Errorf("Fallbacks = %d, want 2", stats.Fallbacks)
	}
	if stats.ByErrorClass["execution"] != 1 || stats.ByErrorClass["unavailable"] != 1 {
		t.Errorf("unexpected error classes %v", stats.ByErrorClass)
	}
	if len(stats.ByDevice) != 2 {
		t.Fatalf("expected 2 devices, got %+v", stats.ByDevice)
	}
	if ds := stats.ByDevice[0]; ds.Device != "serial" || ds.Total != 2 || ds.Failed != 1 {
		t.Errorf("unexpected serial stats %+v", ds)
	}
	if stats.AvgDurationUS != 250 {
		t.Errorf("AvgDurationUS = %v, want 250", stats.AvgDurationUS)
	}
}

func TestGetDispatchStatsEmpty(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.GetDispatchStats(context.Background())
	if err != nil {
		t.Fatalf("GetDispatchStats: %v", err)
	}
	if stats.Total != 0 || stats.AvgDurationUS != 0 || len(stats.ByDevice) != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
