package storage_test

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/Viskores/viskores-sub000/internal/storage"
)

func TestBasicAllocateWriteRead(t *testing.T) {
	for _, n := range []int{0, 1, 17, 1000} {
		s := storage.NewBasic[float64](0)
		if err := s.Allocate(n); err != nil {
			t.Fatalf("Allocate(%d): %v", n, err)
		}
		for i := range n {
			if err := s.Set(i, float64(i)*1.5); err != nil {
				t.Fatalf("Set(%d): %v", i, err)
			}
		}
		for i := range n {
			if got := s.Get(i); got != float64(i)*1.5 {
				t.Fatalf("Get(%d) = %v, want %v", i, got, float64(i)*1.5)
			}
		}
		if s.Len() != n {
			t.Errorf("Len = %d, want %d", s.Len(), n)
		}
	}
}

func TestBasicSetOutOfRange(t *testing.T) {
	s := storage.NewBasic[int](3)
	if err := s.Set(3, 1); !errors.Is(err, storage.ErrOutOfRange) {
		t.Errorf("Set(3) = %v, want ErrOutOfRange", err)
	}
	if err := s.Set(-1, 1); !errors.Is(err, storage.ErrOutOfRange) {
		t.Errorf("Set(-1) = %v, want ErrOutOfRange", err)
	}
}

func TestBasicAllocatePreservesPrefix(t *testing.T) {
	s := storage.FromSlice([]int{1, 2, 3, 4})
	if err := s.Allocate(2); err != nil {
		t.Fatal(err)
	}
	if err := s.Allocate(5); err != nil {
		t.Fatal(err)
	}
	if got := storage.ToSlice[int](s); !slices.Equal(got, []int{1, 2, 0, 0, 0}) {
		t.Errorf("contents = %v", got)
	}
}

func TestBasicGrowthIsGeometric(t *testing.T) {
	s := storage.NewBasic[int](0)
	s.Append(0)
	reallocs := 0
	last := s.Cap()
	for i := 1; i < 10000; i++ {
		s.Append(i)
		if s.Cap() != last {
			if s.Cap() < last+last/2 {
				t.Fatalf("capacity grew from %d to %d, less than 1.5x", last, s.Cap())
			}
			reallocs++
			last = s.Cap()
		}
	}
	if reallocs > 30 {
		t.Errorf("reallocs = %d, growth is not amortized", reallocs)
	}
	if s.Get(9999) != 9999 {
		t.Errorf("Get(9999) = %d", s.Get(9999))
	}
}

func TestBasicShrinkIsExplicit(t *testing.T) {
	s := storage.NewBasic[int](100)
	if err := s.Allocate(10); err != nil {
		t.Fatal(err)
	}
	if s.Cap() < 100 {
		t.Fatalf("Allocate shrank capacity to %d", s.Cap())
	}
	s.Shrink(10)
	if s.Cap() != 10 || s.Len() != 10 {
		t.Errorf("after Shrink len=%d cap=%d", s.Len(), s.Cap())
	}
}

func TestDerivedSizes(t *testing.T) {
	a := storage.FromSlice([]int{10, 20, 30, 40, 50})
	b := storage.FromSlice([]float32{1, 2, 3})
	idx := storage.FromSlice([]int{4, 0, 0, 2})

	tests := []struct {
		name string
		s    interface{ Len() int }
		want int
	}{
		{"counting", storage.Counting(3, 2, 7), 7},
		{"constant", storage.Constant("x", 4), 4},
		{"permutation", storage.Permutation[int](idx, a), idx.Len()},
		{"cast", storage.Cast[int, float64](a), a.Len()},
		{"zip", storage.Zip[int, float32](a, b), min(a.Len(), b.Len())},
		{"view", storage.View[int](a, 1, 3), 3},
		{"view clamped", storage.View[int](a, 3, 10), a.Len() - 3},
		{"view past end", storage.View[int](a, 9, 2), 0},
		{"concatenate", storage.Concatenate[int](a, a), 2 * a.Len()},
		{"reverse", storage.Reverse[int](a), a.Len()},
	}
	for _, tt := range tests {
		if got := tt.s.Len(); got != tt.want {
			t.Errorf("%s: Len = %d, want %d", tt.name, got, tt.want)
		}
	}

	// Sizes track the sources.
	a.Append(60)
	if got := storage.Concatenate[int](a, a).Len(); got != 12 {
		t.Errorf("concatenate after append: Len = %d, want 12", got)
	}
}

func TestDerivedValues(t *testing.T) {
	a := storage.FromSlice([]int{10, 20, 30, 40, 50})
	idx := storage.FromSlice([]int{4, 0, 0, 2})

	if got := storage.ToSlice[int](storage.Permutation[int](idx, a)); !slices.Equal(got, []int{50, 10, 10, 30}) {
		t.Errorf("permutation = %v", got)
	}
	if got := storage.ToSlice[int](storage.Counting(3, 2, 4)); !slices.Equal(got, []int{3, 5, 7, 9}) {
		t.Errorf("counting = %v", got)
	}
	if got := storage.ToSlice[int](storage.View[int](a, 1, 2)); !slices.Equal(got, []int{20, 30}) {
		t.Errorf("view = %v", got)
	}
	if got := storage.ToSlice[int](storage.Reverse[int](idx)); !slices.Equal(got, []int{2, 0, 0, 4}) {
		t.Errorf("reverse = %v", got)
	}
	zipped := storage.Zip[int, int](a, idx).Get(1)
	if zipped.First != 20 || zipped.Second != 0 {
		t.Errorf("zip[1] = %+v", zipped)
	}
	if got := storage.Cast[int, float32](a).Get(2); got != 30 {
		t.Errorf("cast[2] = %v", got)
	}
}

func TestComputedRejectsWrites(t *testing.T) {
	a := storage.FromSlice([]int{1, 2, 3})
	computed := []storage.Storage[int]{
		storage.Index(3),
		storage.Constant(7, 3),
		storage.Permutation[int](storage.Index(3), a),
		storage.View[int](a, 0, 3),
		storage.Reverse[int](a),
		storage.NewCache[int](storage.Reverse[int](a)),
	}
	for _, s := range computed {
		if s.Writable() {
			t.Errorf("%s storage reports writable", s.Kind())
		}
		if err := s.Set(0, 1); !errors.Is(err, storage.ErrReadOnly) {
			t.Errorf("%s Set = %v, want ErrReadOnly", s.Kind(), err)
		}
		if err := s.Allocate(10); !errors.Is(err, storage.ErrResizeDerived) {
			t.Errorf("%s Allocate = %v, want ErrResizeDerived", s.Kind(), err)
		}
		if err := s.Allocate(s.Len()); err != nil {
			t.Errorf("%s Allocate(Len) = %v", s.Kind(), err)
		}
	}
	if got := storage.Index(3).Kind(); got != storage.KindImplicit {
		t.Errorf("Index kind = %v", got)
	}
	if got := storage.Reverse[int](a).Kind(); got != storage.KindDerived {
		t.Errorf("Reverse kind = %v", got)
	}
}

func TestCacheMaterializesOnce(t *testing.T) {
	calls := 0
	src := storage.Implicit(4, func(i int) int {
		calls++
		return i * i
	})
	c := storage.NewCache[int](src)
	if c.Materialized() {
		t.Fatal("cache materialized before first read")
	}
	for range 3 {
		if got := storage.ToSlice[int](c); !slices.Equal(got, []int{0, 1, 4, 9}) {
			t.Fatalf("cache = %v", got)
		}
	}
	if calls != 4 {
		t.Errorf("source read %d times, want 4", calls)
	}
	c.ReleaseResources()
	_ = c.Get(0)
	if calls != 8 {
		t.Errorf("after release source read %d times, want 8", calls)
	}
}

func TestCacheMaterializedConcurrentWithRead(t *testing.T) {
	c := storage.NewCache[int](storage.Counting(0, 1, 1<<12))

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			if got := c.Get(7); got != 7 {
				t.Errorf("Get(7) = %d", got)
			}
		})
		wg.Go(func() { _ = c.Materialized() })
	}
	wg.Wait()

	if !c.Materialized() {
		t.Error("cache not materialized after reads")
	}
	c.ReleaseResources()
	if c.Materialized() {
		t.Error("cache still materialized after release")
	}
}
