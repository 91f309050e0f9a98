package algorithm

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
)

// Copy writes the contents of in to out, resizing out.
func Copy[T any](dev device.Adapter, in, out *array.Handle[T]) error {
	src, err := in.PrepareForInput(dev)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	dst, err := out.PrepareForOutput(dev, src.Len())
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := forEach(dev, src.Len(), func(i int) { dst.Set(i, src.Get(i)) }); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

// CopySubRange copies n elements of in starting at inStart into out starting
// at outStart. out grows if it is too short, keeping its existing contents.
func CopySubRange[T any](dev device.Adapter, in *array.Handle[T], inStart, n int, out *array.Handle[T], outStart int) error {
	if in == out {
		return fmt.Errorf("copy sub range: %w: source and destination are the same array", ErrInvalidRange)
	}
	src, err := in.PrepareForInput(dev)
	if err != nil {
		return fmt.Errorf("copy sub range: %w", err)
	}
	if inStart < 0 || n < 0 || outStart < 0 || inStart+n > src.Len() {
		return fmt.Errorf("copy sub range: %w: [%d,%d) of %d elements", ErrInvalidRange, inStart, inStart+n, src.Len())
	}
	if need := outStart + n; out.Len() < need {
		if err := out.Allocate(need); err != nil {
			return fmt.Errorf("copy sub range: %w", err)
		}
	}
	dst, err := out.PrepareForInPlace(dev)
	if err != nil {
		return fmt.Errorf("copy sub range: %w", err)
	}
	if err := forEach(dev, n, func(i int) { dst.Set(outStart+i, src.Get(inStart+i)) }); err != nil {
		return fmt.Errorf("copy sub range: %w", err)
	}
	return nil
}

// Fill sets out to n copies of v.
func Fill[T any](dev device.Adapter, out *array.Handle[T], v T, n int) error {
	dst, err := out.PrepareForOutput(dev, n)
	if err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	if err := forEach(dev, n, func(i int) { dst.Set(i, v) }); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	return nil
}

// Transform writes fn(in[i]) to out[i].
func Transform[S, T any](dev device.Adapter, in *array.Handle[S], out *array.Handle[T], fn func(S) T) error {
	src, err := in.PrepareForInput(dev)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	dst, err := out.PrepareForOutput(dev, src.Len())
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if err := forEach(dev, src.Len(), func(i int) { dst.Set(i, fn(src.Get(i))) }); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	return nil
}

// Transform2 writes fn(a[i], b[i]) to out[i] over the shorter input.
func Transform2[A, B, T any](dev device.Adapter, a *array.Handle[A], b *array.Handle[B], out *array.Handle[T], fn func(A, B) T) error {
	pa, err := a.PrepareForInput(dev)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	pb, err := b.PrepareForInput(dev)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	n := min(pa.Len(), pb.Len())
	dst, err := out.PrepareForOutput(dev, n)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if err := forEach(dev, n, func(i int) { dst.Set(i, fn(pa.Get(i), pb.Get(i))) }); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	return nil
}
