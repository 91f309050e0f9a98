// Package worklet defines how an algorithm running once per element is
// declared: an ordered list of argument descriptors, the argument that
// supplies the input domain, an optional scatter and mask, and a body.
//
// Argument descriptors are resolved into typed portals once per dispatch by
// Prepare. The body reads and writes through the descriptors, passing the
// Invocation so each descriptor can pick the index it is defined over:
//
//	x := worklet.FieldIn(xs)
//	y := worklet.FieldOut(ys)
//	w := worklet.New("double", func(inv *worklet.Invocation) {
//		y.Set(inv, 2*x.Get(inv))
//	}, x, y)
//
// A Worklet and its descriptors may be used by one dispatch at a time.
package worklet

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is returned for a worklet declaration that cannot be
	// dispatched.
	ErrInvalid = errors.New("invalid worklet")

	// ErrSizeMismatch is returned when a bound array does not cover the
	// index space it is defined over.
	ErrSizeMismatch = errors.New("argument size mismatch")

	// ErrScatterIndex is returned for a scatter that maps outside the input
	// domain.
	ErrScatterIndex = errors.New("scatter index out of range")
)

// Worklet is a dispatchable declaration.
type Worklet struct {
	Name string
	Args []Arg

	// Domain is the index into Args of the argument that defines the input
	// domain.
	Domain int

	// Scatter maps output indices to input indices. Nil means uniform.
	Scatter Scatter

	// Mask selects the input indices that run. Nil means all of them.
	Mask Mask

	Body func(inv *Invocation)
}

// New declares a worklet whose input domain is its first argument.
func New(name string, body func(inv *Invocation), args ...Arg) *Worklet {
	return &Worklet{Name: name, Args: args, Body: body}
}

// WithDomain selects the argument at index i as the input domain.
func (w *Worklet) WithDomain(i int) *Worklet {
	w.Domain = i
	return w
}

// WithScatter sets the scatter.
func (w *Worklet) WithScatter(s Scatter) *Worklet {
	w.Scatter = s
	return w
}

// WithMask sets the mask.
func (w *Worklet) WithMask(m Mask) *Worklet {
	w.Mask = m
	return w
}

// Validate checks the declaration without touching any array contents.
func (w *Worklet) Validate() error {
	if w == nil {
		return fmt.Errorf("%w: nil worklet", ErrInvalid)
	}
	if w.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if w.Body == nil {
		return fmt.Errorf("%w: %s has no body", ErrInvalid, w.Name)
	}
	for i, a := range w.Args {
		if a == nil {
			return fmt.Errorf("%w: %s argument %d is nil", ErrInvalid, w.Name, i)
		}
	}
	if _, err := w.DomainArg(); err != nil {
		return err
	}
	return nil
}

// DomainArg returns the argument defining the input domain.
func (w *Worklet) DomainArg() (DomainArg, error) {
	if w.Domain < 0 || w.Domain >= len(w.Args) {
		return nil, fmt.Errorf("%w: %s domain argument %d out of %d", ErrInvalid, w.Name, w.Domain, len(w.Args))
	}
	d, ok := w.Args[w.Domain].(DomainArg)
	if !ok {
		return nil, fmt.Errorf("%w: %s argument %d (%s) cannot define a domain", ErrInvalid, w.Name, w.Domain, w.Args[w.Domain].Pattern())
	}
	return d, nil
}
