package worklet

import "github.com/Viskores/viskores-sub000/internal/errchan"

// Invocation carries the indices of one call of a worklet body.
type Invocation struct {
	// WorkIndex is the scheduled index, which is also the output index.
	WorkIndex int
	// InputIndex is the input domain index the scatter mapped to.
	InputIndex int
	// OutputIndex is the index output fields are written at.
	OutputIndex int
	// VisitIndex numbers the outputs produced by the same input.
	VisitIndex int

	errs *errchan.Buffer
}

// NewInvocation returns an invocation reporting errors to errs.
func NewInvocation(errs *errchan.Buffer) Invocation {
	return Invocation{errs: errs}
}

// RaiseError reports a failure of this dispatch. Only the first error
// raised by any invocation is kept. The body should return after raising.
func (inv *Invocation) RaiseError(msg string) {
	if inv.errs != nil {
		inv.errs.TrySetMessage(msg)
	}
}
