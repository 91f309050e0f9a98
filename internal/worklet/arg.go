package worklet

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/device"
)

// Role is how a dispatch prepares an argument's array.
type Role int

const (
	RoleIn Role = iota
	RoleOut
	RoleInOut
)

func (r Role) String() string {
	switch r {
	case RoleIn:
		return "in"
	case RoleOut:
		return "out"
	case RoleInOut:
		return "inout"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Pattern is how an argument is accessed from the worklet body.
type Pattern int

const (
	PatternRange Pattern = iota
	PatternFieldIn
	PatternFieldOut
	PatternFieldInOut
	PatternWholeArrayIn
	PatternWholeArrayInOut
	PatternAtomicArray
	PatternCellSet
	PatternIncidentField
	PatternKeys
	PatternKeyedValues
	PatternReducedValues
)

var patternNames = [...]string{
	PatternRange:           "range",
	PatternFieldIn:         "field-in",
	PatternFieldOut:        "field-out",
	PatternFieldInOut:      "field-in-out",
	PatternWholeArrayIn:    "whole-array-in",
	PatternWholeArrayInOut: "whole-array-in-out",
	PatternAtomicArray:     "atomic-array",
	PatternCellSet:         "cell-set",
	PatternIncidentField:   "incident-field",
	PatternKeys:            "keys",
	PatternKeyedValues:     "keyed-values",
	PatternReducedValues:   "reduced-values",
}

func (p Pattern) String() string {
	if p >= 0 && int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("pattern(%d)", int(p))
}

// DomainKind is the kind of index space a domain argument defines.
type DomainKind int

const (
	DomainRange DomainKind = iota
	DomainCells
	DomainPoints
	DomainKeys
)

func (k DomainKind) String() string {
	switch k {
	case DomainRange:
		return "range"
	case DomainCells:
		return "cells"
	case DomainPoints:
		return "points"
	case DomainKeys:
		return "keys"
	default:
		return fmt.Sprintf("domain(%d)", int(k))
	}
}

// PrepareContext is what an argument needs to resolve its portal.
type PrepareContext struct {
	Device     device.Adapter
	InputSize  int
	OutputSize int

	// Masked is set when some output indices are skipped. Outputs then keep
	// their previous values at the skipped indices.
	Masked bool
}

// Arg is an argument descriptor.
type Arg interface {
	Role() Role
	Pattern() Pattern

	// Prepare moves the argument's arrays to ctx.Device and checks they
	// cover the index space the argument is read or written over.
	Prepare(ctx *PrepareContext) error
}

// Checker is implemented by arguments whose sizes can be verified without
// touching any array state. A dispatch checks every argument before it
// prepares the first one.
type Checker interface {
	Check(ctx *PrepareContext) error
}

// Check runs a's size check if it has one.
func Check(a Arg, ctx *PrepareContext) error {
	if c, ok := a.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// DomainArg is an argument that can define the input domain.
type DomainArg interface {
	Arg
	DomainKind() DomainKind
	DomainSize() (int, error)
}

func sizeError(p Pattern, have int, side string, want int) error {
	return fmt.Errorf("%w: %s has %d elements, %s domain has %d", ErrSizeMismatch, p, have, side, want)
}
