package worklet

import (
	"cmp"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/topology"
)

// CellVisit visits the elements of a cell set together with their incident
// elements: cells with their points, or points with their cells.
type CellVisit struct {
	cs   topology.CellSet
	kind DomainKind
	inc  topology.Incidence
}

// VisitCellsWithPoints runs one invocation per cell; the incident elements
// are the cell's points.
func VisitCellsWithPoints(cs topology.CellSet) *CellVisit {
	return &CellVisit{cs: cs, kind: DomainCells}
}

// VisitPointsWithCells runs one invocation per point; the incident elements
// are the cells using it.
func VisitPointsWithCells(cs topology.CellSet) *CellVisit {
	return &CellVisit{cs: cs, kind: DomainPoints}
}

func (v *CellVisit) Role() Role { return RoleIn }
func (v *CellVisit) Pattern() Pattern { return PatternCellSet }
func (v *CellVisit) DomainKind() DomainKind { return v.kind }

// DomainSize is the number of cells or points visited.
func (v *CellVisit) DomainSize() (int, error) {
	if v.kind == DomainPoints {
		return v.cs.NumPoints(), nil
	}
	return v.cs.NumCells(), nil
}

func (v *CellVisit) Prepare(ctx *PrepareContext) error {
	var err error
	if v.kind == DomainPoints {
		v.inc, err = v.cs.PreparePoints(ctx.Device)
	} else {
		v.inc, err = v.cs.PrepareCells(ctx.Device)
	}
	return err
}

// incidentSize is how many elements the incident side has.
func (v *CellVisit) incidentSize() int {
	if v.kind == DomainPoints {
		return v.cs.NumCells()
	}
	return v.cs.NumPoints()
}

// Shape returns the shape of the visited element.
func (v *CellVisit) Shape(inv *Invocation) topology.Shape { return v.inc.Shape(inv.InputIndex) }

// Count returns the number of incident elements.
func (v *CellVisit) Count(inv *Invocation) int { return v.inc.Count(inv.InputIndex) }

// Index returns the id of the k-th incident element.
func (v *CellVisit) Index(inv *Invocation, k int) int { return v.inc.Index(inv.InputIndex, k) }

// Incident is a field defined on the incident side of a CellVisit, read
// through the visited element's incidence.
type Incident[T any] struct {
	visit *CellVisit
	h     *array.Handle[T]
	p     array.ReadPortal[T]
}

// FieldInIncident binds h as a field over the elements incident to visit:
// a point field when visiting cells, a cell field when visiting points.
func FieldInIncident[T any](visit *CellVisit, h *array.Handle[T]) *Incident[T] {
	return &Incident[T]{visit: visit, h: h}
}

func (a *Incident[T]) Role() Role { return RoleIn }
func (a *Incident[T]) Pattern() Pattern { return PatternIncidentField }

func (a *Incident[T]) Check(*PrepareContext) error {
	if n, want := a.h.Len(), a.visit.incidentSize(); n < want {
		return sizeError(PatternIncidentField, n, "incident", want)
	}
	return nil
}

func (a *Incident[T]) Prepare(ctx *PrepareContext) error {
	if err := a.Check(ctx); err != nil {
		return err
	}
	p, err := a.h.PrepareForInput(ctx.Device)
	if err != nil {
		return err
	}
	a.p = p
	return nil
}

// Count returns the number of incident values.
func (a *Incident[T]) Count(inv *Invocation) int { return a.visit.Count(inv) }

// Get returns the value on the k-th incident element.
func (a *Incident[T]) Get(inv *Invocation, k int) T { return a.p.Get(a.visit.Index(inv, k)) }

// KeysArg runs one invocation per unique key.
type KeysArg[K cmp.Ordered] struct {
	keys *topology.Keys[K]
	p    topology.KeysPortal[K]
}

// KeysIn binds a key grouping as the input domain.
func KeysIn[K cmp.Ordered](keys *topology.Keys[K]) *KeysArg[K] {
	return &KeysArg[K]{keys: keys}
}

func (a *KeysArg[K]) Role() Role { return RoleIn }
func (a *KeysArg[K]) Pattern() Pattern { return PatternKeys }
func (a *KeysArg[K]) DomainKind() DomainKind { return DomainKeys }
func (a *KeysArg[K]) DomainSize() (int, error) { return a.keys.NumGroups(), nil }

func (a *KeysArg[K]) Prepare(ctx *PrepareContext) error {
	p, err := a.keys.Prepare(ctx.Device)
	if err != nil {
		return err
	}
	a.p = p
	return nil
}

// Key returns the key of the visited group.
func (a *KeysArg[K]) Key(inv *Invocation) K { return a.p.Key(inv.InputIndex) }

// Count returns the size of the visited group.
func (a *KeysArg[K]) Count(inv *Invocation) int { return a.p.Count(inv.InputIndex) }

// KeyedValues reads the values belonging to the visited key group.
type KeyedValues[K cmp.Ordered, T any] struct {
	keys *KeysArg[K]
	h    *array.Handle[T]
	p    array.ReadPortal[T]
}

// ValuesIn binds h as values grouped by keys. h must have one value per
// keyed index.
func ValuesIn[K cmp.Ordered, T any](keys *KeysArg[K], h *array.Handle[T]) *KeyedValues[K, T] {
	return &KeyedValues[K, T]{keys: keys, h: h}
}

func (a *KeyedValues[K, T]) Role() Role { return RoleIn }
func (a *KeyedValues[K, T]) Pattern() Pattern { return PatternKeyedValues }

func (a *KeyedValues[K, T]) Check(*PrepareContext) error {
	if n, want := a.h.Len(), a.keys.keys.Len(); n != want {
		return sizeError(PatternKeyedValues, n, "keyed", want)
	}
	return nil
}

func (a *KeyedValues[K, T]) Prepare(ctx *PrepareContext) error {
	if err := a.Check(ctx); err != nil {
		return err
	}
	p, err := a.h.PrepareForInput(ctx.Device)
	if err != nil {
		return err
	}
	a.p = p
	return nil
}

// Count returns the number of values in the visited group.
func (a *KeyedValues[K, T]) Count(inv *Invocation) int { return a.keys.Count(inv) }

// Get returns the j-th value of the visited group.
func (a *KeyedValues[K, T]) Get(inv *Invocation, j int) T {
	return a.p.Get(a.keys.p.Index(inv.InputIndex, j))
}
