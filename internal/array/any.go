package array

import (
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/storage"
)

// Any is the type-erased view of a handle used by code that moves or
// prints array contents without knowing the element type.
type Any interface {
	Len() int
	Kind() storage.Kind
	ValueType() string
	SyncControlArray() error
	Values() ([]any, error)
	TransferStats() TransferStats
}

var _ Any = (*Handle[float64])(nil)

// ValueType returns the element type name.
func (h *Handle[T]) ValueType() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// Values returns the contents as interface values.
func (h *Handle[T]) Values() ([]any, error) {
	vals, err := h.ToSlice()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out, nil
}
