package store

import (
	"context"

	"github.com/Viskores/viskores-sub000/internal/model"
)

// Store defines the persistence operations for the dispatch journal.
type Store interface {
	RecordDispatch(ctx context.Context, d *model.Dispatch) error
	GetDispatch(ctx context.Context, id string) (*model.Dispatch, error)
	ListDispatches(ctx context.Context, f model.DispatchFilter) ([]*model.Dispatch, int, error)
	GetDispatchStats(ctx context.Context) (*model.DispatchStats, error)
	Close() error
}
