package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Viskores/viskores-sub000/internal/model"

	_ "modernc.org/sqlite"
)

const createDispatchesTable = `
CREATE TABLE IF NOT EXISTS dispatches (
    id            TEXT PRIMARY KEY,
    worklet       TEXT NOT NULL,
    requested     TEXT NOT NULL,
    device        TEXT NOT NULL,
    status        TEXT NOT NULL,
    input_domain  INTEGER NOT NULL,
    output_domain INTEGER NOT NULL,
    tiles         INTEGER NOT NULL,
    fallbacks     INTEGER NOT NULL,
    error_class   TEXT NOT NULL,
    error         TEXT NOT NULL,
    duration_us   INTEGER NOT NULL,
    created_at    DATETIME NOT NULL
)`

const createDispatchesIndex = `
CREATE INDEX IF NOT EXISTS dispatches_created_at ON dispatches (created_at DESC)`

const dispatchColumns = `id, worklet, requested, device, status, input_domain,
	output_domain, tiles, fallbacks, error_class, error, duration_us, created_at`

// defaultListLimit caps listings that do not ask for a limit.
const defaultListLimit = 50

// ErrNotFound is returned when a dispatch is not found.
var ErrNotFound = errors.New("dispatch not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createDispatchesTable, createDispatchesIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create dispatches table: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordDispatch inserts a finished dispatch.
func (s *SQLiteStore) RecordDispatch(ctx context.Context, d *model.Dispatch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches (`+dispatchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Worklet, d.Requested, d.Device, d.Status, d.InputDomain,
		d.OutputDomain, d.Tiles, d.Fallbacks, d.ErrorClass, d.Error, d.DurationUS, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	return nil
}

// GetDispatch retrieves a dispatch by ID.
func (s *SQLiteStore) GetDispatch(ctx context.Context, id string) (*model.Dispatch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dispatchColumns+` FROM dispatches WHERE id = ?`, id)
	d, err := scanDispatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch: %w", err)
	}
	return d, nil
}

// ListDispatches returns a page of dispatches matching f ordered by
// created_at DESC, along with the number of matching dispatches.
func (s *SQLiteStore) ListDispatches(ctx context.Context, f model.DispatchFilter) ([]*model.Dispatch, int, error) {
	var (
		conds []string
		args  []any
	)
	for _, c := range []struct{ col, val string }{
		{"worklet", f.Worklet},
		{"device", f.Device},
		{"status", f.Status},
	} {
		if c.val != "" {
			conds = append(conds, c.col+" = ?")
			args = append(args, c.val)
		}
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatches"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dispatches: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+dispatchColumns+` FROM dispatches`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, max(f.Offset, 0))...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list dispatches: %w", err)
	}
	defer rows.Close()

	var out []*model.Dispatch
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dispatch: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate dispatches: %w", err)
	}
	return out, total, nil
}

// GetDispatchStats aggregates the journal.
func (s *SQLiteStore) GetDispatchStats(ctx context.Context) (*model.DispatchStats, error) {
	stats := &model.DispatchStats{ByErrorClass: make(map[string]int)}

	var avg sql.NullFloat64
	var fallbacks sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			SUM(fallbacks), AVG(duration_us)
		FROM dispatches`, model.StatusCompleted, model.StatusFailed,
	).Scan(&stats.Total, &stats.Completed, &stats.Failed, &fallbacks, &avg)
	if err != nil {
		return nil, fmt.Errorf("aggregate dispatches: %w", err)
	}
	stats.Fallbacks = int(fallbacks.Int64)
	stats.AvgDurationUS = avg.Float64

	rows, err := s.db.QueryContext(ctx,
		`SELECT error_class, COUNT(*) FROM dispatches WHERE error_class != '' GROUP BY error_class`)
	if err != nil {
		return nil, fmt.Errorf("count error classes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var class string
		var n int
		if err := rows.Scan(&class, &n); err != nil {
			return nil, fmt.Errorf("scan error class: %w", err)
		}
		stats.ByErrorClass[class] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate error classes: %w", err)
	}

	devRows, err := s.db.QueryContext(ctx,
		`SELECT device, COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			AVG(duration_us)
		FROM dispatches WHERE device != '' GROUP BY device ORDER BY device`, model.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	defer devRows.Close()
	for devRows.Next() {
		var ds model.DeviceStats
		var davg sql.NullFloat64
		if err := devRows.Scan(&ds.Device, &ds.Total, &ds.Failed, &davg); err != nil {
			return nil, fmt.Errorf("scan device stats: %w", err)
		}
		ds.AvgDurationUS = davg.Float64
		stats.ByDevice = append(stats.ByDevice, ds)
	}
	if err := devRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device stats: %w", err)
	}

	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDispatch(r scanner) (*model.Dispatch, error) {
	d := &model.Dispatch{}
	err := r.Scan(
		&d.ID, &d.Worklet, &d.Requested, &d.Device, &d.Status, &d.InputDomain,
		&d.OutputDomain, &d.Tiles, &d.Fallbacks, &d.ErrorClass, &d.Error, &d.DurationUS, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}
