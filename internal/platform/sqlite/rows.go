package sqlite

import (
	"context"
	"database/sql"
)

// GetMap runs query and returns the first row as column name → value. It
// returns sql.ErrNoRows when the query yields nothing. Values are whatever the
// driver produced: int64, float64, string, []byte, time.Time or nil.
func GetMap(ctx context.Context, q Querier, query string, args ...any) (out map[string]any, err error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return ScanMap(rows)
}

// ScanMap scans the current row of rows into a column name → value map.
func ScanMap(rows *sql.Rows) (map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(cols))
	for i, col := range cols {
		out[col] = values[i]
	}
	return out, nil
}
