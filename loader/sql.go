package loader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/poiesic/artifex/core"
)

// SQLDriver runs a query and returns its rows.
type SQLDriver interface {
	ExecuteQuery(ctx context.Context, query string) (Records, error)
}

// DBDriver implements SQLDriver over database/sql. Register a driver such
// as pgx's stdlib before opening the handle.
type DBDriver struct {
	DB *sql.DB
}

// ExecuteQuery runs query and collects every row. Byte slice columns are
// returned as strings.
func (d DBDriver) ExecuteQuery(ctx context.Context, query string) (Records, error) {
	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return Records{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Records{}, err
	}

	out := Records{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Records{}, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Records{}, err
	}
	return out, nil
}

type sqlFetcher struct {
	driver SQLDriver
}

func (f sqlFetcher) Fetch(ctx context.Context, source any) ([]byte, error) {
	query, ok := source.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported source type %T", core.ErrFetch, source)
	}
	records, err := f.driver.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", core.ErrFetch, err)
	}
	data, err := encodeRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%w: encode rows: %w", core.ErrFetch, err)
	}
	return data, nil
}

// NewSQLLoader creates a loader whose sources are SQL query strings. The
// query result becomes a TableArtifact; the key is the key of the query
// text.
func NewSQLLoader(driver SQLDriver, opts ...Option) (*Base, error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: sql driver is nil", ErrFetcherRequired)
	}
	return NewBase("sql", sqlFetcher{driver: driver}, RecordsParser{}, opts...)
}
