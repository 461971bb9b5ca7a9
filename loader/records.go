package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
)

// Records is tabular data already in memory, such as a query result.
// Columns fixes the column order; when empty, the sorted keys of the first
// row are used.
type Records struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// columns returns the effective column order.
func (r Records) columns() []string {
	if len(r.Columns) > 0 || len(r.Rows) == 0 {
		return r.Columns
	}
	cols := make([]string, 0, len(r.Rows[0]))
	for k := range r.Rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// encodedRecords is the canonical byte form of Records. Cells are rendered
// as strings so the same data always produces the same bytes and key.
type encodedRecords struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func encodeRecords(r Records) ([]byte, error) {
	cols := r.columns()
	out := encodedRecords{Columns: cols, Rows: make([][]string, 0, len(r.Rows))}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for _, row := range r.Rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = cellString(row[col])
		}
		out.Rows = append(out.Rows, cells)
	}
	return json.Marshal(out)
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	default:
		return fmt.Sprint(c)
	}
}

func asRecords(source any) (Records, bool) {
	switch s := source.(type) {
	case Records:
		return s, true
	case *Records:
		if s == nil {
			return Records{}, false
		}
		return *s, true
	case []map[string]any:
		return Records{Rows: s}, true
	default:
		return Records{}, false
	}
}

type recordsFetcher struct{}

func (recordsFetcher) Fetch(ctx context.Context, source any) ([]byte, error) {
	r, ok := asRecords(source)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported source type %T", core.ErrFetch, source)
	}
	data, err := encodeRecords(r)
	if err != nil {
		return nil, fmt.Errorf("%w: encode records: %w", core.ErrFetch, err)
	}
	return data, nil
}

// RecordsParser parses the canonical records encoding into a TableArtifact.
type RecordsParser struct{}

func (RecordsParser) Parse(raw []byte, opts *Options) (artifact.Artifact, error) {
	var in encodedRecords
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: records: %w", core.ErrParse, err)
	}
	rows := make([]artifact.Row, 0, len(in.Rows))
	for i, cells := range in.Rows {
		if len(cells) != len(in.Columns) {
			return nil, fmt.Errorf("%w: records row %d has %d cells, want %d", core.ErrParse, i, len(cells), len(in.Columns))
		}
		rows = append(rows, artifact.NewRow(in.Columns, cells))
	}
	return artifact.NewTable(rows, in.Columns, opts.delimiter()), nil
}

// RecordsKey keys records by their canonical encoding, so equal data yields
// equal keys regardless of map iteration order.
func RecordsKey(source any) string {
	r, ok := asRecords(source)
	if !ok {
		return core.KeyOf(source)
	}
	data, err := encodeRecords(r)
	if err != nil {
		return core.KeyOf(source)
	}
	return core.KeyFromBytes(data)
}

// NewRecordsLoader creates a loader for in-memory Records.
func NewRecordsLoader(opts ...Option) (*Base, error) {
	opts = append([]Option{WithKeyFunc(RecordsKey)}, opts...)
	return NewBase("records", recordsFetcher{}, RecordsParser{}, opts...)
}
