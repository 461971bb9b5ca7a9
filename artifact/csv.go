package artifact

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/artifex/core"
)

// DefaultDelimiter separates CSV fields when none is configured.
const DefaultDelimiter = ","

// CsvRowArtifact holds a single CSV record keyed by column name.
type CsvRowArtifact struct {
	base
	Value     Row
	Delimiter string
}

// NewCsvRow creates a CSV row artifact. v may be a Row, a map[string]string
// (columns sorted by name), a map[string]any with scalar values, or JSON
// object text as string or []byte (column order preserved).
func NewCsvRow(v any, delimiter string) (*CsvRowArtifact, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	row, err := toRow(v)
	if err != nil {
		return nil, fmt.Errorf("%w: csv row: %w", core.ErrParse, err)
	}
	return &CsvRowArtifact{Value: row, Delimiter: delimiter}, nil
}

func (a *CsvRowArtifact) Tag() Tag   { return TagCsvRow }
func (a *CsvRowArtifact) value() any { return a.Value }

// ToText renders a header line and a data line with minimal quoting.
func (a *CsvRowArtifact) ToText() string {
	if len(a.Value) == 0 {
		return ""
	}
	return writeCSV(a.Delimiter, a.Value.Keys(), a.Value.Values())
}

func (a *CsvRowArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value, "delimiter": a.Delimiter}, nil
}

// Len returns the number of columns.
func (a *CsvRowArtifact) Len() int { return len(a.Value) }

// TableArtifact holds rows sharing a header.
type TableArtifact struct {
	base
	Value      []Row
	FieldNames []string
	Delimiter  string
}

// NewTable creates a table artifact. When fieldNames is empty the column
// order of the first row is used.
func NewTable(rows []Row, fieldNames []string, delimiter string) *TableArtifact {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if len(fieldNames) == 0 && len(rows) > 0 {
		fieldNames = rows[0].Keys()
	}
	return &TableArtifact{Value: rows, FieldNames: fieldNames, Delimiter: delimiter}
}

func (a *TableArtifact) Tag() Tag   { return TagTable }
func (a *TableArtifact) value() any { return a.Value }

// ToText renders the header and every row. Missing columns render empty.
func (a *TableArtifact) ToText() string {
	if len(a.FieldNames) == 0 {
		return ""
	}
	records := make([][]string, 0, len(a.Value)+1)
	records = append(records, a.FieldNames)
	for _, row := range a.Value {
		record := make([]string, len(a.FieldNames))
		for i, name := range a.FieldNames {
			record[i], _ = row.Get(name)
		}
		records = append(records, record)
	}
	return writeCSV(a.Delimiter, records...)
}

func (a *TableArtifact) fields() (map[string]any, error) {
	return map[string]any{
		"value":       a.Value,
		"field_names": a.FieldNames,
		"delimiter":   a.Delimiter,
	}, nil
}

// Len returns the number of rows.
func (a *TableArtifact) Len() int { return len(a.Value) }

// Rows returns one CsvRowArtifact per row sharing the table delimiter.
func (a *TableArtifact) Rows() []*CsvRowArtifact {
	out := make([]*CsvRowArtifact, len(a.Value))
	for i, row := range a.Value {
		out[i] = &CsvRowArtifact{Value: row, Delimiter: a.Delimiter}
	}
	return out
}

func toRow(v any) (Row, error) {
	switch val := v.(type) {
	case Row:
		return append(Row(nil), val...), nil
	case map[string]string:
		return RowFromMap(val), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		row := make(Row, 0, len(keys))
		for _, k := range keys {
			row = append(row, Cell{Key: k, Value: fmt.Sprint(val[k])})
		}
		return row, nil
	case string:
		return unmarshalRow([]byte(val))
	case []byte:
		return unmarshalRow(val)
	case json.RawMessage:
		return unmarshalRow(val)
	default:
		return nil, fmt.Errorf("unsupported row value %T", v)
	}
}

func unmarshalRow(data []byte) (Row, error) {
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("row cannot be null")
	}
	return row, nil
}

// delimiterRune returns the first rune of d when it is usable as a CSV
// separator, or a comma otherwise.
func delimiterRune(d string) rune {
	r, _ := utf8.DecodeRuneInString(d)
	if r == 0 || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return ','
	}
	return r
}

// writeCSV renders records with minimal quoting and no trailing newline.
func writeCSV(delimiter string, records ...[]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiterRune(delimiter)
	if err := w.WriteAll(records); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
