package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Cell is one named column value within a Row.
type Cell struct {
	Key   string
	Value string
}

// Row is an ordered mapping of column name to value. Column order survives
// JSON encoding and decoding.
type Row []Cell

// NewRow pairs keys with values positionally. Extra keys get empty values and
// extra values are dropped.
func NewRow(keys, values []string) Row {
	row := make(Row, len(keys))
	for i, k := range keys {
		row[i].Key = k
		if i < len(values) {
			row[i].Value = values[i]
		}
	}
	return row
}

// RowFromMap builds a row from m with keys in sorted order.
func RowFromMap(m map[string]string) Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	row := make(Row, len(keys))
	for i, k := range keys {
		row[i] = Cell{Key: k, Value: m[k]}
	}
	return row
}

// Get returns the value stored under key.
func (r Row) Get(key string) (string, bool) {
	for _, c := range r {
		if c.Key == key {
			return c.Value, true
		}
	}
	return "", false
}

// Keys returns the column names in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, c := range r {
		keys[i] = c.Key
	}
	return keys
}

// Values returns the column values in order.
func (r Row) Values() []string {
	values := make([]string, len(r))
	for i, c := range r {
		values[i] = c.Value
	}
	return values
}

// Map returns an unordered copy of the row.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r))
	for _, c := range r {
		m[c.Key] = c.Value
	}
	return m
}

func (r *Row) set(key, value string) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Cell{Key: key, Value: value})
}

// MarshalJSON encodes the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping its key order. Non-string
// scalar values are kept in their JSON text form; null becomes "".
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row must be a JSON object, got %v", tok)
	}

	row := Row{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row key must be a string, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := cellValue(raw)
		if err != nil {
			return fmt.Errorf("row column %q: %w", key, err)
		}
		row.set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = row
	return nil
}

func cellValue(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return "", fmt.Errorf("empty value")
	case trimmed[0] == '"':
		var s string
		err := json.Unmarshal(trimmed, &s)
		return s, err
	case bytes.Equal(trimmed, []byte("null")):
		return "", nil
	case trimmed[0] == '{' || trimmed[0] == '[':
		return "", fmt.Errorf("nested values are not supported")
	default:
		return string(trimmed), nil
	}
}
