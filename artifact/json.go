package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/poiesic/artifex/core"
)

// JsonArtifact holds a JSON value normalized to the generic decoding shape:
// map[string]any, []any, string, float64, bool or nil.
type JsonArtifact struct {
	base
	Value any
}

// NewJSON creates a JSON artifact. Byte slices and json.RawMessage are parsed
// as JSON text. Any other value is normalized through an encode and decode
// cycle, so a Go string becomes a JSON string value.
func NewJSON(v any) (*JsonArtifact, error) {
	normalized, err := normalizeJSON(v)
	if err != nil {
		return nil, fmt.Errorf("%w: json: %w", core.ErrParse, err)
	}
	return &JsonArtifact{Value: normalized}, nil
}

func (a *JsonArtifact) Tag() Tag   { return TagJSON }
func (a *JsonArtifact) value() any { return a.Value }

// ToText returns compact JSON with object keys sorted.
func (a *JsonArtifact) ToText() string {
	text, err := canonicalJSON(a.Value)
	if err != nil {
		return fmt.Sprint(a.Value)
	}
	return text
}

func (a *JsonArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value}, nil
}

func normalizeJSON(v any) (any, error) {
	var data []byte
	switch raw := v.(type) {
	case []byte:
		data = raw
	case json.RawMessage:
		data = raw
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = encoded
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// canonicalJSON encodes v compactly without HTML escaping. encoding/json
// sorts map keys, which makes the output stable.
func canonicalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
