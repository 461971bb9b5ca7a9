// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/poiesic/artifex/core"
)

const (
	typeField      = "type"
	referenceField = "reference"
)

var (
	// ErrUnknownTag indicates a serialized artifact names an unregistered variant.
	ErrUnknownTag = errors.New("unknown artifact type")

	// ErrMissingField indicates a required serialized field is absent.
	ErrMissingField = errors.New("missing field")
)

type decodeFunc func(r fieldReader) (Artifact, error)

// registry maps every tag to its decoder. It is filled once in init and
// read-only afterwards.
var registry map[Tag]decodeFunc

func init() {
	registry = map[Tag]decodeFunc{
		TagText:    decodeText,
		TagBlob:    decodeBlob,
		TagJSON:    decodeJSON,
		TagCsvRow:  decodeCsvRow,
		TagTable:   decodeTable,
		TagList:    decodeList,
		TagImage:   decodeImage,
		TagAudio:   decodeAudio,
		TagAction:  decodeAction,
		TagGeneric: decodeGeneric,
		TagInfo:    decodeInfo,
		TagError:   decodeError,
	}
}

// Tags returns every registered tag in sorted order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(registry))
	for t := range registry {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Lookup reports whether tag names a registered variant.
func Lookup(tag Tag) bool {
	_, ok := registry[tag]
	return ok
}

// ToDict converts a to its serialized map form.
func ToDict(a Artifact) (map[string]any, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil artifact", core.ErrSerialization)
	}
	d, err := a.fields()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrSerialization, a.Tag(), err)
	}
	d[typeField] = string(a.Tag())
	if ref := a.Reference(); ref != nil {
		d[referenceField] = ref
	}
	return d, nil
}

// FromDict rebuilds an artifact from its serialized map form. Field values
// may be native Go values, generic JSON values or json.RawMessage.
func FromDict(d map[string]any) (Artifact, error) {
	r := fieldReader{d: d}

	var tag string
	if err := r.read(typeField, true, &tag); err != nil {
		return nil, err
	}
	r.tag = Tag(tag)

	decode, ok := registry[r.tag]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", core.ErrSerialization, ErrUnknownTag, tag)
	}
	a, err := decode(r)
	if err != nil {
		return nil, err
	}

	var ref Reference
	if err := r.read(referenceField, false, &ref); err != nil {
		return nil, err
	}
	if ref != nil {
		a.SetReference(ref)
	}
	return a, nil
}

// ToJSON encodes a as JSON text.
func ToJSON(a Artifact) ([]byte, error) {
	d, err := ToDict(a)
	if err != nil {
		return nil, err
	}
	text, err := canonicalJSON(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrSerialization, a.Tag(), err)
	}
	return []byte(text), nil
}

// FromJSON decodes an artifact from JSON text produced by ToJSON.
func FromJSON(data []byte) (Artifact, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSerialization, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: artifact must be a JSON object", core.ErrSerialization)
	}
	d := make(map[string]any, len(raw))
	for k, v := range raw {
		d[k] = v
	}
	return FromDict(d)
}

// fieldReader extracts typed fields from a serialized map.
type fieldReader struct {
	d   map[string]any
	tag Tag
}

func (r fieldReader) has(name string) bool {
	_, ok := r.d[name]
	return ok
}

// read stores field name into dst. Values already assignable to dst are
// stored directly; anything else passes through JSON.
func (r fieldReader) read(name string, required bool, dst any) error {
	v, ok := r.d[name]
	if !ok {
		if required {
			return r.fail(name, ErrMissingField)
		}
		return nil
	}

	raw, isRaw := v.(json.RawMessage)
	if !isRaw && v != nil {
		target := reflect.ValueOf(dst).Elem()
		if src := reflect.ValueOf(v); src.Type().AssignableTo(target.Type()) {
			target.Set(src)
			return nil
		}
	}
	if !isRaw {
		encoded, err := json.Marshal(v)
		if err != nil {
			return r.fail(name, err)
		}
		raw = encoded
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return r.fail(name, err)
	}
	return nil
}

func (r fieldReader) fail(name string, err error) error {
	if r.tag == "" {
		return fmt.Errorf("%w: field %q: %w", core.ErrSerialization, name, err)
	}
	return fmt.Errorf("%w: %s field %q: %w", core.ErrSerialization, r.tag, name, err)
}

func decodeText(r fieldReader) (Artifact, error) {
	var v string
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	return NewText(v), nil
}

func decodeInfo(r fieldReader) (Artifact, error) {
	var v string
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	return NewInfo(v), nil
}

func decodeError(r fieldReader) (Artifact, error) {
	var v string
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	return &ErrorArtifact{Value: v}, nil
}

func decodeBlob(r fieldReader) (Artifact, error) {
	var v []byte
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	return NewBlob(v), nil
}

func decodeImage(r fieldReader) (Artifact, error) {
	var (
		v             []byte
		format        string
		width, height int
	)
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	if err := r.read("format", false, &format); err != nil {
		return nil, err
	}
	if err := r.read("width", false, &width); err != nil {
		return nil, err
	}
	if err := r.read("height", false, &height); err != nil {
		return nil, err
	}
	return NewImage(v, format, width, height), nil
}

func decodeAudio(r fieldReader) (Artifact, error) {
	var (
		v      []byte
		format string
	)
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	if err := r.read("format", false, &format); err != nil {
		return nil, err
	}
	return NewAudio(v, format), nil
}

func decodeJSON(r fieldReader) (Artifact, error) {
	var v any
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	normalized, err := normalizeJSON(v)
	if err != nil {
		return nil, r.fail("value", err)
	}
	return &JsonArtifact{Value: normalized}, nil
}

func decodeCsvRow(r fieldReader) (Artifact, error) {
	var (
		row       Row
		delimiter string
	)
	if err := r.read("value", true, &row); err != nil {
		return nil, err
	}
	if err := r.read("delimiter", false, &delimiter); err != nil {
		return nil, err
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &CsvRowArtifact{Value: row, Delimiter: delimiter}, nil
}

func decodeTable(r fieldReader) (Artifact, error) {
	var (
		rows       []Row
		fieldNames []string
		delimiter  string
	)
	if err := r.read("value", true, &rows); err != nil {
		return nil, err
	}
	if err := r.read("field_names", false, &fieldNames); err != nil {
		return nil, err
	}
	if err := r.read("delimiter", false, &delimiter); err != nil {
		return nil, err
	}
	return NewTable(rows, fieldNames, delimiter), nil
}

func decodeList(r fieldReader) (Artifact, error) {
	if !r.has("value") {
		return nil, r.fail("value", ErrMissingField)
	}

	var items []Artifact
	switch v := r.d["value"].(type) {
	case []any:
		for i, item := range v {
			d, ok := item.(map[string]any)
			if !ok {
				return nil, r.fail("value", fmt.Errorf("item %d is %T", i, item))
			}
			a, err := FromDict(d)
			if err != nil {
				return nil, r.fail("value", fmt.Errorf("item %d: %w", i, err))
			}
			items = append(items, a)
		}
	case []map[string]any:
		for i, d := range v {
			a, err := FromDict(d)
			if err != nil {
				return nil, r.fail("value", fmt.Errorf("item %d: %w", i, err))
			}
			items = append(items, a)
		}
	default:
		var raw []json.RawMessage
		if err := r.read("value", true, &raw); err != nil {
			return nil, err
		}
		for i, data := range raw {
			a, err := FromJSON(data)
			if err != nil {
				return nil, r.fail("value", fmt.Errorf("item %d: %w", i, err))
			}
			items = append(items, a)
		}
	}
	return NewList(items...), nil
}

func decodeAction(r fieldReader) (Artifact, error) {
	var v ToolAction
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	return NewAction(v), nil
}

func decodeGeneric(r fieldReader) (Artifact, error) {
	var v any
	if err := r.read("value", true, &v); err != nil {
		return nil, err
	}
	return NewGeneric(v), nil
}
