package artifact

import (
	"fmt"
	"strings"
)

// ListArtifact is an ordered collection of artifacts it owns exclusively.
type ListArtifact struct {
	base
	Value []Artifact
}

// NewList creates a list artifact from a copy of items.
func NewList(items ...Artifact) *ListArtifact {
	return &ListArtifact{Value: append([]Artifact(nil), items...)}
}

func (a *ListArtifact) Tag() Tag   { return TagList }
func (a *ListArtifact) value() any { return a.Value }

// ToText joins the text of every item with a blank line.
func (a *ListArtifact) ToText() string {
	parts := make([]string, len(a.Value))
	for i, item := range a.Value {
		parts[i] = item.ToText()
	}
	return strings.Join(parts, "\n\n")
}

func (a *ListArtifact) fields() (map[string]any, error) {
	items := make([]any, len(a.Value))
	for i, item := range a.Value {
		d, err := ToDict(item)
		if err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}
		items[i] = d
	}
	return map[string]any{"value": items}, nil
}

// Len returns the number of items.
func (a *ListArtifact) Len() int { return len(a.Value) }

// Append adds items to the end of the list.
func (a *ListArtifact) Append(items ...Artifact) {
	a.Value = append(a.Value, items...)
}
