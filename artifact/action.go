package artifact

import "fmt"

// ToolAction describes a tool invocation requested by a model.
type ToolAction struct {
	Tag   string         `json:"tag"`
	Name  string         `json:"name"`
	Path  string         `json:"path,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// ActionArtifact wraps a ToolAction.
type ActionArtifact struct {
	base
	Value ToolAction
}

// NewAction creates an action artifact.
func NewAction(action ToolAction) *ActionArtifact {
	return &ActionArtifact{Value: action}
}

func (a *ActionArtifact) Tag() Tag   { return TagAction }
func (a *ActionArtifact) value() any { return a.Value }

func (a *ActionArtifact) ToText() string {
	text, err := canonicalJSON(a.Value)
	if err != nil {
		return fmt.Sprintf("%s.%s", a.Value.Name, a.Value.Path)
	}
	return text
}

func (a *ActionArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value}, nil
}

// GenericArtifact holds an arbitrary value that no other variant fits.
type GenericArtifact struct {
	base
	Value any
}

// NewGeneric creates a generic artifact.
func NewGeneric(v any) *GenericArtifact {
	return &GenericArtifact{Value: v}
}

func (a *GenericArtifact) Tag() Tag       { return TagGeneric }
func (a *GenericArtifact) value() any     { return a.Value }
func (a *GenericArtifact) ToText() string { return fmt.Sprint(a.Value) }

func (a *GenericArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value}, nil
}
