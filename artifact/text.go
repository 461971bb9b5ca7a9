package artifact

// TextArtifact holds plain text.
type TextArtifact struct {
	base
	Value string
}

// NewText creates a text artifact.
func NewText(value string) *TextArtifact {
	return &TextArtifact{Value: value}
}

func (a *TextArtifact) Tag() Tag       { return TagText }
func (a *TextArtifact) ToText() string { return a.Value }
func (a *TextArtifact) value() any     { return a.Value }

func (a *TextArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value}, nil
}

// Len returns the length of the text in bytes.
func (a *TextArtifact) Len() int { return len(a.Value) }

// InfoArtifact carries an informational message produced by the system
// rather than by a loader.
type InfoArtifact struct {
	base
	Value string
}

// NewInfo creates an informational artifact.
func NewInfo(message string) *InfoArtifact {
	return &InfoArtifact{Value: message}
}

func (a *InfoArtifact) Tag() Tag       { return TagInfo }
func (a *InfoArtifact) ToText() string { return systemText(a.Value) }
func (a *InfoArtifact) value() any     { return a.Value }

func (a *InfoArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value}, nil
}

// ErrorArtifact carries an error message. Err is kept for callers that
// want the original error but is lost on serialization.
type ErrorArtifact struct {
	base
	Value string
	Err   error
}

// NewError creates an error artifact from err. A nil err yields an empty message.
func NewError(err error) *ErrorArtifact {
	a := &ErrorArtifact{Err: err}
	if err != nil {
		a.Value = err.Error()
	}
	return a
}

func (a *ErrorArtifact) Tag() Tag       { return TagError }
func (a *ErrorArtifact) ToText() string { return systemText(a.Value) }
func (a *ErrorArtifact) value() any     { return a.Value }

func (a *ErrorArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value}, nil
}

// Error returns the message, so an ErrorArtifact can travel as an error.
func (a *ErrorArtifact) Error() string { return a.Value }

// Unwrap exposes the original error to errors.Is and errors.As.
func (a *ErrorArtifact) Unwrap() error { return a.Err }

// systemText is the rendering shared by system-produced artifacts.
func systemText(message string) string {
	return message
}
