package artifact

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Error handling modes for BlobArtifact.EncodingErrors.
const (
	EncodingErrorsStrict  = "strict"
	EncodingErrorsReplace = "replace"
	EncodingErrorsIgnore  = "ignore"
)

const (
	DefaultEncoding  = "utf-8"
	DefaultMediaType = "application/octet-stream"
)

// BlobArtifact holds raw bytes. Only Value is serialized.
type BlobArtifact struct {
	base
	Value []byte

	// Encoding names the character set used by ToText, by WHATWG label.
	Encoding string

	// EncodingErrors selects how ToText treats undecodable bytes. "strict" and
	// "replace" substitute U+FFFD; "ignore" drops them.
	EncodingErrors string

	// MediaType is the sniffed or declared MIME type of Value.
	MediaType string
}

// NewBlob creates a blob artifact. Byte slices are kept as is; any other
// value is converted to the UTF-8 bytes of its string form. A nil value
// yields an empty blob rather than the bytes of a printed "<nil>".
func NewBlob(v any) *BlobArtifact {
	return &BlobArtifact{
		Value:          toBytes(v),
		Encoding:       DefaultEncoding,
		EncodingErrors: EncodingErrorsStrict,
		MediaType:      DefaultMediaType,
	}
}

func (a *BlobArtifact) Tag() Tag   { return TagBlob }
func (a *BlobArtifact) value() any { return a.Value }

func (a *BlobArtifact) ToText() string {
	return decodeBytes(a.Value, a.Encoding, a.EncodingErrors)
}

func (a *BlobArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value}, nil
}

// Len returns the size of the blob in bytes.
func (a *BlobArtifact) Len() int { return len(a.Value) }

// ImageArtifact holds encoded image bytes.
type ImageArtifact struct {
	base
	Value  []byte
	Format string
	Width  int
	Height int
}

// NewImage creates an image artifact. Value coercion follows NewBlob. An
// empty format defaults to png.
func NewImage(v any, format string, width, height int) *ImageArtifact {
	if format == "" {
		format = "png"
	}
	return &ImageArtifact{Value: toBytes(v), Format: format, Width: width, Height: height}
}

func (a *ImageArtifact) Tag() Tag   { return TagImage }
func (a *ImageArtifact) value() any { return a.Value }

// ToText returns the standard base64 encoding of the image bytes.
func (a *ImageArtifact) ToText() string {
	return base64.StdEncoding.EncodeToString(a.Value)
}

// MimeType returns the image MIME type derived from Format.
func (a *ImageArtifact) MimeType() string {
	return "image/" + a.Format
}

func (a *ImageArtifact) fields() (map[string]any, error) {
	return map[string]any{
		"value":  a.Value,
		"format": a.Format,
		"width":  a.Width,
		"height": a.Height,
	}, nil
}

// AudioArtifact holds encoded audio bytes.
type AudioArtifact struct {
	base
	Value  []byte
	Format string
}

// NewAudio creates an audio artifact. Value coercion follows NewBlob.
func NewAudio(v any, format string) *AudioArtifact {
	return &AudioArtifact{Value: toBytes(v), Format: format}
}

func (a *AudioArtifact) Tag() Tag   { return TagAudio }
func (a *AudioArtifact) value() any { return a.Value }

func (a *AudioArtifact) ToText() string {
	return fmt.Sprintf("Audio, format: %s, size: %d bytes", a.Format, len(a.Value))
}

// MimeType returns the audio MIME type derived from Format.
func (a *AudioArtifact) MimeType() string {
	return "audio/" + a.Format
}

func (a *AudioArtifact) fields() (map[string]any, error) {
	return map[string]any{"value": a.Value, "format": a.Format}, nil
}

func toBytes(v any) []byte {
	switch b := v.(type) {
	case []byte:
		return b
	case string:
		return []byte(b)
	case fmt.Stringer:
		return []byte(b.String())
	case nil:
		return []byte{}
	default:
		return []byte(fmt.Sprint(v))
	}
}

// decodeBytes converts data to a UTF-8 string using the named encoding.
// Unknown encodings fall back to UTF-8.
func decodeBytes(data []byte, encoding, errorsMode string) string {
	replacement := "\uFFFD"
	if errorsMode == EncodingErrorsIgnore {
		replacement = ""
	}

	enc, err := htmlindex.Get(encoding)
	if err != nil || enc == unicode.UTF8 {
		return strings.ToValidUTF8(string(data), replacement)
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), replacement)
	}
	text := string(decoded)
	if errorsMode == EncodingErrorsIgnore {
		text = strings.ReplaceAll(text, "\uFFFD", "")
	}
	return text
}
