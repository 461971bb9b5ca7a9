package loader

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// decodeText converts raw to UTF-8 using opts' encoding. Under the strict
// error mode undecodable input is a parse error; otherwise invalid
// sequences are replaced or dropped.
func decodeText(raw []byte, opts *Options) (string, error) {
	name := opts.encoding()
	mode := opts.encodingErrors()

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("%w: unknown encoding %q", core.ErrParse, name)
	}

	var text string
	if enc == unicode.UTF8 {
		text = string(raw)
	} else {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("%w: decode %s: %w", core.ErrParse, name, err)
		}
		text = string(decoded)
	}

	switch mode {
	case artifact.EncodingErrorsIgnore:
		text = strings.ToValidUTF8(text, "")
		if enc != unicode.UTF8 {
			text = strings.ReplaceAll(text, "\uFFFD", "")
		}
	case artifact.EncodingErrorsReplace:
		text = strings.ToValidUTF8(text, "\uFFFD")
	default:
		if !utf8.ValidString(text) {
			return "", fmt.Errorf("%w: invalid %s input", core.ErrParse, name)
		}
		if enc != unicode.UTF8 && strings.ContainsRune(text, utf8.RuneError) {
			return "", fmt.Errorf("%w: undecodable %s input", core.ErrParse, name)
		}
	}
	return text, nil
}

// TextParser decodes raw bytes into a TextArtifact.
type TextParser struct{}

func (TextParser) Parse(raw []byte, opts *Options) (artifact.Artifact, error) {
	text, err := decodeText(raw, opts)
	if err != nil {
		return nil, err
	}
	return artifact.NewText(text), nil
}

// NewTextLoader creates a loader that reads files, byte slices or readers
// as text.
func NewTextLoader(opts ...Option) (*Base, error) {
	return NewBase("text", FileFetcher{}, TextParser{}, opts...)
}

// BlobParser wraps raw bytes in a BlobArtifact with a sniffed media type.
type BlobParser struct{}

func (BlobParser) Parse(raw []byte, opts *Options) (artifact.Artifact, error) {
	blob := artifact.NewBlob(raw)
	blob.Encoding = opts.encoding()
	blob.EncodingErrors = opts.encodingErrors()
	blob.MediaType = sniffMediaType(raw)
	return blob, nil
}

// NewBlobLoader creates a loader that keeps content as raw bytes.
func NewBlobLoader(opts ...Option) (*Base, error) {
	return NewBase("blob", FileFetcher{}, BlobParser{}, opts...)
}

// JSONParser parses raw bytes as JSON text into a JsonArtifact.
type JSONParser struct{}

func (JSONParser) Parse(raw []byte, opts *Options) (artifact.Artifact, error) {
	text, err := decodeText(raw, opts)
	if err != nil {
		return nil, err
	}
	return artifact.NewJSON([]byte(text))
}

// NewJSONLoader creates a loader for JSON documents.
func NewJSONLoader(opts ...Option) (*Base, error) {
	return NewBase("json", FileFetcher{}, JSONParser{}, opts...)
}
