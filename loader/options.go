package loader

import "github.com/poiesic/artifex/artifact"

// Options carries per-load settings to parsers. Zero values mean "use the
// parser default".
type Options struct {
	// Encoding names the character set of text content, by WHATWG label.
	Encoding string

	// EncodingErrors selects how undecodable bytes are handled. See
	// artifact.EncodingErrorsStrict and friends.
	EncodingErrors string

	// Delimiter separates CSV fields.
	Delimiter string

	// Password decrypts protected documents.
	Password string

	// Reference is attached to the loaded artifact.
	Reference artifact.Reference
}

// LoadOption sets a field of Options.
type LoadOption func(*Options)

// WithReference attaches provenance to the loaded artifact.
func WithReference(ref artifact.Reference) LoadOption {
	return func(o *Options) {
		o.Reference = ref
	}
}

// WithPassword sets the password used to open encrypted documents.
func WithPassword(password string) LoadOption {
	return func(o *Options) {
		o.Password = password
	}
}

// WithEncoding sets the character encoding of text content.
func WithEncoding(encoding string) LoadOption {
	return func(o *Options) {
		o.Encoding = encoding
	}
}

// WithEncodingErrors sets how undecodable bytes are handled.
func WithEncodingErrors(mode string) LoadOption {
	return func(o *Options) {
		o.EncodingErrors = mode
	}
}

// WithDelimiter sets the CSV field delimiter.
func WithDelimiter(delimiter string) LoadOption {
	return func(o *Options) {
		o.Delimiter = delimiter
	}
}

func newOptions(opts []LoadOption) *Options {
	o := &Options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *Options) encoding() string {
	if o == nil || o.Encoding == "" {
		return artifact.DefaultEncoding
	}
	return o.Encoding
}

func (o *Options) encodingErrors() string {
	if o == nil || o.EncodingErrors == "" {
		return artifact.EncodingErrorsStrict
	}
	return o.EncodingErrors
}

func (o *Options) delimiter() string {
	if o == nil || o.Delimiter == "" {
		return artifact.DefaultDelimiter
	}
	return o.Delimiter
}
