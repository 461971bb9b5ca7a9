package loader

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
)

// PdfParser extracts the plain text of every page into a ListArtifact of
// TextArtifacts, one per page in page order.
type PdfParser struct{}

func (PdfParser) Parse(raw []byte, opts *Options) (a artifact.Artifact, err error) {
	// The pdf package panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = fmt.Errorf("%w: malformed pdf: %v", core.ErrParse, r)
		}
	}()

	reader, err := openPdf(raw, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: pdf: %w", core.ErrParse, err)
	}

	pages := make([]artifact.Artifact, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, artifact.NewText(""))
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: pdf page %d: %w", core.ErrParse, i, err)
		}
		pages = append(pages, artifact.NewText(text))
	}
	return artifact.NewList(pages...), nil
}

func openPdf(raw []byte, opts *Options) (*pdf.Reader, error) {
	r := bytes.NewReader(raw)
	if opts == nil || opts.Password == "" {
		return pdf.NewReader(r, int64(len(raw)))
	}

	// The callback is asked repeatedly until it returns "".
	tried := false
	return pdf.NewReaderEncrypted(r, int64(len(raw)), func() string {
		if tried {
			return ""
		}
		tried = true
		return opts.Password
	})
}

// NewPdfLoader creates a loader for PDF documents. Encrypted documents need
// WithPassword.
func NewPdfLoader(opts ...Option) (*Base, error) {
	return NewBase("pdf", FileFetcher{}, PdfParser{}, opts...)
}
