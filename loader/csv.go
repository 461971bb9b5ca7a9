package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
)

// CsvParser parses delimited text into a TableArtifact. The first record
// is the header. Every record must have as many fields as the header.
type CsvParser struct{}

func (CsvParser) Parse(raw []byte, opts *Options) (artifact.Artifact, error) {
	text, err := decodeText(raw, opts)
	if err != nil {
		return nil, err
	}
	text = strings.TrimPrefix(text, "\ufeff")

	delimiter := opts.delimiter()
	comma, size := utf8.DecodeRuneInString(delimiter)
	if size != len(delimiter) || comma == utf8.RuneError {
		return nil, fmt.Errorf("%w: delimiter must be a single character, got %q", core.ErrParse, delimiter)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return artifact.NewTable(nil, nil, delimiter), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: csv header: %w", core.ErrParse, err)
	}

	var rows []artifact.Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %w", core.ErrParse, err)
		}
		rows = append(rows, artifact.NewRow(header, record))
	}

	return artifact.NewTable(rows, header, delimiter), nil
}

// NewCsvLoader creates a loader for delimited text files. Set the delimiter
// with WithDefaults(WithDelimiter(...)) or per load.
func NewCsvLoader(opts ...Option) (*Base, error) {
	return NewBase("csv", FileFetcher{}, CsvParser{}, opts...)
}
