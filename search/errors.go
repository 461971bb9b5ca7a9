package search

import "errors"

var (
	ErrStoreRequired    = errors.New("search: vector store is required")
	ErrEmbedderRequired = errors.New("search: embedder is required")

	// ErrEmptyQuery is returned for blank query text.
	ErrEmptyQuery = errors.New("search: empty query")
)
