package loader

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrPoolRequired is returned when a collection loader has no worker pool.
var ErrPoolRequired = errors.New("worker pool required")

// ErrLoaderRequired is returned when a collection loader has no loader.
var ErrLoaderRequired = errors.New("loader required")

// ErrTaskPanicked wraps a panic recovered from a load task.
var ErrTaskPanicked = errors.New("load task panicked")

// CollectionError reports every key whose load failed in a collection.
type CollectionError struct {
	// Failures maps each failed key to its error.
	Failures map[string]error
}

// Error lists the failed keys in sorted order with their causes.
func (e *CollectionError) Error() string {
	keys := e.Keys()
	var b strings.Builder
	fmt.Fprintf(&b, "collection load failed for %d source(s)", len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, "; %s: %v", k, e.Failures[k])
	}
	return b.String()
}

// Keys returns the failed keys in sorted order.
func (e *CollectionError) Keys() []string {
	keys := make([]string, 0, len(e.Failures))
	for k := range e.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unwrap exposes the per-key errors to errors.Is and errors.As.
func (e *CollectionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, k := range e.Keys() {
		errs = append(errs, e.Failures[k])
	}
	return errs
}
