package loader

import (
	"runtime"

	"github.com/panjf2000/ants/v2"
)

// DefaultPoolSize is runtime.NumCPU() / 2, with a minimum of 1.
func DefaultPoolSize() int {
	size := runtime.NumCPU() / 2
	if size < 1 {
		size = 1
	}
	return size
}

// NewPool creates a bounded worker pool for collection loads. Sizes below 1
// are raised to 1. The caller owns the pool and must Release it.
func NewPool(size int) (*ants.Pool, error) {
	if size < 1 {
		size = 1
	}
	return ants.NewPool(size)
}
