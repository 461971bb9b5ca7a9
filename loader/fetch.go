package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/poiesic/artifex/core"
)

// FileFetcher reads content from a file path (string), an in-memory byte
// slice or an io.Reader.
type FileFetcher struct{}

// Fetch returns the bytes of source. Readers are consumed.
func (FileFetcher) Fetch(ctx context.Context, source any) ([]byte, error) {
	switch s := source.(type) {
	case string:
		data, err := os.ReadFile(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrFetch, err)
		}
		return data, nil
	case []byte:
		return s, nil
	case io.Reader:
		data, err := io.ReadAll(s)
		if err != nil {
			return nil, fmt.Errorf("%w: read: %w", core.ErrFetch, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unsupported source type %T", core.ErrFetch, source)
	}
}

// DefaultHTTPTimeout bounds a single HTTP fetch when no client is supplied.
const DefaultHTTPTimeout = 30 * time.Second

// DefaultMaxBodyBytes caps the size of one HTTP response body.
const DefaultMaxBodyBytes = 64 << 20

// HTTPFetcher downloads a URL given as a string.
type HTTPFetcher struct {
	// Client performs requests. Nil means a client with DefaultHTTPTimeout.
	Client *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string

	// MaxBytes rejects larger response bodies. Zero means DefaultMaxBodyBytes.
	MaxBytes int64
}

// Fetch performs a GET request. Transport errors, non-2xx responses and
// bodies over the size limit wrap core.ErrFetch.
func (f HTTPFetcher) Fetch(ctx context.Context, source any) ([]byte, error) {
	url, ok := source.(string)
	if !ok {
		if s, isStringer := source.(fmt.Stringer); isStringer {
			url = s.String()
		} else {
			return nil, fmt.Errorf("%w: unsupported source type %T", core.ErrFetch, source)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrFetch, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d", core.ErrFetch, url, resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", core.ErrFetch, limit)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", core.ErrFetch, err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", core.ErrFetch, limit)
	}
	return buf.Bytes(), nil
}
