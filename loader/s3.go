package loader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/poiesic/artifex/core"
)

// ObjectLocator names an object in an S3-compatible store.
type ObjectLocator struct {
	Bucket string
	Key    string
}

// String returns the s3:// URL of the object.
func (l ObjectLocator) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// ParseObjectLocator parses an s3://bucket/key URL.
func ParseObjectLocator(raw string) (ObjectLocator, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ObjectLocator{}, err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return ObjectLocator{}, fmt.Errorf("not an s3 url: %q", raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return ObjectLocator{}, fmt.Errorf("s3 url has no object key: %q", raw)
	}
	return ObjectLocator{Bucket: u.Host, Key: key}, nil
}

// ObjectReader opens objects in an object store.
type ObjectReader interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// S3Fetcher reads objects named by an ObjectLocator or an s3:// URL.
type S3Fetcher struct {
	Reader ObjectReader
}

// Fetch downloads the whole object.
func (f S3Fetcher) Fetch(ctx context.Context, source any) ([]byte, error) {
	var loc ObjectLocator
	switch s := source.(type) {
	case ObjectLocator:
		loc = s
	case *ObjectLocator:
		loc = *s
	case string:
		parsed, err := ParseObjectLocator(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrFetch, err)
		}
		loc = parsed
	default:
		return nil, fmt.Errorf("%w: unsupported source type %T", core.ErrFetch, source)
	}

	rc, err := f.Reader.GetObject(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrFetch, loc, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrFetch, loc, err)
	}
	return data, nil
}

// S3Config configures a MinioObjectReader.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// MinioObjectReader implements ObjectReader with minio-go.
type MinioObjectReader struct {
	client *minio.Client
}

// NewMinioObjectReader connects to an S3-compatible endpoint.
func NewMinioObjectReader(cfg S3Config) (*MinioObjectReader, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &MinioObjectReader{client: client}, nil
}

// GetObject opens bucket/key and stats it so missing objects fail here
// rather than on first read.
func (r *MinioObjectReader) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := r.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// NewS3Loader creates a loader that reads objects through reader and parses
// them with parser.
func NewS3Loader(reader ObjectReader, parser Parser, opts ...Option) (*Base, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: object reader is nil", ErrFetcherRequired)
	}
	return NewBase("s3", S3Fetcher{Reader: reader}, parser, opts...)
}
