package storage

import (
	"context"
	"time"
)

// ObjectInfo describes one stored object as returned by List
type ObjectInfo struct {
	Name      string // name relative to the listed prefix
	Size      int64
	UpdatedAt time.Time
}

// UploadOptions control how an object is written to the store
type UploadOptions struct {
	ContentType  string
	CacheControl string // max-age in seconds, e.g. "3600"
	Upsert       bool   // overwrite an existing object at the same path
}

// Gateway defines the interface for the remote media store.
// This is a port that can be implemented by different infrastructure adapters.
type Gateway interface {
	// SignURL returns a time-limited URL for reading the object at path
	SignURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Download reads the object at path into memory
	Download(ctx context.Context, path string) ([]byte, error)

	// Upload writes data to the object at path
	Upload(ctx context.Context, path string, data []byte, opts UploadOptions) error

	// List returns the objects stored under the given directory prefix
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
