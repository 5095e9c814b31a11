package examfolders

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the interface for object storage backends.
// Keys are flat strings; "folders" exist only by prefix convention.
type ObjectStore interface {
	// Exists reports whether the configured bucket is reachable
	Exists(ctx context.Context) (bool, error)

	// Put writes an object, overwriting any existing object at key
	Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error

	// List returns objects whose key starts with prefix. A non-empty delimiter
	// restricts the result to keys with no delimiter after the prefix.
	List(ctx context.Context, prefix, delimiter string) ([]ObjectInfo, error)

	// Delete removes an object
	Delete(ctx context.Context, key string) error
}

// ObjectInfo describes an object returned by a listing
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Metadata    map[string]string
}

// ConfigChecker reports configuration settings that are required but absent.
type ConfigChecker interface {
	MissingSettings() []string
}
