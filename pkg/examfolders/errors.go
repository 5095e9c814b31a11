package examfolders

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrBucketNotFound indicates the bucket does not exist or is not accessible
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrObjectNotFound indicates an object was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrCategoryRequired indicates a location without a category
	ErrCategoryRequired = errors.New("category is required")

	// ErrSubcategoryRequired indicates a location with an item but no subcategory
	ErrSubcategoryRequired = errors.New("subcategory is required when item is set")

	// ErrInvalidTaxonomy indicates a taxonomy name that cannot become a key segment
	ErrInvalidTaxonomy = errors.New("invalid taxonomy")

	// ErrFileNameRequired indicates an upload whose file name sanitizes to nothing
	ErrFileNameRequired = errors.New("file name is empty after sanitization")
)

// ConfigurationError reports required settings that are absent.
// It is raised before any network call.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// ConnectivityError reports an unreachable bucket or a failed write check
type ConnectivityError struct {
	Bucket string
	Op     string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connectivity check %s failed for bucket %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// MaterializationError records a single failed marker write or delete inside a batch
type MaterializationError struct {
	Path string
	Err  error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("materialization failed for %s: %v", e.Path, e.Err)
}

func (e *MaterializationError) Unwrap() error {
	return e.Err
}

// UploadError reports a failed media upload together with the attempted key
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for key %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
