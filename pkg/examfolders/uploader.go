package examfolders

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultContentType is used when an upload does not name one
	DefaultContentType = "application/octet-stream"

	// DefaultPublicBaseURL is the public host objects are served from
	DefaultPublicBaseURL = "https://storage.googleapis.com"

	// DefaultUploadedBy is recorded in upload metadata when no owner is configured
	DefaultUploadedBy = "PhysicalExamFolderManager"
)

// Uploader writes media files into taxonomy folders
type Uploader struct {
	store         ObjectStore
	basePath      string
	bucket        string
	publicBaseURL string
	uploadedBy    string
	now           func() time.Time
	logger        *slog.Logger
}

// UploaderOption represents a functional option for configuring an Uploader
type UploaderOption func(*Uploader)

// WithPublicBaseURL sets the host prefix used by PublicURL
func WithPublicBaseURL(baseURL string) UploaderOption {
	return func(u *Uploader) {
		if baseURL != "" {
			u.publicBaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithUploadedBy sets the uploaded_by value recorded on uploads
func WithUploadedBy(uploadedBy string) UploaderOption {
	return func(u *Uploader) {
		if uploadedBy != "" {
			u.uploadedBy = uploadedBy
		}
	}
}

// WithClock overrides the time source for uploaded_at
func WithClock(now func() time.Time) UploaderOption {
	return func(u *Uploader) {
		if now != nil {
			u.now = now
		}
	}
}

// WithUploaderLogger sets the logger
func WithUploaderLogger(logger *slog.Logger) UploaderOption {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// NewUploader creates an Uploader for bucket, rooted at basePath
func NewUploader(store ObjectStore, bucket, basePath string, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		store:         store,
		basePath:      basePath,
		bucket:        bucket,
		publicBaseURL: DefaultPublicBaseURL,
		uploadedBy:    DefaultUploadedBy,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload writes content as fileName inside the folder at loc and returns the key.
// An empty contentType falls back to DefaultContentType. Failures are returned as
// *UploadError; there is no retry.
func (u *Uploader) Upload(ctx context.Context, loc Location, fileName string, content []byte, contentType string) (string, error) {
	key := FilePath(u.basePath, loc, fileName)

	if err := loc.Validate(); err != nil {
		return "", &UploadError{Key: key, Err: err}
	}
	if Sanitize(fileName) == "" {
		return "", &UploadError{Key: key, Err: ErrFileNameRequired}
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	metadata := loc.Metadata()
	metadata["uploaded_by"] = u.uploadedBy
	metadata["uploaded_at"] = u.now().UTC().Format(time.RFC3339)

	if err := u.store.Put(ctx, key, bytes.NewReader(content), contentType, metadata); err != nil {
		u.logger.Error("Failed to upload file", "key", key, "err", err)
		return "", &UploadError{Key: key, Err: err}
	}

	u.logger.Info("Uploaded file", "key", key, "size", len(content), "content_type", contentType)
	return key, nil
}

// PublicURL derives the public URL of key. It performs no I/O.
func (u *Uploader) PublicURL(key string) string {
	return u.publicBaseURL + "/" + u.bucket + "/" + strings.TrimLeft(key, "/")
}

// Delete removes the object at key. Failure is logged and reported as false.
func (u *Uploader) Delete(ctx context.Context, key string) bool {
	if err := u.store.Delete(ctx, key); err != nil {
		u.logger.Error("Failed to delete file", "key", key, "err", err)
		return false
	}
	u.logger.Info("Deleted file", "key", key)
	return true
}
