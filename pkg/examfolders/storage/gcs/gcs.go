package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tendant/exam-assets/pkg/examfolders"
)

// Config options for the Google Cloud Storage backend
type Config struct {
	ProjectID   string // Google Cloud project ID
	Bucket      string // Bucket name
	ClientEmail string // Service account email
	PrivateKey  string // Service account PEM private key; literal "\n" sequences are expanded
	Endpoint    string // Optional JSON API endpoint, e.g. a local emulator; unauthenticated without credentials
}

// Backend is a Google Cloud Storage implementation of the examfolders.ObjectStore interface
type Backend struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// New creates a GCS backend authenticated as the configured service account
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	var opts []option.ClientOption
	hasCreds := config.ClientEmail != "" && config.PrivateKey != ""
	if hasCreds {
		creds, err := CredentialsJSON(config)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
		// emulators take unauthenticated requests
		if !hasCreds {
			opts = append(opts, option.WithoutAuthentication())
		}
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Backend{
		client: client,
		bucket: client.Bucket(config.Bucket),
		name:   config.Bucket,
	}, nil
}

// CredentialsJSON builds a service-account credentials document from config
func CredentialsJSON(config Config) ([]byte, error) {
	doc := map[string]string{
		"type":         "service_account",
		"project_id":   config.ProjectID,
		"client_email": config.ClientEmail,
		"private_key":  NormalizePrivateKey(config.PrivateKey),
		"token_uri":    "https://oauth2.googleapis.com/token",
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}
	return data, nil
}

// NormalizePrivateKey expands escaped newlines, as found in single-line env values
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// Close releases the underlying client
func (b *Backend) Close() error {
	return b.client.Close()
}

// Exists reports whether the bucket is reachable
func (b *Backend) Exists(ctx context.Context) (bool, error) {
	_, err := b.bucket.Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get bucket attributes: %w", err)
	}
	return true, nil
}

// Put writes an object with its content type and custom metadata
func (b *Backend) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	w := b.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}
	return nil
}

// List iterates objects under prefix. Synthetic prefix entries produced by a
// delimiter are skipped.
func (b *Backend) List(ctx context.Context, prefix, delimiter string) ([]examfolders.ObjectInfo, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: delimiter})

	result := make([]examfolders.ObjectInfo, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list GCS objects: %w", err)
		}
		if attrs.Name == "" {
			continue
		}
		result = append(result, examfolders.ObjectInfo{
			Key:         attrs.Name,
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			CreatedAt:   attrs.Created,
			UpdatedAt:   attrs.Updated,
			Metadata:    attrs.Metadata,
		})
	}
	return result, nil
}

// Delete deletes an object
func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return examfolders.ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}
	return nil
}
