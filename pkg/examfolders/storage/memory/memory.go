package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/exam-assets/pkg/examfolders"
)

type object struct {
	data        []byte
	contentType string
	metadata    map[string]string
	createdAt   time.Time
	updatedAt   time.Time
}

// Backend is an in-memory implementation of the examfolders.ObjectStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]*object
	now     func() time.Time
}

// Option configures the memory backend
type Option func(*Backend)

// WithClock overrides the time source used for object timestamps
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// New creates a new in-memory storage backend
func New(opts ...Option) *Backend {
	b := &Backend{
		objects: make(map[string]*object),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Exists always reports true; the in-memory bucket is always reachable
func (b *Backend) Exists(ctx context.Context) (bool, error) {
	return true, nil
}

// Put stores an object. Overwriting keeps the original creation time.
func (b *Backend) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}

	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	obj := &object{
		data:        data,
		contentType: contentType,
		metadata:    md,
		createdAt:   now,
		updatedAt:   now,
	}
	if prev, ok := b.objects[key]; ok {
		obj.createdAt = prev.createdAt
	}
	b.objects[key] = obj
	return nil
}

// List returns objects under prefix in key order
func (b *Backend) List(ctx context.Context, prefix, delimiter string) ([]examfolders.ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]examfolders.ObjectInfo, 0)
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if delimiter != "" && strings.Contains(key[len(prefix):], delimiter) {
			continue
		}
		md := make(map[string]string, len(obj.metadata))
		for k, v := range obj.metadata {
			md[k] = v
		}
		result = append(result, examfolders.ObjectInfo{
			Key:         key,
			Size:        int64(len(obj.data)),
			ContentType: obj.contentType,
			CreatedAt:   obj.createdAt,
			UpdatedAt:   obj.updatedAt,
			Metadata:    md,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Delete removes an object
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.objects[key]; !ok {
		return examfolders.ErrObjectNotFound
	}
	delete(b.objects, key)
	return nil
}

// Get returns the stored bytes of an object
func (b *Backend) Get(key string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
