package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/exam-assets/pkg/examfolders"
)

const (
	objectsDir = "objects"
	metaDir    = "meta"
	metaExt    = ".json"
)

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory holding the objects and meta trees
}

// Backend is a filesystem implementation of the examfolders.ObjectStore interface.
// Object bytes live under <BaseDir>/objects/<key>; content type, metadata and
// creation time live in a JSON sidecar under <BaseDir>/meta/<key>.json.
type Backend struct {
	mu      sync.RWMutex
	baseDir string
}

type sidecar struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	for _, dir := range []string{objectsDir, metaDir} {
		if err := os.MkdirAll(filepath.Join(config.BaseDir, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

// Exists reports whether the base directory is present
func (b *Backend) Exists(ctx context.Context) (bool, error) {
	info, err := os.Stat(filepath.Join(b.baseDir, objectsDir))
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat base directory: %w", err)
	}
	return info.IsDir(), nil
}

func (b *Backend) paths(key string) (string, string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", "", fmt.Errorf("invalid object key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", "", fmt.Errorf("invalid object key %q", key)
		}
	}
	rel := filepath.FromSlash(key)
	return filepath.Join(b.baseDir, objectsDir, rel), filepath.Join(b.baseDir, metaDir, rel+metaExt), nil
}

// Put writes the object and its sidecar. Overwriting keeps the creation time.
func (b *Backend) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	objPath, metaPath, err := b.paths(key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range []string{objPath, metaPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(objPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	sc := sidecar{ContentType: contentType, Metadata: metadata, CreatedAt: time.Now().UTC()}
	if prev, err := readSidecar(metaPath); err == nil {
		sc.CreatedAt = prev.CreatedAt
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func readSidecar(path string) (*sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// List walks the objects tree and returns objects whose key starts with prefix
func (b *Backend) List(ctx context.Context, prefix, delimiter string) ([]examfolders.ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	root := filepath.Join(b.baseDir, objectsDir)
	result := make([]examfolders.ObjectInfo, 0)

	err := filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		if delimiter != "" && strings.Contains(key[len(prefix):], delimiter) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		obj := examfolders.ObjectInfo{
			Key:       key,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			UpdatedAt: info.ModTime(),
		}
		_, metaPath, _ := b.paths(key)
		if sc, err := readSidecar(metaPath); err == nil {
			obj.ContentType = sc.ContentType
			obj.Metadata = sc.Metadata
			obj.CreatedAt = sc.CreatedAt
		}
		result = append(result, obj)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk objects: %w", err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Delete removes the object and its sidecar
func (b *Backend) Delete(ctx context.Context, key string) error {
	objPath, metaPath, err := b.paths(key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := os.Stat(objPath); errors.Is(err, iofs.ErrNotExist) {
		return examfolders.ErrObjectNotFound
	}
	if err := os.Remove(objPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	_ = os.Remove(metaPath)

	b.cleanupEmptyDirectories(filepath.Dir(objPath), filepath.Join(b.baseDir, objectsDir))
	b.cleanupEmptyDirectories(filepath.Dir(metaPath), filepath.Join(b.baseDir, metaDir))
	return nil
}

// cleanupEmptyDirectories removes empty directories up to stop
func (b *Backend) cleanupEmptyDirectories(dir, stop string) {
	if dir == stop {
		return
	}
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir), stop)
		}
	}
}
