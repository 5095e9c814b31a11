package examfolders

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// FileInfo describes a media file inside a taxonomy folder
type FileInfo struct {
	Name        string            `json:"name"`
	Key         string            `json:"path"`
	Size        int64             `json:"size"`
	ContentType string            `json:"content_type"`
	Created     time.Time         `json:"created"`
	Updated     time.Time         `json:"updated"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// FolderStats aggregates the files under a folder. It is derived from a fresh
// listing on every call and never persisted.
type FolderStats struct {
	TotalFiles int            `json:"total_files"`
	TotalSize  int64          `json:"total_size"`
	FileTypes  map[string]int `json:"file_types"`
	OldestFile *time.Time     `json:"oldest_file"`
	NewestFile *time.Time     `json:"newest_file"`
}

// unknownContentType is the histogram bucket for objects without a content type
const unknownContentType = "unknown"

// Lister reads media files back out of taxonomy folders. Folder markers are
// never returned as files.
type Lister struct {
	store    ObjectStore
	basePath string
	logger   *slog.Logger
}

// NewLister creates a Lister rooted at basePath
func NewLister(store ObjectStore, basePath string, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{store: store, basePath: basePath, logger: logger}
}

// List returns the files stored directly in the folder at loc
func (l *Lister) List(ctx context.Context, loc Location) ([]FileInfo, error) {
	return l.list(ctx, loc, Separator)
}

// ListAll returns the files stored in the folder at loc and all its subfolders
func (l *Lister) ListAll(ctx context.Context, loc Location) ([]FileInfo, error) {
	return l.list(ctx, loc, "")
}

func (l *Lister) list(ctx context.Context, loc Location, delimiter string) ([]FileInfo, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	folder := BuildPath(l.basePath, loc)
	objects, err := l.store.List(ctx, FolderPrefix(folder), delimiter)
	if err != nil {
		l.logger.Error("Failed to list files", "folder", folder, "err", err)
		return nil, fmt.Errorf("failed to list files in %s: %w", folder, err)
	}

	files := make([]FileInfo, 0, len(objects))
	for _, obj := range objects {
		if IsMarker(obj.Key) {
			continue
		}
		files = append(files, FileInfo{
			Name:        BaseName(obj.Key),
			Key:         obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			Created:     obj.CreatedAt,
			Updated:     obj.UpdatedAt,
			Metadata:    obj.Metadata,
		})
	}
	return files, nil
}

// Stats aggregates every file under the folder at loc, subfolders included.
// A folder with no files yields zero counts and nil timestamps, not an error.
func (l *Lister) Stats(ctx context.Context, loc Location) (*FolderStats, error) {
	files, err := l.ListAll(ctx, loc)
	if err != nil {
		return nil, err
	}
	return Aggregate(files), nil
}

// Aggregate folds a file listing into FolderStats
func Aggregate(files []FileInfo) *FolderStats {
	stats := &FolderStats{FileTypes: map[string]int{}}
	for _, f := range files {
		stats.TotalFiles++
		stats.TotalSize += f.Size

		contentType := f.ContentType
		if contentType == "" {
			contentType = unknownContentType
		}
		stats.FileTypes[contentType]++

		created := f.Created
		if stats.OldestFile == nil || created.Before(*stats.OldestFile) {
			stats.OldestFile = &created
		}
		if stats.NewestFile == nil || created.After(*stats.NewestFile) {
			c := created
			stats.NewestFile = &c
		}
	}
	return stats
}
