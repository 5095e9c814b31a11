package examfolders

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	// MarkerContentType is the content type of folder marker objects
	MarkerContentType = "text/plain"

	// DefaultCreatedBy is recorded in marker metadata when no owner is configured
	DefaultCreatedBy = "PatientYFolderManager"
)

// FailedPath is a folder whose marker could not be written or deleted
type FailedPath struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Reason returns the failure cause as text
func (f FailedPath) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

func (f FailedPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path   string `json:"path"`
		Reason string `json:"reason"`
	}{f.Path, f.Reason()})
}

// BatchResult is the outcome of a materialization batch. Every planned folder
// appears in exactly one of Created, Failed or Skipped.
type BatchResult struct {
	Created []string     `json:"created"`
	Failed  []FailedPath `json:"failed"`
	// Skipped lists folders never attempted because the batch was cancelled
	Skipped []string `json:"skipped,omitempty"`
}

// OK reports whether every planned folder was created
func (r *BatchResult) OK() bool {
	return len(r.Failed) == 0 && len(r.Skipped) == 0
}

// CleanupResult is the outcome of a marker cleanup batch
type CleanupResult struct {
	Deleted []string     `json:"deleted"`
	Failed  []FailedPath `json:"failed"`
}

// MarkerManager creates and removes folder marker objects
type MarkerManager struct {
	store       ObjectStore
	createdBy   string
	concurrency int
	logger      *slog.Logger
}

// MarkerOption represents a functional option for configuring a MarkerManager
type MarkerOption func(*MarkerManager)

// WithCreatedBy sets the created_by value recorded on markers
func WithCreatedBy(createdBy string) MarkerOption {
	return func(m *MarkerManager) {
		if createdBy != "" {
			m.createdBy = createdBy
		}
	}
}

// WithConcurrency bounds the number of marker writes in flight. Values below 1
// mean sequential processing.
func WithConcurrency(n int) MarkerOption {
	return func(m *MarkerManager) {
		if n < 1 {
			n = 1
		}
		m.concurrency = n
	}
}

// WithMarkerLogger sets the logger
func WithMarkerLogger(logger *slog.Logger) MarkerOption {
	return func(m *MarkerManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMarkerManager creates a MarkerManager writing to store
func NewMarkerManager(store ObjectStore, opts ...MarkerOption) *MarkerManager {
	m := &MarkerManager{
		store:       store,
		createdBy:   DefaultCreatedBy,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeFailed
)

// Materialize writes one marker per planned folder. A failed write never aborts
// the batch; failures are collected in the result. If ctx is cancelled, folders
// not yet attempted are reported as skipped. Results keep plan order.
func (m *MarkerManager) Materialize(ctx context.Context, folders []PlannedFolder) *BatchResult {
	outcomes := make([]outcome, len(folders))
	errs := make([]error, len(folders))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, folder := range folders {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := m.writeMarker(ctx, folder); err != nil {
				outcomes[i] = outcomeFailed
				errs[i] = &MaterializationError{Path: folder.Path, Err: err}
				m.logger.Error("Failed to create folder", "path", folder.Path, "err", err)
				return nil
			}
			outcomes[i] = outcomeCreated
			m.logger.Debug("Created folder", "path", folder.Path, "depth", folder.Depth)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{
		Created: make([]string, 0, len(folders)),
		Failed:  []FailedPath{},
	}
	for i, folder := range folders {
		switch outcomes[i] {
		case outcomeCreated:
			result.Created = append(result.Created, folder.Path)
		case outcomeFailed:
			result.Failed = append(result.Failed, FailedPath{Path: folder.Path, Err: errs[i]})
		default:
			result.Skipped = append(result.Skipped, folder.Path)
		}
	}

	m.logger.Info("Materialized folders",
		"planned", len(folders),
		"created", len(result.Created),
		"failed", len(result.Failed),
		"skipped", len(result.Skipped))
	return result
}

func (m *MarkerManager) writeMarker(ctx context.Context, folder PlannedFolder) error {
	metadata := folder.Location.Metadata()
	metadata["purpose"] = "folder_marker"
	metadata["created_by"] = m.createdBy
	if folder.Description != "" {
		metadata["description"] = folder.Description
	}
	return m.store.Put(ctx, MarkerKey(folder.Path), bytes.NewReader(nil), MarkerContentType, metadata)
}

// Cleanup deletes every marker object under basePath. Deletion continues past
// individual failures. The returned error is non-nil only when the listing fails.
func (m *MarkerManager) Cleanup(ctx context.Context, basePath string) (*CleanupResult, error) {
	objects, err := m.store.List(ctx, FolderPrefix(joinKey(basePath)), "")
	if err != nil {
		return nil, err
	}

	var markers []string
	for _, obj := range objects {
		if IsMarker(obj.Key) {
			markers = append(markers, obj.Key)
		}
	}
	sort.Strings(markers)

	deleted := make([]bool, len(markers))
	errs := make([]error, len(markers))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, key := range markers {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		g.Go(func() error {
			if err := m.store.Delete(ctx, key); err != nil {
				errs[i] = err
				m.logger.Error("Failed to delete marker", "key", key, "err", err)
				return nil
			}
			deleted[i] = true
			m.logger.Debug("Deleted marker", "key", key)
			return nil
		})
	}
	_ = g.Wait()

	result := &CleanupResult{
		Deleted: make([]string, 0, len(markers)),
		Failed:  []FailedPath{},
	}
	for i, key := range markers {
		if deleted[i] {
			result.Deleted = append(result.Deleted, key)
		} else {
			result.Failed = append(result.Failed, FailedPath{Path: key, Err: &MaterializationError{Path: key, Err: errs[i]}})
		}
	}

	m.logger.Info("Cleaned up folder markers", "deleted", len(result.Deleted), "failed", len(result.Failed))
	return result, nil
}
