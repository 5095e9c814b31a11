package examfolders_test

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/tendant/exam-assets/pkg/examfolders"
	memorystorage "github.com/tendant/exam-assets/pkg/examfolders/storage/memory"
)

// faultyStore wraps the memory backend and injects failures per call
type faultyStore struct {
	*memorystorage.Backend

	mu        sync.Mutex
	calls     []string
	exists    func() (bool, error)
	putErr    func(key string) error
	deleteErr func(key string) error
	listErr   error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Backend: memorystorage.New()}
}

func (s *faultyStore) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
}

func (s *faultyStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *faultyStore) Exists(ctx context.Context) (bool, error) {
	s.record("exists")
	if s.exists != nil {
		return s.exists()
	}
	return s.Backend.Exists(ctx)
}

func (s *faultyStore) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	s.record("put")
	if s.putErr != nil {
		if err := s.putErr(key); err != nil {
			return err
		}
	}
	return s.Backend.Put(ctx, key, body, contentType, metadata)
}

func (s *faultyStore) List(ctx context.Context, prefix, delimiter string) ([]examfolders.ObjectInfo, error) {
	s.record("list")
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Backend.List(ctx, prefix, delimiter)
}

func (s *faultyStore) Delete(ctx context.Context, key string) error {
	s.record("delete")
	if s.deleteErr != nil {
		if err := s.deleteErr(key); err != nil {
			return err
		}
	}
	return s.Backend.Delete(ctx, key)
}

// staticConfig reports a fixed list of missing settings
type staticConfig []string

func (c staticConfig) MissingSettings() []string {
	return c
}

// cardiovascular is the two-folder taxonomy used across tests
func cardiovascular() examfolders.Branch {
	return examfolders.Branch{Entries: []examfolders.Entry{
		examfolders.Sub("Cardiovascular",
			examfolders.Items("Inspection"),
			examfolders.Items("Auscultation"),
		),
	}}
}

func keysOf(objects []examfolders.ObjectInfo) []string {
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	return keys
}

func markerKeys(store examfolders.ObjectStore, prefix string) []string {
	objects, _ := store.List(context.Background(), prefix, "")
	var keys []string
	for _, k := range keysOf(objects) {
		if strings.HasSuffix(k, examfolders.MarkerSuffix) {
			keys = append(keys, k)
		}
	}
	return keys
}
