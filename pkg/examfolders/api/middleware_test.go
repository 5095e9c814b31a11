package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/exam-assets/pkg/examfolders"
	"github.com/tendant/exam-assets/pkg/examfolders/api"
	memorystorage "github.com/tendant/exam-assets/pkg/examfolders/storage/memory"
)

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{method, route, status})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(api.RequestLogger(log))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "store unavailable", http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "/boom", entry["path"])
	assert.EqualValues(t, http.StatusInternalServerError, entry["status"])
	assert.EqualValues(t, len("store unavailable\n"), entry["bytes"])
}

func TestObserveUsesRoutePattern(t *testing.T) {
	store := memorystorage.New()
	handler := api.NewHandler(store, cardiovascular(), "Patient Y", examfolders.NewUploader(store, "exam-bucket", "Patient Y"), nil)
	o := &recordingObserver{}

	root := chi.NewRouter()
	root.Use(api.Observe(o))
	root.Mount("/api/v1", handler.Routes())

	root.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/plan", nil))
	root.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))

	require.Len(t, o.obs, 2)
	assert.Equal(t, observation{http.MethodGet, "/api/v1/plan", http.StatusOK}, o.obs[0])
	assert.Equal(t, observation{http.MethodGet, "/api/v1/files", http.StatusBadRequest}, o.obs[1])
}
