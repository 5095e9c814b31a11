package metrics

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/exam-assets/pkg/examfolders"
)

// StoreMetrics holds Prometheus collectors for object store calls.
type StoreMetrics struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
	objects *prometheus.CounterVec
}

// NewStoreMetrics registers store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "examfolders",
		Subsystem: "store",
		Name:      "ops_total",
		Help:      "Total number of object store operations by result.",
	}, []string{"op", "result"}) // result = "ok" | "error"
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "examfolders",
		Subsystem: "store",
		Name:      "op_duration_seconds",
		Help:      "Histogram of object store operation durations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	objects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "examfolders",
		Subsystem: "store",
		Name:      "listed_objects_total",
		Help:      "Total number of objects returned by listings.",
	}, []string{"kind"}) // kind = "marker" | "file"

	return &StoreMetrics{
		ops:     register(reg, ops),
		latency: register(reg, latency),
		objects: register(reg, objects),
	}
}

// register adds c to reg, reusing an identical collector registered earlier
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// Observe records one store operation
func (m *StoreMetrics) Observe(op string, err error, dur time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(dur.Seconds())
}

// Instrument wraps store so every call is observed by m
func Instrument(store examfolders.ObjectStore, m *StoreMetrics) examfolders.ObjectStore {
	return &instrumented{next: store, m: m}
}

type instrumented struct {
	next examfolders.ObjectStore
	m    *StoreMetrics
}

func (s *instrumented) Exists(ctx context.Context) (bool, error) {
	start := time.Now()
	ok, err := s.next.Exists(ctx)
	s.m.Observe("exists", err, time.Since(start))
	return ok, err
}

func (s *instrumented) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	op := "put"
	if examfolders.IsMarker(key) {
		op = "put_marker"
	}
	start := time.Now()
	err := s.next.Put(ctx, key, body, contentType, metadata)
	s.m.Observe(op, err, time.Since(start))
	return err
}

func (s *instrumented) List(ctx context.Context, prefix, delimiter string) ([]examfolders.ObjectInfo, error) {
	start := time.Now()
	objects, err := s.next.List(ctx, prefix, delimiter)
	s.m.Observe("list", err, time.Since(start))
	for _, obj := range objects {
		if examfolders.IsMarker(obj.Key) {
			s.m.objects.WithLabelValues("marker").Inc()
		} else {
			s.m.objects.WithLabelValues("file").Inc()
		}
	}
	return objects, err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.m.Observe("delete", err, time.Since(start))
	return err
}
