package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/exam-assets/internal/logger"
	"github.com/tendant/exam-assets/pkg/examfolders"
	"github.com/tendant/exam-assets/pkg/examfolders/api"
	"github.com/tendant/exam-assets/pkg/examfolders/config"
	"github.com/tendant/exam-assets/pkg/examfolders/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	taxonomy := examfolders.PhysicalExamTaxonomy()
	if cfg.TaxonomyFile != "" {
		f, err := os.Open(cfg.TaxonomyFile)
		if err != nil {
			log.Error("Failed to open taxonomy file", "path", cfg.TaxonomyFile, "err", err)
			os.Exit(1)
		}
		taxonomy, err = examfolders.LoadTaxonomyYAML(f)
		f.Close()
		if err != nil {
			log.Error("Failed to load taxonomy", "path", cfg.TaxonomyFile, "err", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	backend, err := cfg.BuildStore(ctx)
	if err != nil {
		log.Error("Failed to initialize storage", "backend", cfg.Backend, "err", err)
		os.Exit(1)
	}
	if closer, ok := backend.(io.Closer); ok {
		defer closer.Close()
	}

	report := examfolders.NewProbe(backend, cfg, cfg.Bucket(), cfg.BasePath, log).Run(ctx)
	if !report.OK {
		log.Error("Storage probe failed", "issues", report.Issues, "err", report.Err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	store := metrics.Instrument(backend, metrics.NewStoreMetrics(registry))

	uploader := examfolders.NewUploader(store, cfg.Bucket(), cfg.BasePath,
		examfolders.WithPublicBaseURL(cfg.PublicBaseURL),
		examfolders.WithUploadedBy(cfg.UploadedBy),
		examfolders.WithUploaderLogger(log),
	)
	handler := api.NewHandler(store, taxonomy, cfg.BasePath, uploader, log)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(api.RequestLogger(log))
	r.Use(api.Observe(metrics.NewHTTPMetrics(registry)))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/api/v1", handler.Routes())
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r,
	}

	go func() {
		log.Info("Server starting", "port", port, "backend", cfg.Backend, "base_path", cfg.BasePath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "err", err)
	}
	log.Info("Server exited")
}
