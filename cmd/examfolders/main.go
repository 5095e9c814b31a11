package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/exam-assets/internal/logger"
	"github.com/tendant/exam-assets/pkg/examfolders"
	"github.com/tendant/exam-assets/pkg/examfolders/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A missing .env file is not an error; the environment may already be set
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// Exit codes. Configuration and connectivity failures exit with exitFatal so
// scripts can tell an unusable bucket from a run that wrote some folders.
const (
	exitOK      = 0
	exitFailure = 1
	exitFatal   = 2
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case examfolders.IsFatal(err):
		return exitFatal
	default:
		return exitFailure
	}
}

// globalFlags are the persistent flags shared by every subcommand
type globalFlags struct {
	backend     string
	basePath    string
	fsDir       string
	taxonomy    string
	concurrency int
}

func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "examfolders",
		Short: "Physical examination folder manager",
		Long: `Provision and manage the physical examination folder hierarchy
in an object storage bucket.

Settings are read from the environment and an optional .env file.
Flags override the environment.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.backend, "backend", "", "storage backend: gcs, s3, fs or memory (env EXAM_STORAGE_BACKEND)")
	pf.StringVar(&flags.basePath, "base-path", "", "root folder of the hierarchy (env EXAM_BASE_PATH)")
	pf.StringVar(&flags.fsDir, "fs-dir", "", "base directory of the fs backend (env EXAM_FS_BASE_DIR)")
	pf.StringVar(&flags.taxonomy, "taxonomy", "", "YAML taxonomy file replacing the built-in one (env EXAM_TAXONOMY_FILE)")
	pf.IntVar(&flags.concurrency, "concurrency", 0, "parallel marker writes (env EXAM_CONCURRENCY)")

	rootCmd.AddCommand(NewTestCommand(flags))
	rootCmd.AddCommand(NewSetupCommand(flags))
	rootCmd.AddCommand(NewCleanupCommand(flags))
	rootCmd.AddCommand(NewListCommand(flags))
	rootCmd.AddCommand(NewStatsCommand(flags))
	rootCmd.AddCommand(NewStructureCommand(flags))
	rootCmd.AddCommand(NewVerifyCommand(flags))
	rootCmd.AddCommand(NewUploadCommand(flags))
	rootCmd.AddCommand(NewDeleteCommand(flags))
	rootCmd.AddCommand(NewURLCommand(flags))

	return rootCmd
}

// runtime bundles what a subcommand needs once settings are resolved
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    examfolders.ObjectStore
	taxonomy examfolders.Branch
}

// loadConfig resolves settings from the environment with flags applied on top
func loadConfig(flags *globalFlags) (*config.Config, error) {
	opts := []config.Option{config.WithEnv()}
	if flags.backend != "" {
		opts = append(opts, config.WithBackend(flags.backend))
	}
	if flags.basePath != "" {
		opts = append(opts, config.WithBasePath(flags.basePath))
	}
	if flags.fsDir != "" {
		opts = append(opts, config.WithFilesystem(flags.fsDir))
	}
	if flags.concurrency > 0 {
		opts = append(opts, config.WithConcurrency(flags.concurrency))
	}
	if flags.taxonomy != "" {
		path := flags.taxonomy
		opts = append(opts, func(c *config.Config) error {
			c.TaxonomyFile = path
			return nil
		})
	}
	return config.Load(opts...)
}

// newRuntime loads settings and the taxonomy. The store is opened only when
// withStore is set, so offline commands work without credentials.
func newRuntime(ctx context.Context, flags *globalFlags, withStore bool) (*runtime, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat),
	}
	slog.SetDefault(rt.logger)

	rt.taxonomy, err = loadTaxonomy(cfg.TaxonomyFile)
	if err != nil {
		return nil, err
	}

	if withStore {
		rt.store, err = cfg.BuildStore(ctx)
		if err != nil {
			return nil, err
		}
	}
	return rt, nil
}

func loadTaxonomy(path string) (examfolders.Branch, error) {
	if path == "" {
		return examfolders.PhysicalExamTaxonomy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return examfolders.Branch{}, fmt.Errorf("failed to open taxonomy file: %w", err)
	}
	defer f.Close()
	return examfolders.LoadTaxonomyYAML(f)
}

func (rt *runtime) close() {
	if closer, ok := rt.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			rt.logger.Warn("Failed to close storage client", "err", err)
		}
	}
}

func (rt *runtime) markers() *examfolders.MarkerManager {
	return examfolders.NewMarkerManager(rt.store,
		examfolders.WithCreatedBy(rt.cfg.CreatedBy),
		examfolders.WithConcurrency(rt.cfg.Concurrency),
		examfolders.WithMarkerLogger(rt.logger),
	)
}

func (rt *runtime) probe() *examfolders.Probe {
	return examfolders.NewProbe(rt.store, rt.cfg, rt.cfg.Bucket(), rt.cfg.BasePath, rt.logger)
}

func (rt *runtime) uploader() *examfolders.Uploader {
	return examfolders.NewUploader(rt.store, rt.cfg.Bucket(), rt.cfg.BasePath,
		examfolders.WithPublicBaseURL(rt.cfg.PublicBaseURL),
		examfolders.WithUploadedBy(rt.cfg.UploadedBy),
		examfolders.WithUploaderLogger(rt.logger),
	)
}

func (rt *runtime) lister() *examfolders.Lister {
	return examfolders.NewLister(rt.store, rt.cfg.BasePath, rt.logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
