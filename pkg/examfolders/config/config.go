package config

import (
	"context"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/exam-assets/pkg/examfolders"
	fsstorage "github.com/tendant/exam-assets/pkg/examfolders/storage/fs"
	gcsstorage "github.com/tendant/exam-assets/pkg/examfolders/storage/gcs"
	memorystorage "github.com/tendant/exam-assets/pkg/examfolders/storage/memory"
	s3storage "github.com/tendant/exam-assets/pkg/examfolders/storage/s3"
)

// Storage backend types
const (
	BackendGCS    = "gcs"
	BackendS3     = "s3"
	BackendFS     = "fs"
	BackendMemory = "memory"
)

// Config is the runtime configuration of the exam folder tools
type Config struct {
	Backend       string `env:"EXAM_STORAGE_BACKEND" env-default:"gcs"`
	BasePath      string `env:"EXAM_BASE_PATH" env-default:"Patient Y"`
	PublicBaseURL string `env:"EXAM_PUBLIC_BASE_URL" env-default:"https://storage.googleapis.com"`
	CreatedBy     string `env:"EXAM_CREATED_BY" env-default:"PatientYFolderManager"`
	UploadedBy    string `env:"EXAM_UPLOADED_BY" env-default:"PhysicalExamFolderManager"`
	Concurrency   int    `env:"EXAM_CONCURRENCY" env-default:"1"`
	TaxonomyFile  string `env:"EXAM_TAXONOMY_FILE"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`

	GCS GCSConfig
	S3  S3Config
	FS  FSConfig
}

// GCSConfig holds Google Cloud Storage settings. The VITE_ prefixed names are
// read when the unprefixed ones are unset, so existing frontend .env files work.
type GCSConfig struct {
	ProjectID   string `env:"GOOGLE_CLOUD_PROJECT_ID,VITE_GOOGLE_CLOUD_PROJECT_ID"`
	ClientEmail string `env:"GOOGLE_CLOUD_CLIENT_EMAIL,VITE_GOOGLE_CLOUD_CLIENT_EMAIL"`
	PrivateKey  string `env:"GOOGLE_CLOUD_PRIVATE_KEY,VITE_GOOGLE_CLOUD_PRIVATE_KEY"`
	Bucket      string `env:"GOOGLE_CLOUD_BUCKET_NAME,VITE_GOOGLE_CLOUD_BUCKET_NAME"`
	Endpoint    string `env:"GOOGLE_CLOUD_STORAGE_ENDPOINT"`
}

// S3Config holds S3 settings
type S3Config struct {
	Bucket          string `env:"AWS_S3_BUCKET"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
}

// FSConfig holds filesystem backend settings
type FSConfig struct {
	BaseDir string `env:"EXAM_FS_BASE_DIR"`
}

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of library
// defaults. Absent credentials are not an error here; MissingSettings reports
// them so the connectivity probe can enumerate them.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() Config {
	return Config{
		Backend:       BackendGCS,
		BasePath:      examfolders.DefaultBasePath,
		PublicBaseURL: examfolders.DefaultPublicBaseURL,
		CreatedBy:     examfolders.DefaultCreatedBy,
		UploadedBy:    examfolders.DefaultUploadedBy,
		Concurrency:   1,
		LogLevel:      "info",
		LogFormat:     "text",
		S3:            S3Config{Region: "us-east-1"},
	}
}

// WithEnv reads settings from the process environment. Apply it before any
// option that should take precedence over the environment.
func WithEnv() Option {
	return func(c *Config) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithBackend selects the storage backend type
func WithBackend(backend string) Option {
	return func(c *Config) error {
		if backend == "" {
			return fmt.Errorf("storage backend cannot be empty")
		}
		c.Backend = backend
		return nil
	}
}

// WithBasePath sets the root folder of the taxonomy
func WithBasePath(basePath string) Option {
	return func(c *Config) error {
		c.BasePath = basePath
		return nil
	}
}

// WithFilesystem selects the filesystem backend rooted at baseDir
func WithFilesystem(baseDir string) Option {
	return func(c *Config) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Backend = BackendFS
		c.FS.BaseDir = baseDir
		return nil
	}
}

// WithConcurrency bounds parallel marker writes
func WithConcurrency(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		c.Concurrency = n
		return nil
	}
}

// Validate checks settings that are invalid regardless of environment
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGCS, BackendS3, BackendFS, BackendMemory:
	default:
		return fmt.Errorf("unsupported storage backend type: %s (use gcs, s3, fs or memory)", c.Backend)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// MissingSettings returns the environment names of required settings that are
// empty for the selected backend, in a stable order.
func (c *Config) MissingSettings() []string {
	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch c.Backend {
	case BackendGCS:
		check("GOOGLE_CLOUD_PROJECT_ID", c.GCS.ProjectID)
		check("GOOGLE_CLOUD_CLIENT_EMAIL", c.GCS.ClientEmail)
		check("GOOGLE_CLOUD_PRIVATE_KEY", c.GCS.PrivateKey)
		check("GOOGLE_CLOUD_BUCKET_NAME", c.GCS.Bucket)
	case BackendS3:
		check("AWS_S3_BUCKET", c.S3.Bucket)
		check("AWS_ACCESS_KEY_ID", c.S3.AccessKeyID)
		check("AWS_SECRET_ACCESS_KEY", c.S3.SecretAccessKey)
	case BackendFS:
		check("EXAM_FS_BASE_DIR", c.FS.BaseDir)
	}
	check("EXAM_BASE_PATH", examfolders.Sanitize(c.BasePath))
	return missing
}

// Bucket returns the bucket identifier of the selected backend
func (c *Config) Bucket() string {
	switch c.Backend {
	case BackendGCS:
		return c.GCS.Bucket
	case BackendS3:
		return c.S3.Bucket
	case BackendFS:
		return c.FS.BaseDir
	default:
		return BackendMemory
	}
}

// BuildStore creates the ObjectStore for the selected backend. It fails with
// *examfolders.ConfigurationError when required settings are absent.
func (c *Config) BuildStore(ctx context.Context) (examfolders.ObjectStore, error) {
	if missing := c.MissingSettings(); len(missing) > 0 {
		return nil, &examfolders.ConfigurationError{Missing: missing}
	}

	switch c.Backend {
	case BackendGCS:
		store, err := gcsstorage.New(ctx, gcsstorage.Config{
			ProjectID:   c.GCS.ProjectID,
			Bucket:      c.GCS.Bucket,
			ClientEmail: c.GCS.ClientEmail,
			PrivateKey:  c.GCS.PrivateKey,
			Endpoint:    c.GCS.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendS3:
		store, err := s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendFS:
		store, err := fsstorage.New(fsstorage.Config{BaseDir: c.FS.BaseDir})
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		return memorystorage.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.Backend)
	}
}
