package examfolders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// connectionTestPrefix names the throwaway object written by the probe
const connectionTestPrefix = ".connection_test"

// ProbeReport is the outcome of a connectivity probe
type ProbeReport struct {
	OK     bool     `json:"ok"`
	Issues []string `json:"issues"`
	// Err is the first fatal error: *ConfigurationError or *ConnectivityError
	Err error `json:"-"`
}

// Probe verifies configuration, bucket reachability and write permission
// before a bulk operation runs.
type Probe struct {
	store    ObjectStore
	config   ConfigChecker
	bucket   string
	basePath string
	logger   *slog.Logger
}

// NewProbe creates a Probe. config may be nil when the caller already validated settings.
func NewProbe(store ObjectStore, config ConfigChecker, bucket, basePath string, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{store: store, config: config, bucket: bucket, basePath: basePath, logger: logger}
}

// Run performs the checks in order and stops at the first failing stage.
// Missing configuration is reported before any I/O.
func (p *Probe) Run(ctx context.Context) *ProbeReport {
	report := &ProbeReport{Issues: []string{}}

	if p.config != nil {
		if missing := p.config.MissingSettings(); len(missing) > 0 {
			for _, name := range missing {
				report.Issues = append(report.Issues, "missing required setting: "+name)
			}
			report.Err = &ConfigurationError{Missing: missing}
			p.logger.Error("Configuration incomplete", "missing", missing)
			return report
		}
	}
	if p.store == nil {
		report.Err = &ConfigurationError{Missing: []string{"storage backend"}}
		report.Issues = append(report.Issues, "no storage backend configured")
		return report
	}

	exists, err := p.store.Exists(ctx)
	if err == nil && !exists {
		err = ErrBucketNotFound
	}
	if err != nil {
		report.Err = &ConnectivityError{Bucket: p.bucket, Op: "exists", Err: err}
		report.Issues = append(report.Issues, fmt.Sprintf("bucket %q does not exist or is not accessible: %v", p.bucket, err))
		p.logger.Error("Bucket not reachable", "bucket", p.bucket, "err", err)
		return report
	}
	p.logger.Info("Connected to bucket", "bucket", p.bucket)

	if err := p.checkWrite(ctx); err != nil {
		report.Err = err
		report.Issues = append(report.Issues, err.Error())
		p.logger.Error("Write permission check failed", "bucket", p.bucket, "err", err)
		return report
	}
	p.logger.Info("Write permissions verified", "bucket", p.bucket)

	report.OK = true
	return report
}

func (p *Probe) checkWrite(ctx context.Context) error {
	key := joinKey(p.basePath, connectionTestPrefix+"_"+uuid.NewString())

	body := bytes.NewReader([]byte("Connection test successful"))
	if err := p.store.Put(ctx, key, body, MarkerContentType, nil); err != nil {
		return &ConnectivityError{Bucket: p.bucket, Op: "write", Err: err}
	}
	if err := p.store.Delete(ctx, key); err != nil {
		return &ConnectivityError{Bucket: p.bucket, Op: "delete", Err: err}
	}
	return nil
}

// IsFatal reports whether err is a configuration or connectivity failure
func IsFatal(err error) bool {
	var cfgErr *ConfigurationError
	var connErr *ConnectivityError
	return errors.As(err, &cfgErr) || errors.As(err, &connErr)
}
