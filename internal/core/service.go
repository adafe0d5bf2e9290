package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dailyreports/importer/internal/config"
	"github.com/dailyreports/importer/internal/logging"
)

// ResetTimeout is the maximum duration for a truncate operation.
var ResetTimeout = 30 * time.Second

// Service provides the import and query operations over a Store.
type Service struct {
	store Store

	maxFileSize    int64
	storageRetries int
	retryBackoff   time.Duration
	defaultLimit   int
	maxLimit       int
}

// NewService creates a Service. A nil cfg uses the configuration defaults.
func NewService(store Store, cfg *config.Config) *Service {
	s := &Service{
		store:          store,
		maxFileSize:    100 * 1024 * 1024,
		storageRetries: 2,
		retryBackoff:   200 * time.Millisecond,
		defaultLimit:   50,
		maxLimit:       1000,
	}
	if cfg != nil {
		s.maxFileSize = cfg.Import.MaxFileSize
		s.storageRetries = cfg.Import.StorageRetries
		s.retryBackoff = cfg.Import.RetryBackoff
		s.defaultLimit = cfg.API.DefaultLimit
		s.maxLimit = cfg.API.MaxLimit
	}
	return s
}

// CheckFile reports ErrFileNotFound when path does not exist or is a
// directory.
func CheckFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return nil
}

// ImportFile imports the CSV file at path. A missing file is reported as
// ErrFileNotFound before anything else happens.
func (s *Service) ImportFile(ctx context.Context, path string, opts ImportOptions) (Summary, error) {
	if err := CheckFile(path); err != nil {
		return Summary{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if opts.FileName == "" {
		opts.FileName = path
	}
	return s.Import(ctx, f, opts)
}

// Truncate empties the reports table and restarts its identity sequence.
func (s *Service) Truncate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	if err := s.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.store.Truncate(ctx); err != nil {
		return fmt.Errorf("truncate %s: %w", TableName, err)
	}

	logging.FromContext(ctx).Warn("table truncated", "table", TableName)
	return nil
}

// ListReports returns the most recent reports. A non-positive limit selects
// the default and larger limits are capped.
func (s *Service) ListReports(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	reports, err := s.store.ListReports(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Health checks that storage answers a no-op query.
func (s *Service) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("storage ping: %w", err)
	}
	return nil
}
