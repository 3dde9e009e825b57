// Package provider loads the processed referral dataset into an immutable
// in-memory snapshot shared read-only across sessions.
package provider

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	domprov "github.com/refdesk/refrank/internal/domain/provider"
)

// snapshot is one loaded dataset generation. Reload swaps the whole
// snapshot; rows are never mutated in place.
type snapshot struct {
	providers []domprov.Provider
	skipped   int
	loadedAt  time.Time
}

// Info describes the currently loaded dataset.
type Info struct {
	Path     string
	Format   string
	Rows     int
	Skipped  int
	LoadedAt time.Time
}

// Repository serves the provider dataset from a file-backed snapshot.
type Repository struct {
	path   string
	format string
	logger *zap.Logger
	snap   atomic.Pointer[snapshot]
}

// New creates a file-backed repository. format is "parquet" or "csv";
// empty means inferred from the file extension. The dataset is not loaded
// until Load is called.
func New(path, format string, logger *zap.Logger) (*Repository, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".parquet":
			format = "parquet"
		case ".csv":
			format = "csv"
		default:
			return nil, fmt.Errorf("cannot infer dataset format from %q", path)
		}
	}
	if format != "parquet" && format != "csv" {
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{path: path, format: format, logger: logger}, nil
}

// NewStatic creates a repository over an injected, already-loaded provider
// slice (SDK and test use). Reload is a no-op.
func NewStatic(providers []domprov.Provider) *Repository {
	r := &Repository{logger: zap.NewNop()}
	rows := make([]domprov.Provider, len(providers))
	copy(rows, providers)
	r.snap.Store(&snapshot{providers: rows, loadedAt: time.Now().UTC()})
	return r
}

// Load reads the dataset file and swaps the snapshot. Invalid rows are
// skipped and counted, never fatal.
func (r *Repository) Load(ctx context.Context) error {
	if r.path == "" {
		// Static repository: the injected snapshot is the dataset.
		return nil
	}

	var (
		rows    []domprov.Provider
		skipped int
		err     error
	)
	switch r.format {
	case "parquet":
		rows, skipped, err = readParquet(ctx, r.path)
	case "csv":
		rows, skipped, err = readCSV(ctx, r.path)
	}
	if err != nil {
		return fmt.Errorf("load dataset %s: %w", r.path, err)
	}

	r.snap.Store(&snapshot{
		providers: rows,
		skipped:   skipped,
		loadedAt:  time.Now().UTC(),
	})

	r.logger.Info("Provider dataset loaded",
		zap.String("path", r.path),
		zap.String("format", r.format),
		zap.Int("rows", len(rows)),
		zap.Int("skipped", skipped),
	)
	return nil
}

// Reload re-reads the dataset file. The previous snapshot stays visible
// until the new one is fully built.
func (r *Repository) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Providers returns the loaded dataset rows. The slice is shared
// read-only; callers must not mutate it.
func (r *Repository) Providers() ([]domprov.Provider, error) {
	s := r.snap.Load()
	if s == nil {
		return nil, domain.ErrDatasetNotLoaded
	}
	return s.providers, nil
}

// Loaded reports whether a snapshot is available.
func (r *Repository) Loaded() bool {
	return r.snap.Load() != nil
}

// Info describes the current snapshot.
func (r *Repository) Info() (Info, error) {
	s := r.snap.Load()
	if s == nil {
		return Info{}, domain.ErrDatasetNotLoaded
	}
	return Info{
		Path:     r.path,
		Format:   r.format,
		Rows:     len(s.providers),
		Skipped:  s.skipped,
		LoadedAt: s.loadedAt,
	}, nil
}
