// Package engine is the façade the CLI and tests call: it wires
// internal/ingest, internal/restore, and internal/changedchunk against a
// single store.Adapter and exposes exactly spec.md §6's "operations
// exposed upward" — Backup, BackupChanged, Restore, Info. gc remains an
// external collaborator (internal/gc), reached through the same
// Adapter this façade wraps.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/chunkvault/internal/changedchunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
	"github.com/prn-tf/chunkvault/internal/ingest"
	"github.com/prn-tf/chunkvault/internal/metrics"
	"github.com/prn-tf/chunkvault/internal/restore"
	"github.com/prn-tf/chunkvault/internal/store"
)

// Config tunes the underlying ingest/restore pipelines.
type Config struct {
	Ingest  ingest.Config
	Restore restore.Config
}

// Engine is the single-target façade over a store.Adapter.
type Engine struct {
	adapter *store.Adapter
	logger  zerolog.Logger
	ingest  *ingest.Pipeline
	restore *restore.Pipeline
}

// New builds an Engine over adapter.
func New(cfg Config, adapter *store.Adapter, logger zerolog.Logger) *Engine {
	return &Engine{
		adapter: adapter,
		logger:  logger,
		ingest:  ingest.New(cfg.Ingest, adapter, logger),
		restore: restore.New(cfg.Restore, adapter, logger),
	}
}

// WithMetrics attaches a Metrics recorder to both the ingest and restore
// pipelines. Passing a nil m leaves metrics off.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.ingest.WithMetrics(m)
	e.restore.WithMetrics(m)
	return e
}

// Backup performs an initial or incremental backup of inputPath to
// rootName, auto-detected by presence of an existing root Document.
func (e *Engine) Backup(ctx context.Context, rootName, inputPath string) (ingest.Result, error) {
	src, err := ingest.OpenFileSource(inputPath)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("%w: open input %q: %s", engineerrors.ErrReadError, inputPath, err)
	}
	defer src.Close()

	return e.ingest.Run(ctx, rootName, src)
}

// BackupChanged performs an incremental backup of rootName using an
// external changed-region producer instead of reading the whole
// snapshot, per §4.F.
func (e *Engine) BackupChanged(ctx context.Context, rootName, snapshotPath string, producer changedchunk.Producer, deviceBlockSize uint64, windowSize int) (ingest.Result, error) {
	src, err := changedchunk.Open(snapshotPath, producer, deviceBlockSize, windowSize)
	if err != nil {
		return ingest.Result{}, err
	}
	defer src.Close()

	return e.ingest.Run(ctx, rootName, src)
}

// Restore reconstructs rootName (version nil = current) into outPath.
func (e *Engine) Restore(ctx context.Context, rootName string, version *int, outPath string) error {
	return e.restore.Restore(ctx, rootName, version, outPath)
}

// VersionInfo is one entry of Info's retained-history report.
type VersionInfo struct {
	Timestamp     int64
	RetainedBytes uint64
}

// Info reports spec.md §6's `(current_size, current_timestamp,
// [(prev_timestamp, retained_size)])` tuple for rootName.
type Info struct {
	CurrentSize      uint64
	CurrentTimestamp int64
	History          []VersionInfo
}

func (e *Engine) Info(ctx context.Context, rootName string) (Info, error) {
	doc, ok, err := e.adapter.GetRoot(ctx, rootName)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		return Info{}, fmt.Errorf("%w: no document for root %q", engineerrors.ErrNotFound, rootName)
	}

	info := Info{
		CurrentSize:      doc.Current().Size(),
		CurrentTimestamp: doc.Current().Timestamp(),
	}
	for _, prev := range doc.Versions() {
		info.History = append(info.History, VersionInfo{
			Timestamp:     prev.Timestamp(),
			RetainedBytes: prev.RetainedSize(),
		})
	}
	return info, nil
}
