// Package fsstore implements store.Backend over the local filesystem.
package fsstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/prn-tf/chunkvault/internal/store"
)

// Storage is a store.Backend backed by flat files under dataDir, one
// file per key, written atomically via a temp-file-then-rename sequence.
type Storage struct {
	dataDir string
	tempDir string
	logger  zerolog.Logger
	tempMu  sync.Mutex
}

// Config holds the directories Storage operates over.
type Config struct {
	DataDir string
	TempDir string
}

// New creates the data and temp directories if needed and returns a ready
// Storage.
func New(cfg Config, logger zerolog.Logger) (*Storage, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create temp dir: %w", err)
	}
	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("fsstore: resolve data dir: %w", err)
	}
	tempDir, err := filepath.Abs(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("fsstore: resolve temp dir: %w", err)
	}

	logger.Info().Str("data_dir", dataDir).Str("temp_dir", tempDir).Msg("fsstore initialized")

	return &Storage{dataDir: dataDir, tempDir: tempDir, logger: logger}, nil
}

func (s *Storage) pathFor(key string) string {
	// keys are a single ASCII prefix byte + a 43-char base64url string (or
	// an arbitrary root name); the key is used as the file name with path
	// separators escaped (see encodeKeyToFilename).
	return filepath.Join(s.dataDir, encodeKeyToFilename(key))
}

func encodeKeyToFilename(key string) string {
	if key == "" {
		return "_empty"
	}
	// Most keys are already filesystem-safe (base64url or plain ascii
	// root names); only escape path separators defensively.
	return strings.ReplaceAll(key, string(filepath.Separator), "_")
}

// Put writes data to key atomically: a unique temp file is written and
// closed (not fsynced), then renamed into place. Rename is atomic on a single
// filesystem; cross-device renames fall back to a copy.
func (s *Storage) Put(ctx context.Context, key string, data []byte) error {
	s.tempMu.Lock()
	tmp, err := os.CreateTemp(s.tempDir, "put-*")
	s.tempMu.Unlock()
	if err != nil {
		return fmt.Errorf("fsstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsstore: close temp file: %w", err)
	}

	finalPath := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("fsstore: create target dir: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		if copyErr := copyFile(tmpPath, finalPath); copyErr != nil {
			return fmt.Errorf("fsstore: move into place: %w", err)
		}
		_ = os.Remove(tmpPath)
	}

	ok = true
	s.logger.Debug().Str("key", key).Int("size", len(data)).Msg("fsstore put")
	return nil
}

// Get returns the full bytes stored at key.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrBackendNotFound, key)
		}
		return nil, fmt.Errorf("fsstore: read %s: %w", key, err)
	}
	return data, nil
}

// GetReader streams key's bytes without materializing the whole object.
func (s *Storage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrBackendNotFound, key)
		}
		return nil, fmt.Errorf("fsstore: open %s: %w", key, err)
	}
	return f, nil
}

// Head reports whether key exists.
func (s *Storage) Head(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.pathFor(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("fsstore: stat %s: %w", key, err)
}

// Delete removes key. An absent key is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.pathFor(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fsstore: delete %s: %w", key, err)
	}
	return nil
}

// List calls fn with every key whose filename-encoded form starts with
// prefix. Since keys map 1:1 to filenames at the top of dataDir (no
// sharded subdirectories), this is a flat directory scan.
func (s *Storage) List(ctx context.Context, prefix string, fn func(key string) error) error {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return fmt.Errorf("fsstore: list dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := fn(name); err != nil {
			return err
		}
	}
	return nil
}

// HealthCheck verifies the data and temp directories are writable.
func (s *Storage) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.dataDir); err != nil {
		return fmt.Errorf("fsstore: data dir unavailable: %w", err)
	}
	probe := filepath.Join(s.tempDir, ".health-check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("fsstore: temp dir not writable: %w", err)
	}
	return os.Remove(probe)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

var _ store.Backend = (*Storage)(nil)
var _ store.ReadCloserBackend = (*Storage)(nil)
