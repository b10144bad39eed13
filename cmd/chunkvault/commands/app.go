// Package commands implements the chunkvault CLI's subcommands.
package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/prn-tf/chunkvault/internal/config"
	"github.com/prn-tf/chunkvault/internal/engine"
	"github.com/prn-tf/chunkvault/internal/gc"
	"github.com/prn-tf/chunkvault/internal/ingest"
	"github.com/prn-tf/chunkvault/internal/logging"
	"github.com/prn-tf/chunkvault/internal/metrics"
	"github.com/prn-tf/chunkvault/internal/restore"
	"github.com/prn-tf/chunkvault/internal/singleflight"
	"github.com/prn-tf/chunkvault/internal/store"
	"github.com/prn-tf/chunkvault/internal/store/fsstore"
	"github.com/prn-tf/chunkvault/internal/store/localcache"
	"github.com/prn-tf/chunkvault/internal/store/s3store"
)

// configPath is bound to the root command's persistent --config flag.
var configPath string

// app bundles everything a subcommand needs, built once per invocation
// from the loaded configuration.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	locker  singleflight.Locker
	engine  *engine.Engine
	adapter *store.Adapter
	cache   *localcache.Cache
}

// Close releases resources newApp opened — currently just the local
// cache's badger database, if one was opened. Subcommands defer this
// after a successful newApp call.
func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

// newApp loads configuration and wires the store backend, engine,
// locker, and metrics it names. Subcommands call this first.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	adapter := store.New(backend, logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		adapter.WithMetrics(m)
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	var cache *localcache.Cache
	if cfg.Cache.Enabled {
		cache, err = localcache.Open(cfg.Cache.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open local cache: %w", err)
		}
		adapter.WithCache(cache)
	}

	eng := engine.New(engine.Config{
		Ingest: ingest.Config{
			HashChannelCapacity: cfg.Ingest.HashChannelCapacity,
			UploadFanout:        cfg.Ingest.UploadFanout,
		},
		Restore: restore.Config{
			ChannelCapacity: cfg.Restore.ChannelCapacity,
		},
	}, adapter, logger)
	eng.WithMetrics(m)

	var locker singleflight.Locker
	switch cfg.Lock.Backend {
	case config.LockMemory:
		locker = singleflight.NewMemoryLocker()
	case config.LockRedis:
		locker = singleflight.NewRedisLocker(newRedisClient(cfg.Lock.Addr))
	default:
		locker = singleflight.NewNoOpLocker()
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		locker:  locker,
		engine:  eng,
		adapter: adapter,
		cache:   cache,
	}, nil
}

// serveMetrics runs the Prometheus scrape endpoint for the lifetime of
// the process. A CLI invocation is typically short-lived, but this lets
// a long-running wrapper (e.g. a cron-triggered gc loop) scrape it.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
	}
}

func newBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendS3:
		return s3store.NewFromConfig(ctx, s3store.Config{
			Bucket:    cfg.Backend.S3.Bucket,
			Region:    cfg.Backend.S3.Region,
			Endpoint:  cfg.Backend.S3.Endpoint,
			AccessKey: cfg.Backend.S3.AccessKey,
			SecretKey: cfg.Backend.S3.SecretKey,
		}, logger)
	case config.BackendFilesystem, "":
		return fsstore.New(fsstore.Config{
			DataDir: cfg.Backend.Filesystem.DataDir,
			TempDir: cfg.Backend.Filesystem.TempDir,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

// gcCollector builds a Collector over the already-wired adapter, for the
// gc subcommand.
func (a *app) gcCollector() *gc.Collector {
	return gc.New(a.adapter, a.logger).WithMetrics(a.metrics)
}

// withLock runs fn while holding the advisory single-writer lock for
// rootName, releasing it afterward regardless of fn's outcome. With the
// default "none" lock backend this is a no-op pass-through.
func (a *app) withLock(ctx context.Context, rootName string, fn func(ctx context.Context) error) error {
	key := "root:" + rootName
	ok, err := a.locker.Acquire(ctx, key, a.cfg.Lock.TTL)
	if err != nil {
		return fmt.Errorf("acquire lock for %q: %w", rootName, err)
	}
	if !ok {
		return fmt.Errorf("root %q is locked by another writer", rootName)
	}
	defer func() {
		if _, err := a.locker.Release(ctx, key); err != nil {
			a.logger.Warn().Err(err).Str("root", rootName).Msg("failed to release lock")
		}
	}()
	return fn(ctx)
}
