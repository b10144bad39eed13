// Package restore implements the fetch -> verify -> write streaming
// pipeline (spec.md §4.E).
package restore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
	"github.com/prn-tf/chunkvault/internal/manifest"
	"github.com/prn-tf/chunkvault/internal/metrics"
	"github.com/prn-tf/chunkvault/internal/store"
)

// DefaultChannelCapacity matches the ingest side's bounded-pipeline depth.
const DefaultChannelCapacity = 400

// Config tunes the restore pipeline's bounded channel depth.
type Config struct {
	ChannelCapacity int
}

func (c Config) withDefaults() Config {
	if c.ChannelCapacity <= 0 {
		c.ChannelCapacity = DefaultChannelCapacity
	}
	return c
}

// Pipeline drives fetch-verify-write restores against a store adapter.
type Pipeline struct {
	cfg     Config
	adapter *store.Adapter
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New builds a restore Pipeline.
func New(cfg Config, adapter *store.Adapter, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults(), adapter: adapter, logger: logger}
}

// WithMetrics attaches a Metrics recorder; Restore reports to it on
// completion. Passing a nil m leaves metrics off.
func (p *Pipeline) WithMetrics(m *metrics.Metrics) *Pipeline {
	p.metrics = m
	return p
}

type fetchedChunk struct {
	index int
	data  []byte
}

// Restore reads the Document at rootName, selects version (nil = current),
// and writes the reconstructed file to outPath. Fetching is sequential;
// each chunk's hash is verified before it is handed to the writer, so a
// store corruption fails fast with engineerrors.ErrHashMismatch rather
// than silently writing bad bytes.
func (p *Pipeline) Restore(ctx context.Context, rootName string, version *int, outPath string) error {
	start := time.Now()
	chunksRead, err := p.restore(ctx, rootName, version, outPath)
	if p.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordRestore(rootName, status, time.Since(start).Seconds(), chunksRead)
	}
	return err
}

// restore performs the fetch-verify-write work and reports how many
// chunks it read before returning (whether it succeeded or not).
func (p *Pipeline) restore(ctx context.Context, rootName string, version *int, outPath string) (int, error) {
	log := p.logger.With().Str("root", rootName).Str("out", outPath).Logger()

	doc, ok, err := p.adapter.GetRoot(ctx, rootName)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: no document for root %q", engineerrors.ErrNotFound, rootName)
	}

	var blob manifest.Blob
	if version == nil {
		blob = doc.Current()
	} else {
		b, ok := doc.GetVersion(*version)
		if !ok {
			return 0, fmt.Errorf("%w: version %d out of range for root %q", engineerrors.ErrNotFound, *version, rootName)
		}
		blob = b
	}

	hashes := blob.ChunkHashes()
	log.Info().Int("chunks", len(hashes)).Msg("restore starting")

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("%w: create output file: %s", engineerrors.ErrReadError, err)
	}
	defer out.Close()

	g, gctx := errgroup.WithContext(ctx)
	ch := make(chan fetchedChunk, p.cfg.ChannelCapacity)
	fetched := 0

	g.Go(func() error {
		defer close(ch)
		for i, h := range hashes {
			data, err := p.adapter.GetChunk(gctx, h)
			if err != nil {
				return err
			}
			fetched++
			if !chunk.Verify(h, data) {
				return fmt.Errorf("%w: chunk %s at index %d", engineerrors.ErrHashMismatch, h, i)
			}
			select {
			case ch <- fetchedChunk{index: i, data: data}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for fc := range ch {
			if _, err := out.WriteAt(fc.data, int64(fc.index)*int64(chunk.Size)); err != nil {
				return fmt.Errorf("%w: write chunk %d: %s", engineerrors.ErrReadError, fc.index, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("restore aborted")
		return fetched, err
	}

	if err := out.Sync(); err != nil {
		return fetched, fmt.Errorf("%w: flush output file: %s", engineerrors.ErrReadError, err)
	}

	log.Info().Msg("restore complete")
	return fetched, nil
}
