// Package ingest implements the read -> hash -> dedup -> upload streaming
// pipeline (spec.md §4.D): a blocking reader feeding a CPU-parallel hasher
// pool, feeding a single uploader/manifest-builder task with bounded
// fan-out, ending in an atomic root publish.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
	"github.com/prn-tf/chunkvault/internal/manifest"
	"github.com/prn-tf/chunkvault/internal/metrics"
	"github.com/prn-tf/chunkvault/internal/store"
)

// DefaultHashChannelCapacity and DefaultUploadFanout match spec.md §4.D's
// recommended knobs: with chunk.Size = 512KiB, steady-state memory is
// bounded roughly by chunk.Size * (capacity + fanout) ~= 200MiB.
const (
	DefaultHashChannelCapacity = 400
	DefaultUploadFanout        = 16
)

// Config tunes the pipeline's concurrency and memory knobs.
type Config struct {
	// HashChannelCapacity bounds the channel between hashers and the
	// uploader; once it and the hashers are full, the reader blocks.
	HashChannelCapacity int

	// UploadFanout bounds the number of concurrent put_chunk calls.
	UploadFanout int

	// HashWorkers sizes the CPU-bound hasher pool. Zero means
	// runtime.NumCPU().
	HashWorkers int
}

func (c Config) withDefaults() Config {
	if c.HashChannelCapacity <= 0 {
		c.HashChannelCapacity = DefaultHashChannelCapacity
	}
	if c.UploadFanout <= 0 {
		c.UploadFanout = DefaultUploadFanout
	}
	if c.HashWorkers <= 0 {
		c.HashWorkers = runtime.NumCPU()
	}
	return c
}

// BlockSource is the reader-stage abstraction: it emits fixed-size blocks
// tagged by their sequential chunk index. The plain-file reader
// (FileSource) and the changed-chunk adapter (internal/changedchunk)
// both implement it. Next returns ok=false, err=nil at clean end of input.
type BlockSource interface {
	Next(ctx context.Context) (index int, data []byte, ok bool, err error)
	Close() error
}

type block struct {
	index int
	data  []byte
}

type hashedBlock struct {
	index int
	hash  chunk.Digest
	data  []byte
}

// Pipeline runs one ingest: read -> hash -> dedup -> upload -> publish.
type Pipeline struct {
	cfg     Config
	adapter *store.Adapter
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New builds a Pipeline against the given store adapter.
func New(cfg Config, adapter *store.Adapter, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults(), adapter: adapter, logger: logger}
}

// WithMetrics attaches a Metrics recorder; Run reports to it on
// completion. Passing a nil m leaves metrics off, so callers that never
// enable metrics never need a nil check.
func (p *Pipeline) WithMetrics(m *metrics.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// Result summarizes one ingest run.
type Result struct {
	Document       manifest.Document
	ChunksUploaded int
	ChunksDeduped  int
	BytesUploaded  uint64
}

// Run drives the full pipeline against source, publishing to rootName.
// It fetches the existing Document (if any) and the store's available
// hashes concurrently, forks the prior Blob (or starts empty), then reads
// the source to completion, uploading only chunks the dedup set hasn't
// seen before, and finally publishes the new Document.
//
// On any upload failure the first error is returned and the root is never
// written, leaving the prior Document authoritative (spec.md §4.D/§7).
func (p *Pipeline) Run(ctx context.Context, rootName string, source BlockSource) (Result, error) {
	start := time.Now()
	result, err := p.run(ctx, rootName, source)
	if p.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordIngest(rootName, status, time.Since(start).Seconds(),
			result.ChunksUploaded, result.ChunksDeduped, int64(result.BytesUploaded))
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, rootName string, source BlockSource) (Result, error) {
	runID := uuid.New()
	log := p.logger.With().Str("run_id", runID.String()).Str("root", rootName).Logger()
	log.Info().Msg("ingest starting")

	var existingDoc manifest.Document
	var haveDoc bool
	var available []chunk.Digest

	fetchGroup, fetchCtx := errgroup.WithContext(ctx)
	fetchGroup.Go(func() error {
		doc, ok, err := p.adapter.GetRoot(fetchCtx, rootName)
		if err != nil {
			return err
		}
		existingDoc, haveDoc = doc, ok
		return nil
	})
	fetchGroup.Go(func() error {
		hashes, err := p.adapter.AvailableHashes(fetchCtx)
		if err != nil {
			return err
		}
		available = hashes
		return nil
	})
	if err := fetchGroup.Wait(); err != nil {
		return Result{}, err
	}

	known := make(map[chunk.Digest]struct{}, len(available))
	for _, h := range available {
		known[h] = struct{}{}
	}

	var newBlob manifest.Blob
	if haveDoc {
		newBlob = existingDoc.Current().Fork()
	} else {
		newBlob = manifest.EmptyBlob()
	}

	g, gctx := errgroup.WithContext(ctx)

	blocksCh := make(chan block, p.cfg.HashWorkers)
	hashedCh := make(chan hashedBlock, p.cfg.HashChannelCapacity)

	g.Go(func() error {
		defer close(blocksCh)
		for {
			idx, data, ok, err := source.Next(gctx)
			if err != nil {
				return fmt.Errorf("%w: %s", engineerrors.ErrReadError, err)
			}
			if !ok {
				return nil
			}
			select {
			case blocksCh <- block{index: idx, data: data}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	hashGroup, hgctx := errgroup.WithContext(gctx)
	for i := 0; i < p.cfg.HashWorkers; i++ {
		hashGroup.Go(func() error {
			for {
				select {
				case b, ok := <-blocksCh:
					if !ok {
						return nil
					}
					h := chunk.Hash(b.data)
					select {
					case hashedCh <- hashedBlock{index: b.index, hash: h, data: b.data}:
					case <-hgctx.Done():
						return hgctx.Err()
					}
				case <-hgctx.Done():
					return hgctx.Err()
				}
			}
		})
	}
	g.Go(func() error {
		err := hashGroup.Wait()
		close(hashedCh)
		return err
	})

	var uploaded, deduped int
	var bytesUploaded uint64

	g.Go(func() error {
		sem := semaphore.NewWeighted(int64(p.cfg.UploadFanout))
		uploadGroup, ugctx := errgroup.WithContext(gctx)

		for hb := range hashedCh {
			newBlob.Set(hb.index, hb.hash)

			if _, seen := known[hb.hash]; seen {
				deduped++
				continue
			}
			known[hb.hash] = struct{}{}
			uploaded++
			bytesUploaded += uint64(len(hb.data))

			if err := sem.Acquire(ugctx, 1); err != nil {
				if uerr := uploadGroup.Wait(); uerr != nil {
					return uerr
				}
				return err
			}
			data := hb.data
			hash := hb.hash
			uploadGroup.Go(func() error {
				defer sem.Release(1)
				return p.adapter.PutChunk(ugctx, hash, data)
			})
		}
		return uploadGroup.Wait()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("ingest aborted")
		return Result{}, err
	}

	if err := newBlob.VerifyInvariants(); err != nil {
		return Result{}, err
	}

	var newDoc manifest.Document
	var err error
	if haveDoc {
		newDoc, err = existingDoc.Update(newBlob)
	} else {
		newDoc = manifest.NewDocument(newBlob)
	}
	if err != nil {
		return Result{}, err
	}

	if err := p.adapter.PutRoot(ctx, rootName, newDoc); err != nil {
		return Result{}, err
	}

	log.Info().
		Int("chunks_uploaded", uploaded).
		Int("chunks_deduped", deduped).
		Uint64("bytes_uploaded", bytesUploaded).
		Msg("ingest complete")

	return Result{
		Document:       newDoc,
		ChunksUploaded: uploaded,
		ChunksDeduped:  deduped,
		BytesUploaded:  bytesUploaded,
	}, nil
}
