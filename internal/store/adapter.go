package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
	"github.com/prn-tf/chunkvault/internal/manifest"
	"github.com/prn-tf/chunkvault/internal/metrics"
	"github.com/prn-tf/chunkvault/internal/store/localcache"
)

// Adapter is the thin typed layer over a Backend implementing the §4.C
// operations: chunk and root access keyed by content hash / target name.
type Adapter struct {
	backend Backend
	logger  zerolog.Logger
	cache   *localcache.Cache
	metrics *metrics.Metrics
}

// New wraps backend with the chunk/root key-space adapter.
func New(backend Backend, logger zerolog.Logger) *Adapter {
	return &Adapter{backend: backend, logger: logger}
}

// WithCache attaches an optional local advisory cache: HasChunk and
// GetRoot consult it before the backend and populate it after a
// confirmed result, mirroring original_source/storage.rs's LocalData.
// The cache is never authoritative — a miss always falls through to the
// backend, and a populate failure only logs a warning.
func (a *Adapter) WithCache(cache *localcache.Cache) *Adapter {
	a.cache = cache
	return a
}

// WithMetrics attaches a Metrics recorder; every backend call records its
// outcome as a store operation, and every cache-consulting call records a
// cache hit or miss. Passing a nil m leaves metrics off.
func (a *Adapter) WithMetrics(m *metrics.Metrics) *Adapter {
	a.metrics = m
	return a
}

func (a *Adapter) recordStoreOp(operation string, start time.Time, err error, bytes int64) {
	if a.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordStoreOperation(operation, status, time.Since(start).Seconds(), bytes)
}

func (a *Adapter) recordCacheAccess(cache string, hit bool) {
	if a.metrics != nil {
		a.metrics.RecordCacheAccess(cache, hit)
	}
}

// PutChunk idempotently writes a chunk's bytes. Callers are expected to
// have checked existence first; a double put is safe.
func (a *Adapter) PutChunk(ctx context.Context, hash chunk.Digest, data []byte) error {
	start := time.Now()
	err := a.backend.Put(ctx, ChunkKey(hash), data)
	a.recordStoreOp("put_chunk", start, err, int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: put chunk %s: %s", engineerrors.ErrStoreError, hash, err)
	}
	if a.cache != nil {
		if err := a.cache.MarkKnown(hash); err != nil {
			a.logger.Warn().Err(err).Str("hash", hash.String()).Msg("failed to populate local cache after put")
		}
	}
	return nil
}

// HasChunk reports whether a chunk's bytes are already stored. A local
// cache hit short-circuits the backend round trip entirely; a miss falls
// through to the backend and, on a confirmed hit there, populates the
// cache for the next call.
func (a *Adapter) HasChunk(ctx context.Context, hash chunk.Digest) (bool, error) {
	if a.cache != nil {
		if a.cache.IsKnown(hash) {
			a.recordCacheAccess("chunk_hashes", true)
			return true, nil
		}
		a.recordCacheAccess("chunk_hashes", false)
	}

	start := time.Now()
	ok, err := a.backend.Head(ctx, ChunkKey(hash))
	a.recordStoreOp("head_chunk", start, err, 0)
	if err != nil {
		return false, fmt.Errorf("%w: head chunk %s: %s", engineerrors.ErrStoreError, hash, err)
	}
	if ok && a.cache != nil {
		if err := a.cache.MarkKnown(hash); err != nil {
			a.logger.Warn().Err(err).Str("hash", hash.String()).Msg("failed to populate local cache after head")
		}
	}
	return ok, nil
}

// GetChunk fetches a chunk's raw bytes.
func (a *Adapter) GetChunk(ctx context.Context, hash chunk.Digest) ([]byte, error) {
	start := time.Now()
	data, err := a.backend.Get(ctx, ChunkKey(hash))
	a.recordStoreOp("get_chunk", start, err, int64(len(data)))
	if err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("get chunk %s", hash))
	}
	return data, nil
}

// PutRoot atomically replaces the Document for rootName.
func (a *Adapter) PutRoot(ctx context.Context, rootName string, doc manifest.Document) error {
	data, err := manifest.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: encode document for %q: %s", engineerrors.ErrSerialization, rootName, err)
	}
	start := time.Now()
	err = a.backend.Put(ctx, RootKey(rootName), data)
	a.recordStoreOp("put_root", start, err, int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: put root %q: %s", engineerrors.ErrStoreError, rootName, err)
	}
	if a.cache != nil {
		if err := a.cache.PutDocument(rootName, doc); err != nil {
			a.logger.Warn().Err(err).Str("root", rootName).Msg("failed to populate local cache after put root")
		}
	}
	return nil
}

// GetRoot fetches and decodes the Document for rootName. It returns
// (Document{}, false, nil) if absent — the normal case on first backup.
// A local cache hit returns the cached Document without a backend round
// trip at all, matching original_source/storage.rs's get_root_metadata.
func (a *Adapter) GetRoot(ctx context.Context, rootName string) (manifest.Document, bool, error) {
	if a.cache != nil {
		if doc, ok := a.cache.GetDocument(rootName); ok {
			a.recordCacheAccess("documents", true)
			return doc, true, nil
		}
		a.recordCacheAccess("documents", false)
	}

	start := time.Now()
	data, err := a.backend.Get(ctx, RootKey(rootName))
	a.recordStoreOp("get_root", start, err, int64(len(data)))
	if err != nil {
		if isNotFound(err) {
			return manifest.Document{}, false, nil
		}
		return manifest.Document{}, false, fmt.Errorf("%w: get root %q: %s", engineerrors.ErrStoreError, rootName, err)
	}
	doc, err := manifest.UnmarshalDocument(data)
	if err != nil {
		return manifest.Document{}, false, fmt.Errorf("%w: decode document %q: %s", engineerrors.ErrSerialization, rootName, err)
	}
	if a.cache != nil {
		if err := a.cache.PutDocument(rootName, doc); err != nil {
			a.logger.Warn().Err(err).Str("root", rootName).Msg("failed to populate local cache after get root")
		}
	}
	return doc, true, nil
}

// AvailableHashes lists every chunk hash currently stored, used to seed
// the ingest dedup set. Keys under the chunk prefix that fail to parse as
// a digest are skipped rather than failing the whole listing.
func (a *Adapter) AvailableHashes(ctx context.Context) ([]chunk.Digest, error) {
	var hashes []chunk.Digest
	err := a.backend.List(ctx, chunkPrefix, func(key string) error {
		d, ok := ParseChunkKey(key)
		if !ok {
			a.logger.Warn().Str("key", key).Msg("skipping unparseable chunk key during listing")
			return nil
		}
		hashes = append(hashes, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list available hashes: %s", engineerrors.ErrStoreError, err)
	}
	return hashes, nil
}

// ListRoots lists every backup target name with a stored Document. Used by
// an external GC pass to compute the full reachable set across targets
// sharing one store.
func (a *Adapter) ListRoots(ctx context.Context) ([]string, error) {
	var names []string
	err := a.backend.List(ctx, rootPrefix, func(key string) error {
		names = append(names, key[len(rootPrefix):])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list roots: %s", engineerrors.ErrStoreError, err)
	}
	return names, nil
}

// deleteBatchSize bounds a single BatchDeleter call, matching S3's
// DeleteObjects limit of 1000 keys per request.
const deleteBatchSize = 1000

// DeleteChunks best-effort bulk-deletes the given hashes. Unknown keys are
// non-fatal; this is the operation an external GC pass drives. When the
// backend implements BatchDeleter, keys are deleted in bounded batches
// instead of one Delete call per hash.
func (a *Adapter) DeleteChunks(ctx context.Context, hashes []chunk.Digest) error {
	batcher, ok := a.backend.(BatchDeleter)
	if !ok {
		for _, h := range hashes {
			start := time.Now()
			err := a.backend.Delete(ctx, ChunkKey(h))
			a.recordStoreOp("delete_chunk", start, err, 0)
			if err != nil {
				a.logger.Warn().Str("hash", h.String()).Err(err).Msg("failed to delete chunk during gc sweep")
			}
		}
		return nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = ChunkKey(h)
	}
	for len(keys) > 0 {
		n := deleteBatchSize
		if n > len(keys) {
			n = len(keys)
		}
		batch := keys[:n]
		keys = keys[n:]

		start := time.Now()
		err := batcher.DeleteBatch(ctx, batch)
		a.recordStoreOp("delete_chunk_batch", start, err, 0)
		if err != nil {
			a.logger.Warn().Int("keys", len(batch)).Err(err).Msg("failed to batch-delete chunks during gc sweep")
		}
	}
	return nil
}

func wrapNotFound(err error, context string) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s: %s", engineerrors.ErrNotFound, context, err)
	}
	return fmt.Errorf("%w: %s: %s", engineerrors.ErrStoreError, context, err)
}

func isNotFound(err error) bool {
	return isBackendNotFound(err)
}
