package store

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/manifest"
	"github.com/prn-tf/chunkvault/internal/metrics"
	"github.com/prn-tf/chunkvault/internal/store/fsstore"
	"github.com/prn-tf/chunkvault/internal/store/localcache"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	dir := t.TempDir()
	backend, err := fsstore.New(fsstore.Config{DataDir: dir + "/data", TempDir: dir + "/tmp"}, zerolog.Nop())
	require.NoError(t, err)
	return New(backend, zerolog.Nop())
}

func newTestCache(t *testing.T) *localcache.Cache {
	t.Helper()
	c, err := localcache.Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestHasChunkFallsThroughToBackendOnCacheMiss(t *testing.T) {
	a := newTestAdapter(t)
	cache := newTestCache(t)
	a.WithCache(cache)
	ctx := context.Background()

	h := chunk.Hash([]byte("data"))

	ok, err := a.HasChunk(ctx, h)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, cache.IsKnown(h), "a genuine miss must not populate the cache")

	require.NoError(t, a.PutChunk(ctx, h, []byte("data")))
	assert.True(t, cache.IsKnown(h), "PutChunk populates the cache on success")

	ok, err = a.HasChunk(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasChunkPopulatesCacheAfterConfirmedBackendHit(t *testing.T) {
	a := newTestAdapter(t)
	cache := newTestCache(t)
	a.WithCache(cache)
	ctx := context.Background()

	h := chunk.Hash([]byte("data"))
	require.NoError(t, a.adapterPutChunkBypassingCache(ctx, h, []byte("data")))

	assert.False(t, cache.IsKnown(h))
	ok, err := a.HasChunk(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, cache.IsKnown(h), "a confirmed backend hit populates the cache")
}

func TestGetRootShortCircuitsOnCacheHit(t *testing.T) {
	a := newTestAdapter(t)
	cache := newTestCache(t)
	a.WithCache(cache)
	ctx := context.Background()

	blob := manifest.EmptyBlob()
	blob.Set(0, chunk.Hash([]byte("block0")))
	doc := manifest.NewDocument(blob)

	require.NoError(t, a.PutRoot(ctx, "root1", doc))
	require.NoError(t, cache.PutDocument("root1", doc))

	// Delete the root key directly from the backend: if GetRoot still
	// finds the document, it came from the cache without a round trip.
	require.NoError(t, a.backend.Delete(ctx, RootKey("root1")))

	got, ok, err := a.GetRoot(ctx, "root1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, doc.Current().ChunkHashes(), got.Current().ChunkHashes())
}

func TestGetRootMissPopulatesCache(t *testing.T) {
	a := newTestAdapter(t)
	cache := newTestCache(t)
	a.WithCache(cache)
	ctx := context.Background()

	blob := manifest.EmptyBlob()
	blob.Set(0, chunk.Hash([]byte("block0")))
	doc := manifest.NewDocument(blob)
	require.NoError(t, a.PutRoot(ctx, "root2", doc))

	_, ok := cache.GetDocument("root2")
	require.True(t, ok, "PutRoot populates the cache on success")

	cache2 := newTestCache(t)
	a.WithCache(cache2)

	_, ok = cache2.GetDocument("root2")
	require.False(t, ok)

	got, ok, err := a.GetRoot(ctx, "root2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc.Current().ChunkHashes(), got.Current().ChunkHashes())

	_, ok = cache2.GetDocument("root2")
	assert.True(t, ok, "a cache miss on GetRoot populates the cache after the fetch")
}

func TestAdapterRecordsStoreOperationsAndCacheAccess(t *testing.T) {
	a := newTestAdapter(t)
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	a.WithMetrics(m)
	cache := newTestCache(t)
	a.WithCache(cache)
	ctx := context.Background()

	h := chunk.Hash([]byte("data"))
	require.NoError(t, a.PutChunk(ctx, h, []byte("data")))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("put_chunk", "ok")))

	ok, err := a.HasChunk(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("chunk_hashes")))

	cache2 := newTestCache(t)
	a.WithCache(cache2)
	ok, err = a.HasChunk(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("chunk_hashes")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("head_chunk", "ok")))
}

// adapterPutChunkBypassingCache writes directly through the backend,
// skipping the cache populate PutChunk itself performs, so a test can
// observe HasChunk's own populate-on-hit behavior in isolation.
func (a *Adapter) adapterPutChunkBypassingCache(ctx context.Context, hash chunk.Digest, data []byte) error {
	return a.backend.Put(ctx, ChunkKey(hash), data)
}

// batchDeletingBackend wraps a Backend and records every DeleteBatch call,
// standing in for s3store.Storage's BatchDeleter implementation so
// DeleteChunks's batching path can be exercised without a real S3 client.
type batchDeletingBackend struct {
	Backend
	batches [][]string
}

func (b *batchDeletingBackend) DeleteBatch(ctx context.Context, keys []string) error {
	b.batches = append(b.batches, append([]string(nil), keys...))
	return nil
}

func TestDeleteChunksUsesBatchDeleterWhenAvailable(t *testing.T) {
	dir := t.TempDir()
	backend, err := fsstore.New(fsstore.Config{DataDir: dir + "/data", TempDir: dir + "/tmp"}, zerolog.Nop())
	require.NoError(t, err)
	batching := &batchDeletingBackend{Backend: backend}
	a := New(batching, zerolog.Nop())
	ctx := context.Background()

	h1 := chunk.Hash([]byte("one"))
	h2 := chunk.Hash([]byte("two"))
	require.NoError(t, a.PutChunk(ctx, h1, []byte("one")))
	require.NoError(t, a.PutChunk(ctx, h2, []byte("two")))

	require.NoError(t, a.DeleteChunks(ctx, []chunk.Digest{h1, h2}))

	require.Len(t, batching.batches, 1)
	assert.ElementsMatch(t, []string{ChunkKey(h1), ChunkKey(h2)}, batching.batches[0])
}

func TestDeleteChunksFallsBackToOneAtATimeWithoutBatchDeleter(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	h := chunk.Hash([]byte("solo"))
	require.NoError(t, a.PutChunk(ctx, h, []byte("solo")))
	require.NoError(t, a.DeleteChunks(ctx, []chunk.Digest{h}))

	ok, err := a.backend.Head(ctx, ChunkKey(h))
	require.NoError(t, err)
	assert.False(t, ok)
}
