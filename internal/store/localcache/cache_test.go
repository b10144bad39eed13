package localcache

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/manifest"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestIsKnownDefaultsFalse(t *testing.T) {
	c := newTestCache(t)
	assert.False(t, c.IsKnown(chunk.Hash([]byte("unseen"))))
}

func TestMarkKnownThenIsKnown(t *testing.T) {
	c := newTestCache(t)
	h := chunk.Hash([]byte("seen"))
	require.NoError(t, c.MarkKnown(h))
	assert.True(t, c.IsKnown(h))
}

func TestDocumentCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.GetDocument("myroot")
	assert.False(t, ok)

	b := manifest.EmptyBlob()
	doc := manifest.NewDocument(b)
	require.NoError(t, c.PutDocument("myroot", doc))

	got, ok := c.GetDocument("myroot")
	require.True(t, ok)
	assert.Equal(t, doc.Current().ChunkHashes(), got.Current().ChunkHashes())
}
