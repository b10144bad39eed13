package manifest

import (
	"testing"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBlob(n int, seed byte) Blob {
	b := EmptyBlob()
	for i := 0; i < n; i++ {
		var d chunk.Digest
		d[0] = seed
		d[1] = byte(i + 1)
		b.Set(i, d)
	}
	return b
}

func TestNewDocumentHasNoHistory(t *testing.T) {
	b := mustBlob(3, 1)
	doc := NewDocument(b)
	assert.Empty(t, doc.Versions())
	assert.Equal(t, 1, doc.VersionCount())
	assert.Equal(t, b.ChunkHashes(), doc.Current().ChunkHashes())
}

func TestDocumentUpdatePrependsHistoryNewestFirst(t *testing.T) {
	b0 := mustBlob(3, 1)
	doc := NewDocument(b0)

	b1 := mustBlob(3, 2)
	doc, err := doc.Update(b1)
	require.NoError(t, err)
	require.Len(t, doc.Versions(), 1)

	b2 := mustBlob(3, 3)
	doc, err = doc.Update(b2)
	require.NoError(t, err)
	require.Len(t, doc.Versions(), 2)

	// history[0] is the immediately-previous version's delta (b1 vs b2).
	immediatelyPrev, ok := doc.GetVersion(doc.VersionCount() - 2)
	require.True(t, ok)
	assert.Equal(t, b1.ChunkHashes(), immediatelyPrev.ChunkHashes())
}

// TestIncrementalCorrectnessProperty is property 2 ("Incremental
// correctness"): after two updates, current equals the latest blob, and
// the oldest version (k=0) reconstructs to the first blob.
func TestIncrementalCorrectnessProperty(t *testing.T) {
	b1 := mustBlob(10, 1)
	doc := NewDocument(b1)

	b2 := mustBlob(10, 2)
	// only half the chunks differ between b1 and b2
	for i := 0; i < 5; i++ {
		h, _ := b1.At(i)
		b2.Set(i, h)
	}

	doc, err := doc.Update(b2)
	require.NoError(t, err)

	assert.Equal(t, b2.ChunkHashes(), doc.Current().ChunkHashes())

	oldest, ok := doc.GetVersion(0)
	require.True(t, ok)
	assert.Equal(t, b1.ChunkHashes(), oldest.ChunkHashes())

	newest, ok := doc.GetVersion(doc.VersionCount() - 1)
	require.True(t, ok)
	assert.Equal(t, b2.ChunkHashes(), newest.ChunkHashes())
}

func TestGetVersionOutOfRange(t *testing.T) {
	doc := NewDocument(mustBlob(2, 1))
	_, ok := doc.GetVersion(-1)
	assert.False(t, ok)
	_, ok = doc.GetVersion(1)
	assert.False(t, ok)
}

func TestGetVersionChainOfThree(t *testing.T) {
	b1 := mustBlob(4, 1)
	doc := NewDocument(b1)

	b2 := mustBlob(4, 2)
	doc, err := doc.Update(b2)
	require.NoError(t, err)

	b3 := mustBlob(4, 3)
	doc, err = doc.Update(b3)
	require.NoError(t, err)

	v0, ok := doc.GetVersion(0)
	require.True(t, ok)
	assert.Equal(t, b1.ChunkHashes(), v0.ChunkHashes())

	v1, ok := doc.GetVersion(1)
	require.True(t, ok)
	assert.Equal(t, b2.ChunkHashes(), v1.ChunkHashes())

	v2, ok := doc.GetVersion(2)
	require.True(t, ok)
	assert.Equal(t, b3.ChunkHashes(), v2.ChunkHashes())
}

func TestDocumentUpdateRejectsSentinelBlob(t *testing.T) {
	doc := NewDocument(mustBlob(1, 1))
	b := EmptyBlob()
	b.Set(0, chunk.Digest{}) // stays zero: sentinel survives
	_, err := doc.Update(b)
	assert.Error(t, err)
}
