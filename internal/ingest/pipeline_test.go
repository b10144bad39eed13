package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/store"
	"github.com/prn-tf/chunkvault/internal/store/fsstore"
)

func newTestAdapter(t *testing.T) *store.Adapter {
	t.Helper()
	dir := t.TempDir()
	backend, err := fsstore.New(fsstore.Config{DataDir: dir + "/data", TempDir: dir + "/tmp"}, zerolog.Nop())
	require.NoError(t, err)
	return store.New(backend, zerolog.Nop())
}

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIngestFirstBackupUploadsAllChunks(t *testing.T) {
	adapter := newTestAdapter(t)
	data := bytes.Repeat([]byte("a"), chunk.Size*3)
	path := writeTempFile(t, data)

	src, err := OpenFileSource(path)
	require.NoError(t, err)

	pipe := New(Config{}, adapter, zerolog.Nop())
	result, err := pipe.Run(context.Background(), "target1", src)
	require.NoError(t, err)
	require.NoError(t, src.Close())

	assert.Equal(t, 3, result.ChunksUploaded)
	assert.Equal(t, 0, result.ChunksDeduped)
	assert.Equal(t, 3, result.Document.Current().Len())
	assert.Empty(t, result.Document.Versions())
}

func TestIngestDedupesIdenticalChunks(t *testing.T) {
	adapter := newTestAdapter(t)
	// all three chunks identical -> only one distinct hash
	data := bytes.Repeat([]byte("z"), chunk.Size*3)
	path := writeTempFile(t, data)

	src, err := OpenFileSource(path)
	require.NoError(t, err)
	pipe := New(Config{}, adapter, zerolog.Nop())
	result, err := pipe.Run(context.Background(), "target2", src)
	require.NoError(t, err)
	require.NoError(t, src.Close())

	assert.Equal(t, 1, result.ChunksUploaded)
	assert.Equal(t, 2, result.ChunksDeduped)
}

func TestIngestIncrementalOnlyUploadsChangedChunks(t *testing.T) {
	adapter := newTestAdapter(t)

	first := append(bytes.Repeat([]byte("a"), chunk.Size), bytes.Repeat([]byte("b"), chunk.Size)...)
	path := writeTempFile(t, first)
	src, err := OpenFileSource(path)
	require.NoError(t, err)
	pipe := New(Config{}, adapter, zerolog.Nop())
	_, err = pipe.Run(context.Background(), "target3", src)
	require.NoError(t, err)
	require.NoError(t, src.Close())

	// second backup: first chunk unchanged, second chunk changes
	second := append(bytes.Repeat([]byte("a"), chunk.Size), bytes.Repeat([]byte("c"), chunk.Size)...)
	path2 := writeTempFile(t, second)
	src2, err := OpenFileSource(path2)
	require.NoError(t, err)
	result, err := pipe.Run(context.Background(), "target3", src2)
	require.NoError(t, err)
	require.NoError(t, src2.Close())

	assert.Equal(t, 1, result.ChunksUploaded)
	require.Len(t, result.Document.Versions(), 1)
}

func TestIngestRejectsMissingFile(t *testing.T) {
	_, err := OpenFileSource(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
