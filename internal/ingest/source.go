package ingest

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/prn-tf/chunkvault/internal/chunk"
)

// FileSource is the reader stage for a plain full backup: it opens a
// file and emits fixed-size blocks tagged by their sequential index. The
// last short block is zero-padded; a trailing zero-byte read is
// discarded rather than emitted as an empty chunk.
type FileSource struct {
	f         *os.File
	nextIndex int
}

// OpenFileSource opens path for the reader stage.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f}, nil
}

// Next reads the next chunk.Size block from the file.
func (s *FileSource) Next(ctx context.Context) (int, []byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, false, err
	}

	buf := make([]byte, chunk.Size)
	n, err := io.ReadFull(s.f, buf)
	switch {
	case err == nil:
		idx := s.nextIndex
		s.nextIndex++
		return idx, buf, true, nil
	case errors.Is(err, io.EOF):
		return 0, nil, false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		idx := s.nextIndex
		s.nextIndex++
		return idx, chunk.Pad(buf[:n]), true, nil
	default:
		return 0, nil, false, err
	}
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

var _ BlockSource = (*FileSource)(nil)
