// Package changedchunk implements the changed-region -> chunk-index
// adapter contract (spec.md §4.F): an external delta producer emits
// "address ranges" in device-native block units, and this package
// translates them into chunk indices, re-reading exactly those chunks
// via positional I/O from the frozen snapshot file.
package changedchunk

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
)

// Range is one "changed address range" event from the external producer,
// expressed in device-native block units (not chunk units).
type Range struct {
	StartBlock uint64
	BlockCount uint64
}

// Producer is the external collaborator's contract: it emits a
// monotonically-visited stream of changed ranges. Failures from it abort
// ingest like any reader failure.
type Producer interface {
	Next(ctx context.Context) (Range, bool, error)
}

// dedupWindow is a bounded FIFO of recently-processed chunk indices.
// Exact set membership is not required by spec.md §4.F — a small window
// suffices to suppress repeats from overlapping ranges.
type dedupWindow struct {
	capacity int
	order    []int
	seen     map[int]struct{}
}

func newDedupWindow(capacity int) *dedupWindow {
	return &dedupWindow{capacity: capacity, seen: make(map[int]struct{}, capacity)}
}

// seenRecently reports whether idx was processed within the window, and
// records it for future checks, evicting the oldest entry once the window
// is full.
func (w *dedupWindow) seenRecently(idx int) bool {
	if _, ok := w.seen[idx]; ok {
		return true
	}
	w.order = append(w.order, idx)
	w.seen[idx] = struct{}{}
	if len(w.order) > w.capacity {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.seen, oldest)
	}
	return false
}

// DefaultWindowSize matches spec.md §4.F's example FIFO window size.
const DefaultWindowSize = 100

// Source adapts a Producer of device-block ranges into an
// ingest.BlockSource of chunk-sized blocks, reading from snapshotPath via
// positional I/O.
type Source struct {
	producer      Producer
	snapshot      *os.File
	deviceBlock   uint64
	window        *dedupWindow
	pendingIdx    []int
	pendingCursor int
}

// Open opens snapshotPath and wraps producer, translating its ranges to
// chunk indices using deviceBlockSize (the device's native block size,
// supplied by the source's superblock event).
func Open(snapshotPath string, producer Producer, deviceBlockSize uint64, windowSize int) (*Source, error) {
	if deviceBlockSize == 0 {
		return nil, fmt.Errorf("%w: device block size must be nonzero", engineerrors.ErrInvariantViolation)
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	f, err := os.Open(snapshotPath)
	if err != nil {
		return nil, err
	}
	return &Source{
		producer:    producer,
		snapshot:    f,
		deviceBlock: deviceBlockSize,
		window:      newDedupWindow(windowSize),
	}, nil
}

// rangeToChunkIndices maps a device-block range to the set of chunk
// indices it overlaps, given the device's native block size.
func rangeToChunkIndices(r Range, deviceBlockSize uint64) []int {
	startByte := r.StartBlock * deviceBlockSize
	endByte := (r.StartBlock + r.BlockCount) * deviceBlockSize
	if endByte <= startByte {
		return nil
	}
	firstIdx := int(startByte / uint64(chunk.Size))
	lastIdx := int((endByte - 1) / uint64(chunk.Size))

	indices := make([]int, 0, lastIdx-firstIdx+1)
	for i := firstIdx; i <= lastIdx; i++ {
		indices = append(indices, i)
	}
	return indices
}

// Next returns the next not-recently-seen chunk, read from the frozen
// snapshot at its chunk-aligned offset, or ok=false at clean end of
// input once the producer is exhausted and all pending indices from the
// last range have been drained.
func (s *Source) Next(ctx context.Context) (int, []byte, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, false, err
		}

		for s.pendingCursor < len(s.pendingIdx) {
			idx := s.pendingIdx[s.pendingCursor]
			s.pendingCursor++
			if s.window.seenRecently(idx) {
				continue
			}
			data, err := s.readChunk(idx)
			if err != nil {
				return 0, nil, false, err
			}
			return idx, data, true, nil
		}

		r, ok, err := s.producer.Next(ctx)
		if err != nil {
			return 0, nil, false, err
		}
		if !ok {
			return 0, nil, false, nil
		}
		s.pendingIdx = rangeToChunkIndices(r, s.deviceBlock)
		s.pendingCursor = 0
	}
}

func (s *Source) readChunk(idx int) ([]byte, error) {
	buf := make([]byte, chunk.Size)
	n, err := s.snapshot.ReadAt(buf, int64(idx)*int64(chunk.Size))
	if err != nil && err != io.EOF {
		return nil, err
	}
	return chunk.Pad(buf[:n]), nil
}

// Close closes the underlying snapshot file.
func (s *Source) Close() error {
	return s.snapshot.Close()
}
