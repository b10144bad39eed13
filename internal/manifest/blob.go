// Package manifest implements the versioned, content-addressed manifest
// data model: a Blob records one snapshot's chunk-hash sequence, a
// PrevBlob encodes an older snapshot as a reverse delta against its
// successor, and a Document ties a current Blob to its PrevBlob history.
package manifest

import (
	"fmt"
	"time"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
)

// Blob is an ordered sequence of chunk hashes plus the Unix-seconds
// timestamp of the backup that produced it. Sequence index i covers file
// bytes [i*chunk.Size, (i+1)*chunk.Size).
type Blob struct {
	hashes    []chunk.Digest
	timestamp int64
}

// EmptyBlob returns a zero-length Blob stamped with the current time.
func EmptyBlob() Blob {
	return Blob{timestamp: now()}
}

// Fork clones b with its timestamp refreshed to now. Ingest calls this at
// the start of an incremental backup so the reused chunk layout is stamped
// with the new backup's time before any index is overwritten.
func (b Blob) Fork() Blob {
	hashes := make([]chunk.Digest, len(b.hashes))
	copy(hashes, b.hashes)
	return Blob{hashes: hashes, timestamp: now()}
}

// Set assigns hash at index, extending the sequence with the reserved
// all-zero sentinel if index is beyond the current length. The sentinel
// must be overwritten by a later Set before VerifyInvariants is called.
func (b *Blob) Set(index int, hash chunk.Digest) {
	if index >= len(b.hashes) {
		grown := make([]chunk.Digest, index+1)
		copy(grown, b.hashes)
		b.hashes = grown
	}
	b.hashes[index] = hash
}

// Len reports the number of chunks in the sequence.
func (b Blob) Len() int {
	return len(b.hashes)
}

// Size is the logical byte size of the file this Blob represents:
// len(sequence) * chunk.Size. Restored files are rounded up to this size.
func (b Blob) Size() uint64 {
	return uint64(len(b.hashes)) * uint64(chunk.Size)
}

// Timestamp returns the Unix-seconds timestamp this Blob was stamped with.
func (b Blob) Timestamp() int64 {
	return b.timestamp
}

// ChunkHashes returns the ordered chunk-hash sequence. The returned slice
// must not be mutated by the caller; it aliases b's backing array.
func (b Blob) ChunkHashes() []chunk.Digest {
	return b.hashes
}

// At returns the hash at index, or the zero sentinel and false if index is
// out of range.
func (b Blob) At(index int) (chunk.Digest, bool) {
	if index < 0 || index >= len(b.hashes) {
		return chunk.Digest{}, false
	}
	return b.hashes[index], true
}

// VerifyInvariants fails if any reserved sentinel hash remains in the
// sequence. Ingest calls this immediately before publish.
func (b Blob) VerifyInvariants() error {
	for i, h := range b.hashes {
		if h.IsZero() {
			return fmt.Errorf("%w: blob has unset sentinel at index %d", engineerrors.ErrInvariantViolation, i)
		}
	}
	return nil
}

func now() int64 {
	return time.Now().Unix()
}
