package manifest

import (
	"fmt"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
)

// PrevBlob encodes an older Blob as a reverse delta against its successor:
// runs of chunks identical to the successor, interleaved with the actual
// hashes of the chunks that differ. len(runs) - len(diffs) is always 0 or 1.
type PrevBlob struct {
	runs      []uint64
	diffs     []chunk.Digest
	timestamp int64
}

// FromDiff computes the reverse delta that reconstructs prev given succ.
// prev must be no longer than succ. The result is self-verified: it
// reconstructs prev from succ before being returned, matching the source
// algorithm's own round-trip assertion.
func FromDiff(succ, prev Blob) (PrevBlob, error) {
	if prev.Len() > succ.Len() {
		return PrevBlob{}, fmt.Errorf("%w: prev blob (%d chunks) longer than successor (%d chunks)",
			engineerrors.ErrInvariantViolation, prev.Len(), succ.Len())
	}

	var runs []uint64
	var diffs []chunk.Digest
	var run uint64

	for i := 0; i < prev.Len(); i++ {
		if i < succ.Len() && succ.hashes[i] == prev.hashes[i] {
			run++
			continue
		}
		runs = append(runs, run)
		run = 0
		diffs = append(diffs, prev.hashes[i])
	}
	if run > 0 {
		runs = append(runs, run)
	}

	pb := PrevBlob{runs: runs, diffs: diffs, timestamp: prev.timestamp}

	if d := len(pb.runs) - len(pb.diffs); d != 0 && d != 1 {
		return PrevBlob{}, fmt.Errorf("%w: delta run/diff count mismatch: %d runs, %d diffs",
			engineerrors.ErrInvariantViolation, len(pb.runs), len(pb.diffs))
	}

	got := pb.Reconstruct(succ)
	if !blobHashesEqual(got, prev) {
		return PrevBlob{}, fmt.Errorf("%w: delta round-trip reconstruction disagreed with original",
			engineerrors.ErrInvariantViolation)
	}

	return pb, nil
}

// Reconstruct rebuilds the prior Blob this delta describes, given its
// successor. It walks runs, copying that many hashes from succ, then
// consumes one succ slot and substitutes one diff hash after each run
// (except when no diff remains, for a trailing equality run).
func (pb PrevBlob) Reconstruct(succ Blob) Blob {
	hashes := make([]chunk.Digest, 0, len(succ.hashes))
	pos := 0
	diffIdx := 0

	for _, r := range pb.runs {
		for j := uint64(0); j < r; j++ {
			hashes = append(hashes, succ.hashes[pos])
			pos++
		}
		if diffIdx < len(pb.diffs) {
			hashes = append(hashes, pb.diffs[diffIdx])
			diffIdx++
			pos++
		}
	}

	return Blob{hashes: hashes, timestamp: pb.timestamp}
}

// RetainedSize is the number of bytes this historical version uniquely
// references: the chunks that differ from its successor.
func (pb PrevBlob) RetainedSize() uint64 {
	return uint64(len(pb.diffs)) * uint64(chunk.Size)
}

// Timestamp returns the Unix-seconds timestamp of the version this delta
// reconstructs.
func (pb PrevBlob) Timestamp() int64 {
	return pb.timestamp
}

func blobHashesEqual(a, b Blob) bool {
	if len(a.hashes) != len(b.hashes) {
		return false
	}
	for i := range a.hashes {
		if a.hashes[i] != b.hashes[i] {
			return false
		}
	}
	return true
}
