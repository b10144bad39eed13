package manifest

import (
	"math/rand"
	"testing"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobFromHashes(hashes []chunk.Digest, ts int64) Blob {
	return Blob{hashes: hashes, timestamp: ts}
}

func randomHashes(rng *rand.Rand, n int) []chunk.Digest {
	hashes := make([]chunk.Digest, n)
	for i := range hashes {
		var d chunk.Digest
		rng.Read(d[:])
		if d.IsZero() {
			d[0] = 1
		}
		hashes[i] = d
	}
	return hashes
}

func TestFromDiffRejectsLongerPrev(t *testing.T) {
	succ := blobFromHashes(randomHashes(rand.New(rand.NewSource(1)), 2), 100)
	prev := blobFromHashes(randomHashes(rand.New(rand.NewSource(2)), 3), 50)
	_, err := FromDiff(succ, prev)
	assert.Error(t, err)
}

func TestFromDiffIdenticalBlobsProducesAllRunsNoDiffs(t *testing.T) {
	hashes := randomHashes(rand.New(rand.NewSource(3)), 4)
	succ := blobFromHashes(hashes, 200)
	prev := blobFromHashes(append([]chunk.Digest(nil), hashes...), 100)

	pb, err := FromDiff(succ, prev)
	require.NoError(t, err)
	assert.Empty(t, pb.diffs)
	assert.Equal(t, uint64(0), pb.RetainedSize())

	got := pb.Reconstruct(succ)
	assert.Equal(t, prev.ChunkHashes(), got.ChunkHashes())
}

func TestFromDiffEverythingDifferentProducesAllDiffsNoRuns(t *testing.T) {
	succ := blobFromHashes(randomHashes(rand.New(rand.NewSource(4)), 3), 200)
	prev := blobFromHashes(randomHashes(rand.New(rand.NewSource(5)), 3), 100)

	pb, err := FromDiff(succ, prev)
	require.NoError(t, err)
	assert.Len(t, pb.diffs, 3)
	assert.Equal(t, uint64(3*chunk.Size), pb.RetainedSize())

	got := pb.Reconstruct(succ)
	assert.Equal(t, prev.ChunkHashes(), got.ChunkHashes())
}

func TestFromDiffShorterPrevWithTrailingRun(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	shared := randomHashes(rng, 3)
	succ := blobFromHashes(append(append([]chunk.Digest(nil), shared...), randomHashes(rng, 2)...), 200)
	prev := blobFromHashes(shared, 100)

	pb, err := FromDiff(succ, prev)
	require.NoError(t, err)
	assert.Empty(t, pb.diffs)
	assert.Equal(t, []uint64{3}, pb.runs)

	got := pb.Reconstruct(succ)
	assert.Equal(t, prev.ChunkHashes(), got.ChunkHashes())
}

// TestDeltaLawProperty is property 3 ("Delta law") from the testable
// properties: for any (new, prev) pair with len(prev) <= len(new),
// FromDiff(new, prev).Reconstruct(new) == prev. from_diff asserts this
// internally on every call, so this test exercises many shapes of overlap
// and mismatch across a seeded pseudo-random generator.
func TestDeltaLawProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(12)
		m := n + rng.Intn(6)

		succ := blobFromHashes(randomHashes(rng, m), int64(1000+trial))
		prevHashes := make([]chunk.Digest, n)
		for i := 0; i < n; i++ {
			if rng.Intn(2) == 0 && i < len(succ.hashes) {
				prevHashes[i] = succ.hashes[i]
			} else {
				var d chunk.Digest
				rng.Read(d[:])
				if d.IsZero() {
					d[0] = 1
				}
				prevHashes[i] = d
			}
		}
		prev := blobFromHashes(prevHashes, int64(500+trial))

		pb, err := FromDiff(succ, prev)
		require.NoError(t, err, "trial %d", trial)

		got := pb.Reconstruct(succ)
		require.Equal(t, prev.ChunkHashes(), got.ChunkHashes(), "trial %d", trial)

		d := len(pb.runs) - len(pb.diffs)
		require.Truef(t, d == 0 || d == 1, "trial %d: runs=%d diffs=%d", trial, len(pb.runs), len(pb.diffs))
	}
}
