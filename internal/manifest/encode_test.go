package manifest

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSerializationRoundTripProperty is property 6: encode-then-decode of
// any Document yields the original bit-for-bit.
func TestSerializationRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	doc := NewDocument(blobFromHashes(randomHashes(rng, 6), 1000))
	for i := 0; i < 4; i++ {
		// each successor is at least as long as its predecessor, as FromDiff
		// requires.
		next := blobFromHashes(randomHashes(rng, 8+2*i+rng.Intn(3)), int64(2000+i))
		var err error
		doc, err = doc.Update(next)
		require.NoError(t, err)
	}

	data, err := MarshalDocument(doc)
	require.NoError(t, err)

	back, err := UnmarshalDocument(data)
	require.NoError(t, err)

	assert.Equal(t, doc.Current().ChunkHashes(), back.Current().ChunkHashes())
	assert.Equal(t, doc.Current().Timestamp(), back.Current().Timestamp())
	require.Equal(t, len(doc.Versions()), len(back.Versions()))
	for i := range doc.Versions() {
		assert.Equal(t, doc.Versions()[i], back.Versions()[i])
	}

	data2, err := MarshalDocument(back)
	require.NoError(t, err)
	assert.Equal(t, data, data2, "re-encoding the decoded document must be bit-for-bit identical")
}

func TestEncodeBlobEmptyRoundTrip(t *testing.T) {
	b := EmptyBlob()
	var buf bytes.Buffer
	require.NoError(t, EncodeBlob(&buf, b))

	back, err := DecodeBlob(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())
	assert.Equal(t, b.Timestamp(), back.Timestamp())
}

func TestEncodePrevBlobRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	succ := blobFromHashes(randomHashes(rng, 5), 50)
	prev := blobFromHashes(randomHashes(rng, 5), 40)
	prev.hashes[2] = succ.hashes[2]

	pb, err := FromDiff(succ, prev)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodePrevBlob(&buf, pb))

	back, err := DecodePrevBlob(&buf)
	require.NoError(t, err)
	assert.Equal(t, pb.runs, back.runs)
	assert.Equal(t, pb.diffs, back.diffs)
	assert.Equal(t, pb.timestamp, back.timestamp)
}
