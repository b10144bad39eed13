// Package chunk defines the content identity of a fixed-size backup chunk.
package chunk

import (
	"bytes"
	"encoding/base64"

	"lukechampine.com/blake3"
)

// Size is the number of bytes in a single chunk. Every chunk the ingest
// pipeline reads, hashes, and stores is exactly this many bytes; the final
// chunk of a file is zero-padded up to it. Must be a power of two >= 64KiB.
const Size = 512 * 1024

// DigestLen is the length in bytes of a Digest.
const DigestLen = 32

// Digest is the 256-bit BLAKE3 content hash that identifies a chunk.
// It serializes as exactly DigestLen raw bytes (no length prefix) and
// orders lexicographically so it can be used as a key in sorted sets.
type Digest [DigestLen]byte

// Zero is the reserved sentinel digest used internally by a Blob while a
// chunk index has been extended by Set but not yet assigned a real hash.
// It must never appear in a published Blob.
var Zero Digest

// Hash computes the content digest of a chunk's bytes.
func Hash(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

// Verify recomputes the digest of data and reports whether it matches want.
func Verify(want Digest, data []byte) bool {
	return Hash(data) == want
}

// IsZero reports whether d is the reserved sentinel.
func (d Digest) IsZero() bool {
	return d == Zero
}

// Compare orders two digests lexicographically by byte value. It returns
// a negative number, zero, or a positive number as d is less than, equal
// to, or greater than other.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// Bytes returns the raw 32-byte digest.
func (d Digest) Bytes() []byte {
	return d[:]
}

// String returns the base64url (no padding) encoding used for object
// store chunk keys.
func (d Digest) String() string {
	return base64.RawURLEncoding.EncodeToString(d[:])
}

// DigestFromBase64 decodes the base64url-nopad encoding produced by String.
func DigestFromBase64(s string) (Digest, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Digest{}, err
	}
	var d Digest
	if len(raw) != DigestLen {
		return Digest{}, errInvalidLength
	}
	copy(d[:], raw)
	return d, nil
}

var errInvalidLength = &invalidLengthError{}

type invalidLengthError struct{}

func (*invalidLengthError) Error() string { return "chunk: decoded digest has wrong length" }

// Pad returns data zero-padded up to Size if it is shorter, or data
// unchanged if it is already exactly Size bytes. It panics if data is
// longer than Size, which would indicate a reader bug upstream.
func Pad(data []byte) []byte {
	if len(data) == Size {
		return data
	}
	if len(data) > Size {
		panic("chunk: block larger than chunk size")
	}
	padded := make([]byte, Size)
	copy(padded, data)
	return padded
}
