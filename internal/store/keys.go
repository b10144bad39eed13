package store

import (
	"strings"

	"github.com/prn-tf/chunkvault/internal/chunk"
)

// Prefix bytes for the two disjoint key families. Both letters also occur
// in the base64url alphabet; a backend can still classify a key by its
// first byte alone when listing, because every key starts with exactly
// one of these prefixes.
const (
	rootPrefix  = "R"
	chunkPrefix = "C"
)

// RootKey returns the object-store key for a backup target's Document.
func RootKey(rootName string) string {
	return rootPrefix + rootName
}

// ChunkKey returns the object-store key for a chunk's bytes.
func ChunkKey(hash chunk.Digest) string {
	return chunkPrefix + hash.String()
}

// ParseChunkKey decodes a chunk key back into its digest. It reports false
// if key is not a well-formed chunk key, matching the "skip keys that
// don't parse" requirement when listing available hashes.
func ParseChunkKey(key string) (chunk.Digest, bool) {
	if !strings.HasPrefix(key, chunkPrefix) {
		return chunk.Digest{}, false
	}
	d, err := chunk.DigestFromBase64(key[len(chunkPrefix):])
	if err != nil {
		return chunk.Digest{}, false
	}
	return d, true
}
