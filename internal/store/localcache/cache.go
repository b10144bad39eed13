// Package localcache implements the optional, process-local advisory
// cache described in spec.md §3: a record of chunk hashes known to exist
// in the store and the last-seen Document, used to shortcut has_chunk
// checks and avoid a round trip on the first ingest after process start.
// It is strictly a cache — correctness never depends on its contents,
// and divergence from the store is resolved by the store being
// authoritative. Grounded on original_source/storage.rs's LocalData,
// backed here by an embedded badger.DB instead of a hand-rolled flat
// file.
package localcache

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/manifest"
)

var hashKnownPrefix = []byte("h:")

func rootDocKey(rootName string) []byte {
	return append([]byte("d:"), []byte(rootName)...)
}

// Cache is a badger-backed advisory cache. A single instance may serve
// multiple backup targets; Document entries are keyed by root name, and
// known-hash entries are process-global (a chunk existing in the store
// is not target-scoped).
type Cache struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (creating if absent) a badger database at dir.
func Open(dir string, logger zerolog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("localcache: open badger db: %w", err)
	}
	logger.Info().Str("dir", dir).Msg("localcache opened")
	return &Cache{db: db, logger: logger}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// MarkKnown records that hash is known to exist in the store.
func (c *Cache) MarkKnown(hash chunk.Digest) error {
	key := append(append([]byte(nil), hashKnownPrefix...), hash.Bytes()...)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{1})
	})
}

// IsKnown reports whether hash was previously recorded as known. A false
// result does not mean the chunk is absent — only that this cache has no
// record; callers must still consult the store as ground truth when this
// returns false and correctness matters (HasChunk).
func (c *Cache) IsKnown(hash chunk.Digest) bool {
	key := append(append([]byte(nil), hashKnownPrefix...), hash.Bytes()...)
	known := false
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		known = true
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("localcache lookup failed, treating as unknown")
		return false
	}
	return known
}

// PutDocument caches the last-known Document for rootName.
func (c *Cache) PutDocument(rootName string, doc manifest.Document) error {
	data, err := manifest.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("localcache: encode document: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rootDocKey(rootName), data)
	})
}

// GetDocument returns the cached Document for rootName, if any.
func (c *Cache) GetDocument(rootName string) (manifest.Document, bool) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(rootDocKey(rootName))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil || data == nil {
		return manifest.Document{}, false
	}
	doc, err := manifest.UnmarshalDocument(data)
	if err != nil {
		c.logger.Warn().Err(err).Str("root", rootName).Msg("localcache document decode failed, ignoring stale entry")
		return manifest.Document{}, false
	}
	return doc, true
}
