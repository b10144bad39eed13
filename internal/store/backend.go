// Package store implements the object-store key space and its adapter
// operations over a generic Backend: two prefix-separated key families
// (root manifests and chunk blocks) over any key->bytes store.
package store

import (
	"context"
	"io"
)

// Backend is the capability set the pipeline is polymorphic over: any
// key->bytes store that can put, get, head, list, and delete. The
// filesystem and S3-compatible adapters in fsstore and s3store both
// implement it; other backends can be added without touching the core.
type Backend interface {
	// Put fully replaces the object at key (atomic at the backend level).
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the full object bytes. Returns ErrBackendNotFound
	// (wrapped) if key is absent; the Adapter translates that into
	// engineerrors.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Head reports whether key exists, distinguishing absence from other
	// failures: ok is false with a nil error only when key is genuinely
	// absent.
	Head(ctx context.Context, key string) (ok bool, err error)

	// List streams every key with the given prefix to fn. Iteration stops
	// and the first non-nil error from fn (or from the backend) is
	// returned.
	List(ctx context.Context, prefix string, fn func(key string) error) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ReadCloserBackend is an optional extension for backends that can stream
// object bodies rather than materializing the whole object in memory.
// fsstore and s3store implement it; the restore fetcher does not use it
// and reads whole objects through Get.
type ReadCloserBackend interface {
	Backend
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)
}

// BatchDeleter is an optional extension for backends that can delete many
// keys in one round trip. s3store implements it over S3's DeleteObjects;
// DeleteChunks uses it when the backend offers it instead of deleting one
// key at a time.
type BatchDeleter interface {
	DeleteBatch(ctx context.Context, keys []string) error
}
