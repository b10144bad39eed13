// Package engineerrors defines the sentinel error taxonomy the engine and
// its subpackages wrap operation failures in. Callers distinguish failure
// kinds with errors.Is against these sentinels; the concrete cause is
// preserved by %w wrapping at the point of origin.
package engineerrors

import "errors"

var (
	// ErrReadError means the source file or device I/O failed. Fatal to ingest.
	ErrReadError = errors.New("engine: read error")

	// ErrStoreError means an object-store operation failed in a way other
	// than "not found". Fatal to the current operation.
	ErrStoreError = errors.New("engine: store error")

	// ErrNotFound means the requested key is absent from the store. Normal
	// for the root key on first backup; data loss if it is a chunk key
	// during restore.
	ErrNotFound = errors.New("engine: not found")

	// ErrHashMismatch means a fetched chunk's content hash did not match
	// the hash recorded for it. The store is corrupted.
	ErrHashMismatch = errors.New("engine: hash mismatch")

	// ErrInvariantViolation means a data-model invariant was violated: a
	// sentinel hash survived to publish, or a PrevBlob round-trip
	// reconstruction disagreed with the original. Programmer error.
	ErrInvariantViolation = errors.New("engine: invariant violation")

	// ErrSerialization means decoding a Document failed. Treated as store
	// corruption.
	ErrSerialization = errors.New("engine: serialization error")

	// ErrCancelled means cooperative cancellation aborted the operation
	// before the root was written. Not fatal to the process.
	ErrCancelled = errors.New("engine: cancelled")
)
