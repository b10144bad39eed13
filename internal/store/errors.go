package store

import "errors"

// ErrBackendNotFound is the sentinel a Backend implementation wraps its
// absent-key condition in (os.IsNotExist for fsstore, NoSuchKey for
// s3store). The adapter translates it into engineerrors.ErrNotFound at
// the key-space boundary.
var ErrBackendNotFound = errors.New("store: key not found")

func isBackendNotFound(err error) bool {
	return errors.Is(err, ErrBackendNotFound)
}
