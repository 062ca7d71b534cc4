package storage

import "errors"

// Errors every vector store reports in the same way, whatever the backend.
var (
	// ErrNotFound means no vector is stored under the CID.
	ErrNotFound = errors.New("storage: vector not stored")
	// ErrInvalidCID means the CID is undefined or not CIDv1 raw/sha2-256.
	ErrInvalidCID = errors.New("storage: malformed vector cid")
	// ErrCIDMismatch means the stored bytes no longer hash to their CID.
	ErrCIDMismatch = errors.New("storage: stored vector does not match its cid")
	// ErrImmutable means a different encoding already sits under the CID.
	ErrImmutable = errors.New("storage: vector already stored with different bytes")
	// ErrNotListable means no store in use can enumerate its vectors.
	ErrNotListable = errors.New("storage: store cannot list vectors")
)

// IsNotFound reports whether err means the vector is absent.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
