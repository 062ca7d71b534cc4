// Package storage defines the content-addressable store that holds
// encoded vectors, and helpers to put and get vectors through it.
package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable storage interface.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be CIDv1 raw/sha2-256 over the bytes written (see cidutil).
// - Get MUST return ErrNotFound when the CID is absent and ErrCIDMismatch
//   when the stored bytes no longer hash to the CID.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Lister is implemented by stores that can enumerate the vectors they
// hold.
type Lister interface {
	// List returns every stored CID, sorted by string form.
	List() ([]cid.Cid, error)
}
