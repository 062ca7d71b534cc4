package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/keyforge/vector"
)

// PutVector stores the canonical encoding of v. The returned CID equals
// v.CID().
func PutVector(c CAS, v *vector.Vector) (cid.Cid, error) {
	b, err := vector.Encode(v)
	if err != nil {
		return cid.Undef, err
	}
	return c.Put(b)
}

// GetVector loads and decodes the vector stored under id.
func GetVector(c CAS, id cid.Cid) (*vector.Vector, error) {
	b, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	v, err := vector.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", id, err)
	}
	return v, nil
}
