// Package cidutil computes the content identifiers keyforge uses for
// vectors: CIDv1 with the "raw" multicodec over a sha2-256 multihash.
package cidutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ErrMismatch reports bytes that do not hash to the expected CID.
var ErrMismatch = errors.New("cidutil: content does not match cid")

// Of returns the CID of data.
func Of(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// String returns the CID of data in its default string form.
func String(data []byte) string {
	id, err := Of(data)
	if err != nil {
		// multihash.Sum only fails for unknown codes or bad lengths.
		return ""
	}
	return id.String()
}

// Decode parses s and checks it uses the raw codec with a sha2-256 hash.
func Decode(s string) (cid.Cid, error) {
	id, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, errors.New("cidutil: undefined cid")
	}
	if id.Prefix().Codec != cid.Raw {
		return cid.Undef, fmt.Errorf("cidutil: unexpected codec 0x%x", id.Prefix().Codec)
	}
	if id.Prefix().MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("cidutil: unexpected multihash 0x%x", id.Prefix().MhType)
	}
	return id, nil
}

// Check returns ErrMismatch unless data hashes to id.
func Check(id cid.Cid, data []byte) error {
	got, err := Of(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrMismatch
	}
	return nil
}
