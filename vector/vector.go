// Package vector records derivations as conformance vectors.
//
// A Vector pins one request and the output it must produce. Vectors are
// encoded with CBOR Core Deterministic Encoding, so the same vector always
// yields the same bytes and the same CID; another implementation can load
// a vector, rerun the request and compare outputs bit for bit.
//
// Vectors are built from sample keys meant for publication. Nothing in this
// package is suitable for storing real secrets.
package vector

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
)

// Format is the format tag every vector carries.
const Format = "keyforge-vector-1"

var (
	ErrFormat       = errors.New("vector: unsupported format")
	ErrNonCanonical = errors.New("vector: encoding is not canonical")
	ErrUnsigned     = errors.New("vector: not signed")
	ErrSignature    = errors.New("vector: signature does not verify")
)

// Vector is one pinned derivation.
type Vector struct {
	Format        string     `cbor:"format" json:"format"`
	Input         string     `cbor:"input" json:"input"`
	Algorithm     string     `cbor:"algorithm" json:"algorithm"`
	Rounds        int        `cbor:"rounds" json:"rounds"`
	Augmentations []string   `cbor:"augmentations,omitempty" json:"augmentations,omitempty"`
	Length        int        `cbor:"length" json:"length"`
	Augmented     string     `cbor:"augmented" json:"augmented"`
	Bytes         string     `cbor:"bytes" json:"bytes"`
	Output        string     `cbor:"output" json:"output"`
	Signature     *Signature `cbor:"signature,omitempty" json:"signature,omitempty"`
}

// MismatchError reports a vector field that a fresh derivation disagrees with.
type MismatchError struct {
	Field string
	Want  string
	Got   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("vector: %s mismatch: vector has %q, derivation gave %q", e.Field, e.Want, e.Got)
}

// Make runs req on d and records the result.
func Make(ctx context.Context, d *derive.Deriver, req derive.Request) (*Vector, error) {
	res, err := d.Derive(ctx, req)
	if err != nil {
		return nil, err
	}
	alg, err := d.Digests().Lookup(req.Hash.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Vector{
		Format:        Format,
		Input:         req.Input,
		Algorithm:     string(alg.ID),
		Rounds:        req.Hash.Rounds,
		Augmentations: req.Augment.IDs(),
		Length:        len(res.Bytes),
		Augmented:     res.Augmented,
		Bytes:         hex.EncodeToString(res.Bytes),
		Output:        res.Encoded,
	}, nil
}

// Request rebuilds the derivation request the vector pins.
func (v *Vector) Request(c augment.Catalog) (derive.Request, error) {
	if v.Format != Format {
		return derive.Request{}, fmt.Errorf("%w: %q", ErrFormat, v.Format)
	}
	sel, err := augment.ParseSelection(c, v.Augmentations)
	if err != nil {
		return derive.Request{}, err
	}
	return derive.Request{
		Input:   v.Input,
		Hash:    digest.Spec{Algorithm: digest.ID(v.Algorithm), Rounds: v.Rounds},
		Augment: sel,
		Length:  v.Length,
	}, nil
}

// Verify reruns the vector's request on d and compares every recorded field.
func Verify(ctx context.Context, d *derive.Deriver, v *Vector) error {
	req, err := v.Request(d.Augmentations())
	if err != nil {
		return err
	}
	if v.Length < 1 {
		return fmt.Errorf("vector: length must be >= 1, got %d", v.Length)
	}
	res, err := d.Derive(ctx, req)
	if err != nil {
		return err
	}
	if res.Augmented != v.Augmented {
		return &MismatchError{Field: "augmented", Want: v.Augmented, Got: res.Augmented}
	}
	if got := hex.EncodeToString(res.Bytes); got != v.Bytes {
		return &MismatchError{Field: "bytes", Want: v.Bytes, Got: got}
	}
	if res.Encoded != v.Output {
		return &MismatchError{Field: "output", Want: v.Output, Got: res.Encoded}
	}
	return nil
}

// CID returns the content identifier of the vector's canonical encoding.
func (v *Vector) CID() (cid.Cid, error) {
	b, err := Encode(v)
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.Of(b)
}
