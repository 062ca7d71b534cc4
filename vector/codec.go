package vector

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, shortest integers, definite lengths.
var encMode cbor.EncMode

// decMode rejects duplicate and unknown keys so that a decoded vector
// always re-encodes to the bytes it came from.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("vector: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("vector: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode returns the canonical CBOR bytes of v.
func Encode(v *Vector) ([]byte, error) {
	return encMode.Marshal(v)
}

// Decode parses canonical CBOR bytes. Input that decodes but would not
// re-encode to the same bytes fails with ErrNonCanonical.
func Decode(b []byte) (*Vector, error) {
	var v Vector
	if err := decMode.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	if v.Format != Format {
		return nil, ErrFormat
	}
	again, err := Encode(&v)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(again, b) {
		return nil, ErrNonCanonical
	}
	return &v, nil
}

// signedBytes is the canonical encoding of v without its signature.
func signedBytes(v *Vector) ([]byte, error) {
	unsigned := *v
	unsigned.Signature = nil
	return Encode(&unsigned)
}
