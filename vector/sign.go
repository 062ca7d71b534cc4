package vector

import (
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Signature algorithms.
const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// Signature attests a vector's canonical unsigned encoding.
type Signature struct {
	Alg       string `cbor:"alg" json:"alg"`
	PublicKey []byte `cbor:"public_key" json:"public_key"`
	Value     []byte `cbor:"value" json:"value"`
}

// SignEd25519 signs v in place, replacing any existing signature.
func SignEd25519(v *Vector, priv ed25519.PrivateKey) error {
	if len(priv) != ed25519.PrivateKeySize {
		return fmt.Errorf("vector: ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	msg, err := signedBytes(v)
	if err != nil {
		return err
	}
	pub := priv.Public().(ed25519.PublicKey)
	v.Signature = &Signature{
		Alg:       AlgEd25519,
		PublicKey: append([]byte(nil), pub...),
		Value:     ed25519.Sign(priv, msg),
	}
	return nil
}

// SignDilithium3 signs v in place with a post-quantum Dilithium3 keypair.
func SignDilithium3(v *Vector, pk *mode3.PublicKey, priv *mode3.PrivateKey) error {
	if pk == nil || priv == nil {
		return fmt.Errorf("vector: missing dilithium3 key")
	}
	msg, err := signedBytes(v)
	if err != nil {
		return err
	}
	pub, err := pk.MarshalBinary()
	if err != nil {
		return err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, msg, sig)
	v.Signature = &Signature{Alg: AlgDilithium3, PublicKey: pub, Value: sig}
	return nil
}

// GenerateDilithium3Key returns a new Dilithium3 keypair.
func GenerateDilithium3Key(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}

// VerifySignature checks v's signature against its unsigned encoding.
func VerifySignature(v *Vector) error {
	sig := v.Signature
	if sig == nil {
		return ErrUnsigned
	}
	msg, err := signedBytes(v)
	if err != nil {
		return err
	}
	switch sig.Alg {
	case AlgEd25519:
		if len(sig.PublicKey) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: invalid ed25519 public key length", ErrSignature)
		}
		if len(sig.Value) != ed25519.SignatureSize {
			return fmt.Errorf("%w: invalid ed25519 signature length", ErrSignature)
		}
		if !ed25519.Verify(ed25519.PublicKey(sig.PublicKey), msg, sig.Value) {
			return ErrSignature
		}
		return nil
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(sig.PublicKey); err != nil {
			return fmt.Errorf("%w: invalid dilithium3 public key: %v", ErrSignature, err)
		}
		if len(sig.Value) != mode3.SignatureSize {
			return fmt.Errorf("%w: invalid dilithium3 signature length", ErrSignature)
		}
		if !mode3.Verify(&pk, msg, sig.Value) {
			return ErrSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported algorithm %q", ErrSignature, sig.Alg)
	}
}
