package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/keyforge/vector"
)

// Ed25519 expands seed into an Ed25519 private key.
func Ed25519(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// Dilithium3 expands seed into a Dilithium3 keypair.
func Dilithium3(seed []byte) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	if len(seed) != mode3.SeedSize {
		return nil, nil, fmt.Errorf("keys: seed must be %d bytes, got %d", mode3.SeedSize, len(seed))
	}
	var s [mode3.SeedSize]byte
	copy(s[:], seed)
	pk, sk := mode3.NewKeyFromSeed(&s)
	return pk, sk, nil
}

// Sign signs v with the key seed expands to under alg.
func Sign(v *vector.Vector, alg string, seed []byte) error {
	switch alg {
	case vector.AlgEd25519:
		priv, err := Ed25519(seed)
		if err != nil {
			return err
		}
		return vector.SignEd25519(v, priv)
	case vector.AlgDilithium3:
		pk, sk, err := Dilithium3(seed)
		if err != nil {
			return err
		}
		return vector.SignDilithium3(v, pk, sk)
	default:
		return fmt.Errorf("keys: unsupported signature algorithm %q", alg)
	}
}

// PublicKey renders the public key seed expands to under alg as
// "<alg>:<base64>".
func PublicKey(alg string, seed []byte) (string, error) {
	var pub []byte
	switch alg {
	case vector.AlgEd25519:
		priv, err := Ed25519(seed)
		if err != nil {
			return "", err
		}
		pub = priv.Public().(ed25519.PublicKey)
	case vector.AlgDilithium3:
		pk, _, err := Dilithium3(seed)
		if err != nil {
			return "", err
		}
		if pub, err = pk.MarshalBinary(); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("keys: unsupported signature algorithm %q", alg)
	}
	return alg + ":" + base64.StdEncoding.EncodeToString(pub), nil
}
