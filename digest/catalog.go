// Package digest provides the hash round function used by key derivation.
//
// Algorithms are looked up in an immutable Catalog that callers pass around
// explicitly. Default holds the four SHA algorithms every implementation
// must support; Extended adds SHA-3, BLAKE2b and BLAKE3.
package digest

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// ID names a digest algorithm.
type ID string

const (
	SHA1   ID = "SHA-1"
	SHA256 ID = "SHA-256"
	SHA384 ID = "SHA-384"
	SHA512 ID = "SHA-512"

	SHA3_256   ID = "SHA3-256"
	SHA3_512   ID = "SHA3-512"
	BLAKE2b512 ID = "BLAKE2b-512"
	BLAKE3     ID = "BLAKE3"
)

// Algorithm is one catalog entry.
type Algorithm struct {
	ID ID
	// Size is the digest length in bytes.
	Size int
	// New returns a fresh hash state. It is called once per round.
	New func() (hash.Hash, error)
}

// Spec selects an algorithm and a round count.
type Spec struct {
	Algorithm ID `json:"algorithm" yaml:"algorithm"`
	Rounds    int `json:"rounds" yaml:"rounds"`
}

func (s Spec) String() string {
	return fmt.Sprintf("%s x%d", s.Algorithm, s.Rounds)
}

func stdlib(fn func() hash.Hash) func() (hash.Hash, error) {
	return func() (hash.Hash, error) { return fn(), nil }
}

var (
	sha1Alg   = Algorithm{ID: SHA1, Size: sha1.Size, New: stdlib(sha1.New)}
	sha256Alg = Algorithm{ID: SHA256, Size: sha256.Size, New: stdlib(sha256.New)}
	sha384Alg = Algorithm{ID: SHA384, Size: sha512.Size384, New: stdlib(sha512.New384)}
	sha512Alg = Algorithm{ID: SHA512, Size: sha512.Size, New: stdlib(sha512.New)}

	sha3_256Alg   = Algorithm{ID: SHA3_256, Size: 32, New: stdlib(sha3.New256)}
	sha3_512Alg   = Algorithm{ID: SHA3_512, Size: 64, New: stdlib(sha3.New512)}
	blake2b512Alg = Algorithm{ID: BLAKE2b512, Size: blake2b.Size, New: func() (hash.Hash, error) { return blake2b.New512(nil) }}
	blake3Alg     = Algorithm{ID: BLAKE3, Size: 32, New: func() (hash.Hash, error) { return blake3.New(), nil }}
)

// Catalog is an immutable, ordered table of algorithms.
// The zero value is an empty catalog.
type Catalog struct {
	algs []Algorithm
	byID map[string]int
}

// NewCatalog builds a catalog. Order is preserved for display.
func NewCatalog(algs ...Algorithm) (Catalog, error) {
	c := Catalog{
		algs: make([]Algorithm, 0, len(algs)),
		byID: make(map[string]int, len(algs)),
	}
	for _, a := range algs {
		if a.ID == "" {
			return Catalog{}, newError(KindCatalog, "KF-CATALOG-001", "algorithm id is required")
		}
		if a.Size <= 0 {
			return Catalog{}, newError(KindCatalog, "KF-CATALOG-002", fmt.Sprintf("algorithm %s has no output size", a.ID))
		}
		if a.New == nil {
			return Catalog{}, newError(KindCatalog, "KF-CATALOG-003", fmt.Sprintf("algorithm %s has no constructor", a.ID))
		}
		key := canonical(a.ID)
		if _, dup := c.byID[key]; dup {
			return Catalog{}, newError(KindCatalog, "KF-CATALOG-004", fmt.Sprintf("duplicate algorithm %s", a.ID))
		}
		c.byID[key] = len(c.algs)
		c.algs = append(c.algs, a)
	}
	return c, nil
}

func mustCatalog(algs ...Algorithm) Catalog {
	c, err := NewCatalog(algs...)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	defaultCatalog  = mustCatalog(sha1Alg, sha256Alg, sha384Alg, sha512Alg)
	extendedCatalog = mustCatalog(sha1Alg, sha256Alg, sha384Alg, sha512Alg, sha3_256Alg, sha3_512Alg, blake2b512Alg, blake3Alg)
)

// Default returns the catalog of SHA-1, SHA-256, SHA-384 and SHA-512.
func Default() Catalog { return defaultCatalog }

// Extended returns Default plus SHA3-256, SHA3-512, BLAKE2b-512 and BLAKE3.
func Extended() Catalog { return extendedCatalog }

// Algorithms returns the catalog entries in display order.
func (c Catalog) Algorithms() []Algorithm {
	return append([]Algorithm(nil), c.algs...)
}

// Len returns the number of algorithms in the catalog.
func (c Catalog) Len() int { return len(c.algs) }

// Lookup finds an algorithm by id. Matching ignores case and hyphens,
// so "sha256" and "SHA-256" name the same entry.
func (c Catalog) Lookup(id ID) (Algorithm, error) {
	i, ok := c.byID[canonical(id)]
	if !ok {
		return Algorithm{}, newError(KindUnsupported, "KF-DIGEST-001", fmt.Sprintf("unsupported digest algorithm %q", string(id)))
	}
	return c.algs[i], nil
}

func canonical(id ID) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(string(id)), "-", ""))
}
