// Package keys keeps the Ed25519 seeds keyforge signs vectors with.
//
// Seeds live in a directory, one hex file per named signer:
//
//	<dir>/<name>/root.key
//	<dir>/<name>/purposes/<purpose>.key
//
// Purpose seeds are derived deterministically from the root seed, so a
// single root can sign different vector sets under different keys.
package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store is a filesystem directory of signer seeds.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("keys: directory is required")
	}
	return &Store{dir: dir}, nil
}

// CheckName accepts ASCII letters, digits, '-' and '_'.
func CheckName(name string) error {
	if name == "" {
		return errors.New("keys: name cannot be empty")
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			continue
		}
		return fmt.Errorf("keys: invalid character %q in %q", r, name)
	}
	return nil
}

// ParseSeedHex decodes a 32-byte seed, tolerating surrounding space and a
// 0x prefix.
func ParseSeedHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("keys: seed: %w", err)
	}
	if len(b) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: seed must be %d bytes, got %d", ed25519.SeedSize, len(b))
	}
	return b, nil
}

// DerivePurposeSeed derives the seed a root signs with for one purpose.
func DerivePurposeSeed(root []byte, purpose string) ([]byte, error) {
	if len(root) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckName(purpose); err != nil {
		return nil, err
	}
	h := sha256.New()
	_, _ = h.Write(root)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("keyforge-signer-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(purpose))
	return h.Sum(nil)[:ed25519.SeedSize], nil
}

func (s *Store) rootPath(name string) string {
	return filepath.Join(s.dir, name, "root.key")
}

func (s *Store) purposePath(name, purpose string) string {
	return filepath.Join(s.dir, name, "purposes", purpose+".key")
}

// Init writes seed as the root of signer name. An existing root is only
// replaced when overwrite is set.
func (s *Store) Init(name string, seed []byte, overwrite bool) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	path := s.rootPath(name)
	return path, writeSeed(path, seed, overwrite)
}

// Derive writes the purpose seed of signer name and returns its path.
func (s *Store) Derive(name, purpose string, overwrite bool) (string, error) {
	root, err := s.Seed(name, "")
	if err != nil {
		return "", err
	}
	seed, err := DerivePurposeSeed(root, purpose)
	if err != nil {
		return "", err
	}
	path := s.purposePath(name, purpose)
	return path, writeSeed(path, seed, overwrite)
}

// Seed loads the root seed of name, or its purpose seed when purpose is set.
func (s *Store) Seed(name, purpose string) ([]byte, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	if purpose == "" {
		return readSeed(s.rootPath(name))
	}
	if err := CheckName(purpose); err != nil {
		return nil, err
	}
	return readSeed(s.purposePath(name, purpose))
}

// Names lists the signers in the store, sorted.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && CheckName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadSeedFile loads a seed written by Init or Derive, or any file holding
// one hex seed.
func ReadSeedFile(path string) ([]byte, error) {
	return readSeed(path)
}

func writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("keys: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return f.Close()
}

func readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}
