// Package localfs keeps vectors as individual files in a directory tree.
//
// A vector with CID c lives at <root>/<last two chars of c>/<c>.cbor,
// the same file name it gets inside an export bundle. CIDv1 strings share
// their leading characters, so the shard is taken from the tail.
package localfs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/storage"
	"xdao.co/keyforge/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem vector store (<shard>/<cid>.cbor files)",
		Open: func(dir string) (storage.CAS, func() error, error) {
			cas, err := New(dir)
			return cas, nil, err
		},
	})
}

// Ext is the file extension of every stored vector.
const Ext = ".cbor"

// CAS is a vector store rooted at a directory. Files are written once,
// read-only, and never rewritten.
type CAS struct {
	root string
}

var (
	_ storage.CAS    = (*CAS)(nil)
	_ storage.Lister = (*CAS)(nil)
)

// New opens the store at root, creating the directory when missing.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: %w", err)
	}
	return &CAS{root: root}, nil
}

// Put writes data to a temporary file in the shard directory and links it
// into place, so readers never see a partial vector. Storing the same
// bytes again is a no-op; a different file already at the path is
// ErrImmutable.
func (c *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.Of(data)
	if err != nil {
		return cid.Undef, err
	}
	dst := c.path(id)
	if existing, err := os.ReadFile(dst); err == nil {
		return settle(id, existing, data)
	}

	shard := filepath.Dir(dst)
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return cid.Undef, fmt.Errorf("localfs: %w", err)
	}
	tmp, err := writeTemp(shard, data)
	if err != nil {
		return cid.Undef, fmt.Errorf("localfs: %w", err)
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, dst); err != nil {
		if !os.IsExist(err) {
			return cid.Undef, fmt.Errorf("localfs: %w", err)
		}
		// Lost a race with another writer; its copy must match ours.
		existing, rerr := os.ReadFile(dst)
		if rerr != nil {
			return cid.Undef, storage.ErrImmutable
		}
		return settle(id, existing, data)
	}
	return id, nil
}

// settle resolves a Put that found id already stored.
func settle(id cid.Cid, existing, data []byte) (cid.Cid, error) {
	if !bytes.Equal(existing, data) {
		return cid.Undef, storage.ErrImmutable
	}
	return id, nil
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, 0o444)
	}
	if err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(c.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("localfs: %w", err)
	}
	if err := cidutil.Check(id, b); err != nil {
		if errors.Is(err, cidutil.ErrMismatch) {
			return nil, storage.ErrCIDMismatch
		}
		return nil, err
	}
	return b, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	fi, err := os.Stat(c.path(id))
	return err == nil && fi.Mode().IsRegular()
}

// List returns the CID of every stored vector in string order. Files that
// are not named <cid>.cbor, such as leftover temporaries, are skipped.
func (c *CAS) List() ([]cid.Cid, error) {
	var out []cid.Cid
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Ext) {
			return nil
		}
		id, err := cidutil.Decode(strings.TrimSuffix(d.Name(), Ext))
		if err != nil || c.path(id) != path {
			return nil
		}
		out = append(out, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("localfs: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (c *CAS) path(id cid.Cid) string {
	s := id.String()
	shard := s
	if len(s) > 2 {
		shard = s[len(s)-2:]
	}
	return filepath.Join(c.root, shard, s+Ext)
}
