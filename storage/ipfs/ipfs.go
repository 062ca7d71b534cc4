// Package ipfs stores vectors as raw blocks in a local Kubo repository by
// running the ipfs command. No daemon is needed.
//
// Blocks are written as CIDv1 raw over sha2-256, the same identifiers
// cidutil computes, so a vector's CID is valid on the IPFS network as is.
package ipfs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/storage"
	"xdao.co/keyforge/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repository via the ipfs CLI (dir sets IPFS_PATH)",
		Open: func(dir string) (storage.CAS, func() error, error) {
			opts := Options{}
			if dir != "" {
				opts.Env = append(os.Environ(), "IPFS_PATH="+dir)
			}
			return New(opts), nil, nil
		},
	})
}

// CAS is a vector store backed by the ipfs command.
type CAS struct {
	bin string
	env []string
}

type Options struct {
	// Bin is the ipfs binary; "ipfs" when empty.
	Bin string
	// Env replaces the command environment when non-nil.
	Env []string
}

func New(opts Options) *CAS {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &CAS{bin: bin, env: opts.Env}
}

func (c *CAS) Put(data []byte) (cid.Cid, error) {
	want, err := cidutil.Of(data)
	if err != nil {
		return cid.Undef, err
	}
	out, err := c.run(data,
		"block", "put",
		"--quiet",
		"--cid-codec=raw",
		"--mhtype=sha2-256",
		"--mhlen=32",
		"/dev/stdin",
	)
	if err != nil {
		return cid.Undef, err
	}
	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("ipfs: unexpected block put output: %w", err)
	}
	if !got.Equals(want) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return want, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	out, err := c.run(nil, "block", "get", id.String())
	if err != nil {
		if notFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := cidutil.Check(id, out); err != nil {
		return nil, storage.ErrCIDMismatch
	}
	return out, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := c.run(nil, "block", "stat", id.String())
	return err == nil
}

// run invokes the ipfs command offline, so a missing block fails fast
// instead of being searched for on the network.
func (c *CAS) run(stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.Command(c.bin, append([]string{"--offline"}, args...)...)
	if c.env != nil {
		cmd.Env = c.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if s := strings.TrimSpace(string(ee.Stderr)); s != "" {
			return nil, fmt.Errorf("ipfs: %s", s)
		}
	}
	return nil, fmt.Errorf("ipfs: %w", err)
}

func notFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
