// Package bundle moves vectors between stores as a single TAR file.
//
// A bundle holds one entry per vector, vectors/<cid>.cbor, followed by an
// index.json describing them. Export output is byte-for-byte reproducible
// for a given set of CIDs: entries are sorted and headers carry no
// timestamps or ownership.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/storage"
	"xdao.co/keyforge/vector"
)

// FormatVersion is the index.json schema version.
const FormatVersion = 1

const (
	indexName    = "index.json"
	vectorPrefix = "vectors/"
	vectorSuffix = ".cbor"
)

var epoch = time.Unix(0, 0).UTC()

// Index is the bundle's table of contents. It is informational; Import
// trusts only the vector entries themselves.
type Index struct {
	Version int          `json:"version"`
	Format  string       `json:"format"`
	Vectors []IndexEntry `json:"vectors"`
}

type IndexEntry struct {
	CID       string `json:"cid"`
	Input     string `json:"input"`
	Algorithm string `json:"algorithm"`
	Length    int    `json:"length"`
	Signed    bool   `json:"signed,omitempty"`
}

// Export writes the vectors named by ids, read from src, to w. Every entry
// must decode as a canonical vector.
func Export(w io.Writer, src storage.CAS, ids []cid.Cid) error {
	if src == nil {
		return errors.New("bundle: nil store")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	idx := Index{Version: FormatVersion, Format: vector.Format, Vectors: make([]IndexEntry, 0, len(names))}
	for _, s := range names {
		b, err := src.Get(uniq[s])
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", s, err)
		}
		if err := cidutil.Check(uniq[s], b); err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", s, storage.ErrCIDMismatch)
		}
		v, err := vector.Decode(b)
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", s, err)
		}
		if err := writeEntry(tw, vectorPrefix+s+vectorSuffix, b); err != nil {
			_ = tw.Close()
			return err
		}
		idx.Vectors = append(idx.Vectors, IndexEntry{
			CID:       s,
			Input:     v.Input,
			Algorithm: v.Algorithm,
			Length:    v.Length,
			Signed:    v.Signature != nil,
		})
	}

	b, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		_ = tw.Close()
		return err
	}
	if err := writeEntry(tw, indexName, append(b, '\n')); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

// ImportOptions controls Import.
type ImportOptions struct {
	// Deriver, when set, re-derives every vector before it is stored.
	Deriver *derive.Deriver
	// RequireSignature rejects vectors that carry no valid signature.
	RequireSignature bool
}

// Import reads a bundle from r into dst and returns the stored CIDs in
// bundle order. Entries other than vectors and the index are an error.
// Nothing after the first bad entry is stored.
func Import(ctx context.Context, r io.Reader, dst storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if dst == nil {
		return nil, errors.New("bundle: nil store")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var out []cid.Cid
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		name := cleanPath(h.Name)
		if name == "" {
			return out, fmt.Errorf("bundle: invalid entry path %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			return out, fmt.Errorf("bundle: unexpected entry type %v for %s", h.Typeflag, name)
		}
		if name == indexName {
			if _, err := io.Copy(io.Discard, tr); err != nil {
				return out, err
			}
			continue
		}
		if !strings.HasPrefix(name, vectorPrefix) || !strings.HasSuffix(name, vectorSuffix) {
			return out, fmt.Errorf("bundle: unknown entry %s", name)
		}

		s := strings.TrimSuffix(strings.TrimPrefix(name, vectorPrefix), vectorSuffix)
		id, err := cidutil.Decode(s)
		if err != nil {
			return out, fmt.Errorf("bundle: %s: %w", name, storage.ErrInvalidCID)
		}
		if _, dup := seen[id.String()]; dup {
			return out, fmt.Errorf("bundle: duplicate entry %s", name)
		}
		seen[id.String()] = struct{}{}

		b, err := io.ReadAll(tr)
		if err != nil {
			return out, err
		}
		if err := cidutil.Check(id, b); err != nil {
			return out, fmt.Errorf("bundle: %s: %w", name, storage.ErrCIDMismatch)
		}
		if err := check(ctx, b, opts); err != nil {
			return out, fmt.Errorf("bundle: %s: %w", name, err)
		}

		got, err := dst.Put(b)
		if err != nil {
			return out, err
		}
		if !got.Equals(id) {
			return out, storage.ErrCIDMismatch
		}
		out = append(out, id)
	}
}

func check(ctx context.Context, b []byte, opts ImportOptions) error {
	v, err := vector.Decode(b)
	if err != nil {
		return err
	}
	if opts.RequireSignature || v.Signature != nil {
		if err := vector.VerifySignature(v); err != nil {
			return err
		}
	}
	if opts.Deriver != nil {
		return vector.Verify(ctx, opts.Deriver, v)
	}
	return nil
}

// ReadIndex returns the index of the bundle in r.
func ReadIndex(r io.Reader) (*Index, error) {
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("bundle: no index.json")
		}
		if err != nil {
			return nil, err
		}
		if cleanPath(h.Name) != indexName {
			continue
		}
		var idx Index
		if err := json.NewDecoder(tr).Decode(&idx); err != nil {
			return nil, fmt.Errorf("bundle: index.json: %w", err)
		}
		if idx.Version != FormatVersion {
			return nil, fmt.Errorf("bundle: unsupported index version %d", idx.Version)
		}
		return &idx, nil
	}
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

// cleanPath normalizes a TAR entry name, or returns "" if it escapes the
// bundle root.
func cleanPath(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
