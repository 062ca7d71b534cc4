package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ipfs/go-cid"

	"xdao.co/keyforge/cidutil"
)

// Named is a store with the backend name it was opened as.
type Named struct {
	Name string
	CAS  CAS
}

// Mirrored writes every vector to all of its stores and reads them back
// in order.
//
// The first store is the primary. Reads fall through to later stores only
// when an earlier one reports ErrNotFound; any other error is returned as
// is, so a corrupt primary copy is never masked by a mirror.
type Mirrored struct {
	Stores []Named
}

var (
	_ CAS    = Mirrored{}
	_ Lister = Mirrored{}
)

// PutAll writes b to every store and returns the CID each one reported.
// A store reporting a CID other than the one computed from b fails the
// write with ErrCIDMismatch.
func (m Mirrored) PutAll(b []byte) (cid.Cid, map[string]cid.Cid, error) {
	if len(m.Stores) == 0 {
		return cid.Undef, nil, errors.New("storage: mirrored store has no backends")
	}
	want, err := cidutil.Of(b)
	if err != nil {
		return cid.Undef, nil, err
	}

	got := make(map[string]cid.Cid, len(m.Stores))
	for _, s := range m.Stores {
		if s.CAS == nil {
			return cid.Undef, got, fmt.Errorf("storage: nil store for backend %q", s.Name)
		}
		id, err := s.CAS.Put(b)
		if err != nil {
			return cid.Undef, got, fmt.Errorf("storage: %s: %w", s.Name, err)
		}
		got[s.Name] = id
		if !id.Equals(want) {
			return cid.Undef, got, fmt.Errorf("storage: %s: %w", s.Name, ErrCIDMismatch)
		}
	}
	return want, got, nil
}

func (m Mirrored) Put(b []byte) (cid.Cid, error) {
	id, _, err := m.PutAll(b)
	return id, err
}

func (m Mirrored) Get(id cid.Cid) ([]byte, error) {
	for _, s := range m.Stores {
		if s.CAS == nil {
			continue
		}
		b, err := s.CAS.Get(id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, fmt.Errorf("storage: %s: %w", s.Name, err)
		}
	}
	return nil, ErrNotFound
}

func (m Mirrored) Has(id cid.Cid) bool {
	for _, s := range m.Stores {
		if s.CAS != nil && s.CAS.Has(id) {
			return true
		}
	}
	return false
}

// List merges the listings of every store that can list. Stores that
// cannot are skipped; ErrNotListable means none could.
func (m Mirrored) List() ([]cid.Cid, error) {
	seen := map[string]cid.Cid{}
	listed := false
	for _, s := range m.Stores {
		l, ok := s.CAS.(Lister)
		if !ok {
			continue
		}
		ids, err := l.List()
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", s.Name, err)
		}
		listed = true
		for _, id := range ids {
			seen[id.String()] = id
		}
	}
	if !listed {
		return nil, ErrNotListable
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]cid.Cid, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out, nil
}
