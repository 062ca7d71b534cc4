// Package badgerstore keeps vectors in an embedded Badger database keyed
// by CID bytes.
package badgerstore

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/ipfs/go-cid"

	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/storage"
	"xdao.co/keyforge/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "badger",
		Description: "Embedded Badger key-value vector store",
		Open: func(dir string) (storage.CAS, func() error, error) {
			s, err := Open(dir)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}

// Store is a storage.CAS backed by Badger.
type Store struct {
	db *badger.DB
}

var _ storage.Lister = (*Store)(nil)

// Open opens (or creates) a Badger database in dir. An empty dir opens
// an in-memory database.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.Of(data)
	if err != nil {
		return cid.Undef, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(id.Bytes())
		if err == nil {
			return item.Value(func(val []byte) error {
				if !bytes.Equal(val, data) {
					return storage.ErrImmutable
				}
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(id.Bytes(), data)
	})
	if err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(id.Bytes())
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := cidutil.Check(id, out); err != nil {
		if errors.Is(err, cidutil.ErrMismatch) {
			return nil, storage.ErrCIDMismatch
		}
		return nil, err
	}
	return out, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(id.Bytes())
		return err
	})
	return err == nil
}

// List returns the CID of every stored vector in string order.
func (s *Store) List() ([]cid.Cid, error) {
	var out []cid.Cid
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			id, err := cid.Cast(it.Item().KeyCopy(nil))
			if err != nil {
				return fmt.Errorf("badgerstore: bad key %x: %w", it.Item().Key(), err)
			}
			out = append(out, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
