// Package casregistry maps store backend names to constructors.
//
// Backends register themselves in init():
//
//	casregistry.MustRegister(casregistry.Backend{ ... })
//
// A binary must import the backend package for registration to occur.
package casregistry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"xdao.co/keyforge/storage"
)

// Backend opens a storage.CAS rooted at a directory.
type Backend struct {
	Name        string
	Description string

	// Open constructs the store. The returned close function may be nil.
	Open func(dir string) (storage.CAS, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("casregistry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("casregistry: backend %q missing Open", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("casregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the registered backends sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered backend names, sorted.
func Names() []string {
	bs := List()
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// Open opens the named backend at dir. The returned close function is
// never nil.
func Open(name, dir string) (storage.CAS, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown backend %q", name)
	}
	cas, closeFn, err := b.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return cas, closeFn, nil
}

// Target is a backend to open and the directory to open it at.
type Target struct {
	Backend string
	Dir     string
}

// OpenAll opens every target. A single target is returned as is; more are
// combined into a storage.Mirrored whose primary is the first. On error
// the stores already opened are closed.
func OpenAll(targets []Target) (storage.CAS, func() error, error) {
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("casregistry: no store targets")
	}
	if len(targets) == 1 {
		return Open(targets[0].Backend, targets[0].Dir)
	}

	var (
		stores  []storage.Named
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	for _, t := range targets {
		cas, closeFn, err := Open(t.Backend, t.Dir)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("casregistry: open %s at %q: %w", t.Backend, t.Dir, err)
		}
		stores = append(stores, storage.Named{Name: t.Backend + ":" + t.Dir, CAS: cas})
		closers = append(closers, closeFn)
	}
	return storage.Mirrored{Stores: stores}, closeAll, nil
}
