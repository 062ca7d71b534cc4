package storage_test

import (
	"fmt"
	"strings"
	"testing"

	"xdao.co/keyforge/storage"
)

func TestErrorsNameVectors(t *testing.T) {
	for _, err := range []error{
		storage.ErrNotFound,
		storage.ErrInvalidCID,
		storage.ErrCIDMismatch,
		storage.ErrImmutable,
		storage.ErrNotListable,
	} {
		if !strings.HasPrefix(err.Error(), "storage: ") || !strings.Contains(err.Error(), "vector") {
			t.Fatalf("unexpected wording: %q", err)
		}
	}
	if !storage.IsNotFound(fmt.Errorf("badger:/tmp/x: %w", storage.ErrNotFound)) {
		t.Fatalf("IsNotFound should see a wrapped ErrNotFound")
	}
	if storage.IsNotFound(storage.ErrCIDMismatch) {
		t.Fatalf("a corrupt vector is not a missing one")
	}
}
