// Package testkit holds the conformance suite every storage.CAS backend runs.
package testkit

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
	"xdao.co/keyforge/storage"
	"xdao.co/keyforge/vector"
)

// NewCAS constructs a fresh, empty CAS instance for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("hello, keyforge storage")

		id, err := cas.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.Of(want)
		if err != nil {
			t.Fatalf("cidutil.Of failed: %v", err)
		}
		if !id.Equals(wantID) {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if !id1.Equals(id2) {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := cidutil.Of(b)
		if err != nil {
			t.Fatalf("cidutil.Of failed: %v", err)
		}

		if cas.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := cas.Get(id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := cas.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if cas.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("VectorRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		d := derive.New(derive.Config{})
		v, err := vector.Make(context.Background(), d, derive.Request{
			Input:   "harbor-lane-7",
			Hash:    digest.Spec{Algorithm: digest.SHA512, Rounds: 1},
			Augment: augment.Only(augment.Trim),
			Length:  64,
		})
		if err != nil {
			t.Fatalf("Make failed: %v", err)
		}

		id, err := storage.PutVector(cas, v)
		if err != nil {
			t.Fatalf("PutVector failed: %v", err)
		}
		wantID, err := v.CID()
		if err != nil {
			t.Fatalf("CID failed: %v", err)
		}
		if !id.Equals(wantID) {
			t.Fatalf("PutVector CID %s, vector CID %s", id, wantID)
		}

		got, err := storage.GetVector(cas, id)
		if err != nil {
			t.Fatalf("GetVector failed: %v", err)
		}
		if err := vector.Verify(context.Background(), d, got); err != nil {
			t.Fatalf("stored vector does not verify: %v", err)
		}
	})

	t.Run("GetVectorRejectsNonVector", func(t *testing.T) {
		cas := newCAS(t)
		id, err := cas.Put([]byte("not cbor"))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if _, err := storage.GetVector(cas, id); err == nil {
			t.Fatalf("GetVector should fail for non-vector bytes")
		}
	})
}
