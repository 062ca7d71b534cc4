package digest

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogSizes(t *testing.T) {
	want := map[ID]int{
		SHA1:       20,
		SHA256:     32,
		SHA384:     48,
		SHA512:     64,
		SHA3_256:   32,
		SHA3_512:   64,
		BLAKE2b512: 64,
		BLAKE3:     32,
	}
	require.Equal(t, len(want), Extended().Len())
	for _, a := range Extended().Algorithms() {
		h, err := Extended().Hasher(Spec{Algorithm: a.ID, Rounds: 1})
		require.NoError(t, err)
		sum, err := h.Sum([]byte("abc"))
		require.NoError(t, err)
		assert.Lenf(t, sum, want[a.ID], "%s digest length", a.ID)
		assert.Equal(t, want[a.ID], h.Size())
	}
}

func TestDefaultCatalogIsSHAOnly(t *testing.T) {
	var ids []ID
	for _, a := range Default().Algorithms() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []ID{SHA1, SHA256, SHA384, SHA512}, ids)

	_, err := Default().Lookup(BLAKE3)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupported))
	assert.Equal(t, "KF-DIGEST-001", RuleID(err))
}

func TestKnownDigests(t *testing.T) {
	cases := []struct {
		alg  ID
		want string
	}{
		{SHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{SHA3_256, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"},
	}
	for _, tc := range cases {
		sum, err := HashRounds(Extended(), []byte("abc"), Spec{Algorithm: tc.alg, Rounds: 1})
		require.NoError(t, err)
		assert.Equal(t, tc.want, hex.EncodeToString(sum), tc.alg)
	}
}

func TestRoundsIterateOverPreviousDigest(t *testing.T) {
	data := []byte("midnight-signal")

	got, err := HashRounds(Default(), data, Spec{Algorithm: SHA256, Rounds: 2})
	require.NoError(t, err)

	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	assert.Equal(t, second[:], got)

	doubled := sha256.Sum256(append(append([]byte(nil), data...), data...))
	assert.NotEqual(t, doubled[:], got)
}

func TestRoundsThree(t *testing.T) {
	data := []byte("copper-lantern")
	got, err := HashRounds(Default(), data, Spec{Algorithm: SHA1, Rounds: 3})
	require.NoError(t, err)

	d := sha1.Sum(data)
	d = sha1.Sum(d[:])
	d = sha1.Sum(d[:])
	assert.Equal(t, d[:], got)
}

func TestSumContextStopsBetweenRounds(t *testing.T) {
	h, err := Default().Hasher(Spec{Algorithm: SHA256, Rounds: 2000000000})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.SumContext(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = h.SumContext(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSumContextMatchesSum(t *testing.T) {
	h, err := Default().Hasher(Spec{Algorithm: SHA512, Rounds: 3000})
	require.NoError(t, err)
	want, err := h.Sum([]byte("copper-lantern"))
	require.NoError(t, err)
	got, err := h.SumContext(context.Background(), []byte("copper-lantern"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLookupAliases(t *testing.T) {
	for _, name := range []ID{"sha256", "SHA256", "Sha-256", " SHA-256 "} {
		a, err := Default().Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, SHA256, a.ID)
	}
	a, err := Extended().Lookup("blake2b-512")
	require.NoError(t, err)
	assert.Equal(t, BLAKE2b512, a.ID)
}

func TestInvalidRounds(t *testing.T) {
	for _, r := range []int{0, -1} {
		_, err := Default().Hasher(Spec{Algorithm: SHA256, Rounds: r})
		require.Error(t, err)
		assert.True(t, IsKind(err, KindInvalidSpec))
	}
}

func TestUnsupportedNeverSubstitutes(t *testing.T) {
	_, err := HashRounds(Default(), []byte("x"), Spec{Algorithm: "MD5", Rounds: 1})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupported))
}

type shortHash struct{ hash.Hash }

func (shortHash) Sum(b []byte) []byte { return append(b, 1, 2, 3) }

func TestDigestFailures(t *testing.T) {
	boom := errors.New("boom")
	c, err := NewCatalog(
		Algorithm{ID: "broken", Size: 32, New: func() (hash.Hash, error) { return nil, boom }},
		Algorithm{ID: "short", Size: 32, New: func() (hash.Hash, error) { return shortHash{sha256.New()}, nil }},
	)
	require.NoError(t, err)

	_, err = HashRounds(c, []byte("x"), Spec{Algorithm: "broken", Rounds: 1})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDigest))
	assert.ErrorIs(t, err, boom)

	_, err = HashRounds(c, []byte("x"), Spec{Algorithm: "short", Rounds: 1})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDigest))
	assert.Equal(t, "KF-DIGEST-004", RuleID(err))
}

func TestNewCatalogValidation(t *testing.T) {
	ok := func() (hash.Hash, error) { return sha256.New(), nil }
	cases := map[string][]Algorithm{
		"KF-CATALOG-001": {{Size: 32, New: ok}},
		"KF-CATALOG-002": {{ID: "x", New: ok}},
		"KF-CATALOG-003": {{ID: "x", Size: 32}},
		"KF-CATALOG-004": {{ID: "x-1", Size: 32, New: ok}, {ID: "X1", Size: 32, New: ok}},
	}
	for rule, algs := range cases {
		_, err := NewCatalog(algs...)
		require.Error(t, err, rule)
		assert.True(t, IsKind(err, KindCatalog))
		assert.Equal(t, rule, RuleID(err))
	}
}

func TestAlgorithmsReturnsCopy(t *testing.T) {
	algs := Default().Algorithms()
	algs[0].ID = "tampered"
	_, err := Default().Lookup(SHA1)
	assert.NoError(t, err)
	assert.Equal(t, SHA1, Default().Algorithms()[0].ID)
}
