package keys

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
	"xdao.co/keyforge/vector"
)

func testSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func TestParseSeedHex(t *testing.T) {
	seed, err := ParseSeedHex("  0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f\n")
	require.NoError(t, err)
	assert.Equal(t, testSeed(), seed)

	_, err = ParseSeedHex("zz")
	assert.Error(t, err)
	_, err = ParseSeedHex("0011")
	assert.Error(t, err)
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, CheckName("ci_release-2"))
	assert.Error(t, CheckName(""))
	assert.Error(t, CheckName("../etc"))
	assert.Error(t, CheckName("a b"))
}

func TestDerivePurposeSeed(t *testing.T) {
	a, err := DerivePurposeSeed(testSeed(), "release")
	require.NoError(t, err)
	b, err := DerivePurposeSeed(testSeed(), "release")
	require.NoError(t, err)
	c, err := DerivePurposeSeed(testSeed(), "nightly")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, ed25519.SeedSize)

	_, err = DerivePurposeSeed([]byte{1}, "release")
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "keys"))
	require.NoError(t, err)

	names, err := s.Names()
	require.NoError(t, err)
	assert.Empty(t, names)

	path, err := s.Init("ci", testSeed(), false)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = s.Init("ci", testSeed(), false)
	assert.Error(t, err, "existing root is kept")
	_, err = s.Init("ci", testSeed(), true)
	assert.NoError(t, err)

	got, err := s.Seed("ci", "")
	require.NoError(t, err)
	assert.Equal(t, testSeed(), got)

	_, err = s.Derive("ci", "release", false)
	require.NoError(t, err)
	purpose, err := s.Seed("ci", "release")
	require.NoError(t, err)
	want, err := DerivePurposeSeed(testSeed(), "release")
	require.NoError(t, err)
	assert.Equal(t, want, purpose)

	fromFile, err := ReadSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, testSeed(), fromFile)

	names, err = s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"ci"}, names)

	_, err = s.Seed("missing", "")
	assert.Error(t, err)
	_, err = NewStore("")
	assert.Error(t, err)
}

func TestSignAndPublicKey(t *testing.T) {
	d := derive.New(derive.Config{})
	for _, alg := range []string{vector.AlgEd25519, vector.AlgDilithium3} {
		t.Run(alg, func(t *testing.T) {
			v, err := vector.Make(context.Background(), d, derive.Request{
				Input:  "atlas-echo",
				Hash:   digest.Spec{Algorithm: digest.SHA512, Rounds: 1},
				Length: 64,
			})
			require.NoError(t, err)

			require.NoError(t, Sign(v, alg, testSeed()))
			require.NoError(t, vector.VerifySignature(v))

			pub, err := PublicKey(alg, testSeed())
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(pub, alg+":"))
			raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(pub, alg+":"))
			require.NoError(t, err)
			assert.True(t, bytes.Equal(raw, v.Signature.PublicKey))
		})
	}

	v := &vector.Vector{Format: vector.Format}
	assert.Error(t, Sign(v, "rsa", testSeed()))
	assert.Error(t, Sign(v, vector.AlgEd25519, []byte{1}))
	_, err := PublicKey("rsa", testSeed())
	assert.Error(t, err)
}
