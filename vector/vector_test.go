package vector

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
)

const midnightOutput = "8=[1?M2N!u}71w\"y0UwwEs%WZpRvz.R1>oPi&2ofdXkZ5cQP1`5'|HPkbpRsR8u6"

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func midnight(t *testing.T) (*derive.Deriver, *Vector) {
	t.Helper()
	d := derive.New(derive.Config{})
	v, err := Make(context.Background(), d, derive.Request{
		Input:   "midnight-signal",
		Hash:    digest.Spec{Algorithm: "sha256", Rounds: 1},
		Augment: augment.Only(augment.Trim),
		Length:  64,
	})
	require.NoError(t, err)
	return d, v
}

func TestMakeRecordsDerivation(t *testing.T) {
	_, v := midnight(t)

	assert.Equal(t, Format, v.Format)
	assert.Equal(t, "SHA-256", v.Algorithm, "algorithm id is canonicalized")
	assert.Equal(t, []string{augment.Trim}, v.Augmentations)
	assert.Equal(t, 64, v.Length)
	assert.Equal(t, "midnight-signal", v.Augmented)
	assert.Equal(t, midnightOutput, v.Output)

	first := sha256.Sum256([]byte("midnight-signal"))
	require.Len(t, v.Bytes, 128)
	assert.Equal(t, hex.EncodeToString(first[:]), v.Bytes[:64])
	assert.Nil(t, v.Signature)
}

func TestVerify(t *testing.T) {
	d, v := midnight(t)
	require.NoError(t, Verify(context.Background(), d, v))

	tampered := *v
	tampered.Output = "x" + v.Output[1:]
	var mm *MismatchError
	require.ErrorAs(t, Verify(context.Background(), d, &tampered), &mm)
	assert.Equal(t, "output", mm.Field)

	tampered = *v
	tampered.Augmented = "Midnight-Signal"
	require.ErrorAs(t, Verify(context.Background(), d, &tampered), &mm)
	assert.Equal(t, "augmented", mm.Field)

	tampered = *v
	tampered.Format = "keyforge-vector-0"
	assert.ErrorIs(t, Verify(context.Background(), d, &tampered), ErrFormat)

	tampered = *v
	tampered.Length = 0
	assert.Error(t, Verify(context.Background(), d, &tampered))
}

func TestVerifyDisabledSelection(t *testing.T) {
	d := derive.New(derive.Config{})
	v, err := Make(context.Background(), d, derive.Request{
		Input:  "copper-lantern",
		Hash:   digest.Spec{Algorithm: digest.SHA512, Rounds: 1},
		Length: 64,
	})
	require.NoError(t, err)
	assert.Nil(t, v.Augmentations)
	assert.Equal(t, "lGEcS\\TQ)|uLK7!?jL&\"tiyz[Q\"%:nR/lrlw#nBuJ4JlyTVtg0[yzibknDES`y`d", v.Output)
	require.NoError(t, Verify(context.Background(), d, v))
}

func TestMakeFailsLikeDerive(t *testing.T) {
	d := derive.New(derive.Config{})
	_, err := Make(context.Background(), d, derive.Request{
		Input: "   ",
		Hash:  digest.Spec{Algorithm: digest.SHA256, Rounds: 1},
	})
	assert.True(t, derive.IsKind(err, derive.KindEmptyInput))
}

func TestEncodingIsDeterministic(t *testing.T) {
	_, a := midnight(t)
	_, b := midnight(t)

	ab, err := Encode(a)
	require.NoError(t, err)
	bb, err := Encode(b)
	require.NoError(t, err)
	assert.Equal(t, ab, bb)

	got, err := Decode(ab)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	id, err := a.CID()
	require.NoError(t, err)
	want, err := cidutil.Of(ab)
	require.NoError(t, err)
	assert.True(t, want.Equals(id))
}

func TestDecodeRejectsNonCanonical(t *testing.T) {
	_, v := midnight(t)

	// Default options keep struct field order instead of sorting keys.
	loose, err := cbor.Marshal(v)
	require.NoError(t, err)
	canonical, err := Encode(v)
	require.NoError(t, err)
	require.NotEqual(t, canonical, loose)

	_, err = Decode(loose)
	assert.ErrorIs(t, err, ErrNonCanonical)
}

func TestDecodeRejectsUnknownFieldsAndFormat(t *testing.T) {
	extra, err := encMode.Marshal(map[string]any{"format": Format, "input": "x", "zzz": 1})
	require.NoError(t, err)
	_, err = Decode(extra)
	assert.Error(t, err)

	other, err := encMode.Marshal(map[string]any{"format": "other"})
	require.NoError(t, err)
	_, err = Decode(other)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Decode([]byte{0xff})
	assert.Error(t, err)
}

func TestSignEd25519(t *testing.T) {
	_, v := midnight(t)
	unsignedCID, err := v.CID()
	require.NoError(t, err)

	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	assert.ErrorIs(t, VerifySignature(v), ErrUnsigned)
	require.NoError(t, SignEd25519(v, priv))
	require.NoError(t, VerifySignature(v))
	assert.Equal(t, []byte(priv.Public().(ed25519.PublicKey)), v.Signature.PublicKey)

	signedCID, err := v.CID()
	require.NoError(t, err)
	assert.False(t, unsignedCID.Equals(signedCID))

	b, err := Encode(v)
	require.NoError(t, err)
	back, err := Decode(b)
	require.NoError(t, err)
	require.NoError(t, VerifySignature(back))

	back.Output = "tampered"
	assert.ErrorIs(t, VerifySignature(back), ErrSignature)

	assert.Error(t, SignEd25519(v, priv[:10]))
}

func TestSignDilithium3(t *testing.T) {
	_, v := midnight(t)

	pk, sk, err := GenerateDilithium3Key(io.Reader(&deterministicReader{}))
	require.NoError(t, err)
	require.NoError(t, SignDilithium3(v, pk, sk))
	assert.Equal(t, AlgDilithium3, v.Signature.Alg)
	require.NoError(t, VerifySignature(v))

	tampered := *v
	tampered.Input = "copper-lantern"
	assert.ErrorIs(t, VerifySignature(&tampered), ErrSignature)

	assert.Error(t, SignDilithium3(v, nil, sk))
}

func TestVerifySignatureRejectsMalformed(t *testing.T) {
	_, v := midnight(t)

	v.Signature = &Signature{Alg: AlgEd25519, PublicKey: []byte{1, 2}, Value: make([]byte, ed25519.SignatureSize)}
	assert.ErrorIs(t, VerifySignature(v), ErrSignature)

	v.Signature = &Signature{Alg: AlgDilithium3, PublicKey: []byte{1, 2}}
	assert.ErrorIs(t, VerifySignature(v), ErrSignature)

	v.Signature = &Signature{Alg: "rsa"}
	err := VerifySignature(v)
	assert.True(t, errors.Is(err, ErrSignature))
}
