package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfIsStable(t *testing.T) {
	a, err := Of([]byte("midnight-signal"))
	require.NoError(t, err)
	b, err := Of([]byte("midnight-signal"))
	require.NoError(t, err)
	assert.True(t, a.Equals(b))
	assert.Equal(t, a.String(), String([]byte("midnight-signal")))
	assert.Equal(t, uint64(cid.Raw), a.Prefix().Codec)

	c, err := Of([]byte("copper-lantern"))
	require.NoError(t, err)
	assert.False(t, a.Equals(c))
}

func TestDecodeRoundTrip(t *testing.T) {
	id, err := Of([]byte("x"))
	require.NoError(t, err)
	got, err := Decode("  " + id.String() + "\n")
	require.NoError(t, err)
	assert.True(t, id.Equals(got))
}

func TestDecodeRejectsOtherShapes(t *testing.T) {
	_, err := Decode("not-a-cid")
	assert.Error(t, err)

	sum, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	require.NoError(t, err)
	_, err = Decode(cid.NewCidV1(cid.DagCBOR, sum).String())
	assert.Error(t, err)

	sum512, err := multihash.Sum([]byte("x"), multihash.SHA2_512, -1)
	require.NoError(t, err)
	_, err = Decode(cid.NewCidV1(cid.Raw, sum512).String())
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	id, err := Of([]byte("payload"))
	require.NoError(t, err)
	assert.NoError(t, Check(id, []byte("payload")))
	assert.ErrorIs(t, Check(id, []byte("payload!")), ErrMismatch)
}
