package alphabet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolsLayout(t *testing.T) {
	require.Equal(t, 94, Size)

	seen := make(map[rune]bool, Size)
	for _, r := range Symbols {
		require.Falsef(t, seen[r], "duplicate symbol %q", r)
		seen[r] = true
	}

	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", Symbols[:26])
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", Symbols[26:52])
	assert.Equal(t, "0123456789", Symbols[52:62])
	assert.Equal(t, "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", Symbols[62:])
}

func TestEncodeModulo(t *testing.T) {
	got := Encode([]byte{0, 1, 25, 26, 61, 62, 93, 94, 187, 188, 255})
	assert.Equal(t, "abzA9!~a~a&", got)
}

func TestEncodeEveryByte(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	out := Encode(all)
	require.Len(t, out, len(all))
	for i, r := range out {
		require.Truef(t, Contains(r), "byte %d encoded to %q outside alphabet", i, r)
	}
}

func TestEncodeEmpty(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "", Encode([]byte{}))
}

func TestContains(t *testing.T) {
	for _, r := range []rune{' ', '\t', 'é', 0x7f, 0} {
		assert.Falsef(t, Contains(r), "%q should not be in the alphabet", r)
	}
	for _, r := range []rune{'a', 'Z', '0', '~', '`', '\\', '"'} {
		assert.Truef(t, Contains(r), "%q should be in the alphabet", r)
	}
}
