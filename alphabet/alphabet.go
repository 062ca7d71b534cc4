// Package alphabet renders raw bytes as printable text.
//
// The mapping is one-way: every byte b becomes Symbols[b % Size]. There is
// no decoder; the output is meant for display and copying, not transport.
package alphabet

import "strings"

// Symbols is the fixed, ordered 94-symbol alphabet: lowercase letters,
// uppercase letters, digits, then ASCII punctuation in code point order.
//
// Changing this string changes every derived output.
const Symbols = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Size is the number of symbols in the alphabet.
const Size = len(Symbols)

// Encode maps each byte of b onto the alphabet.
// The result always has exactly len(b) characters.
func Encode(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, v := range b {
		sb.WriteByte(Symbols[int(v)%Size])
	}
	return sb.String()
}

// Contains reports whether r is one of the alphabet's symbols.
func Contains(r rune) bool {
	return r < 0x80 && strings.IndexByte(Symbols, byte(r)) >= 0
}
