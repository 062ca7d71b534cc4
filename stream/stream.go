// Package stream expands a single digest into a byte stream of any length.
//
// The construction is a counter chain over the previous digest:
//
//	d0   = H(input)
//	d(i) = H(d(i-1) || BE32(i))    for i >= 1
//	out  = (d0 || d1 || d2 || ...)[:n]
//
// H is the caller's Hasher, typically a digest.Hasher with rounds applied.
package stream

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// Hasher is the digest primitive the expander chains.
type Hasher interface {
	Sum(data []byte) ([]byte, error)
}

// ContextHasher is a Hasher whose Sum can stop early once ctx is done.
type ContextHasher interface {
	Hasher
	SumContext(ctx context.Context, data []byte) ([]byte, error)
}

// MaxCounter is the last counter value a chain may append.
const MaxCounter = math.MaxUint32

// Expand returns exactly n bytes derived from input.
//
// The first digest is used as-is. Each further block appends the next
// big-endian 32-bit counter, starting at 1, to the previous digest and
// hashes that. Any Hasher error aborts the expansion and no bytes are
// returned.
func Expand(h Hasher, input []byte, n int) ([]byte, error) {
	return ExpandContext(context.Background(), h, input, n)
}

// ExpandContext is Expand that gives up with ctx.Err() once ctx is done.
// ctx is checked before every block, and handed to h when h is a
// ContextHasher.
func ExpandContext(ctx context.Context, h Hasher, input []byte, n int) ([]byte, error) {
	if n < 1 {
		return nil, fmt.Errorf("stream: target length must be >= 1, got %d", n)
	}
	sum := func(data []byte) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ch, ok := h.(ContextHasher); ok {
			return ch.SumContext(ctx, data)
		}
		return h.Sum(data)
	}

	block, err := sum(input)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	var offset int
	var counter uint32
	for {
		if len(block) == 0 {
			return nil, fmt.Errorf("stream: hasher returned an empty digest")
		}
		offset += copy(out[offset:], block)
		if offset == n {
			return out, nil
		}
		if counter == MaxCounter {
			return nil, fmt.Errorf("stream: counter exhausted after %d bytes", offset)
		}
		counter++

		combined := make([]byte, len(block)+4)
		copy(combined, block)
		binary.BigEndian.PutUint32(combined[len(block):], counter)
		if block, err = sum(combined); err != nil {
			return nil, err
		}
	}
}

// ExpandString is Expand over the UTF-8 bytes of s.
func ExpandString(h Hasher, s string, n int) ([]byte, error) {
	return Expand(h, []byte(s), n)
}
