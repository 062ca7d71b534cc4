package digest

import (
	"context"
	"fmt"
)

// Hasher applies one algorithm a fixed number of rounds.
// It holds no mutable state and is safe for concurrent use.
type Hasher struct {
	alg    Algorithm
	rounds int
}

// Hasher resolves spec against the catalog.
func (c Catalog) Hasher(spec Spec) (*Hasher, error) {
	if spec.Rounds < 1 {
		return nil, newError(KindInvalidSpec, "KF-DIGEST-002", fmt.Sprintf("rounds must be >= 1, got %d", spec.Rounds))
	}
	alg, err := c.Lookup(spec.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Hasher{alg: alg, rounds: spec.Rounds}, nil
}

// Algorithm returns the canonical id of the resolved algorithm.
func (h *Hasher) Algorithm() ID { return h.alg.ID }

// Rounds returns the number of digest applications per Sum.
func (h *Hasher) Rounds() int { return h.rounds }

// Size returns the length of every Sum result.
func (h *Hasher) Size() int { return h.alg.Size }

// Sum digests data, then digests the previous output rounds-1 more times.
// Each round hashes only the previous digest, never data again.
func (h *Hasher) Sum(data []byte) ([]byte, error) {
	return h.SumContext(context.Background(), data)
}

// roundsPerCheck is how many rounds SumContext runs between ctx checks.
const roundsPerCheck = 1024

// SumContext is Sum that returns ctx.Err() once ctx is done. The error is
// not wrapped, so callers can tell a cancellation from a digest failure.
func (h *Hasher) SumContext(ctx context.Context, data []byte) ([]byte, error) {
	out := data
	for i := 0; i < h.rounds; i++ {
		if i%roundsPerCheck == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		next, err := h.once(out)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func (h *Hasher) once(data []byte) ([]byte, error) {
	st, err := h.alg.New()
	if err != nil {
		return nil, wrapError(KindDigest, "KF-DIGEST-003", fmt.Sprintf("%s: init failed", h.alg.ID), err)
	}
	// hash.Hash.Write never returns an error.
	_, _ = st.Write(data)
	sum := st.Sum(make([]byte, 0, h.alg.Size))
	if len(sum) != h.alg.Size {
		return nil, newError(KindDigest, "KF-DIGEST-004", fmt.Sprintf("%s: produced %d bytes, want %d", h.alg.ID, len(sum), h.alg.Size))
	}
	return sum, nil
}

// HashRounds resolves spec in c and digests data with it.
func HashRounds(c Catalog, data []byte, spec Spec) ([]byte, error) {
	h, err := c.Hasher(spec)
	if err != nil {
		return nil, err
	}
	return h.Sum(data)
}
