// Package derive turns a text key into a fixed-length printable string.
//
// A Deriver augments the raw key, expands it into a byte stream with the
// counter-chained digest construction and renders the bytes with the
// printable alphabet. Every call is independent: the Deriver holds only
// immutable catalogs and may be shared between goroutines.
package derive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"xdao.co/keyforge/alphabet"
	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/digest"
	"xdao.co/keyforge/stream"
)

// DefaultLength is the output length used when a Request leaves Length at 0.
const DefaultLength = 64

// Request describes one derivation.
type Request struct {
	Input   string
	Hash    digest.Spec
	Augment augment.Selection
	// Length is the number of output characters; 0 means DefaultLength.
	Length int
}

// Result is a successful derivation.
type Result struct {
	// Augmented is the input after the selected transforms ran.
	Augmented string
	// Bytes is the expanded stream, one byte per output character.
	Bytes []byte
	// Encoded is Bytes rendered with the alphabet.
	Encoded string
}

// Config wires a Deriver. Zero-valued catalogs fall back to the defaults.
type Config struct {
	Digests       digest.Catalog
	Augmentations augment.Catalog
	Logger        *logrus.Logger
}

// Deriver runs derivations against fixed catalogs.
type Deriver struct {
	digests digest.Catalog
	augs    augment.Catalog
	log     *logrus.Logger
}

// New builds a Deriver from cfg.
func New(cfg Config) *Deriver {
	d := &Deriver{digests: cfg.Digests, augs: cfg.Augmentations, log: cfg.Logger}
	if d.digests.Len() == 0 {
		d.digests = digest.Default()
	}
	if d.augs.Len() == 0 {
		d.augs = augment.Default()
	}
	if d.log == nil {
		d.log = logrus.New()
		d.log.SetOutput(io.Discard)
	}
	return d
}

// Digests returns the digest catalog the Deriver resolves algorithms in.
func (d *Deriver) Digests() digest.Catalog { return d.digests }

// Augmentations returns the augmentation catalog the Deriver resolves steps in.
func (d *Deriver) Augmentations() augment.Catalog { return d.augs }

// Derive runs req. It fails without partial output when the raw input is
// blank, when augmentation leaves nothing usable, when the request is
// malformed, or when the digest fails.
func (d *Deriver) Derive(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if augment.IsBlank(req.Input) {
		return Result{}, newError(KindEmptyInput, "KF-INPUT-001", "input is empty")
	}

	length := req.Length
	if length == 0 {
		length = DefaultLength
	}
	if length < 0 {
		return Result{}, newError(KindInvalidRequest, "KF-REQ-001", fmt.Sprintf("output length must be >= 1, got %d", req.Length))
	}

	h, err := d.digests.Hasher(req.Hash)
	if err != nil {
		if digest.IsKind(err, digest.KindInvalidSpec) {
			return Result{}, wrapError(KindInvalidRequest, "KF-REQ-002", "invalid hash spec", err)
		}
		return Result{}, wrapError(KindDigestFailure, "KF-DIGEST-101", "digest unavailable", err)
	}

	steps, err := req.Augment.Steps(d.augs)
	if err != nil {
		return Result{}, wrapError(KindInvalidRequest, "KF-REQ-003", "invalid augmentation selection", err)
	}
	augmented := augment.Apply(req.Input, steps)
	if augment.IsBlank(augmented) {
		return Result{}, newError(KindNoUsableInput, "KF-INPUT-002", "augmentation left no usable input")
	}

	b, err := stream.ExpandContext(ctx, h, []byte(augmented), length)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return Result{}, err
		}
		return Result{}, wrapError(KindDigestFailure, "KF-DIGEST-102", "digest failed", err)
	}

	d.log.WithFields(logrus.Fields{
		"algorithm": h.Algorithm(),
		"rounds":    h.Rounds(),
		"length":    length,
		"augment":   req.Augment.String(),
	}).Debug("Derived display hash")

	return Result{Augmented: augmented, Bytes: b, Encoded: alphabet.Encode(b)}, nil
}

// DisplayHash is Derive returning only the encoded string.
func (d *Deriver) DisplayHash(ctx context.Context, req Request) (string, error) {
	res, err := d.Derive(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Encoded, nil
}

// Selection parses ids against the Deriver's augmentation catalog. Unknown
// ids fail with an InvalidRequest error.
func (d *Deriver) Selection(ids []string) (augment.Selection, error) {
	sel, err := augment.ParseSelection(d.augs, ids)
	if err != nil {
		return augment.Selection{}, wrapError(KindInvalidRequest, "KF-REQ-003", "invalid augmentation selection", err)
	}
	return sel, nil
}
