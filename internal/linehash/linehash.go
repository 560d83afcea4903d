// Package linehash wraps a fuzzy-hash primitive into the per-record digest
// used throughout laxa.
package linehash

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/bimmerbailey/laxa/internal/fuzzy"
	"github.com/cespare/xxhash"
)

// LineHash is the digest of one record. It is immutable once built.
type LineHash struct {
	digest fuzzy.Digest
	body   []byte
}

// FromFragments streams every fragment into a fresh generator and finalizes
// it. Finalization failures are returned wrapped and still match
// fuzzy.ErrDigestConstruction when the input is unsuitable.
func FromFragments(p fuzzy.Primitive, fragments []string) (*LineHash, error) {
	g := p.NewGenerator()
	for _, f := range fragments {
		if _, err := g.Write([]byte(f)); err != nil {
			return nil, fmt.Errorf("hashing fragment: %w", err)
		}
	}

	d, err := g.Finalize()
	if err != nil {
		return nil, fmt.Errorf("finalizing digest: %w", err)
	}

	return &LineHash{
		digest: d,
		body:   bytes.Clone(d.Body()),
	}, nil
}

// FromText is FromFragments with a single fragment.
func FromText(p fuzzy.Primitive, s string) (*LineHash, error) {
	return FromFragments(p, []string{s})
}

// Digest returns the underlying digest.
func (h *LineHash) Digest() fuzzy.Digest {
	return h.digest
}

// Compare returns the primitive's distance from h to d.
func (h *LineHash) Compare(d fuzzy.Digest) int {
	return h.digest.Compare(d)
}

// Equal reports whether the digests are equal according to the primitive
// and their raw bodies are byte-identical.
func (h *LineHash) Equal(other *LineHash) bool {
	if h == nil || other == nil {
		return h == other
	}
	if h.digest == nil || other.digest == nil {
		return h.digest == nil && other.digest == nil
	}
	return h.digest.Equal(other.digest) && bytes.Equal(h.body, other.body)
}

// PartialCompare orders by the digests' length field, then by body bytes.
// ok is false when either side carries no digest.
func (h *LineHash) PartialCompare(other *LineHash) (order int, ok bool) {
	if h == nil || other == nil || h.digest == nil || other.digest == nil {
		return 0, false
	}
	if c := cmp.Compare(h.digest.Length(), other.digest.Length()); c != 0 {
		return c, true
	}
	return bytes.Compare(h.body, other.body), true
}

// Sum64 hashes the body, so equal line hashes share a value. A nil hash
// sums to 0.
func (h *LineHash) Sum64() uint64 {
	if h == nil {
		return 0
	}
	return xxhash.Sum64(h.body)
}

// String returns the hex encoding of the serialized digest.
func (h *LineHash) String() string {
	return fuzzy.String(h.digest)
}

// Sort orders hashes with PartialCompare. Hashes without a digest sort last.
func Sort(hashes []*LineHash) {
	slices.SortStableFunc(hashes, func(a, b *LineHash) int {
		if c, ok := a.PartialCompare(b); ok {
			return c
		}
		aOK := a != nil && a.digest != nil
		bOK := b != nil && b.digest != nil
		switch {
		case aOK && !bOK:
			return -1
		case !aOK && bOK:
			return 1
		default:
			return 0
		}
	})
}
