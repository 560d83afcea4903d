// Package fuzzy defines the capability boundary between laxa and the
// locality-sensitive hash primitive that produces record digests.
//
// Everything above this package (the line hash adapter, the histogram
// aggregator, the CLI) depends only on the interfaces and the byte layout
// declared here, never on how a particular primitive computes its buckets.
package fuzzy

import (
	"errors"
	"fmt"
)

const (
	// SizeBuckets is the number of 2-bit buckets in a production digest body.
	SizeBuckets = 128

	// HeaderSize is the number of bytes preceding the body: checksum,
	// length and quartiles.
	HeaderSize = 3

	// BodySize is the number of body bytes for SizeBuckets buckets.
	BodySize = SizeBuckets / BucketsPerByte

	// SizeInBytes is the serialized size of a production digest.
	SizeInBytes = HeaderSize + BodySize

	// BucketsPerByte is how many 2-bit buckets one body byte holds.
	BucketsPerByte = 4
)

var (
	// ErrDigestConstruction is returned when a primitive refuses to
	// finalize a digest for its input, e.g. too little or too uniform data.
	// It is deterministic for a given input and not worth retrying.
	ErrDigestConstruction = errors.New("digest construction failed")

	// ErrDigestFormat is returned when a byte buffer cannot be decoded as a
	// digest of the expected size.
	ErrDigestFormat = errors.New("invalid digest format")
)

// Digest is a finalized fuzzy hash.
type Digest interface {
	// Checksum is the primitive's verification byte.
	Checksum() byte
	// Length is the bucketed encoding of the input length.
	Length() byte
	// Q1 and Q2 are the two 4-bit quartile ratios.
	Q1() byte
	Q2() byte
	// Body returns the packed bucket bytes. Callers must not modify it.
	Body() []byte
	// Bytes returns the serialized form laid out as described by Layout.
	Bytes() []byte
	// Compare returns the distance to other. Zero for identical digests,
	// larger means less similar, no upper bound.
	Compare(other Digest) int
	// Equal reports primitive-level equality.
	Equal(other Digest) bool
}

// Generator accumulates input bytes for a single digest.
type Generator interface {
	Write(p []byte) (int, error)
	// Finalize returns the digest for everything written so far. The error
	// wraps ErrDigestConstruction when the input cannot be hashed.
	Finalize() (Digest, error)
}

// Primitive is the fuzzy-hash capability consumed by the rest of laxa.
type Primitive interface {
	NewGenerator() Generator
	// FromBytes decodes a serialized digest. The error wraps ErrDigestFormat
	// when len(b) != SizeInBytes().
	FromBytes(b []byte) (Digest, error)
	SizeInBytes() int
}

// String renders d with its own String method when it has one and as
// uppercase hex otherwise.
func String(d Digest) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%X", d.Bytes())
}
