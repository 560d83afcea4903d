// Package tlsh adapts github.com/glaslos/tlsh, a Trend Micro Locality
// Sensitive Hash with 128 buckets and a one byte checksum, to fuzzy.Primitive.
//
// Bytes follows fuzzy.Layout (checksum, length, quartiles, body with bucket 0
// in the most significant pair). String and Parse use the reference hex form,
// which swaps the nibbles of the checksum and length and stores the body in
// reverse bucket order.
package tlsh

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	gotlsh "github.com/glaslos/tlsh"

	"github.com/bimmerbailey/laxa/internal/fuzzy"
)

const (
	// MinDataLength is the smallest input, in bytes, that can be hashed.
	MinDataLength = 50

	hexPrefix = "T1"
)

// Primitive implements fuzzy.Primitive.
type Primitive struct{}

var _ fuzzy.Primitive = Primitive{}

// NewGenerator returns an empty generator.
func (Primitive) NewGenerator() fuzzy.Generator {
	return New()
}

// FromBytes decodes a serialized digest.
func (Primitive) FromBytes(b []byte) (fuzzy.Digest, error) {
	d, err := FromBytes(b)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SizeInBytes is fuzzy.SizeInBytes.
func (Primitive) SizeInBytes() int {
	return fuzzy.SizeInBytes
}

// Generator accumulates input for one digest.
type Generator struct {
	buf bytes.Buffer
}

// New creates an empty Generator.
func New() *Generator {
	return &Generator{}
}

// Write buffers p. It never fails.
func (g *Generator) Write(p []byte) (int, error) {
	return g.buf.Write(p)
}

// WriteString is Write for strings.
func (g *Generator) WriteString(s string) (int, error) {
	return g.buf.WriteString(s)
}

// Finalize computes the digest of everything written so far. The generator
// may keep receiving input afterwards.
func (g *Generator) Finalize() (fuzzy.Digest, error) {
	if g.buf.Len() < MinDataLength {
		return nil, fmt.Errorf("%w: %d bytes of input, need at least %d",
			fuzzy.ErrDigestConstruction, g.buf.Len(), MinDataLength)
	}

	t, err := gotlsh.HashBytes(g.buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fuzzy.ErrDigestConstruction, err)
	}

	raw, err := decodeHex(t.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fuzzy.ErrDigestConstruction, err)
	}

	return &Digest{layout: fromReference(raw), ref: t}, nil
}

// Digest is a finalized TLSH digest.
type Digest struct {
	layout [fuzzy.SizeInBytes]byte
	ref    *gotlsh.TLSH
}

var _ fuzzy.Digest = (*Digest)(nil)

// FromBytes decodes a digest serialized with Bytes.
func FromBytes(b []byte) (*Digest, error) {
	if _, err := fuzzy.ParseLayout(b, fuzzy.SizeInBytes); err != nil {
		return nil, err
	}

	d := &Digest{}
	copy(d.layout[:], b)

	ref := toReference(d.layout)
	t, err := gotlsh.ParseStringToTlsh(hex.EncodeToString(ref[:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fuzzy.ErrDigestFormat, err)
	}
	d.ref = t
	return d, nil
}

// Parse decodes the reference hex form produced by String. The T1 prefix is
// optional.
func Parse(s string) (*Digest, error) {
	raw, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fuzzy.ErrDigestFormat, err)
	}
	layout := fromReference(raw)
	return FromBytes(layout[:])
}

// Checksum returns the one byte checksum.
func (d *Digest) Checksum() byte { return d.layout[0] }

// Length returns the logarithmic input length.
func (d *Digest) Length() byte { return d.layout[1] }

// Q1 is the high quartile nibble.
func (d *Digest) Q1() byte {
	q1, _ := fuzzy.SplitQuartiles(d.layout[2])
	return q1
}

// Q2 is the low quartile nibble.
func (d *Digest) Q2() byte {
	_, q2 := fuzzy.SplitQuartiles(d.layout[2])
	return q2
}

// Body returns the packed buckets in fuzzy.Layout order.
func (d *Digest) Body() []byte { return d.layout[fuzzy.HeaderSize:] }

// Bytes returns the fuzzy.Layout serialization.
func (d *Digest) Bytes() []byte {
	out := d.layout
	return out[:]
}

// String returns the upper-case reference hex form prefixed with T1.
func (d *Digest) String() string {
	ref := toReference(d.layout)
	return hexPrefix + strings.ToUpper(hex.EncodeToString(ref[:]))
}

// Equal compares the serialized forms. Digests from other primitives are
// decoded through their serialized form.
func (d *Digest) Equal(other fuzzy.Digest) bool {
	o, ok := asDigest(other)
	if !ok {
		return false
	}
	return d.layout == o.layout
}

// Compare returns the TLSH distance between d and other, including the
// length component. A digest from another primitive whose serialization does
// not fit this layout is maximally distant.
func (d *Digest) Compare(other fuzzy.Digest) int {
	o, ok := asDigest(other)
	if !ok {
		return math.MaxInt32
	}
	return d.ref.Diff(o.ref)
}

func asDigest(other fuzzy.Digest) (*Digest, bool) {
	if other == nil {
		return nil, false
	}
	if o, ok := other.(*Digest); ok {
		return o, o != nil
	}
	o, err := FromBytes(other.Bytes())
	if err != nil {
		return nil, false
	}
	return o, true
}

// decodeHex strips an optional T1 prefix and decodes a reference digest.
func decodeHex(s string) ([fuzzy.SizeInBytes]byte, error) {
	var raw [fuzzy.SizeInBytes]byte

	s = strings.TrimSpace(s)
	if len(s) > 2 && strings.EqualFold(s[:2], hexPrefix) {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return raw, err
	}
	if len(b) != fuzzy.SizeInBytes {
		return raw, fmt.Errorf("got %d bytes, want %d", len(b), fuzzy.SizeInBytes)
	}
	copy(raw[:], b)
	return raw, nil
}

// fromReference converts the reference byte order to fuzzy.Layout.
// Reference body byte 31-i holds buckets 4i..4i+3, lowest bucket in the
// least significant pair.
func fromReference(raw [fuzzy.SizeInBytes]byte) [fuzzy.SizeInBytes]byte {
	var out [fuzzy.SizeInBytes]byte
	out[0] = swapNibbles(raw[0])
	out[1] = swapNibbles(raw[1])
	out[2] = raw[2]

	refBody, body := raw[fuzzy.HeaderSize:], out[fuzzy.HeaderSize:]
	for k := range fuzzy.SizeBuckets {
		v := refBody[fuzzy.BodySize-1-k/fuzzy.BucketsPerByte] >> (2 * (k % fuzzy.BucketsPerByte)) & 0x03
		fuzzy.SetBucket(body, k, v)
	}
	return out
}

// toReference is the inverse of fromReference.
func toReference(layout [fuzzy.SizeInBytes]byte) [fuzzy.SizeInBytes]byte {
	var out [fuzzy.SizeInBytes]byte
	out[0] = swapNibbles(layout[0])
	out[1] = swapNibbles(layout[1])
	out[2] = layout[2]

	body, refBody := layout[fuzzy.HeaderSize:], out[fuzzy.HeaderSize:]
	for k := range fuzzy.SizeBuckets {
		v := fuzzy.Bucket(body, k)
		refBody[fuzzy.BodySize-1-k/fuzzy.BucketsPerByte] |= v << (2 * (k % fuzzy.BucketsPerByte))
	}
	return out
}

func swapNibbles(b byte) byte {
	return b<<4 | b>>4
}
