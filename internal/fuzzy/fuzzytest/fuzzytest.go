// Package fuzzytest provides a deterministic fuzzy.Primitive for tests.
//
// Digests are built directly from field values or, through the generator,
// from simple functions of the written bytes, so tests can reason about
// every bucket without running a locality-sensitive hash.
package fuzzytest

import (
	"bytes"
	"fmt"

	"github.com/bimmerbailey/laxa/internal/fuzzy"
)

// Primitive is a fake fuzzy.Primitive.
type Primitive struct {
	// Size overrides SizeInBytes. Zero means fuzzy.SizeInBytes.
	Size int
	// MinLength is the smallest input Finalize accepts.
	MinLength int
	// LooseEqual makes Digest.Equal ignore the body, like a primitive whose
	// equality only looks at the header fields.
	LooseEqual bool
}

var _ fuzzy.Primitive = Primitive{}

// SizeInBytes returns Size, or fuzzy.SizeInBytes when Size is zero.
func (p Primitive) SizeInBytes() int {
	if p.Size == 0 {
		return fuzzy.SizeInBytes
	}
	return p.Size
}

// NewGenerator returns an empty Generator bound to p.
func (p Primitive) NewGenerator() fuzzy.Generator {
	return &Generator{primitive: p}
}

// FromBytes decodes b with fuzzy.ParseLayout and copies the body.
func (p Primitive) FromBytes(b []byte) (fuzzy.Digest, error) {
	l, err := fuzzy.ParseLayout(b, p.SizeInBytes())
	if err != nil {
		return nil, err
	}
	l.Body = bytes.Clone(l.Body)
	return &Digest{Layout: l, loose: p.LooseEqual}, nil
}

// New returns a digest with the given header fields and bucket values.
// Buckets not listed are zero.
func (p Primitive) New(length, q1, q2 byte, buckets ...byte) *Digest {
	body := make([]byte, p.SizeInBytes()-fuzzy.HeaderSize)
	for k, v := range buckets {
		fuzzy.SetBucket(body, k, v)
	}
	return &Digest{
		Layout: fuzzy.Layout{Length: length, Q1: q1, Q2: q2, Body: body},
		loose:  p.LooseEqual,
	}
}

// Generator records everything written to it.
type Generator struct {
	primitive Primitive
	buf       bytes.Buffer
}

// Write buffers p. It never fails.
func (g *Generator) Write(p []byte) (int, error) {
	return g.buf.Write(p)
}

// Finalize derives a digest from the written bytes: length is the input
// length, q1 and q2 come from the first and last byte, the checksum is the
// XOR of all bytes and bucket k is byte k (cycling) modulo 4.
func (g *Generator) Finalize() (fuzzy.Digest, error) {
	data := g.buf.Bytes()
	if len(data) == 0 || len(data) < g.primitive.MinLength {
		return nil, fmt.Errorf("%w: %d bytes of input", fuzzy.ErrDigestConstruction, len(data))
	}

	buckets := make([]byte, (g.primitive.SizeInBytes()-fuzzy.HeaderSize)*fuzzy.BucketsPerByte)
	for k := range buckets {
		buckets[k] = data[k%len(data)] % 4
	}
	d := g.primitive.New(byte(len(data)), data[0]%16, data[len(data)-1]%16, buckets...)
	for _, c := range data {
		d.Layout.Checksum ^= c
	}
	return d, nil
}

// Digest is a fake digest backed by its decoded layout.
type Digest struct {
	Layout fuzzy.Layout
	loose  bool
}

var _ fuzzy.Digest = (*Digest)(nil)

// Checksum returns the layout checksum.
func (d *Digest) Checksum() byte { return d.Layout.Checksum }

// Length returns the layout length byte.
func (d *Digest) Length() byte { return d.Layout.Length }

// Q1 returns the first quartile nibble.
func (d *Digest) Q1() byte { return d.Layout.Q1 }

// Q2 returns the second quartile nibble.
func (d *Digest) Q2() byte { return d.Layout.Q2 }

// Body returns the layout body without copying.
func (d *Digest) Body() []byte { return d.Layout.Body }

// Bytes serializes the layout.
func (d *Digest) Bytes() []byte { return d.Layout.Bytes() }

// Bucket returns the value of bucket k.
func (d *Digest) Bucket(k int) byte {
	return fuzzy.Bucket(d.Layout.Body, k)
}

// Equal compares header fields and, unless the primitive is loose, the body.
func (d *Digest) Equal(other fuzzy.Digest) bool {
	if other == nil {
		return false
	}
	if d.Checksum() != other.Checksum() || d.Length() != other.Length() ||
		d.Q1() != other.Q1() || d.Q2() != other.Q2() {
		return false
	}
	return d.loose || bytes.Equal(d.Body(), other.Body())
}

// Compare sums the absolute differences of every field and bucket.
func (d *Digest) Compare(other fuzzy.Digest) int {
	diff := absDiff(d.Length(), other.Length()) +
		absDiff(d.Q1(), other.Q1()) +
		absDiff(d.Q2(), other.Q2())
	body := other.Body()
	for k := 0; k < len(d.Layout.Body)*fuzzy.BucketsPerByte && k/fuzzy.BucketsPerByte < len(body); k++ {
		diff += absDiff(d.Bucket(k), fuzzy.Bucket(body, k))
	}
	return diff
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
