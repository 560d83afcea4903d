// Package histogram folds fuzzy digests into fixed-size per-field count
// tables and synthesizes a consensus digest by majority vote.
//
// An Aggregator never retains the digests it is fed. Its memory is fixed at
// construction: one four-slot table per bucket, two sixteen-slot quartile
// tables and one 256-slot length table.
package histogram

import (
	"fmt"
	"sync"

	"github.com/bimmerbailey/laxa/internal/fuzzy"
)

// Aggregator accumulates digests for one group of related records.
//
// Add and Consensus may be interleaved in any order; there is no finalized
// state. The aggregator is safe for concurrent use: Add takes the write lock
// and readers see a consistent snapshot.
type Aggregator struct {
	primitive   fuzzy.Primitive
	sizeBuckets int

	buckets [][4]uint64
	q1      [16]uint64
	q2      [16]uint64
	lengths [256]uint64
	count   uint64

	mu sync.RWMutex
}

// New creates an empty aggregator for production digests of p.
func New(p fuzzy.Primitive) *Aggregator {
	return newWithBuckets(p, fuzzy.SizeBuckets)
}

func newWithBuckets(p fuzzy.Primitive, sizeBuckets int) *Aggregator {
	if sizeBuckets <= 0 || sizeBuckets%fuzzy.BucketsPerByte != 0 {
		panic(fmt.Sprintf("histogram: bucket count %d is not a positive multiple of %d",
			sizeBuckets, fuzzy.BucketsPerByte))
	}

	a := &Aggregator{
		primitive:   p,
		sizeBuckets: sizeBuckets,
		buckets:     make([][4]uint64, sizeBuckets),
	}
	if len(a.buckets) != a.sizeBuckets {
		panic("histogram: bucket table does not match configured bucket count")
	}
	return a
}

// Add folds d into the count tables. Body bytes beyond the configured
// bucket count are ignored.
func (a *Aggregator) Add(d fuzzy.Digest) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.q1[d.Q1()&0x0f]++
	a.q2[d.Q2()&0x0f]++
	a.lengths[d.Length()]++

	for i, b := range d.Body() {
		offset := i * fuzzy.BucketsPerByte
		if offset >= a.sizeBuckets {
			break
		}
		for j, v := range fuzzy.UnpackByte(b) {
			a.buckets[offset+j][v]++
		}
	}

	a.count++
}

// Len returns the number of digests folded in so far.
func (a *Aggregator) Len() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Consensus returns the most probable digest: every field is the value
// observed most often, the lowest value winning ties. The checksum is always
// zero because the result corresponds to no real input.
//
// On an empty aggregator every field is zero.
//
// Consensus panics if the assembled digest does not have the primitive's
// size, which means the bucket count and the primitive disagree.
func (a *Aggregator) Consensus() fuzzy.Digest {
	a.mu.RLock()
	defer a.mu.RUnlock()

	body := make([]byte, a.sizeBuckets/fuzzy.BucketsPerByte)
	for i := range body {
		var packed [fuzzy.BucketsPerByte]byte
		for j := range packed {
			packed[j] = byte(MostProbable(a.buckets[i*fuzzy.BucketsPerByte+j][:]))
		}
		body[i] = fuzzy.PackByte(packed)
	}

	raw := fuzzy.Layout{
		Checksum: 0,
		Length:   byte(MostProbable(a.lengths[:])),
		Q1:       byte(MostProbable(a.q1[:])),
		Q2:       byte(MostProbable(a.q2[:])),
		Body:     body,
	}.Bytes()

	if want := a.primitive.SizeInBytes(); len(raw) != want {
		panic(fmt.Errorf("histogram: consensus is %d bytes, primitive expects %d: %w",
			len(raw), want, fuzzy.ErrDigestFormat))
	}

	d, err := a.primitive.FromBytes(raw)
	if err != nil {
		panic(fmt.Errorf("histogram: decoding consensus: %w", err))
	}
	return d
}

// MostProbable returns the index of the largest count. Ties resolve to the
// lowest index, and an empty slice yields 0.
func MostProbable(counts []uint64) int {
	best := 0
	for i, n := range counts {
		if n > counts[best] {
			best = i
		}
	}
	return best
}
