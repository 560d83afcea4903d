package fuzzy

import "fmt"

// Layout is the decoded form of a serialized digest:
//
//	byte 0      checksum
//	byte 1      length
//	byte 2      quartiles, q1 in the high nibble, q2 in the low nibble
//	byte 3..    body, four 2-bit buckets per byte, most significant pair first
type Layout struct {
	Checksum byte
	Length   byte
	Q1       byte
	Q2       byte
	Body     []byte
}

// Quartiles packs q1 and q2 into a single byte.
func Quartiles(q1, q2 byte) byte {
	return (q1&0x0f)<<4 | q2&0x0f
}

// SplitQuartiles is the inverse of Quartiles.
func SplitQuartiles(b byte) (q1, q2 byte) {
	return b >> 4, b & 0x0f
}

// Bytes serializes the layout.
func (l Layout) Bytes() []byte {
	out := make([]byte, 0, HeaderSize+len(l.Body))
	out = append(out, l.Checksum, l.Length, Quartiles(l.Q1, l.Q2))
	return append(out, l.Body...)
}

// ParseLayout splits a serialized digest of exactly size bytes.
// The returned body aliases b.
func ParseLayout(b []byte, size int) (Layout, error) {
	if len(b) != size {
		return Layout{}, fmt.Errorf("%w: got %d bytes, want %d", ErrDigestFormat, len(b), size)
	}
	if size <= HeaderSize {
		return Layout{}, fmt.Errorf("%w: size %d leaves no body", ErrDigestFormat, size)
	}
	q1, q2 := SplitQuartiles(b[2])
	return Layout{
		Checksum: b[0],
		Length:   b[1],
		Q1:       q1,
		Q2:       q2,
		Body:     b[HeaderSize:],
	}, nil
}

// Bucket returns the 2-bit value of bucket k in body.
func Bucket(body []byte, k int) byte {
	shift := 6 - 2*(k%BucketsPerByte)
	return (body[k/BucketsPerByte] >> shift) & 0x03
}

// SetBucket stores the 2-bit value v in bucket k of body.
func SetBucket(body []byte, k int, v byte) {
	shift := 6 - 2*(k%BucketsPerByte)
	i := k / BucketsPerByte
	body[i] = body[i]&^(0x03<<shift) | (v&0x03)<<shift
}

// UnpackByte returns the four buckets held in b, most significant first.
func UnpackByte(b byte) [BucketsPerByte]byte {
	return [BucketsPerByte]byte{
		(b & 0b11000000) >> 6,
		(b & 0b00110000) >> 4,
		(b & 0b00001100) >> 2,
		b & 0b00000011,
	}
}

// PackByte is the inverse of UnpackByte.
func PackByte(v [BucketsPerByte]byte) byte {
	return (v[0]&0x03)<<6 | (v[1]&0x03)<<4 | (v[2]&0x03)<<2 | v[3]&0x03
}
