package fuzzy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuartiles(t *testing.T) {
	tests := []struct {
		q1, q2 byte
		want   byte
	}{
		{0, 0, 0x00},
		{1, 2, 0x12},
		{15, 15, 0xff},
		{0x1f, 0x20, 0xf0}, // only the low nibble of each input survives
	}

	for _, tt := range tests {
		got := Quartiles(tt.q1, tt.q2)
		assert.Equal(t, tt.want, got, "Quartiles(%d, %d)", tt.q1, tt.q2)

		q1, q2 := SplitQuartiles(got)
		assert.Equal(t, tt.q1&0x0f, q1)
		assert.Equal(t, tt.q2&0x0f, q2)
	}
}

func TestUnpackByte(t *testing.T) {
	assert.Equal(t, [4]byte{3, 0, 1, 2}, UnpackByte(0b11_00_01_10))
	assert.Equal(t, byte(0b11_00_01_10), PackByte([4]byte{3, 0, 1, 2}))

	for b := 0; b < 256; b++ {
		assert.Equal(t, byte(b), PackByte(UnpackByte(byte(b))))
	}
}

func TestBucketBitOrder(t *testing.T) {
	body := make([]byte, 2)

	SetBucket(body, 0, 3)
	assert.Equal(t, []byte{0b11000000, 0}, body, "bucket 0 is the most significant pair of byte 0")

	SetBucket(body, 3, 1)
	assert.Equal(t, []byte{0b11000001, 0}, body)

	SetBucket(body, 5, 2)
	assert.Equal(t, []byte{0b11000001, 0b00100000}, body)

	SetBucket(body, 0, 1)
	assert.Equal(t, byte(1), Bucket(body, 0), "SetBucket overwrites the previous value")

	for k := 0; k < 8; k++ {
		assert.Equal(t, UnpackByte(body[k/4])[k%4], Bucket(body, k))
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	body := make([]byte, BodySize)
	for i := range body {
		body[i] = byte(i * 7)
	}
	l := Layout{Checksum: 0xab, Length: 42, Q1: 3, Q2: 14, Body: body}

	raw := l.Bytes()
	require.Len(t, raw, SizeInBytes)

	got, err := ParseLayout(raw, SizeInBytes)
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestParseLayoutWrongSize(t *testing.T) {
	for _, n := range []int{0, 3, SizeInBytes - 1, SizeInBytes + 1} {
		_, err := ParseLayout(make([]byte, n), SizeInBytes)
		require.Error(t, err, "size %d", n)
		assert.True(t, errors.Is(err, ErrDigestFormat))
	}

	_, err := ParseLayout(make([]byte, HeaderSize), HeaderSize)
	assert.ErrorIs(t, err, ErrDigestFormat)
}
