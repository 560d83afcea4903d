package tlsh

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/bimmerbailey/laxa/internal/fuzzy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleA = "2025-01-26T10:00:01Z INFO connection established to database primary-01 " +
		"after 3 retries; pool size is now 25, idle connections 4, waiting clients 0, " +
		"negotiated protocol version 3.2 with TLS 1.3 and cipher suite AES256-GCM-SHA384"
	sampleB = "2025-01-26T10:00:07Z INFO connection established to database replica-02 " +
		"after 1 retries; pool size is now 24, idle connections 6, waiting clients 0, " +
		"negotiated protocol version 3.2 with TLS 1.3 and cipher suite AES256-GCM-SHA384"
	sampleC = "panic: runtime error: invalid memory address or nil pointer dereference " +
		"[signal SIGSEGV: segmentation violation code=0x1 addr=0x18 pc=0x4b7d2f] goroutine 17 " +
		"[running]: main.(*Server).handle(0xc0001a2000, {0x7f3c, 0xc00012e0f0})"
)

func hash(t *testing.T, s string) *Digest {
	t.Helper()
	g := New()
	_, err := g.WriteString(s)
	require.NoError(t, err)
	d, err := g.Finalize()
	require.NoError(t, err)
	return d.(*Digest)
}

func TestFinalize_TooShort(t *testing.T) {
	g := New()
	_, _ = g.WriteString("short line")

	d, err := g.Finalize()
	assert.Nil(t, d)
	assert.ErrorIs(t, err, fuzzy.ErrDigestConstruction)
}

func TestWrite_Streaming(t *testing.T) {
	whole := hash(t, sampleA)

	g := New()
	for _, part := range []string{sampleA[:7], sampleA[7:60], sampleA[60:61], sampleA[61:]} {
		n, err := g.WriteString(part)
		require.NoError(t, err)
		assert.Equal(t, len(part), n)
	}
	streamed, err := g.Finalize()
	require.NoError(t, err)

	assert.True(t, whole.Equal(streamed), "fragmented input must hash like contiguous input")
}

func TestCompare_Self(t *testing.T) {
	for _, s := range []string{sampleA, sampleB, sampleC} {
		d := hash(t, s)
		assert.Equal(t, 0, d.Compare(d))
	}
}

func TestCompare_Similarity(t *testing.T) {
	a, b, c := hash(t, sampleA), hash(t, sampleB), hash(t, sampleC)

	assert.Less(t, a.Compare(b), a.Compare(c), "near-identical log lines must be closer than unrelated ones")
	assert.Equal(t, a.Compare(b), b.Compare(a))
}

func digestOf(t *testing.T, l fuzzy.Layout) *Digest {
	t.Helper()
	if l.Body == nil {
		l.Body = make([]byte, fuzzy.BodySize)
	}
	d, err := FromBytes(l.Bytes())
	require.NoError(t, err)
	return d
}

func TestCompare_Fields(t *testing.T) {
	base := digestOf(t, fuzzy.Layout{Length: 10, Q1: 2, Q2: 2})

	tests := []struct {
		name  string
		other fuzzy.Layout
		want  int
	}{
		{"identical", fuzzy.Layout{Length: 10, Q1: 2, Q2: 2}, 0},
		{"length off by one", fuzzy.Layout{Length: 11, Q1: 2, Q2: 2}, 1},
		{"length off by three", fuzzy.Layout{Length: 13, Q1: 2, Q2: 2}, 36},
		{"length wraps around", fuzzy.Layout{Length: 255, Q1: 2, Q2: 2}, 11 * 12},
		{"q1 off by one", fuzzy.Layout{Length: 10, Q1: 3, Q2: 2}, 1},
		{"q2 off by three", fuzzy.Layout{Length: 10, Q1: 2, Q2: 15}, 24},
		{"checksum differs", fuzzy.Layout{Checksum: 9, Length: 10, Q1: 2, Q2: 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Compare(digestOf(t, tt.other)))
		})
	}
}

func TestCompare_Body(t *testing.T) {
	a := digestOf(t, fuzzy.Layout{})
	body := make([]byte, fuzzy.BodySize)

	fuzzy.SetBucket(body, 0, 1)
	assert.Equal(t, 1, a.Compare(digestOf(t, fuzzy.Layout{Body: body})))

	fuzzy.SetBucket(body, 0, 3)
	assert.Equal(t, 6, a.Compare(digestOf(t, fuzzy.Layout{Body: body})), "buckets three apart count double")

	fuzzy.SetBucket(body, 127, 2)
	assert.Equal(t, 8, a.Compare(digestOf(t, fuzzy.Layout{Body: body})))
}

// Reference output for sampleA, in the T1 hex form and in fuzzy.Layout order.
const (
	sampleAHex    = "T1DED097226272862A030BD0C08E033803F68C950C320002A1A80BC3D8CE2422633A72F1"
	sampleALayout = "ED0D974F8DACC98818B327C3E02A4A80008C3056329FC02CC0B20307E0C0A8928D8988"
)

func TestFinalize_ReferenceVector(t *testing.T) {
	d := hash(t, sampleA)

	assert.Equal(t, sampleAHex, d.String())
	assert.Equal(t, sampleALayout, strings.ToUpper(hex.EncodeToString(d.Bytes())))
	assert.Equal(t, byte(237), d.Checksum())
	assert.Equal(t, byte(13), d.Length())
	assert.Equal(t, byte(9), d.Q1())
	assert.Equal(t, byte(7), d.Q2())

	parsed, err := Parse(sampleAHex)
	require.NoError(t, err)
	assert.True(t, d.Equal(parsed))
	assert.Equal(t, 0, d.Compare(parsed))
}

func TestReferenceOrder(t *testing.T) {
	var layout [fuzzy.SizeInBytes]byte
	layout[0], layout[1], layout[2] = 0x12, 0x34, 0x56
	fuzzy.SetBucket(layout[fuzzy.HeaderSize:], 0, 1)
	fuzzy.SetBucket(layout[fuzzy.HeaderSize:], 5, 2)
	fuzzy.SetBucket(layout[fuzzy.HeaderSize:], 127, 3)

	ref := toReference(layout)
	assert.Equal(t, byte(0x21), ref[0])
	assert.Equal(t, byte(0x43), ref[1])
	assert.Equal(t, byte(0x56), ref[2])
	assert.Equal(t, byte(0xc0), ref[fuzzy.HeaderSize], "bucket 127 leads the reference body")
	assert.Equal(t, byte(0x08), ref[fuzzy.SizeInBytes-2], "bucket 5")
	assert.Equal(t, byte(0x01), ref[fuzzy.SizeInBytes-1], "bucket 0 closes the reference body")

	assert.Equal(t, layout, fromReference(ref))
}

func TestBytesRoundTrip(t *testing.T) {
	d := hash(t, sampleC)

	raw := d.Bytes()
	require.Len(t, raw, fuzzy.SizeInBytes)
	assert.Equal(t, d.Checksum(), raw[0])
	assert.Equal(t, d.Length(), raw[1])
	assert.Equal(t, fuzzy.Quartiles(d.Q1(), d.Q2()), raw[2])
	assert.Equal(t, d.Body(), raw[fuzzy.HeaderSize:])

	back, err := Primitive{}.FromBytes(raw)
	require.NoError(t, err)
	assert.True(t, d.Equal(back))
	assert.Equal(t, d.Checksum(), back.Checksum())
	assert.Equal(t, d.Length(), back.Length())
	assert.Equal(t, d.Q1(), back.Q1())
	assert.Equal(t, d.Q2(), back.Q2())
	assert.Equal(t, d.Body(), back.Body())
}

func TestFromBytes_WrongSize(t *testing.T) {
	_, err := Primitive{}.FromBytes(make([]byte, fuzzy.SizeInBytes-1))
	assert.ErrorIs(t, err, fuzzy.ErrDigestFormat)
}

func TestParse(t *testing.T) {
	d := hash(t, sampleB)

	s := d.String()
	assert.True(t, strings.HasPrefix(s, "T1"))
	assert.Len(t, s, 2+2*fuzzy.SizeInBytes)

	back, err := Parse(s)
	require.NoError(t, err)
	assert.True(t, d.Equal(back))

	_, err = Parse("T1ZZ")
	assert.ErrorIs(t, err, fuzzy.ErrDigestFormat)
}

func TestLength(t *testing.T) {
	tests := []struct {
		n    int
		want byte
	}{
		{50, 9},
		{100, 11},
		{656, 15},
		{1000, 17},
		{5000, 26},
	}

	input := strings.Repeat(sampleC+" "+sampleA+" ", 20)
	for _, tt := range tests {
		assert.Equal(t, tt.want, hash(t, input[:tt.n]).Length(), "Length for %d bytes", tt.n)
	}
}
