package linehash

import (
	"testing"

	"github.com/bimmerbailey/laxa/internal/fuzzy/fuzzytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	p := fuzzytest.Primitive{}
	hash := func(s string) *LineHash {
		h, err := FromText(p, s)
		require.NoError(t, err)
		return h
	}

	x := NewIndex()
	assert.True(t, x.Add(hash("disk usage at 91%")))
	assert.False(t, x.Add(hash("disk usage at 91%")))
	assert.True(t, x.Add(hash("disk usage at 92%")))
	assert.False(t, x.Add(hash("disk usage at 91%")))

	assert.Equal(t, 2, x.Len())
	assert.Equal(t, 3, x.Count(hash("disk usage at 91%")))
	assert.Equal(t, 1, x.Count(hash("disk usage at 92%")))
	assert.Equal(t, 0, x.Count(hash("disk usage at 93%")))
}

func TestIndex_SameBodyDifferentHeader(t *testing.T) {
	p := fuzzytest.Primitive{}
	a := &LineHash{digest: p.New(10, 1, 1, 2, 2)}
	a.body = a.digest.Body()
	b := &LineHash{digest: p.New(11, 1, 1, 2, 2)}
	b.body = b.digest.Body()
	require.Equal(t, a.Sum64(), b.Sum64(), "bodies match so the keys collide")

	x := NewIndex()
	assert.True(t, x.Add(a))
	assert.True(t, x.Add(b), "colliding keys are separated by Equal")
	assert.Equal(t, 2, x.Len())
}

func TestIndex_Nil(t *testing.T) {
	h, err := FromText(fuzzytest.Primitive{}, "disk usage at 91%")
	require.NoError(t, err)

	x := NewIndex()
	assert.Equal(t, 0, x.Count(nil))
	assert.True(t, x.Add(nil))
	assert.False(t, x.Add(nil))
	assert.True(t, x.Add(h))

	assert.Equal(t, 2, x.Count(nil))
	assert.Equal(t, 1, x.Count(h))
	assert.Equal(t, 2, x.Len())
}
