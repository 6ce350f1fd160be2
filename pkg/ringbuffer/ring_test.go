package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingRejectsNonPowerOfTwo(t *testing.T) {
	_, err := NewRing[int](3, nil)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = NewRing[int](0, nil)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestRingIndexWraps(t *testing.T) {
	r, err := NewRing[int](8, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), r.IndexOf(8))
	assert.Equal(t, int64(7), r.IndexOf(15))
	assert.Equal(t, int64(7), r.Mask())
}

func TestRingGetAndForEach(t *testing.T) {
	r, err := NewRing[int](4, func() int { return -1 })
	require.NoError(t, err)

	for seq := int64(0); seq < 4; seq++ {
		*r.Get(seq) = int(seq) * 10
	}

	var seen []int64
	r.ForEach(0, 3, func(seq int64, slot *int) {
		seen = append(seen, seq)
		assert.Equal(t, int(seq)*10, *slot)
	})
	assert.Equal(t, []int64{0, 1, 2, 3}, seen)
}
