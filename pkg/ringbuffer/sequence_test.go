package ringbuffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceInitialValue(t *testing.T) {
	s := NewSequence(InitialSequenceValue)
	assert.Equal(t, int64(-1), s.Get())
}

func TestSequenceSetGet(t *testing.T) {
	s := NewSequence(InitialSequenceValue)
	s.Set(41)
	assert.Equal(t, int64(41), s.Get())
	assert.Equal(t, int64(41), s.GetAcquire())
}

func TestSequenceCompareAndSwap(t *testing.T) {
	s := NewSequence(0)
	assert.True(t, s.CompareAndSwap(0, 10))
	assert.Equal(t, int64(10), s.Get())
	assert.False(t, s.CompareAndSwap(0, 20))
	assert.Equal(t, int64(10), s.Get())
}

func TestSequenceConcurrentCAS(t *testing.T) {
	s := NewSequence(InitialSequenceValue)
	const claimers = 64
	var wg sync.WaitGroup
	wg.Add(claimers)
	for i := 0; i < claimers; i++ {
		go func() {
			defer wg.Done()
			for {
				cur := s.GetAcquire()
				if s.CompareAndSwap(cur, cur+1) {
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(claimers-1), s.Get())
}

func TestMinSequence(t *testing.T) {
	assert.Equal(t, int64(7), minSequence(nil, 7))

	a, b, c := NewSequence(5), NewSequence(2), NewSequence(9)
	assert.Equal(t, int64(2), minSequence([]*Sequence{a, b, c}, 0))
}
