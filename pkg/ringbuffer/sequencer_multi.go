package ringbuffer

import (
	"math/bits"
	"sync/atomic"
)

// MultiProducerSequencer is the claim/publish protocol for any number of
// concurrent producer goroutines. A CAS loop on the cursor serializes
// claims; a per-slot availability buffer recording each publish's wrap
// count is the only safe witness that a producer which claimed an
// earlier sequence has actually finished writing its slot, since CAS
// order on the cursor and completion order of the writes are not the
// same thing once more than one producer is involved.
type MultiProducerSequencer struct {
	size      int64
	indexMask int64
	indexShift uint

	wait WaitStrategy

	cursor       *Sequence
	cachedGating *Sequence

	// available[i] holds the wrap count (seq >> indexShift) of the most
	// recently published sequence whose slot index is i. A slot is
	// available iff its entry equals the wrap count of the sequence
	// being queried: storing the wrap count instead of a boolean means
	// no reset is needed on wraparound and there is no ABA risk across
	// wraps.
	available []atomic.Int64

	gating gatingSequences
}

// NewMultiProducerSequencer builds an MP sequencer over a ring of the
// given size (must match the ring's capacity and be a power of two).
func NewMultiProducerSequencer(size int64, wait WaitStrategy) *MultiProducerSequencer {
	available := make([]atomic.Int64, size)
	for i := range available {
		available[i].Store(InitialSequenceValue)
	}
	return &MultiProducerSequencer{
		size:       size,
		indexMask:  size - 1,
		indexShift: uint(bits.TrailingZeros64(uint64(size))),
		wait:       wait,
		cursor:     NewSequence(InitialSequenceValue),
		cachedGating: NewSequence(InitialSequenceValue),
		available:  available,
	}
}

func (s *MultiProducerSequencer) noAlert() bool { return false }

func (s *MultiProducerSequencer) gatedMinimum(current int64) (gating []*Sequence, min int64, unbounded bool) {
	gating = s.gating.snapshot()
	if len(gating) == 0 {
		return gating, 0, true
	}
	return gating, minSequence(gating, current), false
}

func (s *MultiProducerSequencer) Next(n int64) int64 {
	for {
		current := s.cursor.GetAcquire()
		next := current + n
		wrapPoint := next - s.size
		cached := s.cachedGating.Get()

		if wrapPoint > cached || cached > current {
			gating, min, unbounded := s.gatedMinimum(current)
			if !unbounded && wrapPoint > min {
				s.wait.WaitFor(wrapPoint, nil, gating, s.noAlert)
				continue
			}
			if unbounded {
				s.cachedGating.Set(current)
			} else {
				s.cachedGating.Set(min)
			}
		}

		if s.cursor.CompareAndSwap(current, next) {
			return next
		}
	}
}

func (s *MultiProducerSequencer) TryNext(n int64) (int64, error) {
	for {
		current := s.cursor.GetAcquire()
		next := current + n
		wrapPoint := next - s.size

		_, min, unbounded := s.gatedMinimum(current)
		if !unbounded && wrapPoint > min {
			return InitialSequenceValue, ErrInsufficientCapacity
		}

		if s.cursor.CompareAndSwap(current, next) {
			return next, nil
		}
	}
}

func (s *MultiProducerSequencer) setAvailable(seq int64) {
	idx := seq & s.indexMask
	s.available[idx].Store(seq >> s.indexShift)
}

func (s *MultiProducerSequencer) Publish(seq int64) {
	s.setAvailable(seq)
	s.wait.SignalAll()
}

func (s *MultiProducerSequencer) PublishRange(lo, hi int64) {
	for seq := lo; seq <= hi; seq++ {
		s.setAvailable(seq)
	}
	s.wait.SignalAll()
}

func (s *MultiProducerSequencer) IsAvailable(seq int64) bool {
	idx := seq & s.indexMask
	return s.available[idx].Load() == seq>>s.indexShift
}

func (s *MultiProducerSequencer) GetHighestPublishedSequence(lo, available int64) int64 {
	for seq := lo; seq <= available; seq++ {
		if !s.IsAvailable(seq) {
			return seq - 1
		}
	}
	return available
}

func (s *MultiProducerSequencer) Cursor() *Sequence { return s.cursor }

func (s *MultiProducerSequencer) AddGatingSequences(seqs ...*Sequence) {
	s.gating.add(seqs...)
}

func (s *MultiProducerSequencer) RemoveGatingSequence(seq *Sequence) bool {
	return s.gating.remove(seq)
}

func (s *MultiProducerSequencer) RemainingCapacity() int64 {
	current := s.cursor.GetAcquire()
	_, min, unbounded := s.gatedMinimum(current)
	if unbounded {
		return s.size
	}
	return s.size - (current - min)
}

func (s *MultiProducerSequencer) NewBarrier(dependents ...*Sequence) *SequenceBarrier {
	return newSequenceBarrier(s, s.cursor, dependents, s.wait)
}
