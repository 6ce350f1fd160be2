package ringbuffer

// SingleProducerSequencer is the claim/publish protocol for exactly one
// producer goroutine. It trades the multi-producer sequencer's CAS loop
// and availability buffer for a plain owned counter: correct only so
// long as a single goroutine ever calls Next/TryNext/Publish, which is a
// contract the type cannot enforce and does not try to. A second
// producer calling in is a programmer error, not a runtime-detected one.
type SingleProducerSequencer struct {
	size int64
	wait WaitStrategy

	cursor *Sequence

	// nextValue and cachedGating are owned by the single producer and
	// never touched by another goroutine, so they need no atomics.
	nextValue    int64
	cachedGating int64

	gating gatingSequences
}

// NewSingleProducerSequencer builds a SP sequencer over a ring of the
// given size (must match the ring's capacity) using wait as both the
// producer-park and signalling strategy.
func NewSingleProducerSequencer(size int64, wait WaitStrategy) *SingleProducerSequencer {
	return &SingleProducerSequencer{
		size:         size,
		wait:         wait,
		cursor:       NewSequence(InitialSequenceValue),
		nextValue:    InitialSequenceValue,
		cachedGating: InitialSequenceValue,
	}
}

func (s *SingleProducerSequencer) noAlert() bool { return false }

// gatedMinimum returns the minimum of the currently registered gating
// sequences, or 0 with unbounded set (never blocks) when no consumer has
// been registered yet.
func (s *SingleProducerSequencer) gatedMinimum() (gating []*Sequence, min int64, unbounded bool) {
	gating = s.gating.snapshot()
	if len(gating) == 0 {
		return gating, 0, true
	}
	return gating, minSequence(gating, InitialSequenceValue), false
}

func (s *SingleProducerSequencer) Next(n int64) int64 {
	next := s.nextValue + n
	wrapPoint := next - s.size

	if wrapPoint > s.cachedGating {
		for {
			gating, min, unbounded := s.gatedMinimum()
			if unbounded {
				s.cachedGating = next
				break
			}
			if wrapPoint <= min {
				s.cachedGating = min
				break
			}
			s.wait.WaitFor(wrapPoint, nil, gating, s.noAlert)
		}
	}

	s.nextValue = next
	return next
}

func (s *SingleProducerSequencer) TryNext(n int64) (int64, error) {
	next := s.nextValue + n
	wrapPoint := next - s.size
	_, min, unbounded := s.gatedMinimum()
	if !unbounded && wrapPoint > min {
		return InitialSequenceValue, ErrInsufficientCapacity
	}
	if !unbounded {
		s.cachedGating = min
	}
	s.nextValue = next
	return next, nil
}

func (s *SingleProducerSequencer) Publish(seq int64) {
	s.cursor.Set(seq)
	s.wait.SignalAll()
}

func (s *SingleProducerSequencer) PublishRange(lo, hi int64) {
	s.cursor.Set(hi)
	s.wait.SignalAll()
}

func (s *SingleProducerSequencer) IsAvailable(seq int64) bool {
	return seq <= s.cursor.GetAcquire()
}

func (s *SingleProducerSequencer) GetHighestPublishedSequence(lo, available int64) int64 {
	return available
}

func (s *SingleProducerSequencer) Cursor() *Sequence { return s.cursor }

func (s *SingleProducerSequencer) AddGatingSequences(seqs ...*Sequence) {
	s.gating.add(seqs...)
}

func (s *SingleProducerSequencer) RemoveGatingSequence(seq *Sequence) bool {
	return s.gating.remove(seq)
}

func (s *SingleProducerSequencer) RemainingCapacity() int64 {
	_, min, unbounded := s.gatedMinimum()
	if unbounded {
		return s.size
	}
	return s.size - (s.nextValue - min)
}

func (s *SingleProducerSequencer) NewBarrier(dependents ...*Sequence) *SequenceBarrier {
	return newSequenceBarrier(s, s.cursor, dependents, s.wait)
}
