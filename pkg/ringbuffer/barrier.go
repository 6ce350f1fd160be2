package ringbuffer

import "sync/atomic"

// SequenceBarrier is the consumer-side wait point: it combines the
// sequencer's cursor with zero or more upstream consumer sequences a
// processor must not overtake, and lets the processor block until new
// work is safe to read.
type SequenceBarrier struct {
	sequencer  Sequencer
	cursor     *Sequence
	dependents []*Sequence
	wait       WaitStrategy
	alerted    atomic.Bool
}

func newSequenceBarrier(sequencer Sequencer, cursor *Sequence, dependents []*Sequence, wait WaitStrategy) *SequenceBarrier {
	return &SequenceBarrier{
		sequencer:  sequencer,
		cursor:     cursor,
		dependents: dependents,
		wait:       wait,
	}
}

// WaitFor blocks until sequence n is safe to read, returning the highest
// contiguously available sequence (which may be > n). It returns ErrAlert
// if the barrier was cancelled while waiting, or ErrWaitTimeout if the
// wait strategy is timeout-aware and its deadline elapsed first.
func (b *SequenceBarrier) WaitFor(n int64) (int64, error) {
	if b.IsAlerted() {
		return InitialSequenceValue, ErrAlert
	}

	available, err := b.wait.WaitFor(n, b.cursor, b.dependents, b.IsAlerted)
	if err != nil {
		return available, err
	}

	if available < n {
		// The cursor (MP) may have advanced past n while the slots
		// between n and available are still being individually
		// published; the processor must not consume them yet.
		return available, nil
	}

	return b.sequencer.GetHighestPublishedSequence(n, available), nil
}

// Cancel marks the barrier alerted and wakes anything parked in WaitFor.
// Idempotent.
func (b *SequenceBarrier) Cancel() {
	b.alerted.Store(true)
	b.wait.SignalAll()
}

// ResetProcessing clears the alerted flag. Called by a processor before
// it (re)enters its run loop.
func (b *SequenceBarrier) ResetProcessing() {
	b.alerted.Store(false)
}

// IsAlerted reports whether Cancel has been called since the last
// ResetProcessing.
func (b *SequenceBarrier) IsAlerted() bool {
	return b.alerted.Load()
}

// Cursor returns the sequence the barrier is ultimately gated on.
func (b *SequenceBarrier) Cursor() *Sequence {
	return b.cursor
}
