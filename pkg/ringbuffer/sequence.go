package ringbuffer

import "sync/atomic"

// InitialSequenceValue is the value a Sequence holds before anything has
// been published through it: "nothing published yet".
const InitialSequenceValue int64 = -1

// Sequence is a padded, monotonically increasing 64-bit counter shared
// across goroutines. A single mutator calls Set (or CompareAndSwap); any
// number of observers call Get. Padding on both sides of the value keeps
// it off whatever cache line its neighbors in a containing struct or
// slice land on. Under contention this is the difference between one
// cache-coherency bounce per publish and dozens.
//
// Go's runtime gives atomic loads/stores sequential consistency, which is
// strictly stronger than the acquire/release pairing this type's contract
// calls for; Get and GetAcquire are therefore the same operation under the
// hood; the distinction is kept in the API so call sites document which
// guarantee they actually depend on.
type Sequence struct {
	_     [7]int64 // padding, prevents false sharing with whatever precedes this field
	value atomic.Int64
	_     [7]int64 // padding, prevents false sharing with whatever follows this field
}

// NewSequence returns a Sequence initialized to initial.
func NewSequence(initial int64) *Sequence {
	s := &Sequence{}
	s.value.Store(initial)
	return s
}

// Get is a plain load. Only the owner of the sequence (the single
// producer, or a processor reading its own cursor) may rely on this
// being up to date without an intervening acquire from another writer.
func (s *Sequence) Get() int64 {
	return s.value.Load()
}

// GetAcquire is an acquire-ordered load. Use this when observing a
// sequence owned by another goroutine: a consumer reading the
// sequencer's cursor, or a producer reading a gating sequence.
func (s *Sequence) GetAcquire() int64 {
	return s.value.Load()
}

// Set is a release-ordered store. Everything the caller wrote before
// calling Set (slot fields, in particular) becomes visible to any
// goroutine that subsequently observes the new value via GetAcquire.
func (s *Sequence) Set(v int64) {
	s.value.Store(v)
}

// CompareAndSwap atomically sets the sequence to new if it currently
// holds old, observing acquire on load and release on a successful
// store. Used by the multi-producer sequencer to claim a range of
// sequences without a lock.
func (s *Sequence) CompareAndSwap(old, new int64) bool {
	return s.value.CompareAndSwap(old, new)
}

// minSequence returns the smallest value among seqs, or fallback if
// seqs is empty.
func minSequence(seqs []*Sequence, fallback int64) int64 {
	if len(seqs) == 0 {
		return fallback
	}
	min := seqs[0].GetAcquire()
	for _, s := range seqs[1:] {
		if v := s.GetAcquire(); v < min {
			min = v
		}
	}
	return min
}
