package ringbuffer

import "sync"

// Sequencer is the claim/publish protocol shared by the single- and
// multi-producer implementations: it assigns producer slots and tracks
// which of them have been made visible to consumers.
type Sequencer interface {
	// Next claims the next n sequences, blocking (via the wait
	// strategy's producer-park hook) until the ring has room for them
	// without overwriting a slot no gating sequence has passed yet.
	Next(n int64) int64

	// TryNext is the non-blocking form of Next: it returns
	// ErrInsufficientCapacity instead of parking when the ring is full.
	TryNext(n int64) (int64, error)

	// Publish makes sequence seq visible to consumers.
	Publish(seq int64)

	// PublishRange makes every sequence in [lo, hi] visible to
	// consumers.
	PublishRange(lo, hi int64)

	// IsAvailable reports whether seq has been published.
	IsAvailable(seq int64) bool

	// GetHighestPublishedSequence collapses a range of claimed-but-not-
	// necessarily-individually-published sequences into the highest
	// one for which every sequence from lo up to it is available.
	GetHighestPublishedSequence(lo, available int64) int64

	// Cursor returns the sequencer's cursor: the highest published
	// sequence for a single producer, the highest claimed sequence for
	// multiple producers (IsAvailable tells what is published there).
	Cursor() *Sequence

	// AddGatingSequences registers consumer sequences a producer claim
	// must not outrun. Must be called before the first publish.
	AddGatingSequences(seqs ...*Sequence)

	// RemoveGatingSequence deregisters a previously added gating
	// sequence, typically once its owning consumer has halted.
	RemoveGatingSequence(seq *Sequence) bool

	// RemainingCapacity reports how many further sequences could be
	// claimed right now without blocking.
	RemainingCapacity() int64

	// NewBarrier builds a SequenceBarrier gated on this sequencer's
	// cursor and, additionally, on dependents (upstream consumers this
	// barrier's owner must not overtake).
	NewBarrier(dependents ...*Sequence) *SequenceBarrier
}

// gatingSequences is the mutable set of consumer sequences a sequencer
// consults to refuse wrap-around. Additions and removals happen at
// topology setup/teardown, never on the hot path, so a plain mutex is
// adequate; reads take a snapshot so a concurrent claim never observes a
// half-updated slice.
type gatingSequences struct {
	mu   sync.Mutex
	seqs []*Sequence
}

func (g *gatingSequences) add(seqs ...*Sequence) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs = append(append([]*Sequence{}, g.seqs...), seqs...)
}

func (g *gatingSequences) remove(seq *Sequence) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, s := range g.seqs {
		if s == seq {
			next := make([]*Sequence, 0, len(g.seqs)-1)
			next = append(next, g.seqs[:i]...)
			next = append(next, g.seqs[i+1:]...)
			g.seqs = next
			return true
		}
	}
	return false
}

func (g *gatingSequences) snapshot() []*Sequence {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seqs
}

func (g *gatingSequences) minimum(fallback int64) int64 {
	return minSequence(g.snapshot(), fallback)
}
