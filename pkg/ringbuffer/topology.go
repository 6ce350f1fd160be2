package ringbuffer

import (
	"sync"

	"github.com/go-arcade/disruptor/pkg/log"
	"github.com/go-arcade/disruptor/pkg/safe"
	"github.com/go-arcade/disruptor/pkg/shutdown"
)

// Processor is the subset of BatchEventProcessor / AsyncBatchEventProcessor
// a Topology needs to manage lifecycle: its gating sequence, and the
// ability to halt it and ask whether it is still running.
type Processor interface {
	Sequence() *Sequence
	Halt()
	IsRunning() bool
}

// Topology is the glue around a ring and its sequencer: registering
// gating sequences, building barriers, and running/halting the
// processors that read from it. It owns no algorithm of its own: every
// method delegates to the Sequencer or to the registered processors, but
// it is the one place a caller assembles a full producer-to-consumer
// pipeline and shuts it down as a unit.
type Topology[T any] struct {
	Ring      *Ring[T]
	Sequencer Sequencer

	shutdown *shutdown.Manager

	mu         sync.Mutex
	processors []Processor
	wg         sync.WaitGroup
}

// NewTopology builds a Topology over ring and sequencer. sequencer must
// have been constructed over a ring of the same size.
func NewTopology[T any](ring *Ring[T], sequencer Sequencer) *Topology[T] {
	return &Topology[T]{
		Ring:      ring,
		Sequencer: sequencer,
		shutdown:  shutdown.NewManager(),
	}
}

// NewBarrier builds a SequenceBarrier gated on the sequencer's cursor and
// the given upstream dependents.
func (t *Topology[T]) NewBarrier(dependents ...*Sequence) *SequenceBarrier {
	return t.Sequencer.NewBarrier(dependents...)
}

// AddGatingSequences registers sequences (typically a processor's own
// cursor) a producer claim must not outrun. Must happen before the first
// publish.
func (t *Topology[T]) AddGatingSequences(seqs ...*Sequence) {
	t.Sequencer.AddGatingSequences(seqs...)
}

// RemoveGatingSequence deregisters a sequence, typically once its owning
// processor has halted and drained.
func (t *Topology[T]) RemoveGatingSequence(seq *Sequence) bool {
	return t.Sequencer.RemoveGatingSequence(seq)
}

// Next claims n sequences for a producer.
func (t *Topology[T]) Next(n int64) int64 { return t.Sequencer.Next(n) }

// TryNext is the non-blocking form of Next.
func (t *Topology[T]) TryNext(n int64) (int64, error) { return t.Sequencer.TryNext(n) }

// Publish makes sequence seq visible to consumers.
func (t *Topology[T]) Publish(seq int64) { t.Sequencer.Publish(seq) }

// PublishRange makes every sequence in [lo, hi] visible to consumers.
func (t *Topology[T]) PublishRange(lo, hi int64) { t.Sequencer.PublishRange(lo, hi) }

// RemainingCapacity reports how many further sequences could be claimed
// right now without blocking.
func (t *Topology[T]) RemainingCapacity() int64 { return t.Sequencer.RemainingCapacity() }

// Cursor returns the sequencer's cursor (see Sequencer.Cursor).
func (t *Topology[T]) Cursor() *Sequence { return t.Sequencer.Cursor() }

// RingCapacity returns the fixed slot count of the underlying ring.
func (t *Topology[T]) RingCapacity() int64 { return t.Ring.Size() }

// Processors returns a snapshot of the processors currently registered
// via Start. Safe to call concurrently with Start/Halt.
func (t *Topology[T]) Processors() []Processor {
	t.mu.Lock()
	defer t.mu.Unlock()
	procs := make([]Processor, len(t.processors))
	copy(procs, t.processors)
	return procs
}

// Start registers proc (for Halt/IsRunning bookkeeping) and launches run
// on a panic-recovering goroutine tracked by the topology's WaitGroup.
// Callers pass processor.Run for a BatchEventProcessor, or a closure
// over processor.RunContext(ctx) for an AsyncBatchEventProcessor.
func (t *Topology[T]) Start(proc Processor, run func() error) {
	t.mu.Lock()
	t.processors = append(t.processors, proc)
	t.mu.Unlock()

	t.wg.Add(1)
	safe.Go(func() {
		defer t.wg.Done()
		if err := run(); err != nil {
			log.Errorw("processor run loop exited with error", "error", err)
		}
	})
}

// Halt stops every registered processor and blocks until their run
// loops have returned. Idempotent: a second call is a no-op and returns
// false.
func (t *Topology[T]) Halt() bool {
	if !t.shutdown.Shutdown() {
		return false
	}

	t.mu.Lock()
	procs := make([]Processor, len(t.processors))
	copy(procs, t.processors)
	t.mu.Unlock()

	for _, p := range procs {
		p.Halt()
	}
	t.wg.Wait()
	return true
}

// Wait returns a channel that receives one value once Halt has been
// called.
func (t *Topology[T]) Wait() <-chan struct{} {
	return t.shutdown.Wait()
}

// IsShuttingDown reports whether Halt has been called.
func (t *Topology[T]) IsShuttingDown() bool {
	return t.shutdown.IsShuttingDown()
}
