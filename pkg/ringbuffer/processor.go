package ringbuffer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// EventHandler is the user-supplied callback set a BatchEventProcessor
// drives. OnBatch may return an error; everything else about the
// processor's exception routing flows from what the configured
// ExceptionHandler does with that error (see HandleEventException).
type EventHandler[T any] interface {
	OnStart() error
	OnShutdown() error
	OnBatch(batch []*T, startingSequence int64) error
	OnTimeout(sequence int64) error
}

// SequenceReporter is an optional EventHandler extension letting a
// handler learn its own committed sequence for watermarking. It is
// invoked only after the processor has advanced and published its
// sequence, never before. Calling it earlier would let a handler that
// also tracks sequence state double-count a batch that later fails.
type SequenceReporter interface {
	OnSequenceReported(sequence int64)
}

const (
	stateIdle int32 = iota
	stateRunning
	stateHalted
)

// BatchEventProcessor is the consumer run loop: it owns a Sequence (its
// consumer cursor), polls a SequenceBarrier for newly available work,
// delivers it to an EventHandler in batches capped by a
// BatchSizeLimiter, and routes handler failures through an
// ExceptionHandler. One instance is driven by exactly one goroutine at a
// time; Run must not be called again until a prior Run has returned.
type BatchEventProcessor[T any] struct {
	sequence         *Sequence
	barrier          *SequenceBarrier
	ring             *Ring[T]
	handler          EventHandler[T]
	exceptionHandler ExceptionHandler[T]
	limiter          *BatchSizeLimiter

	state atomic.Int32

	startedMu sync.Mutex
	started   chan struct{}

	scratch []*T
}

// NewBatchEventProcessor wires a processor over ring, gated by barrier,
// delivering to handler with the given exception policy and batch cap.
func NewBatchEventProcessor[T any](
	ring *Ring[T],
	barrier *SequenceBarrier,
	handler EventHandler[T],
	exceptionHandler ExceptionHandler[T],
	limiter *BatchSizeLimiter,
) *BatchEventProcessor[T] {
	if limiter == nil {
		limiter = NewBatchSizeLimiter(ring.Size())
	}
	p := &BatchEventProcessor[T]{
		sequence:         NewSequence(InitialSequenceValue),
		barrier:          barrier,
		ring:             ring,
		handler:          handler,
		exceptionHandler: exceptionHandler,
		limiter:          limiter,
		started:          make(chan struct{}),
	}
	return p
}

// Sequence returns the processor's consumer cursor, suitable for
// registration as a gating sequence on the sequencer and as a dependent
// on any downstream barrier.
func (p *BatchEventProcessor[T]) Sequence() *Sequence {
	return p.sequence
}

// IsRunning reports whether the processor's run loop is currently
// active.
func (p *BatchEventProcessor[T]) IsRunning() bool {
	return p.state.Load() == stateRunning
}

// Halt requests the processor stop. It stores the halted run state and
// cancels the barrier so a parked Run wakes promptly. Idempotent and
// non-blocking; if a handler is mid-OnBatch, halt takes effect only once
// that call returns.
func (p *BatchEventProcessor[T]) Halt() {
	p.state.Store(stateHalted)
	p.barrier.Cancel()
}

// WaitUntilStarted blocks until a concurrent Run has reached its loop, or
// timeout elapses.
func (p *BatchEventProcessor[T]) WaitUntilStarted(timeout time.Duration) error {
	p.startedMu.Lock()
	ch := p.started
	p.startedMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		return errors.New("ringbuffer: timed out waiting for processor to start")
	}
}

// Run drives the processor's loop until Halt is called, or until the
// handler panics with something other than a fatal event exception
// (which is a bug and is not recovered). Run blocks; callers typically
// invoke it via go p.Run() or Topology.Start(p, p.Run).
func (p *BatchEventProcessor[T]) Run() error {
	if !p.state.CompareAndSwap(stateIdle, stateRunning) {
		return ErrAlreadyRunning
	}

	p.barrier.ResetProcessing()
	if err := p.handler.OnStart(); err != nil {
		p.exceptionHandler.HandleOnStartException(err)
	}

	p.startedMu.Lock()
	close(p.started)
	p.startedMu.Unlock()

	p.loop()

	if err := p.handler.OnShutdown(); err != nil {
		p.exceptionHandler.HandleOnShutdownException(err)
	}
	p.startedMu.Lock()
	p.started = make(chan struct{})
	p.startedMu.Unlock()
	p.state.Store(stateIdle)
	return nil
}

func (p *BatchEventProcessor[T]) loop() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*ErrFatalEvent); ok {
				// Default fatal policy: the failed batch's sequence was
				// never committed, so the processor halts with
				// p.sequence left at the last successfully delivered
				// batch.
				return
			}
			panic(r)
		}
	}()

	next := p.sequence.Get() + 1
	for {
		available, err := p.barrier.WaitFor(next)

		switch {
		case errors.Is(err, ErrWaitTimeout):
			if herr := p.handler.OnTimeout(p.sequence.Get()); herr != nil {
				p.exceptionHandler.HandleOnTimeoutException(herr, p.sequence.Get())
			}
			continue
		case errors.Is(err, ErrAlert):
			if p.state.Load() != stateRunning {
				return
			}
			p.barrier.ResetProcessing()
			continue
		}

		available = p.limiter.Cap(available, next)
		if available < next {
			continue
		}

		batch := p.collectBatch(next, available)
		if err := p.handler.OnBatch(batch, next); err != nil {
			// May panic for the default fatal policy; recovered above.
			events := make([]T, len(batch))
			for i, e := range batch {
				events[i] = *e
			}
			p.exceptionHandler.HandleEventException(err, next, events)
		}

		next = available + 1
		p.sequence.Set(available)
		if sr, ok := p.handler.(SequenceReporter); ok {
			sr.OnSequenceReported(available)
		}
	}
}

// collectBatch returns a reused scratch slice of pointers into the
// ring's own slot storage for [lo, hi]: no copy, no allocation once the
// scratch slice has grown to its steady-state size.
func (p *BatchEventProcessor[T]) collectBatch(lo, hi int64) []*T {
	n := int(hi - lo + 1)
	if cap(p.scratch) < n {
		p.scratch = make([]*T, n)
	}
	batch := p.scratch[:n]
	p.ring.ForEach(lo, hi, func(seq int64, slot *T) {
		batch[seq-lo] = slot
	})
	return batch
}
