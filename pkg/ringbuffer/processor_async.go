package ringbuffer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// AsyncEventHandler is the context-aware counterpart to EventHandler.
// Go has no native async/await, so "async" here means: the handler may
// itself suspend on channels, I/O, or further goroutines using ctx, and
// the processor cooperates with external cancellation by watching
// ctx.Done() instead of only a Halt call. The single-task invariant
// still holds: one AsyncBatchEventProcessor's logical run loop is never
// re-entered concurrently with itself.
type AsyncEventHandler[T any] interface {
	OnStart(ctx context.Context) error
	OnShutdown(ctx context.Context) error
	OnBatch(ctx context.Context, batch []*T, startingSequence int64) error
	OnTimeout(ctx context.Context, sequence int64) error
}

// AsyncBatchEventProcessor mirrors BatchEventProcessor's contract but
// passes an explicit context.Context to every handler call. The barrier
// wait itself takes no context: a watcher goroutine turns ctx
// cancellation into Halt, which cancels the barrier. RunContext's caller is expected to have derived
// ctx from whatever governs the topology's lifetime; cancelling it is
// equivalent to calling Halt.
type AsyncBatchEventProcessor[T any] struct {
	sequence         *Sequence
	barrier          *SequenceBarrier
	ring             *Ring[T]
	handler          AsyncEventHandler[T]
	exceptionHandler ExceptionHandler[T]
	limiter          *BatchSizeLimiter

	state atomic.Int32

	startedMu sync.Mutex
	started   chan struct{}

	scratch []*T
}

func NewAsyncBatchEventProcessor[T any](
	ring *Ring[T],
	barrier *SequenceBarrier,
	handler AsyncEventHandler[T],
	exceptionHandler ExceptionHandler[T],
	limiter *BatchSizeLimiter,
) *AsyncBatchEventProcessor[T] {
	if limiter == nil {
		limiter = NewBatchSizeLimiter(ring.Size())
	}
	p := &AsyncBatchEventProcessor[T]{
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

func (p *AsyncBatchEventProcessor[T]) Sequence() *Sequence { return p.sequence }

func (p *AsyncBatchEventProcessor[T]) IsRunning() bool {
	return p.state.Load() == stateRunning
}

func (p *AsyncBatchEventProcessor[T]) Halt() {
	p.state.Store(stateHalted)
	p.barrier.Cancel()
}

func (p *AsyncBatchEventProcessor[T]) WaitUntilStarted(timeout time.Duration) error {
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

// RunContext drives the processor's loop until ctx is cancelled or Halt
// is called, whichever comes first. It blocks; the caller decides
// whether to run it inline or launch it as its own goroutine/task.
func (p *AsyncBatchEventProcessor[T]) RunContext(ctx context.Context) error {
	if !p.state.CompareAndSwap(stateIdle, stateRunning) {
		return ErrAlreadyRunning
	}

	watcherDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.Halt()
		case <-watcherDone:
		}
	}()
	defer close(watcherDone)

	p.barrier.ResetProcessing()
	if err := p.handler.OnStart(ctx); err != nil {
		p.exceptionHandler.HandleOnStartException(err)
	}

	p.startedMu.Lock()
	close(p.started)
	p.startedMu.Unlock()

	p.loop(ctx)

	if err := p.handler.OnShutdown(ctx); err != nil {
		p.exceptionHandler.HandleOnShutdownException(err)
	}
	p.startedMu.Lock()
	p.started = make(chan struct{})
	p.startedMu.Unlock()
	p.state.Store(stateIdle)
	return nil
}

func (p *AsyncBatchEventProcessor[T]) loop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*ErrFatalEvent); ok {
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
			if herr := p.handler.OnTimeout(ctx, p.sequence.Get()); herr != nil {
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
		if err := p.handler.OnBatch(ctx, batch, next); err != nil {
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

func (p *AsyncBatchEventProcessor[T]) collectBatch(lo, hi int64) []*T {
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
