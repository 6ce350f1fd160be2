package ringbuffer

import (
	"context"
	"sync/atomic"
)

// sumHandler is a minimal EventHandler[int] that accumulates every
// delivered value into sum and, optionally, fails deterministically on a
// chosen sequence to exercise the exception-handling scenarios.
type sumHandler struct {
	sum        atomic.Int64
	batches    atomic.Int64
	timeouts   atomic.Int64
	failOnSeq  int64 // -1 disables
	failed     atomic.Bool
}

func (h *sumHandler) OnStart() error    { return nil }
func (h *sumHandler) OnShutdown() error { return nil }

func (h *sumHandler) OnBatch(batch []*int, startingSequence int64) error {
	h.batches.Add(1)
	for i, v := range batch {
		seq := startingSequence + int64(i)
		if h.failOnSeq >= 0 && seq == h.failOnSeq && !h.failed.Swap(true) {
			return errFailingBatch
		}
		h.sum.Add(int64(*v))
	}
	return nil
}

func (h *sumHandler) OnTimeout(sequence int64) error {
	h.timeouts.Add(1)
	return nil
}

var errFailingBatch = &testBatchError{}

type testBatchError struct{}

func (e *testBatchError) Error() string { return "deliberate test failure" }

// asyncSumHandler is the AsyncEventHandler[int] counterpart of sumHandler.
type asyncSumHandler struct {
	sum atomic.Int64
}

func (h *asyncSumHandler) OnStart(ctx context.Context) error    { return nil }
func (h *asyncSumHandler) OnShutdown(ctx context.Context) error { return nil }

func (h *asyncSumHandler) OnBatch(ctx context.Context, batch []*int, startingSequence int64) error {
	for _, v := range batch {
		h.sum.Add(int64(*v))
	}
	return nil
}

func (h *asyncSumHandler) OnTimeout(ctx context.Context, sequence int64) error { return nil }

func intSlot() int { return 0 }
