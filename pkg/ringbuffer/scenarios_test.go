package ringbuffer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioFatalHandlerHaltsOnException is end-to-end scenario 5 with
// the default fatal policy: the processor halts, and its sequence stops
// one short of the failing one.
func TestScenarioFatalHandlerHaltsOnException(t *testing.T) {
	ring, err := NewRing[int](16, intSlot)
	require.NoError(t, err)
	sequencer := NewSingleProducerSequencer(16, NewYieldingWaitStrategy())
	handler := &sumHandler{failOnSeq: 5}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), NewBatchSizeLimiter(1))
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	for i := int64(0); i < 10; i++ {
		seq := sequencer.Next(1)
		*ring.Get(seq) = 1
		sequencer.Publish(seq)
	}

	require.Eventually(t, func() bool { return !processor.IsRunning() }, time.Second, time.Millisecond)
	assert.Equal(t, int64(4), processor.Sequence().Get())
}

// TestScenarioSwallowingHandlerContinues is end-to-end scenario 5 with a
// swallowing handler: the processor keeps running and its sequence
// reaches the last published value.
func TestScenarioSwallowingHandlerContinues(t *testing.T) {
	ring, err := NewRing[int](16, intSlot)
	require.NoError(t, err)
	sequencer := NewSingleProducerSequencer(16, NewYieldingWaitStrategy())
	handler := &sumHandler{failOnSeq: 5}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewSwallowingExceptionHandler[int](nil), NewBatchSizeLimiter(1))
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	for i := int64(0); i < 10; i++ {
		seq := sequencer.Next(1)
		*ring.Get(seq) = 1
		sequencer.Publish(seq)
	}

	require.Eventually(t, func() bool { return processor.Sequence().Get() == 9 }, time.Second, time.Millisecond)
	assert.True(t, processor.IsRunning())
	assert.Equal(t, int64(9), handler.sum.Load()) // every value is 1 except the swallowed failure at seq 5

	processor.Halt()
}

// TestScenarioTimeoutWithNoPublishes is end-to-end scenario 4: with
// nothing published, the consumer receives onTimeout at least once
// within 2x the configured timeout, and OnBatch is never called.
func TestScenarioTimeoutWithNoPublishes(t *testing.T) {
	ring, err := NewRing[int](8, intSlot)
	require.NoError(t, err)
	sequencer := NewSingleProducerSequencer(8, NewTimeoutBlockingWaitStrategy(10*time.Millisecond))
	handler := &sumHandler{failOnSeq: -1}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), nil)
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	require.Eventually(t, func() bool { return handler.timeouts.Load() >= 1 }, 20*time.Millisecond, time.Millisecond)
	assert.Equal(t, int64(0), handler.batches.Load())

	processor.Halt()
}

// TestScenarioSlowConsumerAppliesBackpressure is end-to-end scenario 3:
// ring size 4, one producer publishing 40 events, a slow consumer gating
// the producer's Next. No wrap-over corruption is observed (every
// delivered value matches its sequence) and all 40 events are delivered.
func TestScenarioSlowConsumerAppliesBackpressure(t *testing.T) {
	ring, err := NewRing[int](4, intSlot)
	require.NoError(t, err)
	sequencer := NewSingleProducerSequencer(4, NewYieldingWaitStrategy())

	var delivered []int64
	handler := &recordingHandler{onBatch: func(batch []*int, start int64) error {
		for i, v := range batch {
			seq := start + int64(i)
			if int64(*v) != seq {
				t.Fatalf("slot corruption: sequence %d held value %d", seq, *v)
			}
			delivered = append(delivered, seq)
		}
		time.Sleep(2 * time.Millisecond)
		return nil
	}}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), nil)
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	const total = 40
	for i := int64(0); i < total; i++ {
		seq := sequencer.Next(1)
		*ring.Get(seq) = int(seq)
		sequencer.Publish(seq)
	}

	require.Eventually(t, func() bool { return processor.Sequence().Get() == total-1 }, 2*time.Second, time.Millisecond)
	assert.Len(t, delivered, total)

	processor.Halt()
}

// TestScenarioMultiProducerNoLoss is a scaled-down version of end-to-end
// scenario 2: several producers each publish a fixed batch of events, a
// single consumer sums them, and no duplicate sequences are observed.
func TestScenarioMultiProducerNoLoss(t *testing.T) {
	const (
		producers     = 3
		perProducer   = 5000
		ringSize      = 1024
	)

	ring, err := NewRing[int](ringSize, intSlot)
	require.NoError(t, err)
	sequencer := NewMultiProducerSequencer(ringSize, NewYieldingWaitStrategy())
	handler := &sumHandler{failOnSeq: -1}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), nil)
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	done := make(chan struct{})
	for p := 0; p < producers; p++ {
		go func() {
			for i := 0; i < perProducer; i++ {
				seq := sequencer.Next(1)
				*ring.Get(seq) = 1
				sequencer.Publish(seq)
			}
			done <- struct{}{}
		}()
	}
	for p := 0; p < producers; p++ {
		<-done
	}

	const total = producers * perProducer
	require.Eventually(t, func() bool { return processor.Sequence().Get() == total-1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, int64(total), handler.sum.Load())
	assert.Equal(t, int64(total-1), sequencer.Cursor().Get())

	processor.Halt()
}

// TestAsyncProcessorHaltedByContextCancellation exercises the async
// variant's context-driven cancellation path.
func TestAsyncProcessorHaltedByContextCancellation(t *testing.T) {
	ring, err := NewRing[int](8, intSlot)
	require.NoError(t, err)
	sequencer := NewSingleProducerSequencer(8, NewBlockingWaitStrategy())
	handler := &asyncSumHandler{}
	processor := NewAsyncBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), nil)
	sequencer.AddGatingSequences(processor.Sequence())

	ctx, cancel := context.WithCancel(context.Background())
	go processor.RunContext(ctx)
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	seq := sequencer.Next(1)
	*ring.Get(seq) = 7
	sequencer.Publish(seq)

	require.Eventually(t, func() bool { return processor.Sequence().Get() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(7), handler.sum.Load())

	cancel()
	require.Eventually(t, func() bool { return !processor.IsRunning() }, time.Second, time.Millisecond)
}

// recordingHandler is an EventHandler[int] that delegates OnBatch to a
// closure, for scenarios needing to inspect the batch contents directly.
type recordingHandler struct {
	onBatch func(batch []*int, startingSequence int64) error
}

func (h *recordingHandler) OnStart() error    { return nil }
func (h *recordingHandler) OnShutdown() error { return nil }
func (h *recordingHandler) OnBatch(batch []*int, startingSequence int64) error {
	return h.onBatch(batch, startingSequence)
}
func (h *recordingHandler) OnTimeout(sequence int64) error { return nil }
