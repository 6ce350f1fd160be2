package ringbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioSingleProducerNoLoss is end-to-end scenario 1 from the
// testable-properties table: SP, ring size 8, one consumer, publish 20
// values 1..20. Expected final sum 210, sequence 19.
func TestScenarioSingleProducerNoLoss(t *testing.T) {
	ring, err := NewRing[int](8, intSlot)
	require.NoError(t, err)

	sequencer := NewSingleProducerSequencer(8, NewYieldingWaitStrategy())
	handler := &sumHandler{failOnSeq: -1}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), NewBatchSizeLimiter(8))
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	for i := int64(1); i <= 20; i++ {
		seq := sequencer.Next(1)
		*ring.Get(seq) = int(i)
		sequencer.Publish(seq)
	}

	require.Eventually(t, func() bool {
		return processor.Sequence().Get() == 19
	}, time.Second, time.Millisecond)

	assert.Equal(t, int64(210), handler.sum.Load())
	assert.Equal(t, int64(19), processor.Sequence().Get())

	processor.Halt()
	require.Eventually(t, func() bool { return !processor.IsRunning() }, time.Second, time.Millisecond)
}

func TestProcessorAlreadyRunning(t *testing.T) {
	ring, err := NewRing[int](4, intSlot)
	require.NoError(t, err)
	sequencer := NewSingleProducerSequencer(4, NewBusySpinWaitStrategy())
	handler := &sumHandler{failOnSeq: -1}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), nil)

	go processor.Run()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	err = processor.Run()
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	processor.Halt()
	require.Eventually(t, func() bool { return !processor.IsRunning() }, time.Second, time.Millisecond)
}

func TestProcessorRestartResumesFromSequence(t *testing.T) {
	ring, err := NewRing[int](8, intSlot)
	require.NoError(t, err)
	sequencer := NewSingleProducerSequencer(8, NewYieldingWaitStrategy())
	handler := &sumHandler{failOnSeq: -1}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), nil)
	sequencer.AddGatingSequences(processor.Sequence())

	runDone := make(chan struct{})
	go func() { processor.Run(); close(runDone) }()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	for i := int64(1); i <= 4; i++ {
		seq := sequencer.Next(1)
		*ring.Get(seq) = int(i)
		sequencer.Publish(seq)
	}
	require.Eventually(t, func() bool { return processor.Sequence().Get() == 3 }, time.Second, time.Millisecond)

	processor.Halt()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("processor did not reach idle after halt")
	}

	runDone = make(chan struct{})
	go func() { processor.Run(); close(runDone) }()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	for i := int64(5); i <= 8; i++ {
		seq := sequencer.Next(1)
		*ring.Get(seq) = int(i)
		sequencer.Publish(seq)
	}
	require.Eventually(t, func() bool { return processor.Sequence().Get() == 7 }, time.Second, time.Millisecond)

	assert.Equal(t, int64(36), handler.sum.Load()) // 1+2+...+8
	processor.Halt()
}

// TestScenarioHaltDuringWait is end-to-end scenario 6: a consumer parked
// in waitFor must exit within one wait-strategy tick of Halt.
func TestScenarioHaltDuringWait(t *testing.T) {
	ring, err := NewRing[int](8, intSlot)
	require.NoError(t, err)
	sequencer := NewSingleProducerSequencer(8, NewBlockingWaitStrategy())
	handler := &sumHandler{failOnSeq: -1}
	processor := NewBatchEventProcessor[int](ring, sequencer.NewBarrier(), handler,
		NewFatalExceptionHandler[int](nil), nil)
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	require.NoError(t, processor.WaitUntilStarted(time.Second))

	// Consumer is now parked in barrier.WaitFor with nothing published.
	time.Sleep(10 * time.Millisecond)
	assert.True(t, processor.IsRunning())

	processor.Halt()
	require.Eventually(t, func() bool { return !processor.IsRunning() }, time.Second, time.Millisecond)
}
