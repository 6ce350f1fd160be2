package ringbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceBarrierWaitForCollapsesToHighestPublished(t *testing.T) {
	seq := NewMultiProducerSequencer(8, NewBusySpinWaitStrategy())
	barrier := seq.NewBarrier()

	lo := seq.Next(3) - 2
	hi := lo + 2
	seq.Publish(hi)
	seq.Publish(lo)
	// lo+1 still unpublished.

	available, err := barrier.WaitFor(lo)
	require.NoError(t, err)
	assert.Equal(t, lo, available)

	seq.Publish(lo + 1)
	available, err = barrier.WaitFor(lo)
	require.NoError(t, err)
	assert.Equal(t, hi, available)
}

func TestSequenceBarrierCancelAlertsWaiters(t *testing.T) {
	seq := NewSingleProducerSequencer(8, NewBlockingWaitStrategy())
	barrier := seq.NewBarrier()

	errCh := make(chan error, 1)
	go func() {
		_, err := barrier.WaitFor(0)
		errCh <- err
	}()

	time.Sleep(5 * time.Millisecond)
	barrier.Cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrAlert)
	case <-time.After(time.Second):
		t.Fatal("barrier cancel did not wake waiter")
	}

	assert.True(t, barrier.IsAlerted())
	barrier.ResetProcessing()
	assert.False(t, barrier.IsAlerted())
}

func TestSequenceBarrierDependentsGateBelowCursor(t *testing.T) {
	seq := NewSingleProducerSequencer(8, NewBusySpinWaitStrategy())
	upstream := NewSequence(InitialSequenceValue)
	barrier := seq.NewBarrier(upstream)

	n := seq.Next(5)
	seq.Publish(n) // cursor now at 4

	upstream.Set(1)

	available, err := barrier.WaitFor(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), available, "barrier must not run ahead of an upstream dependent")
}
