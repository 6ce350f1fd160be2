package ringbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noAlert() bool { return false }

func TestBusySpinWaitStrategyReturnsOnceAvailable(t *testing.T) {
	cursor := NewSequence(InitialSequenceValue)
	w := NewBusySpinWaitStrategy()

	done := make(chan int64, 1)
	go func() {
		available, err := w.WaitFor(5, cursor, nil, noAlert)
		assert.NoError(t, err)
		done <- available
	}()

	time.Sleep(5 * time.Millisecond)
	cursor.Set(5)

	select {
	case available := <-done:
		assert.Equal(t, int64(5), available)
	case <-time.After(time.Second):
		t.Fatal("WaitFor never returned")
	}
}

func TestBlockingWaitStrategySignalAll(t *testing.T) {
	cursor := NewSequence(InitialSequenceValue)
	w := NewBlockingWaitStrategy()

	done := make(chan int64, 1)
	go func() {
		available, err := w.WaitFor(3, cursor, nil, noAlert)
		assert.NoError(t, err)
		done <- available
	}()

	time.Sleep(5 * time.Millisecond)
	cursor.Set(3)
	w.SignalAll()

	select {
	case available := <-done:
		assert.Equal(t, int64(3), available)
	case <-time.After(time.Second):
		t.Fatal("blocked waiter never woke after SignalAll")
	}
}

func TestBlockingWaitStrategyAlert(t *testing.T) {
	cursor := NewSequence(InitialSequenceValue)
	w := NewBlockingWaitStrategy()

	alerted := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		_, err := w.WaitFor(3, cursor, nil, func() bool {
			select {
			case <-alerted:
				return true
			default:
				return false
			}
		})
		errCh <- err
	}()

	time.Sleep(5 * time.Millisecond)
	close(alerted)
	w.SignalAll()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrAlert)
	case <-time.After(time.Second):
		t.Fatal("alerted waiter never returned")
	}
}

func TestTimeoutBlockingWaitStrategyTimesOut(t *testing.T) {
	cursor := NewSequence(InitialSequenceValue)
	w := NewTimeoutBlockingWaitStrategy(20 * time.Millisecond)

	start := time.Now()
	_, err := w.WaitFor(1, cursor, nil, noAlert)
	require.ErrorIs(t, err, ErrWaitTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSleepingWaitStrategyReturnsOnceAvailable(t *testing.T) {
	cursor := NewSequence(InitialSequenceValue)
	w := NewSleepingWaitStrategy()

	done := make(chan int64, 1)
	go func() {
		available, err := w.WaitFor(1, cursor, nil, noAlert)
		assert.NoError(t, err)
		done <- available
	}()

	time.Sleep(2 * time.Millisecond)
	cursor.Set(1)

	select {
	case available := <-done:
		assert.Equal(t, int64(1), available)
	case <-time.After(time.Second):
		t.Fatal("WaitFor never returned")
	}
}
