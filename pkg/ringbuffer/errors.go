package ringbuffer

import "errors"

// ErrAlert is the cooperative cancellation signal delivered through a
// SequenceBarrier. A processor observes it, checks whether it has been
// halted, and either exits its loop or re-arms the barrier and continues.
var ErrAlert = errors.New("ringbuffer: alert")

// ErrInsufficientCapacity is returned by Sequencer.TryNext when the ring
// has no room for the requested claim without blocking.
var ErrInsufficientCapacity = errors.New("ringbuffer: insufficient capacity")

// ErrAlreadyRunning is a programmer error: Run was called on a processor
// that is already running or has not fully halted yet.
var ErrAlreadyRunning = errors.New("ringbuffer: processor already running")

// ErrInvalidCapacity is a programmer error: ring capacity must be a
// power of two greater than zero.
var ErrInvalidCapacity = errors.New("ringbuffer: capacity must be a power of two greater than zero")

// ErrWaitTimeout is returned by a timeout-aware WaitStrategy when its
// deadline elapses before the requested sequence became available. It is
// informational, not an error: the processor reports onTimeout and loops.
var ErrWaitTimeout = errors.New("ringbuffer: wait timeout")
