package ringbuffer

// ExceptionHandler is the per-event / startup / shutdown / timeout error
// policy a processor routes failures through. The event hook's default
// policy is fatal (see FatalExceptionHandler): it panics, and the
// processor halts without committing the failed batch. Implementations
// that swallow and return instead let the processor advance past the
// failed batch; advancing is the processor's job, not the handler's.
type ExceptionHandler[T any] interface {
	// HandleEventException is called when the user handler's OnBatch
	// returns an error. sequence is the first sequence of the failed
	// batch; batch is the slice of events that failed to process.
	HandleEventException(err error, sequence int64, batch []T)

	// HandleOnStartException is called when the handler's OnStart
	// returns an error. Never escalates: the processor always reaches
	// a clean idle state.
	HandleOnStartException(err error)

	// HandleOnShutdownException is called when the handler's OnShutdown
	// returns an error. Never escalates.
	HandleOnShutdownException(err error)

	// HandleOnTimeoutException is called when the handler's OnTimeout
	// returns an error. Never escalates.
	HandleOnTimeoutException(err error, sequence int64)
}

// ErrFatalEvent wraps an event-handler error to signal the default
// FatalExceptionHandler's policy: abort the processor rather than
// continue past the failed batch.
type ErrFatalEvent struct {
	Err      error
	Sequence int64
}

func (e *ErrFatalEvent) Error() string { return e.Err.Error() }
func (e *ErrFatalEvent) Unwrap() error { return e.Err }

// FatalExceptionHandler is the default ExceptionHandler: an event
// exception is escalated (the processor halts); lifecycle exceptions are
// logged to the supplied sink but never escalate.
type FatalExceptionHandler[T any] struct {
	// Log receives a formatted message for every routed exception. May
	// be nil, in which case exceptions are silently dropped after the
	// event case re-panics.
	Log func(msg string, keysAndValues ...interface{})
}

// NewFatalExceptionHandler returns a FatalExceptionHandler that reports
// through log, matching the signature of this module's structured
// logging helpers (Warnw/Errorw style: message, then alternating key/value
// pairs).
func NewFatalExceptionHandler[T any](log func(msg string, keysAndValues ...interface{})) *FatalExceptionHandler[T] {
	return &FatalExceptionHandler[T]{Log: log}
}

func (h *FatalExceptionHandler[T]) HandleEventException(err error, sequence int64, batch []T) {
	if h.Log != nil {
		h.Log("event handler failed, processor halting", "sequence", sequence, "error", err)
	}
	panic(&ErrFatalEvent{Err: err, Sequence: sequence})
}

func (h *FatalExceptionHandler[T]) HandleOnStartException(err error) {
	if h.Log != nil {
		h.Log("handler OnStart failed", "error", err)
	}
}

func (h *FatalExceptionHandler[T]) HandleOnShutdownException(err error) {
	if h.Log != nil {
		h.Log("handler OnShutdown failed", "error", err)
	}
}

func (h *FatalExceptionHandler[T]) HandleOnTimeoutException(err error, sequence int64) {
	if h.Log != nil {
		h.Log("handler OnTimeout failed", "sequence", sequence, "error", err)
	}
}

// SwallowingExceptionHandler logs every exception, including event
// exceptions, and never escalates: the processor advances past the
// failed batch and keeps running.
type SwallowingExceptionHandler[T any] struct {
	Log func(msg string, keysAndValues ...interface{})
}

func NewSwallowingExceptionHandler[T any](log func(msg string, keysAndValues ...interface{})) *SwallowingExceptionHandler[T] {
	return &SwallowingExceptionHandler[T]{Log: log}
}

func (h *SwallowingExceptionHandler[T]) HandleEventException(err error, sequence int64, batch []T) {
	if h.Log != nil {
		h.Log("event handler failed, continuing", "sequence", sequence, "error", err)
	}
}

func (h *SwallowingExceptionHandler[T]) HandleOnStartException(err error) {
	if h.Log != nil {
		h.Log("handler OnStart failed", "error", err)
	}
}

func (h *SwallowingExceptionHandler[T]) HandleOnShutdownException(err error) {
	if h.Log != nil {
		h.Log("handler OnShutdown failed", "error", err)
	}
}

func (h *SwallowingExceptionHandler[T]) HandleOnTimeoutException(err error, sequence int64) {
	if h.Log != nil {
		h.Log("handler OnTimeout failed", "sequence", sequence, "error", err)
	}
}
