package ringbuffer

// BatchSizeLimiter caps how many sequences a single onBatch call may
// cover, independent of how many the barrier reports available. Keeping
// batches bounded puts an upper limit on handler latency and on how
// stale a consumer's published sequence can appear to producers.
type BatchSizeLimiter struct {
	maxBatchSize int64
}

// NewBatchSizeLimiter returns a limiter capping batches at maxBatchSize,
// which must be >= 1.
func NewBatchSizeLimiter(maxBatchSize int64) *BatchSizeLimiter {
	if maxBatchSize < 1 {
		maxBatchSize = 1
	}
	return &BatchSizeLimiter{maxBatchSize: maxBatchSize}
}

// Cap returns the smaller of available and next+maxBatchSize-1: the
// highest sequence the processor is allowed to consume up to in this
// iteration of the loop.
func (l *BatchSizeLimiter) Cap(available, next int64) int64 {
	limit := next + l.maxBatchSize - 1
	if available < limit {
		return available
	}
	return limit
}
