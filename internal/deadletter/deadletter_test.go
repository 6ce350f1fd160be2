package deadletter

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler[int], *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return New[int](rdb, "disruptor:deadletter", nil), rdb
}

func TestHandleEventExceptionPushesOneRecordPerFailedEvent(t *testing.T) {
	h, rdb := newTestHandler(t)

	h.HandleEventException(errors.New("boom"), 10, []int{1, 2, 3})

	length, err := rdb.LLen(context.Background(), "disruptor:deadletter").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 3, length)

	first, err := rdb.LIndex(context.Background(), "disruptor:deadletter", 0).Result()
	require.NoError(t, err)
	assert.Contains(t, first, `"sequence":10`)
	assert.Contains(t, first, `"error":"boom"`)
}

func TestHandleEventExceptionDoesNotPanic(t *testing.T) {
	h, _ := newTestHandler(t)
	assert.NotPanics(t, func() {
		h.HandleEventException(errors.New("boom"), 0, []int{1})
	})
}
