// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package deadletter is an example ExceptionHandler sink: instead of
// swallowing a failing event, it pushes a JSON record of it onto a Redis
// list so an operator can inspect or replay it later. It is a caller-side
// convenience, not part of the ringbuffer core. The core only knows
// about the ExceptionHandler interface.
package deadletter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-arcade/disruptor/pkg/cache"
	"github.com/go-arcade/disruptor/pkg/log"
	"github.com/go-arcade/disruptor/pkg/retry"
	"github.com/go-arcade/disruptor/pkg/ringbuffer"
	"github.com/redis/go-redis/v9"
)

// Record is the JSON shape pushed onto the Redis list for each failing
// event.
type Record struct {
	Sequence int64       `json:"sequence"`
	Error    string      `json:"error"`
	Event    interface{} `json:"event"`
	At       time.Time   `json:"at"`
}

// Handler is an ExceptionHandler[T] that logs every lifecycle exception
// the way ringbuffer.SwallowingExceptionHandler does, but routes
// HandleEventException failures to a Redis list (ListKey) as a Record
// instead of only logging them, so a failing batch never disappears
// silently.
type Handler[T any] struct {
	rdb     redis.Cmdable
	listKey string
	timeout time.Duration
	log     func(msg string, keysAndValues ...interface{})
}

// New builds a Handler pushing onto listKey via rdb. log defaults to
// pkg/log.Errorw when nil.
func New[T any](rdb redis.Cmdable, listKey string, logFn func(msg string, keysAndValues ...interface{})) *Handler[T] {
	if logFn == nil {
		logFn = log.Errorw
	}
	return &Handler[T]{rdb: rdb, listKey: listKey, timeout: 2 * time.Second, log: logFn}
}

// NewFromConfig builds a Handler backed by a fresh Redis client per
// cfg (single, sentinel, or cluster mode, per pkg/cache.NewRedisCmdable),
// for callers that only have connection settings rather than an existing
// redis.Cmdable.
func NewFromConfig[T any](cfg cache.Redis, listKey string, logFn func(msg string, keysAndValues ...interface{})) (*Handler[T], error) {
	rdb, err := cache.NewRedisCmdable(cfg)
	if err != nil {
		return nil, err
	}
	return New[T](rdb, listKey, logFn), nil
}

// HandleEventException pushes one Record per failing event in the batch
// onto the configured Redis list, then logs the batch-level failure. It
// never panics, so processing continues past the failing batch. This
// follows the uniform advance-past-on-exception policy, with a durable
// trail instead of silent loss.
func (h *Handler[T]) HandleEventException(err error, sequence int64, batch []T) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	for i, e := range batch {
		rec := Record{Sequence: sequence + int64(i), Error: err.Error(), Event: e, At: time.Now()}
		payload, marshalErr := json.Marshal(rec)
		if marshalErr != nil {
			h.log("deadletter: failed to marshal event", "sequence", rec.Sequence, "error", marshalErr)
			continue
		}
		pushErr := retry.Do(ctx, func(ctx context.Context) error {
			return h.rdb.RPush(ctx, h.listKey, payload).Err()
		}, retry.WithMaxAttempts(3), retry.WithBackoff(retry.Exponential(20*time.Millisecond, 500*time.Millisecond)))
		if pushErr != nil {
			h.log("deadletter: failed to push record after retries", "sequence", rec.Sequence, "error", pushErr)
		}
	}
	h.log("deadletter: event batch failed, routed to dead-letter list", "sequence", sequence, "list", h.listKey, "error", err)
}

func (h *Handler[T]) HandleOnStartException(err error) {
	h.log("deadletter: OnStart failed", "error", err)
}

func (h *Handler[T]) HandleOnShutdownException(err error) {
	h.log("deadletter: OnShutdown failed", "error", err)
}

func (h *Handler[T]) HandleOnTimeoutException(err error, sequence int64) {
	h.log("deadletter: OnTimeout failed", "sequence", sequence, "error", err)
}

var _ ringbuffer.ExceptionHandler[struct{}] = (*Handler[struct{}])(nil)
