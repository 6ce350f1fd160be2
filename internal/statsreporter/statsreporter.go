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

// Package statsreporter logs a one-line ring/processor snapshot on a
// schedule. It is purely observational: nothing it does ever touches the
// hot path, and a missed or slow tick has no effect on the topology it
// watches.
package statsreporter

import (
	"fmt"

	"github.com/go-arcade/disruptor/pkg/log"
	"github.com/robfig/cron/v3"
)

// Snapshot is one tick's worth of ring/processor state.
type Snapshot struct {
	Cursor       int64
	RingCapacity int64
	Consumers    map[string]int64 // name -> sequence
}

// SnapshotFunc reads the live topology. Called once per tick.
type SnapshotFunc func() Snapshot

// Reporter wraps a robfig/cron scheduler running a single entry that logs
// SnapshotFunc's result. spec is a standard cron expression (e.g. "@every
// 5s") per robfig/cron's parser.
type Reporter struct {
	c        *cron.Cron
	entryID  cron.EntryID
	snapshot SnapshotFunc
	prev     *Snapshot
}

// New builds a Reporter that ticks on spec and logs through pkg/log. It
// does not start the scheduler; call Start.
func New(spec string, snapshotFn SnapshotFunc) (*Reporter, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	r := &Reporter{c: c, snapshot: snapshotFn}

	id, err := c.AddFunc(spec, r.tick)
	if err != nil {
		return nil, fmt.Errorf("statsreporter: invalid schedule %q: %w", spec, err)
	}
	r.entryID = id
	return r, nil
}

// Start launches the cron scheduler on its own goroutine (cron.Cron.Start
// is itself non-blocking, matching the teacher's Start/Stop scheduler
// shape).
func (r *Reporter) Start() { r.c.Start() }

// Stop halts the scheduler and waits for any in-flight tick to finish.
func (r *Reporter) Stop() { <-r.c.Stop().Done() }

func (r *Reporter) tick() {
	snap := r.snapshot()
	lag := snap.Cursor + 1

	fields := []interface{}{
		"cursor", snap.Cursor,
		"ring_capacity", snap.RingCapacity,
	}
	for name, seq := range snap.Consumers {
		consumerLag := snap.Cursor - seq
		if consumerLag < 0 {
			consumerLag = 0
		}
		fields = append(fields, fmt.Sprintf("consumer.%s.sequence", name), seq, fmt.Sprintf("consumer.%s.lag", name), consumerLag)
		if lag > consumerLag {
			lag = consumerLag
		}
	}

	if r.prev != nil {
		fields = append(fields, "cursor_delta", snap.Cursor-r.prev.Cursor)
	}

	log.Infow("topology stats", fields...)
	r.prev = &snap
}
