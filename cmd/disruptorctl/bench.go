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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-arcade/disruptor/pkg/parallel"
	"github.com/go-arcade/disruptor/pkg/ringbuffer"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "run the core's end-to-end scenarios and print the measured invariants",
	RunE:  runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	benchSingleProducer()
	benchMultiProducer()
	benchSlowConsumerBackpressure()
	return nil
}

// benchSingleProducer is scenario 1: SP, ring size 8, publish 20 values,
// expect sum 210 and final sequence 19.
func benchSingleProducer() {
	ring, _ := ringbuffer.NewRing[int64](8, func() int64 { return 0 })
	sequencer := ringbuffer.NewSingleProducerSequencer(8, ringbuffer.NewYieldingWaitStrategy())

	var sum int64
	handler := &benchHandler{onBatch: func(batch []*int64, start int64) {
		for _, v := range batch {
			sum += *v
		}
	}}
	processor := ringbuffer.NewBatchEventProcessor[int64](ring, sequencer.NewBarrier(), handler,
		ringbuffer.NewFatalExceptionHandler[int64](nil), ringbuffer.NewBatchSizeLimiter(8))
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	_ = processor.WaitUntilStarted(time.Second)

	start := time.Now()
	for i := int64(1); i <= 20; i++ {
		seq := sequencer.Next(1)
		*ring.Get(seq) = i
		sequencer.Publish(seq)
	}
	waitForSequence(processor, 19)
	elapsed := time.Since(start)
	processor.Halt()

	fmt.Printf("scenario 1 (single producer, no loss): sum=%d sequence=%d elapsed=%s\n", sum, processor.Sequence().Get(), elapsed)
}

// benchMultiProducer is scenario 2: several producers publishing
// concurrently with no lost or duplicated sequences.
func benchMultiProducer() {
	const (
		producers   = 3
		perProducer = 1_000_000
		ringSize    = 1 << 16
	)
	ring, _ := ringbuffer.NewRing[int64](ringSize, func() int64 { return 0 })
	sequencer := ringbuffer.NewMultiProducerSequencer(ringSize, ringbuffer.NewBusySpinWaitStrategy())

	var sum int64
	handler := &benchHandler{onBatch: func(batch []*int64, start int64) {
		for _, v := range batch {
			sum += *v
		}
	}}
	processor := ringbuffer.NewBatchEventProcessor[int64](ring, sequencer.NewBarrier(), handler,
		ringbuffer.NewFatalExceptionHandler[int64](nil), nil)
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	_ = processor.WaitUntilStarted(time.Second)

	start := time.Now()
	group := parallel.GoGroup(context.Background())
	for p := 0; p < producers; p++ {
		group.Go(func(ctx context.Context) error {
			for i := 0; i < perProducer; i++ {
				seq := sequencer.Next(1)
				*ring.Get(seq) = 1
				sequencer.Publish(seq)
			}
			return nil
		})
	}
	_ = group.Wait()

	const total = producers * perProducer
	waitForSequence(processor, total-1)
	elapsed := time.Since(start)
	processor.Halt()

	fmt.Printf("scenario 2 (multi producer, no loss): events=%d sum=%d elapsed=%s throughput=%.0f/s\n",
		total, sum, elapsed, float64(total)/elapsed.Seconds())
}

// benchSlowConsumerBackpressure is scenario 3: ring size 4, a consumer
// slower than the producer. Verifies every delivered value matches its
// sequence (no wrap-over corruption) under backpressure.
func benchSlowConsumerBackpressure() {
	const total = 2000
	ring, _ := ringbuffer.NewRing[int64](4, func() int64 { return 0 })
	sequencer := ringbuffer.NewSingleProducerSequencer(4, ringbuffer.NewYieldingWaitStrategy())

	corrupted := 0
	handler := &benchHandler{onBatch: func(batch []*int64, start int64) {
		for i, v := range batch {
			if *v != start+int64(i) {
				corrupted++
			}
		}
		time.Sleep(20 * time.Microsecond)
	}}
	processor := ringbuffer.NewBatchEventProcessor[int64](ring, sequencer.NewBarrier(), handler,
		ringbuffer.NewFatalExceptionHandler[int64](nil), nil)
	sequencer.AddGatingSequences(processor.Sequence())

	go processor.Run()
	_ = processor.WaitUntilStarted(time.Second)

	start := time.Now()
	for i := int64(0); i < total; i++ {
		seq := sequencer.Next(1)
		*ring.Get(seq) = seq
		sequencer.Publish(seq)
	}
	waitForSequence(processor, total-1)
	elapsed := time.Since(start)
	processor.Halt()

	fmt.Printf("scenario 3 (slow consumer backpressure): events=%d corrupted=%d elapsed=%s\n", total, corrupted, elapsed)
}

func waitForSequence(p *ringbuffer.BatchEventProcessor[int64], target int64) {
	for p.Sequence().Get() < target {
		time.Sleep(100 * time.Microsecond)
	}
}

type benchHandler struct {
	onBatch func(batch []*int64, startingSequence int64)
}

func (h *benchHandler) OnStart() error    { return nil }
func (h *benchHandler) OnShutdown() error { return nil }
func (h *benchHandler) OnBatch(batch []*int64, startingSequence int64) error {
	h.onBatch(batch, startingSequence)
	return nil
}
func (h *benchHandler) OnTimeout(sequence int64) error { return nil }
