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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-arcade/disruptor/internal/admin"
	"github.com/go-arcade/disruptor/internal/deadletter"
	"github.com/go-arcade/disruptor/internal/statsreporter"
	"github.com/go-arcade/disruptor/internal/topologyconf"
	"github.com/go-arcade/disruptor/pkg/log"
	"github.com/go-arcade/disruptor/pkg/metrics"
	"github.com/go-arcade/disruptor/pkg/parallel"
	"github.com/go-arcade/disruptor/pkg/ringbuffer"
	"github.com/go-arcade/disruptor/pkg/trace"
	"github.com/spf13/cobra"
)

// tick is the demo event this binary moves through the ring: a sequence
// number stamped with the time it was claimed, standing in for whatever
// fixed-type payload a real caller would define.
type tick struct {
	Value   int64
	Claimed time.Time
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "build a topology from config and run it until signaled",
	RunE:  runTopology,
}

func runTopology(cmd *cobra.Command, args []string) error {
	cfg, err := topologyconf.Load(confDir, func(old, next *topologyconf.Config) {
		log.Infow("topology config changed", "wait_strategy", next.WaitStrategy, "max_batch_size", next.MaxBatchSize)
	})
	if err != nil {
		return err
	}
	log.MustInit(&cfg.Log)

	_, shutdownTracing, err := trace.InitTracerProvider(context.Background(), cfg.Trace)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	ring, err := ringbuffer.NewRing[tick](cfg.RingSize, func() tick { return tick{} })
	if err != nil {
		return err
	}

	wait, err := cfg.BuildWaitStrategy()
	if err != nil {
		return err
	}

	var sequencer ringbuffer.Sequencer
	if cfg.ProducerMode == topologyconf.ProducerModeMulti {
		sequencer = ringbuffer.NewMultiProducerSequencer(cfg.RingSize, wait)
	} else {
		sequencer = ringbuffer.NewSingleProducerSequencer(cfg.RingSize, wait)
	}

	topo := ringbuffer.NewTopology[tick](ring, sequencer)

	var exceptionHandler ringbuffer.ExceptionHandler[tick] = ringbuffer.NewFatalExceptionHandler[tick](log.Errorw)
	if cfg.DeadLetter.Enable {
		dlHandler, err := deadletter.NewFromConfig[tick](cfg.DeadLetter.Redis, cfg.DeadLetter.ListKey, log.Errorw)
		if err != nil {
			return err
		}
		exceptionHandler = dlHandler
	}

	handler := &logHandler{}
	processor := ringbuffer.NewBatchEventProcessor[tick](
		ring, topo.NewBarrier(), handler,
		exceptionHandler,
		ringbuffer.NewBatchSizeLimiter(cfg.MaxBatchSize),
	)
	topo.AddGatingSequences(processor.Sequence())
	topo.Start(processor, processor.Run)

	if err := processor.WaitUntilStarted(5 * time.Second); err != nil {
		return err
	}

	metricsSrv := metrics.NewServer(cfg.Metrics)
	adminSrv := admin.New(cfg.AdminAddr, metricsSrv, func() admin.Status {
		return admin.Status{
			Cursor:       topo.Cursor().Get(),
			RingCapacity: topo.RingCapacity(),
			ProducerMode: string(cfg.ProducerMode),
			Consumers: []admin.ConsumerLag{
				{Name: "logHandler", Sequence: processor.Sequence().Get(), Lag: topo.Cursor().Get() - processor.Sequence().Get()},
			},
		}
	})
	if err := adminSrv.Start(); err != nil {
		return err
	}

	reporter, err := statsreporter.New("@every 10s", func() statsreporter.Snapshot {
		return statsreporter.Snapshot{
			Cursor:       topo.Cursor().Get(),
			RingCapacity: topo.RingCapacity(),
			Consumers:    map[string]int64{"logHandler": processor.Sequence().Get()},
		}
	})
	if err != nil {
		return err
	}
	reporter.Start()

	producer := parallel.Go(context.Background(), func(ctx context.Context) (interface{}, error) {
		runDemoProducer(ctx, topo)
		return nil, nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-quit
	log.Infow("received signal, shutting down gracefully", "signal", sig)

	producer.Cancel()
	_, _ = producer.Get()

	reporter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := adminSrv.Stop(shutdownCtx); err != nil {
		log.Warnw("admin server shutdown error", "error", err)
	}

	topo.Halt()
	return nil
}

// runDemoProducer claims and publishes one tick per interval until ctx is
// canceled, standing in for whatever real producer a caller would wire
// in place of it.
func runDemoProducer(ctx context.Context, topo *ringbuffer.Topology[tick]) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	var n int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq := topo.Next(1)
			*topo.Ring.Get(seq) = tick{Value: n, Claimed: time.Now()}
			topo.Publish(seq)
			n++
		}
	}
}

// logHandler is the default demo EventHandler: it just logs the batch's
// starting sequence, its size and the age of its newest tick.
type logHandler struct{}

func (h *logHandler) OnStart() error    { return nil }
func (h *logHandler) OnShutdown() error { return nil }

func (h *logHandler) OnBatch(batch []*tick, startingSequence int64) error {
	if len(batch) == 0 {
		return nil
	}
	log.Debugw("delivered batch", "starting_sequence", startingSequence, "size", len(batch), "lag", time.Since(batch[len(batch)-1].Claimed))
	return nil
}

func (h *logHandler) OnTimeout(sequence int64) error { return nil }
