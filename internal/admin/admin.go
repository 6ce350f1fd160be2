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

// Package admin is the observability surface around a running topology:
// a fiber HTTP server exposing /health and /status, and the Prometheus
// metrics listener from pkg/metrics. It owns no ring/sequencer state of
// its own; callers supply a StatusFunc closure that reads the live
// topology.
package admin

import (
	"context"

	"github.com/go-arcade/disruptor/pkg/id"
	"github.com/go-arcade/disruptor/pkg/log"
	"github.com/go-arcade/disruptor/pkg/metrics"
	"github.com/go-arcade/disruptor/pkg/safe"
	"github.com/go-arcade/disruptor/pkg/shutdown"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ConsumerLag reports one registered consumer's progress against the
// sequencer cursor.
type ConsumerLag struct {
	Name     string `json:"name"`
	Sequence int64  `json:"sequence"`
	Lag      int64  `json:"lag"`
}

// Status is the JSON body served at GET /status.
type Status struct {
	RunID        string        `json:"run_id"`
	Cursor       int64         `json:"cursor"`
	RingCapacity int64         `json:"ring_capacity"`
	ProducerMode string        `json:"producer_mode"`
	Consumers    []ConsumerLag `json:"consumers"`
}

// StatusFunc reads the live topology and reports its current Status. It
// is called once per GET /status request, so it should be cheap: reading
// a handful of Sequence values, not walking the ring.
type StatusFunc func() Status

// Server is the admin HTTP surface: a small fiber app in front of a
// StatusFunc, plus the Prometheus metrics listener it starts and stops
// alongside itself.
type Server struct {
	app      *fiber.App
	addr     string
	runID    string
	statusFn StatusFunc
	metrics  *metrics.Server
	shutdown *shutdown.Manager
}

// New builds an admin Server. metricsServer may be nil to skip mounting a
// metrics listener (e.g. in a test harness that has no need for it).
func New(addr string, metricsServer *metrics.Server, statusFn StatusFunc) *Server {
	runID := id.GetUild()

	app := fiber.New(fiber.Config{
		AppName:               "disruptor-admin",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	s := &Server{
		app:      app,
		addr:     addr,
		runID:    runID,
		statusFn: statusFn,
		metrics:  metricsServer,
		shutdown: shutdown.NewManager(),
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if s.shutdown.IsShuttingDown() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
		return c.SendString("ok")
	})

	app.Get("/status", func(c *fiber.Ctx) error {
		status := s.statusFn()
		status.RunID = s.runID
		return c.JSON(status)
	})

	return s
}

// RunID returns the ULID minted for this server's lifetime, the same
// value reported in every /status response.
func (s *Server) RunID() string { return s.runID }

// Start launches the fiber listener and, if configured, the metrics
// listener, both on panic-recovering goroutines.
func (s *Server) Start() error {
	if s.metrics != nil {
		if err := s.metrics.Start(); err != nil {
			return err
		}
	}

	safe.Go(func() {
		log.Infow("admin listener started", "address", s.addr)
		if err := s.app.Listen(s.addr); err != nil {
			log.Errorw("admin listener exited", "error", err)
		}
	})
	return nil
}

// Stop shuts down the fiber and metrics listeners. Idempotent.
func (s *Server) Stop(ctx context.Context) error {
	if !s.shutdown.Shutdown() {
		return nil
	}
	if s.metrics != nil {
		if err := s.metrics.Stop(ctx); err != nil {
			log.Warnw("metrics listener shutdown error", "error", err)
		}
	}
	return s.app.ShutdownWithContext(ctx)
}
