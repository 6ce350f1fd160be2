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

//go:build wireinject
// +build wireinject

package main

import (
	"github.com/go-arcade/disruptor/pkg/cache"
	"github.com/go-arcade/disruptor/pkg/log"
	"github.com/go-arcade/disruptor/pkg/metrics"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// deps bundles the ambient singletons a topology process needs beyond the
// ring/sequencer/processor themselves: a logger, the dead-letter Redis
// client, and the Prometheus metrics server. run.go builds these by hand
// today; this injector is the Wire-generated alternative, produced by
// running `wire ./cmd/disruptorctl` the same way the teacher's
// cmd/arcade/wire.go is regenerated rather than hand-maintained.
type deps struct {
	Logger  *log.Logger
	Redis   redis.Cmdable
	Metrics *metrics.Server
}

func initDeps(logConf *log.Conf, redisConf cache.Redis, metricsConf metrics.MetricsConfig) (*deps, error) {
	panic(wire.Build(
		log.ProviderSet,
		cache.ProviderSet,
		metrics.ProviderSet,
		wire.Struct(new(deps), "*"),
	))
}
