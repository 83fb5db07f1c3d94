/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package observer

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dgtony-netloc/netloc/agent"
	"github.com/dgtony-netloc/netloc/protocol"
)

func TestNodeCollectorCollectsExpectedDescriptors(t *testing.T) {
	storage := agent.NewStorage("self:1", protocol.NodeCoordinates{PosErr: 0.3, Height: 0.01, Iteration: 7}, 1)
	stats := agent.NewStats()
	stats.Inc(agent.CounterProbesSent)

	c := &nodeCollector{storage: storage, stats: stats}

	descCh := make(chan *prometheus.Desc, 16)
	c.Describe(descCh)
	close(descCh)
	var descs []*prometheus.Desc
	for d := range descCh {
		descs = append(descs, d)
	}
	require.Len(t, descs, 5)

	metricCh := make(chan prometheus.Metric, 16)
	c.Collect(metricCh)
	close(metricCh)
	var count int
	for range metricCh {
		count++
	}
	require.GreaterOrEqual(t, count, 5)
}

func TestPrometheusRegistrationIsIdempotent(t *testing.T) {
	storage := agent.NewStorage("self:1", protocol.OriginCoordinates(), 2)
	stats := agent.NewStats()
	collector := &nodeCollector{storage: storage, stats: stats}

	err := prometheus.Register(collector)
	require.NoError(t, err)
	defer prometheus.Unregister(collector)

	// Registering a second, distinct collector describing the same
	// metrics must fail with AlreadyRegisteredError rather than panic,
	// and Start's handling of that error must not itself error.
	second := &nodeCollector{storage: storage, stats: stats}
	err = prometheus.Register(second)
	require.Error(t, err)
	_, ok := err.(prometheus.AlreadyRegisteredError)
	require.True(t, ok)

	// Start hits the same AlreadyRegisteredError; with ctx already
	// cancelled it shuts its HTTP server straight down and returns.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exporter := NewPrometheusExporter(storage, stats)
	require.NoError(t, exporter.Start(ctx, "127.0.0.1:0"))
}
