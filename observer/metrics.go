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
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgtony-netloc/netloc/agent"
)

// PrometheusExporter serves the counters in agent.Stats plus a handful of
// Storage-derived gauges on an HTTP /metrics endpoint.
type PrometheusExporter struct {
	storage    *agent.Storage
	stats      *agent.Stats
	collector  prometheus.Collector
	httpServer *http.Server
}

// NewPrometheusExporter builds an exporter; call Start to register and
// begin serving.
func NewPrometheusExporter(storage *agent.Storage, stats *agent.Stats) *PrometheusExporter {
	e := &PrometheusExporter{storage: storage, stats: stats}
	e.collector = &nodeCollector{storage: storage, stats: stats}
	return e
}

// Start registers the collector and begins serving /metrics on address.
// Registration is idempotent: a second Start against the default registry
// (as happens in tests that build more than one exporter) does not panic
// or error on an AlreadyRegisteredError.
func (e *PrometheusExporter) Start(ctx context.Context, address string) error {
	if err := prometheus.Register(e.collector); err != nil {
		if _, already := err.(prometheus.AlreadyRegisteredError); !already {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	e.httpServer = &http.Server{Addr: address, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = e.httpServer.Close()
	}()

	log.Infof("prometheus exporter listening on %s", address)
	err := e.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop unregisters the collector, letting a subsequent Start elsewhere in
// the same process re-register cleanly.
func (e *PrometheusExporter) Stop() {
	prometheus.Unregister(e.collector)
}

// nodeCollector adapts agent.Storage/agent.Stats to prometheus.Collector
// without needing a background scrape loop: every Collect call reads the
// live state directly.
type nodeCollector struct {
	storage *agent.Storage
	stats   *agent.Stats
}

var (
	knownPeersDesc = prometheus.NewDesc("netloc_known_peers", "Number of peers currently held in storage.", nil, nil)
	posErrDesc     = prometheus.NewDesc("netloc_pos_err", "Current position-error confidence, in [0,1].", nil, nil)
	heightDesc     = prometheus.NewDesc("netloc_height", "Current height coordinate.", nil, nil)
	iterationDesc  = prometheus.NewDesc("netloc_iteration", "Number of successful Vivaldi updates applied.", nil, nil)
	counterDesc    = prometheus.NewDesc("netloc_counter_total", "Protocol/runtime counters.", []string{"name"}, nil)
)

func (c *nodeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- knownPeersDesc
	ch <- posErrDesc
	ch <- heightDesc
	ch <- iterationDesc
	ch <- counterDesc
}

func (c *nodeCollector) Collect(ch chan<- prometheus.Metric) {
	loc := c.storage.GetLocation()
	ch <- prometheus.MustNewConstMetric(knownPeersDesc, prometheus.GaugeValue, float64(c.storage.Len()))
	ch <- prometheus.MustNewConstMetric(posErrDesc, prometheus.GaugeValue, float64(loc.PosErr))
	ch <- prometheus.MustNewConstMetric(heightDesc, prometheus.GaugeValue, float64(loc.Height))
	ch <- prometheus.MustNewConstMetric(iterationDesc, prometheus.GaugeValue, float64(loc.Iteration))

	for name, value := range c.stats.Get() {
		ch <- prometheus.MustNewConstMetric(counterDesc, prometheus.CounterValue, float64(value), name)
	}
}
