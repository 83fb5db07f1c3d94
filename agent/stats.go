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

package agent

import "sync"

// StatsSink collects counters the Transmitter and Receiver update as they
// run; observer.PrometheusExporter reads them out via Get.
type StatsSink interface {
	Inc(key string)
	IncBy(key string, delta int64)
	Set(key string, value int64)
	Get() map[string]int64
	Reset()
}

// Stats is a map-of-counters implementation: a mutex-guarded map, a Get
// snapshot, a Reset.
type Stats struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{counters: map[string]int64{}}
}

// Inc increments a counter by one.
func (s *Stats) Inc(key string) {
	s.IncBy(key, 1)
}

// IncBy increments a counter by delta.
func (s *Stats) IncBy(key string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += delta
}

// Set overwrites a counter with an absolute value, for gauge-shaped
// readings (e.g. sysstats) that don't accumulate like protocol counters.
func (s *Stats) Set(key string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] = value
}

// Get returns a snapshot copy of all counters.
func (s *Stats) Get() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.counters {
		s.counters[k] = 0
	}
}

// Counter names used by the Transmitter/Receiver.
const (
	CounterProbesSent           = "probes_sent"
	CounterProbesReceived       = "probes_received"
	CounterResponsesSent        = "responses_sent"
	CounterResponsesReceived    = "responses_received"
	CounterBootstrapRequestsRX  = "bootstrap_requests_received"
	CounterBootstrapResponsesRX = "bootstrap_responses_received"
	CounterBootstrapResponsesTX = "bootstrap_responses_sent"
	CounterMalformedDropped     = "malformed_dropped"
	CounterSendErrors           = "send_errors"
	CounterClockAnomalies       = "clock_anomalies"
)
