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

import (
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dgtony-netloc/netloc/protocol"
)

// Agent wires Storage, Transport, Transmitter and Receiver together into a
// single running process, per the Role it was built with. Run supervises all of its
// goroutines with an errgroup, so the first one to fail cancels the others
// and its error propagates out of Run.
type Agent struct {
	config    *Config
	role      Role
	storage   *Storage
	transport Transport
	stats     *Stats
	sysstats  *SysStats

	transmitter *Transmitter
	receiver    *Receiver
}

// NewAgent builds an Agent for role from config. config.LandmarkAddress is
// required for RoleRegular: the Transmitter probes it directly whenever
// Storage is empty, which is how a regular node first learns any peers.
// It is ignored for RoleLandmark/RoleBootstrap.
func NewAgent(config *Config, role Role) (*Agent, error) {
	transport, err := ListenUDP(config.ListenAddress, config.ListenPort)
	if err != nil {
		return nil, fmt.Errorf("starting transport: %w", err)
	}

	selfAddr := net.JoinHostPort(config.ListenAddress, fmt.Sprintf("%d", config.ListenPort))

	var storage *Storage
	switch role {
	case RoleLandmark:
		storage = NewLandmarkStorage(selfAddr, config.RNGSeed)
	default:
		storage = NewStorage(selfAddr, protocol.NodeCoordinates{PosErr: 1}, config.RNGSeed)
	}

	stats := NewStats()
	receiver := NewReceiver(storage, transport, config.Name, role, config.MaxNeighbours, stats)

	a := &Agent{
		config:    config,
		role:      role,
		storage:   storage,
		transport: transport,
		stats:     stats,
		sysstats:  &SysStats{},
		receiver:  receiver,
	}

	if role == RoleRegular {
		var landmarkAddr *net.UDPAddr
		if config.LandmarkAddress != "" {
			landmarkAddr, err = net.ResolveUDPAddr("udp", config.LandmarkAddress)
			if err != nil {
				return nil, fmt.Errorf("resolving landmark_address %q: %w", config.LandmarkAddress, err)
			}
		}
		a.transmitter = NewTransmitter(storage, transport, config.Name, landmarkAddr, config.MaxNeighbours, config.ProbePeriod, stats)
	}

	return a, nil
}

// Storage exposes the node's registry, for the observer package to read.
func (a *Agent) Storage() *Storage { return a.storage }

// Stats exposes the running counters, for the observer package's
// Prometheus exporter.
func (a *Agent) Stats() *Stats { return a.stats }

// Run supervises the Receiver's read loop, the Transmitter's probe loop
// (regular nodes only), and a periodic debug sweep logging table size and
// oldest-known-peer age. It returns when ctx is cancelled or any supervised
// goroutine returns a non-nil error.
func (a *Agent) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.receiver.Run(gctx)
	})

	if a.transmitter != nil {
		g.Go(func() error {
			return a.transmitter.Run(gctx)
		})
	}

	g.Go(func() error {
		return a.runLivenessSweep(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// runLivenessSweep logs table size and oldest-peer age every
// MetricsInterval, purely for observability: it never evicts entries
// (§4.3 "the table never purges on its own").
func (a *Agent) runLivenessSweep(ctx context.Context) error {
	interval := a.config.MetricsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n := a.storage.Len()
			oldest := a.storage.OldestLastUpdated()
			var age time.Duration
			if oldest > 0 {
				age = time.Since(time.Unix(oldest, 0))
			}
			log.Debugf("storage: %d known peers, oldest entry age %s", n, age)
			if stats, err := a.sysstats.CollectRuntimeStats(); err == nil {
				for k, v := range stats {
					a.stats.Set(key("sys", k), int64(v))
				}
			}
		}
	}
}

// Close releases the underlying transport.
func (a *Agent) Close() error {
	return a.transport.Close()
}
