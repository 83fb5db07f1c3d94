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
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dgtony-netloc/netloc/protocol"
)

// Transmitter is the periodic timer loop of a regular node: each tick it
// picks a target and gossip companions from Storage, assembles a
// ProbeRequest, and sends it. Landmarks never run a Transmitter (§4.6).
type Transmitter struct {
	storage       *Storage
	transport     Transport
	name          string
	landmarkAddr  *net.UDPAddr
	maxNeighbours int
	probePeriod   time.Duration
	stats         StatsSink
}

// NewTransmitter builds a Transmitter for a regular node.
func NewTransmitter(storage *Storage, transport Transport, name string, landmarkAddr *net.UDPAddr, maxNeighbours int, probePeriod time.Duration, stats StatsSink) *Transmitter {
	return &Transmitter{
		storage:       storage,
		transport:     transport,
		name:          name,
		landmarkAddr:  landmarkAddr,
		maxNeighbours: maxNeighbours,
		probePeriod:   probePeriod,
		stats:         stats,
	}
}

// Run loops forever, ticking every probePeriod, until ctx is cancelled.
func (t *Transmitter) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			t.tick()
			timer.Reset(t.probePeriod)
		}
	}
}

// tick picks a target, builds a probe, and sends it. Errors sending are
// logged and dropped (§7): the next tick supersedes any unanswered probe.
func (t *Transmitter) tick() {
	target, gossip := t.chooseTargetAndGossip()
	if target == nil {
		log.Debugf("no target to probe this tick")
		return
	}

	now := time.Now()
	req := protocol.ProbeRequest{
		SentAtSec:  uint64(now.Unix()),
		SentAtNsec: uint32(now.Nanosecond()),
		SenderName: t.name,
		Neighbours: gossip,
	}
	b, err := req.Encode()
	if err != nil {
		log.Errorf("failed to encode ProbeRequest: %v", err)
		return
	}
	if _, err := t.transport.WriteToUDP(b, target); err != nil {
		log.Debugf("failed to send ProbeRequest to %s: %v", target, err)
		if t.stats != nil {
			t.stats.Inc(CounterSendErrors)
		}
		return
	}
	if t.stats != nil {
		t.stats.Inc(CounterProbesSent)
	}
}

// chooseTargetAndGossip implements §4.4 step 1. When Storage has known
// peers it draws maxNeighbours+1 random peers excluding self; the first
// becomes the target and the rest ride along as gossip. The landmark is
// not excluded from this draw — it may occasionally be picked as target,
// which §4.4 calls "fine and beneficial" (see DESIGN.md for why this
// resolves the draft's self-contradictory exclusion wording in favor of
// that remark). When Storage is empty, the landmark is probed directly.
func (t *Transmitter) chooseTargetAndGossip() (*net.UDPAddr, []protocol.NodeInfo) {
	exclude := map[string]struct{}{t.storage.SelfAddr(): {}}
	picked := t.storage.GetRandomNodes(t.maxNeighbours+1, exclude)
	if len(picked) == 0 {
		if t.landmarkAddr == nil {
			return nil, nil
		}
		return t.landmarkAddr, nil
	}
	target := picked[0].UDPAddr()
	gossip := picked[1:]
	if len(gossip) > t.maxNeighbours {
		gossip = gossip[:t.maxNeighbours]
	}
	return target, gossip
}
