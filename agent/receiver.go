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
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dgtony-netloc/netloc/protocol"
)

// maxDatagramSize is the buffer size used for every recv, per §4.5 and
// the 1500 byte MTU assumption of §4.1.
const maxDatagramSize = 1500

// Receiver is the blocking read loop on the shared UDP socket. It
// demultiplexes incoming datagrams by their first byte and dispatches to
// the handler for that message type, mutating Storage as it goes.
type Receiver struct {
	storage       *Storage
	transport     Transport
	name          string
	role          Role
	maxNeighbours int
	stats         StatsSink
}

// NewReceiver builds a Receiver. role governs which message types it will
// act on (§4.6): landmark/bootstrap roles answer BootstrapRequest,
// regular nodes answer BootstrapResponse and ProbeResponse, and both
// regular and landmark roles answer ProbeRequest.
func NewReceiver(storage *Storage, transport Transport, name string, role Role, maxNeighbours int, stats StatsSink) *Receiver {
	return &Receiver{
		storage:       storage,
		transport:     transport,
		name:          name,
		role:          role,
		maxNeighbours: maxNeighbours,
		stats:         stats,
	}
}

// Run blocks reading datagrams until ctx is cancelled or the socket
// returns a fatal error (§7: terminate the node process on an
// unrecoverable recv error; supervision is out of scope).
func (r *Receiver) Run(ctx context.Context) error {
	buf := make([]byte, maxDatagramSize)
	done := make(chan error, 1)
	go func() {
		for {
			n, addr, err := r.transport.ReadFromUDP(buf)
			if err != nil {
				done <- err
				return
			}
			r.handleDatagram(buf[:n], addr)
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (r *Receiver) handleDatagram(b []byte, from *net.UDPAddr) {
	msgType, err := protocol.ProbeMsgType(b)
	if err != nil {
		log.Debugf("dropping empty datagram from %s: %v", from, err)
		r.incMalformed()
		return
	}

	switch msgType {
	case protocol.MessageBootstrapRequest:
		r.handleBootstrapRequest(b, from)
	case protocol.MessageBootstrapResponse:
		r.handleBootstrapResponse(b, from)
	case protocol.MessageProbeRequest:
		r.handleProbeRequest(b, from)
	case protocol.MessageProbeResponse:
		r.handleProbeResponse(b, from)
	default:
		log.Debugf("dropping datagram with unknown type %d from %s", msgType, from)
		r.incMalformed()
	}
}

func (r *Receiver) incMalformed() {
	if r.stats != nil {
		r.stats.Inc(CounterMalformedDropped)
	}
}

// gossipExcluding samples up to maxNeighbours peers from Storage,
// excluding target and this node's own listening address (§4.5: "avoids
// telling peers about themselves and avoids self-loops").
func (r *Receiver) gossipExcluding(target string) []protocol.NodeInfo {
	exclude := map[string]struct{}{
		target:               {},
		r.storage.SelfAddr(): {},
	}
	return r.storage.GetRandomNodes(r.maxNeighbours, exclude)
}

// handleBootstrapRequest is answered by landmark and bootstrap roles only.
func (r *Receiver) handleBootstrapRequest(b []byte, from *net.UDPAddr) {
	if r.role == RoleRegular {
		log.Debugf("ignoring BootstrapRequest from %s: not a landmark/bootstrap node", from)
		return
	}
	req, err := protocol.DecodeBootstrapRequest(b)
	if err != nil {
		log.Debugf("malformed BootstrapRequest from %s: %v", from, err)
		r.incMalformed()
		return
	}
	if r.stats != nil {
		r.stats.Inc(CounterBootstrapRequestsRX)
	}

	senderInfo := protocol.NodeInfoFromUDPAddr(from, req.SenderName)
	r.storage.AddNode(senderInfo, time.Now())

	neighbours := r.gossipExcluding(senderInfo.Addr())
	resp := protocol.BootstrapResponse{Neighbours: neighbours}
	rb, err := resp.Encode()
	if err != nil {
		log.Errorf("failed to encode BootstrapResponse: %v", err)
		return
	}
	if _, err := r.transport.WriteToUDP(rb, from); err != nil {
		log.Debugf("failed to send BootstrapResponse to %s: %v", from, err)
		if r.stats != nil {
			r.stats.Inc(CounterSendErrors)
		}
		return
	}
	if r.stats != nil {
		r.stats.Inc(CounterBootstrapResponsesTX)
	}
}

// handleBootstrapResponse is processed by regular nodes only.
func (r *Receiver) handleBootstrapResponse(b []byte, from *net.UDPAddr) {
	if r.role != RoleRegular {
		log.Debugf("ignoring BootstrapResponse from %s: not a regular node", from)
		return
	}
	resp, err := protocol.DecodeBootstrapResponse(b)
	if err != nil {
		log.Debugf("malformed BootstrapResponse from %s: %v", from, err)
		r.incMalformed()
		return
	}
	if r.stats != nil {
		r.stats.Inc(CounterBootstrapResponsesRX)
	}
	now := time.Now()
	for _, n := range resp.Neighbours {
		r.storage.AddNode(n, now)
	}
}

// handleProbeRequest is answered by both regular and landmark roles. The
// standalone bootstrap extension (§4.6) never probes and never expects
// to be probed, so it ignores ProbeRequest entirely.
func (r *Receiver) handleProbeRequest(b []byte, from *net.UDPAddr) {
	if r.role == RoleBootstrap {
		log.Debugf("ignoring ProbeRequest from %s: bootstrap role only answers bootstrap messages", from)
		return
	}
	req, err := protocol.DecodeProbeRequest(b)
	if err != nil {
		log.Debugf("malformed ProbeRequest from %s: %v", from, err)
		r.incMalformed()
		return
	}
	if r.stats != nil {
		r.stats.Inc(CounterProbesReceived)
	}

	senderInfo := protocol.NodeInfoFromUDPAddr(from, req.SenderName)

	var neighbours []protocol.NodeInfo
	if r.role != RoleLandmark {
		// Landmarks do not gossip back (§4.5).
		neighbours = r.gossipExcluding(senderInfo.Addr())
	}

	resp := protocol.ProbeResponse{
		SentAtSec:      req.SentAtSec,
		SentAtNsec:     req.SentAtNsec,
		RespondentName: r.name,
		Location:       r.storage.GetLocation(),
		Neighbours:     neighbours,
	}
	rb, err := resp.Encode()
	if err != nil {
		log.Errorf("failed to encode ProbeResponse: %v", err)
		return
	}

	// Insert the sender, then merge its gossip payload (§4.5).
	now := time.Now()
	r.storage.AddNode(senderInfo, now)
	for _, n := range req.Neighbours {
		r.storage.AddNode(n, now)
	}

	if _, err := r.transport.WriteToUDP(rb, from); err != nil {
		log.Debugf("failed to send ProbeResponse to %s: %v", from, err)
		if r.stats != nil {
			r.stats.Inc(CounterSendErrors)
		}
		return
	}
	if r.stats != nil {
		r.stats.Inc(CounterResponsesSent)
	}
}

// handleProbeResponse is processed by regular nodes only; landmarks never
// send ProbeRequests and so never expect a response.
func (r *Receiver) handleProbeResponse(b []byte, from *net.UDPAddr) {
	receivedAt := time.Now()
	if r.role != RoleRegular {
		log.Debugf("ignoring ProbeResponse from %s: not a regular node", from)
		return
	}
	resp, err := protocol.DecodeProbeResponse(b)
	if err != nil {
		log.Debugf("malformed ProbeResponse from %s: %v", from, err)
		r.incMalformed()
		return
	}
	if r.stats != nil {
		r.stats.Inc(CounterResponsesReceived)
	}

	sentAt := time.Unix(int64(resp.SentAtSec), int64(resp.SentAtNsec))
	if sentAt.After(receivedAt) {
		// Clock stepped backward: discard the RTT but still merge gossip
		// (§4.5, §7 "Clock anomaly").
		log.Debugf("discarding RTT from %s: sent_at %s is after received_at %s", from, sentAt, receivedAt)
		if r.stats != nil {
			r.stats.Inc(CounterClockAnomalies)
		}
	} else {
		rtt := receivedAt.Sub(sentAt)
		r.storage.UpdateLocation(resp.Location, rtt)
		respondentAddr := net.JoinHostPort(from.IP.String(), strconv.Itoa(from.Port))
		r.storage.RecordRTT(respondentAddr, rtt)
	}

	respondent := protocol.NodeInfoFromUDPAddr(from, resp.RespondentName)
	respondent.Location = resp.Location
	now := time.Now()
	r.storage.AddNode(respondent, now)
	for _, n := range resp.Neighbours {
		r.storage.AddNode(n, now)
	}
}
