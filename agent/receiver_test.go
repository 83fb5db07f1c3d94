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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgtony-netloc/netloc/protocol"
)

func remoteAddr(i int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(192, 168, 1, byte(i)), Port: 5000 + i}
}

func TestHandleBootstrapRequestRegularNodeIgnores(t *testing.T) {
	storage := NewStorage("self:1", protocol.OriginCoordinates(), 1)
	transport := newMockTransport()
	r := NewReceiver(storage, transport, "me", RoleRegular, 4, NewStats())

	req := protocol.BootstrapRequest{SenderName: "newcomer"}
	b, err := req.Encode()
	require.NoError(t, err)

	r.handleDatagram(b, remoteAddr(1))
	require.Empty(t, transport.sentDatagrams())
	require.Equal(t, 0, storage.Len(), "a regular node must not register the newcomer it won't answer")
}

func TestHandleBootstrapRequestLandmarkRespondsWithNeighbours(t *testing.T) {
	storage := NewLandmarkStorage("landmark:1", 2)
	transport := newMockTransport()
	stats := NewStats()
	r := NewReceiver(storage, transport, "landmark", RoleLandmark, 4, stats)

	storage.AddNode(peerInfo(9), time.Now())

	req := protocol.BootstrapRequest{SenderName: "newcomer"}
	b, err := req.Encode()
	require.NoError(t, err)
	from := remoteAddr(1)

	r.handleDatagram(b, from)

	sent := transport.sentDatagrams()
	require.Len(t, sent, 1)
	require.Equal(t, from, sent[0].to)

	resp, err := protocol.Decode(sent[0].payload)
	require.NoError(t, err)
	bresp, ok := resp.(protocol.BootstrapResponse)
	require.True(t, ok)
	require.Len(t, bresp.Neighbours, 1)

	_, found := storage.FindNode(protocol.NodeInfoFromUDPAddr(from, "newcomer").Addr())
	require.True(t, found, "the requester must be registered")
	require.EqualValues(t, 1, stats.Get()[CounterBootstrapRequestsRX])
}

func TestHandleBootstrapResponseAddsNeighbours(t *testing.T) {
	storage := NewStorage("self:1", protocol.OriginCoordinates(), 3)
	transport := newMockTransport()
	r := NewReceiver(storage, transport, "me", RoleRegular, 4, NewStats())

	resp := protocol.BootstrapResponse{Neighbours: []protocol.NodeInfo{peerInfo(1), peerInfo(2)}}
	b, err := resp.Encode()
	require.NoError(t, err)

	r.handleDatagram(b, remoteAddr(5))
	require.Equal(t, 2, storage.Len())
}

func TestHandleProbeRequestLandmarkDoesNotGossipAndStaysAtOrigin(t *testing.T) {
	storage := NewLandmarkStorage("landmark:1", 4)
	transport := newMockTransport()
	r := NewReceiver(storage, transport, "landmark", RoleLandmark, 4, NewStats())
	storage.AddNode(peerInfo(1), time.Now())

	from := remoteAddr(2)
	req := protocol.ProbeRequest{SentAtSec: 100, SentAtNsec: 0, SenderName: "peer"}
	b, err := req.Encode()
	require.NoError(t, err)

	r.handleDatagram(b, from)

	sent := transport.sentDatagrams()
	require.Len(t, sent, 1)
	decoded, err := protocol.Decode(sent[0].payload)
	require.NoError(t, err)
	presp := decoded.(protocol.ProbeResponse)
	require.Equal(t, protocol.OriginCoordinates(), presp.Location)
	require.Empty(t, presp.Neighbours, "landmarks never gossip back")
	require.Equal(t, uint64(100), presp.SentAtSec)
}

func TestHandleProbeRequestRegularNodeGossipsExcludingSenderAndSelf(t *testing.T) {
	storage := NewStorage("self:1", protocol.NodeCoordinates{PosErr: 1}, 5)
	transport := newMockTransport()
	r := NewReceiver(storage, transport, "me", RoleRegular, 4, NewStats())

	from := remoteAddr(3)
	sender := protocol.NodeInfoFromUDPAddr(from, "sender")
	storage.AddNode(sender, time.Now())
	storage.AddNode(peerInfo(9), time.Now())

	req := protocol.ProbeRequest{SentAtSec: 1, SentAtNsec: 2, SenderName: "sender"}
	b, err := req.Encode()
	require.NoError(t, err)

	r.handleDatagram(b, from)

	sent := transport.sentDatagrams()
	require.Len(t, sent, 1)
	decoded, err := protocol.Decode(sent[0].payload)
	require.NoError(t, err)
	presp := decoded.(protocol.ProbeResponse)
	for _, n := range presp.Neighbours {
		require.NotEqual(t, sender.Addr(), n.Addr())
		require.NotEqual(t, storage.SelfAddr(), n.Addr())
	}
}

func TestHandleProbeResponseUpdatesLocationAndStoresRespondent(t *testing.T) {
	storage := NewStorage("self:1", protocol.NodeCoordinates{PosErr: 1}, 6)
	transport := newMockTransport()
	r := NewReceiver(storage, transport, "me", RoleRegular, 4, NewStats())

	now := time.Now()
	resp := protocol.ProbeResponse{
		SentAtSec:      uint64(now.Add(-50 * time.Millisecond).Unix()),
		SentAtNsec:     uint32(now.Add(-50 * time.Millisecond).Nanosecond()),
		RespondentName: "respondent",
		Location:       protocol.NodeCoordinates{X1: 0.5, PosErr: 0.2},
	}
	b, err := resp.Encode()
	require.NoError(t, err)

	from := remoteAddr(4)
	r.handleDatagram(b, from)

	_, found := storage.FindNode(protocol.NodeInfoFromUDPAddr(from, "respondent").Addr())
	require.True(t, found)
	require.NotEqual(t, protocol.NodeCoordinates{PosErr: 1}, storage.GetLocation())
}

func TestHandleProbeResponseClockAnomalyDiscardsRTTButStillMerges(t *testing.T) {
	storage := NewStorage("self:1", protocol.NodeCoordinates{PosErr: 1}, 7)
	transport := newMockTransport()
	stats := NewStats()
	r := NewReceiver(storage, transport, "me", RoleRegular, 4, stats)

	future := time.Now().Add(time.Hour)
	resp := protocol.ProbeResponse{
		SentAtSec:      uint64(future.Unix()),
		SentAtNsec:     uint32(future.Nanosecond()),
		RespondentName: "respondent",
		Location:       protocol.NodeCoordinates{X1: 0.5, PosErr: 0.2},
	}
	b, err := resp.Encode()
	require.NoError(t, err)

	before := storage.GetLocation()
	from := remoteAddr(6)
	r.handleDatagram(b, from)

	require.Equal(t, before, storage.GetLocation(), "a sent_at in the future must not feed the Vivaldi update")
	require.EqualValues(t, 1, stats.Get()[CounterClockAnomalies])

	_, found := storage.FindNode(protocol.NodeInfoFromUDPAddr(from, "respondent").Addr())
	require.True(t, found, "gossip/identity must still be merged despite the clock anomaly")
}

func TestHandleMalformedDatagramNeverPanics(t *testing.T) {
	storage := NewStorage("self:1", protocol.OriginCoordinates(), 8)
	transport := newMockTransport()
	stats := NewStats()
	r := NewReceiver(storage, transport, "me", RoleRegular, 4, stats)

	require.NotPanics(t, func() {
		r.handleDatagram(nil, remoteAddr(1))
		r.handleDatagram([]byte{255}, remoteAddr(1))
		r.handleDatagram([]byte{byte(protocol.MessageProbeRequest), 1, 2}, remoteAddr(1))
	})
	require.Greater(t, stats.Get()[CounterMalformedDropped], int64(0))
}
