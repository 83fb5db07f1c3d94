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

func peerInfo(i int) protocol.NodeInfo {
	return protocol.NodeInfo{
		IP:   net.IPv4(10, 0, 0, byte(i)),
		Port: uint16(4000 + i),
		Name: "peer",
	}
}

func TestAddNodeIsKeyedOnIPAndPort(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 1)
	now := time.Now()

	a := peerInfo(1)
	a.Name = "first"
	s.AddNode(a, now)
	require.Equal(t, 1, s.Len())

	b := peerInfo(1)
	b.Name = "second"
	s.AddNode(b, now.Add(time.Second))
	require.Equal(t, 1, s.Len(), "re-adding the same (ip, port) must replace, not duplicate")

	found, ok := s.FindNode(b.Addr())
	require.True(t, ok)
	require.Equal(t, "second", found.Info.Name)
}

func TestGetRandomNodesExcludesGivenSet(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 2)
	now := time.Now()
	for i := 1; i <= 10; i++ {
		s.AddNode(peerInfo(i), now)
	}

	excluded := peerInfo(3).Addr()
	exclude := map[string]struct{}{excluded: {}}

	for i := 0; i < 50; i++ {
		picked := s.GetRandomNodes(5, exclude)
		for _, p := range picked {
			require.NotEqual(t, excluded, p.Addr())
		}
	}
}

func TestGetRandomNodesNeverReturnsDuplicates(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 3)
	now := time.Now()
	for i := 1; i <= 20; i++ {
		s.AddNode(peerInfo(i), now)
	}

	picked := s.GetRandomNodes(20, nil)
	seen := map[string]struct{}{}
	for _, p := range picked {
		_, dup := seen[p.Addr()]
		require.False(t, dup)
		seen[p.Addr()] = struct{}{}
	}
	require.Len(t, picked, 20)
}

func TestGetRandomNodesCapsAtAvailablePeers(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 4)
	now := time.Now()
	s.AddNode(peerInfo(1), now)
	s.AddNode(peerInfo(2), now)

	picked := s.GetRandomNodes(10, nil)
	require.Len(t, picked, 2)
}

func TestGetRandomNodesZeroMaxReturnsNil(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 5)
	s.AddNode(peerInfo(1), time.Now())
	require.Nil(t, s.GetRandomNodes(0, nil))
}

func TestGetMostRecentOrdersDescending(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 6)
	base := time.Now()
	s.AddNode(peerInfo(1), base)
	s.AddNode(peerInfo(2), base.Add(2*time.Second))
	s.AddNode(peerInfo(3), base.Add(1*time.Second))

	recent := s.GetMostRecent(3)
	require.Len(t, recent, 3)
	require.Equal(t, peerInfo(2).Addr(), recent[0].Addr())
	require.Equal(t, peerInfo(3).Addr(), recent[1].Addr())
	require.Equal(t, peerInfo(1).Addr(), recent[2].Addr())
}

func TestOldestLastUpdated(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 7)
	require.Equal(t, int64(0), s.OldestLastUpdated())

	base := time.Now()
	s.AddNode(peerInfo(1), base.Add(5*time.Second))
	s.AddNode(peerInfo(2), base)
	require.Equal(t, base.Unix(), s.OldestLastUpdated())
}

func TestLandmarkStorageNeverUpdatesLocation(t *testing.T) {
	s := NewLandmarkStorage("landmark:1", 8)
	before := s.GetLocation()
	require.Equal(t, protocol.OriginCoordinates(), before)

	s.UpdateLocation(protocol.NodeCoordinates{X1: 5, PosErr: 0.1}, 50*time.Millisecond)
	require.Equal(t, before, s.GetLocation())
}

func TestUpdateLocationIgnoresNonPositiveRTT(t *testing.T) {
	s := NewStorage("self:1", protocol.NodeCoordinates{PosErr: 1}, 9)
	before := s.GetLocation()
	s.UpdateLocation(protocol.NodeCoordinates{PosErr: 1}, 0)
	require.Equal(t, before, s.GetLocation())
	s.UpdateLocation(protocol.NodeCoordinates{PosErr: 1}, -time.Second)
	require.Equal(t, before, s.GetLocation())
}

func TestRecordAndReadRTTStats(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 10)
	addr := peerInfo(1).Addr()

	_, _, ok := s.RTTStats(addr)
	require.False(t, ok)

	s.RecordRTT(addr, 10*time.Millisecond)
	s.RecordRTT(addr, 20*time.Millisecond)
	s.RecordRTT(addr, 30*time.Millisecond)

	mean, variance, ok := s.RTTStats(addr)
	require.True(t, ok)
	require.InDelta(t, 0.02, mean, 1e-9)
	require.Greater(t, variance, 0.0)
}

func TestGetAllNodesSnapshotIsIndependent(t *testing.T) {
	s := NewStorage("self:1", protocol.OriginCoordinates(), 11)
	s.AddNode(peerInfo(1), time.Now())

	snap := s.GetAllNodes()
	require.Len(t, snap, 1)

	s.AddNode(peerInfo(2), time.Now())
	require.Len(t, snap, 1, "earlier snapshot must not observe later mutation")
	require.Equal(t, 2, s.Len())
}
