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
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/eclesh/welford"

	"github.com/dgtony-netloc/netloc/protocol"
)

// Storage is the single per-process concurrent registry of known peers
// plus this node's own coordinates. Every exported method is a short
// critical section guarded by one mutex (§5): no I/O, no sleeps while
// holding the lock.
type Storage struct {
	mu sync.Mutex

	selfAddr string
	location protocol.NodeCoordinates

	nodes map[string]*Node

	// rttStats is a domain-stack addition (SPEC_FULL §DOMAIN STACK):
	// a running mean/variance of measured RTT per peer, kept alongside
	// the Vivaldi confidence rather than replacing it.
	rttStats map[string]*welford.Stats

	rng *rand.Rand

	// landmark is true for Storage instances backing a landmark node:
	// UpdateLocation refuses to run against them (§4.3).
	landmark bool
}

// NewStorage creates Storage for a regular node, starting at the given
// initial coordinates (normally PosErr=1, everything else zero) with a
// seedable RNG so tests can be made deterministic.
func NewStorage(selfAddr string, initial protocol.NodeCoordinates, seed int64) *Storage {
	return &Storage{
		selfAddr: selfAddr,
		location: initial,
		nodes:    map[string]*Node{},
		rttStats: map[string]*welford.Stats{},
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// NewLandmarkStorage creates Storage pinned at the origin with zero
// position error, as required of the landmark role (§4.6).
func NewLandmarkStorage(selfAddr string, seed int64) *Storage {
	s := NewStorage(selfAddr, protocol.OriginCoordinates(), seed)
	s.landmark = true
	return s
}

// AddNode inserts or replaces the record keyed on (ip, port). The
// previous name, location and timestamp are discarded; LastUpdatedSec is
// set to now.
func (s *Storage) AddNode(info protocol.NodeInfo, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[info.Addr()] = &Node{Info: info, LastUpdatedSec: now.Unix()}
}

// GetRandomNodes returns up to max distinct NodeInfo values sampled
// without replacement from the peers whose (ip, port) is not in exclude.
// It returns nil if the filtered set is empty or max is 0.
func (s *Storage) GetRandomNodes(max int, exclude map[string]struct{}) []protocol.NodeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		return nil
	}
	idx := make([]string, 0, len(s.nodes))
	for addr := range s.nodes {
		if _, excluded := exclude[addr]; excluded {
			continue
		}
		idx = append(idx, addr)
	}
	if len(idx) == 0 {
		return nil
	}
	// filtered Fisher-Yates over the collected index array (§9).
	s.rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	if max > len(idx) {
		max = len(idx)
	}
	out := make([]protocol.NodeInfo, 0, max)
	for _, addr := range idx[:max] {
		out = append(out, s.nodes[addr].Info)
	}
	return out
}

// GetMostRecent returns up to max records ordered by LastUpdatedSec
// descending. Tie-break among equal timestamps is unspecified.
func (s *Storage) GetMostRecent(max int) []protocol.NodeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		return nil
	}
	all := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastUpdatedSec > all[j].LastUpdatedSec })
	if max > len(all) {
		max = len(all)
	}
	out := make([]protocol.NodeInfo, 0, max)
	for _, n := range all[:max] {
		out = append(out, n.Info)
	}
	return out
}

// GetAllNodes returns a snapshot copy of every record.
func (s *Storage) GetAllNodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	return out
}

// FindNode returns the record at addr ("ip:port"), or false if unknown.
func (s *Storage) FindNode(addr string) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[addr]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Len reports how many peers are currently known, for the periodic
// liveness sweep log line (SPEC_FULL §4.3) and for metrics.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// OldestLastUpdated returns the smallest LastUpdatedSec across all
// peers, or zero if Storage is empty.
func (s *Storage) OldestLastUpdated() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest int64
	first := true
	for _, n := range s.nodes {
		if first || n.LastUpdatedSec < oldest {
			oldest = n.LastUpdatedSec
			first = false
		}
	}
	return oldest
}

// GetLocation reads the local coordinates.
func (s *Storage) GetLocation() protocol.NodeCoordinates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// SetLocation replaces the local coordinates wholesale.
func (s *Storage) SetLocation(c protocol.NodeCoordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = c
}

// UpdateLocation converts rtt to seconds-as-float, runs the Vivaldi engine
// against the current local coordinates, and stores the result. It is a
// no-op on landmark Storage, which must never update its pinned origin.
func (s *Storage) UpdateLocation(received protocol.NodeCoordinates, rtt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.landmark {
		return
	}
	rttSeconds := rtt.Seconds()
	if rttSeconds <= 0 {
		return
	}
	s.location = vivaldiUpdate(s.location, received, rttSeconds, s.rng)
}

// RecordRTT folds a newly measured RTT into the running mean/variance
// kept for that peer.
func (s *Storage) RecordRTT(addr string, rtt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.rttStats[addr]
	if !ok {
		acc = welford.New()
		s.rttStats[addr] = acc
	}
	acc.Add(rtt.Seconds())
}

// RTTStats returns the running mean and variance of measured RTT (in
// seconds) for a peer, and whether any samples have been recorded.
func (s *Storage) RTTStats(addr string) (mean, variance float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, found := s.rttStats[addr]
	if !found || acc.Count() == 0 {
		return 0, 0, false
	}
	return acc.Mean(), acc.Variance(), true
}

// SelfAddr returns this node's own "ip:port", used to exclude self from
// gossip samples.
func (s *Storage) SelfAddr() string {
	return s.selfAddr
}
