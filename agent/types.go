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

// Package agent implements the netloc node: a concurrent Storage registry,
// the Vivaldi coordinate update rule, and the Transmitter/Receiver pair
// that drive the probe/gossip protocol over a shared UDP socket.
package agent

import (
	"github.com/dgtony-netloc/netloc/protocol"
)

// Role selects which of the three behaviours an Agent plays. The source
// drafts modelled this as an AgentType/NodeType class hierarchy; here it is
// a plain enum dispatched on with a switch, per the Design Notes.
type Role int

// The three node roles.
const (
	// RoleRegular probes, receives probes, updates coordinates, gossips.
	RoleRegular Role = iota
	// RoleLandmark is fixed at the origin, answers probes and bootstrap
	// requests, but never probes and never updates its own coordinates.
	RoleLandmark
	// RoleBootstrap is the optional standalone extension from §4.6: it
	// answers BootstrapRequest/BootstrapResponse only, taking no part in
	// the probe exchange.
	RoleBootstrap
)

func (r Role) String() string {
	switch r {
	case RoleRegular:
		return "regular"
	case RoleLandmark:
		return "landmark"
	case RoleBootstrap:
		return "bootstrap"
	default:
		return "unknown"
	}
}

// Node is a storage entry: a NodeInfo plus the epoch second it was
// inserted or last refreshed. Hash/equality for the set this lives in is
// on (ip, port) only, via the map key, not on these struct fields.
type Node struct {
	Info           protocol.NodeInfo
	LastUpdatedSec int64
}
