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

// Package observer is the read-only external collaborator described in
// §6: a newline-delimited-JSON-over-TCP query server reading Storage
// under its own lock, plus a Prometheus exporter surfacing the same
// counters for scraping.
package observer

import "github.com/dgtony-netloc/netloc/protocol"

// Request actions, per §6.
const (
	ActionGetLocation    = "get_location"
	ActionGetFullMap     = "get_full_map"
	ActionGetNodeInfo    = "get_node_info"
	ActionGetRecentNodes = "get_recent_nodes"
)

// Error tags the observer surface is allowed to report, per §7: no
// internal error ever reaches the client.
const (
	ErrBadRequest    = "bad_request"
	ErrBadNodeAddr   = "bad_node_addr"
	ErrNodeNotFound  = "node_not_found"
	ErrNoInformation = "no_information"
)

// Request is one line of client input. Addr and Max are only meaningful
// for get_node_info and get_recent_nodes respectively.
type Request struct {
	Action string `json:"action"`
	Addr   string `json:"addr,omitempty"`
	Max    int    `json:"max,omitempty"`
}

// Response is one line of server output. Type mirrors the request's
// Action on success, or "error" with Error set to one of the tags above.
type Response struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`

	Location *protocol.NodeCoordinates `json:"location,omitempty"`
	Nodes    []NodeView                `json:"nodes,omitempty"`
	Node     *NodeView                 `json:"node,omitempty"`
}

// NodeView is the JSON projection of an agent.Node: a NodeInfo plus its
// last-updated timestamp and (when available) RTT statistics.
type NodeView struct {
	Addr           string                   `json:"addr"`
	Name           string                   `json:"name"`
	Location       protocol.NodeCoordinates `json:"location"`
	LastUpdatedSec int64                    `json:"last_updated_sec"`
	RTTMeanSec     float64                  `json:"rtt_mean_sec,omitempty"`
	RTTVarianceSec float64                  `json:"rtt_variance_sec,omitempty"`
}
