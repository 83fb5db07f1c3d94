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

// Package protocol implements the binary wire format shared by every netloc
// message: the NodeCoordinates record, the NodeInfo gossip record, and the
// four UDP message variants built on top of them.
package protocol

import (
	"fmt"
	"net"
)

// MaxNameLength is the largest short-string length the single-byte length
// prefix can carry. 255 is reserved and unused.
const MaxNameLength = 254

// GossipMaxNeighboursInMsg bounds how many NodeInfo records ride along with
// a single probe or response, keeping every datagram well under the 1500
// byte MTU assumption.
const GossipMaxNeighboursInMsg = 4

// addrTypeIPv4 and addrTypeIPv6 are the two values of the low bit of the
// NodeInfo flags byte.
const (
	addrTypeIPv4 byte = 0
	addrTypeIPv6 byte = 1
)

// NodeCoordinates is a node's position in the height-augmented synthetic
// coordinate space, plus the bookkeeping the Vivaldi engine needs.
type NodeCoordinates struct {
	X1        float32
	X2        float32
	Height    float32
	PosErr    float32
	Iteration uint64
}

// OriginCoordinates returns the coordinates a landmark is pinned to: the
// origin, perfect confidence, and a fresh iteration counter.
func OriginCoordinates() NodeCoordinates {
	return NodeCoordinates{}
}

// NodeInfo is the gossip record for one peer. Identity is (IP, Port); Name
// and Location are informational and may be overwritten on reinsertion.
type NodeInfo struct {
	IP       net.IP
	Port     uint16
	Name     string
	Location NodeCoordinates
}

// Addr returns the "ip:port" string that identifies this NodeInfo, suitable
// as a Storage map key.
func (n NodeInfo) Addr() string {
	return net.JoinHostPort(n.IP.String(), fmt.Sprintf("%d", n.Port))
}

// UDPAddr converts the NodeInfo's address into a *net.UDPAddr for sending.
func (n NodeInfo) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: n.IP, Port: int(n.Port)}
}

// NodeInfoFromUDPAddr builds a NodeInfo around a peer's address and
// advertised name; Location is left zero for the caller to fill in.
func NodeInfoFromUDPAddr(addr *net.UDPAddr, name string) NodeInfo {
	return NodeInfo{IP: addr.IP, Port: uint16(addr.Port), Name: name}
}
