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

package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"unicode/utf8"
)

// MessageType is the one-byte wire tag every netloc datagram begins with.
type MessageType byte

// Wire message type codes, see §4.1.
const (
	MessageBootstrapRequest  MessageType = 1
	MessageBootstrapResponse MessageType = 2
	MessageProbeRequest      MessageType = 10
	MessageProbeResponse     MessageType = 11
)

func (t MessageType) String() string {
	switch t {
	case MessageBootstrapRequest:
		return "BootstrapRequest"
	case MessageBootstrapResponse:
		return "BootstrapResponse"
	case MessageProbeRequest:
		return "ProbeRequest"
	case MessageProbeResponse:
		return "ProbeResponse"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(t))
	}
}

// ProbeMsgType reads the type tag off a raw datagram without decoding the
// rest of it.
func ProbeMsgType(b []byte) (MessageType, error) {
	if len(b) < 1 {
		return 0, fmt.Errorf("empty buffer")
	}
	return MessageType(b[0]), nil
}

// writeShortString appends the length-prefixed short-string encoding of s
// to buf, returning the number of bytes written.
func writeShortString(buf []byte, s string) (int, error) {
	if len(s) > MaxNameLength {
		return 0, fmt.Errorf("name %q is %d bytes, longer than %d byte limit", s, len(s), MaxNameLength)
	}
	if len(buf) < 1+len(s) {
		return 0, fmt.Errorf("buffer too short for short-string of length %d", len(s))
	}
	buf[0] = byte(len(s))
	copy(buf[1:], s)
	return 1 + len(s), nil
}

// readShortString decodes a length-prefixed short string from the front of
// b, returning the string and how many bytes were consumed.
func readShortString(b []byte) (string, int, error) {
	if len(b) < 1 {
		return "", 0, fmt.Errorf("buffer too short for short-string length prefix")
	}
	l := int(b[0])
	if l > MaxNameLength {
		return "", 0, fmt.Errorf("short-string length %d exceeds %d byte limit", l, MaxNameLength)
	}
	if len(b) < 1+l {
		return "", 0, fmt.Errorf("buffer too short: need %d bytes, have %d", 1+l, len(b))
	}
	s := b[1 : 1+l]
	if !utf8.Valid(s) {
		return "", 0, fmt.Errorf("short-string is not valid UTF-8")
	}
	return string(s), 1 + l, nil
}

// nodeInfoSize returns the encoded size of a NodeInfo, which varies with
// the address family and name length.
func nodeInfoSize(n NodeInfo) int {
	addrLen := 4
	if n.IP.To4() == nil {
		addrLen = 16
	}
	return 1 + addrLen + 2 + 1 + len(n.Name) + 4 + 4 + 4 + 4 + 8
}

// EncodeNodeInfo writes the NodeInfo wire layout into buf, returning the
// number of bytes consumed.
func EncodeNodeInfo(buf []byte, n NodeInfo) (int, error) {
	if len(n.Name) > MaxNameLength {
		return 0, fmt.Errorf("name %q is longer than %d bytes", n.Name, MaxNameLength)
	}
	ip4 := n.IP.To4()
	flags := addrTypeIPv4
	addr := []byte(ip4)
	if ip4 == nil {
		ip16 := n.IP.To16()
		if ip16 == nil {
			return 0, fmt.Errorf("invalid IP address %v", n.IP)
		}
		flags = addrTypeIPv6
		addr = []byte(ip16)
	}
	need := nodeInfoSize(n)
	if len(buf) < need {
		return 0, fmt.Errorf("buffer too short: need %d bytes, have %d", need, len(buf))
	}
	off := 0
	buf[off] = flags
	off++
	off += copy(buf[off:], addr)
	binary.BigEndian.PutUint16(buf[off:], n.Port)
	off += 2
	nw, err := writeShortString(buf[off:], n.Name)
	if err != nil {
		return 0, err
	}
	off += nw
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(n.Location.X1))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(n.Location.X2))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(n.Location.Height))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(n.Location.PosErr))
	off += 4
	binary.BigEndian.PutUint64(buf[off:], n.Location.Iteration)
	off += 8
	return off, nil
}

// DecodeNodeInfo reads one NodeInfo record off the front of b, returning the
// record and how many bytes were consumed. It never panics on truncated or
// adversarial input.
func DecodeNodeInfo(b []byte) (NodeInfo, int, error) {
	if len(b) < 1 {
		return NodeInfo{}, 0, fmt.Errorf("buffer too short for NodeInfo flags")
	}
	flags := b[0]
	if flags&0xfe != 0 {
		return NodeInfo{}, 0, fmt.Errorf("reserved flag bits set: %#x", flags)
	}
	addrLen := 4
	if flags&1 == addrTypeIPv6 {
		addrLen = 16
	}
	off := 1
	if len(b) < off+addrLen+2 {
		return NodeInfo{}, 0, fmt.Errorf("buffer too short for NodeInfo address/port")
	}
	ip := make(net.IP, addrLen)
	copy(ip, b[off:off+addrLen])
	off += addrLen
	port := binary.BigEndian.Uint16(b[off:])
	off += 2

	name, nread, err := readShortString(b[off:])
	if err != nil {
		return NodeInfo{}, 0, fmt.Errorf("decoding NodeInfo name: %w", err)
	}
	off += nread

	if len(b) < off+24 {
		return NodeInfo{}, 0, fmt.Errorf("buffer too short for NodeInfo coordinates")
	}
	loc := NodeCoordinates{
		X1:     math.Float32frombits(binary.BigEndian.Uint32(b[off:])),
		X2:     math.Float32frombits(binary.BigEndian.Uint32(b[off+4:])),
		Height: math.Float32frombits(binary.BigEndian.Uint32(b[off+8:])),
		PosErr: math.Float32frombits(binary.BigEndian.Uint32(b[off+12:])),
	}
	loc.Iteration = binary.BigEndian.Uint64(b[off+16:])
	off += 24

	return NodeInfo{IP: ip, Port: port, Name: name, Location: loc}, off, nil
}

// decodeGossip consumes as many NodeInfo records as fit in b, up to max,
// stopping silently (not an error) on a partial trailing record.
func decodeGossip(b []byte, max int) []NodeInfo {
	var out []NodeInfo
	off := 0
	for len(out) < max {
		ni, n, err := DecodeNodeInfo(b[off:])
		if err != nil {
			break
		}
		out = append(out, ni)
		off += n
	}
	return out
}

func encodeGossip(buf []byte, neighbours []NodeInfo) (int, error) {
	off := 0
	for _, n := range neighbours {
		nw, err := EncodeNodeInfo(buf[off:], n)
		if err != nil {
			return 0, err
		}
		off += nw
	}
	return off, nil
}
