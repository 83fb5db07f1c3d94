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
)

func f32bits(f float32) uint32     { return math.Float32bits(f) }
func f32frombits(u uint32) float32 { return math.Float32frombits(u) }

// Message is implemented by every wire message variant.
type Message interface {
	MessageType() MessageType
	Encode() ([]byte, error)
}

// Decode inspects the first byte of b and decodes the rest according to
// its message type. Unknown type codes and malformed bodies are returned
// as an error; the caller is expected to log and drop per §7, never panic.
func Decode(b []byte) (Message, error) {
	t, err := ProbeMsgType(b)
	if err != nil {
		return nil, err
	}
	switch t {
	case MessageBootstrapRequest:
		return DecodeBootstrapRequest(b)
	case MessageBootstrapResponse:
		return DecodeBootstrapResponse(b)
	case MessageProbeRequest:
		return DecodeProbeRequest(b)
	case MessageProbeResponse:
		return DecodeProbeResponse(b)
	default:
		return nil, fmt.Errorf("unknown message type %d", b[0])
	}
}

// BootstrapRequest is sent by a newcomer to the landmark (or an optional
// dedicated bootstrap node) to ask for an initial set of peers.
type BootstrapRequest struct {
	SenderName string
}

// MessageType implements Message.
func (BootstrapRequest) MessageType() MessageType { return MessageBootstrapRequest }

// Encode serializes a BootstrapRequest.
func (m BootstrapRequest) Encode() ([]byte, error) {
	if len(m.SenderName) > MaxNameLength {
		return nil, fmt.Errorf("sender name %q longer than %d bytes", m.SenderName, MaxNameLength)
	}
	buf := make([]byte, 1+1+len(m.SenderName))
	buf[0] = byte(MessageBootstrapRequest)
	if _, err := writeShortString(buf[1:], m.SenderName); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeBootstrapRequest decodes a BootstrapRequest, assuming b[0] is
// already known to be MessageBootstrapRequest.
func DecodeBootstrapRequest(b []byte) (BootstrapRequest, error) {
	if len(b) < 1 {
		return BootstrapRequest{}, fmt.Errorf("buffer too short for message type")
	}
	name, _, err := readShortString(b[1:])
	if err != nil {
		return BootstrapRequest{}, fmt.Errorf("decoding sender name: %w", err)
	}
	return BootstrapRequest{SenderName: name}, nil
}

// BootstrapResponse carries a set of peers back to a newcomer.
type BootstrapResponse struct {
	Neighbours []NodeInfo
}

// MessageType implements Message.
func (BootstrapResponse) MessageType() MessageType { return MessageBootstrapResponse }

// Encode serializes a BootstrapResponse. Every record in Neighbours is
// written; Encode does not cap the count at GossipMaxNeighboursInMsg, so
// keeping within it is up to the caller assembling Neighbours (decoders
// read at most that many records).
func (m BootstrapResponse) Encode() ([]byte, error) {
	size := 1
	for _, n := range m.Neighbours {
		size += nodeInfoSize(n)
	}
	buf := make([]byte, size)
	buf[0] = byte(MessageBootstrapResponse)
	if _, err := encodeGossip(buf[1:], m.Neighbours); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeBootstrapResponse decodes a BootstrapResponse, consuming NodeInfo
// records until the buffer is exhausted or GossipMaxNeighboursInMsg is hit.
// A partial trailing record ends parsing silently rather than failing.
func DecodeBootstrapResponse(b []byte) (BootstrapResponse, error) {
	if len(b) < 1 {
		return BootstrapResponse{}, fmt.Errorf("buffer too short for message type")
	}
	return BootstrapResponse{Neighbours: decodeGossip(b[1:], GossipMaxNeighboursInMsg)}, nil
}

// ProbeRequest is the periodic probe a regular node sends to a randomly
// chosen peer (or the landmark, when starved of peers).
type ProbeRequest struct {
	SentAtSec  uint64
	SentAtNsec uint32
	SenderName string
	Neighbours []NodeInfo
}

// MessageType implements Message.
func (ProbeRequest) MessageType() MessageType { return MessageProbeRequest }

const probeRequestHeaderSize = 1 + 8 + 4 // type + sent_at_sec + sent_at_nsec

// Encode serializes a ProbeRequest.
func (m ProbeRequest) Encode() ([]byte, error) {
	if len(m.SenderName) > MaxNameLength {
		return nil, fmt.Errorf("sender name %q longer than %d bytes", m.SenderName, MaxNameLength)
	}
	size := probeRequestHeaderSize + 1 + len(m.SenderName)
	for _, n := range m.Neighbours {
		size += nodeInfoSize(n)
	}
	buf := make([]byte, size)
	buf[0] = byte(MessageProbeRequest)
	binary.BigEndian.PutUint64(buf[1:], m.SentAtSec)
	binary.BigEndian.PutUint32(buf[9:], m.SentAtNsec)
	off := probeRequestHeaderSize
	nw, err := writeShortString(buf[off:], m.SenderName)
	if err != nil {
		return nil, err
	}
	off += nw
	if _, err := encodeGossip(buf[off:], m.Neighbours); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeProbeRequest decodes a ProbeRequest.
func DecodeProbeRequest(b []byte) (ProbeRequest, error) {
	if len(b) < probeRequestHeaderSize {
		return ProbeRequest{}, fmt.Errorf("buffer too short for ProbeRequest header")
	}
	m := ProbeRequest{
		SentAtSec:  binary.BigEndian.Uint64(b[1:]),
		SentAtNsec: binary.BigEndian.Uint32(b[9:]),
	}
	name, nread, err := readShortString(b[probeRequestHeaderSize:])
	if err != nil {
		return ProbeRequest{}, fmt.Errorf("decoding sender name: %w", err)
	}
	m.SenderName = name
	off := probeRequestHeaderSize + nread
	m.Neighbours = decodeGossip(b[off:], GossipMaxNeighboursInMsg)
	return m, nil
}

// ProbeResponse answers a ProbeRequest, echoing its timestamp verbatim so
// the initiator can compute RTT against its own clock.
type ProbeResponse struct {
	SentAtSec      uint64
	SentAtNsec     uint32
	RespondentName string
	Location       NodeCoordinates
	Neighbours     []NodeInfo
}

// MessageType implements Message.
func (ProbeResponse) MessageType() MessageType { return MessageProbeResponse }

const probeResponseHeaderSize = 1 + 8 + 4 // type + sent_at_sec + sent_at_nsec
const coordinatesSize = 4 + 4 + 4 + 4 + 8 // x1, x2, height, pos_err, iteration

// Encode serializes a ProbeResponse.
func (m ProbeResponse) Encode() ([]byte, error) {
	if len(m.RespondentName) > MaxNameLength {
		return nil, fmt.Errorf("respondent name %q longer than %d bytes", m.RespondentName, MaxNameLength)
	}
	size := probeResponseHeaderSize + 1 + len(m.RespondentName) + coordinatesSize
	for _, n := range m.Neighbours {
		size += nodeInfoSize(n)
	}
	buf := make([]byte, size)
	buf[0] = byte(MessageProbeResponse)
	binary.BigEndian.PutUint64(buf[1:], m.SentAtSec)
	binary.BigEndian.PutUint32(buf[9:], m.SentAtNsec)
	off := probeResponseHeaderSize
	nw, err := writeShortString(buf[off:], m.RespondentName)
	if err != nil {
		return nil, err
	}
	off += nw
	encodeCoordinates(buf[off:], m.Location)
	off += coordinatesSize
	if _, err := encodeGossip(buf[off:], m.Neighbours); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeProbeResponse decodes a ProbeResponse.
func DecodeProbeResponse(b []byte) (ProbeResponse, error) {
	if len(b) < probeResponseHeaderSize {
		return ProbeResponse{}, fmt.Errorf("buffer too short for ProbeResponse header")
	}
	m := ProbeResponse{
		SentAtSec:  binary.BigEndian.Uint64(b[1:]),
		SentAtNsec: binary.BigEndian.Uint32(b[9:]),
	}
	name, nread, err := readShortString(b[probeResponseHeaderSize:])
	if err != nil {
		return ProbeResponse{}, fmt.Errorf("decoding respondent name: %w", err)
	}
	m.RespondentName = name
	off := probeResponseHeaderSize + nread
	if len(b) < off+coordinatesSize {
		return ProbeResponse{}, fmt.Errorf("buffer too short for ProbeResponse coordinates")
	}
	m.Location = decodeCoordinates(b[off:])
	off += coordinatesSize
	m.Neighbours = decodeGossip(b[off:], GossipMaxNeighboursInMsg)
	return m, nil
}

func encodeCoordinates(buf []byte, c NodeCoordinates) {
	binary.BigEndian.PutUint32(buf, f32bits(c.X1))
	binary.BigEndian.PutUint32(buf[4:], f32bits(c.X2))
	binary.BigEndian.PutUint32(buf[8:], f32bits(c.Height))
	binary.BigEndian.PutUint32(buf[12:], f32bits(c.PosErr))
	binary.BigEndian.PutUint64(buf[16:], c.Iteration)
}

func decodeCoordinates(b []byte) NodeCoordinates {
	return NodeCoordinates{
		X1:        f32frombits(binary.BigEndian.Uint32(b)),
		X2:        f32frombits(binary.BigEndian.Uint32(b[4:])),
		Height:    f32frombits(binary.BigEndian.Uint32(b[8:])),
		PosErr:    f32frombits(binary.BigEndian.Uint32(b[12:])),
		Iteration: binary.BigEndian.Uint64(b[16:]),
	}
}
