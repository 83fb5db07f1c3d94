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
	"errors"
	"net"
	"sync"
)

// sentDatagram records one WriteToUDP call, for assertions in tests.
type sentDatagram struct {
	payload []byte
	to      *net.UDPAddr
}

// mockTransport is a hand-written Transport double: WriteToUDP records
// the datagram instead of sending it, and ReadFromUDP serves datagrams
// pushed onto inbound until it is closed, then returns an error so any
// Receiver.Run loop reading from it terminates.
type mockTransport struct {
	mu       sync.Mutex
	sent     []sentDatagram
	inbound  chan inboundDatagram
	closed   bool
	localUDP *net.UDPAddr
}

type inboundDatagram struct {
	payload []byte
	from    *net.UDPAddr
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		inbound:  make(chan inboundDatagram, 16),
		localUDP: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1},
	}
}

func (m *mockTransport) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	m.sent = append(m.sent, sentDatagram{payload: cp, to: addr})
	return len(b), nil
}

func (m *mockTransport) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	dg, ok := <-m.inbound
	if !ok {
		return 0, nil, errors.New("mock transport closed")
	}
	n := copy(b, dg.payload)
	return n, dg.from, nil
}

func (m *mockTransport) LocalAddr() net.Addr { return m.localUDP }

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.inbound)
	}
	return nil
}

// deliver pushes an inbound datagram as though it arrived from addr.
func (m *mockTransport) deliver(payload []byte, from *net.UDPAddr) {
	m.inbound <- inboundDatagram{payload: payload, from: from}
}

func (m *mockTransport) sentDatagrams() []sentDatagram {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentDatagram, len(m.sent))
	copy(out, m.sent)
	return out
}
