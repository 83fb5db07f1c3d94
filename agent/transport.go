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
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Transport abstracts the one shared UDP socket that Transmitter and
// Receiver both hold (§5): it must permit concurrent send and recv.
type Transport interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	LocalAddr() net.Addr
	Close() error
}

// udpTransport wraps a *net.UDPConn.
type udpTransport struct {
	conn *net.UDPConn
}

// ListenUDP binds a UDP socket on address:port and tunes it for a
// many-peers-to-one-socket server: SO_REUSEADDR so a restarted node can
// rebind promptly, and a generous receive buffer so a burst of probes
// doesn't get dropped by the kernel before the Receiver drains it.
func ListenUDP(address string, port int) (Transport, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(address), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding to %s:%d: %w", address, port, err)
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("obtaining raw connection: %w", err)
	}
	var sockErr error
	err = rawConn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		log.Warningf("failed to control socket: %v", err)
	} else if sockErr != nil {
		log.Warningf("failed to set SO_REUSEADDR: %v", sockErr)
	}
	if err := conn.SetReadBuffer(1 << 20); err != nil {
		log.Debugf("failed to set UDP read buffer size: %v", err)
	}

	return &udpTransport{conn: conn}, nil
}

func (t *udpTransport) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	return t.conn.WriteToUDP(b, addr)
}

func (t *udpTransport) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	return t.conn.ReadFromUDP(b)
}

func (t *udpTransport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

func (t *udpTransport) Close() error { return t.conn.Close() }
