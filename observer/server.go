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

package observer

import (
	"bufio"
	"context"
	"encoding/json"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/dgtony-netloc/netloc/agent"
)

// Server is the JSON-over-TCP observer endpoint of §6. Each accepted
// connection runs its own single-threaded request/response loop, reading
// one JSON object per line and acquiring Storage's own lock per request —
// no connection ever holds Storage locked across I/O.
type Server struct {
	storage  *agent.Storage
	listener net.Listener
}

// NewServer wraps an already-bound net.Listener. Use Listen for the
// common case of binding a TCP address.
func NewServer(storage *agent.Storage, listener net.Listener) *Server {
	return &Server{storage: storage, listener: listener}
}

// Listen binds address and returns a Server ready for Run.
func Listen(storage *agent.Storage, address string) (*Server, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return NewServer(storage, l), nil
}

// Run accepts connections until ctx is cancelled or the listener errors.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			log.Debugf("observer: malformed request from %s: %v", conn.RemoteAddr(), err)
			_ = enc.Encode(Response{Type: "error", Error: ErrBadRequest})
			continue
		}
		resp := s.handle(req)
		if err := enc.Encode(resp); err != nil {
			log.Debugf("observer: failed to write response to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	switch req.Action {
	case ActionGetLocation:
		return s.handleGetLocation()
	case ActionGetFullMap:
		return s.handleGetFullMap()
	case ActionGetNodeInfo:
		return s.handleGetNodeInfo(req.Addr)
	case ActionGetRecentNodes:
		return s.handleGetRecentNodes(req.Max)
	default:
		return Response{Type: "error", Error: ErrBadRequest}
	}
}

func (s *Server) handleGetLocation() Response {
	loc := s.storage.GetLocation()
	return Response{Type: ActionGetLocation, Location: &loc}
}

func (s *Server) handleGetFullMap() Response {
	all := s.storage.GetAllNodes()
	if len(all) == 0 {
		return Response{Type: "error", Error: ErrNoInformation}
	}
	nodes := make([]NodeView, 0, len(all))
	for _, n := range all {
		nodes = append(nodes, s.toView(n))
	}
	return Response{Type: ActionGetFullMap, Nodes: nodes}
}

func (s *Server) handleGetNodeInfo(addr string) Response {
	if addr == "" {
		return Response{Type: "error", Error: ErrBadRequest}
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return Response{Type: "error", Error: ErrBadNodeAddr}
	}
	n, ok := s.storage.FindNode(addr)
	if !ok {
		return Response{Type: "error", Error: ErrNodeNotFound}
	}
	view := s.toView(n)
	return Response{Type: ActionGetNodeInfo, Node: &view}
}

func (s *Server) handleGetRecentNodes(max int) Response {
	if max <= 0 {
		return Response{Type: "error", Error: ErrBadRequest}
	}
	recent := s.storage.GetMostRecent(max)
	if len(recent) == 0 {
		return Response{Type: "error", Error: ErrNoInformation}
	}
	nodes := make([]NodeView, 0, len(recent))
	for _, info := range recent {
		n, ok := s.storage.FindNode(info.Addr())
		if !ok {
			continue
		}
		nodes = append(nodes, s.toView(n))
	}
	return Response{Type: ActionGetRecentNodes, Nodes: nodes}
}

func (s *Server) toView(n agent.Node) NodeView {
	view := NodeView{
		Addr:           n.Info.Addr(),
		Name:           n.Info.Name,
		Location:       n.Info.Location,
		LastUpdatedSec: n.LastUpdatedSec,
	}
	if mean, variance, ok := s.storage.RTTStats(n.Info.Addr()); ok {
		view.RTTMeanSec = mean
		view.RTTVarianceSec = variance
	}
	return view
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}
