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

// netloc-landmark is the landmark-node process entrypoint: pinned at the
// coordinate origin, it only ever answers probes and bootstrap requests
// (§4.6); it never runs a Transmitter and never updates its coordinates.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/dgtony-netloc/netloc/agent"
	"github.com/dgtony-netloc/netloc/observer"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; flags below override it")
	listenAddress := flag.String("listen-address", "", "UDP listen address")
	listenPort := flag.Int("listen-port", 0, "UDP listen port")
	name := flag.String("name", "", "this node's advertised name")
	logLevel := flag.String("log-level", "", "logrus level: debug, info, warning, error")
	maxNeighbours := flag.Int("max-neighbours", 0, "gossip fan-out per probe/response")
	monitoringAddress := flag.String("monitoring-address", "", "address for the JSON observer endpoint")
	flag.Parse()

	var config *agent.Config
	var err error
	if *configPath != "" {
		config, err = agent.ReadConfig(*configPath)
		if err != nil {
			log.Fatalf("reading config: %v", err)
		}
	} else {
		config = agent.DefaultConfig()
		config.ListenPort = agent.DefaultLandmarkPort
	}
	if *listenAddress != "" {
		config.ListenAddress = *listenAddress
	}
	if *listenPort != 0 {
		config.ListenPort = *listenPort
	}
	if *name != "" {
		config.Name = *name
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if *maxNeighbours != 0 {
		config.MaxNeighbours = *maxNeighbours
	}
	if err := config.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		log.Fatalf("parsing log level %q: %v", config.LogLevel, err)
	}
	log.SetLevel(level)

	a, err := agent.NewAgent(config, agent.RoleLandmark)
	if err != nil {
		log.Fatalf("starting agent: %v", err)
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	monitoringAddr := *monitoringAddress
	if monitoringAddr == "" {
		monitoringAddr = fmt.Sprintf(":%d", config.MonitoringPort)
	}
	obsServer, err := observer.Listen(a.Storage(), monitoringAddr)
	if err != nil {
		log.Fatalf("starting observer server: %v", err)
	}
	go func() {
		if err := obsServer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("observer server stopped: %v", err)
		}
	}()

	exporter := observer.NewPrometheusExporter(a.Storage(), a.Stats())
	go func() {
		metricsAddr := fmt.Sprintf(":%d", config.MonitoringPort+1)
		if err := exporter.Start(ctx, metricsAddr); err != nil {
			log.Errorf("prometheus exporter stopped: %v", err)
		}
	}()

	log.Infof("netloc-landmark %q listening on %s:%d", config.Name, config.ListenAddress, config.ListenPort)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("agent run loop exited: %v", err)
	}
}
