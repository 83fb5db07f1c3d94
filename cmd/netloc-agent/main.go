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

// netloc-agent is the regular-node process entrypoint: it probes random
// peers, updates its Vivaldi coordinates, gossips, and serves the JSON
// observer interface and a Prometheus /metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dgtony-netloc/netloc/agent"
	"github.com/dgtony-netloc/netloc/observer"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; flags below override it")
	listenAddress := flag.String("listen-address", "", "UDP listen address")
	listenPort := flag.Int("listen-port", 0, "UDP listen port")
	name := flag.String("name", "", "this node's advertised name")
	probePeriod := flag.Duration("probe-period", 0, "interval between outgoing probes")
	logLevel := flag.String("log-level", "", "logrus level: debug, info, warning, error")
	landmarkAddress := flag.String("landmark-address", "", "landmark's UDP address, host:port")
	maxNeighbours := flag.Int("max-neighbours", 0, "gossip fan-out per probe/response")
	monitoringAddress := flag.String("monitoring-address", "", "address for the JSON observer endpoint")
	flag.Parse()

	config, err := prepareConfig(*configPath, *listenAddress, *listenPort, *name, *probePeriod, *logLevel, *landmarkAddress, *maxNeighbours)
	if err != nil {
		log.Fatalf("preparing config: %v", err)
	}
	if config.LandmarkAddress == "" {
		log.Fatalf("landmark-address is required for a regular node")
	}

	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		log.Fatalf("parsing log level %q: %v", config.LogLevel, err)
	}
	log.SetLevel(level)

	a, err := agent.NewAgent(config, agent.RoleRegular)
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

	log.Infof("netloc-agent %q listening on %s:%d, landmark %s", config.Name, config.ListenAddress, config.ListenPort, config.LandmarkAddress)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("agent run loop exited: %v", err)
	}
}

// prepareConfig loads configPath if given, then overlays any non-zero
// flag values on top of it.
func prepareConfig(configPath, listenAddress string, listenPort int, name string, probePeriod time.Duration, logLevel, landmarkAddress string, maxNeighbours int) (*agent.Config, error) {
	var config *agent.Config
	var err error
	if configPath != "" {
		config, err = agent.ReadConfig(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		config = agent.DefaultConfig()
	}

	if listenAddress != "" {
		config.ListenAddress = listenAddress
	}
	if listenPort != 0 {
		config.ListenPort = listenPort
	}
	if name != "" {
		config.Name = name
	}
	if probePeriod != 0 {
		config.ProbePeriod = probePeriod
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if landmarkAddress != "" {
		config.LandmarkAddress = landmarkAddress
	}
	if maxNeighbours != 0 {
		config.MaxNeighbours = maxNeighbours
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
