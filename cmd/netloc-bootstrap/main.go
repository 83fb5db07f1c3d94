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

// netloc-bootstrap is the optional standalone extension named in §4.6: a
// dedicated rendezvous that speaks only BootstrapRequest/BootstrapResponse,
// for deployments that want to keep the landmark's origin-pinning role
// separate from newcomer admission.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/dgtony-netloc/netloc/agent"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; flags below override it")
	listenAddress := flag.String("listen-address", "", "UDP listen address")
	listenPort := flag.Int("listen-port", 0, "UDP listen port")
	name := flag.String("name", "", "this node's advertised name")
	logLevel := flag.String("log-level", "", "logrus level: debug, info, warning, error")
	maxNeighbours := flag.Int("max-neighbours", 0, "peers offered per BootstrapResponse")
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
		config.ListenPort = agent.DefaultBootstrapPort
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

	a, err := agent.NewAgent(config, agent.RoleBootstrap)
	if err != nil {
		log.Fatalf("starting agent: %v", err)
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Infof("netloc-bootstrap %q listening on %s:%d", config.Name, config.ListenAddress, config.ListenPort)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("agent run loop exited: %v", err)
	}
}
