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
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Default UDP ports, see §6.
const (
	DefaultRegularPort   = 3737
	DefaultLandmarkPort  = 3738
	DefaultBootstrapPort = 3739
)

// Config carries everything an implementation must accept per §6: a
// listen address/port, this node's name, a probe period, a log level, and
// a landmark address (ignored on the landmark itself).
type Config struct {
	ListenAddress   string        `yaml:"listen_address"`
	ListenPort      int           `yaml:"listen_port"`
	Name            string        `yaml:"name"`
	ProbePeriod     time.Duration `yaml:"probe_period"`
	LogLevel        string        `yaml:"log_level"`
	LandmarkAddress string        `yaml:"landmark_address"`
	MaxNeighbours   int           `yaml:"max_neighbours"`
	MonitoringPort  int           `yaml:"monitoring_port"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
	RNGSeed         int64         `yaml:"rng_seed"`
}

// DefaultConfig returns a Config with the sane defaults used when a field
// is left unset.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:   "0.0.0.0",
		ListenPort:      DefaultRegularPort,
		ProbePeriod:     2 * time.Second,
		LogLevel:        "info",
		MaxNeighbours:   4,
		MonitoringPort:  4737,
		MetricsInterval: 60 * time.Second,
		RNGSeed:         time.Now().UnixNano(),
	}
}

// ReadConfig reads and validates config from a yaml file.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return c, nil
}

// Validate checks the config is sane before an Agent is built from it.
func (c *Config) Validate() error {
	if c.ProbePeriod <= 0 {
		return fmt.Errorf("probe_period must be positive")
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be a valid port number")
	}
	if c.MaxNeighbours < 0 {
		return fmt.Errorf("max_neighbours must be 0 or positive")
	}
	if len(c.Name) > 254 {
		return fmt.Errorf("name must be at most 254 bytes")
	}
	if c.LandmarkAddress != "" {
		host, port, err := net.SplitHostPort(c.LandmarkAddress)
		if err != nil {
			return fmt.Errorf("landmark_address %q: %w", c.LandmarkAddress, err)
		}
		if host == "" || port == "" {
			return fmt.Errorf("landmark_address %q: missing host or port", c.LandmarkAddress)
		}
	}
	return nil
}
