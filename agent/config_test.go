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
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := DefaultConfig()
	c.Name = "node-1"
	c.LandmarkAddress = "10.0.0.1:3738"
	return c
}

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateAcceptsEmptyLandmarkAddress(t *testing.T) {
	c := validConfig()
	c.LandmarkAddress = ""
	require.NoError(t, c.Validate())
}

func TestValidateRejectsNonPositiveProbePeriod(t *testing.T) {
	c := validConfig()
	c.ProbePeriod = 0
	require.Error(t, c.Validate())
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	c := validConfig()
	c.ListenPort = 0
	require.Error(t, c.Validate())

	c.ListenPort = 70000
	require.Error(t, c.Validate())
}

func TestValidateRejectsNegativeMaxNeighbours(t *testing.T) {
	c := validConfig()
	c.MaxNeighbours = -1
	require.Error(t, c.Validate())
}

func TestValidateRejectsOverlongName(t *testing.T) {
	c := validConfig()
	name := make([]byte, 255)
	for i := range name {
		name[i] = 'a'
	}
	c.Name = string(name)
	require.Error(t, c.Validate())
}

func TestValidateRejectsUnparsableLandmarkAddress(t *testing.T) {
	c := validConfig()
	c.LandmarkAddress = "not-a-host-port"
	require.Error(t, c.Validate())
}

func TestValidateRejectsLandmarkAddressMissingPort(t *testing.T) {
	c := validConfig()
	c.LandmarkAddress = "10.0.0.1"
	require.Error(t, c.Validate())
}
