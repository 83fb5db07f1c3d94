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
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgtony-netloc/netloc/protocol"
)

func TestVivaldiUpdateNeverProducesNaNOrInf(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	local := protocol.NodeCoordinates{PosErr: 1}
	remote := protocol.NodeCoordinates{X1: 0.3, X2: -0.1, Height: 0.01, PosErr: 1}

	for i := 0; i < 1000; i++ {
		rtt := 0.001 + rng.Float64()*0.2
		local = vivaldiUpdate(local, remote, rtt, rng)
		require.False(t, math.IsNaN(float64(local.X1)))
		require.False(t, math.IsNaN(float64(local.X2)))
		require.False(t, math.IsNaN(float64(local.Height)))
		require.False(t, math.IsNaN(float64(local.PosErr)))
		require.False(t, math.IsInf(float64(local.X1), 0))
		require.GreaterOrEqual(t, local.PosErr, float32(0))
		require.LessOrEqual(t, local.PosErr, float32(1))
		require.GreaterOrEqual(t, local.Height, float32(0))
	}
}

func TestVivaldiCoincidentNodesSeparate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	local := protocol.NodeCoordinates{PosErr: 1}
	remote := protocol.NodeCoordinates{PosErr: 1}

	local = vivaldiUpdate(local, remote, 0.05, rng)
	require.False(t, local.X1 == 0 && local.X2 == 0, "coincident nodes must begin to separate after one update")
}

func TestVivaldiConfidenceDecreasesWithConsistentSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	local := protocol.NodeCoordinates{PosErr: 1}
	remote := protocol.NodeCoordinates{X1: 1, PosErr: 0.1}

	// Perfectly consistent RTT samples (equal to the true distance) should
	// drive the sample error, and thus PosErr, toward zero over time.
	trueDistance := distance(local, remote)
	for i := 0; i < 200; i++ {
		local = vivaldiUpdate(local, remote, trueDistance, rng)
	}
	require.Less(t, local.PosErr, float32(0.5))
}

func TestVivaldiUpdateIncrementsIteration(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	local := protocol.NodeCoordinates{PosErr: 1, Iteration: 5}
	remote := protocol.NodeCoordinates{X1: 1, PosErr: 1}

	updated := vivaldiUpdate(local, remote, 0.02, rng)
	require.Equal(t, uint64(6), updated.Iteration)
}

func TestDistanceIncludesHeights(t *testing.T) {
	a := protocol.NodeCoordinates{X1: 0, X2: 0, Height: 0.01}
	b := protocol.NodeCoordinates{X1: 3, X2: 4, Height: 0.02}
	require.InDelta(t, 5.03, distance(a, b), 1e-9)
}

func TestUnitDirectionFallsBackForCoincidentPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	a := protocol.NodeCoordinates{X1: 1, X2: 1}
	b := protocol.NodeCoordinates{X1: 1, X2: 1}
	ux, uy := unitDirection(a, b, rng)
	norm := math.Sqrt(ux*ux + uy*uy)
	require.InDelta(t, 1.0, norm, 1e-9)
}

func TestClampPosErr(t *testing.T) {
	require.Equal(t, float32(0), clampPosErr(-1))
	require.Equal(t, float32(1), clampPosErr(2))
	require.Equal(t, float32(0.5), clampPosErr(0.5))
}
