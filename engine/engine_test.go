// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"math"
	"testing"

	"github.com/ccnlab/microcircuit/congen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelConfig(t *testing.T) {
	var kc KernelConfig
	kc.Defaults()
	assert.Equal(t, 1.0, kc.Resolution)
	assert.Equal(t, 1000000, kc.MaxCycles)
	require.NoError(t, kc.Validate())

	bad := KernelConfig{Resolution: -1, MaxCycles: 100}
	require.Error(t, bad.Validate())
	bad = KernelConfig{Resolution: 1, MaxCycles: -1}
	require.Error(t, bad.Validate())
}

func TestPoissonSpecValidate(t *testing.T) {
	ps := PoissonSpec{KExt: 2000, Rate: 8, Wt: congen.NewDist(87.8, 8.8, 0, math.Inf(1))}
	require.NoError(t, ps.Validate())

	require.Error(t, (&PoissonSpec{KExt: -1}).Validate())
	require.Error(t, (&PoissonSpec{KExt: 10, Rate: -8}).Validate())
	// zero drive needs no weight dist
	require.NoError(t, (&PoissonSpec{}).Validate())
}

func TestAxonConstruction(t *testing.T) {
	ax := NewAxon()

	_, err := ax.AddPop(PopSpec{congen.Population{Name: "L5e", N: 10}})
	require.Error(t, err, "construction before Reset")

	err = ax.Reset(KernelConfig{Resolution: 0.5})
	require.Error(t, err, "axon only supports 1 msec resolution")

	require.NoError(t, ax.Reset(KernelConfig{Seed: 1}))

	e, err := ax.AddPop(PopSpec{congen.Population{Name: "L5e", N: 10, Role: congen.Excitatory}})
	require.NoError(t, err)
	i, err := ax.AddPop(PopSpec{congen.Population{Name: "L5i", N: 4, Role: congen.Inhibitory}})
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 10}, ax.Offsets())

	_, err = ax.AddPop(PopSpec{congen.Population{Name: "Empty", N: 0}})
	require.Error(t, err)

	require.Error(t, ax.Connect(e, 7, nil), "unknown population id")
	require.Error(t, ax.Connect(e, i, []congen.Edge{{Send: 10, Recv: 0}}), "send index out of range")
	require.Error(t, ax.AddRecorder(9))

	err = ax.Run(context.Background(), 10)
	require.Error(t, err, "Run before Build")
}

func TestAxonRun(t *testing.T) {
	ax := NewAxon()
	require.NoError(t, ax.Reset(KernelConfig{Seed: 42, MaxCycles: 100}))

	e, err := ax.AddPop(PopSpec{congen.Population{Name: "L5e", N: 8, Role: congen.Excitatory}})
	require.NoError(t, err)
	i, err := ax.AddPop(PopSpec{congen.Population{Name: "L5i", N: 4, Role: congen.Inhibitory}})
	require.NoError(t, err)

	le := &congen.Population{Name: "L5e", N: 8}
	li := &congen.Population{Name: "L5i", N: 4}
	cs := &congen.ConnSpec{
		Send: le, Recv: li, NSyn: 16,
		Wt:    congen.NewDist(87.8, 8.8, 0, math.Inf(1)),
		Delay: congen.NewDist(1.5, 0.75, 0.1, math.Inf(1)),
	}
	edges, err := cs.Generate(1)
	require.NoError(t, err)
	require.NoError(t, ax.Connect(e, i, edges))

	drv := PoissonSpec{KExt: 200, Rate: 8, Wt: congen.NewDist(87.8, 8.8, 0, math.Inf(1))}
	require.NoError(t, ax.AddPoisson(e, drv))
	require.NoError(t, ax.AddRecorder(e))
	require.NoError(t, ax.AddRecorder(i))

	require.NoError(t, ax.Build())
	require.Error(t, ax.Connect(e, i, edges), "no construction after Build")
	require.Error(t, ax.AddPoisson(e, drv), "no construction after Build")
	require.Error(t, ax.AddRecorder(e), "no construction after Build")

	require.NoError(t, ax.Run(context.Background(), 20))
	for _, ev := range ax.Spikes() {
		assert.True(t, ev.Time > 0 && ev.Time <= 20, "spike time in run window: %g", ev.Time)
		assert.True(t, ev.Sender >= 0 && ev.Sender < 12, "sender in global range: %d", ev.Sender)
	}

	err = ax.Run(context.Background(), 1000)
	require.Error(t, err, "MaxCycles guard")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, ax.Run(ctx, 10), "cancelled context stops the run")
}
