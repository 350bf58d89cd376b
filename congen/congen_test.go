// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package congen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func testSpec(send, recv *Population, nsyn int) *ConnSpec {
	return &ConnSpec{
		Send:  send,
		Recv:  recv,
		NSyn:  nsyn,
		Wt:    NewDist(87.8, 8.8, 0, math.Inf(1)),
		Delay: NewDist(1.5, 0.75, 0.1, math.Inf(1)),
	}
}

func TestGenerateCount(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 200, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 50, Role: Inhibitory}
	cs := testSpec(l5e, l5i, 12345)
	edges, err := cs.Generate(1)
	require.NoError(t, err)
	require.Len(t, edges, 12345)
	for _, ed := range edges {
		assert.True(t, ed.Send >= 0 && int(ed.Send) < l5e.N, "send index in range")
		assert.True(t, ed.Recv >= 0 && int(ed.Recv) < l5i.N, "recv index in range")
	}
}

func TestGenerateBounds(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 100, Role: Excitatory}
	cs := testSpec(l5e, l5e, 20000)
	cs.MinDelay = 0.1
	edges, err := cs.Generate(3)
	require.NoError(t, err)
	for _, ed := range edges {
		assert.True(t, ed.Wt >= 0, "weight within truncation bounds: %g", ed.Wt)
		assert.True(t, ed.Delay >= 0.1, "delay within truncation bounds: %g", ed.Delay)
	}
}

func TestSelfConPolicy(t *testing.T) {
	pop := &Population{Name: "L5i", N: 50, Role: Inhibitory}

	cs := testSpec(pop, pop, 5000)
	cs.SelfCon = false
	edges, err := cs.Generate(7)
	require.NoError(t, err)
	require.Len(t, edges, 5000)
	for _, ed := range edges {
		assert.NotEqual(t, ed.Send, ed.Recv, "self connection with SelfCon off")
	}

	// with 5000 draws over 50 neurons, P(no self pair) is ~1e-44
	cs.SelfCon = true
	edges, err = cs.Generate(7)
	require.NoError(t, err)
	nself := 0
	for _, ed := range edges {
		if ed.Send == ed.Recv {
			nself++
		}
	}
	assert.True(t, nself > 0, "expected some self connections with SelfCon on")
}

func TestGenerateDeterminism(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 300, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 80, Role: Inhibitory}
	cs := testSpec(l5e, l5i, 10000)

	e1, err := cs.Generate(42)
	require.NoError(t, err)
	e2, err := cs.Generate(42)
	require.NoError(t, err)
	require.Equal(t, e1, e2, "same seed must reproduce the edge list exactly")

	e3, err := cs.Generate(43)
	require.NoError(t, err)
	assert.NotEqual(t, e1, e3, "different seed must change the edge list")
}

func TestGenerateShardedDeterminism(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 300, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 80, Role: Inhibitory}
	cs := testSpec(l5e, l5i, 10007) // odd count, uneven shard split
	cs.Shards = 8

	e1, err := cs.Generate(42)
	require.NoError(t, err)
	require.Len(t, e1, 10007)
	e2, err := cs.Generate(42)
	require.NoError(t, err)
	require.Equal(t, e1, e2, "sharded generation must be deterministic")
}

func TestGenerateMoments(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 500, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 200, Role: Inhibitory}
	cs := testSpec(l5e, l5i, 100000)
	edges, err := cs.Generate(11)
	require.NoError(t, err)

	wts := make([]float64, len(edges))
	dls := make([]float64, len(edges))
	for i, ed := range edges {
		wts[i] = float64(ed.Wt)
		dls[i] = float64(ed.Delay)
	}
	// truncation at 0 is ~10 sigma below the weight mean: negligible shift
	assert.InEpsilon(t, 87.8, stat.Mean(wts, nil), 0.02)
	assert.InEpsilon(t, 8.8, stat.StdDev(wts, nil), 0.02)
	// delay truncation at 0.1 cuts real mass, so the realized mean shifts up
	dlMean := stat.Mean(dls, nil)
	assert.True(t, dlMean > 1.5 && dlMean < 1.65, "delay mean %g outside expected truncated range", dlMean)
}

func TestGenerateLeavesSpecUntouched(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 100, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 100, Role: Inhibitory}
	cs := testSpec(l5e, l5i, 100)
	_, err := cs.Generate(1)
	require.NoError(t, err)
	assert.Equal(t, 0, cs.MaxTries, "defaults must not be written back to the spec")
	assert.Equal(t, 0, cs.Shards, "defaults must not be written back to the spec")
}

func TestGenerateZeroNSyn(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 100, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 100, Role: Inhibitory}
	cs := testSpec(l5e, l5i, 0)
	edges, err := cs.Generate(1)
	require.NoError(t, err)
	require.NotNil(t, edges)
	require.Len(t, edges, 0)
}

// TestGenerateScenario runs the reference layer-5 configuration end to end.
func TestGenerateScenario(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 4850, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 1065, Role: Inhibitory}
	cs := &ConnSpec{
		Send:     l5e,
		Recv:     l5i,
		NSyn:     319602,
		Wt:       NewDist(87.8, 8.8, 0, math.Inf(1)),
		Delay:    NewDist(1.5, 0.75, 0.1, math.Inf(1)),
		MinDelay: 0.1,
		Shards:   4,
	}
	edges, err := cs.Generate(42)
	require.NoError(t, err)
	require.Len(t, edges, 319602)
	for _, ed := range edges {
		if ed.Send < 0 || int(ed.Send) >= 4850 || ed.Recv < 0 || int(ed.Recv) >= 1065 {
			t.Fatalf("edge endpoints out of range: %+v", ed)
		}
		if ed.Wt < 0 || ed.Delay < 0.1 {
			t.Fatalf("edge values out of bounds: %+v", ed)
		}
	}
	wts := make([]float64, len(edges))
	for i, ed := range edges {
		wts[i] = float64(ed.Wt)
	}
	assert.InEpsilon(t, 87.8, stat.Mean(wts, nil), 0.02)
	assert.InEpsilon(t, 8.8, stat.StdDev(wts, nil), 0.02)

	again, err := cs.Generate(42)
	require.NoError(t, err)
	require.Equal(t, edges, again)
}

func TestGenerateInfeasibleBounds(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 100, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 100, Role: Inhibitory}
	cs := testSpec(l5e, l5i, 1000)
	cs.Wt = NewDist(87.8, 8.8, 10, 5) // lower bound above upper bound
	edges, err := cs.Generate(1)
	require.Error(t, err)
	require.Nil(t, edges)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestGenerateExhaustedRetries(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 100, Role: Excitatory}
	l5i := &Population{Name: "L5i", N: 100, Role: Inhibitory}
	cs := testSpec(l5e, l5i, 100)
	cs.Wt = NewDist(0, 1, 50, 51) // ~50 sigma out: acceptance mass effectively zero
	cs.MaxTries = 20
	edges, err := cs.Generate(1)
	require.Error(t, err)
	require.Nil(t, edges)
	var rtErr *RetriesError
	require.ErrorAs(t, err, &rtErr)
}

func TestValidateErrors(t *testing.T) {
	l5e := &Population{Name: "L5e", N: 100, Role: Excitatory}
	one := &Population{Name: "One", N: 1, Role: Excitatory}
	tests := []struct {
		name string
		mod  func(cs *ConnSpec)
	}{
		{"nil recv", func(cs *ConnSpec) { cs.Recv = nil }},
		{"empty pop", func(cs *ConnSpec) { cs.Recv = &Population{Name: "Empty", N: 0} }},
		{"negative nsyn", func(cs *ConnSpec) { cs.NSyn = -1 }},
		{"single neuron no self", func(cs *ConnSpec) { cs.Send, cs.Recv = one, one }},
		{"negative sigma", func(cs *ConnSpec) { cs.Wt.Sigma = -1 }},
		{"empty range", func(cs *ConnSpec) { cs.Delay.Range.Min, cs.Delay.Range.Max = 2, 2 }},
		{"delay below resolution", func(cs *ConnSpec) { cs.MinDelay = 1.0 }},
		{"deterministic outside range", func(cs *ConnSpec) { cs.Wt = NewDist(-5, 0, 0, 10) }},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			cs := testSpec(l5e, l5e, 100)
			cs.Defaults()
			tst.mod(cs)
			edges, err := cs.Generate(1)
			require.Nil(t, edges)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr, "got: %v", err)
		})
	}
}

func TestNumSynapses(t *testing.T) {
	assert.Equal(t, 0, NumSynapses(0, 100, 100))
	assert.Equal(t, 0, NumSynapses(0.5, 0, 100))
	// small p: K approaches p * Ns * Nt
	k := NumSynapses(0.01, 100, 100)
	assert.InDelta(t, 100, k, 2)
	// the layer-5 probabilities all land in plausible territory
	ke := NumSynapses(0.0831, 4850, 4850)
	assert.True(t, float64(ke) > 0.0831*4850*4850, "with-replacement count exceeds p*Ns*Nt")
}
