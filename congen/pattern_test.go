// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package congen

import (
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedTotalConnect(t *testing.T) {
	send := etensor.NewShape([]int{5, 10}, nil, nil)
	recv := etensor.NewShape([]int{4, 10}, nil, nil)
	ft := NewFixedTotal(800)
	ft.RndSeed = 5

	sendn, recvn, cons := ft.Connect(send, recv, false)
	ncon := 0
	for ri := 0; ri < recv.Len(); ri++ {
		for si := 0; si < send.Len(); si++ {
			if cons.Values.Index(ri*send.Len() + si) {
				ncon++
			}
		}
	}
	assert.True(t, ncon > 0 && ncon <= 800, "existence bits collapse repeats: %d", ncon)

	var stot, rtot int32
	for _, v := range sendn.Values {
		stot += v
	}
	for _, v := range recvn.Values {
		rtot += v
	}
	assert.Equal(t, int32(ncon), stot, "send counts sum to connection count")
	assert.Equal(t, int32(ncon), rtot, "recv counts sum to connection count")

	_, _, cons2 := ft.Connect(send, recv, false)
	require.Equal(t, cons.Values, cons2.Values, "same seed, same pattern")
}

func TestFixedTotalNoSelf(t *testing.T) {
	shp := etensor.NewShape([]int{1, 30}, nil, nil)
	ft := NewFixedTotal(500)
	ft.RndSeed = 2
	_, _, cons := ft.Connect(shp, shp, true)
	n := shp.Len()
	for i := 0; i < n; i++ {
		assert.False(t, cons.Values.Index(i*n+i), "self connection at %d", i)
	}
}

func TestEdgePatternConnect(t *testing.T) {
	send := etensor.NewShape([]int{1, 4}, nil, nil)
	recv := etensor.NewShape([]int{1, 3}, nil, nil)
	edges := []Edge{
		{Send: 0, Recv: 0, Wt: 1},
		{Send: 3, Recv: 2, Wt: 1},
		{Send: 3, Recv: 2, Wt: 1}, // repeat collapses
		{Send: 1, Recv: 1, Wt: 1},
		{Send: 9, Recv: 0, Wt: 1}, // out of range, skipped
	}
	ep := NewEdgePattern(edges)
	sendn, recvn, cons := ep.Connect(send, recv, false)

	assert.True(t, cons.Values.Index(0*4+0))
	assert.True(t, cons.Values.Index(2*4+3))
	assert.True(t, cons.Values.Index(1*4+1))
	assert.False(t, cons.Values.Index(0*4+1))

	require.Equal(t, []int32{1, 1, 0, 1}, sendn.Values)
	require.Equal(t, []int32{1, 1, 1}, recvn.Values)
}
