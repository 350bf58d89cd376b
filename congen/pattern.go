// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package congen

import (
	"github.com/emer/emergent/prjn"
	"github.com/emer/etable/etensor"
	"golang.org/x/exp/rand"
)

// FixedTotal is a prjn.Pattern that connects a fixed total number of
// (send, recv) pairs, drawn uniformly with replacement.  Because the Pattern
// contract represents connectivity as existence bits, repeat draws of the
// same pair collapse to a single connection, so the realized connection
// count can be slightly below NSyn for dense projections.  Use
// EdgePattern when the full multi-edge list must be preserved.
type FixedTotal struct {
	NSyn    int    `desc:"total number of pair draws"`
	SelfCon bool   `desc:"allow self connections for same-layer projections"`
	RndSeed uint64 `desc:"seed for the pair draws -- same seed, same pattern"`
}

func NewFixedTotal(nsyn int) *FixedTotal {
	return &FixedTotal{NSyn: nsyn, RndSeed: 1}
}

func (ft *FixedTotal) Name() string {
	return "FixedTotal"
}

func (ft *FixedTotal) Connect(send, recv *etensor.Shape, same bool) (sendn, recvn *etensor.Int32, cons *etensor.Bits) {
	sendn, recvn, cons = prjn.NewTensors(send, recv)
	ns := send.Len()
	nr := recv.Len()
	if ns == 0 || nr == 0 || ft.NSyn <= 0 {
		return
	}
	noSelf := same && !ft.SelfCon
	if noSelf && ns == 1 {
		return
	}
	rnd := rand.New(rand.NewSource(ft.RndSeed))
	snv := sendn.Values
	rnv := recvn.Values
	maxTries := 100 * ft.NSyn
	for k := 0; k < ft.NSyn; k++ {
		si, ri, err := drawPair(rnd, ns, nr, noSelf, maxTries)
		if err != nil { // unreachable given the guards above
			return
		}
		off := ri*ns + si
		if cons.Values.Index(off) {
			continue
		}
		cons.Values.Set(off, true)
		snv[si]++
		rnv[ri]++
	}
	return
}

// EdgePattern is a prjn.Pattern backed by an explicit edge list, typically
// the output of ConnSpec.Generate.  It preserves exactly which pairs are
// connected so per-edge values (weights) can be assigned to the built
// synapses afterwards; multi-edges still collapse to one connection.
type EdgePattern struct {
	Edges []Edge `desc:"explicit connections, send/recv as flat layer indexes"`
}

func NewEdgePattern(edges []Edge) *EdgePattern {
	return &EdgePattern{Edges: edges}
}

func (ep *EdgePattern) Name() string {
	return "EdgePattern"
}

func (ep *EdgePattern) Connect(send, recv *etensor.Shape, same bool) (sendn, recvn *etensor.Int32, cons *etensor.Bits) {
	sendn, recvn, cons = prjn.NewTensors(send, recv)
	ns := send.Len()
	nr := recv.Len()
	snv := sendn.Values
	rnv := recvn.Values
	for _, ed := range ep.Edges {
		si := int(ed.Send)
		ri := int(ed.Recv)
		if si < 0 || si >= ns || ri < 0 || ri >= nr {
			continue
		}
		off := ri*ns + si
		if cons.Values.Index(off) {
			continue
		}
		cons.Values.Set(off, true)
		snv[si]++
		rnv[ri]++
	}
	return
}
