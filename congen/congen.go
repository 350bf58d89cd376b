// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package congen generates random connectivity between neuron populations
// according to the fixed-total-number rule: the exact total number of
// synapses between two populations is specified, and each synapse draws its
// source and target independently and uniformly (with replacement), and its
// weight and delay from truncated normal distributions.
//
// Generation is purely functional given the spec and a seed: the same inputs
// always produce the same edge list, including when generation is sharded
// across goroutines (each shard consumes a disjoint derived substream).
package congen

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

// Role is the functional role of a population, used for labeling and for
// sign conventions in downstream weight tables.
type Role int32

const (
	Excitatory Role = iota
	Inhibitory
	External

	RoleN
)

var roleNames = [RoleN]string{"Excitatory", "Inhibitory", "External"}

func (r Role) String() string {
	if r < 0 || r >= RoleN {
		return fmt.Sprintf("Role(%d)", int32(r))
	}
	return roleNames[r]
}

// Population is an ordered group of neurons of uniform role, identified
// locally by indexes 0..N-1.  It is immutable for the duration of a
// generation call.
type Population struct {
	Name string `desc:"population name, e.g., L5e"`
	N    int    `desc:"number of neurons"`
	Role Role   `desc:"functional role: excitatory, inhibitory, external"`
}

// Edge is one synaptic connection: local source and target indexes within
// their populations, plus the per-edge weight and delay.
type Edge struct {
	Send  int32   `desc:"source neuron index within sending population"`
	Recv  int32   `desc:"target neuron index within receiving population"`
	Wt    float32 `desc:"synaptic weight (signed efficacy)"`
	Delay float32 `desc:"transmission delay, msec"`
}

// ConnSpec specifies one fixed-total-number connection request between two
// populations.  It is consumed by Generate exactly once per call -- the spec
// itself is not mutated.
type ConnSpec struct {
	Send     *Population `desc:"sending population"`
	Recv     *Population `desc:"receiving population"`
	NSyn     int         `desc:"total number of synapses to create -- duplicates (multi-synapses) are permitted"`
	Wt       Dist        `desc:"weight distribution, sampled per edge"`
	Delay    Dist        `desc:"delay distribution, sampled per edge -- lower bound must respect MinDelay"`
	SelfCon  bool        `desc:"allow self connections when Send == Recv"`
	MinDelay float64     `desc:"minimum resolvable delay (engine timestep) -- Delay.Range.Min must be >= this when > 0"`
	MaxTries int         `desc:"maximum redraws per sample before giving up with RetriesError"`
	Shards   int         `desc:"number of parallel generation shards -- output is deterministic for a fixed value"`
}

// Defaults sets default values for unset fields.
func (cs *ConnSpec) Defaults() {
	if cs.MaxTries == 0 {
		cs.MaxTries = 100
	}
	if cs.Shards <= 0 {
		cs.Shards = 1
	}
}

// Validate checks the spec for infeasible or degenerate parameters, returning
// a *ConfigError describing the first problem found.  It must pass before any
// random numbers are drawn -- Generate returns immediately on failure without
// consuming RNG state.
func (cs *ConnSpec) Validate() error {
	if cs.Send == nil || cs.Recv == nil {
		return &ConfigError{Spec: cs.label(), Msg: "send and recv populations must be set"}
	}
	if cs.Send.N < 1 || cs.Recv.N < 1 {
		return &ConfigError{Spec: cs.label(), Msg: fmt.Sprintf("population sizes must be >= 1, got send: %d, recv: %d", cs.Send.N, cs.Recv.N)}
	}
	if cs.NSyn < 0 {
		return &ConfigError{Spec: cs.label(), Msg: fmt.Sprintf("NSyn must be >= 0, got: %d", cs.NSyn)}
	}
	if cs.samePop() && !cs.SelfCon && cs.Send.N == 1 && cs.NSyn > 0 {
		return &ConfigError{Spec: cs.label(), Msg: "no valid pairs: single-neuron population with self connections disallowed"}
	}
	if err := cs.Wt.Validate(); err != nil {
		return &ConfigError{Spec: cs.label(), Msg: fmt.Sprintf("weight dist: %v", err)}
	}
	if err := cs.Delay.Validate(); err != nil {
		return &ConfigError{Spec: cs.label(), Msg: fmt.Sprintf("delay dist: %v", err)}
	}
	if cs.MinDelay > 0 && cs.Delay.Range.Min < cs.MinDelay {
		return &ConfigError{Spec: cs.label(), Msg: fmt.Sprintf("delay lower bound %g below minimum resolvable delay %g", cs.Delay.Range.Min, cs.MinDelay)}
	}
	return nil
}

// samePop returns true if this is a recurrent (same population) request.
func (cs *ConnSpec) samePop() bool {
	return cs.Send == cs.Recv || (cs.Send.Name != "" && cs.Send.Name == cs.Recv.Name)
}

func (cs *ConnSpec) label() string {
	sn, rn := "?", "?"
	if cs.Send != nil {
		sn = cs.Send.Name
	}
	if cs.Recv != nil {
		rn = cs.Recv.Name
	}
	return sn + " -> " + rn
}

// Generate produces exactly NSyn edges for this spec, or fails outright with
// *ConfigError (infeasible spec, no RNG consumed) or *RetriesError (a redraw
// loop exhausted MaxTries) -- no partial edge lists are returned.
// Output is deterministic given (spec, seed, Shards): edges are ordered
// shard-major, and within each edge the draw order is send, recv, weight,
// delay.
func (cs *ConnSpec) Generate(seed uint64) ([]Edge, error) {
	gs := *cs // defaults apply to a local copy, leaving the spec untouched
	gs.Defaults()
	if err := gs.Validate(); err != nil {
		return nil, err
	}
	if gs.NSyn == 0 {
		return []Edge{}, nil
	}
	edges := make([]Edge, gs.NSyn)
	nsh := gs.Shards
	if nsh > gs.NSyn {
		nsh = gs.NSyn
	}
	per := gs.NSyn / nsh
	rem := gs.NSyn % nsh
	var eg errgroup.Group
	lo := 0
	for sh := 0; sh < nsh; sh++ {
		n := per
		if sh < rem {
			n++
		}
		sh := sh
		seg := edges[lo : lo+n]
		eg.Go(func() error {
			return gs.fillShard(seg, shardSeed(seed, sh))
		})
		lo += n
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return edges, nil
}

// fillShard generates edges into seg using its own random stream.
func (cs *ConnSpec) fillShard(seg []Edge, seed uint64) error {
	src := rand.NewSource(seed)
	rnd := rand.New(src)
	same := cs.samePop()
	for i := range seg {
		si, ri, err := drawPair(rnd, cs.Send.N, cs.Recv.N, same && !cs.SelfCon, cs.MaxTries)
		if err != nil {
			return err
		}
		wt, err := cs.Wt.Sample(src, cs.MaxTries)
		if err != nil {
			return fmt.Errorf("%s weight: %w", cs.label(), err)
		}
		dl, err := cs.Delay.Sample(src, cs.MaxTries)
		if err != nil {
			return fmt.Errorf("%s delay: %w", cs.label(), err)
		}
		seg[i] = Edge{Send: int32(si), Recv: int32(ri), Wt: float32(wt), Delay: float32(dl)}
	}
	return nil
}

// drawPair draws one (send, recv) index pair uniformly with replacement,
// redrawing self pairs when noSelf is set.
func drawPair(rnd *rand.Rand, ns, nr int, noSelf bool, maxTries int) (int, int, error) {
	for t := 0; t < maxTries; t++ {
		si := rnd.Intn(ns)
		ri := rnd.Intn(nr)
		if noSelf && si == ri {
			continue
		}
		return si, ri, nil
	}
	return 0, 0, &RetriesError{What: "endpoint pair", Tries: maxTries}
}

// shardSeed derives the substream seed for a given shard, using the
// splitmix64 golden gamma so adjacent shard streams are uncorrelated.
func shardSeed(seed uint64, shard int) uint64 {
	return seed + (uint64(shard)+1)*0x9E3779B97F4A7C15
}

// NumSynapses converts a pairwise connection probability into the total
// synapse count used by the fixed-total-number rule, assuming independent
// uniform draws with replacement: K = ln(1-p) / ln(1 - 1/(Ns*Nt)).
func NumSynapses(p float64, ns, nt int) int {
	if p <= 0 || ns < 1 || nt < 1 {
		return 0
	}
	if p >= 1 {
		p = 1 - 1e-10
	}
	prod := float64(ns) * float64(nt)
	return int(math.Round(math.Log1p(-p) / math.Log1p(-1/prod)))
}
