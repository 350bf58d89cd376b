// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/emer/emergent/params"

// ParamSets is the default set of parameters -- Base is always applied, and
// others can be optionally selected to apply on top of that
var ParamSets = params.Sets{
	{Name: "Base", Desc: "standard layer-5 microcircuit at 10% scale", Sheets: params.Sheets{
		"Sim": &params.Sheet{
			{Sel: "Sim", Desc: "run and model defaults",
				Params: params.Params{
					"Sim.Scale":   "0.1",
					"Sim.DurMs":   "1000",
					"Sim.BinMs":   "3",
					"Sim.G":       "4",
					"Sim.RateExt": "8",
					"Sim.Shards":  "4",
				}},
		},
	}},
	{Name: "Full", Desc: "full-size populations -- slow without MPI", Sheets: params.Sheets{
		"Sim": &params.Sheet{
			{Sel: "Sim", Desc: "no downscaling",
				Params: params.Params{
					"Sim.Scale": "1",
				}},
		},
	}},
	{Name: "NoInhib", Desc: "inhibition knocked out -- runaway excitation demo", Sheets: params.Sheets{
		"Sim": &params.Sheet{
			{Sel: "Sim", Desc: "zero the inhibitory weight scaling",
				Params: params.Params{
					"Sim.G": "0",
				}},
		},
	}},
}

// PopParam is one population at full scale.
type PopParam struct {
	Name string `desc:"population name"`
	N    int    `desc:"size at Scale = 1"`
	Exc  bool   `desc:"excitatory vs inhibitory"`
	KExt int    `desc:"external drive indegree at Scale = 1"`
}

// ConnParam is one projection: pairwise connection probability, converted to
// a fixed synapse total for the realized population sizes.
type ConnParam struct {
	Send string  `desc:"sending population name"`
	Recv string  `desc:"receiving population name"`
	Prob float64 `desc:"pairwise connection probability"`
}

// PopParams are the layer-5 populations (Potjans & Diesmann 2014 sizes).
var PopParams = []PopParam{
	{Name: "L5e", N: 4850, Exc: true, KExt: 2000},
	{Name: "L5i", N: 1065, Exc: false, KExt: 1900},
}

// ConnParams are the four recurrent layer-5 projections.
var ConnParams = []ConnParam{
	{Send: "L5e", Recv: "L5e", Prob: 0.0831},
	{Send: "L5e", Recv: "L5i", Prob: 0.0602},
	{Send: "L5i", Recv: "L5e", Prob: 0.3726},
	{Send: "L5i", Recv: "L5i", Prob: 0.3158},
}
