// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spikes turns recorded spike events into the standard analysis
// artifacts: a spike log table, a raster grid for TensorGrid viewing, and a
// per-population firing statistics summary.
package spikes

import (
	"github.com/ccnlab/microcircuit/congen"
	"github.com/ccnlab/microcircuit/engine"
	"github.com/emer/etable/agg"
	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
	"github.com/emer/etable/split"
	"github.com/goki/mat32"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Offsets returns the cumulative global index offset of each population.
func Offsets(pops []congen.Population) []int32 {
	offs := make([]int32, len(pops))
	for i := 1; i < len(pops); i++ {
		offs[i] = offs[i-1] + int32(pops[i-1].N)
	}
	return offs
}

// popOf returns the population index owning a global sender index, -1 if out
// of range.
func popOf(sender int32, pops []congen.Population, offs []int32) int {
	for p := len(pops) - 1; p >= 0; p-- {
		if sender >= offs[p] {
			if sender < offs[p]+int32(pops[p].N) {
				return p
			}
			return -1
		}
	}
	return -1
}

// Log builds the spike log table from recorded events: Pop, Sender (global
// index), Time (msec), one row per spike.
func Log(evs []engine.SpikeEvent, pops []congen.Population) *etable.Table {
	offs := Offsets(pops)
	sch := etable.Schema{
		{Name: "Pop", Type: etensor.STRING, CellShape: nil, DimNames: nil},
		{Name: "Sender", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Time", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
	}
	dt := &etable.Table{}
	dt.SetFromSchema(sch, len(evs))
	dt.SetMetaData("name", "SpikeLog")
	dt.SetMetaData("desc", "one row per recorded spike")
	dt.SetMetaData("read-only", "true")
	for r, ev := range evs {
		pnm := ""
		if p := popOf(ev.Sender, pops, offs); p >= 0 {
			pnm = pops[p].Name
		}
		dt.SetCellString("Pop", r, pnm)
		dt.SetCellFloat("Sender", r, float64(ev.Sender))
		dt.SetCellFloat("Time", r, ev.Time)
	}
	return dt
}

// Raster bins spikes into a [neurons x time bins] grid for TensorGrid
// viewing.  Values are spike counts per bin (0 or 1 for binMs at the
// integration resolution).
func Raster(evs []engine.SpikeEvent, nTot int, durMs, binMs float64) *etensor.Float32 {
	nbin := int(mat32.Ceil(float32(durMs) / float32(binMs)))
	if nbin < 1 {
		nbin = 1
	}
	tsr := etensor.NewFloat32([]int{nTot, nbin}, nil, []string{"Neuron", "Time"})
	for _, ev := range evs {
		if ev.Sender < 0 || int(ev.Sender) >= nTot || ev.Time < 0 {
			continue
		}
		bi := int(ev.Time / binMs)
		if bi >= nbin {
			bi = nbin - 1
		}
		tsr.Values[int(ev.Sender)*nbin+bi]++
	}
	return tsr
}

// Rates returns per-neuron firing rates in spikes/s over a run of durMs.
func Rates(evs []engine.SpikeEvent, nTot int, durMs float64) []float64 {
	rates := make([]float64, nTot)
	if durMs <= 0 {
		return rates
	}
	for _, ev := range evs {
		if ev.Sender >= 0 && int(ev.Sender) < nTot {
			rates[ev.Sender] += 1000 / durMs
		}
	}
	return rates
}

// Summary builds the per-population firing statistics table from a spike log
// (as built by Log): spike count, per-neuron rate mean / min / max / median,
// irregularity as the mean coefficient of variation of inter-spike
// intervals, and synchrony as the Fano factor of the binned population
// spike count (binMs bins).
func Summary(dt *etable.Table, pops []congen.Population, durMs, binMs float64) *etable.Table {
	offs := Offsets(pops)
	nTot := 0
	for _, pp := range pops {
		nTot += pp.N
	}

	times := make([][]float64, nTot)
	for r := 0; r < dt.Rows; r++ {
		snd := int(dt.CellFloat("Sender", r))
		if snd >= 0 && snd < nTot {
			times[snd] = append(times[snd], dt.CellFloat("Time", r))
		}
	}

	counts := make(map[string]float64, len(pops))
	if dt.Rows > 0 {
		ix := etable.NewIdxView(dt)
		spl := split.GroupBy(ix, []string{"Pop"})
		split.Agg(spl, "Time", agg.AggCount)
		ct := spl.AggsToTable(etable.ColNameOnly)
		for r := 0; r < ct.Rows; r++ {
			counts[ct.CellString("Pop", r)] = ct.CellFloat("Time", r)
		}
	}

	sch := etable.Schema{
		{Name: "Pop", Type: etensor.STRING, CellShape: nil, DimNames: nil},
		{Name: "N", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "NSpikes", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "RateMean", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
		{Name: "RateMin", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
		{Name: "RateMax", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
		{Name: "RateMedian", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
		{Name: "CVISI", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
		{Name: "Fano", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
	}
	st := &etable.Table{}
	st.SetFromSchema(sch, len(pops))
	st.SetMetaData("name", "RateSummary")
	st.SetMetaData("desc", "per-population firing statistics")
	st.SetMetaData("read-only", "true")

	for p, pp := range pops {
		off := int(offs[p])
		rates := make([]float64, pp.N)
		for i := 0; i < pp.N; i++ {
			if durMs > 0 {
				rates[i] = float64(len(times[off+i])) * 1000 / durMs
			}
		}
		mean, _ := stats.Mean(rates)
		min, _ := stats.Min(rates)
		max, _ := stats.Max(rates)
		med, _ := stats.Median(rates)

		st.SetCellString("Pop", p, pp.Name)
		st.SetCellFloat("N", p, float64(pp.N))
		st.SetCellFloat("NSpikes", p, counts[pp.Name])
		st.SetCellFloat("RateMean", p, mean)
		st.SetCellFloat("RateMin", p, min)
		st.SetCellFloat("RateMax", p, max)
		st.SetCellFloat("RateMedian", p, med)
		st.SetCellFloat("CVISI", p, cvISI(times[off:off+pp.N]))
		st.SetCellFloat("Fano", p, fano(times[off:off+pp.N], durMs, binMs))
	}
	return st
}

// cvISI is the mean coefficient of variation of inter-spike intervals over
// neurons with at least 3 spikes.  1 = Poisson-like irregular firing,
// 0 = clock-like regular firing.
func cvISI(times [][]float64) float64 {
	var cvs []float64
	for _, ts := range times {
		if len(ts) < 3 {
			continue
		}
		isis := make([]float64, len(ts)-1)
		for i := 1; i < len(ts); i++ {
			isis[i-1] = ts[i] - ts[i-1]
		}
		mn := stat.Mean(isis, nil)
		if mn > 0 {
			cvs = append(cvs, stat.StdDev(isis, nil)/mn)
		}
	}
	if len(cvs) == 0 {
		return 0
	}
	return stat.Mean(cvs, nil)
}

// fano is the Fano factor (variance / mean) of the population spike count in
// binMs bins.  1 = Poisson-like asynchrony, larger = synchronized firing.
func fano(times [][]float64, durMs, binMs float64) float64 {
	if durMs <= 0 || binMs <= 0 {
		return 0
	}
	nbin := int(mat32.Ceil(float32(durMs) / float32(binMs)))
	if nbin < 2 {
		return 0
	}
	cnts := make([]float64, nbin)
	for _, ts := range times {
		for _, tm := range ts {
			bi := int(tm / binMs)
			if bi < 0 {
				continue
			}
			if bi >= nbin {
				bi = nbin - 1
			}
			cnts[bi]++
		}
	}
	mn := stat.Mean(cnts, nil)
	if mn == 0 {
		return 0
	}
	return stat.Variance(cnts, nil) / mn
}
