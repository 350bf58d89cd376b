// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/ccnlab/microcircuit/congen"
	"github.com/emer/axon/axon"
	"github.com/emer/emergent/emer"
	"github.com/emer/emergent/prjn"
	"github.com/emer/etable/etensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Axon adapts the axon spiking engine to the Engine interface.  Adapter
// constraints, from what axon can represent:
//   - axon integrates at 1 msec, so Resolution must be 1.0;
//   - per-edge transmission delays are not representable and are dropped;
//   - duplicate edges between the same pair sum their weight magnitudes;
//   - weights in pA are normalized into axon's [0, 1] weight range by WtMax,
//     with the sign carried by the projection type (Forward vs Inhib).
type Axon struct {
	Cfg   KernelConfig  `desc:"kernel config applied at Reset"`
	Net   *axon.Network `view:"no-inline" desc:"the axon network"`
	Time  axon.Time     `desc:"axon timing state"`
	WtMax float64       `desc:"weight magnitude (pA) mapping to axon weight 1.0"`

	pops   []PopSpec
	offs   []int32
	conns  []axonConn
	drives []axonDrive
	recs   []bool
	lays   []*axon.Layer
	spikes []SpikeEvent
	rnd    *rand.Rand
	built  bool
	cycle  int
}

type axonConn struct {
	send, recv int
	edges      []congen.Edge
}

type axonDrive struct {
	recv int
	spec PoissonSpec
	lay  *axon.Layer
	ext  *etensor.Float32
	lam  float64
}

// NewAxon returns an unconfigured adapter; call Reset before construction.
func NewAxon() *Axon {
	return &Axon{WtMax: 500}
}

func (ax *Axon) Reset(cfg KernelConfig) error {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Resolution != 1.0 {
		return fmt.Errorf("engine: axon integrates at 1 msec, got resolution: %g", cfg.Resolution)
	}
	ax.Cfg = cfg
	ax.Net = &axon.Network{}
	ax.Net.InitName(ax.Net, "Microcircuit")
	ax.Time.Defaults()
	ax.Time.Reset()
	ax.pops = nil
	ax.offs = nil
	ax.conns = nil
	ax.drives = nil
	ax.recs = nil
	ax.lays = nil
	ax.spikes = nil
	ax.rnd = rand.New(rand.NewSource(cfg.Seed))
	ax.built = false
	ax.cycle = 0
	return nil
}

func (ax *Axon) AddPop(ps PopSpec) (int, error) {
	if ax.Net == nil {
		return 0, fmt.Errorf("engine: Reset must be called first")
	}
	if ax.built {
		return 0, fmt.Errorf("engine: cannot add population after Build")
	}
	if ps.N < 1 {
		return 0, fmt.Errorf("engine: population %s must have N >= 1, got: %d", ps.Name, ps.N)
	}
	id := len(ax.pops)
	off := int32(0)
	if id > 0 {
		off = ax.offs[id-1] + int32(ax.pops[id-1].N)
	}
	ax.pops = append(ax.pops, ps)
	ax.offs = append(ax.offs, off)
	ax.recs = append(ax.recs, false)
	return id, nil
}

func (ax *Axon) Connect(send, recv int, edges []congen.Edge) error {
	if err := ax.checkPop(send); err != nil {
		return err
	}
	if err := ax.checkPop(recv); err != nil {
		return err
	}
	if ax.built {
		return fmt.Errorf("engine: cannot connect after Build")
	}
	sn := ax.pops[send].N
	rn := ax.pops[recv].N
	for _, ed := range edges {
		if ed.Send < 0 || int(ed.Send) >= sn || ed.Recv < 0 || int(ed.Recv) >= rn {
			return fmt.Errorf("engine: edge endpoints out of range for %s -> %s: %+v", ax.pops[send].Name, ax.pops[recv].Name, ed)
		}
	}
	ax.conns = append(ax.conns, axonConn{send: send, recv: recv, edges: edges})
	return nil
}

func (ax *Axon) AddPoisson(recv int, ps PoissonSpec) error {
	if err := ax.checkPop(recv); err != nil {
		return err
	}
	if ax.built {
		return fmt.Errorf("engine: cannot add drive after Build")
	}
	if err := ps.Validate(); err != nil {
		return err
	}
	ax.drives = append(ax.drives, axonDrive{recv: recv, spec: ps})
	return nil
}

func (ax *Axon) AddRecorder(pop int) error {
	if err := ax.checkPop(pop); err != nil {
		return err
	}
	if ax.built {
		return fmt.Errorf("engine: cannot add recorder after Build")
	}
	ax.recs[pop] = true
	return nil
}

func (ax *Axon) checkPop(id int) error {
	if id < 0 || id >= len(ax.pops) {
		return fmt.Errorf("engine: no population with id: %d", id)
	}
	return nil
}

// Build instantiates layers and projections and assigns generated weights.
func (ax *Axon) Build() error {
	if ax.Net == nil {
		return fmt.Errorf("engine: Reset must be called first")
	}
	if ax.built {
		return fmt.Errorf("engine: already built")
	}
	if len(ax.pops) == 0 {
		return fmt.Errorf("engine: no populations")
	}
	net := ax.Net
	ax.lays = make([]*axon.Layer, len(ax.pops))
	for i, ps := range ax.pops {
		ly := net.AddLayer2D(ps.Name, 1, ps.N, emer.Hidden)
		ax.lays[i] = ly.(axon.AxonLayer).AsAxon()
	}
	type prjnConn struct {
		pj emer.Prjn
		cn axonConn
	}
	pjs := make([]prjnConn, len(ax.conns))
	for i, cn := range ax.conns {
		pt := emer.Forward
		if ax.pops[cn.send].Role == congen.Inhibitory {
			pt = emer.Inhib
		}
		pj := net.ConnectLayers(ax.lays[cn.send], ax.lays[cn.recv], congen.NewEdgePattern(cn.edges), pt)
		pjs[i] = prjnConn{pj: pj, cn: cn}
	}
	one2one := prjn.NewOneToOne()
	type drivePrjn struct {
		pj emer.Prjn
		di int
	}
	var dpjs []drivePrjn
	for i := range ax.drives {
		dr := &ax.drives[i]
		n := ax.pops[dr.recv].N
		ly := net.AddLayer2D(ax.pops[dr.recv].Name+"Ext", 1, n, emer.Input)
		dr.lay = ly.(axon.AxonLayer).AsAxon()
		dr.ext = etensor.NewFloat32([]int{1, n}, nil, nil)
		// aggregate rate of KExt independent sources, spikes per cycle
		dr.lam = float64(dr.spec.KExt) * dr.spec.Rate * ax.Cfg.Resolution / 1000
		pj := net.ConnectLayers(ly, ax.lays[dr.recv], one2one, emer.Forward)
		dpjs = append(dpjs, drivePrjn{pj: pj, di: i})
	}
	net.Defaults()
	if err := net.Build(); err != nil {
		return err
	}
	net.InitWts()
	for _, pc := range pjs {
		if err := ax.setConnWts(pc.pj, pc.cn); err != nil {
			return err
		}
	}
	for _, dp := range dpjs {
		if err := ax.setDriveWts(dp.pj, &ax.drives[dp.di]); err != nil {
			return err
		}
	}
	net.NewState()
	ax.Time.Reset()
	ax.built = true
	return nil
}

// setConnWts writes generated weights onto the built synapses, summing
// duplicate edges and normalizing magnitudes by WtMax.
func (ax *Axon) setConnWts(pj emer.Prjn, cn axonConn) error {
	type pair struct{ s, r int32 }
	sums := make(map[pair]float64, len(cn.edges))
	for _, ed := range cn.edges {
		sums[pair{ed.Send, ed.Recv}] += math.Abs(float64(ed.Wt))
	}
	for pr, wt := range sums {
		if err := pj.SetSynVal("Wt", int(pr.s), int(pr.r), ax.normWt(wt)); err != nil {
			return fmt.Errorf("engine: %s -> %s: %w", ax.pops[cn.send].Name, ax.pops[cn.recv].Name, err)
		}
	}
	return nil
}

func (ax *Axon) setDriveWts(pj emer.Prjn, dr *axonDrive) error {
	if dr.spec.KExt == 0 || dr.spec.Rate == 0 {
		return nil
	}
	src := rand.NewSource(ax.rnd.Uint64())
	n := ax.pops[dr.recv].N
	for i := 0; i < n; i++ {
		wt, err := dr.spec.Wt.Sample(src, 100)
		if err != nil {
			return err
		}
		if err := pj.SetSynVal("Wt", i, i, ax.normWt(math.Abs(wt))); err != nil {
			return err
		}
	}
	return nil
}

func (ax *Axon) normWt(pa float64) float32 {
	w := pa / ax.WtMax
	if w > 1 {
		w = 1
	}
	return float32(w)
}

func (ax *Axon) Run(ctx context.Context, durMs float64) error {
	if !ax.built {
		return fmt.Errorf("engine: Build must be called before Run")
	}
	if durMs < 0 {
		return fmt.Errorf("engine: duration must be >= 0, got: %g", durMs)
	}
	ncyc := int(math.Round(durMs / ax.Cfg.Resolution))
	if ax.cycle+ncyc > ax.Cfg.MaxCycles {
		return fmt.Errorf("engine: %d cycles would exceed MaxCycles: %d", ax.cycle+ncyc, ax.Cfg.MaxCycles)
	}
	for c := 0; c < ncyc; c++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ax.applyDrives()
		ax.Net.Cycle(&ax.Time)
		ax.Time.CycleInc()
		ax.cycle++
		ax.record()
	}
	return nil
}

// applyDrives clamps each drive's input layer to this cycle's sampled
// external activity: Poisson counts at the aggregate rate, normalized so the
// expected count maps to mid-range clamp activity.
func (ax *Axon) applyDrives() {
	for i := range ax.drives {
		dr := &ax.drives[i]
		if dr.lam == 0 {
			continue
		}
		pois := distuv.Poisson{Lambda: dr.lam, Src: ax.rnd}
		norm := 2 * dr.lam
		for j := 0; j < dr.ext.Len(); j++ {
			act := pois.Rand() / norm
			if act > 1 {
				act = 1
			}
			dr.ext.Values[j] = float32(act)
		}
		dr.lay.ApplyExt(dr.ext)
	}
}

func (ax *Axon) record() {
	tm := float64(ax.cycle) * ax.Cfg.Resolution
	for p, on := range ax.recs {
		if !on {
			continue
		}
		ly := ax.lays[p]
		off := ax.offs[p]
		for i := range ly.Neurons {
			if ly.Neurons[i].Spike > 0 {
				ax.spikes = append(ax.spikes, SpikeEvent{Sender: off + int32(i), Time: tm})
			}
		}
	}
}

func (ax *Axon) Spikes() []SpikeEvent {
	return ax.spikes
}

func (ax *Axon) Offsets() []int32 {
	return ax.offs
}
