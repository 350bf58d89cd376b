// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// microcircuit simulates a cortical layer-5 microcircuit of excitatory and
// inhibitory populations, with connectivity generated by the fixed-total
// synapse-number rule, external Poisson drive, and spike raster / firing
// rate analysis of the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/ccnlab/microcircuit/congen"
	"github.com/ccnlab/microcircuit/engine"
	"github.com/ccnlab/microcircuit/spikes"
	"github.com/emer/emergent/params"
	"github.com/emer/empi/mpi"
	"github.com/emer/etable/eplot"
	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
	"github.com/emer/etable/etview"
	"github.com/goki/gi/gi"
	"github.com/goki/gi/gimain"
	"github.com/goki/gi/giv"
	"github.com/goki/ki/ki"
	"github.com/goki/ki/kit"
)

// this is the stub main for gogi that calls our actual mainrun function, at end of file
func main() {
	gimain.Main(func() {
		mainrun()
	})
}

// Proj is one realized projection: population ids plus the generation spec.
type Proj struct {
	Send int              `desc:"sending population index"`
	Recv int              `desc:"receiving population index"`
	Spec *congen.ConnSpec `desc:"fixed-total connection spec"`
}

// Sim holds all the model state -- everything is visible / editable in the
// gui via the StructView, and parameter sets apply to the Sim fields via the
// "Sim" sheet.
type Sim struct {
	Eng      engine.Engine       `view:"-" desc:"the spiking engine behind the Engine interface"`
	Kernel   engine.KernelConfig `desc:"engine kernel config: resolution, seed, cycle guard"`
	Pops     []congen.Population `view:"no-inline" desc:"realized populations at current Scale"`
	WtExc    congen.Dist         `desc:"excitatory synaptic weight distribution, pA"`
	DelayExc congen.Dist         `desc:"excitatory delay distribution, msec"`
	DelayInh congen.Dist         `desc:"inhibitory delay distribution, msec"`
	Scale    float64             `desc:"downscaling factor applied to population sizes and external indegrees"`
	DurMs    float64             `desc:"simulation duration, msec"`
	BinMs    float64             `desc:"time bin for the raster grid and synchrony stats, msec"`
	G        float64             `desc:"inhibitory weight scaling: inhibitory mean = -G * excitatory mean"`
	RateExt  float64             `desc:"rate of each external Poisson source, Hz"`
	MinDelay float64             `desc:"minimum resolvable delay, msec -- delay distributions are bounded below by this"`
	SelfCon  bool                `desc:"allow self connections in recurrent projections"`
	Shards   int                 `desc:"parallel shards for connectivity generation"`
	SpikeLog *etable.Table       `view:"no-inline" desc:"spike log: one row per recorded spike"`
	RateLog  *etable.Table       `view:"no-inline" desc:"per-population firing statistics"`
	Raster   *etensor.Float32    `view:"no-inline" desc:"spike raster grid: neurons x time bins"`
	Params   params.Sets         `view:"no-inline" desc:"full collection of param sets"`
	ParamSet string              `desc:"which set of *additional* parameters to use -- always applies Base and optionaly this next if set"`
	Tag      string              `desc:"extra tag string to add to any file names output from sim (e.g., log files, params for run)"`
	RanMs    float64             `inactive:"+" desc:"simulated time completed so far, msec"`
	NSpikes  int                 `inactive:"+" desc:"total spikes recorded so far"`

	// internal state - view:"-"
	Win          *gi.Window         `view:"-" desc:"main GUI window"`
	ToolBar      *gi.ToolBar        `view:"-" desc:"the master toolbar"`
	RasterView   *etview.TensorGrid `view:"-" desc:"the raster grid view"`
	RasterPlot   *eplot.Plot2D      `view:"-" desc:"the spike raster points plot"`
	RatePlot     *eplot.Plot2D      `view:"-" desc:"the rate summary bar plot"`
	RateView     *etview.TableView  `view:"-" desc:"the rate summary table view"`
	Comm         *mpi.Comm          `view:"-" desc:"mpi communicator"`
	UseMPI       bool               `view:"-" desc:"if true, run ranks as independent realizations and average rate stats"`
	NoGui        bool               `view:"-" desc:"if true, runing in no GUI mode"`
	LogSetParams bool               `view:"-" desc:"if true, print message for all params that are set"`
	IsRunning    bool               `view:"-" desc:"true if sim is running"`
	StopNow      bool               `view:"-" desc:"flag to stop running"`
	RndSeed      int64              `view:"-" desc:"the current random seed"`
}

// this registers this Sim Type and gives it properties that e.g.,
// prompt for filename for save methods.
var KiT_Sim = kit.Types.AddType(&Sim{}, SimProps)

// TheSim is the overall state for this simulation
var TheSim Sim

// New creates new blank elements and initializes defaults
func (ss *Sim) New() {
	ss.Eng = engine.NewAxon()
	ss.Kernel.Defaults()
	ss.SpikeLog = &etable.Table{}
	ss.RateLog = &etable.Table{}
	ss.Raster = &etensor.Float32{}
	ss.Params = ParamSets
	ss.RndSeed = 42
	ss.Scale = 0.1
	ss.DurMs = 1000
	ss.BinMs = 3
	ss.G = 4
	ss.RateExt = 8
	ss.MinDelay = 0.1
	ss.SelfCon = false
	ss.Shards = 4
	ss.WtExc = congen.NewDist(87.8, 8.8, 0, math.Inf(1))
	ss.DelayExc = congen.NewDist(1.5, 0.75, ss.MinDelay, math.Inf(1))
	ss.DelayInh = congen.NewDist(0.8, 0.4, ss.MinDelay, math.Inf(1))
}

////////////////////////////////////////////////////////////////////////////////////////////
// 		Configs

// Config configures all the elements using the standard functions
func (ss *Sim) Config() {
	ss.ConfigPops()
	ss.ConfigLogs()
}

// ConfigPops realizes the population table at the current Scale.
func (ss *Sim) ConfigPops() {
	ss.Pops = make([]congen.Population, len(PopParams))
	for i, pp := range PopParams {
		n := int(math.Round(float64(pp.N) * ss.Scale))
		if n < 2 { // keep recurrent projections feasible without self cons
			n = 2
		}
		role := congen.Inhibitory
		if pp.Exc {
			role = congen.Excitatory
		}
		ss.Pops[i] = congen.Population{Name: pp.Name, N: n, Role: role}
	}
}

// ConfigLogs resets the log tables and raster grid to empty configured state.
func (ss *Sim) ConfigLogs() {
	*ss.SpikeLog = *spikes.Log(nil, ss.Pops)
	*ss.RateLog = *spikes.Summary(ss.SpikeLog, ss.Pops, 0, ss.BinMs)
	*ss.Raster = *spikes.Raster(nil, ss.NTot(), ss.DurMs, ss.BinMs)
}

// NTot is the total number of neurons across populations.
func (ss *Sim) NTot() int {
	n := 0
	for _, pp := range ss.Pops {
		n += pp.N
	}
	return n
}

// Projs builds the connection specs for the four recurrent projections at
// the current parameters.
func (ss *Sim) Projs() ([]Proj, error) {
	pidx := make(map[string]int, len(ss.Pops))
	for i, pp := range ss.Pops {
		pidx[pp.Name] = i
	}
	pjs := make([]Proj, len(ConnParams))
	for i, cp := range ConnParams {
		si, ok := pidx[cp.Send]
		if !ok {
			return nil, fmt.Errorf("unknown population: %s", cp.Send)
		}
		ri, ok := pidx[cp.Recv]
		if !ok {
			return nil, fmt.Errorf("unknown population: %s", cp.Recv)
		}
		se := &ss.Pops[si]
		re := &ss.Pops[ri]
		wt := ss.WtExc
		dl := ss.DelayExc
		if se.Role == congen.Inhibitory {
			wt = ss.WtExc.Scale(-ss.G)
			dl = ss.DelayInh
		}
		pjs[i] = Proj{Send: si, Recv: ri, Spec: &congen.ConnSpec{
			Send:     se,
			Recv:     re,
			NSyn:     congen.NumSynapses(cp.Prob, se.N, re.N),
			Wt:       wt,
			Delay:    dl,
			SelfCon:  ss.SelfCon,
			MinDelay: ss.MinDelay,
			Shards:   ss.Shards,
		}}
	}
	return pjs, nil
}

// BuildNet generates the connectivity and constructs the network in the
// engine: populations, recurrent projections, external drive, recorders.
func (ss *Sim) BuildNet() error {
	ss.Kernel.Seed = uint64(ss.RndSeed)
	if err := ss.Eng.Reset(ss.Kernel); err != nil {
		return err
	}
	ids := make([]int, len(ss.Pops))
	for i, pp := range ss.Pops {
		id, err := ss.Eng.AddPop(engine.PopSpec{Population: pp})
		if err != nil {
			return err
		}
		ids[i] = id
	}
	pjs, err := ss.Projs()
	if err != nil {
		return err
	}
	for pi, pj := range pjs {
		edges, err := pj.Spec.Generate(uint64(ss.RndSeed) + uint64(pi+1))
		if err != nil {
			return err
		}
		if err := ss.Eng.Connect(ids[pj.Send], ids[pj.Recv], edges); err != nil {
			return err
		}
	}
	for i, pp := range PopParams {
		kext := int(math.Round(float64(pp.KExt) * ss.Scale))
		drv := engine.PoissonSpec{KExt: kext, Rate: ss.RateExt, Wt: ss.WtExc}
		if err := ss.Eng.AddPoisson(ids[i], drv); err != nil {
			return err
		}
		if err := ss.Eng.AddRecorder(ids[i]); err != nil {
			return err
		}
	}
	return ss.Eng.Build()
}

////////////////////////////////////////////////////////////////////////////////
// 	    Init, utils

// Init restarts the run and applies current parameters, rebuilding the
// network with freshly generated connectivity.
func (ss *Sim) Init() {
	rand.Seed(ss.RndSeed)
	ss.StopNow = false
	ss.SetParams("", ss.LogSetParams) // all sheets
	ss.ConfigPops()
	ss.RanMs = 0
	ss.NSpikes = 0
	if err := ss.BuildNet(); err != nil {
		log.Println(err)
	}
	ss.ConfigLogs()
}

// NewRndSeed gets a new random seed based on current time -- otherwise uses
// the same random seed for every run
func (ss *Sim) NewRndSeed() {
	ss.RndSeed = time.Now().UnixNano()
}

// Counters returns a string of the current counter state
// use tabs to achieve a reasonable formatting overall
// and add a few tabs at the end to allow for expansion..
func (ss *Sim) Counters() string {
	return fmt.Sprintf("Ran:\t%.0f msec\tSpikes:\t%d\t\t\t", ss.RanMs, ss.NSpikes)
}

////////////////////////////////////////////////////////////////////////////////
// 	    Running the simulation

// RunSim runs the simulation out to DurMs, in chunks so Stop is responsive,
// then logs the spike table and rate summary.
func (ss *Sim) RunSim() {
	ss.StopNow = false
	ctx := context.Background()
	chunk := 10.0
	for ss.RanMs < ss.DurMs {
		if ss.StopNow {
			break
		}
		ms := chunk
		if rem := ss.DurMs - ss.RanMs; rem < ms {
			ms = rem
		}
		if err := ss.Eng.Run(ctx, ms); err != nil {
			log.Println(err)
			break
		}
		ss.RanMs += ms
		ss.NSpikes = len(ss.Eng.Spikes())
		ss.UpdateRaster()
	}
	ss.LogSpikes(ss.SpikeLog)
	ss.LogRates(ss.RateLog)
	ss.Stopped()
}

// Stop tells the sim to stop running
func (ss *Sim) Stop() {
	ss.StopNow = true
}

// Stopped is called when a run method stops running -- updates the IsRunning flag and toolbar
func (ss *Sim) Stopped() {
	ss.IsRunning = false
	if ss.Win != nil {
		vp := ss.Win.WinViewport2D()
		vp.BlockUpdates()
		if ss.ToolBar != nil {
			ss.ToolBar.UpdateActions()
		}
		vp.UnblockUpdates()
		vp.SetNeedsFullRender()
	}
}

/////////////////////////////////////////////////////////////////////////
//   Params setting

// ParamsName returns name of current set of parameters
func (ss *Sim) ParamsName() string {
	if ss.ParamSet == "" {
		return "Base"
	}
	return ss.ParamSet
}

// SetParams sets the params for "Base" and then current ParamSet.
// If sheet is empty, then it applies all avail sheets (e.g., Sim)
// otherwise just the named sheet
// if setMsg = true then we output a message for each param that was set.
func (ss *Sim) SetParams(sheet string, setMsg bool) error {
	if sheet == "" {
		// this is important for catching typos and ensuring that all sheets can be used
		ss.Params.ValidateSheets([]string{"Sim"})
	}
	err := ss.SetParamsSet("Base", sheet, setMsg)
	if ss.ParamSet != "" && ss.ParamSet != "Base" {
		err = ss.SetParamsSet(ss.ParamSet, sheet, setMsg)
	}
	return err
}

// SetParamsSet sets the params for given params.Set name.
// If sheet is empty, then it applies all avail sheets (e.g., Sim)
// otherwise just the named sheet
// if setMsg = true then we output a message for each param that was set.
func (ss *Sim) SetParamsSet(setNm string, sheet string, setMsg bool) error {
	pset, err := ss.Params.SetByNameTry(setNm)
	if err != nil {
		return err
	}
	if sheet == "" || sheet == "Sim" {
		simp, ok := pset.Sheets["Sim"]
		if ok {
			simp.Apply(ss, setMsg)
		}
	}
	return err
}

////////////////////////////////////////////////////////////////////////////////////////////
// 		Logging

// RunName returns a name for this run that combines Tag and Params -- add this to
// any file names that are saved.
func (ss *Sim) RunName() string {
	if ss.Tag != "" {
		return ss.Tag + "_" + ss.ParamsName()
	} else {
		return ss.ParamsName()
	}
}

// LogFileName returns default log file name
func (ss *Sim) LogFileName(lognm string) string {
	return "microcircuit_" + ss.RunName() + "_" + lognm + ".tsv"
}

// LogSpikes rebuilds the spike log table from the engine's recorded spikes.
func (ss *Sim) LogSpikes(dt *etable.Table) {
	*dt = *spikes.Log(ss.Eng.Spikes(), ss.Pops)
	if ss.RasterPlot != nil {
		// note: essential to use Go version of update when called from another goroutine
		ss.RasterPlot.GoUpdate()
	}
}

// LogRates rebuilds the per-population rate summary from the spike log.
// Under MPI, statistics are averaged across the independent realizations
// running on each rank.
func (ss *Sim) LogRates(dt *etable.Table) {
	*dt = *spikes.Summary(ss.SpikeLog, ss.Pops, ss.RanMs, ss.BinMs)
	if ss.UseMPI {
		ss.MPIAvgRates(dt)
	}
	if ss.RatePlot != nil {
		ss.RatePlot.GoUpdate()
	}
}

// UpdateRaster rebins the recorded spikes into the raster grid.
func (ss *Sim) UpdateRaster() {
	*ss.Raster = *spikes.Raster(ss.Eng.Spikes(), ss.NTot(), ss.DurMs, ss.BinMs)
	if ss.RasterView != nil {
		ss.RasterView.UpdateSig()
	}
}

// SaveSpikeLog saves the spike log to a .tsv file -- when called with
// giv.CallMethod it will auto-prompt for filename
func (ss *Sim) SaveSpikeLog(filename gi.FileName) {
	ss.SpikeLog.SaveCSV(filename, etable.Tab, etable.Headers)
}

// SaveRateLog saves the rate summary to a .tsv file
func (ss *Sim) SaveRateLog(filename gi.FileName) {
	ss.RateLog.SaveCSV(filename, etable.Tab, etable.Headers)
}

func (ss *Sim) ConfigRasterPlot(plt *eplot.Plot2D, dt *etable.Table) *eplot.Plot2D {
	plt.Params.Title = "Microcircuit Spike Raster"
	plt.Params.XAxisCol = "Time"
	plt.Params.Lines = false
	plt.Params.Points = true
	plt.SetTable(dt)
	// order of params: on, fixMin, min, fixMax, max
	plt.SetColParams("Time", false, true, 0, true, ss.DurMs)
	plt.SetColParams("Sender", true, true, 0, true, float64(ss.NTot()))
	return plt
}

func (ss *Sim) ConfigRatePlot(plt *eplot.Plot2D, dt *etable.Table) *eplot.Plot2D {
	plt.Params.Title = "Microcircuit Firing Rates"
	plt.Params.XAxisCol = "Pop"
	plt.Params.Type = eplot.Bar
	plt.SetTable(dt)
	plt.SetColParams("RateMean", true, true, 0, false, 0)
	plt.SetColParams("RateMedian", true, true, 0, false, 0)
	plt.SetColParams("CVISI", false, true, 0, false, 0)
	plt.SetColParams("Fano", false, true, 0, false, 0)
	return plt
}

// ConfigRasterView configures the raster TensorGrid display.
func (ss *Sim) ConfigRasterView(tg *etview.TensorGrid) {
	tg.SetStretchMax()
	tg.SetTensor(ss.Raster)
	tg.Disp.Defaults()
	tg.Disp.ColorMap = giv.ColorMapName("ColdHot")
	ss.RasterView = tg
}

////////////////////////////////////////////////////////////////////////////////////////////
// 		Gui

// ConfigGui configures the GoGi gui interface for this simulation,
func (ss *Sim) ConfigGui() *gi.Window {
	width := 1600
	height := 1200

	gi.SetAppName("Microcircuit")
	gi.SetAppAbout(`Layer-5 cortical microcircuit with generated fixed-total connectivity. See <a href="https://github.com/emer/emergent">emergent on GitHub</a>.</p>`)

	win := gi.NewMainWindow("Microcircuit", "Layer-5 cortical microcircuit", width, height)
	ss.Win = win

	vp := win.WinViewport2D()
	updt := vp.UpdateStart()

	mfr := win.SetMainFrame()

	tbar := gi.AddNewToolBar(mfr, "tbar")
	tbar.SetStretchMaxWidth()
	ss.ToolBar = tbar

	split := gi.AddNewSplitView(mfr, "split")
	split.Dim = gi.X
	split.SetStretchMaxWidth()
	split.SetStretchMaxHeight()

	sv := giv.AddNewStructView(split, "sv")
	sv.SetStruct(ss)

	tv := gi.AddNewTabView(split, "tv")

	tg := tv.AddNewTab(etview.KiT_TensorGrid, "Raster").(*etview.TensorGrid)
	ss.ConfigRasterView(tg)

	plt := tv.AddNewTab(eplot.KiT_Plot2D, "RasterPlot").(*eplot.Plot2D)
	ss.RasterPlot = ss.ConfigRasterPlot(plt, ss.SpikeLog)

	plt = tv.AddNewTab(eplot.KiT_Plot2D, "RatePlot").(*eplot.Plot2D)
	ss.RatePlot = ss.ConfigRatePlot(plt, ss.RateLog)

	tab := tv.AddNewTab(etview.KiT_TableView, "RateLog").(*etview.TableView)
	tab.SetTable(ss.RateLog, nil)
	ss.RateView = tab

	split.SetSplits(.3, .7)

	tbar.AddAction(gi.ActOpts{Label: "Init", Icon: "update", Tooltip: "Initialize everything: regenerates connectivity and rebuilds the network.  Also applies current params.", UpdateFunc: func(act *gi.Action) {
		act.SetActiveStateUpdt(!ss.IsRunning)
	}}, win.This(), func(recv, send ki.Ki, sig int64, data interface{}) {
		ss.Init()
		vp.SetNeedsFullRender()
	})

	tbar.AddAction(gi.ActOpts{Label: "Run", Icon: "run", Tooltip: "Runs the simulation out to DurMs, picking up from wherever it may have left off.",
		UpdateFunc: func(act *gi.Action) {
			act.SetActiveStateUpdt(!ss.IsRunning)
		}}, win.This(), func(recv, send ki.Ki, sig int64, data interface{}) {
		if !ss.IsRunning {
			ss.IsRunning = true
			tbar.UpdateActions()
			go ss.RunSim()
		}
	})

	tbar.AddAction(gi.ActOpts{Label: "Stop", Icon: "stop", Tooltip: "Interrupts running.  Hitting Run again will pick back up where it left off.", UpdateFunc: func(act *gi.Action) {
		act.SetActiveStateUpdt(ss.IsRunning)
	}}, win.This(), func(recv, send ki.Ki, sig int64, data interface{}) {
		ss.Stop()
	})

	tbar.AddSeparator("log")

	tbar.AddAction(gi.ActOpts{Label: "Reset Logs", Icon: "reset", Tooltip: "Reset the spike log, rate summary, and raster grid", UpdateFunc: func(act *gi.Action) {
		act.SetActiveStateUpdt(!ss.IsRunning)
	}}, win.This(), func(recv, send ki.Ki, sig int64, data interface{}) {
		ss.ConfigLogs()
		ss.RasterPlot.Update()
		ss.RatePlot.Update()
	})

	tbar.AddSeparator("misc")

	tbar.AddAction(gi.ActOpts{Label: "New Seed", Icon: "new", Tooltip: "Generate a new initial random seed to get different results.  By default, Init re-establishes the same initial seed every time."}, win.This(),
		func(recv, send ki.Ki, sig int64, data interface{}) {
			ss.NewRndSeed()
		})

	tbar.AddAction(gi.ActOpts{Label: "README", Icon: "file-markdown", Tooltip: "Opens your browser on the README file that contains instructions for how to run this model."}, win.This(),
		func(recv, send ki.Ki, sig int64, data interface{}) {
			gi.OpenURL("https://github.com/ccnlab/microcircuit/blob/main/README.md")
		})

	vp.UpdateEndNoSig(updt)

	// main menu
	appnm := gi.AppName()
	mmen := win.MainMenu
	mmen.ConfigMenus([]string{appnm, "File", "Edit", "Window"})

	amen := win.MainMenu.ChildByName(appnm, 0).(*gi.Action)
	amen.Menu.AddAppMenu(win)

	emen := win.MainMenu.ChildByName("Edit", 1).(*gi.Action)
	emen.Menu.AddCopyCutPaste(win)

	inQuitPrompt := false
	gi.SetQuitReqFunc(func() {
		if inQuitPrompt {
			return
		}
		inQuitPrompt = true
		gi.PromptDialog(vp, gi.DlgOpts{Title: "Really Quit?",
			Prompt: "Are you <i>sure</i> you want to quit and lose any unsaved params, logs, etc?"}, true, true,
			win.This(), func(recv, send ki.Ki, sig int64, data interface{}) {
				if sig == int64(gi.DialogAccepted) {
					gi.Quit()
				} else {
					inQuitPrompt = false
				}
			})
	})

	inClosePrompt := false
	win.SetCloseReqFunc(func(w *gi.Window) {
		if inClosePrompt {
			return
		}
		inClosePrompt = true
		gi.PromptDialog(vp, gi.DlgOpts{Title: "Really Close Window?",
			Prompt: "Are you <i>sure</i> you want to close the window?  This will Quit the App as well, losing all unsaved params, logs, etc"}, true, true,
			win.This(), func(recv, send ki.Ki, sig int64, data interface{}) {
				if sig == int64(gi.DialogAccepted) {
					gi.Quit()
				} else {
					inClosePrompt = false
				}
			})
	})

	win.SetCloseCleanFunc(func(w *gi.Window) {
		go gi.Quit() // once main window is closed, quit
	})

	win.MainMenuUpdated()
	return win
}

// These props register Save methods so they can be used
var SimProps = ki.Props{
	"CallMethods": ki.PropSlice{
		{Name: "SaveSpikeLog", Value: ki.Props{
			"desc": "save spike log to a .tsv file",
			"icon": "file-save",
			"Args": ki.PropSlice{
				{Name: "File Name", Value: ki.Props{
					"ext": ".tsv",
				}},
			},
		}},
		{Name: "SaveRateLog", Value: ki.Props{
			"desc": "save rate summary to a .tsv file",
			"icon": "file-save",
			"Args": ki.PropSlice{
				{Name: "File Name", Value: ki.Props{
					"ext": ".tsv",
				}},
			},
		}},
	},
}

////////////////////////////////////////////////////////////////////////////////////////////
// 		MPI

// MPIInit initializes MPI -- each rank runs an independent realization with
// a seed offset by its rank, and rate statistics are averaged at the end.
func (ss *Sim) MPIInit() {
	mpi.Init()
	var err error
	ss.Comm, err = mpi.NewComm(nil) // use all procs
	if err != nil {
		log.Println(err)
		ss.UseMPI = false
	} else {
		mpi.Printf("MPI running on %d procs\n", mpi.WorldSize())
	}
}

// MPIFinalize finalizes MPI at end of run
func (ss *Sim) MPIFinalize() {
	if ss.UseMPI {
		mpi.Finalize()
	}
}

// MPIAvgRates averages the firing statistics columns across ranks.
func (ss *Sim) MPIAvgRates(dt *etable.Table) {
	if ss.Comm == nil || dt.Rows == 0 {
		return
	}
	np := float64(mpi.WorldSize())
	cols := []string{"RateMean", "RateMin", "RateMax", "RateMedian", "CVISI", "Fano"}
	for _, cnm := range cols {
		src := make([]float32, dt.Rows)
		dst := make([]float32, dt.Rows)
		for r := 0; r < dt.Rows; r++ {
			src[r] = float32(dt.CellFloat(cnm, r))
		}
		ss.Comm.AllReduceF32(mpi.OpSum, dst, src)
		for r := 0; r < dt.Rows; r++ {
			dt.SetCellFloat(cnm, r, float64(dst[r])/np)
		}
	}
}

////////////////////////////////////////////////////////////////////////////////////////////
// 		CmdArgs

func (ss *Sim) CmdArgs() {
	ss.NoGui = true
	var nogui bool
	var saveSpkLog bool
	var saveRateLog bool
	flag.StringVar(&ss.ParamSet, "params", "", "ParamSet name to use -- must be valid name as listed in compiled-in params or loaded params")
	flag.StringVar(&ss.Tag, "tag", "", "extra tag to add to file names saved from this run")
	flag.Int64Var(&ss.RndSeed, "seed", 42, "random seed for connectivity generation and external drive")
	flag.BoolVar(&ss.LogSetParams, "setparams", false, "if true, print a record of each parameter that is set")
	flag.BoolVar(&saveSpkLog, "spikelog", true, "if true, save spike log to file")
	flag.BoolVar(&saveRateLog, "ratelog", true, "if true, save rate summary to file")
	flag.BoolVar(&ss.UseMPI, "mpi", false, "if true, use MPI: each rank runs an independent seed-offset realization and rate stats are averaged")
	flag.BoolVar(&nogui, "nogui", true, "if not passing any other args and want to run nogui, use nogui")
	flag.Parse()

	if ss.UseMPI {
		ss.MPIInit()
		ss.RndSeed += int64(mpi.WorldRank())
	}
	ss.Init()

	if ss.ParamSet != "" {
		mpi.Printf("Using ParamSet: %s\n", ss.ParamSet)
	}
	mpi.Printf("Running %g msec at scale %g: %d neurons\n", ss.DurMs, ss.Scale, ss.NTot())
	ss.RunSim()

	if saveSpkLog && (!ss.UseMPI || mpi.WorldRank() == 0) {
		fnm := ss.LogFileName("spikes")
		err := ss.SpikeLog.SaveCSV(gi.FileName(fnm), etable.Tab, etable.Headers)
		if err != nil {
			log.Println(err)
		} else {
			mpi.Printf("Saved spike log to: %v\n", fnm)
		}
	}
	if saveRateLog && (!ss.UseMPI || mpi.WorldRank() == 0) {
		fnm := ss.LogFileName("rates")
		err := ss.RateLog.SaveCSV(gi.FileName(fnm), etable.Tab, etable.Headers)
		if err != nil {
			log.Println(err)
		} else {
			mpi.Printf("Saved rate summary to: %v\n", fnm)
		}
	}
	ss.MPIFinalize()
}

func mainrun() {
	TheSim.New()
	TheSim.Config()

	if len(os.Args) > 1 {
		TheSim.CmdArgs() // simple assumption is that any args = no gui -- could add explicit arg if you want
	} else {
		TheSim.Init()
		win := TheSim.ConfigGui()
		win.StartEventLoop()
	}
}
