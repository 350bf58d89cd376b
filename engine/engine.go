// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine defines the boundary to the spiking simulation engine that
// actually integrates neuron dynamics.  The rest of the repo only describes
// networks (populations, generated edge lists, external drive) and consumes
// recorded spikes -- the dynamics themselves live behind the Engine
// interface.  Axon is the default concrete engine.
package engine

import (
	"context"
	"fmt"

	"github.com/ccnlab/microcircuit/congen"
)

// KernelConfig is the explicit simulation kernel state: integration
// resolution, master seed, and a runaway guard.  It replaces ambient global
// kernel state -- every Reset takes the full config.
type KernelConfig struct {
	Resolution float64 `desc:"integration timestep, msec"`
	Seed       uint64  `desc:"master seed for engine-side randomness (external drive)"`
	MaxCycles  int     `desc:"upper bound on total integration cycles across Run calls"`
}

// Defaults sets default values for unset fields.
func (kc *KernelConfig) Defaults() {
	if kc.Resolution == 0 {
		kc.Resolution = 1.0
	}
	if kc.MaxCycles == 0 {
		kc.MaxCycles = 1000000
	}
}

// Validate checks the config for usable values.
func (kc *KernelConfig) Validate() error {
	if kc.Resolution <= 0 {
		return fmt.Errorf("engine: resolution must be > 0, got: %g", kc.Resolution)
	}
	if kc.MaxCycles < 1 {
		return fmt.Errorf("engine: MaxCycles must be >= 1, got: %d", kc.MaxCycles)
	}
	return nil
}

// SpikeEvent is one recorded spike: the global sender index (populations are
// laid out consecutively in AddPop order) and the simulation time in msec.
type SpikeEvent struct {
	Sender int32   `desc:"global neuron index across all populations"`
	Time   float64 `desc:"simulation time of the spike, msec"`
}

// PopSpec describes one neuron population to instantiate in the engine.
// Neuron parameters beyond the role default are engine-specific and applied
// through the engine's own parameter mechanism.
type PopSpec struct {
	congen.Population
}

// PoissonSpec describes an external Poisson drive device attached to a
// population: KExt independent sources per neuron, each firing at Rate, with
// per-connection weights from Wt.
type PoissonSpec struct {
	KExt int         `desc:"number of independent external sources per target neuron"`
	Rate float64     `desc:"firing rate per source, Hz"`
	Wt   congen.Dist `desc:"drive connection weight distribution"`
}

// Validate checks the drive parameters.
func (ps *PoissonSpec) Validate() error {
	if ps.KExt < 0 {
		return fmt.Errorf("engine: poisson KExt must be >= 0, got: %d", ps.KExt)
	}
	if ps.Rate < 0 {
		return fmt.Errorf("engine: poisson rate must be >= 0, got: %g", ps.Rate)
	}
	if ps.KExt > 0 && ps.Rate > 0 {
		return ps.Wt.Validate()
	}
	return nil
}

// Engine is the simulation kernel boundary.  Construction calls (AddPop,
// Connect, AddPoisson, AddRecorder) are only valid between Reset and Build;
// Run and Spikes only after Build.
type Engine interface {
	// Reset clears all state and applies the kernel config.
	Reset(cfg KernelConfig) error

	// AddPop instantiates a population, returning its id.
	AddPop(ps PopSpec) (int, error)

	// Connect realizes a generated edge list as synapses from send to recv.
	Connect(send, recv int, edges []congen.Edge) error

	// AddPoisson attaches external Poisson drive to a population.
	AddPoisson(recv int, ps PoissonSpec) error

	// AddRecorder enables spike recording for a population.
	AddRecorder(pop int) error

	// Build finalizes the network; no construction calls after this.
	Build() error

	// Run advances the simulation by durMs.  It honors ctx cancellation,
	// returning ctx.Err() with recording stopped at the last completed cycle.
	Run(ctx context.Context, durMs float64) error

	// Spikes returns all recorded spikes so far, in time order.
	Spikes() []SpikeEvent

	// Offsets returns the global index offset of each population by id.
	Offsets() []int32
}
