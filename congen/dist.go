// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package congen

import (
	"fmt"
	"math"

	"github.com/emer/etable/minmax"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dist is a normal distribution truncated by redrawing: samples are drawn
// from N(Mean, Sigma) and redrawn while outside Range.  Use math.Inf for an
// open bound.  Redrawn truncation shifts the realized moments slightly
// relative to the nominal Mean / Sigma when the bounds cut into the mass.
type Dist struct {
	Mean  float64    `desc:"mean of the underlying normal"`
	Sigma float64    `desc:"standard deviation of the underlying normal -- 0 = deterministic Mean"`
	Range minmax.F64 `desc:"acceptance range, inclusive -- values outside are redrawn"`
}

// NewDist returns a Dist with the given parameters and range.
func NewDist(mean, sigma, min, max float64) Dist {
	return Dist{Mean: mean, Sigma: sigma, Range: minmax.F64{Min: min, Max: max}}
}

// Validate checks the distribution parameters for feasibility.
func (ds *Dist) Validate() error {
	if ds.Sigma < 0 {
		return fmt.Errorf("sigma must be >= 0, got: %g", ds.Sigma)
	}
	if !(ds.Range.Max > ds.Range.Min) {
		return fmt.Errorf("empty acceptance range: [%g, %g]", ds.Range.Min, ds.Range.Max)
	}
	if ds.Sigma == 0 && !ds.accept(ds.Mean) {
		return fmt.Errorf("deterministic value %g outside acceptance range [%g, %g]", ds.Mean, ds.Range.Min, ds.Range.Max)
	}
	return nil
}

func (ds *Dist) accept(v float64) bool {
	return v >= ds.Range.Min && v <= ds.Range.Max
}

// Sample draws one value, redrawing while outside Range, for at most
// maxTries attempts.  Sigma == 0 short-circuits to Mean without consuming
// the source; a deterministic Mean outside Range is a parameter defect,
// reported as *ConfigError (same condition Validate rejects).
func (ds *Dist) Sample(src rand.Source, maxTries int) (float64, error) {
	if ds.Sigma == 0 {
		if !ds.accept(ds.Mean) {
			return 0, &ConfigError{Spec: "dist", Msg: fmt.Sprintf("deterministic value %g outside acceptance range [%g, %g]", ds.Mean, ds.Range.Min, ds.Range.Max)}
		}
		return ds.Mean, nil
	}
	nd := distuv.Normal{Mu: ds.Mean, Sigma: ds.Sigma, Src: src}
	for t := 0; t < maxTries; t++ {
		v := nd.Rand()
		if ds.accept(v) {
			return v, nil
		}
	}
	return 0, &RetriesError{What: "value", Tries: maxTries}
}

// Scale returns a copy with Mean multiplied by fac, Sigma by |fac| (relative
// spread preserved), and the range reflected when fac is negative so the
// acceptance mass is preserved.  Used for deriving inhibitory weight
// distributions from an excitatory base: exc.Scale(-g).
func (ds Dist) Scale(fac float64) Dist {
	ns := ds
	ns.Mean *= fac
	ns.Sigma *= math.Abs(fac)
	if fac < 0 {
		ns.Range.Min, ns.Range.Max = -ds.Range.Max, -ds.Range.Min
	}
	return ns
}

// Unbounded is the fully open acceptance range.
func Unbounded() minmax.F64 {
	return minmax.F64{Min: math.Inf(-1), Max: math.Inf(1)}
}
