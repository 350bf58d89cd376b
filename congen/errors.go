// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package congen

import "fmt"

// ConfigError reports an infeasible or inconsistent connection spec,
// detected by validation before any random numbers are drawn.
type ConfigError struct {
	Spec string `desc:"label of the offending spec, e.g., L5e -> L5i"`
	Msg  string `desc:"what is wrong"`
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("congen: invalid spec %s: %s", e.Spec, e.Msg)
}

// RetriesError reports that a redraw loop failed to produce an acceptable
// sample within the configured number of attempts.  A feasible spec makes
// this vanishingly unlikely; hitting it usually means the truncation range
// has near-zero probability mass under the distribution.
type RetriesError struct {
	What  string `desc:"what was being sampled"`
	Tries int    `desc:"number of attempts made"`
}

func (e *RetriesError) Error() string {
	return fmt.Sprintf("congen: no acceptable %s sample after %d attempts", e.What, e.Tries)
}
