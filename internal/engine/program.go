// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"math"
)

// Harmonic describes one seasonality as a truncated Fourier series over
// scaled time.
type Harmonic struct {
	Name       string  // Seasonality name (e.g. "weekly")
	Period     float64 // Period in scaled-time units
	Order      int     // Number of Fourier terms
	PriorScale float64 // Gaussian prior scale on the coefficients
}

// Spec declares the feature structure of a model to be fitted: a
// piecewise-linear trend with rate changepoints plus Fourier
// seasonalities.
type Spec struct {
	ChangepointsT    []float64  // Changepoint locations in scaled time, ascending
	ChangepointPrior float64    // Prior scale on rate adjustments (default: 0.05)
	Harmonics        []Harmonic // Seasonal components, in fit order
	Mode             string     // Seasonality mode label, carried through for the model
}

// Program is a model spec compiled into a design-matrix builder.
//
// A Program holds closures over the spec and is therefore not
// serializable; a deserialized model must recompile before refitting.
type Program struct {
	spec        Spec
	seasonalDim int
	penalty     []float64
	build       func(t []float64) [][]float64
}

// Compile turns a spec into an executable feature program.
//
// Feature layout per row, matching the fitted weight vector:
//
//	[0]                      trend slope (k)
//	[1]                      offset (m)
//	[2 : 2+len(changepoints)] rate adjustments (delta)
//	[2+len(changepoints) :]  seasonal coefficients (beta), sin/cos pairs
//	                         per harmonic in spec order
func Compile(spec Spec) (*Program, error) {
	if spec.ChangepointPrior == 0 {
		spec.ChangepointPrior = 0.05
	}
	seasonalDim := 0
	for _, h := range spec.Harmonics {
		if h.Order <= 0 {
			return nil, fmt.Errorf("harmonic %q: order must be > 0, got %d", h.Name, h.Order)
		}
		if h.Period <= 0 {
			return nil, fmt.Errorf("harmonic %q: period must be > 0, got %v", h.Name, h.Period)
		}
		seasonalDim += 2 * h.Order
	}

	nCp := len(spec.ChangepointsT)
	nFeatures := 2 + nCp + seasonalDim

	penalty := make([]float64, nFeatures)
	for j := 0; j < nCp; j++ {
		penalty[2+j] = 1.0 / (spec.ChangepointPrior * spec.ChangepointPrior)
	}
	col := 2 + nCp
	for _, h := range spec.Harmonics {
		ps := h.PriorScale
		if ps == 0 {
			ps = 10.0
		}
		for j := 0; j < 2*h.Order; j++ {
			penalty[col+j] = 1.0 / (ps * ps)
		}
		col += 2 * h.Order
	}

	harmonics := append([]Harmonic(nil), spec.Harmonics...)
	changepoints := append([]float64(nil), spec.ChangepointsT...)

	build := func(t []float64) [][]float64 {
		rows := make([][]float64, len(t))
		for i, ti := range t {
			row := make([]float64, nFeatures)
			row[0] = ti
			row[1] = 1.0
			for j, s := range changepoints {
				if ti > s {
					row[2+j] = ti - s
				}
			}
			col := 2 + len(changepoints)
			for _, h := range harmonics {
				for k := 1; k <= h.Order; k++ {
					arg := 2 * math.Pi * float64(k) * ti / h.Period
					row[col] = math.Sin(arg)
					row[col+1] = math.Cos(arg)
					col += 2
				}
			}
			rows[i] = row
		}
		return rows
	}

	return &Program{
		spec:        spec,
		seasonalDim: seasonalDim,
		penalty:     penalty,
		build:       build,
	}, nil
}

// Features builds the design matrix for the given scaled times.
func (p *Program) Features(t []float64) [][]float64 {
	return p.build(t)
}

// NumFeatures returns the width of the design matrix.
func (p *Program) NumFeatures() int {
	return 2 + len(p.spec.ChangepointsT) + p.seasonalDim
}

// NumChangepoints returns the number of trend changepoints.
func (p *Program) NumChangepoints() int {
	return len(p.spec.ChangepointsT)
}

// SeasonalDim returns the number of seasonal coefficients.
func (p *Program) SeasonalDim() int {
	return p.seasonalDim
}

// Spec returns the spec the program was compiled from.
func (p *Program) Spec() Spec {
	return p.spec
}
