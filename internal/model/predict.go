// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package model

import (
	"fmt"
	"math"
	"time"

	"github.com/tidecast-ml/tidecast/internal/engine"
)

// zQuantile is the standard normal quantile for the 95% interval.
const zQuantile = 1.96

// Forecast holds predicted values with their uncertainty bounds. Slices
// are all the same length as T.
type Forecast struct {
	T        []time.Time `json:"time"`
	Forecast []float64   `json:"forecast"`
	Upper    []float64   `json:"upper"`
	Lower    []float64   `json:"lower"`
}

// MakeFuture returns horizon timestamps continuing the history at the
// model's sampling period.
func (m *Model) MakeFuture(horizon int) ([]time.Time, error) {
	if !m.Fitted {
		return nil, ErrNotFitted
	}
	tCol, _ := m.History.Column(m.Timestamp)
	times := tCol.Times()
	last := times[len(times)-1]
	out := make([]time.Time, horizon)
	for i := range out {
		out[i] = last.Add(time.Duration(i+1) * m.SamplingPeriod)
	}
	return out, nil
}

// Predict evaluates the fitted model at horizon future points.
//
// Works on freshly fitted and deserialized models alike: the feature
// program is recompiled from the serialized attribute surface, and the
// weight vector is reassembled from the backend's fit-param map.
func (m *Model) Predict(horizon int) (*Forecast, error) {
	if !m.Fitted || m.Backend == nil {
		return nil, ErrNotFitted
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	future, err := m.MakeFuture(horizon)
	if err != nil {
		return nil, err
	}

	tCol, _ := m.History.Column(m.Timestamp)
	times := tCol.Times()
	span := times[len(times)-1].Sub(times[0]).Seconds()

	var cpT []float64
	if m.ChangepointsT != nil {
		cpT = m.ChangepointsT.Float64s()
	}
	program, err := engine.Compile(m.spec(cpT, span))
	if err != nil {
		return nil, fmt.Errorf("recompiling model: %w", err)
	}

	w, err := m.weights(program)
	if err != nil {
		return nil, err
	}

	tScaled := make([]float64, len(future))
	for i, ts := range future {
		tScaled[i] = ts.Sub(m.FirstTimestamp).Seconds() / span
	}
	design := program.Features(tScaled)

	state := m.Backend.State()
	sigma := 0.0
	if p, ok := state.FitParams["sigma_obs"]; ok {
		sigma = p.Scalar()
	}

	// Per-point spread of the seasonal component across posterior draws,
	// zero for point-estimate backends.
	seasonalStd := m.seasonalSpread(design, program)

	out := &Forecast{
		T:        future,
		Forecast: make([]float64, len(future)),
		Upper:    make([]float64, len(future)),
		Lower:    make([]float64, len(future)),
	}
	for i, row := range design {
		var pred float64
		for j, x := range row {
			pred += x * w[j]
		}
		yhat := pred*m.YScale + m.YMin
		interval := zQuantile * math.Sqrt(sigma*sigma+seasonalStd[i]*seasonalStd[i]) * m.YScale
		out.Forecast[i] = yhat
		out.Upper[i] = yhat + interval
		out.Lower[i] = yhat - interval
	}
	return out, nil
}

// weights reassembles the flat weight vector [k, m, delta..., beta...]
// from the backend's fit-param map.
func (m *Model) weights(program *engine.Program) ([]float64, error) {
	state := m.Backend.State()
	w := make([]float64, program.NumFeatures())

	get := func(name string) (Param, error) {
		p, ok := state.FitParams[name]
		if !ok {
			return Param{}, fmt.Errorf("fit params missing %q", name)
		}
		return p, nil
	}

	k, err := get("k")
	if err != nil {
		return nil, err
	}
	w[0] = k.Scalar()
	off, err := get("m")
	if err != nil {
		return nil, err
	}
	w[1] = off.Scalar()

	nCp := program.NumChangepoints()
	if nCp > 0 {
		delta, err := get("delta")
		if err != nil {
			return nil, err
		}
		vals := delta.Array().Float64s()
		if len(vals) != nCp {
			return nil, fmt.Errorf("delta has %d entries, program has %d changepoints", len(vals), nCp)
		}
		copy(w[2:], vals)
	}
	if program.SeasonalDim() > 0 {
		beta, err := get("beta")
		if err != nil {
			return nil, err
		}
		vals := beta.Array().Float64s()
		if len(vals) != program.SeasonalDim() {
			return nil, fmt.Errorf("beta has %d entries, program has %d seasonal terms", len(vals), program.SeasonalDim())
		}
		copy(w[2+nCp:], vals)
	}
	return w, nil
}

// seasonalSpread returns, per design row, the standard deviation of the
// seasonal contribution across posterior draws. All zeros when the
// backend carries no draws.
func (m *Model) seasonalSpread(design [][]float64, program *engine.Program) []float64 {
	out := make([]float64, len(design))
	drawsParam, ok := m.Backend.State().FitParams["beta_draws"]
	if !ok || !drawsParam.IsArray() {
		return out
	}
	draws := drawsParam.Array()
	shape := draws.Shape()
	if len(shape) != 2 || shape[1] != program.SeasonalDim() {
		return out
	}
	nDraws, dim := shape[0], shape[1]
	flat := draws.Float64s()
	base := 2 + program.NumChangepoints()

	for i, row := range design {
		var sum, sumSq float64
		for d := 0; d < nDraws; d++ {
			var s float64
			for j := 0; j < dim; j++ {
				s += row[base+j] * flat[d*dim+j]
			}
			sum += s
			sumSq += s * s
		}
		mean := sum / float64(nDraws)
		variance := sumSq/float64(nDraws) - mean*mean
		if variance > 0 {
			out[i] = math.Sqrt(variance)
		}
	}
	return out
}
