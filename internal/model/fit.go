// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tidecast-ml/tidecast/internal/engine"
	"github.com/tidecast-ml/tidecast/internal/frame"
	"github.com/tidecast-ml/tidecast/internal/tensor"
)

// Fit validation errors.
var (
	ErrAlreadyFitted = errors.New("model is already fitted")
	ErrNotFitted     = errors.New("model is not fitted")
	ErrTooFewRows    = errors.New("history has too few rows")
)

const minHistoryRows = 3

// Fit fits the model to df, which must contain the model's timestamp
// column (datetime kind, ascending) and metric column (float kind).
//
// Fitting stores the history, computes the value scales, lays out trend
// changepoints over the first ChangepointRange fraction of the history,
// compiles the feature program, and runs the engine. The resulting
// Backend carries the fit-param map plus the two live engine handles.
func (m *Model) Fit(df *frame.Frame, opts engine.Options) error {
	if m.Fitted {
		return ErrAlreadyFitted
	}
	if m.SeasonalityMode != "additive" {
		return fmt.Errorf("seasonality mode %q not supported", m.SeasonalityMode)
	}

	times, y, err := m.historyColumns(df)
	if err != nil {
		return err
	}
	if len(times) < minHistoryRows {
		return fmt.Errorf("%w: %d", ErrTooFewRows, len(times))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return fmt.Errorf("timestamps must be strictly ascending at row %d", i)
		}
	}

	first := times[0]
	span := times[len(times)-1].Sub(first).Seconds()
	if m.SamplingPeriod == 0 {
		m.SamplingPeriod = medianStep(times)
	}

	// Scale observations to [0, 1].
	yMin, yMax := y[0], y[0]
	for _, v := range y {
		if v < yMin {
			yMin = v
		}
		if v > yMax {
			yMax = v
		}
	}
	yScale := yMax - yMin
	if yScale == 0 {
		yScale = 1
	}
	tScaled := make([]float64, len(times))
	yScaled := make([]float64, len(y))
	for i := range times {
		tScaled[i] = times[i].Sub(first).Seconds() / span
		yScaled[i] = (y[i] - yMin) / yScale
	}

	// Changepoints spread evenly over the first ChangepointRange of the
	// scaled time axis.
	nCp := m.NChangepoints
	if nCp > len(times)-2 {
		nCp = len(times) - 2
	}
	cpT := make([]float64, nCp)
	cpOffsets := make([]float64, nCp)
	for j := range cpT {
		cpT[j] = m.ChangepointRange * float64(j+1) / float64(nCp+1)
		cpOffsets[j] = cpT[j] * span
	}

	spec := m.spec(cpT, span)
	program, err := engine.Compile(spec)
	if err != nil {
		return fmt.Errorf("compiling model: %w", err)
	}

	handle, out, err := engine.Fit(program, tScaled, yScaled, opts)
	if err != nil {
		return fmt.Errorf("fitting model: %w", err)
	}

	backend, err := buildBackend(handle, program, out, opts)
	if err != nil {
		return err
	}

	m.History = df
	m.FirstTimestamp = first.UTC()
	m.YScale = yScale
	m.YMin = yMin
	if nCp > 0 {
		m.Changepoints = tensor.Vector(cpOffsets)
		m.ChangepointsT = tensor.Vector(cpT)
	}
	m.Backend = backend
	m.Fitted = true
	return nil
}

// spec builds the engine spec for the given scaled changepoints and
// history span in seconds. Harmonics are emitted in name order so the
// coefficient layout is deterministic.
func (m *Model) spec(cpT []float64, spanSeconds float64) engine.Spec {
	names := make([]string, 0, len(m.Seasonalities))
	for name := range m.Seasonalities {
		names = append(names, name)
	}
	sort.Strings(names)

	harmonics := make([]engine.Harmonic, 0, len(names))
	for _, name := range names {
		s := m.Seasonalities[name]
		harmonics = append(harmonics, engine.Harmonic{
			Name:       s.Name,
			Period:     s.Period.Seconds() / spanSeconds,
			Order:      s.FourierOrder,
			PriorScale: s.PriorScale,
		})
	}
	return engine.Spec{
		ChangepointsT: cpT,
		Harmonics:     harmonics,
		Mode:          m.SeasonalityMode,
	}
}

func (m *Model) historyColumns(df *frame.Frame) ([]time.Time, []float64, error) {
	tCol, ok := df.Column(m.Timestamp)
	if !ok {
		return nil, nil, fmt.Errorf("history is missing timestamp column %q", m.Timestamp)
	}
	if tCol.Kind() != frame.Time {
		return nil, nil, fmt.Errorf("timestamp column %q has kind %s, want time", m.Timestamp, tCol.Kind())
	}
	yCol, ok := df.Column(m.Metric)
	if !ok {
		return nil, nil, fmt.Errorf("history is missing metric column %q", m.Metric)
	}
	if yCol.Kind() != frame.Float {
		return nil, nil, fmt.Errorf("metric column %q has kind %s, want float", m.Metric, yCol.Kind())
	}
	return tCol.Times(), yCol.Floats(), nil
}

func buildBackend(handle *engine.Handle, program *engine.Program, out *engine.Output, opts engine.Options) (Backend, error) {
	params := map[string]Param{
		"k":         ScalarParam(out.K),
		"m":         ScalarParam(out.M),
		"sigma_obs": ScalarParam(out.SigmaObs),
	}
	if len(out.Delta) > 0 {
		params["delta"] = ArrayParam(tensor.Vector(out.Delta))
	}
	if len(out.Beta) > 0 {
		params["beta"] = ArrayParam(tensor.Vector(out.Beta))
	}

	state := BackendState{
		RunID:      handle.RunID,
		Iterations: out.Iterations,
		Converged:  out.Converged,
		FinalLoss:  out.FinalLoss,
		FitParams:  params,
		Handle:     handle,
		Program:    program,
	}

	switch opts.Algorithm {
	case "", engine.AlgorithmMAP:
		tol := opts.Tolerance
		if tol == 0 {
			tol = 1e-7
		}
		return &MAPBackend{BackendState: state, Tolerance: tol}, nil
	case engine.AlgorithmLaplace:
		if len(out.BetaDraws) > 0 {
			flat := make([]float64, 0, len(out.BetaDraws)*len(out.BetaDraws[0]))
			for _, row := range out.BetaDraws {
				flat = append(flat, row...)
			}
			draws, err := tensor.FromFloat64(tensor.Shape{len(out.BetaDraws), len(out.BetaDraws[0])}, flat)
			if err != nil {
				return nil, fmt.Errorf("packing posterior draws: %w", err)
			}
			params["beta_draws"] = ArrayParam(draws)
		}
		seed := opts.Seed
		if seed == 0 {
			seed = 1
		}
		draws := opts.Draws
		if draws == 0 {
			draws = 100
		}
		return &LaplaceBackend{BackendState: state, Draws: draws, Seed: seed}, nil
	default:
		return nil, fmt.Errorf("unknown fit algorithm %q", opts.Algorithm)
	}
}

// medianStep returns the median spacing between consecutive timestamps.
func medianStep(times []time.Time) time.Duration {
	diffs := make([]time.Duration, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		diffs = append(diffs, times[i].Sub(times[i-1]))
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i] < diffs[j] })
	return diffs[len(diffs)/2]
}
