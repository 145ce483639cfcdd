// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package engine implements the native fitting engine behind tidecast
// model backends.
//
// The engine compiles a model spec into a design-matrix Program and fits
// it by minimizing a ridge-penalized least-squares objective with Adam.
// The two artifacts it produces, the Program and the fit Handle, hold
// closures and live mutable state (RNG, scratch buffers) and are
// deliberately outside the serializable attribute surface of a model.
package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fit algorithms.
const (
	AlgorithmMAP     = "map"     // MAP point estimate only
	AlgorithmLaplace = "laplace" // MAP plus Laplace posterior draws
)

// Fit errors.
var (
	ErrNoData           = errors.New("no observations to fit")
	ErrLengthMismatch   = errors.New("time and value lengths differ")
	ErrUnknownAlgorithm = errors.New("unknown fit algorithm")
)

// Options control a fit run. Zero-valued fields fall back to defaults.
type Options struct {
	Algorithm    string      // "map" or "laplace" (default: "map")
	Iterations   int         // Maximum Adam steps (default: 2000)
	LearningRate float64     // Adam learning rate (default: 0.05)
	Tolerance    float64     // Gradient-norm convergence threshold (default: 1e-7)
	Draws        int         // Posterior draws for "laplace" (default: 100)
	Seed         int64       // RNG seed for posterior draws (default: 1)
	Logger       *zap.Logger // Fit progress logging (default: zap.NewNop())
}

func (o Options) withDefaults() Options {
	if o.Algorithm == "" {
		o.Algorithm = AlgorithmMAP
	}
	if o.Iterations == 0 {
		o.Iterations = 2000
	}
	if o.LearningRate == 0 {
		o.LearningRate = 0.05
	}
	if o.Tolerance == 0 {
		o.Tolerance = 1e-7
	}
	if o.Draws == 0 {
		o.Draws = 100
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Handle is the live state of a completed fit. It keeps the final iterate
// and the RNG used for posterior draws so a fit can be resumed or
// re-sampled in process. Handles do not survive serialization.
type Handle struct {
	RunID   string
	weights []float64
	rng     *rand.Rand
	logger  *zap.Logger
}

// Weights returns the final parameter vector of the fit.
func (h *Handle) Weights() []float64 {
	return h.weights
}

// Output is the portable result of a fit: everything a backend stores in
// its fit-param map plus run diagnostics.
type Output struct {
	K          float64     // Trend slope
	M          float64     // Trend offset
	Delta      []float64   // Rate adjustments, one per changepoint
	Beta       []float64   // Seasonal coefficients
	SigmaObs   float64     // Residual standard deviation
	BetaDraws  [][]float64 // Laplace posterior draws of Beta (nil for MAP and for trend-only fits)
	Iterations int         // Adam steps actually taken
	Converged  bool        // Whether the gradient norm fell below tolerance
	FinalLoss  float64     // Objective value at the final iterate
}

// Fit runs the optimizer on scaled times t and scaled observations y.
//
// The objective is mean squared error plus the program's per-weight ridge
// penalty. Convergence is declared when the gradient norm drops below
// Options.Tolerance; otherwise the run stops at Options.Iterations.
func Fit(p *Program, t, y []float64, opts Options) (*Handle, *Output, error) {
	opts = opts.withDefaults()
	if len(t) == 0 {
		return nil, nil, ErrNoData
	}
	if len(t) != len(y) {
		return nil, nil, fmt.Errorf("%w: %d times, %d values", ErrLengthMismatch, len(t), len(y))
	}
	if opts.Algorithm != AlgorithmMAP && opts.Algorithm != AlgorithmLaplace {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, opts.Algorithm)
	}

	runID := uuid.NewString()
	logger := opts.Logger.With(zap.String("run_id", runID))
	logger.Info("starting fit",
		zap.String("algorithm", opts.Algorithm),
		zap.Int("observations", len(t)),
		zap.Int("features", p.NumFeatures()),
	)

	design := p.Features(t)
	n := float64(len(t))
	w := make([]float64, p.NumFeatures())
	grad := make([]float64, len(w))
	opt := newAdam(len(w), adamConfig{lr: opts.LearningRate})

	var (
		loss      float64
		converged bool
		steps     int
	)
	for steps = 1; steps <= opts.Iterations; steps++ {
		loss = objective(design, y, w, p.penalty, n, grad)
		gnorm := norm(grad)
		if gnorm < opts.Tolerance {
			converged = true
			break
		}
		opt.step(w, grad)
		if steps%200 == 0 {
			logger.Debug("fit step",
				zap.Int("step", steps),
				zap.Float64("loss", loss),
				zap.Float64("grad_norm", gnorm),
			)
		}
	}
	if steps > opts.Iterations {
		steps = opts.Iterations
	}
	if !converged {
		// The loop steps after evaluating the objective, so recompute
		// it at the final iterate when the run hit the iteration cap.
		loss = objective(design, y, w, p.penalty, n, grad)
	}

	sigma := residualStddev(design, y, w)

	nCp := p.NumChangepoints()
	out := &Output{
		K:          w[0],
		M:          w[1],
		Delta:      append([]float64(nil), w[2:2+nCp]...),
		Beta:       append([]float64(nil), w[2+nCp:]...),
		SigmaObs:   sigma,
		Iterations: steps,
		Converged:  converged,
		FinalLoss:  loss,
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	if opts.Algorithm == AlgorithmLaplace && len(out.Beta) > 0 {
		out.BetaDraws = laplaceDraws(rng, out.Beta, sigma, n, opts.Draws)
	}

	logger.Info("fit finished",
		zap.Int("iterations", out.Iterations),
		zap.Bool("converged", out.Converged),
		zap.Float64("final_loss", out.FinalLoss),
		zap.Float64("sigma_obs", out.SigmaObs),
	)

	handle := &Handle{
		RunID:   runID,
		weights: w,
		rng:     rng,
		logger:  logger,
	}
	return handle, out, nil
}

// objective computes the ridge objective at w and writes its gradient
// into grad. Returns the objective value.
func objective(design [][]float64, y, w, penalty []float64, n float64, grad []float64) float64 {
	for i := range grad {
		grad[i] = 0
	}
	var sse float64
	for i, row := range design {
		pred := dot(row, w)
		r := pred - y[i]
		sse += r * r
		for j, x := range row {
			grad[j] += 2 * r * x / n
		}
	}
	loss := sse / n
	for j := range w {
		loss += penalty[j] * w[j] * w[j] / n
		grad[j] += 2 * penalty[j] * w[j] / n
	}
	return loss
}

// laplaceDraws samples seasonal coefficients from the Laplace
// approximation around the MAP estimate. The covariance is approximated
// as diagonal with scale sigma/sqrt(n).
func laplaceDraws(rng *rand.Rand, beta []float64, sigma, n float64, draws int) [][]float64 {
	scale := sigma / math.Sqrt(n)
	out := make([][]float64, draws)
	for d := range out {
		row := make([]float64, len(beta))
		for j, b := range beta {
			row[j] = b + scale*rng.NormFloat64()
		}
		out[d] = row
	}
	return out
}

func residualStddev(design [][]float64, y, w []float64) float64 {
	if len(design) == 0 {
		return 0
	}
	var sse float64
	for i, row := range design {
		r := dot(row, w) - y[i]
		sse += r * r
	}
	return math.Sqrt(sse / float64(len(design)))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
