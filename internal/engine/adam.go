// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package engine

import "math"

// adamConfig holds hyperparameters for the Adam optimizer.
type adamConfig struct {
	lr    float64 // Learning rate (default: 0.05)
	beta1 float64 // First-moment decay (default: 0.9)
	beta2 float64 // Second-moment decay (default: 0.999)
	eps   float64 // Term for numerical stability (default: 1e-8)
}

// adam implements the Adam (Adaptive Moment Estimation) update rule over a
// flat parameter vector.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type adam struct {
	cfg adamConfig
	t   int       // Timestep for bias correction
	m   []float64 // First moment estimates
	v   []float64 // Second moment estimates
}

// newAdam creates an Adam optimizer for a parameter vector of length n.
// Zero-valued config fields fall back to defaults.
func newAdam(n int, cfg adamConfig) *adam {
	if cfg.lr == 0 {
		cfg.lr = 0.05
	}
	if cfg.beta1 == 0 {
		cfg.beta1 = 0.9
	}
	if cfg.beta2 == 0 {
		cfg.beta2 = 0.999
	}
	if cfg.eps == 0 {
		cfg.eps = 1e-8
	}
	return &adam{
		cfg: cfg,
		m:   make([]float64, n),
		v:   make([]float64, n),
	}
}

// step applies one Adam update to w in place using the given gradient.
func (a *adam) step(w, grad []float64) {
	a.t++

	// bias_correction1 = 1 - beta1^t
	// bias_correction2 = 1 - beta2^t
	biasCorrection1 := 1.0 - math.Pow(a.cfg.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.cfg.beta2, float64(a.t))

	for i := range w {
		g := grad[i]
		a.m[i] = a.cfg.beta1*a.m[i] + (1-a.cfg.beta1)*g
		a.v[i] = a.cfg.beta2*a.v[i] + (1-a.cfg.beta2)*g*g

		mHat := a.m[i] / biasCorrection1
		vHat := a.v[i] / biasCorrection2

		w[i] -= a.cfg.lr * mHat / (math.Sqrt(vHat) + a.cfg.eps)
	}
}
