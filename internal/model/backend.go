// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package model

import (
	"fmt"

	"github.com/tidecast-ml/tidecast/internal/engine"
	"github.com/tidecast-ml/tidecast/internal/tensor"
)

// Backend kind discriminants carried in serialized documents.
const (
	BackendMAP     = "map"
	BackendLaplace = "laplace"
)

// Param is a fit-parameter value: exactly one of a scalar or an array.
//
// The fitting engine produces a mixed map of both (scalar trend slope,
// array of seasonal coefficients); modeling the value as an explicit sum
// type keeps codec dispatch exhaustive.
type Param struct {
	scalar *float64
	array  *tensor.Dense
}

// ScalarParam wraps a scalar fit parameter.
func ScalarParam(v float64) Param {
	return Param{scalar: &v}
}

// ArrayParam wraps an array fit parameter.
func ArrayParam(a *tensor.Dense) Param {
	return Param{array: a}
}

// IsArray reports whether the param holds an array.
func (p Param) IsArray() bool { return p.array != nil }

// Scalar returns the scalar value. Panics if the param holds an array.
func (p Param) Scalar() float64 {
	if p.scalar == nil {
		panic("param holds an array, not a scalar")
	}
	return *p.scalar
}

// Array returns the array value. Panics if the param holds a scalar.
func (p Param) Array() *tensor.Dense {
	if p.array == nil {
		panic("param holds a scalar, not an array")
	}
	return p.array
}

// String returns a short description for diagnostics.
func (p Param) String() string {
	if p.array != nil {
		return p.array.String()
	}
	if p.scalar != nil {
		return fmt.Sprintf("%g", *p.scalar)
	}
	return "<empty>"
}

// BackendState is the fitted-engine state shared by every backend kind.
//
// Handle and Program hold live handles into the fitting engine (RNG,
// compiled feature closures). They are excluded from serialization and
// are nil on a deserialized backend; refitting or re-sampling must
// recompile first.
type BackendState struct {
	RunID      string           `attr:"run_id"`
	Iterations int              `attr:"iterations"`
	Converged  bool             `attr:"converged"`
	FinalLoss  float64          `attr:"final_loss"`
	FitParams  map[string]Param `attr:"fit_params"`
	Handle     *engine.Handle   `attr:"handle"`
	Program    *engine.Program  `attr:"program"`
}

// Backend is the fitting-engine state attached to a fitted model. The
// concrete type determines the fit algorithm and is identified in
// documents by its Kind.
type Backend interface {
	Kind() string
	State() *BackendState
}

// MAPBackend holds the state of a MAP point-estimate fit.
type MAPBackend struct {
	BackendState
	Tolerance float64 `attr:"tolerance"`
}

// Kind returns the "map" discriminant.
func (b *MAPBackend) Kind() string { return BackendMAP }

// State returns the shared backend state.
func (b *MAPBackend) State() *BackendState { return &b.BackendState }

// LaplaceBackend holds the state of a Laplace-approximation fit: the MAP
// estimate plus posterior draws of the seasonal coefficients.
type LaplaceBackend struct {
	BackendState
	Draws int   `attr:"draws"`
	Seed  int64 `attr:"seed"`
}

// Kind returns the "laplace" discriminant.
func (b *LaplaceBackend) Kind() string { return BackendLaplace }

// State returns the shared backend state.
func (b *LaplaceBackend) State() *BackendState { return &b.BackendState }

// NewBackend returns an empty backend of the given kind, used by the
// document parser before attributes are populated.
func NewBackend(kind string) (Backend, error) {
	switch kind {
	case BackendMAP:
		return &MAPBackend{}, nil
	case BackendLaplace:
		return &LaplaceBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
}
