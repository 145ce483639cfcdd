// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package compare checks two models for attribute-level equivalence.
//
// It exists to validate serialization round trips: arrays compare with a
// numeric tolerance, tabular data by column structure and dtype kind,
// nested entities recursively, and everything else exactly. The two
// excluded engine handles on a backend are never compared.
package compare

import (
	"fmt"
	"math"
	"sort"

	"github.com/tidecast-ml/tidecast/internal/frame"
	"github.com/tidecast-ml/tidecast/internal/model"
	"github.com/tidecast-ml/tidecast/internal/tensor"
)

// Tolerance bounds approximate float comparison: values are close when
// their difference is within Abs, or within Rel of the larger magnitude.
type Tolerance struct {
	Rel float64
	Abs float64
}

// Default is the tolerance used by Models. It absorbs transport-level
// float drift while staying far below fit-parameter scale.
var Default = Tolerance{Rel: 1e-9, Abs: 1e-12}

// Close reports whether two floats are equal within the tolerance.
func (t Tolerance) Close(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	if diff <= t.Abs {
		return true
	}
	larger := math.Max(math.Abs(a), math.Abs(b))
	return diff <= t.Rel*larger
}

// Mismatch reports the first attribute path at which two models diverge,
// with both offending values.
type Mismatch struct {
	Path string
	A, B any
}

// Error implements the error interface.
func (e *Mismatch) Error() string {
	return fmt.Sprintf("values diverge at %s: %v != %v", e.Path, e.A, e.B)
}

// Models compares two models with the default tolerance. Nil means
// equivalent; otherwise the error is a *Mismatch.
func Models(a, b *model.Model) error {
	return ModelsTol(a, b, Default)
}

// ModelsTol compares two models with an explicit tolerance.
func ModelsTol(a, b *model.Model, tol Tolerance) error {
	if a == nil || b == nil {
		if a == b {
			return nil
		}
		return &Mismatch{Path: "model", A: a, B: b}
	}
	if a.Metric != b.Metric {
		return &Mismatch{Path: "metric", A: a.Metric, B: b.Metric}
	}
	if a.Timestamp != b.Timestamp {
		return &Mismatch{Path: "timestamp", A: a.Timestamp, B: b.Timestamp}
	}
	if a.SamplingPeriod != b.SamplingPeriod {
		return &Mismatch{Path: "sampling_period", A: a.SamplingPeriod, B: b.SamplingPeriod}
	}
	if a.Likelihood != b.Likelihood {
		return &Mismatch{Path: "likelihood", A: a.Likelihood, B: b.Likelihood}
	}
	if a.NChangepoints != b.NChangepoints {
		return &Mismatch{Path: "n_changepoints", A: a.NChangepoints, B: b.NChangepoints}
	}
	if a.ChangepointRange != b.ChangepointRange {
		return &Mismatch{Path: "changepoint_range", A: a.ChangepointRange, B: b.ChangepointRange}
	}
	if a.SeasonalityMode != b.SeasonalityMode {
		return &Mismatch{Path: "seasonality_mode", A: a.SeasonalityMode, B: b.SeasonalityMode}
	}
	if err := seasonalities(a.Seasonalities, b.Seasonalities); err != nil {
		return err
	}
	if err := Arrays("changepoints", a.Changepoints, b.Changepoints, tol); err != nil {
		return err
	}
	if err := Arrays("changepoints_t", a.ChangepointsT, b.ChangepointsT, tol); err != nil {
		return err
	}
	if a.YScale != b.YScale {
		return &Mismatch{Path: "y_scale", A: a.YScale, B: b.YScale}
	}
	if a.YMin != b.YMin {
		return &Mismatch{Path: "y_min", A: a.YMin, B: b.YMin}
	}
	if !a.FirstTimestamp.Equal(b.FirstTimestamp) {
		return &Mismatch{Path: "first_timestamp", A: a.FirstTimestamp, B: b.FirstTimestamp}
	}
	if err := Frames("history", a.History, b.History, tol); err != nil {
		return err
	}
	if a.Fitted != b.Fitted {
		return &Mismatch{Path: "fitted", A: a.Fitted, B: b.Fitted}
	}
	if err := backends(a.Backend, b.Backend, tol); err != nil {
		return err
	}
	return extras(a.Extra, b.Extra, tol)
}

func seasonalities(a, b map[string]*model.Seasonality) error {
	if len(a) != len(b) {
		return &Mismatch{Path: "seasonalities", A: mapKeys(a), B: mapKeys(b)}
	}
	for name, sa := range a {
		sb, ok := b[name]
		if !ok {
			return &Mismatch{Path: "seasonalities." + name, A: sa, B: nil}
		}
		if *sa != *sb {
			return &Mismatch{Path: "seasonalities." + name, A: *sa, B: *sb}
		}
	}
	return nil
}

// backends recursively compares backend state, skipping the excluded
// engine handles.
func backends(a, b model.Backend, tol Tolerance) error {
	if a == nil || b == nil {
		if a == b {
			return nil
		}
		return &Mismatch{Path: "backend", A: a, B: b}
	}
	if a.Kind() != b.Kind() {
		return &Mismatch{Path: "backend", A: a.Kind(), B: b.Kind()}
	}
	sa, sb := a.State(), b.State()
	if sa.RunID != sb.RunID {
		return &Mismatch{Path: "backend.run_id", A: sa.RunID, B: sb.RunID}
	}
	if sa.Iterations != sb.Iterations {
		return &Mismatch{Path: "backend.iterations", A: sa.Iterations, B: sb.Iterations}
	}
	if sa.Converged != sb.Converged {
		return &Mismatch{Path: "backend.converged", A: sa.Converged, B: sb.Converged}
	}
	if sa.FinalLoss != sb.FinalLoss {
		return &Mismatch{Path: "backend.final_loss", A: sa.FinalLoss, B: sb.FinalLoss}
	}
	if err := params("backend.fit_params", sa.FitParams, sb.FitParams, tol); err != nil {
		return err
	}

	switch ba := a.(type) {
	case *model.MAPBackend:
		bb := b.(*model.MAPBackend)
		if ba.Tolerance != bb.Tolerance {
			return &Mismatch{Path: "backend.tolerance", A: ba.Tolerance, B: bb.Tolerance}
		}
	case *model.LaplaceBackend:
		bb := b.(*model.LaplaceBackend)
		if ba.Draws != bb.Draws {
			return &Mismatch{Path: "backend.draws", A: ba.Draws, B: bb.Draws}
		}
		if ba.Seed != bb.Seed {
			return &Mismatch{Path: "backend.seed", A: ba.Seed, B: bb.Seed}
		}
	}
	return nil
}

// params compares fit-parameter maps per key: approximate for array
// entries, exact for scalars.
func params(path string, a, b map[string]model.Param, tol Tolerance) error {
	if len(a) != len(b) {
		return &Mismatch{Path: path, A: paramKeys(a), B: paramKeys(b)}
	}
	for name, pa := range a {
		pb, ok := b[name]
		if !ok {
			return &Mismatch{Path: path + "." + name, A: pa, B: nil}
		}
		if pa.IsArray() != pb.IsArray() {
			return &Mismatch{Path: path + "." + name, A: pa, B: pb}
		}
		if pa.IsArray() {
			if err := Arrays(path+"."+name, pa.Array(), pb.Array(), tol); err != nil {
				return err
			}
			continue
		}
		if pa.Scalar() != pb.Scalar() {
			return &Mismatch{Path: path + "." + name, A: pa.Scalar(), B: pb.Scalar()}
		}
	}
	return nil
}

// Arrays compares two arrays elementwise with tolerance for numeric
// dtypes; shape and dtype must match exactly.
func Arrays(path string, a, b *tensor.Dense, tol Tolerance) error {
	if a == nil || b == nil {
		if a == b {
			return nil
		}
		return &Mismatch{Path: path, A: a, B: b}
	}
	if a.DType() != b.DType() {
		return &Mismatch{Path: path + ".dtype", A: a.DType(), B: b.DType()}
	}
	if !a.Shape().Equal(b.Shape()) {
		return &Mismatch{Path: path + ".shape", A: a.Shape(), B: b.Shape()}
	}
	if a.DType() == tensor.Bool {
		av, bv := a.Bools(), b.Bools()
		for i := range av {
			if av[i] != bv[i] {
				return &Mismatch{Path: fmt.Sprintf("%s[%d]", path, i), A: av[i], B: bv[i]}
			}
		}
		return nil
	}
	av, _ := a.AsFloat64()
	bv, _ := b.AsFloat64()
	for i := range av {
		if !tol.Close(av[i], bv[i]) {
			return &Mismatch{Path: fmt.Sprintf("%s[%d]", path, i), A: av[i], B: bv[i]}
		}
	}
	return nil
}

// Frames compares tabular data: column order, names, and dtype kinds
// exactly, float cells with tolerance, time cells by instant, everything
// else exactly.
func Frames(path string, a, b *frame.Frame, tol Tolerance) error {
	if a == nil || b == nil {
		if a == b {
			return nil
		}
		return &Mismatch{Path: path, A: a, B: b}
	}
	if a.NumCols() != b.NumCols() {
		return &Mismatch{Path: path + ".columns", A: a.Columns(), B: b.Columns()}
	}
	if a.NumRows() != b.NumRows() {
		return &Mismatch{Path: path + ".rows", A: a.NumRows(), B: b.NumRows()}
	}
	for i := 0; i < a.NumCols(); i++ {
		ca, cb := a.At(i), b.At(i)
		colPath := path + "." + ca.Name()
		if ca.Name() != cb.Name() {
			return &Mismatch{Path: path + ".columns", A: ca.Name(), B: cb.Name()}
		}
		if ca.Kind() != cb.Kind() {
			return &Mismatch{Path: colPath + ".kind", A: ca.Kind(), B: cb.Kind()}
		}
		switch ca.Kind() {
		case frame.Float:
			va, vb := ca.Floats(), cb.Floats()
			for j := range va {
				if !tol.Close(va[j], vb[j]) {
					return &Mismatch{Path: fmt.Sprintf("%s[%d]", colPath, j), A: va[j], B: vb[j]}
				}
			}
		case frame.Time:
			va, vb := ca.Times(), cb.Times()
			for j := range va {
				if !va[j].Equal(vb[j]) {
					return &Mismatch{Path: fmt.Sprintf("%s[%d]", colPath, j), A: va[j], B: vb[j]}
				}
			}
		case frame.Int:
			va, vb := ca.Ints(), cb.Ints()
			for j := range va {
				if va[j] != vb[j] {
					return &Mismatch{Path: fmt.Sprintf("%s[%d]", colPath, j), A: va[j], B: vb[j]}
				}
			}
		case frame.Bool:
			va, vb := ca.Bools(), cb.Bools()
			for j := range va {
				if va[j] != vb[j] {
					return &Mismatch{Path: fmt.Sprintf("%s[%d]", colPath, j), A: va[j], B: vb[j]}
				}
			}
		case frame.String:
			va, vb := ca.Strings(), cb.Strings()
			for j := range va {
				if va[j] != vb[j] {
					return &Mismatch{Path: fmt.Sprintf("%s[%d]", colPath, j), A: va[j], B: vb[j]}
				}
			}
		}
	}
	return nil
}

// extras compares the dynamic attribute maps. Values compare by runtime
// type; diverging types are a failure in themselves.
func extras(a, b map[string]any, tol Tolerance) error {
	if len(a) != len(b) {
		return &Mismatch{Path: "extra", A: anyKeys(a), B: anyKeys(b)}
	}
	for name, va := range a {
		vb, ok := b[name]
		if !ok {
			return &Mismatch{Path: "extra." + name, A: va, B: nil}
		}
		path := "extra." + name
		switch xa := va.(type) {
		case *tensor.Dense:
			xb, ok := vb.(*tensor.Dense)
			if !ok {
				return &Mismatch{Path: path, A: va, B: vb}
			}
			if err := Arrays(path, xa, xb, tol); err != nil {
				return err
			}
		case *frame.Frame:
			xb, ok := vb.(*frame.Frame)
			if !ok {
				return &Mismatch{Path: path, A: va, B: vb}
			}
			if err := Frames(path, xa, xb, tol); err != nil {
				return err
			}
		case []float64:
			xb, ok := vb.([]float64)
			if !ok || len(xa) != len(xb) {
				return &Mismatch{Path: path, A: va, B: vb}
			}
			for i := range xa {
				if xa[i] != xb[i] {
					return &Mismatch{Path: fmt.Sprintf("%s[%d]", path, i), A: xa[i], B: xb[i]}
				}
			}
		case []string:
			xb, ok := vb.([]string)
			if !ok || len(xa) != len(xb) {
				return &Mismatch{Path: path, A: va, B: vb}
			}
			for i := range xa {
				if xa[i] != xb[i] {
					return &Mismatch{Path: fmt.Sprintf("%s[%d]", path, i), A: xa[i], B: xb[i]}
				}
			}
		default:
			if va != vb {
				return &Mismatch{Path: path, A: va, B: vb}
			}
		}
	}
	return nil
}

func mapKeys(m map[string]*model.Seasonality) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func paramKeys(m map[string]model.Param) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func anyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
