// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialize

import (
	"fmt"

	"github.com/tidecast-ml/tidecast/internal/frame"
	"github.com/tidecast-ml/tidecast/internal/model"
	"github.com/tidecast-ml/tidecast/internal/tensor"
)

// Kind is the codec dispatch category of a registered attribute.
type Kind int

// Codec kinds.
const (
	KindScalar    Kind = iota // Plain scalar: bool, string, number, time, duration
	KindArray                 // n-dimensional numeric array (shape + dtype + flat data)
	KindTabular               // Ordered named columns with per-column dtype kind
	KindEntity                // Nested serializable entity, possibly polymorphic
	KindEntityMap             // Map of nested entities keyed by name
	KindParamMap              // Map of scalar-or-array fit parameters
	KindAuto                  // Dynamic extra: dispatch on runtime type
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindTabular:
		return "tabular"
	case KindEntity:
		return "entity"
	case KindEntityMap:
		return "entity_map"
	case KindParamMap:
		return "param_map"
	case KindAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// Field declares how one attribute of entity type E is serialized. Get
// and Set are explicit accessors so the runtime codec never reflects.
type Field[E any] struct {
	Name     string
	Kind     Kind
	Optional bool // Extras: absent on the instance is not an error
	Get      func(E) any
	Set      func(E, any) error
}

// Registry is the immutable, ordered attribute table for one entity type.
type Registry[E any] struct {
	entity   string
	fields   []Field[E]
	byName   map[string]int
	excluded map[string]struct{}
}

func newRegistry[E any](entity string, excluded []string, fields []Field[E]) *Registry[E] {
	r := &Registry[E]{
		entity:   entity,
		fields:   fields,
		byName:   make(map[string]int, len(fields)),
		excluded: make(map[string]struct{}, len(excluded)),
	}
	for i, f := range fields {
		if _, dup := r.byName[f.Name]; dup {
			panic(fmt.Sprintf("registry %s: duplicate attribute %q", entity, f.Name))
		}
		r.byName[f.Name] = i
	}
	for _, name := range excluded {
		r.excluded[name] = struct{}{}
	}
	return r
}

// Entity returns the registry's entity name.
func (r *Registry[E]) Entity() string { return r.entity }

// Names returns the declared attribute names in registry order.
func (r *Registry[E]) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// IsExcluded reports whether the attribute is excluded from
// serialization for this entity type.
func (r *Registry[E]) IsExcluded(name string) bool {
	_, ok := r.excluded[name]
	return ok
}

func (r *Registry[E]) field(name string) (Field[E], bool) {
	i, ok := r.byName[name]
	if !ok {
		return Field[E]{}, false
	}
	return r.fields[i], true
}

// Excluded implements the exclusion-policy lookup for an entity type
// name as it appears in documents and diagnostics.
func Excluded(entity, attr string) bool {
	switch entity {
	case "backend", "backend[map]", "backend[laplace]":
		return attr == "handle" || attr == "program"
	default:
		return false
	}
}

// extraField declares a known dynamic attribute of the model. Extras are
// optional and dispatch on runtime type.
func extraField(name string) Field[*model.Model] {
	return Field[*model.Model]{
		Name:     name,
		Kind:     KindAuto,
		Optional: true,
		Get: func(m *model.Model) any {
			v, ok := m.Extra[name]
			if !ok {
				return nil
			}
			return v
		},
		Set: func(m *model.Model, v any) error {
			m.SetExtra(name, v)
			return nil
		},
	}
}

// modelRegistry mirrors model.Model's attribute surface. Ordering is the
// document key order and must stay in sync with the struct; the
// reflection self-check (VerifyModel) asserts the set equality.
var modelRegistry = newRegistry("model", nil, []Field[*model.Model]{
	{
		Name: "metric", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.Metric },
		Set: func(m *model.Model, v any) (err error) { m.Metric, err = asString(v); return },
	},
	{
		Name: "timestamp", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.Timestamp },
		Set: func(m *model.Model, v any) (err error) { m.Timestamp, err = asString(v); return },
	},
	{
		Name: "sampling_period", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.SamplingPeriod },
		Set: func(m *model.Model, v any) (err error) { m.SamplingPeriod, err = asDuration(v); return },
	},
	{
		Name: "likelihood", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.Likelihood },
		Set: func(m *model.Model, v any) (err error) { m.Likelihood, err = asString(v); return },
	},
	{
		Name: "n_changepoints", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.NChangepoints },
		Set: func(m *model.Model, v any) error {
			n, err := asInt(v)
			m.NChangepoints = int(n)
			return err
		},
	},
	{
		Name: "changepoint_range", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.ChangepointRange },
		Set: func(m *model.Model, v any) (err error) { m.ChangepointRange, err = asFloat(v); return },
	},
	{
		Name: "seasonality_mode", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.SeasonalityMode },
		Set: func(m *model.Model, v any) (err error) { m.SeasonalityMode, err = asString(v); return },
	},
	{
		Name: "seasonalities", Kind: KindEntityMap,
		Get: func(m *model.Model) any { return m.Seasonalities },
		Set: func(m *model.Model, v any) error {
			if v == nil {
				m.Seasonalities = nil
				return nil
			}
			m.Seasonalities = v.(map[string]*model.Seasonality)
			return nil
		},
	},
	{
		Name: "changepoints", Kind: KindArray,
		Get: func(m *model.Model) any { return m.Changepoints },
		Set: func(m *model.Model, v any) error {
			if v == nil {
				m.Changepoints = nil
				return nil
			}
			m.Changepoints = v.(*tensor.Dense)
			return nil
		},
	},
	{
		Name: "changepoints_t", Kind: KindArray,
		Get: func(m *model.Model) any { return m.ChangepointsT },
		Set: func(m *model.Model, v any) error {
			if v == nil {
				m.ChangepointsT = nil
				return nil
			}
			m.ChangepointsT = v.(*tensor.Dense)
			return nil
		},
	},
	{
		Name: "y_scale", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.YScale },
		Set: func(m *model.Model, v any) (err error) { m.YScale, err = asFloat(v); return },
	},
	{
		Name: "y_min", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.YMin },
		Set: func(m *model.Model, v any) (err error) { m.YMin, err = asFloat(v); return },
	},
	{
		Name: "first_timestamp", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.FirstTimestamp },
		Set: func(m *model.Model, v any) (err error) { m.FirstTimestamp, err = asTime(v); return },
	},
	{
		Name: "history", Kind: KindTabular,
		Get: func(m *model.Model) any { return m.History },
		Set: func(m *model.Model, v any) error {
			if v == nil {
				m.History = nil
				return nil
			}
			m.History = v.(*frame.Frame)
			return nil
		},
	},
	{
		Name: "fitted", Kind: KindScalar,
		Get: func(m *model.Model) any { return m.Fitted },
		Set: func(m *model.Model, v any) (err error) { m.Fitted, err = asBool(v); return },
	},
	{
		Name: "backend", Kind: KindEntity,
		Get: func(m *model.Model) any { return m.Backend },
		Set: func(m *model.Model, v any) error {
			if v == nil {
				m.Backend = nil
				return nil
			}
			m.Backend = v.(model.Backend)
			return nil
		},
	},
	extraField("config_path"),
	extraField("config_format"),
})

// seasonalityRegistry mirrors model.Seasonality.
var seasonalityRegistry = newRegistry("seasonality", nil, []Field[*model.Seasonality]{
	{
		Name: "name", Kind: KindScalar,
		Get: func(s *model.Seasonality) any { return s.Name },
		Set: func(s *model.Seasonality, v any) (err error) { s.Name, err = asString(v); return },
	},
	{
		Name: "period", Kind: KindScalar,
		Get: func(s *model.Seasonality) any { return s.Period },
		Set: func(s *model.Seasonality, v any) (err error) { s.Period, err = asDuration(v); return },
	},
	{
		Name: "fourier_order", Kind: KindScalar,
		Get: func(s *model.Seasonality) any { return s.FourierOrder },
		Set: func(s *model.Seasonality, v any) error {
			n, err := asInt(v)
			s.FourierOrder = int(n)
			return err
		},
	},
	{
		Name: "prior_scale", Kind: KindScalar,
		Get: func(s *model.Seasonality) any { return s.PriorScale },
		Set: func(s *model.Seasonality, v any) (err error) { s.PriorScale, err = asFloat(v); return },
	},
	{
		Name: "mode", Kind: KindScalar,
		Get: func(s *model.Seasonality) any { return s.Mode },
		Set: func(s *model.Seasonality, v any) (err error) { s.Mode, err = asString(v); return },
	},
})

// backendExclusions name the two live engine handles that never
// serialize and stay nil after decode.
var backendExclusions = []string{"handle", "program"}

func backendBaseFields() []Field[model.Backend] {
	return []Field[model.Backend]{
		{
			Name: "run_id", Kind: KindScalar,
			Get: func(b model.Backend) any { return b.State().RunID },
			Set: func(b model.Backend, v any) (err error) { b.State().RunID, err = asString(v); return },
		},
		{
			Name: "iterations", Kind: KindScalar,
			Get: func(b model.Backend) any { return b.State().Iterations },
			Set: func(b model.Backend, v any) error {
				n, err := asInt(v)
				b.State().Iterations = int(n)
				return err
			},
		},
		{
			Name: "converged", Kind: KindScalar,
			Get: func(b model.Backend) any { return b.State().Converged },
			Set: func(b model.Backend, v any) (err error) { b.State().Converged, err = asBool(v); return },
		},
		{
			Name: "final_loss", Kind: KindScalar,
			Get: func(b model.Backend) any { return b.State().FinalLoss },
			Set: func(b model.Backend, v any) (err error) { b.State().FinalLoss, err = asFloat(v); return },
		},
		{
			Name: "fit_params", Kind: KindParamMap,
			Get: func(b model.Backend) any { return b.State().FitParams },
			Set: func(b model.Backend, v any) error {
				if v == nil {
					b.State().FitParams = nil
					return nil
				}
				b.State().FitParams = v.(map[string]model.Param)
				return nil
			},
		},
	}
}

// backendRegistries hold one registry per backend kind: the shared base
// attributes plus the kind's own.
var backendRegistries = map[string]*Registry[model.Backend]{
	model.BackendMAP: newRegistry("backend[map]", backendExclusions, append(backendBaseFields(),
		Field[model.Backend]{
			Name: "tolerance", Kind: KindScalar,
			Get:  func(b model.Backend) any { return b.(*model.MAPBackend).Tolerance },
			Set: func(b model.Backend, v any) (err error) {
				b.(*model.MAPBackend).Tolerance, err = asFloat(v)
				return
			},
		},
	)),
	model.BackendLaplace: newRegistry("backend[laplace]", backendExclusions, append(backendBaseFields(),
		Field[model.Backend]{
			Name: "draws", Kind: KindScalar,
			Get:  func(b model.Backend) any { return b.(*model.LaplaceBackend).Draws },
			Set: func(b model.Backend, v any) error {
				n, err := asInt(v)
				b.(*model.LaplaceBackend).Draws = int(n)
				return err
			},
		},
		Field[model.Backend]{
			Name: "seed", Kind: KindScalar,
			Get:  func(b model.Backend) any { return b.(*model.LaplaceBackend).Seed },
			Set: func(b model.Backend, v any) (err error) {
				b.(*model.LaplaceBackend).Seed, err = asInt(v)
				return
			},
		},
	)),
}
