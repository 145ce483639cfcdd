// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model defines the tidecast forecasting model: its declared
// attribute surface, dynamic extras, seasonal sub-configurations, and the
// polymorphic fitting backends.
//
// The attribute layout here is mirrored exactly by the registries in
// internal/serialize; the `attr` struct tags name each field's attribute
// as it appears in serialized documents and are consumed only by the
// registry self-check, never by the runtime codec.
package model

import (
	"fmt"
	"time"

	"github.com/tidecast-ml/tidecast/internal/frame"
	"github.com/tidecast-ml/tidecast/internal/tensor"
)

// Seasonality configures one Fourier seasonal component.
type Seasonality struct {
	Name         string        `attr:"name"`
	Period       time.Duration `attr:"period"`
	FourierOrder int           `attr:"fourier_order"`
	PriorScale   float64       `attr:"prior_scale"`
	Mode         string        `attr:"mode"`
}

// Config holds model construction options. Zero-valued fields fall back
// to defaults.
type Config struct {
	Metric           string        // Name of the value column (default: "y")
	Timestamp        string        // Name of the time column (default: "ds")
	SamplingPeriod   time.Duration // Spacing of observations (default: inferred at fit)
	Likelihood       string        // Observation likelihood label (default: "normal")
	NChangepoints    int           // Trend changepoints (default: 10)
	ChangepointRange float64       // History fraction holding changepoints (default: 0.8)
	SeasonalityMode  string        // "additive" or "multiplicative" (default: "additive")
}

// Model is a forecasting model: trend and seasonality configuration
// before fitting, plus scales, history, and a fitting Backend after.
//
// Fields are the declared attribute set; Extra carries dynamically
// attached attributes (for example the config front end records the
// source path there). Both are serialized.
type Model struct {
	Metric           string                  `attr:"metric"`
	Timestamp        string                  `attr:"timestamp"`
	SamplingPeriod   time.Duration           `attr:"sampling_period"`
	Likelihood       string                  `attr:"likelihood"`
	NChangepoints    int                     `attr:"n_changepoints"`
	ChangepointRange float64                 `attr:"changepoint_range"`
	SeasonalityMode  string                  `attr:"seasonality_mode"`
	Seasonalities    map[string]*Seasonality `attr:"seasonalities"`
	Changepoints     *tensor.Dense           `attr:"changepoints"`
	ChangepointsT    *tensor.Dense           `attr:"changepoints_t"`
	YScale           float64                 `attr:"y_scale"`
	YMin             float64                 `attr:"y_min"`
	FirstTimestamp   time.Time               `attr:"first_timestamp"`
	History          *frame.Frame            `attr:"history"`
	Fitted           bool                    `attr:"fitted"`
	Backend          Backend                 `attr:"backend"`

	Extra map[string]any `attr:"-"`
}

// New creates an unfitted model from cfg.
func New(cfg Config) *Model {
	if cfg.Metric == "" {
		cfg.Metric = "y"
	}
	if cfg.Timestamp == "" {
		cfg.Timestamp = "ds"
	}
	if cfg.Likelihood == "" {
		cfg.Likelihood = "normal"
	}
	if cfg.NChangepoints == 0 {
		cfg.NChangepoints = 10
	}
	if cfg.ChangepointRange == 0 {
		cfg.ChangepointRange = 0.8
	}
	if cfg.SeasonalityMode == "" {
		cfg.SeasonalityMode = "additive"
	}
	return &Model{
		Metric:           cfg.Metric,
		Timestamp:        cfg.Timestamp,
		SamplingPeriod:   cfg.SamplingPeriod,
		Likelihood:       cfg.Likelihood,
		NChangepoints:    cfg.NChangepoints,
		ChangepointRange: cfg.ChangepointRange,
		SeasonalityMode:  cfg.SeasonalityMode,
		Seasonalities:    make(map[string]*Seasonality),
		Extra:            make(map[string]any),
	}
}

// AddSeasonality registers a seasonal component. Must be called before
// Fit; the name must be unique.
func (m *Model) AddSeasonality(s *Seasonality) error {
	if m.Fitted {
		return fmt.Errorf("cannot add seasonality %q to a fitted model", s.Name)
	}
	if s.Name == "" {
		return fmt.Errorf("seasonality needs a name")
	}
	if s.Period <= 0 {
		return fmt.Errorf("seasonality %q: period must be positive, got %v", s.Name, s.Period)
	}
	if s.FourierOrder <= 0 {
		return fmt.Errorf("seasonality %q: fourier order must be positive, got %d", s.Name, s.FourierOrder)
	}
	if _, dup := m.Seasonalities[s.Name]; dup {
		return fmt.Errorf("seasonality %q already registered", s.Name)
	}
	if s.PriorScale == 0 {
		s.PriorScale = 10.0
	}
	if s.Mode == "" {
		s.Mode = m.SeasonalityMode
	}
	m.Seasonalities[s.Name] = s
	return nil
}

// SetExtra attaches a dynamic attribute. Extras ride along through
// serialization; an extra whose name has no registry entry fails the
// encode-time schema check.
func (m *Model) SetExtra(name string, value any) {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[name] = value
}

// GetExtra returns a dynamic attribute.
func (m *Model) GetExtra(name string) (any, bool) {
	v, ok := m.Extra[name]
	return v, ok
}
