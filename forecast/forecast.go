// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package forecast is the public entry point to tidecast: configure a
// model, fit it against a time-indexed history, predict future values,
// and persist the fitted state with full round-trip fidelity.
//
// Example:
//
//	m := forecast.New(forecast.Config{Metric: "demand", Timestamp: "ts"})
//	if err := m.Fit(history, forecast.Options{Algorithm: forecast.AlgorithmMAP}); err != nil {
//		log.Fatal(err)
//	}
//	data, _ := forecast.ToJSON(m)
//	restored, _ := forecast.FromJSON(data)
package forecast

import (
	"github.com/tidecast-ml/tidecast/internal/compare"
	"github.com/tidecast-ml/tidecast/internal/config"
	"github.com/tidecast-ml/tidecast/internal/dataset"
	"github.com/tidecast-ml/tidecast/internal/engine"
	"github.com/tidecast-ml/tidecast/internal/frame"
	"github.com/tidecast-ml/tidecast/internal/model"
	"github.com/tidecast-ml/tidecast/internal/serialize"
)

// Model is a configured, optionally fitted forecasting model.
type Model = model.Model

// Config selects the model's data columns and trend/seasonality shape.
type Config = model.Config

// Seasonality describes one periodic component of the model.
type Seasonality = model.Seasonality

// Backend holds the fitted parameters produced by one fitting algorithm.
type Backend = model.Backend

// Result is the output of Model.Predict.
type Result = model.Forecast

// Options controls the fitting run.
type Options = engine.Options

// Frame is the columnar table used for training history and predictions.
type Frame = frame.Frame

// Document is the self-describing mapping form of a fitted model.
type Document = serialize.Document

// Fitting algorithms accepted by Options.Algorithm.
const (
	AlgorithmMAP     = engine.AlgorithmMAP
	AlgorithmLaplace = engine.AlgorithmLaplace
)

// New creates an unfitted model. Zero-valued Config fields fall back to
// the standard defaults (columns "ds"/"y", ten changepoints over the
// first 80% of history, additive seasonality).
func New(cfg Config) *Model {
	return model.New(cfg)
}

// FromConfig loads a viper configuration file (TOML, YAML, or JSON by
// extension) and builds the model it describes.
func FromConfig(path string) (*Model, *config.Settings, error) {
	settings, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := settings.BuildModel()
	if err != nil {
		return nil, nil, err
	}
	return m, settings, nil
}

// ReadCSV loads a two-column training history from a CSV file.
func ReadCSV(path, timeCol, valueCol, layout string) (*Frame, error) {
	return dataset.ReadCSV(path, timeCol, valueCol, layout)
}

// ToDocument converts a fitted model into its mapping form without
// committing to a wire encoding.
func ToDocument(m *Model) (Document, error) {
	return serialize.Build(m)
}

// FromDocument reconstructs a model from its mapping form.
func FromDocument(doc Document) (*Model, error) {
	return serialize.Parse(doc)
}

// ToJSON serializes a fitted model to deterministic JSON.
func ToJSON(m *Model) ([]byte, error) {
	return serialize.ToJSON(m)
}

// FromJSON reconstructs a model from ToJSON output.
func FromJSON(data []byte) (*Model, error) {
	return serialize.FromJSON(data)
}

// ToCBOR serializes a fitted model to canonical CBOR.
func ToCBOR(m *Model) ([]byte, error) {
	return serialize.ToCBOR(m)
}

// FromCBOR reconstructs a model from ToCBOR output.
func FromCBOR(data []byte) (*Model, error) {
	return serialize.FromCBOR(data)
}

// Save writes the model as JSON to path, gzip-compressed when the path
// ends in ".gz".
func Save(m *Model, path string) error {
	return serialize.Save(m, path)
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	return serialize.Load(path)
}

// Verify checks that every live attribute of the model, its
// seasonalities, and its backend is covered by the serialization
// registries. A fitted model that passes Verify round-trips.
func Verify(m *Model) error {
	return serialize.Verify(m)
}

// Equivalent reports whether two models are semantically equal under
// the default floating-point tolerance. The returned error names the
// first diverging attribute.
func Equivalent(a, b *Model) error {
	return compare.Models(a, b)
}
