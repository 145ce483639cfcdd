// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package forecast_test

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidecast-ml/tidecast/forecast"
)

// writeRun lays out a config file and its CSV series in a temp dir.
func writeRun(t *testing.T) (configPath, csvPath string) {
	t.Helper()
	dir := t.TempDir()

	var rows strings.Builder
	rows.WriteString("when,demand\n")
	start := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 56; i++ {
		day := start.AddDate(0, 0, i)
		value := 200 + 1.5*float64(i) + 12*math.Sin(2*math.Pi*float64(i)/7)
		fmt.Fprintf(&rows, "%s,%.4f\n", day.Format("2006-01-02"), value)
	}
	csvPath = filepath.Join(dir, "demand.csv")
	if err := os.WriteFile(csvPath, []byte(rows.String()), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}

	config := fmt.Sprintf(`
[model]
metric = "demand"
timestamp = "when"
n_changepoints = 5

[[seasonalities]]
name = "weekly"
period = "168h"
fourier_order = 3

[fit]
algorithm = "laplace"
iterations = 400
draws = 30
seed = 7

[data]
path = %q
time_layout = "2006-01-02"
`, csvPath)
	configPath = filepath.Join(dir, "tidecast.toml")
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return configPath, csvPath
}

// TestEndToEnd walks the whole public surface: configure from a file,
// fit from CSV, persist, restore, and predict from both copies.
func TestEndToEnd(t *testing.T) {
	configPath, _ := writeRun(t)

	m, settings, err := forecast.FromConfig(configPath)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	df, err := forecast.ReadCSV(settings.Data.Path, m.Timestamp, m.Metric, settings.Data.TimeLayout)
	if err != nil {
		t.Fatalf("reading series: %v", err)
	}
	if err := m.Fit(df, settings.EngineOptions(nil)); err != nil {
		t.Fatalf("fitting: %v", err)
	}
	if err := forecast.Verify(m); err != nil {
		t.Fatalf("registry check: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json.gz")
	if err := forecast.Save(m, path); err != nil {
		t.Fatalf("saving: %v", err)
	}
	restored, err := forecast.Load(path)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if err := forecast.Equivalent(m, restored); err != nil {
		t.Fatalf("restored model diverged: %v", err)
	}

	// The restored model must predict exactly what the original does:
	// prediction runs off the serialized surface, not live engine state.
	horizon := 14
	want, err := m.Predict(horizon)
	if err != nil {
		t.Fatalf("predicting from original: %v", err)
	}
	got, err := restored.Predict(horizon)
	if err != nil {
		t.Fatalf("predicting from restored: %v", err)
	}
	for i := range want.Forecast {
		if math.Abs(want.Forecast[i]-got.Forecast[i]) > 1e-9 {
			t.Fatalf("forecast[%d]: %v != %v", i, want.Forecast[i], got.Forecast[i])
		}
		if math.Abs(want.Upper[i]-got.Upper[i]) > 1e-9 {
			t.Fatalf("upper[%d]: %v != %v", i, want.Upper[i], got.Upper[i])
		}
		if !want.T[i].Equal(got.T[i]) {
			t.Fatalf("time[%d]: %v != %v", i, want.T[i], got.T[i])
		}
	}
}

// TestDocumentAndBinaryTransports checks the mapping form and CBOR agree
// with the JSON path.
func TestDocumentAndBinaryTransports(t *testing.T) {
	configPath, _ := writeRun(t)
	m, settings, err := forecast.FromConfig(configPath)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	df, err := forecast.ReadCSV(settings.Data.Path, m.Timestamp, m.Metric, settings.Data.TimeLayout)
	if err != nil {
		t.Fatalf("reading series: %v", err)
	}
	if err := m.Fit(df, forecast.Options{Iterations: 200}); err != nil {
		t.Fatalf("fitting: %v", err)
	}

	doc, err := forecast.ToDocument(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	fromDoc, err := forecast.FromDocument(doc)
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	if err := forecast.Equivalent(m, fromDoc); err != nil {
		t.Errorf("document round trip diverged: %v", err)
	}

	blob, err := forecast.ToCBOR(m)
	if err != nil {
		t.Fatalf("encoding cbor: %v", err)
	}
	fromCBOR, err := forecast.FromCBOR(blob)
	if err != nil {
		t.Fatalf("decoding cbor: %v", err)
	}
	if err := forecast.Equivalent(m, fromCBOR); err != nil {
		t.Errorf("cbor round trip diverged: %v", err)
	}

	text, err := forecast.ToJSON(m)
	if err != nil {
		t.Fatalf("encoding json: %v", err)
	}
	if len(blob) >= len(text) {
		t.Logf("cbor (%d bytes) is not smaller than json (%d bytes)", len(blob), len(text))
	}
}

// TestConfigExtrasSurvivePersistence checks the config provenance extras
// attached by FromConfig ride through a save/load cycle.
func TestConfigExtrasSurvivePersistence(t *testing.T) {
	configPath, _ := writeRun(t)
	m, settings, err := forecast.FromConfig(configPath)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	df, err := forecast.ReadCSV(settings.Data.Path, m.Timestamp, m.Metric, settings.Data.TimeLayout)
	if err != nil {
		t.Fatalf("reading series: %v", err)
	}
	if err := m.Fit(df, forecast.Options{Iterations: 100}); err != nil {
		t.Fatalf("fitting: %v", err)
	}

	data, err := forecast.ToJSON(m)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	restored, err := forecast.FromJSON(data)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	v, ok := restored.GetExtra("config_path")
	if !ok || v != configPath {
		t.Errorf("config_path = %v (%v), want %v", v, ok, configPath)
	}
	format, _ := restored.GetExtra("config_format")
	if format != "toml" {
		t.Errorf("config_format = %v, want toml", format)
	}
}
