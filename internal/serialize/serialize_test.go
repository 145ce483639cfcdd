// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialize

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidecast-ml/tidecast/internal/compare"
	"github.com/tidecast-ml/tidecast/internal/engine"
	"github.com/tidecast-ml/tidecast/internal/frame"
	"github.com/tidecast-ml/tidecast/internal/model"
)

// historyFrame builds a synthetic daily series with a weekly cycle and
// three extra columns of distinct kinds riding along.
func historyFrame(t *testing.T, rows int) *frame.Frame {
	t.Helper()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, rows)
	values := make([]float64, rows)
	flags := make([]int64, rows)
	labels := make([]string, rows)
	active := make([]bool, rows)
	for i := 0; i < rows; i++ {
		times[i] = start.AddDate(0, 0, i)
		values[i] = 100 + 0.5*float64(i) + 5*float64(i%7)
		flags[i] = int64(i % 3)
		labels[i] = "obs"
		active[i] = i%2 == 0
	}
	df, err := frame.New(
		frame.NewTime("ds", times),
		frame.NewFloat("y", values),
		frame.NewInt("flag", flags),
		frame.NewString("label", labels),
		frame.NewBool("active", active),
	)
	if err != nil {
		t.Fatalf("building history: %v", err)
	}
	return df
}

// fitted returns a model fitted with the given algorithm.
func fitted(t *testing.T, algorithm string) *model.Model {
	t.Helper()
	m := model.New(model.Config{NChangepoints: 4})
	err := m.AddSeasonality(&model.Seasonality{
		Name:         "weekly",
		Period:       7 * 24 * time.Hour,
		FourierOrder: 3,
	})
	if err != nil {
		t.Fatalf("adding seasonality: %v", err)
	}
	opts := engine.Options{
		Algorithm:  algorithm,
		Iterations: 300,
		Draws:      20,
		Seed:       42,
	}
	if err := m.Fit(historyFrame(t, 42), opts); err != nil {
		t.Fatalf("fitting model: %v", err)
	}
	return m
}

// TestVerifyFittedModel checks the registries cover every live attribute
// of a fitted model, its seasonalities, and both backend kinds.
func TestVerifyFittedModel(t *testing.T) {
	for _, algorithm := range []string{engine.AlgorithmMAP, engine.AlgorithmLaplace} {
		m := fitted(t, algorithm)
		if err := Verify(m); err != nil {
			t.Fatalf("%s: registry check failed: %v", algorithm, err)
		}
	}
}

// TestVerifyUndeclaredExtra checks that a dynamic attribute without a
// registry entry fails the schema check with the right sentinel.
func TestVerifyUndeclaredExtra(t *testing.T) {
	m := model.New(model.Config{})
	m.SetExtra("mystery", 1.5)

	err := VerifyModel(m)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %T", err)
	}
	if len(schemaErr.Undeclared) != 1 || schemaErr.Undeclared[0] != "mystery" {
		t.Errorf("expected undeclared [mystery], got %v", schemaErr.Undeclared)
	}
}

// TestBuildRejectsUndeclaredExtra checks encoding fails before any
// document is produced when an extra has no registry entry.
func TestBuildRejectsUndeclaredExtra(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	m.SetExtra("mystery", 1.5)

	_, err := Build(m)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

// TestDocumentRoundTrip checks an in-memory build/parse cycle preserves
// the model without going through a wire encoding.
func TestDocumentRoundTrip(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	got, err := Parse(doc)
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	if err := compare.Models(m, got); err != nil {
		t.Errorf("round trip diverged: %v", err)
	}
}

// TestJSONRoundTrip checks full fidelity through the JSON transport for
// both backend kinds.
func TestJSONRoundTrip(t *testing.T) {
	for _, algorithm := range []string{engine.AlgorithmMAP, engine.AlgorithmLaplace} {
		t.Run(algorithm, func(t *testing.T) {
			m := fitted(t, algorithm)
			data, err := ToJSON(m)
			if err != nil {
				t.Fatalf("encoding: %v", err)
			}
			got, err := FromJSON(data)
			if err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if err := compare.Models(m, got); err != nil {
				t.Errorf("round trip diverged: %v", err)
			}
			if got.Backend.Kind() != algorithm {
				t.Errorf("backend kind = %q, want %q", got.Backend.Kind(), algorithm)
			}
		})
	}
}

// TestCBORRoundTrip checks full fidelity through the CBOR transport.
func TestCBORRoundTrip(t *testing.T) {
	for _, algorithm := range []string{engine.AlgorithmMAP, engine.AlgorithmLaplace} {
		t.Run(algorithm, func(t *testing.T) {
			m := fitted(t, algorithm)
			data, err := ToCBOR(m)
			if err != nil {
				t.Fatalf("encoding: %v", err)
			}
			got, err := FromCBOR(data)
			if err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if err := compare.Models(m, got); err != nil {
				t.Errorf("round trip diverged: %v", err)
			}
		})
	}
}

// TestUnfittedRoundTrip checks a freshly configured model survives a
// round trip with its nil-valued fitted state intact.
func TestUnfittedRoundTrip(t *testing.T) {
	m := model.New(model.Config{Metric: "demand", Timestamp: "when"})
	if err := m.AddSeasonality(&model.Seasonality{Name: "daily", Period: 24 * time.Hour, FourierOrder: 4}); err != nil {
		t.Fatalf("adding seasonality: %v", err)
	}

	data, err := ToJSON(m)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.Fitted {
		t.Error("decoded model claims to be fitted")
	}
	if got.Backend != nil {
		t.Errorf("decoded model has backend %v, want nil", got.Backend)
	}
	if got.History != nil {
		t.Error("decoded model has history, want nil")
	}
	if err := compare.Models(m, got); err != nil {
		t.Errorf("round trip diverged: %v", err)
	}
}

// TestEngineHandlesExcluded checks the two live engine handles never
// appear in documents and stay nil after decode.
func TestEngineHandlesExcluded(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	state := m.Backend.State()
	if state.Handle == nil || state.Program == nil {
		t.Fatal("fixture backend should carry live engine handles")
	}

	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	sub, ok := doc["backend"].(map[string]any)
	if !ok {
		t.Fatalf("backend encoded as %T, want object", doc["backend"])
	}
	for _, attr := range []string{"handle", "program"} {
		if _, present := sub[attr]; present {
			t.Errorf("document contains excluded attribute %q", attr)
		}
		if !Excluded("backend[map]", attr) {
			t.Errorf("Excluded(backend[map], %q) = false", attr)
		}
	}

	got, err := Parse(doc)
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	if got.Backend.State().Handle != nil {
		t.Error("decoded backend has a live fit handle")
	}
	if got.Backend.State().Program != nil {
		t.Error("decoded backend has a live program")
	}
}

// TestHistoryKindsPreserved checks tabular columns keep their dtype kind
// through a JSON round trip even when the physical encoding is ambiguous.
func TestHistoryKindsPreserved(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	data, err := ToJSON(m)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}

	want := map[string]frame.Kind{
		"ds":     frame.Time,
		"y":      frame.Float,
		"flag":   frame.Int,
		"label":  frame.String,
		"active": frame.Bool,
	}
	for name, kind := range want {
		col, ok := got.History.Column(name)
		if !ok {
			t.Fatalf("decoded history is missing column %q", name)
		}
		if col.Kind() != kind {
			t.Errorf("column %q kind = %s, want %s", name, col.Kind(), kind)
		}
	}
	flag, _ := got.History.Column("flag")
	if flag.Ints()[1] != 1 {
		t.Errorf("flag[1] = %d, want 1", flag.Ints()[1])
	}
}

// TestFitParamsFidelity checks the scalar/array split of the parameter
// map survives a round trip, including 2-D posterior draws.
func TestFitParamsFidelity(t *testing.T) {
	m := fitted(t, engine.AlgorithmLaplace)
	data, err := ToJSON(m)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}

	params := got.Backend.State().FitParams
	for _, name := range []string{"k", "m", "sigma_obs"} {
		p, ok := params[name]
		if !ok {
			t.Fatalf("decoded params missing %q", name)
		}
		if p.IsArray() {
			t.Errorf("param %q decoded as array, want scalar", name)
		}
	}
	for _, name := range []string{"delta", "beta"} {
		p, ok := params[name]
		if !ok {
			t.Fatalf("decoded params missing %q", name)
		}
		if !p.IsArray() {
			t.Errorf("param %q decoded as scalar, want array", name)
		}
	}
	draws, ok := params["beta_draws"]
	if !ok || !draws.IsArray() {
		t.Fatal("decoded params missing 2-D beta_draws array")
	}
	shape := draws.Array().Shape()
	if len(shape) != 2 || shape[0] != 20 {
		t.Errorf("beta_draws shape = %v, want [20 d]", shape)
	}
}

// TestParseMissingAttribute checks a document lacking a required
// attribute is rejected with the right sentinel.
func TestParseMissingAttribute(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	delete(doc, "metric")

	_, err = Parse(doc)
	if !errors.Is(err, ErrMissingAttribute) {
		t.Fatalf("expected ErrMissingAttribute, got %v", err)
	}
	var attrErr *AttributeError
	if !errors.As(err, &attrErr) || attrErr.Attr != "metric" {
		t.Errorf("expected attribute error for metric, got %v", err)
	}
}

// TestParseMissingBackendAttribute checks required attributes are also
// enforced inside nested entities.
func TestParseMissingBackendAttribute(t *testing.T) {
	m := fitted(t, engine.AlgorithmLaplace)
	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	delete(doc["backend"].(map[string]any), "seed")

	_, err = Parse(doc)
	if !errors.Is(err, ErrMissingAttribute) {
		t.Fatalf("expected ErrMissingAttribute, got %v", err)
	}
}

// TestParseUnexpectedBackendAttribute checks backends reject document
// keys their registry does not declare.
func TestParseUnexpectedBackendAttribute(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	doc["backend"].(map[string]any)["mystery"] = 1.0

	_, err = Parse(doc)
	if !errors.Is(err, ErrUnexpectedAttribute) {
		t.Fatalf("expected ErrUnexpectedAttribute, got %v", err)
	}
}

// TestParseUnexpectedSeasonalityAttribute checks seasonalities reject
// unknown keys the same way.
func TestParseUnexpectedSeasonalityAttribute(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	weekly := doc["seasonalities"].(map[string]any)["weekly"].(map[string]any)
	weekly["mystery"] = true

	_, err = Parse(doc)
	if !errors.Is(err, ErrUnexpectedAttribute) {
		t.Fatalf("expected ErrUnexpectedAttribute, got %v", err)
	}
}

// TestParseUnknownModelKeysBecomeExtras checks top-level keys outside
// the registry are retained as dynamic extras rather than rejected.
// TestParseRejectsSurplusFrameData checks a tabular data object with an
// entry for a column that is not declared fails the parse.
func TestParseRejectsSurplusFrameData(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	hist := doc["history"].(map[string]any)
	hist[frameDataKey].(map[string]any)["mystery"] = []any{1.0}

	_, err = Parse(doc)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
	if !strings.Contains(err.Error(), "mystery") {
		t.Errorf("error should name the surplus column: %v", err)
	}
}

func TestParseUnknownModelKeysBecomeExtras(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	doc["annotation"] = "revised"

	got, err := Parse(doc)
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	v, ok := got.GetExtra("annotation")
	if !ok || v != "revised" {
		t.Errorf("extra annotation = %v (%v), want \"revised\"", v, ok)
	}
}

// TestDeclaredExtrasRoundTrip checks registered dynamic attributes ride
// along and their absence is not an error.
func TestDeclaredExtrasRoundTrip(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	m.SetExtra("config_path", "run/tidecast.toml")
	m.SetExtra("config_format", "toml")

	data, err := ToJSON(m)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if v, _ := got.GetExtra("config_path"); v != "run/tidecast.toml" {
		t.Errorf("config_path = %v, want run/tidecast.toml", v)
	}
	if err := compare.Models(m, got); err != nil {
		t.Errorf("round trip diverged: %v", err)
	}
}

// TestParseRejectsUnknownSchemaVersion covers both a foreign version
// number and a document with no version at all.
func TestParseRejectsUnknownSchemaVersion(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	doc, err := Build(m)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}

	doc[schemaVersionKey] = SchemaVersion + 1
	if _, err := Parse(doc); !errors.Is(err, ErrUnsupportedSchema) {
		t.Errorf("foreign version: expected ErrUnsupportedSchema, got %v", err)
	}

	delete(doc, schemaVersionKey)
	if _, err := Parse(doc); !errors.Is(err, ErrUnsupportedSchema) {
		t.Errorf("missing version: expected ErrUnsupportedSchema, got %v", err)
	}
}

// TestFromJSONMalformed checks junk bytes map to ErrMalformedDocument.
func TestFromJSONMalformed(t *testing.T) {
	if _, err := FromJSON([]byte("{not json")); !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

// TestSaveLoad checks the file transport, plain and gzip-compressed.
func TestSaveLoad(t *testing.T) {
	m := fitted(t, engine.AlgorithmLaplace)
	dir := t.TempDir()

	for _, name := range []string{"model.json", "model.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Save(m, path); err != nil {
				t.Fatalf("saving: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("loading: %v", err)
			}
			if err := compare.Models(m, got); err != nil {
				t.Errorf("round trip diverged: %v", err)
			}
		})
	}
}

// TestDeterministicJSON checks repeated encodings of the same model are
// byte-identical.
func TestDeterministicJSON(t *testing.T) {
	m := fitted(t, engine.AlgorithmMAP)
	first, err := ToJSON(m)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	second, err := ToJSON(m)
	if err != nil {
		t.Fatalf("encoding again: %v", err)
	}
	if string(first) != string(second) {
		t.Error("JSON encoding is not deterministic")
	}
	if !strings.Contains(string(first), `"schema_version":1`) {
		t.Error("document does not carry its schema version")
	}
}

// TestRegistryNames spot-checks the declared attribute surface.
func TestRegistryNames(t *testing.T) {
	names := modelRegistry.Names()
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	for _, want := range []string{"metric", "timestamp", "seasonalities", "history", "backend", "config_path"} {
		if _, ok := set[want]; !ok {
			t.Errorf("model registry is missing %q", want)
		}
	}
	if modelRegistry.Entity() != "model" {
		t.Errorf("entity = %q, want model", modelRegistry.Entity())
	}
}
