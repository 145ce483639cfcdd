// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package frame

import (
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(NewFloat("a", []float64{1}), NewFloat("a", []float64{2})); err == nil {
		t.Error("duplicate column names should be rejected")
	}
	if _, err := New(NewFloat("a", []float64{1, 2}), NewInt("b", []int64{1})); err == nil {
		t.Error("ragged column lengths should be rejected")
	}
	if _, err := New(nil); err == nil {
		t.Error("nil column should be rejected")
	}
}

func TestFrameAccessors(t *testing.T) {
	ts := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	f, err := New(
		NewTime("ds", ts),
		NewFloat("y", []float64{1.5, 2.5}),
		NewString("tag", []string{"a", "b"}),
	)
	if err != nil {
		t.Fatalf("building frame: %v", err)
	}

	if f.NumRows() != 2 || f.NumCols() != 3 {
		t.Errorf("dimensions = %dx%d, want 2x3", f.NumRows(), f.NumCols())
	}
	cols := f.Columns()
	if cols[0] != "ds" || cols[1] != "y" || cols[2] != "tag" {
		t.Errorf("column order = %v", cols)
	}

	col, ok := f.Column("y")
	if !ok {
		t.Fatal("column y not found")
	}
	if col.Kind() != Float || col.Floats()[1] != 2.5 {
		t.Errorf("y = %v %v", col.Kind(), col.Floats())
	}
	if _, ok := f.Column("missing"); ok {
		t.Error("lookup of a missing column should fail")
	}
	if f.At(0).Name() != "ds" {
		t.Errorf("At(0) = %q, want ds", f.At(0).Name())
	}
	if !f.At(0).Times()[0].Equal(ts[0]) {
		t.Error("time cells should round-trip through the accessor")
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{Int, Float, Bool, String, Time} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("complex"); ok {
		t.Error("unknown kind name should not parse")
	}
}

func TestWrongKindAccessPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("accessing a float column as ints should panic")
		}
	}()
	NewFloat("y", []float64{1}).Ints()
}
